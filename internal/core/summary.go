package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryTotal is an amount aggregated by category name.
type CategoryTotal struct {
	Name  string
	Total decimal.Decimal
}

// DueDateTotal is an amount aggregated by due date.
type DueDateTotal struct {
	DueDate Date
	Total   decimal.Decimal
}

// Overview is the dashboard summary across all of a user's bills.
type Overview struct {
	Total      decimal.Decimal
	ByCategory []CategoryTotal
	ByDueDate  []DueDateTotal
}

// MonthlyReport is the aggregation for a specific year+month, optionally
// restricted to a category selection.
type MonthlyReport struct {
	Year       int
	Month      time.Month
	Total      decimal.Decimal
	ByCategory []CategoryTotal
	Bills      []Bill
}
