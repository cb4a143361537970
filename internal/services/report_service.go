package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"contas/internal/cache"
	"contas/internal/core"
)

// ReportService aggregates bills into spending summaries. The dashboard
// overview is cached per user; bill mutations invalidate it.
type ReportService struct {
	bills     BillStore
	overviews *cache.TTLCache[core.Overview]
}

func NewReportService(bills BillStore) *ReportService {
	return &ReportService{
		bills:     bills,
		overviews: cache.NewTTLCache[core.Overview](256, 5*time.Minute),
	}
}

// Overview returns the user's total committed amount with breakdowns by
// category and by due date.
func (s *ReportService) Overview(ctx context.Context, userID int64) (core.Overview, error) {
	key := strconv.FormatInt(userID, 10)
	if cached, ok := s.overviews.Get(key); ok {
		return cached, nil
	}

	bills, err := s.bills.ListBills(ctx, userID)
	if err != nil {
		return core.Overview{}, fmt.Errorf("list bills: %w", err)
	}

	overview := core.Overview{
		Total:      sumBills(bills),
		ByCategory: groupByCategory(bills),
		ByDueDate:  groupByDueDate(bills),
	}

	s.overviews.Set(key, overview)
	return overview, nil
}

// Monthly returns the bills due in the given month, optionally filtered by
// category names, with the category breakdown for the filtered set. It is
// not cached: the filter space is too wide to be worth holding.
func (s *ReportService) Monthly(ctx context.Context, userID int64, year int, month time.Month, categories []string) (core.MonthlyReport, error) {
	bills, err := s.bills.ListBillsByMonth(ctx, userID, year, month, categories)
	if err != nil {
		return core.MonthlyReport{}, fmt.Errorf("list bills for %d-%02d: %w", year, month, err)
	}

	return core.MonthlyReport{
		Year:       year,
		Month:      month,
		Total:      sumBills(bills),
		ByCategory: groupByCategory(bills),
		Bills:      bills,
	}, nil
}

// Invalidate drops the user's cached overview.
func (s *ReportService) Invalidate(userID int64) {
	s.overviews.Delete(strconv.FormatInt(userID, 10))
}

// Monthly totals use the per-cycle amount, not the purchase total: what
// the report answers is "how much is due", not "how much was committed".
func sumBills(bills []core.Bill) decimal.Decimal {
	total := decimal.Zero
	for _, b := range bills {
		total = total.Add(b.Amount)
	}
	return total
}

func groupByCategory(bills []core.Bill) []core.CategoryTotal {
	byName := make(map[string]decimal.Decimal)
	for _, b := range bills {
		name := b.CategoryName
		if name == "" {
			name = "Uncategorized"
		}
		byName[name] = byName[name].Add(b.Amount)
	}

	totals := make([]core.CategoryTotal, 0, len(byName))
	for name, total := range byName {
		totals = append(totals, core.CategoryTotal{Name: name, Total: total})
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Name < totals[j].Name })
	return totals
}

func groupByDueDate(bills []core.Bill) []core.DueDateTotal {
	byDate := make(map[string]decimal.Decimal)
	for _, b := range bills {
		byDate[b.DueDate.ISO()] = byDate[b.DueDate.ISO()].Add(b.Amount)
	}

	totals := make([]core.DueDateTotal, 0, len(byDate))
	for iso, total := range byDate {
		date, err := core.ParseDate(iso)
		if err != nil {
			continue
		}
		totals = append(totals, core.DueDateTotal{DueDate: date, Total: total})
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].DueDate.Before(totals[j].DueDate.Time) })
	return totals
}
