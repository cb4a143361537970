// Package services holds the bill tracker's business logic: the bill
// lifecycle, payment instrument adjustments, the rollover sweep and
// report aggregation.
//
// Every service takes its persistence handle as an explicit dependency;
// acquisition and release of the underlying store belong to the caller.
package services

import (
	"context"
	"time"

	"contas/internal/core"
)

// BillStore is the persistence surface for bill records. Implementations
// enforce per-user isolation: lookups scoped by user return
// core.ErrNotFound for other users' records.
type BillStore interface {
	CreateBill(ctx context.Context, bill core.Bill) (int64, error)
	GetBill(ctx context.Context, id, userID int64) (core.Bill, error)
	ListBills(ctx context.Context, userID int64) ([]core.Bill, error)
	ListBillsByMonth(ctx context.Context, userID int64, year int, month time.Month, categories []string) ([]core.Bill, error)
	// ListDueInstallmentBills returns bills with an installment counter still
	// below its total and a due date strictly before the given date.
	ListDueInstallmentBills(ctx context.Context, userID int64, before core.Date) ([]core.Bill, error)
	// ListDueRecurringBills returns recurring bills with a due date strictly
	// before the given date.
	ListDueRecurringBills(ctx context.Context, userID int64, before core.Date) ([]core.Bill, error)
	UpdateBill(ctx context.Context, bill core.Bill) error
	DeleteBill(ctx context.Context, id, userID int64) error
	CountBillsByInstrument(ctx context.Context, instrumentID int64) (int64, error)
}

// InstrumentStore is the persistence surface for payment instruments.
type InstrumentStore interface {
	CreateInstrument(ctx context.Context, inst core.PaymentInstrument) (int64, error)
	GetInstrument(ctx context.Context, id int64) (core.PaymentInstrument, error)
	ListInstruments(ctx context.Context, userID int64) ([]core.PaymentInstrument, error)
	UpdateInstrument(ctx context.Context, inst core.PaymentInstrument) error
	DeleteInstrument(ctx context.Context, id, userID int64) error
}

// CategoryStore is the persistence surface for categories.
type CategoryStore interface {
	CreateCategory(ctx context.Context, cat core.Category) (int64, error)
	GetCategory(ctx context.Context, id, userID int64) (core.Category, error)
	ListCategories(ctx context.Context, userID int64) ([]core.Category, error)
	UpdateCategory(ctx context.Context, cat core.Category) error
	DeleteCategory(ctx context.Context, id, userID int64) error
}
