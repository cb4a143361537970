package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"contas/internal/amqp"
	"contas/internal/core"
)

// BillInput carries the raw fields for creating or editing a bill. Amounts
// arrive as strings so callers can pass either locale form; parsing happens
// here, once.
type BillInput struct {
	Name         string
	Amount       string
	TotalAmount  string
	DueDate      core.Date
	CategoryID   *int64
	Installment  *int64
	Installments *int64
	Recurring    bool
	InstrumentID *int64
}

// BillService implements the bill lifecycle: create, edit, delete, with
// the paired instrument adjustments that keep available limits and
// balances consistent with committed bills.
//
// The events client may be nil; publishing is best-effort and never blocks
// the money path.
type BillService struct {
	bills       BillStore
	instruments InstrumentStore
	events      *amqp.Client
	reports     *ReportService
}

func NewBillService(bills BillStore, instruments InstrumentStore, events *amqp.Client, reports *ReportService) *BillService {
	return &BillService{bills: bills, instruments: instruments, events: events, reports: reports}
}

func (s *BillService) buildBill(userID int64, in BillInput) (core.Bill, error) {
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Bill{}, fmt.Errorf("amount: %w", err)
	}
	bill := core.Bill{
		Name:         in.Name,
		Amount:       amount,
		DueDate:      in.DueDate,
		CategoryID:   in.CategoryID,
		Installment:  in.Installment,
		Installments: in.Installments,
		UserID:       userID,
		Recurring:    in.Recurring,
		InstrumentID: in.InstrumentID,
	}
	if in.TotalAmount != "" {
		total, err := core.ParseAmount(in.TotalAmount)
		if err != nil {
			return core.Bill{}, fmt.Errorf("total amount: %w", err)
		}
		bill.TotalAmount = &total
	}
	if in.Installments != nil && in.Installment == nil {
		first := int64(1)
		bill.Installment = &first
	}
	if err := bill.Validate(); err != nil {
		return core.Bill{}, err
	}
	return bill, nil
}

// CreateBill validates and persists a new bill, then debits the linked
// instrument by the bill's effective total. Installment purchases debit
// the full purchase total once, at creation; later rollovers only advance
// the index.
//
// Persistence failures leave no trace. A debit failure after a successful
// insert is reported to the caller but the bill stands, so the mismatch is
// visible rather than silently absorbed.
func (s *BillService) CreateBill(ctx context.Context, userID int64, in BillInput) (core.Bill, error) {
	bill, err := s.buildBill(userID, in)
	if err != nil {
		return core.Bill{}, err
	}

	// The instrument link is resolved before the insert so a bill is never
	// persisted against an instrument the user cannot touch.
	if _, err := s.ownedInstrument(ctx, userID, bill.InstrumentID); err != nil {
		return core.Bill{}, err
	}

	id, err := s.bills.CreateBill(ctx, bill)
	if err != nil {
		return core.Bill{}, fmt.Errorf("create bill: %w", err)
	}
	bill.ID = id

	if err := s.applyToInstrument(ctx, userID, bill.InstrumentID, bill.EffectiveTotal(), Debit); err != nil {
		return bill, fmt.Errorf("bill %d created but instrument debit failed: %w", id, err)
	}

	s.afterMutation(ctx, amqp.ActionCreated, bill.ID, userID)
	slog.InfoContext(ctx, "Created bill", "bill_id", bill.ID, "user_id", userID, "amount", bill.Amount.String())
	return bill, nil
}

// GetBill returns a bill scoped to its owner. A bill belonging to another
// user is indistinguishable from a missing one.
func (s *BillService) GetBill(ctx context.Context, userID, id int64) (core.Bill, error) {
	return s.bills.GetBill(ctx, id, userID)
}

// ListBills returns all of the user's bills.
func (s *BillService) ListBills(ctx context.Context, userID int64) ([]core.Bill, error) {
	return s.bills.ListBills(ctx, userID)
}

// EditBill rewrites a bill in three phases: credit the original effective
// total back to the original instrument, persist the new version, then
// debit the new effective total from the new instrument. The instrument
// may change between versions; each side settles against its own.
//
// If the persist step fails after the credit, the original debit is
// re-applied so the instrument is left as found.
func (s *BillService) EditBill(ctx context.Context, userID, id int64, in BillInput) (core.Bill, error) {
	orig, err := s.bills.GetBill(ctx, id, userID)
	if err != nil {
		return core.Bill{}, err
	}

	// An omitted installment index keeps the bill's position in its series
	// instead of resetting it to the first installment.
	if in.Installments != nil && in.Installment == nil {
		in.Installment = orig.Installment
	}

	updated, err := s.buildBill(userID, in)
	if err != nil {
		return core.Bill{}, err
	}
	updated.ID = id

	// Resolve the new instrument link before touching anything.
	if _, err := s.ownedInstrument(ctx, userID, updated.InstrumentID); err != nil {
		return core.Bill{}, err
	}

	if err := s.applyToInstrument(ctx, userID, orig.InstrumentID, orig.EffectiveTotal(), Credit); err != nil {
		return core.Bill{}, fmt.Errorf("release original instrument: %w", err)
	}

	if err := s.bills.UpdateBill(ctx, updated); err != nil {
		if redebitErr := s.applyToInstrument(ctx, userID, orig.InstrumentID, orig.EffectiveTotal(), Debit); redebitErr != nil {
			slog.ErrorContext(ctx, "Failed to restore instrument after edit failure",
				"bill_id", id, "error", redebitErr)
		}
		return core.Bill{}, fmt.Errorf("update bill: %w", err)
	}

	if err := s.applyToInstrument(ctx, userID, updated.InstrumentID, updated.EffectiveTotal(), Debit); err != nil {
		return updated, fmt.Errorf("bill %d updated but instrument debit failed: %w", id, err)
	}

	s.afterMutation(ctx, amqp.ActionUpdated, id, userID)
	slog.InfoContext(ctx, "Updated bill", "bill_id", id, "user_id", userID)
	return updated, nil
}

// DeleteBill removes a bill and credits its effective total back to the
// linked instrument. The ownership check fails as not-found before any
// mutation.
func (s *BillService) DeleteBill(ctx context.Context, userID, id int64) error {
	bill, err := s.bills.GetBill(ctx, id, userID)
	if err != nil {
		return err
	}

	if err := s.applyToInstrument(ctx, userID, bill.InstrumentID, bill.EffectiveTotal(), Credit); err != nil {
		return fmt.Errorf("release instrument: %w", err)
	}

	if err := s.bills.DeleteBill(ctx, id, userID); err != nil {
		if redebitErr := s.applyToInstrument(ctx, userID, bill.InstrumentID, bill.EffectiveTotal(), Debit); redebitErr != nil {
			slog.ErrorContext(ctx, "Failed to restore instrument after delete failure",
				"bill_id", id, "error", redebitErr)
		}
		return fmt.Errorf("delete bill: %w", err)
	}

	s.afterMutation(ctx, amqp.ActionDeleted, id, userID)
	slog.InfoContext(ctx, "Deleted bill", "bill_id", id, "user_id", userID)
	return nil
}

// ownedInstrument resolves an optional instrument link for the acting user.
// An instrument belonging to someone else is indistinguishable from a
// missing one. A nil link resolves to a nil instrument.
func (s *BillService) ownedInstrument(ctx context.Context, userID int64, instrumentID *int64) (*core.PaymentInstrument, error) {
	if instrumentID == nil {
		return nil, nil
	}
	inst, err := s.instruments.GetInstrument(ctx, *instrumentID)
	if err != nil {
		return nil, fmt.Errorf("load instrument %d: %w", *instrumentID, err)
	}
	if inst.UserID != userID {
		return nil, core.ErrNotFound
	}
	return &inst, nil
}

// applyToInstrument adjusts the linked instrument on behalf of the acting
// user. Bills without an instrument settle outside the tracker; nothing
// to do.
func (s *BillService) applyToInstrument(ctx context.Context, userID int64, instrumentID *int64, amount decimal.Decimal, dir Direction) error {
	inst, err := s.ownedInstrument(ctx, userID, instrumentID)
	if err != nil || inst == nil {
		return err
	}
	return AdjustInstrument(ctx, s.instruments, inst, amount, dir)
}

func (s *BillService) afterMutation(ctx context.Context, action string, billID, userID int64) {
	if s.reports != nil {
		s.reports.Invalidate(userID)
	}
	if err := s.events.PublishBillEvent(ctx, action, billID, userID); err != nil {
		slog.WarnContext(ctx, "Failed to publish bill event",
			"action", action, "bill_id", billID, "error", err)
	}
}
