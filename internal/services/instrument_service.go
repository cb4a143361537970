package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"contas/internal/core"
)

// Direction selects whether an adjustment consumes or restores funds.
type Direction int

const (
	// Debit applies a new bill: subtract from available limit or balance.
	Debit Direction = iota
	// Credit reverses a bill on edit or delete: add back.
	Credit
)

// AdjustInstrument applies a signed monetary delta to a payment instrument
// and persists it as a single record update. For cards the delta moves the
// available limit, for bank accounts the balance. The switch over the kind
// tag is exhaustive: an unrecognized variant is an error, never a no-op.
//
// Callers committing an installment purchase pass the full purchase total,
// not the per-installment slice; the instrument reflects the whole
// commitment at creation time.
func AdjustInstrument(ctx context.Context, store InstrumentStore, inst *core.PaymentInstrument, amount decimal.Decimal, dir Direction) error {
	delta := amount
	if dir == Debit {
		delta = amount.Neg()
	}

	switch inst.Kind {
	case core.KindCard:
		inst.AvailableLimit = inst.AvailableLimit.Add(delta)
	case core.KindBankAccount:
		inst.Balance = inst.Balance.Add(delta)
	default:
		return fmt.Errorf("%w: %q", core.ErrUnknownInstrument, inst.Kind)
	}

	if err := store.UpdateInstrument(ctx, *inst); err != nil {
		return fmt.Errorf("persist instrument %d: %w", inst.ID, err)
	}

	slog.DebugContext(ctx, "Adjusted payment instrument",
		"instrument_id", inst.ID,
		"kind", inst.Kind,
		"delta", delta.String())

	return nil
}

// InstrumentService manages payment instrument CRUD. Balance and limit
// mutations from bill activity go through AdjustInstrument, never through
// the update paths here.
type InstrumentService struct {
	instruments InstrumentStore
	bills       BillStore
}

func NewInstrumentService(instruments InstrumentStore, bills BillStore) *InstrumentService {
	return &InstrumentService{instruments: instruments, bills: bills}
}

// CreateCard registers a credit card; the available limit starts equal to
// the total limit.
func (s *InstrumentService) CreateCard(ctx context.Context, userID int64, name, limit string) (core.PaymentInstrument, error) {
	limitDec, err := core.ParseAmount(limit)
	if err != nil {
		return core.PaymentInstrument{}, err
	}
	inst := core.PaymentInstrument{
		Name:           name,
		Kind:           core.KindCard,
		CreditLimit:    limitDec,
		AvailableLimit: limitDec,
		UserID:         userID,
	}
	if err := inst.Validate(); err != nil {
		return core.PaymentInstrument{}, err
	}
	id, err := s.instruments.CreateInstrument(ctx, inst)
	if err != nil {
		return core.PaymentInstrument{}, fmt.Errorf("create card: %w", err)
	}
	inst.ID = id
	return inst, nil
}

// CreateBankAccount registers a bank account with an opening balance.
func (s *InstrumentService) CreateBankAccount(ctx context.Context, userID int64, name, balance string) (core.PaymentInstrument, error) {
	balanceDec, err := core.ParseAmount(balance)
	if err != nil {
		return core.PaymentInstrument{}, err
	}
	inst := core.PaymentInstrument{
		Name:    name,
		Kind:    core.KindBankAccount,
		Balance: balanceDec,
		UserID:  userID,
	}
	if err := inst.Validate(); err != nil {
		return core.PaymentInstrument{}, err
	}
	id, err := s.instruments.CreateInstrument(ctx, inst)
	if err != nil {
		return core.PaymentInstrument{}, fmt.Errorf("create bank account: %w", err)
	}
	inst.ID = id
	return inst, nil
}

// UpdateCard renames a card and changes its total limit. The available
// limit is left alone: it tracks committed bills, not the ceiling.
func (s *InstrumentService) UpdateCard(ctx context.Context, userID, id int64, name, limit string) (core.PaymentInstrument, error) {
	inst, err := s.ownedInstrument(ctx, userID, id, core.KindCard)
	if err != nil {
		return core.PaymentInstrument{}, err
	}
	limitDec, err := core.ParseAmount(limit)
	if err != nil {
		return core.PaymentInstrument{}, err
	}
	inst.Name = name
	inst.CreditLimit = limitDec
	if err := inst.Validate(); err != nil {
		return core.PaymentInstrument{}, err
	}
	if err := s.instruments.UpdateInstrument(ctx, inst); err != nil {
		return core.PaymentInstrument{}, fmt.Errorf("update card: %w", err)
	}
	return inst, nil
}

// UpdateBankAccount renames an account and sets its balance directly.
func (s *InstrumentService) UpdateBankAccount(ctx context.Context, userID, id int64, name, balance string) (core.PaymentInstrument, error) {
	inst, err := s.ownedInstrument(ctx, userID, id, core.KindBankAccount)
	if err != nil {
		return core.PaymentInstrument{}, err
	}
	balanceDec, err := core.ParseAmount(balance)
	if err != nil {
		return core.PaymentInstrument{}, err
	}
	inst.Name = name
	inst.Balance = balanceDec
	if err := inst.Validate(); err != nil {
		return core.PaymentInstrument{}, err
	}
	if err := s.instruments.UpdateInstrument(ctx, inst); err != nil {
		return core.PaymentInstrument{}, fmt.Errorf("update bank account: %w", err)
	}
	return inst, nil
}

// DeleteInstrument removes an instrument, refusing while any bill still
// references it. The guard runs before any state is touched.
func (s *InstrumentService) DeleteInstrument(ctx context.Context, userID, id int64) error {
	inst, err := s.instruments.GetInstrument(ctx, id)
	if err != nil {
		return err
	}
	if inst.UserID != userID {
		return core.ErrNotFound
	}
	linked, err := s.bills.CountBillsByInstrument(ctx, id)
	if err != nil {
		return fmt.Errorf("count linked bills: %w", err)
	}
	if linked > 0 {
		return core.ErrInstrumentInUse
	}
	if err := s.instruments.DeleteInstrument(ctx, id, userID); err != nil {
		return fmt.Errorf("delete instrument: %w", err)
	}
	return nil
}

// ListInstruments returns the user's cards and bank accounts.
func (s *InstrumentService) ListInstruments(ctx context.Context, userID int64) ([]core.PaymentInstrument, error) {
	return s.instruments.ListInstruments(ctx, userID)
}

func (s *InstrumentService) ownedInstrument(ctx context.Context, userID, id int64, kind core.InstrumentKind) (core.PaymentInstrument, error) {
	inst, err := s.instruments.GetInstrument(ctx, id)
	if err != nil {
		return core.PaymentInstrument{}, err
	}
	// Ownership and kind mismatches collapse to not-found.
	if inst.UserID != userID || inst.Kind != kind {
		return core.PaymentInstrument{}, core.ErrNotFound
	}
	return inst, nil
}
