package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// Date is a calendar date without a time-of-day component. All due-date
	// arithmetic operates on Dates in UTC.
	Date struct {
		time.Time
	}

	// InstrumentKind tags the payment instrument variant.
	InstrumentKind string

	// Bill is a tracked payable: one-off, one slice of an installment
	// purchase, or a recurring charge. Amount is the per-occurrence value;
	// TotalAmount, when set, is the full purchase total committed against
	// the payment instrument.
	Bill struct {
		ID           int64
		Name         string
		Amount       decimal.Decimal
		TotalAmount  *decimal.Decimal
		DueDate      Date
		CategoryID   *int64
		Installment  *int64 // current installment index, 1-based
		Installments *int64 // total installment count
		UserID       int64
		Recurring    bool
		InstrumentID *int64

		// CategoryName is filled by storage joins for display, never persisted.
		CategoryName string
	}

	// PaymentInstrument is a tagged variant: a credit card with a limit or a
	// bank account with a balance. Code switching on Kind must treat an
	// unrecognized tag as an error.
	PaymentInstrument struct {
		ID             int64
		Name           string
		Kind           InstrumentKind
		CreditLimit    decimal.Decimal // cards only
		AvailableLimit decimal.Decimal // cards only
		Balance        decimal.Decimal // bank accounts only
		UserID         int64
	}

	Category struct {
		ID     int64
		Name   string
		UserID int64
	}

	User struct {
		ID       int64
		Username string
	}
)

const (
	KindCard        InstrumentKind = "card"
	KindBankAccount InstrumentKind = "bank_account"
)

var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrNegativeAmount       = errors.New("amount must not be negative")
	ErrEmptyName            = errors.New("empty name")
	ErrInvalidInstallments  = errors.New("installment index out of range")
	ErrRecurringInstallment = errors.New("bill cannot be both recurring and installment-based")
	ErrNotFound             = errors.New("record not found")
	ErrCategoryExists       = errors.New("category already exists")
	ErrInstrumentInUse      = errors.New("payment instrument has linked bills")
	ErrUnknownInstrument    = errors.New("unknown payment instrument kind")
)

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time to its calendar date in UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses an ISO calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// ISO renders the date in YYYY-MM-DD form, the storage representation.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// EffectiveTotal is the amount committed against the payment instrument:
// the full purchase total when one was supplied, the per-occurrence amount
// otherwise.
func (b Bill) EffectiveTotal() decimal.Decimal {
	if b.TotalAmount != nil {
		return *b.TotalAmount
	}
	return b.Amount
}

// IsInstallment reports whether the bill is one slice of a multi-part purchase.
func (b Bill) IsInstallment() bool {
	return b.Installments != nil
}

// InstallmentDisplay renders the installment position ("3/12"), or "-" for
// bills that are not installment-based.
func (b Bill) InstallmentDisplay() string {
	if b.Installments == nil {
		return "-"
	}
	if b.Installment == nil {
		return fmt.Sprintf("?/%d", *b.Installments)
	}
	return fmt.Sprintf("%d/%d", *b.Installment, *b.Installments)
}

func (b Bill) Validate() error {
	if len(strings.TrimSpace(b.Name)) == 0 {
		return ErrEmptyName
	}
	if len(b.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	if b.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if b.TotalAmount != nil && b.TotalAmount.IsNegative() {
		return ErrNegativeAmount
	}
	if err := b.DueDate.Validate(); err != nil {
		return fmt.Errorf("invalid due date: %w", err)
	}
	if b.Installments != nil {
		if *b.Installments < 1 {
			return ErrInvalidInstallments
		}
		if b.Installment == nil || *b.Installment < 1 || *b.Installment > *b.Installments {
			return ErrInvalidInstallments
		}
		if b.Recurring {
			return ErrRecurringInstallment
		}
	}
	return nil
}

func (i PaymentInstrument) Validate() error {
	if len(strings.TrimSpace(i.Name)) == 0 {
		return ErrEmptyName
	}
	switch i.Kind {
	case KindCard:
		if i.CreditLimit.IsNegative() || i.AvailableLimit.IsNegative() {
			return ErrNegativeAmount
		}
	case KindBankAccount:
		if i.Balance.IsNegative() {
			return ErrNegativeAmount
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownInstrument, i.Kind)
	}
	return nil
}

func (c Category) Validate() error {
	if len(strings.TrimSpace(c.Name)) == 0 {
		return ErrEmptyName
	}
	return nil
}
