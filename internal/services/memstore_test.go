package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"contas/internal/core"
)

func mustAmount(s string) decimal.Decimal {
	d, err := core.ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return d
}

// amountPtr is mustAmount for optional amounts.
func amountPtr(s string) *decimal.Decimal {
	d := mustAmount(s)
	return &d
}

func mustDate(s string) core.Date {
	d, err := core.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func i64p(v int64) *int64 { return &v }

// memStore is an in-memory implementation of all three store interfaces,
// with per-operation failure toggles for exercising error paths.
type memStore struct {
	nextID int64

	bills       map[int64]core.Bill
	instruments map[int64]core.PaymentInstrument
	categories  map[int64]core.Category

	failCreateBill       error
	failUpdateBill       map[int64]error // keyed by bill ID
	failDeleteBill       error
	failUpdateInstrument error
}

func newMemStore() *memStore {
	return &memStore{
		bills:          make(map[int64]core.Bill),
		instruments:    make(map[int64]core.PaymentInstrument),
		categories:     make(map[int64]core.Category),
		failUpdateBill: make(map[int64]error),
	}
}

func (m *memStore) nextIDVal() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) CreateBill(_ context.Context, bill core.Bill) (int64, error) {
	if m.failCreateBill != nil {
		return 0, m.failCreateBill
	}
	bill.ID = m.nextIDVal()
	m.bills[bill.ID] = bill
	return bill.ID, nil
}

func (m *memStore) GetBill(_ context.Context, id, userID int64) (core.Bill, error) {
	bill, ok := m.bills[id]
	if !ok || bill.UserID != userID {
		return core.Bill{}, core.ErrNotFound
	}
	return bill, nil
}

func (m *memStore) ListBills(_ context.Context, userID int64) ([]core.Bill, error) {
	var out []core.Bill
	for _, b := range m.bills {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ListBillsByMonth(_ context.Context, userID int64, year int, month time.Month, categories []string) ([]core.Bill, error) {
	var out []core.Bill
	for _, b := range m.bills {
		if b.UserID != userID || b.DueDate.Year() != year || b.DueDate.Month() != month {
			continue
		}
		if len(categories) > 0 && !containsFold(categories, b.CategoryName) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func containsFold(names []string, name string) bool {
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

func (m *memStore) ListDueInstallmentBills(_ context.Context, userID int64, before core.Date) ([]core.Bill, error) {
	var out []core.Bill
	for _, b := range m.bills {
		if b.UserID != userID || !b.IsInstallment() {
			continue
		}
		if *b.Installment >= *b.Installments {
			continue
		}
		if b.DueDate.Before(before.Time) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ListDueRecurringBills(_ context.Context, userID int64, before core.Date) ([]core.Bill, error) {
	var out []core.Bill
	for _, b := range m.bills {
		if b.UserID != userID || !b.Recurring {
			continue
		}
		if b.DueDate.Before(before.Time) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) UpdateBill(_ context.Context, bill core.Bill) error {
	if err := m.failUpdateBill[bill.ID]; err != nil {
		return err
	}
	if _, ok := m.bills[bill.ID]; !ok {
		return core.ErrNotFound
	}
	m.bills[bill.ID] = bill
	return nil
}

func (m *memStore) DeleteBill(_ context.Context, id, userID int64) error {
	if m.failDeleteBill != nil {
		return m.failDeleteBill
	}
	bill, ok := m.bills[id]
	if !ok || bill.UserID != userID {
		return core.ErrNotFound
	}
	delete(m.bills, id)
	return nil
}

func (m *memStore) CountBillsByInstrument(_ context.Context, instrumentID int64) (int64, error) {
	var n int64
	for _, b := range m.bills {
		if b.InstrumentID != nil && *b.InstrumentID == instrumentID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) CreateInstrument(_ context.Context, inst core.PaymentInstrument) (int64, error) {
	inst.ID = m.nextIDVal()
	m.instruments[inst.ID] = inst
	return inst.ID, nil
}

func (m *memStore) GetInstrument(_ context.Context, id int64) (core.PaymentInstrument, error) {
	inst, ok := m.instruments[id]
	if !ok {
		return core.PaymentInstrument{}, core.ErrNotFound
	}
	return inst, nil
}

func (m *memStore) ListInstruments(_ context.Context, userID int64) ([]core.PaymentInstrument, error) {
	var out []core.PaymentInstrument
	for _, inst := range m.instruments {
		if inst.UserID == userID {
			out = append(out, inst)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) UpdateInstrument(_ context.Context, inst core.PaymentInstrument) error {
	if m.failUpdateInstrument != nil {
		return m.failUpdateInstrument
	}
	if _, ok := m.instruments[inst.ID]; !ok {
		return core.ErrNotFound
	}
	m.instruments[inst.ID] = inst
	return nil
}

func (m *memStore) DeleteInstrument(_ context.Context, id, userID int64) error {
	inst, ok := m.instruments[id]
	if !ok || inst.UserID != userID {
		return core.ErrNotFound
	}
	delete(m.instruments, id)
	return nil
}

func (m *memStore) CreateCategory(_ context.Context, cat core.Category) (int64, error) {
	for _, existing := range m.categories {
		if existing.UserID == cat.UserID && existing.Name == cat.Name {
			return 0, core.ErrCategoryExists
		}
	}
	cat.ID = m.nextIDVal()
	m.categories[cat.ID] = cat
	return cat.ID, nil
}

func (m *memStore) GetCategory(_ context.Context, id, userID int64) (core.Category, error) {
	cat, ok := m.categories[id]
	if !ok || cat.UserID != userID {
		return core.Category{}, core.ErrNotFound
	}
	return cat, nil
}

func (m *memStore) ListCategories(_ context.Context, userID int64) ([]core.Category, error) {
	var out []core.Category
	for _, cat := range m.categories {
		if cat.UserID == userID {
			out = append(out, cat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) UpdateCategory(_ context.Context, cat core.Category) error {
	for _, existing := range m.categories {
		if existing.ID != cat.ID && existing.UserID == cat.UserID && existing.Name == cat.Name {
			return core.ErrCategoryExists
		}
	}
	if _, ok := m.categories[cat.ID]; !ok {
		return core.ErrNotFound
	}
	m.categories[cat.ID] = cat
	return nil
}

func (m *memStore) DeleteCategory(_ context.Context, id, userID int64) error {
	cat, ok := m.categories[id]
	if !ok || cat.UserID != userID {
		return core.ErrNotFound
	}
	delete(m.categories, id)
	return nil
}

// seedCard inserts a card and returns its ID.
func (m *memStore) seedCard(userID int64, name, limit string) int64 {
	id := m.nextIDVal()
	limitDec := mustAmount(limit)
	m.instruments[id] = core.PaymentInstrument{
		ID:             id,
		Name:           name,
		Kind:           core.KindCard,
		CreditLimit:    limitDec,
		AvailableLimit: limitDec,
		UserID:         userID,
	}
	return id
}

// seedAccount inserts a bank account and returns its ID.
func (m *memStore) seedAccount(userID int64, name, balance string) int64 {
	id := m.nextIDVal()
	m.instruments[id] = core.PaymentInstrument{
		ID:      id,
		Name:    name,
		Kind:    core.KindBankAccount,
		Balance: mustAmount(balance),
		UserID:  userID,
	}
	return id
}

// seedBill inserts a bill as-is, assigning an ID.
func (m *memStore) seedBill(bill core.Bill) int64 {
	bill.ID = m.nextIDVal()
	m.bills[bill.ID] = bill
	return bill.ID
}
