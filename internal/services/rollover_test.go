package services

import (
	"context"
	"errors"
	"testing"

	"contas/internal/core"
)

func TestSweepAdvancesInstallment(t *testing.T) {
	store := newMemStore()
	cardID := store.seedCard(1, "Visa", "10.000,00")
	billID := store.seedBill(core.Bill{
		Name:         "TV",
		Amount:       mustAmount("250,00"),
		DueDate:      mustDate("2026-08-10"),
		Installment:  i64p(3),
		Installments: i64p(5),
		UserID:       1,
		InstrumentID: i64p(cardID),
	})
	svc := NewRolloverService(store, store, nil, nil)

	result, err := svc.RunSweep(context.Background(), 1, mustDate("2026-08-30"))
	if err != nil {
		t.Fatalf("RunSweep() error = %v", err)
	}
	if result.Advanced != 1 || result.Skipped != 0 {
		t.Errorf("result = %+v, want Advanced=1 Skipped=0", result)
	}

	bill := store.bills[billID]
	if *bill.Installment != 4 {
		t.Errorf("Installment = %d, want 4", *bill.Installment)
	}
	if got := bill.DueDate.ISO(); got != "2026-09-10" {
		t.Errorf("DueDate = %s, want 2026-09-10", got)
	}
	// Installment advances never touch the instrument.
	if got := store.instruments[cardID].AvailableLimit.String(); got != "10000" {
		t.Errorf("available limit = %s, want untouched 10000", got)
	}
}

func TestSweepSkipsFinishedInstallmentSeries(t *testing.T) {
	store := newMemStore()
	billID := store.seedBill(core.Bill{
		Name:         "Sofa",
		Amount:       mustAmount("100,00"),
		DueDate:      mustDate("2026-08-01"),
		Installment:  i64p(5),
		Installments: i64p(5),
		UserID:       1,
	})
	svc := NewRolloverService(store, store, nil, nil)

	result, err := svc.RunSweep(context.Background(), 1, mustDate("2026-08-30"))
	if err != nil {
		t.Fatalf("RunSweep() error = %v", err)
	}
	if result.Advanced != 0 {
		t.Errorf("Advanced = %d, want 0 for a finished series", result.Advanced)
	}
	if got := store.bills[billID].DueDate.ISO(); got != "2026-08-01" {
		t.Errorf("DueDate = %s, want unchanged 2026-08-01", got)
	}
}

func TestSweepAdvancesRecurringAndDebits(t *testing.T) {
	store := newMemStore()
	acctID := store.seedAccount(1, "Checking", "1.000,00")
	billID := store.seedBill(core.Bill{
		Name:         "Gym",
		Amount:       mustAmount("90,00"),
		DueDate:      mustDate("2026-07-15"),
		Recurring:    true,
		UserID:       1,
		InstrumentID: i64p(acctID),
	})
	svc := NewRolloverService(store, store, nil, nil)

	result, err := svc.RunSweep(context.Background(), 1, mustDate("2026-08-01"))
	if err != nil {
		t.Fatalf("RunSweep() error = %v", err)
	}
	if result.Advanced != 1 {
		t.Errorf("Advanced = %d, want 1", result.Advanced)
	}
	if got := store.bills[billID].DueDate.ISO(); got != "2026-08-15" {
		t.Errorf("DueDate = %s, want 2026-08-15", got)
	}
	if got := store.instruments[acctID].Balance.String(); got != "910" {
		t.Errorf("balance = %s, want 910 (one occurrence debited)", got)
	}
}

func TestSweepIsIdempotentOnceCaughtUp(t *testing.T) {
	store := newMemStore()
	acctID := store.seedAccount(1, "Checking", "1.000,00")
	store.seedBill(core.Bill{
		Name:         "Gym",
		Amount:       mustAmount("90,00"),
		DueDate:      mustDate("2026-07-15"),
		Recurring:    true,
		UserID:       1,
		InstrumentID: i64p(acctID),
	})
	svc := NewRolloverService(store, store, nil, nil)
	today := mustDate("2026-08-01")

	if _, err := svc.RunSweep(context.Background(), 1, today); err != nil {
		t.Fatalf("first RunSweep() error = %v", err)
	}
	result, err := svc.RunSweep(context.Background(), 1, today)
	if err != nil {
		t.Fatalf("second RunSweep() error = %v", err)
	}
	if result.Advanced != 0 {
		t.Errorf("second sweep Advanced = %d, want 0", result.Advanced)
	}
	if got := store.instruments[acctID].Balance.String(); got != "910" {
		t.Errorf("balance = %s, want 910 (no double debit)", got)
	}
}

func TestSweepClampsDueDateToMonthEnd(t *testing.T) {
	store := newMemStore()
	billID := store.seedBill(core.Bill{
		Name:      "Hosting",
		Amount:    mustAmount("30,00"),
		DueDate:   mustDate("2026-01-31"),
		Recurring: true,
		UserID:    1,
	})
	svc := NewRolloverService(store, store, nil, nil)

	if _, err := svc.RunSweep(context.Background(), 1, mustDate("2026-02-15")); err != nil {
		t.Fatalf("RunSweep() error = %v", err)
	}
	if got := store.bills[billID].DueDate.ISO(); got != "2026-02-28" {
		t.Errorf("DueDate = %s, want 2026-02-28", got)
	}
}

func TestSweepPartialFailureContinues(t *testing.T) {
	store := newMemStore()
	badID := store.seedBill(core.Bill{
		Name:      "Bad",
		Amount:    mustAmount("10,00"),
		DueDate:   mustDate("2026-07-01"),
		Recurring: true,
		UserID:    1,
	})
	goodID := store.seedBill(core.Bill{
		Name:      "Good",
		Amount:    mustAmount("20,00"),
		DueDate:   mustDate("2026-07-01"),
		Recurring: true,
		UserID:    1,
	})
	store.failUpdateBill[badID] = errors.New("disk full")
	svc := NewRolloverService(store, store, nil, nil)

	result, err := svc.RunSweep(context.Background(), 1, mustDate("2026-08-01"))
	if err != nil {
		t.Fatalf("RunSweep() error = %v", err)
	}
	if result.Advanced != 1 || result.Skipped != 1 {
		t.Errorf("result = %+v, want Advanced=1 Skipped=1", result)
	}
	if got := store.bills[goodID].DueDate.ISO(); got != "2026-08-01" {
		t.Errorf("good bill DueDate = %s, want 2026-08-01", got)
	}
	if got := store.bills[badID].DueDate.ISO(); got != "2026-07-01" {
		t.Errorf("bad bill DueDate = %s, want unchanged 2026-07-01", got)
	}
}

func TestSweepScopedToUser(t *testing.T) {
	store := newMemStore()
	otherID := store.seedBill(core.Bill{
		Name:      "Other user",
		Amount:    mustAmount("10,00"),
		DueDate:   mustDate("2026-07-01"),
		Recurring: true,
		UserID:    2,
	})
	svc := NewRolloverService(store, store, nil, nil)

	result, err := svc.RunSweep(context.Background(), 1, mustDate("2026-08-01"))
	if err != nil {
		t.Fatalf("RunSweep() error = %v", err)
	}
	if result.Advanced != 0 {
		t.Errorf("Advanced = %d, want 0 for foreign bills", result.Advanced)
	}
	if got := store.bills[otherID].DueDate.ISO(); got != "2026-07-01" {
		t.Errorf("foreign bill DueDate = %s, want unchanged", got)
	}
}
