package services

import (
	"context"
	"errors"
	"testing"

	"contas/internal/core"
)

func TestCreateCardInitializesAvailableLimit(t *testing.T) {
	store := newMemStore()
	svc := NewInstrumentService(store, store)

	card, err := svc.CreateCard(context.Background(), 1, "Visa", "10.000,00")
	if err != nil {
		t.Fatalf("CreateCard() error = %v", err)
	}
	if !card.AvailableLimit.Equal(card.CreditLimit) {
		t.Errorf("AvailableLimit = %s, want equal to CreditLimit %s",
			card.AvailableLimit, card.CreditLimit)
	}
	if card.Kind != core.KindCard {
		t.Errorf("Kind = %q, want %q", card.Kind, core.KindCard)
	}
}

func TestUpdateCardKeepsAvailableLimit(t *testing.T) {
	store := newMemStore()
	svc := NewInstrumentService(store, store)

	card, err := svc.CreateCard(context.Background(), 1, "Visa", "10.000,00")
	if err != nil {
		t.Fatalf("CreateCard() error = %v", err)
	}
	loaded := store.instruments[card.ID]
	loaded.AvailableLimit = mustAmount("7.000,00")
	store.instruments[card.ID] = loaded

	updated, err := svc.UpdateCard(context.Background(), 1, card.ID, "Visa Gold", "12.000,00")
	if err != nil {
		t.Fatalf("UpdateCard() error = %v", err)
	}
	if got := updated.CreditLimit.String(); got != "12000" {
		t.Errorf("CreditLimit = %s, want 12000", got)
	}
	if got := updated.AvailableLimit.String(); got != "7000" {
		t.Errorf("AvailableLimit = %s, want untouched 7000", got)
	}
}

func TestUpdateBankAccountSetsBalance(t *testing.T) {
	store := newMemStore()
	svc := NewInstrumentService(store, store)

	acct, err := svc.CreateBankAccount(context.Background(), 1, "Checking", "500,00")
	if err != nil {
		t.Fatalf("CreateBankAccount() error = %v", err)
	}

	updated, err := svc.UpdateBankAccount(context.Background(), 1, acct.ID, "Checking", "750,25")
	if err != nil {
		t.Fatalf("UpdateBankAccount() error = %v", err)
	}
	if got := updated.Balance.String(); got != "750.25" {
		t.Errorf("Balance = %s, want 750.25", got)
	}
}

func TestUpdateCardWrongKindIsNotFound(t *testing.T) {
	store := newMemStore()
	svc := NewInstrumentService(store, store)

	acct, err := svc.CreateBankAccount(context.Background(), 1, "Checking", "500,00")
	if err != nil {
		t.Fatalf("CreateBankAccount() error = %v", err)
	}

	_, err = svc.UpdateCard(context.Background(), 1, acct.ID, "Visa", "1.000,00")
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("UpdateCard() on bank account error = %v, want ErrNotFound", err)
	}
}

func TestDeleteInstrumentRefusedWhileReferenced(t *testing.T) {
	store := newMemStore()
	cardID := store.seedCard(1, "Visa", "10.000,00")
	store.seedBill(core.Bill{
		Name:         "TV",
		Amount:       mustAmount("100,00"),
		DueDate:      mustDate("2026-09-01"),
		UserID:       1,
		InstrumentID: i64p(cardID),
	})
	svc := NewInstrumentService(store, store)

	err := svc.DeleteInstrument(context.Background(), 1, cardID)
	if !errors.Is(err, core.ErrInstrumentInUse) {
		t.Fatalf("DeleteInstrument() error = %v, want ErrInstrumentInUse", err)
	}
	if _, ok := store.instruments[cardID]; !ok {
		t.Error("instrument deleted despite linked bill")
	}
}

func TestDeleteInstrumentUnreferenced(t *testing.T) {
	store := newMemStore()
	cardID := store.seedCard(1, "Visa", "10.000,00")
	svc := NewInstrumentService(store, store)

	if err := svc.DeleteInstrument(context.Background(), 1, cardID); err != nil {
		t.Fatalf("DeleteInstrument() error = %v", err)
	}
	if _, ok := store.instruments[cardID]; ok {
		t.Error("instrument still present after delete")
	}
}

func TestDeleteInstrumentOtherUserIsNotFound(t *testing.T) {
	store := newMemStore()
	cardID := store.seedCard(1, "Visa", "10.000,00")
	svc := NewInstrumentService(store, store)

	err := svc.DeleteInstrument(context.Background(), 2, cardID)
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("DeleteInstrument() error = %v, want ErrNotFound", err)
	}
}

func TestAdjustInstrumentUnknownKind(t *testing.T) {
	store := newMemStore()
	inst := core.PaymentInstrument{ID: 1, Name: "Weird", Kind: "wallet", UserID: 1}
	store.instruments[1] = inst

	err := AdjustInstrument(context.Background(), store, &inst, mustAmount("10,00"), Debit)
	if !errors.Is(err, core.ErrUnknownInstrument) {
		t.Errorf("AdjustInstrument() error = %v, want ErrUnknownInstrument", err)
	}
}
