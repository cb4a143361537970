package services

import (
	"context"
	"fmt"
	"log/slog"

	"contas/internal/amqp"
	"contas/internal/core"
)

// SweepResult reports what one sweep run did for one user.
type SweepResult struct {
	Advanced int
	Skipped  int
}

// RolloverService advances bills whose due date has passed: installment
// bills move to the next slice, recurring bills roll to the next cycle
// and debit their instrument for the new occurrence.
type RolloverService struct {
	bills       BillStore
	instruments InstrumentStore
	events      *amqp.Client
	reports     *ReportService
}

func NewRolloverService(bills BillStore, instruments InstrumentStore, events *amqp.Client, reports *ReportService) *RolloverService {
	return &RolloverService{bills: bills, instruments: instruments, events: events, reports: reports}
}

// RunSweep advances every due bill for the user by one cycle. A bill more
// than one cycle behind catches up across successive sweeps, so running
// the sweep twice on an up-to-date set changes nothing.
//
// Failures are per-bill: a bill that cannot be advanced is logged and
// counted as skipped, and the sweep moves on.
func (s *RolloverService) RunSweep(ctx context.Context, userID int64, today core.Date) (SweepResult, error) {
	var result SweepResult

	installments, err := s.bills.ListDueInstallmentBills(ctx, userID, today)
	if err != nil {
		return result, fmt.Errorf("list due installment bills: %w", err)
	}
	for _, bill := range installments {
		if err := s.advanceInstallment(ctx, bill); err != nil {
			slog.ErrorContext(ctx, "Failed to advance installment bill",
				"bill_id", bill.ID, "user_id", userID, "error", err)
			result.Skipped++
			continue
		}
		result.Advanced++
	}

	recurring, err := s.bills.ListDueRecurringBills(ctx, userID, today)
	if err != nil {
		return result, fmt.Errorf("list due recurring bills: %w", err)
	}
	for _, bill := range recurring {
		if err := s.advanceRecurring(ctx, bill); err != nil {
			slog.ErrorContext(ctx, "Failed to advance recurring bill",
				"bill_id", bill.ID, "user_id", userID, "error", err)
			result.Skipped++
			continue
		}
		result.Advanced++
	}

	if result.Advanced > 0 {
		if s.reports != nil {
			s.reports.Invalidate(userID)
		}
		slog.InfoContext(ctx, "Sweep advanced bills",
			"user_id", userID, "advanced", result.Advanced, "skipped", result.Skipped)
	}

	return result, nil
}

// advanceInstallment bumps the slice index and due date. The instrument
// was debited for the full purchase at creation, so no money moves here.
// Finished series (index == total) are excluded by the store query; the
// guard below is for rows that slipped through.
func (s *RolloverService) advanceInstallment(ctx context.Context, bill core.Bill) error {
	if bill.Installment == nil || bill.Installments == nil {
		return fmt.Errorf("bill %d has no installment fields", bill.ID)
	}
	if *bill.Installment >= *bill.Installments {
		return nil
	}

	next := *bill.Installment + 1
	bill.Installment = &next
	bill.DueDate = core.NextDueDate(bill.DueDate)

	if err := s.bills.UpdateBill(ctx, bill); err != nil {
		return fmt.Errorf("persist advanced bill: %w", err)
	}

	s.publishRollover(ctx, bill)
	return nil
}

// advanceRecurring rolls the due date one cycle forward and debits the
// instrument for the new occurrence. The date moves first: if the debit
// then fails the occurrence exists without its charge, which the log
// surfaces, rather than charging for a cycle that was never recorded.
func (s *RolloverService) advanceRecurring(ctx context.Context, bill core.Bill) error {
	bill.DueDate = core.NextDueDate(bill.DueDate)

	if err := s.bills.UpdateBill(ctx, bill); err != nil {
		return fmt.Errorf("persist advanced bill: %w", err)
	}

	if bill.InstrumentID != nil {
		inst, err := s.instruments.GetInstrument(ctx, *bill.InstrumentID)
		if err != nil {
			return fmt.Errorf("load instrument %d: %w", *bill.InstrumentID, err)
		}
		if err := AdjustInstrument(ctx, s.instruments, &inst, bill.Amount, Debit); err != nil {
			return fmt.Errorf("debit occurrence: %w", err)
		}
	}

	s.publishRollover(ctx, bill)
	return nil
}

func (s *RolloverService) publishRollover(ctx context.Context, bill core.Bill) {
	if err := s.events.PublishBillEvent(ctx, amqp.ActionRolledOver, bill.ID, bill.UserID); err != nil {
		slog.WarnContext(ctx, "Failed to publish rollover event",
			"bill_id", bill.ID, "error", err)
	}
}
