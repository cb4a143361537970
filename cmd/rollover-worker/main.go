package main

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"contas/internal/amqp"
	"contas/internal/cli"
	"contas/internal/core"
	applog "contas/internal/log"
	"contas/internal/services"
	"contas/internal/storage"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)

	logger.Info("Starting rollover-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	amqpClient := cli.InitAMQP(logger, cfg)

	reports := services.NewReportService(repo)
	rollover := services.NewRolloverService(repo, repo, amqpClient, reports)

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, func() {
		amqpClient.Close()
	})

	logger.Info("Rollover sweep configured",
		"interval", cfg.SweepInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	if amqpClient != nil {
		go consumeBillEvents(ctx, logger, amqpClient)
	}

	logger.Info("Running initial sweep")
	sweepAllUsers(ctx, logger, repo, rollover)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sweepAllUsers(ctx, logger, repo, rollover)
			}
		}
	}()

	cli.WaitForShutdown(ctx, done)
}

// consumeBillEvents drains the bill event queue and records each mutation
// in the worker's log, giving an audit trail of activity across binaries.
// The loop ends when the broker connection drops or the worker shuts down.
func consumeBillEvents(ctx context.Context, logger *applog.Logger, client *amqp.Client) {
	err := client.ConsumeBillEvents(ctx, func(msg *amqp.BillEventMessage) error {
		logger.InfoContext(ctx, "Bill event received",
			"event_id", msg.EventID,
			"action", msg.Action,
			applog.FieldBillID, msg.BillID,
			applog.FieldUserID, msg.UserID)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.ErrorContext(ctx, "Bill event consumer stopped", applog.FieldError, err)
	}
}

// sweepAllUsers fans the sweep out over every registered user. Users run
// concurrently; within one user the sweep is sequential.
func sweepAllUsers(ctx context.Context, logger *applog.Logger, repo *storage.SQLiteRepository, rollover *services.RolloverService) {
	users, err := repo.ListUsers(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to list users for sweep", applog.FieldError, err)
		return
	}

	today := core.DateOf(time.Now())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, user := range users {
		g.Go(func() error {
			result, err := rollover.RunSweep(gctx, user.ID, today)
			if err != nil {
				logger.ErrorContext(gctx, "Sweep failed",
					applog.FieldUserID, user.ID, applog.FieldError, err)
				return nil // one user's failure does not stop the rest
			}
			if result.Advanced > 0 || result.Skipped > 0 {
				logger.InfoContext(gctx, "Sweep finished",
					applog.FieldUserID, user.ID,
					applog.FieldAdvanced, result.Advanced,
					applog.FieldSkipped, result.Skipped)
			}
			return nil
		})
	}
	_ = g.Wait()
}
