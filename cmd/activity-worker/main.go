// Command activity-worker mirrors expense activity events from AMQP into the
// activity tab of the configured spreadsheet.
package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/cli"
	"expensetracker/internal/config"
	"expensetracker/internal/events"
	"expensetracker/internal/export"
	"expensetracker/internal/export/google"
	"expensetracker/internal/log"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger, closer := cli.SetupLogger(cfg, log.ComponentWorker)
	defer closer.Close()
	cli.LoadAndValidateConfig(logger, cfg, (*config.Config).ValidateWorker)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	logger.Info("Starting activity worker", "queue", cfg.AMQPQueue, "sheet", cfg.ActivitySheetName)
	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped", log.FieldError, err.Error())
		closer.Close()
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	writer, err := google.NewFromEnv(ctx, google.Config{
		SpreadsheetID: cfg.GoogleSpreadsheetID,
		ExpensesSheet: cfg.GoogleSheetName,
		ActivitySheet: cfg.ActivitySheetName,
	}, logger)
	if err != nil {
		return err
	}

	consumer, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return err
	}
	defer consumer.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumer.Run(gctx, mirror(writer, logger))
	})
	return g.Wait()
}

// mirror appends each event as one activity row.
func mirror(w export.ActivityWriter, logger *log.Logger) events.Handler {
	return func(ctx context.Context, ev events.Event) error {
		ref, err := w.AppendActivity(ctx, ev)
		if err != nil {
			return err
		}
		logger.InfoContext(ctx, "Activity mirrored",
			log.FieldEventType, ev.Type,
			log.FieldUsername, ev.Username,
			log.FieldSheetsRef, ref)
		return nil
	}
}
