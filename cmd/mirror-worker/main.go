package main

import (
	"context"
	"errors"
	"os"
	"time"

	"recur/internal/amqp"
	"recur/internal/cli"
	"recur/internal/log"
	"recur/internal/sheets"
	gsheet "recur/internal/sheets/google"
	mem "recur/internal/sheets/memory"
	"recur/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("mirror-worker", os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the mirror worker")
		os.Exit(1)
	}

	var (
		mirror sheets.ExpenseMirror
		lister sheets.RowLister
	)
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(context.Background(), gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		if err := client.EnsureHeader(context.Background()); err != nil {
			// Not fatal: appends still work, the sheet just lacks a header.
			logger.Error("Failed to write sheet header", "error", err)
		}
		mirror, lister = client, client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		m := mem.New()
		mirror, lister = m, m
		logger.Info("Google Sheets disabled - mirroring to memory")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPExpenseQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}

	mirrorWorker := worker.NewMirrorWorker(mirror, lister)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		logger.Info("Shutting down mirror worker...")
		if err := amqpClient.Close(); err != nil {
			logger.Error("AMQP close error", "error", err)
		}
	})

	logger.Info("Performing startup sync check...")
	if err := mirrorWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", "error", err)
		// Don't exit - duplicates are then only caught within this process
	}

	go consume(ctx, logger, amqpClient, mirrorWorker)

	cli.WaitForShutdown(ctx, done)
}

// consume keeps the consumer alive, backing off between broken connections.
func consume(ctx context.Context, logger *log.Logger, client *amqp.Client, w *worker.MirrorWorker) {
	attempt := 0
	for {
		started := time.Now()
		err := client.ConsumeExpenseEvents(ctx, w.HandleExpenseEvent)
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return
		}
		// A consumer that ran for a while had a working connection.
		if time.Since(started) > time.Minute {
			attempt = 0
		}
		delay := amqp.Backoff(attempt)
		attempt++
		logger.Error("Message consumption failed, retrying",
			"error", err,
			"attempt", attempt,
			"retry_in", delay)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}
