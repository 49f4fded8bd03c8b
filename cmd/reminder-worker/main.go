package main

import (
	"context"
	"flag"
	"os"
	"time"

	"recur/internal/amqp"
	"recur/internal/backend"
	"recur/internal/cli"
	"recur/internal/services"
)

func main() {
	once := flag.Bool("once", false, "send today's reminders and exit")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger("reminder-worker", os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Invalid timezone", "error", err, "timezone", cfg.Timezone)
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	var sender services.ReminderSender = services.LogReminderSender{}
	if result.AMQP != nil {
		sender = amqp.NewReminderPublisher(result.AMQP, cfg.AMQPReminderQueue)
		logger.Info("Publishing reminders to AMQP", "queue", cfg.AMQPReminderQueue)
	} else {
		logger.Info("No broker available - reminders are only logged")
	}
	notifier := services.NewRenewalNotifier(result.Store, sender, cfg.ReminderLeadDays)

	if *once {
		report, err := notifier.Run(context.Background(), time.Now().In(loc))
		if cerr := result.Cleanup(); cerr != nil {
			logger.Error("Backend cleanup error", "error", cerr)
		}
		if err != nil {
			logger.Error("Renewal reminder run failed", "error", err)
			os.Exit(1)
		}
		logger.Info("Renewal reminders sent",
			"renewal_date", report.Date.String(),
			"sent", report.Sent,
			"failed", report.Failed)
		return
	}

	scheduler := services.NewReminderScheduler(notifier, services.ReminderSchedulerConfig{
		PollInterval: cfg.ReminderInterval,
		Location:     loc,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		logger.Info("Shutting down reminder worker...")
		if err := scheduler.Stop(ctx); err != nil {
			logger.Error("Scheduler stop error", "error", err)
		}
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	logger.Info("Starting reminder worker",
		"backend", cfg.DataBackend,
		"lead_days", cfg.ReminderLeadDays,
		"interval", cfg.ReminderInterval)
	if err := scheduler.Start(ctx); err != nil {
		logger.Error("Failed to start reminder scheduler", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
}
