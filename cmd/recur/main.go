package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"recur/internal/backend"
	"recur/internal/cli"
	apphttp "recur/internal/http"
	"recur/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("recur", os.Getenv("LOG_LEVEL"))
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

	opts := []services.LedgerOption{services.WithGate(cfg.Gate())}
	if result.Publisher != nil {
		opts = append(opts, services.WithPublisher(result.Publisher))
	}
	ledger := services.NewLedger(result.Store, opts...)

	serverOpts := apphttp.Options{
		Addr:               ":" + cfg.Port,
		AuthHeader:         cfg.AuthHeader,
		Location:           loc,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
		Store:              result.Store,
		Logger:             logger,
	}
	if result.AMQP != nil {
		serverOpts.Broker = result.AMQP
	}
	srv := apphttp.NewServer(ledger, serverOpts)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	logger.Info("Starting recur server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"gate", string(cfg.Gate()),
		"timezone", loc.String(),
		"events", result.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
