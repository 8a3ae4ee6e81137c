package main

import (
	"context"
	"os"
	"time"

	"expensetracker/internal/api"
	"expensetracker/internal/backend"
	"expensetracker/internal/cli"
	"expensetracker/internal/config"
	"expensetracker/internal/events"
	"expensetracker/internal/export/google"
	apphttp "expensetracker/internal/http"
	"expensetracker/internal/log"
	"expensetracker/internal/middleware/ratelimit"
	"expensetracker/internal/session"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger, closer := cli.SetupLogger(cfg, log.ComponentApp)
	defer closer.Close()
	cli.LoadAndValidateConfig(logger, cfg)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server error", log.FieldError, err.Error())
		closer.Close()
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	sessions, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := sessions.Cleanup(); err != nil {
			logger.Warn("Session backend cleanup failed", log.FieldError, err.Error())
		}
	}()

	verifier, err := session.NewVerifier(cfg.SessionVerifier)
	if err != nil {
		return err
	}

	opts := apphttp.Options{
		Addr:     ":" + cfg.Port,
		Logger:   logger,
		API:      api.New(cfg.APIBaseURL, cfg.APITimeout, api.WithLogger(logger)),
		Sessions: sessions.Backend,
		Verifier: verifier,
		Cookie: apphttp.CookieConfig{
			Name:   cfg.SessionCookieName,
			Secure: cfg.CookieSecure,
			MaxAge: cfg.SessionTTL,
		},
		SessionPing:    sessions.Ping,
		SessionBackend: sessions.Type.String(),
		TrustedProxies: cfg.TrustedProxies,
		RateLimit: ratelimit.Config{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
	}

	if cfg.EventsEnabled() {
		publisher, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			// The page works without activity events.
			logger.Warn("AMQP unavailable, activity events disabled", log.FieldError, err.Error())
		} else {
			defer publisher.Close()
			opts.Publisher = publisher
			logger.Info("Activity events enabled", "exchange", cfg.AMQPExchange)
		}
	}

	if cfg.ExportEnabled() {
		exporter, err := google.NewFromEnv(ctx, google.Config{
			SpreadsheetID: cfg.GoogleSpreadsheetID,
			ExpensesSheet: cfg.GoogleSheetName,
			ActivitySheet: cfg.ActivitySheetName,
		}, logger)
		if err != nil {
			logger.Warn("Google Sheets unavailable, export disabled", log.FieldError, err.Error())
		} else {
			opts.Exporter = exporter
			logger.Info("Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
		}
	}

	srv, err := apphttp.NewServer(opts)
	if err != nil {
		return err
	}
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	logger.Info("Starting expense web server",
		"port", cfg.Port,
		"api", cfg.APIBaseURL,
		log.FieldBackend, sessions.Type)
	return cli.Serve(ctx, logger, srv, 30*time.Second)
}
