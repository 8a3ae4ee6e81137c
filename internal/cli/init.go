// Package cli provides common initialization for the expense-web and
// activity-worker binaries.
package cli

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"expensetracker/internal/config"
	"expensetracker/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from cfg and makes it the default.
// A bad log setting falls back to text on stdout so the failure is visible.
func SetupLogger(cfg *config.Config, component string) (*log.Logger, io.Closer) {
	logger, closer, err := log.NewFromOptions(log.Options{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		File:      cfg.LogFile,
		Component: component,
	})
	if err != nil {
		logger, closer, _ = log.NewFromOptions(log.Options{Component: component})
		logger.Warn("Invalid logging configuration, using defaults", log.FieldError, err.Error())
	}
	log.SetDefault(logger)
	return logger, closer
}

// LoadAndValidateConfig runs cfg.Validate and any extra checks, exiting the
// process on the first failure.
func LoadAndValidateConfig(logger *log.Logger, cfg *config.Config, checks ...func(*config.Config) error) *config.Config {
	checks = append([]func(*config.Config) error{(*config.Config).Validate}, checks...)
	for _, check := range checks {
		if err := check(cfg); err != nil {
			logger.Error("Configuration validation failed",
				log.FieldError, err.Error(),
				log.FieldErrorType, log.ErrorTypeConfiguration)
			os.Exit(1)
		}
	}
	return cfg
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// Server is the part of *http.Server that Serve drives.
type Server interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// Serve runs srv until ctx ends, then shuts it down within timeout.
func Serve(ctx context.Context, logger *log.Logger, srv Server, timeout time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
