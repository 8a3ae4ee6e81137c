package cli

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/config"
	"expensetracker/internal/log"
)

func TestSetupLoggerFallsBackOnBadFormat(t *testing.T) {
	cfg := &config.Config{LogLevel: "info", LogFormat: "yaml"}
	logger, closer := SetupLogger(cfg, "test")
	require.NotNil(t, logger)
	assert.Equal(t, "test", logger.Component())
	assert.NoError(t, closer.Close())
}

func TestSetupLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	cfg := &config.Config{LogLevel: "debug", LogFormat: "json", LogFile: path}
	logger, closer := SetupLogger(cfg, "test")
	logger.Info("hello")
	assert.NoError(t, closer.Close())
	assert.FileExists(t, path)
}

func TestServeStopsOnCancel(t *testing.T) {
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Serve(ctx, log.Discard(), srv, time.Second) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

type failingServer struct{ shutdown bool }

func (f *failingServer) ListenAndServe() error { return errors.New("address in use") }
func (f *failingServer) Shutdown(context.Context) error {
	f.shutdown = true
	return nil
}

func TestServeReportsListenError(t *testing.T) {
	srv := &failingServer{}
	err := Serve(context.Background(), log.Discard(), srv, time.Second)
	assert.EqualError(t, err, "address in use")
	assert.True(t, srv.shutdown)
}
