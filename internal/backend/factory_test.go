package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/config"
	"expensetracker/internal/session"
)

func TestBackendTypeIsValid(t *testing.T) {
	for _, bt := range GetBackendTypes() {
		assert.True(t, bt.IsValid(), bt)
	}
	assert.False(t, BackendType("sheets").IsValid())
}

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	_, err = FromAppConfig(&config.Config{SessionBackend: "nope"})
	assert.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{SessionBackend: "sqlite", SQLiteDBPath: "x.db", SessionTTL: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, cfg.Type)
	assert.Equal(t, "x.db", cfg.SQLiteDBPath)
	assert.Equal(t, time.Hour, cfg.TTL)
}

func TestConfigValidate(t *testing.T) {
	assert.Error(t, Config{Type: MemoryBackend}.Validate())
	assert.Error(t, Config{Type: SQLiteBackend, TTL: time.Hour}.Validate())
	assert.Error(t, Config{Type: RedisBackend, TTL: time.Hour}.Validate())
	assert.NoError(t, Config{Type: MemoryBackend, TTL: time.Hour}.Validate())
}

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	cases := []Config{
		{Type: MemoryBackend, TTL: time.Hour, CleanupInterval: time.Minute},
		{Type: SQLiteBackend, TTL: time.Hour, SQLiteDBPath: filepath.Join(t.TempDir(), "s.db")},
	}
	for _, cfg := range cases {
		t.Run(cfg.Type.String(), func(t *testing.T) {
			res, err := f.CreateBackend(ctx, cfg)
			require.NoError(t, err)
			defer res.Cleanup()

			assert.Equal(t, cfg.Type, res.Type)
			require.NoError(t, res.Ping(ctx))

			store := session.NewStore(res.Backend, "t")
			require.NoError(t, store.Save(ctx, session.Session{Username: "ada", AccessToken: "tok"}))
			got, ok := store.Load(ctx)
			require.True(t, ok)
			assert.Equal(t, "ada", got.Username)
		})
	}
}
