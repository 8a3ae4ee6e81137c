package backend

import (
	"context"
	"fmt"

	"expensetracker/internal/log"
	"expensetracker/internal/session/memory"
	"expensetracker/internal/session/redis"
	"expensetracker/internal/session/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentStorage)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case MemoryBackend:
		return f.createMemoryBackend(config), nil
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case RedisBackend:
		return f.createRedisBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createMemoryBackend(config Config) *BackendResult {
	b := memory.New(config.MaxEntries, config.TTL)
	if config.CleanupInterval > 0 {
		b.StartCleanup(config.CleanupInterval)
	}

	f.logger.Info("Initialized memory session backend", log.FieldBackend, MemoryBackend)

	return &BackendResult{
		Type:    MemoryBackend,
		Backend: b,
		Ping:    func(context.Context) error { return nil },
		Cleanup: b.Close,
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	b, err := sqlite.Open(config.SQLiteDBPath, config.TTL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite session backend: %w", err)
	}

	if n, err := b.PurgeExpired(context.Background()); err != nil {
		f.logger.Warn("Failed to purge expired sessions", log.FieldError, err)
	} else if n > 0 {
		f.logger.Info("Purged expired sessions", log.FieldCount, n)
	}

	f.logger.Info("Initialized SQLite session backend",
		log.FieldBackend, SQLiteBackend,
		"db_path", config.SQLiteDBPath)

	return &BackendResult{
		Type:    SQLiteBackend,
		Backend: b,
		Ping:    b.Ping,
		Cleanup: b.Close,
	}, nil
}

func (f *DefaultFactory) createRedisBackend(ctx context.Context, config Config) (*BackendResult, error) {
	b, err := redis.New(ctx, redis.Options{
		Address:  config.RedisAddress,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
		TTL:      config.TTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Redis session backend: %w", err)
	}

	f.logger.Info("Initialized Redis session backend",
		log.FieldBackend, RedisBackend,
		"address", config.RedisAddress)

	return &BackendResult{
		Type:    RedisBackend,
		Backend: b,
		Ping:    b.Ping,
		Cleanup: b.Close,
	}, nil
}
