// Package backend builds the session backend selected by configuration.
package backend

import (
	"context"
	"time"

	"expensetracker/internal/session"
)

// CleanupFunc releases the resources of a backend.
type CleanupFunc func() error

// BackendResult contains the backend instance, a readiness probe and an
// optional cleanup function.
type BackendResult struct {
	Type    BackendType
	Backend session.Backend
	Ping    func(ctx context.Context) error
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType
	TTL  time.Duration

	// SQLite specific
	SQLiteDBPath string

	// Redis specific
	RedisAddress  string
	RedisPassword string
	RedisDB       int

	// Memory specific
	MaxEntries      int
	CleanupInterval time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	RedisBackend  BackendType = "redis"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, RedisBackend:
		return true
	default:
		return false
	}
}
