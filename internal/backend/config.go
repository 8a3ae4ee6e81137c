package backend

import (
	"fmt"
	"time"

	"expensetracker/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.SessionBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.SessionBackend)
	}

	return Config{
		Type:            backendType,
		TTL:             appConfig.SessionTTL,
		SQLiteDBPath:    appConfig.SQLiteDBPath,
		RedisAddress:    appConfig.RedisAddress,
		RedisPassword:   appConfig.RedisPassword,
		RedisDB:         appConfig.RedisDB,
		CleanupInterval: 5 * time.Minute,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.TTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case RedisBackend:
		if c.RedisAddress == "" {
			return fmt.Errorf("Redis address is required for redis backend")
		}
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, RedisBackend}
}
