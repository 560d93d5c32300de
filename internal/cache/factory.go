package cache

import (
	"fmt"

	"finledger/internal/config"
	"finledger/internal/log"
)

// CleanupFunc releases resources held by a cache backend.
type CleanupFunc func() error

// New selects the cache backend from configuration: an in-process LRU for
// local runs and tests, or a hosted Redis instance. Both satisfy Store, so
// call sites never branch on the backend.
func New(cfg *config.Config, logger *log.Logger) (Store, CleanupFunc, error) {
	switch cfg.CacheBackend {
	case "memory":
		store := NewMemoryStore(1024)
		manager := NewManager()
		manager.Register(store)
		manager.StartCleanup(cfg.AnalyticsTTL)
		logger.Info("Initialized memory cache backend")
		return store, func() error { manager.Stop(); return nil }, nil

	case "redis":
		store := NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, logger)
		logger.Info("Initialized redis cache backend", "addr", cfg.RedisAddr)
		return store, store.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported cache backend: %s", cfg.CacheBackend)
	}
}
