// Package storage is the client-local key/value snapshot store. The cart and
// session persist small JSON blobs under well-known keys and read them back
// on startup; nothing here is shared across devices.
package storage

import (
	"fmt"

	"hireshop/internal/config"
)

// Store is a small key/value surface over one of the snapshot backends.
// Get returns domain.ErrNotFound (wrapped) when the key is absent.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// Open builds the backend selected by configuration.
func Open(cfg config.Config) (Store, error) {
	switch cfg.StateBackend {
	case "file", "":
		return NewFile(cfg.StatePath)
	case "redis":
		return NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisKeyPrefix)
	case "memory":
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown state backend %q", cfg.StateBackend)
}
