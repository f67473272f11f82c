// Package fallback provides the key-value slot that holds the auto-backup and
// pre-reset snapshots. The slot lives outside the main database so that a
// broken database file does not take the backups with it.
package fallback

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/caremon/pkg/types"
)

// Fixed slot keys.
const (
	KeyAutoBackup  = "monitoring-auto-backup"
	KeyResetBackup = "monitoring-backup-before-reset"
	KeyClearBackup = "monitoring-backup-before-clear"
)

// Slot is a small key-value store for whole-snapshot payloads.
type Slot interface {
	// Get returns the value stored under key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Put replaces the value under key.
	Put(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open returns the slot selected by cfg.Fallback.Backend. dir is the resolved
// directory for the file backend.
func Open(ctx context.Context, cfg types.FallbackConfig, dir string, logger *zap.Logger) (Slot, error) {
	switch cfg.Backend {
	case "", types.FallbackFile:
		return NewFileSlot(dir)
	case types.FallbackRedis:
		return DialRedis(ctx, cfg.Redis, logger)
	default:
		return nil, fmt.Errorf("fallback backend %q: %w", cfg.Backend, types.ErrFallbackUnknown)
	}
}
