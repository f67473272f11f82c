package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/caremon/internal/fallback"
	"github.com/mesh-intelligence/caremon/pkg/types"
)

var errNoSlot = errors.New("no fallback slot configured")

// AutoBackup is the payload stored under fallback.KeyAutoBackup: the snapshot
// fields plus the time the backup was taken.
type AutoBackup struct {
	types.Snapshot
	BackedUpAt time.Time `json:"backedUpAt"`
}

// BackupNow pulls a fresh snapshot from provider and stores it in the
// auto-backup slot.
func (m *Manager) BackupNow(ctx context.Context, provider SnapshotProvider) error {
	if m.slot == nil {
		return errNoSlot
	}
	snap, err := provider.ExportAll(ctx)
	if err != nil {
		return fmt.Errorf("taking snapshot: %w", err)
	}
	if snap == nil {
		return errNilSnapshot
	}
	payload := AutoBackup{Snapshot: *snap, BackedUpAt: m.now()}
	if payload.Version == "" {
		payload.Version = types.SnapshotFormatVersion
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding auto-backup: %w", err)
	}
	if err := m.slot.Put(ctx, fallback.KeyAutoBackup, data); err != nil {
		return fmt.Errorf("writing auto-backup: %w", err)
	}
	m.logger.Debug("auto-backup stored", zap.Any("counts", snap.Counts()))
	return nil
}

// EnableAutoBackup stores a fresh snapshot every interval until the returned
// cancel func is called or ctx ends. Each tick asks provider for current
// data. A tick in progress always finishes its write; cancel waits for it.
// Cancel may be called more than once.
func (m *Manager) EnableAutoBackup(ctx context.Context, provider SnapshotProvider, interval time.Duration) (cancel func(), err error) {
	if interval <= 0 {
		return nil, types.ErrIntervalInvalid
	}
	if m.slot == nil {
		return nil, errNoSlot
	}
	loopCtx, stop := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				if err := m.BackupNow(context.WithoutCancel(loopCtx), provider); err != nil {
					m.logger.Warn("auto-backup tick failed", zap.Error(err))
				}
			}
		}
	}()
	m.logger.Info("auto-backup enabled", zap.Duration("interval", interval))

	var once sync.Once
	return func() {
		once.Do(func() {
			stop()
			<-done
			m.logger.Info("auto-backup disabled")
		})
	}, nil
}

// RestoreFromAutoBackup returns the snapshot in the auto-backup slot, or nil
// when the slot is empty, unreadable or holds something unparsable.
func (m *Manager) RestoreFromAutoBackup(ctx context.Context) *types.Snapshot {
	backup := m.LatestAutoBackup(ctx)
	if backup == nil {
		return nil
	}
	return &backup.Snapshot
}

// LatestAutoBackup is RestoreFromAutoBackup with the backup time included.
func (m *Manager) LatestAutoBackup(ctx context.Context) *AutoBackup {
	if m.slot == nil {
		return nil
	}
	data, ok, err := m.slot.Get(ctx, fallback.KeyAutoBackup)
	if err != nil {
		m.logger.Warn("reading auto-backup", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	var backup AutoBackup
	if err := json.Unmarshal(data, &backup); err != nil {
		m.logger.Warn("auto-backup unparsable", zap.Error(err))
		return nil
	}
	return &backup
}
