// Package backup moves whole-database snapshots between the local database
// and the outside world: JSON backup files, CSV exports, the auto-backup
// fallback slot, and portable compressed text.
package backup

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/caremon/internal/fallback"
	"github.com/mesh-intelligence/caremon/internal/logging"
	"github.com/mesh-intelligence/caremon/pkg/types"
)

// DefaultBackupName is the file name prefix used when none is given.
const DefaultBackupName = "monitoring-backup"

// SnapshotProvider returns the current contents of the database.
// *sqlite.Store satisfies it.
type SnapshotProvider interface {
	ExportAll(ctx context.Context) (*types.Snapshot, error)
}

// SnapshotProviderFunc adapts a function to SnapshotProvider.
type SnapshotProviderFunc func(ctx context.Context) (*types.Snapshot, error)

func (f SnapshotProviderFunc) ExportAll(ctx context.Context) (*types.Snapshot, error) {
	return f(ctx)
}

var errNilSnapshot = errors.New("snapshot is nil")

// Manager writes exports into one directory and auto-backups into a slot.
type Manager struct {
	dir        string
	slot       fallback.Slot
	logger     *zap.Logger
	now        func() time.Time
	usagePaths []string
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces the wall clock used for file names and timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithUsagePaths sets the directories whose size GetStorageUsage reports.
// The export directory is used when none are given.
func WithUsagePaths(paths ...string) Option {
	return func(m *Manager) { m.usagePaths = paths }
}

// New returns a manager exporting into dir. slot may be nil, in which case
// auto-backup and restore-from-auto-backup are unavailable.
func New(dir string, slot fallback.Slot, logger *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		dir:    dir,
		slot:   slot,
		logger: logging.OrNop(logger).Named("backup"),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	if len(m.usagePaths) == 0 {
		m.usagePaths = []string{dir}
	}
	return m
}

// Dir returns the export directory.
func (m *Manager) Dir() string { return m.dir }
