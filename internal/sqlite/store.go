package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/caremon/internal/fallback"
	"github.com/mesh-intelligence/caremon/internal/logging"
	"github.com/mesh-intelligence/caremon/pkg/types"
)

// State is the lifecycle position of a Store.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Store owns the local database. Every operation initializes the store on
// first use; after a failed initialization operations return
// ErrNotInitialized until Initialize is called again.
type Store struct {
	mu    sync.RWMutex
	state State
	db    *sql.DB

	config    types.Config
	slot      fallback.Slot
	validator *types.Validator
	logger    *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithValidator replaces the default record validator.
func WithValidator(v *types.Validator) Option {
	return func(s *Store) { s.validator = v }
}

// New returns an uninitialized store for cfg. slot receives the pre-reset
// snapshot; a nil slot disables it.
func New(cfg types.Config, slot fallback.Slot, logger *zap.Logger, opts ...Option) *Store {
	s := &Store{
		config:    cfg,
		slot:      slot,
		validator: types.NewValidator(),
		logger:    logging.OrNop(logger).Named("store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the database file path.
func (s *Store) Path() string {
	return filepath.Join(s.config.DataDir, s.config.GetDatabaseName()+".db")
}

// State returns the current lifecycle state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Initialize opens the database and applies pending migrations. It is
// idempotent. If opening fails for any reason other than a newer schema, the
// readable tables are salvaged into the reset slot, the database files are
// removed and opening is retried once.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initializeLocked(ctx)
}

func (s *Store) initializeLocked(ctx context.Context) error {
	if s.state == StateReady {
		return nil
	}
	s.state = StateInitializing

	if err := s.config.Validate(); err != nil {
		s.state = StateFailed
		return fmt.Errorf("%w: %w", types.ErrInitialization, err)
	}

	db, err := s.open(ctx)
	if errors.Is(err, types.ErrSchemaTooNew) {
		s.state = StateFailed
		return fmt.Errorf("%w: %w", types.ErrInitialization, err)
	}
	if err != nil && ctx.Err() != nil {
		s.state = StateUninitialized
		return fmt.Errorf("%w: %w", types.ErrInitialization, ctx.Err())
	}
	if err != nil {
		s.logger.Warn("opening database failed, resetting", zap.String("path", s.Path()), zap.Error(err))
		s.saveBackup(ctx, fallback.KeyResetBackup, s.salvage(ctx))
		s.removeFiles()

		db, err = s.open(ctx)
		if err != nil {
			s.state = StateFailed
			s.logger.Error("database unusable after reset", zap.String("path", s.Path()), zap.Error(err))
			return fmt.Errorf("%w: %w", types.ErrInitialization, err)
		}
	}

	s.db = db
	s.state = StateReady
	return nil
}

// Connection pragmas applied by modernc.org/sqlite on every new connection.
const (
	readWritePragmas = "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	readOnlyPragmas  = "?_pragma=query_only(1)&_pragma=busy_timeout(5000)"
)

func (s *Store) open(ctx context.Context) (*sql.DB, error) {
	if err := os.MkdirAll(s.config.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	db, err := sql.Open("sqlite", s.Path()+readWritePragmas)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", s.Path(), err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to %s: %w", s.Path(), err)
	}
	applied, err := migrate(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	if applied > 0 {
		s.logger.Info("database migrated",
			zap.String("path", s.Path()),
			zap.Int("applied", applied),
			zap.Int("version", latestVersion()),
		)
	}
	return db, nil
}

// removeFiles deletes the database file and its WAL side files.
func (s *Store) removeFiles() {
	for _, suffix := range []string{"", "-wal", "-shm", "-journal"} {
		p := s.Path() + suffix
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("removing database file", zap.String("path", p), zap.Error(err))
		}
	}
}

// acquire returns the open database, initializing the store if needed. The
// returned release func must be called when the caller is done with db.
func (s *Store) acquire(ctx context.Context) (*sql.DB, func(), error) {
	for {
		s.mu.RLock()
		switch s.state {
		case StateReady:
			return s.db, s.mu.RUnlock, nil
		case StateFailed:
			s.mu.RUnlock()
			return nil, nil, types.ErrNotInitialized
		}
		s.mu.RUnlock()

		if err := s.Initialize(ctx); err != nil {
			return nil, nil, err
		}
	}
}

// Close releases the connection. The store returns to uninitialized and
// reopens on next use. Close is idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *Store) closeLocked() error {
	if s.db == nil {
		s.state = StateUninitialized
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.state = StateUninitialized
	return err
}
