package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/caremon/internal/fallback"
	"github.com/mesh-intelligence/caremon/pkg/types"
)

// ResetBackup is the payload stored under fallback.KeyResetBackup before the
// database is destroyed, and under fallback.KeyClearBackup before it is
// cleared.
type ResetBackup struct {
	Data      *types.Snapshot `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// ExportAll returns every record of every kind. All tables are read inside
// one transaction, so the snapshot reflects a single point in time.
func (s *Store) ExportAll(ctx context.Context) (*types.Snapshot, error) {
	db, release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return s.exportSnapshot(ctx, db)
}

func (s *Store) exportSnapshot(ctx context.Context, db *sql.DB) (*types.Snapshot, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning export: %w", err)
	}
	defer tx.Rollback()

	snap := types.NewSnapshot()
	for _, kind := range types.AllKinds {
		rows, err := tx.QueryContext(ctx, "SELECT body FROM "+tableSpecs[kind].table+" ORDER BY id")
		if err != nil {
			return nil, fmt.Errorf("exporting %s: %w", kind, err)
		}
		recs, err := scanRecords(kind, rows)
		if err != nil {
			return nil, err
		}
		if err := snap.SetRecords(kind, recs); err != nil {
			return nil, err
		}
	}
	snap.ExportedAt = s.validator.Now().UTC().Format(time.RFC3339)
	return snap, nil
}

// ImportAll upserts every record of every kind present in snap, in one
// transaction across all tables. Kinds absent from snap are untouched and
// nothing is deleted. Every record is validated before the transaction opens;
// one invalid record rejects the whole import. Document categories the
// database does not know are registered. The result counts records written
// per kind.
func (s *Store) ImportAll(ctx context.Context, snap *types.Snapshot) (map[types.Kind]int, error) {
	counts := map[types.Kind]int{}
	if snap == nil {
		return counts, nil
	}

	batches := map[types.Kind][]types.Record{}
	for _, kind := range types.AllKinds {
		recs, ok := snap.Records(kind)
		if !ok {
			continue
		}
		valid, err := s.validateAll(kind, recs)
		if err != nil {
			return nil, err
		}
		batches[kind] = valid
	}
	if len(batches) == 0 {
		return counts, nil
	}

	db, release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	var added []string
	err = withTx(ctx, db, func(tx *sql.Tx) error {
		if docs := batches[types.KindDocuments]; len(docs) > 0 {
			var regErr error
			if added, regErr = registerCategories(ctx, tx, docs); regErr != nil {
				return regErr
			}
		}
		for _, kind := range types.AllKinds {
			recs, ok := batches[kind]
			if !ok {
				continue
			}
			if err := upsert(ctx, tx, kind, tableSpecs[kind], recs); err != nil {
				return err
			}
			counts[kind] = len(recs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(added) > 0 {
		s.logger.Info("registered categories from import", zap.Strings("categories", added))
	}
	s.logger.Info("snapshot imported", zap.Any("counts", counts))
	return counts, nil
}

// ClearAll deletes every record of every kind in one transaction. The current
// contents are first copied under the clear key, leaving any reset backup in
// place; document categories are kept.
func (s *Store) ClearAll(ctx context.Context) error {
	db, release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if snap, err := s.exportSnapshot(ctx, db); err != nil {
		s.logger.Warn("snapshot before clear failed", zap.Error(err))
	} else {
		s.saveBackup(ctx, fallback.KeyClearBackup, snap)
	}

	return withTx(ctx, db, func(tx *sql.Tx) error {
		for _, kind := range types.AllKinds {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+tableSpecs[kind].table); err != nil {
				return fmt.Errorf("%w: clearing %s: %w", types.ErrTransactionFailure, kind, err)
			}
		}
		return nil
	})
}

// ResetDatabase copies the current contents to the reset slot, closes the
// connection and removes the database files. The next operation rebuilds an
// empty database. A failed snapshot is logged and does not stop the reset.
func (s *Store) ResetDatabase(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var snap *types.Snapshot
	if s.state == StateReady {
		var err error
		if snap, err = s.exportSnapshot(ctx, s.db); err != nil {
			s.logger.Warn("snapshot before reset failed", zap.Error(err))
		}
	} else {
		snap = s.salvage(ctx)
	}
	s.saveBackup(ctx, fallback.KeyResetBackup, snap)

	if err := s.closeLocked(); err != nil {
		s.logger.Warn("closing database for reset", zap.Error(err))
	}
	s.removeFiles()
	s.logger.Info("database reset", zap.String("path", s.Path()))
	return nil
}

// RestoreFromResetBackup imports the snapshot saved by the last reset. It
// reports whether a backup was found and applied.
func (s *Store) RestoreFromResetBackup(ctx context.Context) (bool, error) {
	return s.restoreFrom(ctx, fallback.KeyResetBackup)
}

// RestoreFromClearBackup imports the snapshot saved by the last ClearAll.
func (s *Store) RestoreFromClearBackup(ctx context.Context) (bool, error) {
	return s.restoreFrom(ctx, fallback.KeyClearBackup)
}

func (s *Store) restoreFrom(ctx context.Context, key string) (bool, error) {
	if s.slot == nil {
		return false, nil
	}
	data, ok, err := s.slot.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	var payload ResetBackup
	if err := json.Unmarshal(data, &payload); err != nil {
		return false, fmt.Errorf("%w: %s: %w", types.ErrImportParse, key, err)
	}
	if payload.Data == nil {
		return false, nil
	}
	if _, err := s.ImportAll(ctx, payload.Data); err != nil {
		return false, err
	}
	return true, nil
}

// salvage reads whatever tables of the existing database file are still
// readable. It returns nil when nothing could be read.
func (s *Store) salvage(ctx context.Context) *types.Snapshot {
	if _, err := os.Stat(s.Path()); err != nil {
		return nil
	}
	db, err := sql.Open("sqlite", s.Path()+readOnlyPragmas)
	if err != nil {
		s.logger.Warn("salvage open failed", zap.Error(err))
		return nil
	}
	defer db.Close()

	snap := &types.Snapshot{Version: types.SnapshotFormatVersion}
	for _, kind := range types.AllKinds {
		rows, err := db.QueryContext(ctx, "SELECT body FROM "+tableSpecs[kind].table)
		if err != nil {
			s.logger.Warn("salvage skipped table", zap.String("kind", string(kind)), zap.Error(err))
			continue
		}
		recs, err := scanRecords(kind, rows)
		if err != nil {
			s.logger.Warn("salvage skipped table", zap.String("kind", string(kind)), zap.Error(err))
			continue
		}
		_ = snap.SetRecords(kind, recs)
	}
	if snap.Empty() {
		return nil
	}
	snap.ExportedAt = s.validator.Now().UTC().Format(time.RFC3339)
	return snap
}

// saveBackup writes snap to the slot under key. Failures are logged only.
func (s *Store) saveBackup(ctx context.Context, key string, snap *types.Snapshot) {
	if snap == nil || snap.Empty() {
		return
	}
	if s.slot == nil {
		s.logger.Warn("no fallback slot configured, backup skipped", zap.String("key", key))
		return
	}
	data, err := json.Marshal(ResetBackup{Data: snap, Timestamp: s.validator.Now().UTC()})
	if err != nil {
		s.logger.Error("encoding backup", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.slot.Put(ctx, key, data); err != nil {
		s.logger.Error("writing backup", zap.String("key", key), zap.Error(err))
		return
	}
	s.logger.Info("backup saved", zap.String("key", key), zap.Any("counts", snap.Counts()))
}
