package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/caremon/pkg/types"
)

// Put validates rec and upserts it by key. It returns the normalized record
// as stored, including any generated key.
func (s *Store) Put(ctx context.Context, kind types.Kind, rec types.Record) (types.Record, error) {
	out, err := s.PutMany(ctx, kind, []types.Record{rec})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// PutMany validates every record before writing any, then upserts them all in
// one transaction. Either every record is stored or none is.
func (s *Store) PutMany(ctx context.Context, kind types.Kind, recs []types.Record) ([]types.Record, error) {
	spec, err := specFor(kind)
	if err != nil {
		return nil, err
	}
	valid, err := s.validateAll(kind, recs)
	if err != nil {
		return nil, err
	}
	if len(valid) == 0 {
		return valid, nil
	}

	db, release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	err = withTx(ctx, db, func(tx *sql.Tx) error {
		if kind == types.KindDocuments {
			if err := requireCategories(ctx, tx, valid); err != nil {
				return err
			}
		}
		return upsert(ctx, tx, kind, spec, valid)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("records stored", zap.String("kind", string(kind)), zap.Int("count", len(valid)))
	return valid, nil
}

func (s *Store) validateAll(kind types.Kind, recs []types.Record) ([]types.Record, error) {
	valid := make([]types.Record, len(recs))
	for i, rec := range recs {
		out, err := s.validator.Validate(kind, rec)
		if err != nil {
			if len(recs) == 1 {
				return nil, err
			}
			return nil, fmt.Errorf("%s record %d: %w", kind, i, err)
		}
		valid[i] = out
	}
	return valid, nil
}

// withTx runs fn in a transaction. Errors opening or committing the
// transaction are reported as ErrTransactionFailure; fn's errors are
// returned unchanged after rollback.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", types.ErrTransactionFailure, err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %w", types.ErrTransactionFailure, err)
	}
	return nil
}

// upsert writes validated records of one kind inside tx.
func upsert(ctx context.Context, tx *sql.Tx, kind types.Kind, spec tableSpec, recs []types.Record) error {
	query := spec.upsertSQL()
	for _, rec := range recs {
		body, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encoding %s %s: %w", kind, rec.Key(), err)
		}
		if _, err := tx.ExecContext(ctx, query, spec.args(rec, body)...); err != nil {
			return fmt.Errorf("%w: writing %s %s: %w", types.ErrTransactionFailure, kind, rec.Key(), err)
		}
	}
	return nil
}

// Get returns the record of kind stored under key, or ErrNotFound.
func (s *Store) Get(ctx context.Context, kind types.Kind, key string) (types.Record, error) {
	spec, err := specFor(kind)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(key) == "" {
		return nil, types.ErrInvalidKey
	}
	db, release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	var body string
	err = db.QueryRowContext(ctx, "SELECT body FROM "+spec.table+" WHERE id = ?", key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %s: %w", kind, key, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s %s: %w", kind, key, err)
	}
	return types.DecodeRecord(kind, []byte(body))
}

// GetAll returns every record of kind. The result is empty, never nil, when
// the table is empty.
func (s *Store) GetAll(ctx context.Context, kind types.Kind) ([]types.Record, error) {
	spec, err := specFor(kind)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, kind, "SELECT body FROM "+spec.table+" ORDER BY id")
}

// GetByIndex returns the records of kind whose index value equals value.
// Date indexes also accept a calendar day (YYYY-MM-DD).
func (s *Store) GetByIndex(ctx context.Context, kind types.Kind, indexName, value string) ([]types.Record, error) {
	spec, err := specFor(kind)
	if err != nil {
		return nil, err
	}
	idx, err := spec.lookup(indexName)
	if err != nil {
		return nil, err
	}
	where, args := idx.where(value)
	return s.query(ctx, kind, "SELECT body FROM "+spec.table+" WHERE "+where+" ORDER BY "+idx.column+", id", args...)
}

func (s *Store) query(ctx context.Context, kind types.Kind, query string, args ...any) ([]types.Record, error) {
	db, release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", kind, err)
	}
	return scanRecords(kind, rows)
}

// scanRecords decodes the body column of every row and closes rows.
func scanRecords(kind types.Kind, rows *sql.Rows) ([]types.Record, error) {
	defer rows.Close()

	recs := []types.Record{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", kind, err)
		}
		rec, err := types.DecodeRecord(kind, []byte(body))
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", kind, err)
	}
	return recs, nil
}

// Count returns the number of records of kind.
func (s *Store) Count(ctx context.Context, kind types.Kind) (int, error) {
	spec, err := specFor(kind)
	if err != nil {
		return 0, err
	}
	db, release, err := s.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+spec.table).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", kind, err)
	}
	return n, nil
}

// Delete removes the record of kind stored under key. Deleting an absent key
// succeeds. The inventory summary cannot be deleted, only overwritten.
func (s *Store) Delete(ctx context.Context, kind types.Kind, key string) error {
	spec, err := specFor(kind)
	if err != nil {
		return err
	}
	if kind == types.KindInventorySummary {
		return fmt.Errorf("%w: the inventory summary is only overwritten", types.ErrInvalidKey)
	}
	if strings.TrimSpace(key) == "" {
		return types.ErrInvalidKey
	}
	db, release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if _, err := db.ExecContext(ctx, "DELETE FROM "+spec.table+" WHERE id = ?", key); err != nil {
		return fmt.Errorf("deleting %s %s: %w", kind, key, err)
	}
	return nil
}
