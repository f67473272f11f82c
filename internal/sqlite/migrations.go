package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/caremon/pkg/types"
)

// migration is one additive schema step. Applied migrations are never edited;
// schema changes append a new entry.
type migration struct {
	version int
	name    string
	up      func(ctx context.Context, tx *sql.Tx) error
}

var migrations = []migration{
	{1, "create record tables", createRecordTables},
	{2, "create document categories", createCategoryTable},
	{3, "rewrite index columns", rewriteIndexColumns},
}

// latestVersion is the schema version this build writes.
func latestVersion() int {
	return migrations[len(migrations)-1].version
}

func execAll(ctx context.Context, tx *sql.Tx, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func createRecordTables(ctx context.Context, tx *sql.Tx) error {
	if err := execAll(ctx, tx, recordTableDDL); err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}
	if err := execAll(ctx, tx, recordIndexDDL); err != nil {
		return fmt.Errorf("creating indexes: %w", err)
	}
	return nil
}

func createCategoryTable(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, createDocumentCategories); err != nil {
		return fmt.Errorf("creating document_categories: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	for i, name := range types.DefaultDocumentCategories {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO document_categories (name, ordinal, created_at) VALUES (?, ?, ?)",
			name, i, now,
		); err != nil {
			return fmt.Errorf("seeding category %s: %w", name, err)
		}
	}
	return nil
}

// rewriteIndexColumns recomputes every extracted column from the stored
// body. Version 2 databases hold date columns in a variable-width layout.
func rewriteIndexColumns(ctx context.Context, tx *sql.Tx) error {
	for kind, spec := range tableSpecs {
		if len(spec.indexes) == 0 {
			continue
		}
		rows, err := tx.QueryContext(ctx, "SELECT body FROM "+spec.table)
		if err != nil {
			return fmt.Errorf("reading %s: %w", spec.table, err)
		}
		var recs []types.Record
		for rows.Next() {
			var body string
			if err := rows.Scan(&body); err != nil {
				rows.Close()
				return fmt.Errorf("reading %s: %w", spec.table, err)
			}
			rec, err := types.DecodeRecord(kind, []byte(body))
			if err != nil {
				rows.Close()
				return fmt.Errorf("decoding %s row: %w", spec.table, err)
			}
			recs = append(recs, rec)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("reading %s: %w", spec.table, err)
		}

		sets := make([]string, len(spec.indexes))
		for i, idx := range spec.indexes {
			sets[i] = idx.column + " = ?"
		}
		stmt := "UPDATE " + spec.table + " SET " + strings.Join(sets, ", ") + " WHERE id = ?"
		for _, rec := range recs {
			args := make([]any, 0, len(spec.indexes)+1)
			for _, idx := range spec.indexes {
				args = append(args, idx.value(rec))
			}
			if _, err := tx.ExecContext(ctx, stmt, append(args, rec.Key())...); err != nil {
				return fmt.Errorf("updating %s %s: %w", spec.table, rec.Key(), err)
			}
		}
	}
	return nil
}

// schemaVersion returns the highest applied migration, or 0 for a new database.
func schemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	if _, err := db.ExecContext(ctx, createSchemaVersion); err != nil {
		return 0, fmt.Errorf("creating schema_version: %w", err)
	}
	var v int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

// migrate applies every pending migration, each in its own transaction.
// A database written by a newer build is rejected with ErrSchemaTooNew.
func migrate(ctx context.Context, db *sql.DB) (applied int, err error) {
	current, err := schemaVersion(ctx, db)
	if err != nil {
		return 0, err
	}
	if current > latestVersion() {
		return 0, fmt.Errorf("%w: database at version %d, build supports %d",
			types.ErrSchemaTooNew, current, latestVersion())
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := applyMigration(ctx, db, m); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}

func applyMigration(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning migration %d: %w", m.version, err)
	}
	defer tx.Rollback()

	if err := m.up(ctx, tx); err != nil {
		return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_version (version, name, applied_at) VALUES (?, ?, ?)",
		m.version, m.name, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("recording migration %d: %w", m.version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration %d: %w", m.version, err)
	}
	return nil
}
