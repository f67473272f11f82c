package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/caremon/pkg/types"
)

// Categories returns the document categories in display order.
func (s *Store) Categories(ctx context.Context) ([]string, error) {
	db, release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := db.QueryContext(ctx, "SELECT name FROM document_categories ORDER BY ordinal, name")
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// AddCategory appends a category after the existing ones.
func (s *Store) AddCategory(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.ErrInvalidCategory
	}
	db, release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	return withTx(ctx, db, func(tx *sql.Tx) error {
		exists, err := categoryExists(ctx, tx, name)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", types.ErrDuplicateCategory, name)
		}
		return insertCategory(ctx, tx, name)
	})
}

// RenameCategory renames a category and rewrites every document filed under
// it, in one transaction. It returns the number of documents updated.
func (s *Store) RenameCategory(ctx context.Context, from, to string) (int, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" || to == "" {
		return 0, types.ErrInvalidCategory
	}
	if from == to {
		return 0, nil
	}
	db, release, err := s.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	var moved int
	err = withTx(ctx, db, func(tx *sql.Tx) error {
		if ok, err := categoryExists(ctx, tx, from); err != nil {
			return err
		} else if !ok {
			return fmt.Errorf("%w: %s", types.ErrCategoryNotFound, from)
		}
		if ok, err := categoryExists(ctx, tx, to); err != nil {
			return err
		} else if ok {
			return fmt.Errorf("%w: %s", types.ErrDuplicateCategory, to)
		}
		if _, err := tx.ExecContext(ctx, "UPDATE document_categories SET name = ? WHERE name = ?", to, from); err != nil {
			return fmt.Errorf("%w: renaming category: %w", types.ErrTransactionFailure, err)
		}

		docs, err := documentsInCategory(ctx, tx, from)
		if err != nil {
			return err
		}
		recs := make([]types.Record, len(docs))
		for i, doc := range docs {
			doc.Category = to
			recs[i] = doc
		}
		moved = len(docs)
		return upsert(ctx, tx, types.KindDocuments, tableSpecs[types.KindDocuments], recs)
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("category renamed", zap.String("from", from), zap.String("to", to), zap.Int("documents", moved))
	return moved, nil
}

// DeleteCategory removes a category that no document references.
func (s *Store) DeleteCategory(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	db, release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	return withTx(ctx, db, func(tx *sql.Tx) error {
		if ok, err := categoryExists(ctx, tx, name); err != nil {
			return err
		} else if !ok {
			return fmt.Errorf("%w: %s", types.ErrCategoryNotFound, name)
		}
		var refs int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents WHERE category = ?", name).Scan(&refs); err != nil {
			return fmt.Errorf("counting documents in %s: %w", name, err)
		}
		if refs > 0 {
			return fmt.Errorf("%w: %s has %d documents", types.ErrCategoryInUse, name, refs)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM document_categories WHERE name = ?", name); err != nil {
			return fmt.Errorf("%w: deleting category: %w", types.ErrTransactionFailure, err)
		}
		return nil
	})
}

func categoryExists(ctx context.Context, tx *sql.Tx, name string) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, "SELECT 1 FROM document_categories WHERE name = ?", name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking category %s: %w", name, err)
	}
	return true, nil
}

func insertCategory(ctx context.Context, tx *sql.Tx, name string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO document_categories (name, ordinal, created_at)
         VALUES (?, (SELECT COALESCE(MAX(ordinal), -1) + 1 FROM document_categories), ?)`,
		name, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("%w: adding category %s: %w", types.ErrTransactionFailure, name, err)
	}
	return nil
}

// requireCategories fails with ErrCategoryNotFound if any document names an
// unregistered category.
func requireCategories(ctx context.Context, tx *sql.Tx, docs []types.Record) error {
	checked := map[string]bool{}
	for _, rec := range docs {
		name := categoryOf(rec)
		if checked[name] {
			continue
		}
		ok, err := categoryExists(ctx, tx, name)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s (document %s)", types.ErrCategoryNotFound, name, rec.Key())
		}
		checked[name] = true
	}
	return nil
}

// registerCategories adds any category referenced by docs that is not yet
// registered, returning the names added.
func registerCategories(ctx context.Context, tx *sql.Tx, docs []types.Record) ([]string, error) {
	var added []string
	seen := map[string]bool{}
	for _, rec := range docs {
		name := categoryOf(rec)
		if seen[name] {
			continue
		}
		seen[name] = true
		ok, err := categoryExists(ctx, tx, name)
		if err != nil {
			return nil, err
		}
		if ok {
			continue
		}
		if err := insertCategory(ctx, tx, name); err != nil {
			return nil, err
		}
		added = append(added, name)
	}
	return added, nil
}

func categoryOf(rec types.Record) string {
	return field(func(d types.Document) string { return d.Category })(rec)
}

func documentsInCategory(ctx context.Context, tx *sql.Tx, name string) ([]*types.Document, error) {
	rows, err := tx.QueryContext(ctx, "SELECT body FROM documents WHERE category = ?", name)
	if err != nil {
		return nil, fmt.Errorf("querying documents in %s: %w", name, err)
	}
	defer rows.Close()

	var docs []*types.Document
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		doc := &types.Document{}
		if err := json.Unmarshal([]byte(body), doc); err != nil {
			return nil, fmt.Errorf("decoding document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
