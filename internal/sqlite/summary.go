package sqlite

import (
	"context"
	"errors"

	"github.com/mesh-intelligence/caremon/pkg/types"
)

// GetSummary returns the inventory summary, or nil when none was written.
func (s *Store) GetSummary(ctx context.Context) (*types.InventorySummary, error) {
	rec, err := s.Get(ctx, types.KindInventorySummary, types.SummaryKey)
	if errors.Is(err, types.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec.(*types.InventorySummary), nil
}

// PutSummary replaces the inventory summary. The record is always stored
// under the singleton key whatever ID it carries.
func (s *Store) PutSummary(ctx context.Context, summary types.InventorySummary) (*types.InventorySummary, error) {
	rec, err := s.Put(ctx, types.KindInventorySummary, summary)
	if err != nil {
		return nil, err
	}
	return rec.(*types.InventorySummary), nil
}
