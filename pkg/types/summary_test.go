package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInventorySummary(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("derives remaining and rate", func(t *testing.T) {
		s := NewInventorySummary(2500, 625, now)
		assert.Equal(t, 1875, s.Remaining)
		assert.Equal(t, 25.0, s.DistributionRate)
		assert.Equal(t, SummaryKey, s.ID)
		assert.Equal(t, now, s.LastUpdated)
	})

	t.Run("zero stock yields zero rate", func(t *testing.T) {
		s := NewInventorySummary(0, 0, now)
		assert.Equal(t, 0.0, s.DistributionRate)
		assert.Equal(t, 0, s.Remaining)
	})

	t.Run("zero stock with distributions still yields zero rate", func(t *testing.T) {
		s := NewInventorySummary(0, 10, now)
		assert.Equal(t, 0.0, s.DistributionRate)
		assert.Equal(t, -10, s.Remaining)
	})
}

func TestSummarizeDistributions(t *testing.T) {
	dists := []InventoryDistribution{{Distributed: 100}, {Distributed: 25}, {Distributed: 500}}
	s := SummarizeDistributions(2500, dists, time.Now())
	assert.Equal(t, 625, s.TotalDistributed)
	assert.Equal(t, 1875, s.Remaining)
	assert.Equal(t, 25.0, s.DistributionRate)
}

func TestSummaryList_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"array with one element", `[{"totalStock":10}]`, 1},
		{"empty array", `[]`, 0},
		{"bare object from older exports", `{"totalStock":10}`, 1},
		{"null", `null`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var l SummaryList
			require.NoError(t, json.Unmarshal([]byte(tt.input), &l))
			assert.Len(t, l, tt.want)
		})
	}

	var l SummaryList
	assert.Error(t, json.Unmarshal([]byte(`"nope"`), &l))
}
