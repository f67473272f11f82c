package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// NewInventorySummary derives the summary for the given stock and
// distributed totals: remaining = stock - distributed and
// rate = distributed / stock * 100, or 0 when stock is 0.
func NewInventorySummary(totalStock, totalDistributed int, now time.Time) InventorySummary {
	rate := 0.0
	if totalStock != 0 {
		rate = float64(totalDistributed) / float64(totalStock) * 100
	}
	return InventorySummary{
		ID:               SummaryKey,
		TotalStock:       totalStock,
		TotalDistributed: totalDistributed,
		Remaining:        totalStock - totalDistributed,
		DistributionRate: rate,
		LastUpdated:      now,
	}
}

// SummarizeDistributions totals the distributed quantity of every
// distribution and derives the summary against totalStock.
func SummarizeDistributions(totalStock int, distributions []InventoryDistribution, now time.Time) InventorySummary {
	total := 0
	for _, d := range distributions {
		total += d.Distributed
	}
	return NewInventorySummary(totalStock, total, now)
}

// SummaryList is the snapshot form of the singleton summary: zero or one
// element. Older exports wrote the summary as a bare object or null, so
// decoding accepts those too.
type SummaryList []InventorySummary

func (l *SummaryList) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = SummaryList{}
		return nil
	}
	var many []InventorySummary
	if err := json.Unmarshal(data, &many); err == nil {
		*l = SummaryList(many)
		return nil
	}
	var one InventorySummary
	if err := json.Unmarshal(data, &one); err != nil {
		return fmt.Errorf("decoding inventory summary: %w", err)
	}
	*l = SummaryList{one}
	return nil
}
