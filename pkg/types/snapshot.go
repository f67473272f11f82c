package types

import "fmt"

// SnapshotFormatVersion is written into every exported snapshot.
const SnapshotFormatVersion = "1.0.0"

// Snapshot is a point-in-time copy of every entity table. A nil section
// means the kind is absent: importing the snapshot leaves that table alone.
type Snapshot struct {
	OfficialSurveys        *[]OfficialSurvey        `json:"officialSurveys,omitempty"`
	ElderlySurveys         *[]ElderlySurvey         `json:"elderlySurveys,omitempty"`
	InventoryDistributions *[]InventoryDistribution `json:"inventoryDistributions,omitempty"`
	InventorySummary       *SummaryList             `json:"inventorySummary,omitempty"`
	Organizations          *[]Organization          `json:"organizations,omitempty"`
	Documents              *[]Document              `json:"documents,omitempty"`
	ExportedAt             string                   `json:"exportedAt,omitempty"`
	Version                string                   `json:"version,omitempty"`
}

// NewSnapshot returns a snapshot with every section present and empty.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		OfficialSurveys:        &[]OfficialSurvey{},
		ElderlySurveys:         &[]ElderlySurvey{},
		InventoryDistributions: &[]InventoryDistribution{},
		InventorySummary:       &SummaryList{},
		Organizations:          &[]Organization{},
		Documents:              &[]Document{},
		Version:                SnapshotFormatVersion,
	}
}

// Records returns the records of one kind and whether the section is present.
func (s *Snapshot) Records(kind Kind) ([]Record, bool) {
	switch kind {
	case KindOfficialSurveys:
		if s.OfficialSurveys == nil {
			return nil, false
		}
		return spread(*s.OfficialSurveys), true
	case KindElderlySurveys:
		if s.ElderlySurveys == nil {
			return nil, false
		}
		return spread(*s.ElderlySurveys), true
	case KindInventoryDistributions:
		if s.InventoryDistributions == nil {
			return nil, false
		}
		return spread(*s.InventoryDistributions), true
	case KindInventorySummary:
		if s.InventorySummary == nil {
			return nil, false
		}
		return spread([]InventorySummary(*s.InventorySummary)), true
	case KindOrganizations:
		if s.Organizations == nil {
			return nil, false
		}
		return spread(*s.Organizations), true
	case KindDocuments:
		if s.Documents == nil {
			return nil, false
		}
		return spread(*s.Documents), true
	default:
		return nil, false
	}
}

// SetRecords replaces the section for kind with recs, marking it present.
func (s *Snapshot) SetRecords(kind Kind, recs []Record) error {
	switch kind {
	case KindOfficialSurveys:
		items, err := collect[OfficialSurvey](recs)
		if err != nil {
			return err
		}
		s.OfficialSurveys = &items
	case KindElderlySurveys:
		items, err := collect[ElderlySurvey](recs)
		if err != nil {
			return err
		}
		s.ElderlySurveys = &items
	case KindInventoryDistributions:
		items, err := collect[InventoryDistribution](recs)
		if err != nil {
			return err
		}
		s.InventoryDistributions = &items
	case KindInventorySummary:
		items, err := collect[InventorySummary](recs)
		if err != nil {
			return err
		}
		list := SummaryList(items)
		s.InventorySummary = &list
	case KindOrganizations:
		items, err := collect[Organization](recs)
		if err != nil {
			return err
		}
		s.Organizations = &items
	case KindDocuments:
		items, err := collect[Document](recs)
		if err != nil {
			return err
		}
		s.Documents = &items
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return nil
}

// Counts returns the number of records per present section.
func (s *Snapshot) Counts() map[Kind]int {
	counts := make(map[Kind]int, len(AllKinds))
	for _, kind := range AllKinds {
		if recs, ok := s.Records(kind); ok {
			counts[kind] = len(recs)
		}
	}
	return counts
}

// Empty reports whether no section is present.
func (s *Snapshot) Empty() bool {
	return len(s.Counts()) == 0
}

func spread[T Record](items []T) []Record {
	out := make([]Record, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}

func collect[T any](recs []Record) ([]T, error) {
	out := make([]T, 0, len(recs))
	for _, r := range recs {
		switch v := any(r).(type) {
		case T:
			out = append(out, v)
		case *T:
			out = append(out, *v)
		default:
			return nil, fmt.Errorf("%w: %T", ErrKindMismatch, r)
		}
	}
	return out, nil
}
