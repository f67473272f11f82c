package types

import "fmt"

// Kind names one of the six entity kinds. The string value is the key used
// for the kind in snapshot files.
type Kind string

// Entity kinds.
const (
	KindOfficialSurveys        Kind = "officialSurveys"
	KindElderlySurveys         Kind = "elderlySurveys"
	KindInventoryDistributions Kind = "inventoryDistributions"
	KindInventorySummary       Kind = "inventorySummary"
	KindOrganizations          Kind = "organizations"
	KindDocuments              Kind = "documents"
)

// AllKinds lists every entity kind in snapshot order.
var AllKinds = []Kind{
	KindOfficialSurveys,
	KindElderlySurveys,
	KindInventoryDistributions,
	KindInventorySummary,
	KindOrganizations,
	KindDocuments,
}

// kindTables maps each kind to its SQLite table name.
var kindTables = map[Kind]string{
	KindOfficialSurveys:        "official_surveys",
	KindElderlySurveys:         "elderly_surveys",
	KindInventoryDistributions: "inventory_distributions",
	KindInventorySummary:       "inventory_summary",
	KindOrganizations:          "organizations",
	KindDocuments:              "documents",
}

// SummaryKey is the fixed key of the singleton inventory summary record.
const SummaryKey = "current"

// Table returns the database table name for the kind.
func (k Kind) Table() string {
	return kindTables[k]
}

// Valid reports whether k is one of the six entity kinds.
func (k Kind) Valid() bool {
	_, ok := kindTables[k]
	return ok
}

// ParseKind accepts either the snapshot key ("officialSurveys") or the
// table name ("official_surveys").
func ParseKind(s string) (Kind, error) {
	if k := Kind(s); k.Valid() {
		return k, nil
	}
	for k, table := range kindTables {
		if table == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// NewRecord returns an empty record of the given kind, ready for decoding.
func NewRecord(kind Kind) (Record, error) {
	switch kind {
	case KindOfficialSurveys:
		return &OfficialSurvey{}, nil
	case KindElderlySurveys:
		return &ElderlySurvey{}, nil
	case KindInventoryDistributions:
		return &InventoryDistribution{}, nil
	case KindInventorySummary:
		return &InventorySummary{}, nil
	case KindOrganizations:
		return &Organization{}, nil
	case KindDocuments:
		return &Document{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}
