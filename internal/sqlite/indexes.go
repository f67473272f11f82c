package sqlite

import (
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/caremon/pkg/types"
)

// Index names readers use with GetByIndex.
const (
	IndexByDepartment   = "by-department"
	IndexByDate         = "by-date"
	IndexByOrganization = "by-organization"
	IndexByRegion       = "by-region"
	IndexByType         = "by-type"
	IndexByCategory     = "by-category"
	IndexByUploader     = "by-uploader"
)

// index maps a reader-facing index name to the column holding its value.
type index struct {
	name   string
	column string
	date   bool
	value  func(types.Record) string
}

// tableSpec describes the extracted columns of one kind's table, in the
// order they appear in the DDL.
type tableSpec struct {
	table   string
	indexes []index
}

var tableSpecs = map[types.Kind]tableSpec{
	types.KindOfficialSurveys: {
		table: "official_surveys",
		indexes: []index{
			{name: IndexByDepartment, column: "department", value: field(func(s types.OfficialSurvey) string { return s.Department })},
			{name: IndexByDate, column: "created_at", date: true, value: field(func(s types.OfficialSurvey) string { return dateColumn(s.CreatedAt) })},
		},
	},
	types.KindElderlySurveys: {
		table: "elderly_surveys",
		indexes: []index{
			{name: IndexByOrganization, column: "organization", value: field(func(s types.ElderlySurvey) string { return s.Organization })},
			{name: IndexByDate, column: "created_at", date: true, value: field(func(s types.ElderlySurvey) string { return dateColumn(s.CreatedAt) })},
			{name: IndexByRegion, column: "residence", value: field(func(s types.ElderlySurvey) string { return s.Residence })},
		},
	},
	types.KindInventoryDistributions: {
		table: "inventory_distributions",
		indexes: []index{
			{name: IndexByOrganization, column: "organization", value: field(func(d types.InventoryDistribution) string { return d.Organization })},
			{name: IndexByDate, column: "date", date: true, value: field(func(d types.InventoryDistribution) string { return dateColumn(d.Date) })},
		},
	},
	types.KindInventorySummary: {
		table: "inventory_summary",
	},
	types.KindOrganizations: {
		table: "organizations",
		indexes: []index{
			{name: IndexByRegion, column: "region", value: field(func(o types.Organization) string { return o.Region })},
			{name: IndexByType, column: "type", value: field(func(o types.Organization) string { return o.Type })},
		},
	},
	types.KindDocuments: {
		table: "documents",
		indexes: []index{
			{name: IndexByCategory, column: "category", value: field(func(d types.Document) string { return d.Category })},
			{name: IndexByDate, column: "upload_date", date: true, value: field(func(d types.Document) string { return d.UploadDate })},
			{name: IndexByUploader, column: "uploader", value: field(func(d types.Document) string { return d.Uploader })},
		},
	},
}

// IndexNames returns the index names defined for kind.
func IndexNames(kind types.Kind) []string {
	spec, ok := tableSpecs[kind]
	if !ok {
		return nil
	}
	names := make([]string, len(spec.indexes))
	for i, idx := range spec.indexes {
		names[i] = idx.name
	}
	return names
}

func specFor(kind types.Kind) (tableSpec, error) {
	spec, ok := tableSpecs[kind]
	if !ok {
		return tableSpec{}, fmt.Errorf("%w: %q", types.ErrUnknownKind, kind)
	}
	return spec, nil
}

func (t tableSpec) lookup(name string) (index, error) {
	for _, idx := range t.indexes {
		if idx.name == name {
			return idx, nil
		}
	}
	return index{}, fmt.Errorf("%w: %q on %s", types.ErrUnknownIndex, name, t.table)
}

// columns returns id, the extracted index columns, and body.
func (t tableSpec) columns() []string {
	cols := []string{"id"}
	for _, idx := range t.indexes {
		cols = append(cols, idx.column)
	}
	return append(cols, "body")
}

// upsertSQL builds the insert-or-replace statement for the table.
func (t tableSpec) upsertSQL() string {
	cols := t.columns()
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	updates := make([]string, 0, len(cols)-1)
	for _, c := range cols[1:] {
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", c, c))
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
		t.table, strings.Join(cols, ", "), placeholders, strings.Join(updates, ", "))
}

// args returns the upsert arguments for rec with its encoded body.
func (t tableSpec) args(rec types.Record, body []byte) []any {
	args := []any{rec.Key()}
	for _, idx := range t.indexes {
		args = append(args, idx.value(rec))
	}
	return append(args, string(body))
}

// where returns the filter clause for an index lookup. Date indexes given a
// bare calendar day (YYYY-MM-DD) match every timestamp on that UTC day.
func (idx index) where(value string) (string, []any) {
	if idx.date {
		if day, err := time.Parse(time.DateOnly, value); err == nil {
			next := day.AddDate(0, 0, 1).Format(time.DateOnly)
			return fmt.Sprintf("%s >= ? AND %s < ?", idx.column, idx.column), []any{value, next}
		}
	}
	return idx.column + " = ?", []any{value}
}

// dateLayout is fixed width so that string order matches time order.
// RFC3339Nano trims trailing zeros and would sort 10:00:00.5Z before 10:00:00Z.
const dateLayout = "2006-01-02T15:04:05.000000000Z07:00"

func dateColumn(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// field adapts a getter on a record value to accept the value or a pointer.
func field[T types.Record](get func(T) string) func(types.Record) string {
	return func(r types.Record) string {
		switch v := any(r).(type) {
		case T:
			return get(v)
		case *T:
			return get(*v)
		default:
			return ""
		}
	}
}
