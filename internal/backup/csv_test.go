package backup

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/caremon/internal/fixtures"
	"github.com/mesh-intelligence/caremon/pkg/types"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, utf8BOM), "file starts with a byte-order mark")
	rows, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestExportToCSV(t *testing.T) {
	m := New(t.TempDir(), nil, nil, WithClock(fixedClock))
	orgs := []types.Organization{
		fixtures.Organization("o1", "남구", "welfare_center"),
		fixtures.Organization("o2", "북구", "senior_center"),
	}

	path, err := ExportToCSV(m, orgs, "organizations", map[string]string{"name": "기관명", "region": "지역"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(m.Dir(), "organizations_2025-05-05.csv"), path)

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"id", "기관명", "지역", "type", "createdAt"}, rows[0])
	assert.Equal(t, []string{"o1", "기관 o1", "남구", "welfare_center", "2025-04-01T09:30:00Z"}, rows[1])
	assert.Equal(t, "o2", rows[2][0])
}

func TestExportToCSV_Empty(t *testing.T) {
	m := New(filepath.Join(t.TempDir(), "exports"), nil, nil)

	path, err := ExportToCSV(m, []types.Organization{}, "organizations", nil)
	require.NoError(t, err)
	assert.Empty(t, path)
	_, err = os.Stat(m.Dir())
	assert.True(t, os.IsNotExist(err), "no directory or file is created")
}

func TestExportToCSV_ColumnsFromEveryRecord(t *testing.T) {
	m := New(t.TempDir(), nil, nil, WithClock(fixedClock))
	first := fixtures.Organization("o1", "남구", "welfare_center")
	second := fixtures.Organization("o2", "북구", "senior_center")
	second.Contact = "김담당"

	path, err := ExportToCSV(m, []types.Organization{first, second}, "organizations", nil)
	require.NoError(t, err)

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"id", "name", "region", "type", "createdAt", "contact"}, rows[0])
	assert.Equal(t, "", rows[1][5], "field absent from the first record")
	assert.Equal(t, "김담당", rows[2][5])
}

func TestExportToCSV_NestedValues(t *testing.T) {
	m := New(t.TempDir(), nil, nil, WithClock(fixedClock))
	survey := fixtures.ElderlySurvey("e1", "기관 o1")

	path, err := ExportToCSV(m, []types.ElderlySurvey{survey}, "elderly", nil)
	require.NoError(t, err)
	rows := readCSV(t, path)
	require.Len(t, rows, 2)

	col := -1
	for i, name := range rows[0] {
		if name == "serviceUsage" {
			col = i
		}
	}
	require.GreaterOrEqual(t, col, 0)
	want, err := json.Marshal(survey.ServiceUsage)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), rows[1][col])
	assert.Equal(t, string(want), rows[1][col], "nested values are compact JSON")
}

func TestWriteCSV_Cells(t *testing.T) {
	type row struct {
		Text  string         `json:"text"`
		Count *int           `json:"count"`
		Flag  bool           `json:"flag"`
		Tags  []string       `json:"tags"`
		Extra map[string]int `json:"extra"`
	}
	n := 7
	var buf bytes.Buffer
	err := WriteCSV(&buf, []row{
		{Text: "a, \"quoted\"", Count: &n, Flag: true, Tags: []string{"x", "y"}},
		{Text: "줄\n바꿈"},
	}, nil)
	require.NoError(t, err)

	data := buf.Bytes()
	require.True(t, bytes.HasPrefix(data, utf8BOM))
	rows, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"text", "count", "flag", "tags", "extra"},
		{"a, \"quoted\"", "7", "true", `["x","y"]`, ""},
		{"줄\n바꿈", "", "false", "", ""},
	}, rows)
}
