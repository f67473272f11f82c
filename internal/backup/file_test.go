package backup

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/caremon/internal/fixtures"
	"github.com/mesh-intelligence/caremon/pkg/types"
)

var fixedNow = time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func sampleSnapshot() *types.Snapshot {
	snap := types.NewSnapshot()
	orgs := []types.Organization{
		fixtures.Organization("o1", "남구", "welfare_center"),
		fixtures.Organization("o2", "북구", "senior_center"),
	}
	snap.Organizations = &orgs
	surveys := []types.OfficialSurvey{fixtures.OfficialSurvey("s1", "복지과")}
	snap.OfficialSurveys = &surveys
	return snap
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestExportToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	m := New(dir, nil, nil, WithClock(fixedClock))
	snap := sampleSnapshot()

	path, err := m.ExportToFile(snap, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "monitoring-backup_2025-05-05.json"), path)
	assert.Empty(t, snap.ExportedAt, "caller's snapshot is not stamped")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got types.Snapshot
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "2025-05-05T00:00:00Z", got.ExportedAt)
	assert.Equal(t, types.SnapshotFormatVersion, got.Version)
	require.NotNil(t, got.Organizations)
	assert.Len(t, *got.Organizations, 2)
	assert.Equal(t, map[types.Kind]int{
		types.KindOfficialSurveys:        1,
		types.KindElderlySurveys:         0,
		types.KindInventoryDistributions: 0,
		types.KindInventorySummary:       0,
		types.KindOrganizations:          2,
		types.KindDocuments:              0,
	}, got.Counts())
}

func TestExportToFile_Name(t *testing.T) {
	m := New(t.TempDir(), nil, nil, WithClock(fixedClock))

	path, err := m.ExportToFile(sampleSnapshot(), "../elsewhere/weekly")
	require.NoError(t, err)
	assert.Equal(t, "weekly_2025-05-05.json", filepath.Base(path))
	assert.Equal(t, m.Dir(), filepath.Dir(path), "name cannot escape the export dir")

	_, err = m.ExportToFile(nil, "x")
	assert.Error(t, err)
}

func TestImportFromFile(t *testing.T) {
	ctx := context.Background()
	m := New(t.TempDir(), nil, nil, WithClock(fixedClock))

	path, err := m.ExportToFile(sampleSnapshot(), "round")
	require.NoError(t, err)

	snap, err := m.ImportFromFile(ctx, FilePicker(path))
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, sampleSnapshot().Counts(), snap.Counts())
	assert.Equal(t, (*sampleSnapshot().Organizations)[0], (*snap.Organizations)[0])
}

func TestImportFromFile_Cancelled(t *testing.T) {
	m := New(t.TempDir(), nil, nil)

	snap, err := m.ImportFromFile(context.Background(), FilePicker(""))
	assert.NoError(t, err)
	assert.Nil(t, snap)
}

func TestImportFromFile_Unparsable(t *testing.T) {
	ctx := context.Background()
	m := New(t.TempDir(), nil, nil)

	tests := []struct {
		name    string
		content string
	}{
		{"truncated", `{"organizations": [`},
		{"array", `[1, 2, 3]`},
		{"empty", ``},
		{"text", `hello`},
		{"wrong shape", `{"organizations": "nope"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := m.ImportFromFile(ctx, FilePicker(writeFile(t, "bad.json", tt.content)))
			assert.ErrorIs(t, err, types.ErrImportParse)
			assert.Nil(t, snap)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		snap, err := m.ImportFromFile(ctx, FilePicker(filepath.Join(t.TempDir(), "nope.json")))
		assert.ErrorIs(t, err, types.ErrImportParse)
		assert.Nil(t, snap)
	})

	t.Run("picker error", func(t *testing.T) {
		picker := PickerFunc(func(context.Context) (io.ReadCloser, error) {
			return nil, errors.New("dialog crashed")
		})
		snap, err := m.ImportFromFile(ctx, picker)
		assert.ErrorIs(t, err, types.ErrImportParse)
		assert.Nil(t, snap)
	})
}

func TestImportFromFile_ByteOrderMark(t *testing.T) {
	m := New(t.TempDir(), nil, nil)
	path := writeFile(t, "bom.json", "\ufeff"+`{"version":"1.0.0","organizations":[{"id":"o1","name":"a","region":"r","type":"other"}]}`)

	snap, err := m.ImportFromFile(context.Background(), FilePicker(path))
	require.NoError(t, err)
	require.NotNil(t, snap.Organizations)
	assert.Equal(t, "o1", (*snap.Organizations)[0].ID)
	assert.Nil(t, snap.Documents, "absent sections stay absent")
}

func TestImportFromFile_UnknownVersion(t *testing.T) {
	m := New(t.TempDir(), nil, nil)

	for _, version := range []string{"2.0.0", "", "banana"} {
		t.Run("version "+version, func(t *testing.T) {
			body := `{"organizations":[{"id":"o1","name":"a","region":"r","type":"other"}],"futureField":true`
			if version != "" {
				body += `,"version":"` + version + `"`
			}
			path := writeFile(t, "future.json", body+"}")

			snap, err := m.ImportFromFile(context.Background(), FilePicker(path))
			require.NoError(t, err)
			require.NotNil(t, snap)
			assert.Len(t, *snap.Organizations, 1)
		})
	}
}

func TestParseSnapshot_ReportsVersion(t *testing.T) {
	snap, err := ParseSnapshot(strings.NewReader(`{"version":"3.1.0"}`))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
	require.NotNil(t, snap)
	assert.Equal(t, "3.1.0", snap.Version)
}

func TestCheckVersion(t *testing.T) {
	tests := []struct {
		version string
		ok      bool
	}{
		{"1.0.0", true},
		{"1.4.2", true},
		{"v1.0.0", true},
		{"1.2", true},
		{"", false},
		{"2.0.0", false},
		{"0.9.0", false},
		{"latest", false},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			err := CheckVersion(tt.version)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrUnsupportedVersion)
			}
		})
	}
}
