package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// env is an isolated config and data directory pair.
type env struct {
	t         *testing.T
	configDir string
	dataDir   string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	root := t.TempDir()
	return &env{t: t, configDir: filepath.Join(root, "config"), dataDir: filepath.Join(root, "data")}
}

type result struct {
	code   int
	stdout string
	stderr string
}

// run executes caremon with the env's directories and the given stdin.
func (e *env) runIn(stdin string, args ...string) result {
	e.t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, args...)
	code := run(full, strings.NewReader(stdin), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func (e *env) run(args ...string) result {
	e.t.Helper()
	return e.runIn("", args...)
}

// ok runs args, requires success, and returns stdout.
func (e *env) ok(args ...string) string {
	e.t.Helper()
	r := e.run(args...)
	require.Equal(e.t, exitSuccess, r.code, "caremon %v: %s", args, r.stderr)
	return r.stdout
}

func (e *env) okJSON(v any, args ...string) {
	e.t.Helper()
	out := e.ok(append([]string{"--json"}, args...)...)
	require.NoError(e.t, json.Unmarshal([]byte(out), v), out)
}

const orgJSON = `{"id":"o1","name":"남구노인복지관","region":"남구","type":"welfare_center"}`

func TestVersion(t *testing.T) {
	e := newEnv(t)
	assert.Equal(t, "caremon dev\n", e.ok("version"))
	_, err := os.Stat(e.configDir)
	assert.True(t, os.IsNotExist(err), "version touches nothing")
}

func TestInit(t *testing.T) {
	e := newEnv(t)
	out := e.ok("init")
	assert.Contains(t, out, "caremon initialized")
	assert.FileExists(t, filepath.Join(e.configDir, "config.yaml"))
	assert.FileExists(t, filepath.Join(e.dataDir, "monitoring-system.db"))

	var info map[string]string
	e.okJSON(&info, "init")
	assert.Equal(t, "ready", info["state"])
}

func TestConfigShow(t *testing.T) {
	e := newEnv(t)
	out := e.ok("config", "show")
	assert.Contains(t, out, "database_name: monitoring-system")
	assert.Contains(t, out, "interval_minutes: 30")
	assert.Contains(t, out, filepath.Join(e.dataDir, "exports"))
}

func TestBadConfig(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.MkdirAll(e.configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(e.configDir, "config.yaml"),
		[]byte("fallback:\n  backend: floppy\n"), 0o644))

	r := e.run("init")
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, "unknown fallback backend")
}

func TestRecordCommands(t *testing.T) {
	e := newEnv(t)

	var saved map[string]any
	out := e.ok("put", "organizations", writeTemp(t, "org.json", orgJSON))
	require.NoError(t, json.Unmarshal([]byte(out), &saved))
	assert.Equal(t, "o1", saved["id"])
	assert.NotEmpty(t, saved["createdAt"], "defaults are applied")

	r := e.runIn(`[{"name":"북구센터","region":"북구","type":"senior_center"},{"id":"o3","name":"x","region":"남구","type":"other"}]`,
		"put", "organizations", "-")
	require.Equal(t, exitSuccess, r.code, r.stderr)

	var all []map[string]any
	e.okJSON(&all, "list", "organizations")
	assert.Len(t, all, 3)

	var south []map[string]any
	e.okJSON(&south, "list", "organizations", "--index", "by-region", "--value", "남구")
	assert.Len(t, south, 2)

	var got map[string]any
	e.okJSON(&got, "get", "organizations", "o1")
	assert.Equal(t, "남구노인복지관", got["name"])

	e.ok("delete", "organizations", "o1")
	e.ok("delete", "organizations", "o1")
	assert.Equal(t, exitUserError, e.run("get", "organizations", "o1").code)
}

func TestRecordCommands_UserErrors(t *testing.T) {
	e := newEnv(t)

	r := e.run("list", "crumbs")
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, "officialSurveys")

	r = e.runIn(`{"name":"","region":"남구","type":"castle"}`, "put", "organizations")
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, "name")
	assert.Contains(t, r.stderr, "type")

	r = e.runIn(`{"name":`, "put", "organizations")
	assert.Equal(t, exitUserError, r.code)

	r = e.run("list", "organizations", "--index", "by-colour", "--value", "red")
	assert.Equal(t, exitUserError, r.code)

	r = e.run("get", "organizations")
	assert.Equal(t, exitUserError, r.code, "wrong argument count")

	r = e.run("list", "organizations", "--no-such-flag")
	assert.Equal(t, exitUserError, r.code)

	var empty []any
	e.okJSON(&empty, "list", "organizations")
	assert.Empty(t, empty, "nothing was written by the failed puts")
}

func TestRecordCommands_JSONErrors(t *testing.T) {
	e := newEnv(t)
	r := e.runIn(`{"region":"남구","type":"other"}`, "--json", "put", "organizations")
	require.Equal(t, exitUserError, r.code)

	var body struct {
		Error      string `json:"error"`
		Violations []struct {
			Field string `json:"field"`
			Rule  string `json:"rule"`
		} `json:"violations"`
	}
	require.NoError(t, json.Unmarshal([]byte(r.stderr), &body), r.stderr)
	require.Len(t, body.Violations, 1)
	assert.Equal(t, "name", body.Violations[0].Field)
	assert.Equal(t, "required", body.Violations[0].Rule)
}

func TestSummary(t *testing.T) {
	e := newEnv(t)
	assert.Contains(t, e.ok("summary", "show"), "no inventory summary")

	dist := `[{"date":"2025-04-01T00:00:00Z","organization":"a","contact":"c","phone":"p","elderly":1,"staff":1,"distributed":30,"signature":"s"},
	          {"date":"2025-04-02T00:00:00Z","organization":"b","contact":"c","phone":"p","elderly":1,"staff":1,"distributed":20,"signature":"s"}]`
	require.Equal(t, exitSuccess, e.runIn(dist, "put", "inventoryDistributions").code)

	var summary map[string]any
	e.okJSON(&summary, "summary", "set", "--stock", "200")
	assert.EqualValues(t, 50, summary["totalDistributed"])
	assert.EqualValues(t, 150, summary["remaining"])
	assert.EqualValues(t, 25, summary["distributionRate"])

	e.okJSON(&summary, "summary", "set", "--stock", "100", "--distributed", "10")
	assert.EqualValues(t, 90, summary["remaining"])

	e.okJSON(&summary, "summary", "show")
	assert.Equal(t, "current", summary["id"])
	assert.EqualValues(t, 100, summary["totalStock"])

	assert.Equal(t, exitUserError, e.run("summary", "set", "--stock", "10", "--distributed", "20").code,
		"distributed above stock")
}

func TestExportImport(t *testing.T) {
	src := newEnv(t)
	src.ok("put", "organizations", writeTemp(t, "org.json", orgJSON))

	var exported struct {
		Path   string         `json:"path"`
		Counts map[string]int `json:"counts"`
	}
	src.okJSON(&exported, "export", "--name", "weekly")
	assert.True(t, strings.HasPrefix(filepath.Base(exported.Path), "weekly_"))
	assert.Equal(t, 1, exported.Counts["organizations"])

	dst := newEnv(t)
	out := dst.ok("import", exported.Path)
	assert.Contains(t, out, "organizations")

	var got map[string]any
	dst.okJSON(&got, "get", "organizations", "o1")
	assert.Equal(t, "남구", got["region"])

	r := dst.run("import", writeTemp(t, "bad.json", "not json"))
	assert.Equal(t, exitUserError, r.code)
}

func TestExportImportText(t *testing.T) {
	src := newEnv(t)
	src.ok("put", "organizations", writeTemp(t, "org.json", orgJSON))
	text := src.ok("export", "text")

	dst := newEnv(t)
	r := dst.runIn(text, "import", "text", "-")
	require.Equal(t, exitSuccess, r.code, r.stderr)
	dst.ok("get", "organizations", "o1")

	assert.Equal(t, exitUserError, dst.runIn("garbage", "import", "text").code)
}

func TestExportCSV(t *testing.T) {
	e := newEnv(t)
	assert.Contains(t, e.ok("export", "csv", "organizations"), "nothing to export")

	e.ok("put", "organizations", writeTemp(t, "org.json", orgJSON))
	path := strings.TrimSpace(e.ok("export", "csv", "organizations", "--header", "name=기관명"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\xEF\xBB\xBFid,기관명,region,type,createdAt\n")))
}

func TestSpreadsheets(t *testing.T) {
	e := newEnv(t)
	template := filepath.Join(t.TempDir(), "template.xlsx")
	e.ok("export", "xlsx", "--template", "-o", template)

	out := e.ok("import", "xlsx", template)
	assert.Contains(t, out, "imported 1 official surveys")

	var surveys []map[string]any
	e.okJSON(&surveys, "list", "officialSurveys", "--index", "by-department", "--value", "예시구청")
	require.Len(t, surveys, 1)
	assert.EqualValues(t, 4, surveys[0]["necessity"])

	report := strings.TrimSpace(e.ok("export", "xlsx", "officialSurveys"))
	f, err := excelize.OpenFile(report)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	assert.Equal(t, exitUserError, e.run("export", "xlsx", "organizations").code)
	assert.Equal(t, exitUserError, e.run("export", "xlsx").code)
}

func TestSpreadsheetImport_IncompleteRows(t *testing.T) {
	e := newEnv(t)
	f := excelize.NewFile()
	rows := [][]any{
		{"소속", "직위", "경력", "필요성", "충분성", "필요서비스", "가장큰효과", "가장큰문제점", "개선우선순위"},
		{"복지과", "주무관", "5년", 4, 3, "안전확인", "효과", "문제", "예산"},
		{"복지과", "", "5년", 4, 3, "안전확인", "효과", "문제", "예산"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	path := filepath.Join(t.TempDir(), "surveys.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	r := e.run("import", "xlsx", path)
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, "row 3")

	assert.Contains(t, e.ok("import", "xlsx", path, "--skip-invalid"), "imported 1")
}

func TestCategoriesAndDocuments(t *testing.T) {
	e := newEnv(t)

	var names []string
	e.okJSON(&names, "categories", "list")
	assert.NotEmpty(t, names)

	e.ok("categories", "add", "회의록")
	assert.Equal(t, exitUserError, e.run("categories", "add", "회의록").code)

	file := writeTemp(t, "minutes.txt", "3월 회의 내용")
	var doc map[string]any
	e.okJSON(&doc, "documents", "add", file, "--category", "회의록", "--uploader", "관리자")
	assert.Equal(t, "text/plain", doc["fileType"])
	assert.EqualValues(t, len("3월 회의 내용"), doc["fileSize"])
	assert.Empty(t, doc["fileData"])
	id := doc["id"].(string)

	assert.Equal(t, exitUserError,
		e.run("documents", "add", file, "--category", "없는분류", "--uploader", "관리자").code)
	assert.Equal(t, exitUserError, e.run("categories", "delete", "회의록").code, "category in use")

	assert.Contains(t, e.ok("categories", "rename", "회의록", "회의자료"), "1 documents")
	var moved []map[string]any
	e.okJSON(&moved, "list", "documents", "--index", "by-category", "--value", "회의자료")
	assert.Len(t, moved, 1)

	out := filepath.Join(t.TempDir(), "copy.txt")
	e.ok("documents", "save", id, "-o", out)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "3월 회의 내용", string(data))
}

func TestResetAndClear(t *testing.T) {
	e := newEnv(t)
	e.ok("put", "organizations", writeTemp(t, "org.json", orgJSON))

	assert.Equal(t, exitUserError, e.run("reset").code, "confirmation required")
	e.ok("reset", "--yes")
	assert.Equal(t, exitUserError, e.run("get", "organizations", "o1").code)
	e.ok("restore-reset")
	e.ok("get", "organizations", "o1")

	assert.Equal(t, exitUserError, e.run("clear").code)
	e.ok("clear", "--yes")
	var all []any
	e.okJSON(&all, "list", "organizations")
	assert.Empty(t, all)
	e.ok("restore-clear")
	e.ok("get", "organizations", "o1")
}

func TestClear_KeepsResetBackup(t *testing.T) {
	e := newEnv(t)
	e.ok("put", "organizations", writeTemp(t, "org.json", orgJSON))
	e.ok("reset", "--yes")

	e.ok("put", "organizations", writeTemp(t, "other.json", strings.Replace(orgJSON, `"o1"`, `"o2"`, 1)))
	e.ok("clear", "--yes")

	e.ok("restore-reset")
	e.ok("get", "organizations", "o1")
	assert.Equal(t, exitUserError, e.run("get", "organizations", "o2").code, "reset backup predates o2")

	e.ok("restore-clear")
	e.ok("get", "organizations", "o2")
}

func TestRestoreReset_NothingSaved(t *testing.T) {
	e := newEnv(t)
	assert.Equal(t, exitUserError, e.run("restore-reset").code)
}

func TestAutoBackup(t *testing.T) {
	e := newEnv(t)
	assert.Equal(t, exitUserError, e.run("backup", "restore-auto").code, "nothing stored yet")

	e.ok("put", "organizations", writeTemp(t, "org.json", orgJSON))
	e.ok("backup", "now")
	e.ok("delete", "organizations", "o1")
	e.ok("backup", "restore-auto")
	e.ok("get", "organizations", "o1")

	assert.FileExists(t, filepath.Join(e.dataDir, "fallback", "monitoring-auto-backup.json"))
}

func TestBackupWatch(t *testing.T) {
	e := newEnv(t)
	e.ok("put", "organizations", writeTemp(t, "org.json", orgJSON))

	out := e.ok("backup", "watch", "--interval", "10ms", "--for", "200ms")
	assert.Contains(t, out, "auto-backup stopped")
	assert.FileExists(t, filepath.Join(e.dataDir, "fallback", "monitoring-auto-backup.json"))

	assert.Equal(t, exitUserError, e.run("backup", "watch", "--interval", "0s").code)
}

func TestUsage(t *testing.T) {
	e := newEnv(t)
	e.ok("init")

	var u struct {
		Used  uint64 `json:"used"`
		Quota uint64 `json:"quota"`
	}
	e.okJSON(&u, "usage")
	assert.Positive(t, u.Used)
	assert.GreaterOrEqual(t, u.Quota, u.Used)

	assert.Contains(t, e.ok("usage"), "used:")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitSuccess, exitCode(nil))
	assert.Equal(t, exitUserError, exitCode(userErrorf("bad")))
	assert.Equal(t, exitSysError, exitCode(os.ErrPermission))
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
