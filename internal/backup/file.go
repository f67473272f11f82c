package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/mod/semver"

	"github.com/mesh-intelligence/caremon/internal/fallback"
	"github.com/mesh-intelligence/caremon/pkg/types"
)

// ErrUnsupportedVersion marks a snapshot whose version this build does not
// know. Such snapshots are still returned; known fields are applied and the
// rest ignored.
var ErrUnsupportedVersion = errors.New("unsupported snapshot version")

// Picker supplies the file to import. A nil reader with a nil error means
// the user cancelled.
type Picker interface {
	Pick(ctx context.Context) (io.ReadCloser, error)
}

// PickerFunc adapts a function to Picker.
type PickerFunc func(ctx context.Context) (io.ReadCloser, error)

func (f PickerFunc) Pick(ctx context.Context) (io.ReadCloser, error) { return f(ctx) }

// FilePicker picks the file at path. An empty path is a cancellation.
func FilePicker(path string) Picker {
	return PickerFunc(func(context.Context) (io.ReadCloser, error) {
		if path == "" {
			return nil, nil
		}
		return os.Open(path)
	})
}

// fileName builds "<name>_<YYYY-MM-DD><ext>".
func fileName(name string, now time.Time, ext string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultBackupName
	}
	return fmt.Sprintf("%s_%s%s", filepath.Base(name), now.Format(time.DateOnly), ext)
}

// ExportToFile writes snap as an indented JSON backup into the export
// directory, stamped with the export time and format version, and returns
// the file path. snap itself is not modified.
func (m *Manager) ExportToFile(snap *types.Snapshot, name string) (string, error) {
	if snap == nil {
		return "", errNilSnapshot
	}
	now := m.now()
	out := *snap
	out.ExportedAt = now.Format(time.RFC3339)
	out.Version = types.SnapshotFormatVersion

	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding backup: %w", err)
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export dir: %w", err)
	}
	path := filepath.Join(m.dir, fileName(name, now, ".json"))
	if err := fallback.WriteFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("writing backup: %w", err)
	}
	m.logger.Info("backup exported", zap.String("path", path), zap.Any("counts", out.Counts()))
	return path, nil
}

// ImportFromFile reads the file supplied by picker. It returns (nil, nil)
// when the pick is cancelled and (nil, ErrImportParse) when the file cannot be
// read or parsed.
func (m *Manager) ImportFromFile(ctx context.Context, picker Picker) (*types.Snapshot, error) {
	rc, err := picker.Pick(ctx)
	if err != nil {
		m.logger.Warn("backup file unreadable", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", types.ErrImportParse, err)
	}
	if rc == nil {
		return nil, nil
	}
	defer rc.Close()

	snap, err := ParseSnapshot(rc)
	if errors.Is(err, ErrUnsupportedVersion) {
		m.logger.Warn("importing snapshot of unknown version as best effort", zap.Error(err))
		err = nil
	}
	if err != nil {
		m.logger.Warn("backup file unparsable", zap.Error(err))
		return nil, err
	}
	return snap, nil
}

// ParseSnapshot decodes a snapshot file. Malformed input yields
// ErrImportParse. A missing or unknown version yields the decoded snapshot
// together with ErrUnsupportedVersion.
func ParseSnapshot(r io.Reader) (*types.Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrImportParse, err)
	}
	data = bytes.TrimPrefix(bytes.TrimSpace(data), []byte("\ufeff"))
	if len(data) == 0 || data[0] != '{' {
		return nil, fmt.Errorf("%w: not a JSON object", types.ErrImportParse)
	}
	var snap types.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrImportParse, err)
	}
	if err := CheckVersion(snap.Version); err != nil {
		return &snap, err
	}
	return &snap, nil
}

// CheckVersion accepts any 1.x snapshot version.
func CheckVersion(version string) error {
	if version == "" {
		return fmt.Errorf("%w: missing", ErrUnsupportedVersion)
	}
	v := "v" + strings.TrimPrefix(version, "v")
	if !semver.IsValid(v) {
		return fmt.Errorf("%w: %q", ErrUnsupportedVersion, version)
	}
	if semver.Major(v) != semver.Major("v"+types.SnapshotFormatVersion) {
		return fmt.Errorf("%w: %s", ErrUnsupportedVersion, version)
	}
	return nil
}
