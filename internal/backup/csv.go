package backup

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/mesh-intelligence/caremon/internal/fallback"
)

// ExportToCSV writes records as a UTF-8 CSV file with a byte-order mark into
// the manager's export directory and returns its path. Columns are the JSON
// fields of all records in first-seen order, so a field omitted from early
// records still gets a column; headers renames columns for display.
// Nested objects and arrays are written as inline JSON. An empty slice
// writes nothing and returns an empty path.
func ExportToCSV[T any](m *Manager, records []T, name string, headers map[string]string) (string, error) {
	if len(records) == 0 {
		return "", nil
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, records, headers); err != nil {
		return "", err
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export dir: %w", err)
	}
	path := filepath.Join(m.dir, fileName(name, m.now(), ".csv"))
	if err := fallback.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return "", fmt.Errorf("writing csv: %w", err)
	}
	m.logger.Info("csv exported", zap.String("path", path), zap.Int("rows", len(records)))
	return path, nil
}

// WriteCSV writes records to w with a leading UTF-8 byte-order mark.
func WriteCSV[T any](w io.Writer, records []T, headers map[string]string) error {
	if len(records) == 0 {
		return nil
	}
	bom := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
	cw := csv.NewWriter(bom)

	rows := make([]map[string]json.RawMessage, len(records))
	var columns []string
	seen := make(map[string]bool)
	for i, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encoding row %d: %w", i, err)
		}
		keys, values, err := objectFields(data)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
		rows[i] = values
	}

	header := make([]string, len(columns))
	for j, c := range columns {
		header[j] = c
		if label, ok := headers[c]; ok {
			header[j] = label
		}
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, values := range rows {
		row := make([]string, len(columns))
		for j, c := range columns {
			row[j] = cell(values[c])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return bom.Close()
}

// objectFields returns the keys of a JSON object in document order and the
// raw value of each.
func objectFields(data []byte) ([]string, map[string]json.RawMessage, error) {
	var values map[string]json.RawMessage
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, nil, fmt.Errorf("record is not a JSON object: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		keys = append(keys, tok.(string))
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, nil, err
		}
	}
	return keys, values, nil
}

// cell renders one JSON value as CSV text: strings unquoted, null empty,
// everything else as compact JSON.
func cell(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if raw[0] == '"' && json.Unmarshal(raw, &s) == nil {
		return s
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return string(raw)
	}
	return compact.String()
}
