package backup

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mesh-intelligence/caremon/pkg/types"
)

// Compress encodes snap as gzip-compressed JSON in base64 text, suitable for
// pasting or sending as a message.
func Compress(snap *types.Snapshot) (string, error) {
	if snap == nil {
		return "", errNilSnapshot
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("encoding snapshot: %w", err)
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Decompress reverses Compress. Malformed text yields nil.
func Decompress(text string) *types.Snapshot {
	raw, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace([]byte(text))))
	if err != nil {
		return nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil
	}
	defer zr.Close()
	data, err := io.ReadAll(zr)
	if err != nil {
		return nil
	}
	var snap types.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil
	}
	return &snap
}
