package types

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidFileData is returned when a document's FileData is not a
// base64 data URL.
var ErrInvalidFileData = errors.New("file data is not a base64 data URL")

// EncodeFileData builds the data URL stored in Document.FileData.
func EncodeFileData(mediaType string, data []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeFileData returns the media type and raw bytes held in FileData.
func (d Document) DecodeFileData() (string, []byte, error) {
	rest, ok := strings.CutPrefix(d.FileData, "data:")
	if !ok {
		return "", nil, ErrInvalidFileData
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrInvalidFileData
	}
	mediaType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return "", nil, ErrInvalidFileData
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidFileData, err)
	}
	return mediaType, data, nil
}
