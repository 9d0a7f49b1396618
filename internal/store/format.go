package store

import (
	"bytes"
	"encoding/json"
)

// Encode serializes entries as a single JSON object.
func Encode(entries map[string]string) ([]byte, error) {
	if entries == nil {
		entries = map[string]string{}
	}
	return json.Marshal(entries)
}

// Decode parses a document produced by Encode. A JSON null yields an empty map.
func Decode(data []byte) (map[string]string, error) {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]string{}
	}
	return m, nil
}

// IsBlank reports whether data holds nothing but whitespace.
func IsBlank(data []byte) bool {
	return len(bytes.TrimSpace(data)) == 0
}
