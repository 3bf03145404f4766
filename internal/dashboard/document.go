// Package dashboard holds the schema-less dashboard document and the
// transformations applied to it before it is written back.
package dashboard

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Document is a dashboard definition as returned by NerdGraph. The schema is
// owned by the remote service, so it is kept as a generic JSON tree and only
// the keys this package cares about are interpreted.
type Document = map[string]any

// Decode parses raw JSON into a Document. Numbers are kept as json.Number so
// they are written back exactly as received.
func Decode(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode dashboard: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("failed to decode dashboard: not a JSON object")
	}
	return doc, nil
}

// Name returns the dashboard name, or "" when absent.
func Name(doc Document) string {
	name, _ := doc["name"].(string)
	return name
}

// Clone returns a deep copy of doc. Only the container types produced by
// encoding/json are copied; leaf values are shared.
func Clone(doc Document) Document {
	if doc == nil {
		return nil
	}
	return cloneValue(doc).(map[string]any)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}
