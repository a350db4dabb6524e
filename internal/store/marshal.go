package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/mirror/internal/ir"
)

// marshalPayload converts envelope payload values to a JSON array TEXT.
// Each element is already codec output; HTML escaping stays disabled so
// stored text matches what crossed the wire.
func marshalPayload(payload []json.RawMessage) (string, error) {
	if len(payload) == 0 {
		return "[]", nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	// Encoder adds a trailing newline.
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalPayload parses JSON array TEXT back into payload values.
func unmarshalPayload(data string) ([]json.RawMessage, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var payload []json.RawMessage
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return payload, nil
}

// formatParams renders parameter shapes the way member descriptors print
// them, comma separated.
func formatParams(params []ir.Shape) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.String()
	}
	return strings.Join(parts, ", ")
}
