package model

import (
	"encoding/json"
	"strconv"
)

// ExternalID extracts the remote identifier (`_id`) from an opaque export
// item. Returns "" when the field is missing or unusable; such items cannot
// be ingested idempotently and are counted as per-item errors.
func ExternalID(item json.RawMessage) string {
	var probe struct {
		ID any `json:"_id"`
	}
	if err := json.Unmarshal(item, &probe); err != nil {
		return ""
	}
	switch v := probe.ID.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
