// Package models contains domain models for sortdeck.
package models

import (
	"database/sql/driver"
	"fmt"

	"github.com/goccy/go-json"
)

// Vector is a fixed-length embedding stored normalized to unit length.
// It serializes to a JSON array so it can live in a TEXT column.
type Vector []float32

// Value implements driver.Valuer for database storage.
func (v Vector) Value() (driver.Value, error) {
	if len(v) == 0 {
		return nil, nil
	}
	data, err := json.Marshal([]float32(v))
	if err != nil {
		return nil, fmt.Errorf("marshal vector: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner for database retrieval.
func (v *Vector) Scan(value interface{}) error {
	if value == nil {
		*v = nil
		return nil
	}

	var data []byte
	switch s := value.(type) {
	case string:
		data = []byte(s)
	case []byte:
		data = s
	default:
		return fmt.Errorf("unsupported vector column type %T", value)
	}

	if len(data) == 0 {
		*v = nil
		return nil
	}

	var out []float32
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("unmarshal vector: %w", err)
	}
	*v = out
	return nil
}

// HasDim reports whether the vector is present with the expected dimension.
// Vectors with the wrong dimension are treated as absent everywhere.
func (v Vector) HasDim(dim int) bool {
	return len(v) == dim
}
