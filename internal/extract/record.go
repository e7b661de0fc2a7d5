package extract

import (
	"bytes"
	"encoding/json"

	"github.com/ironsheep/mark-extract/internal/geom"
	"github.com/ironsheep/mark-extract/internal/month"
	"gopkg.in/yaml.v3"
)

// MarkKind says how a record's month was obtained.
type MarkKind string

const (
	// KindSingle records read the month from their own circle.
	KindSingle MarkKind = "single"
	// KindRange records come from a cross and borrow the month of the circle
	// to its right.
	KindRange MarkKind = "range"
)

// Field is a value that may be unresolved. An unresolved field encodes as
// null, never as an empty or placeholder value.
type Field[T any] struct {
	Value    T
	Resolved bool
}

// Resolve returns a resolved field holding v.
func Resolve[T any](v T) Field[T] {
	return Field[T]{Value: v, Resolved: true}
}

// Get returns the value and whether it is resolved.
func (f Field[T]) Get() (T, bool) {
	return f.Value, f.Resolved
}

// MarshalJSON encodes the value, or null when unresolved.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.Resolved {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// UnmarshalJSON decodes null as unresolved.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = Field[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Resolve(v)
	return nil
}

// MarshalYAML encodes the value, or null when unresolved.
func (f Field[T]) MarshalYAML() (any, error) {
	if !f.Resolved {
		return nil, nil
	}
	return f.Value, nil
}

// UnmarshalYAML decodes null as unresolved.
func (f *Field[T]) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		*f = Field[T]{}
		return nil
	}
	var v T
	if err := node.Decode(&v); err != nil {
		return err
	}
	*f = Resolve(v)
	return nil
}

// Record ties one mark to the identifiers printed beside it and its month.
//
// A record exists only when at least one identifier resolved. Records are
// values and are not modified after the pipeline builds them.
type Record struct {
	Page   int      `json:"page" yaml:"page"`
	MarkID int      `json:"mark_id" yaml:"mark_id"`
	Kind   MarkKind `json:"mark_kind" yaml:"mark_kind"`

	Note  Field[string]          `json:"note_number" yaml:"note_number"`
	Item  Field[string]          `json:"item_number" yaml:"item_number"`
	Month Field[month.Canonical] `json:"month" yaml:"month"`

	// Position is the center of the mark the identifiers were searched from.
	Position geom.Point `json:"position" yaml:"position"`

	// PartnerID is the circle that supplied a range record's month.
	PartnerID int `json:"partner_id,omitempty" yaml:"partner_id,omitempty"`
}

// Key returns the "<note> <item>" lookup key used by spreadsheets. It is
// only available when both identifiers resolved.
func (r Record) Key() (string, bool) {
	if !r.Note.Resolved || !r.Item.Resolved {
		return "", false
	}
	return r.Note.Value + " " + r.Item.Value, true
}

// Complete reports whether every field resolved.
func (r Record) Complete() bool {
	return r.Note.Resolved && r.Item.Resolved && r.Month.Resolved
}
