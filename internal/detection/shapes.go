package detection

import (
	"fmt"

	"github.com/ironsheep/mark-extract/internal/config"
)

// Kind is the shape class of a mark.
type Kind int

const (
	// Unknown contours fit neither shape and are discarded.
	Unknown Kind = iota
	// Circle marks ring a month written next to a row.
	Circle
	// Cross marks borrow their month from a circle to their right.
	Cross
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case Circle:
		return "circle"
	case Cross:
		return "cross"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind as its name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "circle":
		*k = Circle
	case "cross":
		*k = Cross
	case "unknown":
		*k = Unknown
	default:
		return fmt.Errorf("unknown mark kind %q", text)
	}
	return nil
}

// Mark is one accepted colored annotation.
//
// The kind is decided once, when the mark is built from its contour metrics,
// and a Mark is passed by value afterwards.
type Mark struct {
	// ID numbers marks on a page in top-to-bottom, left-to-right order.
	ID      int  `json:"id" yaml:"id"`
	Kind    Kind `json:"kind" yaml:"kind"`
	Metrics `yaml:",inline"`
}

// ShapeClassifier labels contour metrics as Circle, Cross or Unknown.
//
// The rules, in order:
//   - zero perimeter or area below MinArea: Unknown
//   - circularity >= MinCircularity, aspect within the circle bounds and area
//     within the circle bounds: Circle
//   - area and aspect within the cross bounds: Cross (a cross is anything
//     compact enough that is not round)
//   - otherwise Unknown
type ShapeClassifier struct {
	cfg config.ShapeConfig
}

// NewShapeClassifier creates a classifier from the shape thresholds.
func NewShapeClassifier(cfg config.ShapeConfig) *ShapeClassifier {
	return &ShapeClassifier{cfg: cfg}
}

// Classify returns the kind for m.
func (c *ShapeClassifier) Classify(m Metrics) Kind {
	s := c.cfg
	if m.Perimeter <= 0 || m.Area < s.MinArea {
		return Unknown
	}
	if m.Circularity >= s.MinCircularity &&
		within(m.AspectRatio, s.CircleAspectMin, s.CircleAspectMax) &&
		within(m.Area, s.CircleMinArea, s.CircleMaxArea) {
		return Circle
	}
	if m.Circularity < s.MinCircularity &&
		within(m.Area, s.CrossMinArea, s.CrossMaxArea) &&
		within(m.AspectRatio, s.CrossAspectMin, s.CrossAspectMax) {
		return Cross
	}
	return Unknown
}

func within(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}
