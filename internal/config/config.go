// Package config holds the tunable thresholds of the mark extraction engine.
//
// A Config is a plain value. It is built once (Default, optionally overlaid by a
// YAML file through Load), validated, and then passed by value into every
// component constructor. Nothing in this module reads configuration from
// package-level state, so tests can run pipelines with different thresholds in
// parallel.
//
// # Resolution
//
// Pixel distances, paddings and areas are expressed at ReferenceDPI (144, the
// 2x zoom the forms were originally rendered at). ScaledFor converts them to
// the resolution of a concrete page.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// HSVRange is an inclusive hue/saturation/value box in OpenCV scale:
// H 0-180, S 0-255, V 0-255.
type HSVRange struct {
	Lower [3]int `yaml:"lower" json:"lower"`
	Upper [3]int `yaml:"upper" json:"upper"`
}

// ColorConfig controls the target-color mask.
type ColorConfig struct {
	// Ranges are OR-ed together. Red needs two because its hue wraps past 180.
	Ranges []HSVRange `yaml:"ranges" json:"ranges"`
	// OpenKernel is the structuring element size of the noise-removing opening.
	OpenKernel int `yaml:"open_kernel" json:"open_kernel"`
	// CloseKernel is the structuring element size of the gap-bridging closing.
	CloseKernel int `yaml:"close_kernel" json:"close_kernel"`
}

// ShapeConfig bounds the contour metrics used by the shape classifier.
type ShapeConfig struct {
	MinArea         float64 `yaml:"min_area" json:"min_area"`
	CircleMinArea   float64 `yaml:"circle_min_area" json:"circle_min_area"`
	CircleMaxArea   float64 `yaml:"circle_max_area" json:"circle_max_area"`
	CrossMinArea    float64 `yaml:"cross_min_area" json:"cross_min_area"`
	CrossMaxArea    float64 `yaml:"cross_max_area" json:"cross_max_area"`
	MinCircularity  float64 `yaml:"min_circularity" json:"min_circularity"`
	CircleAspectMin float64 `yaml:"circle_aspect_min" json:"circle_aspect_min"`
	CircleAspectMax float64 `yaml:"circle_aspect_max" json:"circle_aspect_max"`
	CrossAspectMin  float64 `yaml:"cross_aspect_min" json:"cross_aspect_min"`
	CrossAspectMax  float64 `yaml:"cross_aspect_max" json:"cross_aspect_max"`
}

// TableConfig controls the ruled-table proximity gate.
type TableConfig struct {
	Disabled       bool `yaml:"disabled" json:"disabled"`
	Padding        int  `yaml:"padding" json:"padding"`
	CannyLow       int  `yaml:"canny_low" json:"canny_low"`
	CannyHigh      int  `yaml:"canny_high" json:"canny_high"`
	HoughThreshold int  `yaml:"hough_threshold" json:"hough_threshold"`
	MinLineLength  int  `yaml:"min_line_length" json:"min_line_length"`
	MaxLineGap     int  `yaml:"max_line_gap" json:"max_line_gap"`
	// MinSegments is exclusive: a mark is accepted when more segments are found.
	MinSegments int `yaml:"min_segments" json:"min_segments"`
}

// MonthConfig controls month recognition inside a mark's region.
type MonthConfig struct {
	Padding       int      `yaml:"padding" json:"padding"`
	Scale         int      `yaml:"scale" json:"scale"`
	Variants      []string `yaml:"variants" json:"variants"`
	Modes         []string `yaml:"modes" json:"modes"`
	Languages     []string `yaml:"languages" json:"languages"`
	Whitelist     string   `yaml:"whitelist" json:"whitelist"`
	ReferenceYear int      `yaml:"reference_year" json:"reference_year"`
}

// TokenConfig controls the page-level OCR pass that finds identifiers.
type TokenConfig struct {
	// Scope is "page" or "left-column".
	Scope          string   `yaml:"scope" json:"scope"`
	ColumnFraction float64  `yaml:"column_fraction" json:"column_fraction"`
	MinConfidence  float64  `yaml:"min_confidence" json:"min_confidence"`
	Languages      []string `yaml:"languages" json:"languages"`
	Mode           string   `yaml:"mode" json:"mode"`
	Whitelist      string   `yaml:"whitelist" json:"whitelist"`
}

// AssociationConfig controls geometric matching between marks and tokens.
type AssociationConfig struct {
	MinHorizontal     int    `yaml:"min_horizontal" json:"min_horizontal"`
	MaxHorizontal     int    `yaml:"max_horizontal" json:"max_horizontal"`
	MaxVertical       int    `yaml:"max_vertical" json:"max_vertical"`
	Nearest           int    `yaml:"nearest" json:"nearest"`
	PrefixMaxVertical int    `yaml:"prefix_max_vertical" json:"prefix_max_vertical"`
	CrossMaxVertical  int    `yaml:"cross_max_vertical" json:"cross_max_vertical"`
	NotePrefix        string `yaml:"note_prefix" json:"note_prefix"`
	NoteDigits        int    `yaml:"note_digits" json:"note_digits"`
	ItemPrefix        string `yaml:"item_prefix" json:"item_prefix"`
	ItemDigits        int    `yaml:"item_digits" json:"item_digits"`
}

// Config is the complete, immutable engine configuration.
type Config struct {
	ReferenceDPI int               `yaml:"reference_dpi" json:"reference_dpi"`
	Workers      int               `yaml:"workers" json:"workers"`
	Color        ColorConfig       `yaml:"color" json:"color"`
	Shape        ShapeConfig       `yaml:"shape" json:"shape"`
	Table        TableConfig       `yaml:"table" json:"table"`
	Month        MonthConfig       `yaml:"month" json:"month"`
	Tokens       TokenConfig       `yaml:"tokens" json:"tokens"`
	Association  AssociationConfig `yaml:"association" json:"association"`
}

// Default returns the thresholds the engine was calibrated with.
func Default() Config {
	return Config{
		ReferenceDPI: 144,
		Workers:      4,
		Color: ColorConfig{
			Ranges: []HSVRange{
				{Lower: [3]int{0, 150, 150}, Upper: [3]int{10, 255, 255}},
				{Lower: [3]int{170, 150, 150}, Upper: [3]int{180, 255, 255}},
			},
			OpenKernel:  3,
			CloseKernel: 5,
		},
		Shape: ShapeConfig{
			MinArea:         50,
			CircleMinArea:   100,
			CircleMaxArea:   2000,
			CrossMinArea:    50,
			CrossMaxArea:    2000,
			MinCircularity:  0.5,
			CircleAspectMin: 0.6,
			CircleAspectMax: 1.7,
			CrossAspectMin:  0.5,
			CrossAspectMax:  2.0,
		},
		Table: TableConfig{
			Padding:        100,
			CannyLow:       50,
			CannyHigh:      150,
			HoughThreshold: 50,
			MinLineLength:  50,
			MaxLineGap:     10,
			MinSegments:    5,
		},
		Month: MonthConfig{
			Padding:       20,
			Scale:         6,
			Variants:      []string{"invert", "otsu", "otsu-inv", "fixed-high", "fixed-low"},
			Modes:         []string{"single-word", "single-char", "single-line"},
			Languages:     []string{"jpn", "eng"},
			Whitelist:     "0123456789月",
			ReferenceYear: 2025,
		},
		Tokens: TokenConfig{
			Scope:          "page",
			ColumnFraction: 0.25,
			MinConfidence:  20,
			Languages:      []string{"jpn", "eng"},
			Mode:           "block",
		},
		Association: AssociationConfig{
			MinHorizontal:     10,
			MaxHorizontal:     300,
			MaxVertical:       100,
			Nearest:           5,
			PrefixMaxVertical: 20,
			CrossMaxVertical:  30,
			NotePrefix:        "T",
			NoteDigits:        6,
			ItemPrefix:        "JS",
			ItemDigits:        4,
		},
	}
}

// Load reads a YAML file and overlays it on Default. Keys absent from the
// file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Marshal renders the configuration as YAML, suitable as a starting file.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// WithReferenceYear returns a copy using year for month canonicalization.
func (c Config) WithReferenceYear(year int) Config {
	c.Month.ReferenceYear = year
	return c
}

// WithWorkers returns a copy with the page-level worker count set.
func (c Config) WithWorkers(n int) Config {
	c.Workers = n
	return c
}

// WithTableFilter returns a copy with the table proximity gate enabled or not.
func (c Config) WithTableFilter(enabled bool) Config {
	c.Table.Disabled = !enabled
	return c
}

// ScaledFor returns a copy whose pixel distances and areas are converted from
// ReferenceDPI to dpi. A non-positive dpi returns c unchanged.
func (c Config) ScaledFor(dpi int) Config {
	if dpi <= 0 || c.ReferenceDPI <= 0 || dpi == c.ReferenceDPI {
		return c
	}
	f := float64(dpi) / float64(c.ReferenceDPI)
	px := func(v int) int {
		s := int(float64(v)*f + 0.5)
		if v > 0 && s < 1 {
			return 1
		}
		return s
	}

	c.Color.Ranges = append([]HSVRange(nil), c.Color.Ranges...)

	c.Shape.MinArea *= f * f
	c.Shape.CircleMinArea *= f * f
	c.Shape.CircleMaxArea *= f * f
	c.Shape.CrossMinArea *= f * f
	c.Shape.CrossMaxArea *= f * f

	c.Table.Padding = px(c.Table.Padding)
	c.Table.HoughThreshold = px(c.Table.HoughThreshold)
	c.Table.MinLineLength = px(c.Table.MinLineLength)
	c.Table.MaxLineGap = px(c.Table.MaxLineGap)

	c.Month.Padding = px(c.Month.Padding)

	c.Association.MinHorizontal = px(c.Association.MinHorizontal)
	c.Association.MaxHorizontal = px(c.Association.MaxHorizontal)
	c.Association.MaxVertical = px(c.Association.MaxVertical)
	c.Association.PrefixMaxVertical = px(c.Association.PrefixMaxVertical)
	c.Association.CrossMaxVertical = px(c.Association.CrossMaxVertical)
	return c
}

var (
	validScopes = map[string]bool{"page": true, "left-column": true}
	validModes  = map[string]bool{
		"single-char": true, "single-word": true, "single-line": true,
		"sparse-text": true, "block": true,
	}
	validVariants = map[string]bool{
		"gray": true, "contrast": true, "denoise": true, "sharpen": true,
		"invert": true, "otsu": true, "otsu-inv": true,
		"fixed-high": true, "fixed-low": true,
		"fixed-high-inv": true, "fixed-low-inv": true,
	}
)

// Validate reports the first inconsistency found. All returned errors wrap
// ErrInvalid.
func (c Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
	}

	if c.ReferenceDPI <= 0 {
		return invalid("reference_dpi must be positive, got %d", c.ReferenceDPI)
	}
	if c.Workers < 1 {
		return invalid("workers must be at least 1, got %d", c.Workers)
	}

	if len(c.Color.Ranges) == 0 {
		return invalid("color.ranges must not be empty")
	}
	for i, r := range c.Color.Ranges {
		limits := [3]int{180, 255, 255}
		for ch := 0; ch < 3; ch++ {
			if r.Lower[ch] < 0 || r.Upper[ch] > limits[ch] || r.Lower[ch] > r.Upper[ch] {
				return invalid("color.ranges[%d] channel %d bounds %d-%d outside 0-%d",
					i, ch, r.Lower[ch], r.Upper[ch], limits[ch])
			}
		}
	}
	if c.Color.OpenKernel < 1 || c.Color.CloseKernel < 1 {
		return invalid("color kernels must be at least 1")
	}

	s := c.Shape
	if s.MinArea <= 0 {
		return invalid("shape.min_area must be positive")
	}
	if s.CircleMinArea > s.CircleMaxArea || s.CrossMinArea > s.CrossMaxArea {
		return invalid("shape area floors must not exceed ceilings")
	}
	if s.MinCircularity <= 0 || s.MinCircularity > 1 {
		return invalid("shape.min_circularity must be in (0,1], got %g", s.MinCircularity)
	}
	if s.CircleAspectMin > s.CircleAspectMax || s.CrossAspectMin > s.CrossAspectMax {
		return invalid("shape aspect minimums must not exceed maximums")
	}

	if !c.Table.Disabled {
		t := c.Table
		if t.Padding < 0 || t.MinLineLength < 1 || t.MaxLineGap < 0 || t.HoughThreshold < 1 {
			return invalid("table line parameters out of range")
		}
		if t.CannyLow < 0 || t.CannyLow > t.CannyHigh || t.CannyHigh > 255 {
			return invalid("table canny thresholds must satisfy 0 <= low <= high <= 255")
		}
	}

	m := c.Month
	if m.Padding < 0 || m.Scale < 1 {
		return invalid("month padding must be >= 0 and scale >= 1")
	}
	if len(m.Variants) == 0 || len(m.Modes) == 0 {
		return invalid("month variants and modes must not be empty")
	}
	for _, v := range m.Variants {
		if !validVariants[v] {
			return invalid("unknown month variant %q", v)
		}
	}
	for _, md := range m.Modes {
		if !validModes[md] {
			return invalid("unknown OCR mode %q", md)
		}
	}
	if m.ReferenceYear < 1 || m.ReferenceYear > 9999 {
		return invalid("month.reference_year must be 1-9999, got %d", m.ReferenceYear)
	}

	tk := c.Tokens
	if !validScopes[tk.Scope] {
		return invalid("unknown tokens.scope %q", tk.Scope)
	}
	if tk.ColumnFraction <= 0 || tk.ColumnFraction > 1 {
		return invalid("tokens.column_fraction must be in (0,1]")
	}
	if tk.MinConfidence < 0 || tk.MinConfidence > 100 {
		return invalid("tokens.min_confidence must be 0-100")
	}
	if !validModes[tk.Mode] {
		return invalid("unknown OCR mode %q", tk.Mode)
	}

	a := c.Association
	if a.MinHorizontal < 0 || a.MaxHorizontal <= a.MinHorizontal || a.MaxVertical <= 0 {
		return invalid("association window must satisfy 0 <= min_horizontal < max_horizontal and max_vertical > 0")
	}
	if a.Nearest < 1 {
		return invalid("association.nearest must be at least 1")
	}
	if a.NotePrefix == "" || a.ItemPrefix == "" || a.NoteDigits < 1 || a.ItemDigits < 1 {
		return invalid("association identifier patterns must have a prefix and digit count")
	}
	return nil
}
