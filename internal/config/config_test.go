package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no color ranges", func(c *Config) { c.Color.Ranges = nil }},
		{"hue above 180", func(c *Config) { c.Color.Ranges[0].Upper[0] = 200 }},
		{"inverted saturation", func(c *Config) { c.Color.Ranges[1].Lower[1] = 255; c.Color.Ranges[1].Upper[1] = 10 }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"circularity above one", func(c *Config) { c.Shape.MinCircularity = 1.5 }},
		{"circle area floor above ceiling", func(c *Config) { c.Shape.CircleMinArea = 5000 }},
		{"canny low above high", func(c *Config) { c.Table.CannyLow = 200 }},
		{"unknown variant", func(c *Config) { c.Month.Variants = []string{"sepia"} }},
		{"unknown mode", func(c *Config) { c.Month.Modes = []string{"psm-99"} }},
		{"year zero", func(c *Config) { c.Month.ReferenceYear = 0 }},
		{"bad scope", func(c *Config) { c.Tokens.Scope = "right-column" }},
		{"confidence above 100", func(c *Config) { c.Tokens.MinConfidence = 101 }},
		{"empty window", func(c *Config) { c.Association.MaxHorizontal = c.Association.MinHorizontal }},
		{"no nearest", func(c *Config) { c.Association.Nearest = 0 }},
		{"no item prefix", func(c *Config) { c.Association.ItemPrefix = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("error %v does not wrap ErrInvalid", err)
			}
		})
	}
}

func TestValidate_DisabledTableSkipsLineChecks(t *testing.T) {
	cfg := Default().WithTableFilter(false)
	cfg.Table.CannyLow = 300
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled table filter should not be validated: %v", err)
	}
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marks.yaml")
	data := []byte(`
workers: 2
month:
  reference_year: 2026
association:
  max_horizontal: 250
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Workers != 2 {
		t.Errorf("Workers = %d, want 2", cfg.Workers)
	}
	if cfg.Month.ReferenceYear != 2026 {
		t.Errorf("ReferenceYear = %d, want 2026", cfg.Month.ReferenceYear)
	}
	if cfg.Association.MaxHorizontal != 250 {
		t.Errorf("MaxHorizontal = %d, want 250", cfg.Association.MaxHorizontal)
	}
	// Untouched keys keep defaults.
	if cfg.Association.MaxVertical != 100 {
		t.Errorf("MaxVertical = %d, want default 100", cfg.Association.MaxVertical)
	}
	if len(cfg.Color.Ranges) != 2 {
		t.Errorf("Color.Ranges = %d entries, want default 2", len(cfg.Color.Ranges))
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("workers: -3\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, err := Load(path); !errors.Is(err, ErrInvalid) {
		t.Errorf("Load() error = %v, want ErrInvalid", err)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestMarshal_RoundTripsThroughLoad(t *testing.T) {
	want := Default().WithReferenceYear(2030)
	data, err := want.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "full.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Month.ReferenceYear != 2030 {
		t.Errorf("ReferenceYear = %d, want 2030", got.Month.ReferenceYear)
	}
}

func TestScaledFor(t *testing.T) {
	base := Default()

	same := base.ScaledFor(144)
	if same.Association.MaxHorizontal != 300 {
		t.Errorf("same DPI changed MaxHorizontal to %d", same.Association.MaxHorizontal)
	}
	if unchanged := base.ScaledFor(0); unchanged.Table.Padding != 100 {
		t.Errorf("zero DPI changed Padding to %d", unchanged.Table.Padding)
	}

	double := base.ScaledFor(288)
	if double.Association.MaxHorizontal != 600 {
		t.Errorf("MaxHorizontal at 288 DPI = %d, want 600", double.Association.MaxHorizontal)
	}
	if double.Association.CrossMaxVertical != 60 {
		t.Errorf("CrossMaxVertical at 288 DPI = %d, want 60", double.Association.CrossMaxVertical)
	}
	if double.Shape.CircleMaxArea != 8000 {
		t.Errorf("CircleMaxArea at 288 DPI = %g, want 8000", double.Shape.CircleMaxArea)
	}
	if double.Month.Padding != 40 {
		t.Errorf("Month.Padding at 288 DPI = %d, want 40", double.Month.Padding)
	}
	// Thresholds that are not distances stay put.
	if double.Shape.MinCircularity != base.Shape.MinCircularity {
		t.Errorf("MinCircularity changed to %g", double.Shape.MinCircularity)
	}
	if double.Table.MinSegments != base.Table.MinSegments {
		t.Errorf("MinSegments changed to %d", double.Table.MinSegments)
	}

	// The receiver is not modified.
	if base.Association.MaxHorizontal != 300 {
		t.Errorf("ScaledFor mutated receiver: %d", base.Association.MaxHorizontal)
	}
}
