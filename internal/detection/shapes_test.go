package detection

import (
	"testing"

	"github.com/ironsheep/mark-extract/internal/config"
)

func TestShapeClassifier_Classify(t *testing.T) {
	c := NewShapeClassifier(config.Default().Shape)

	tests := []struct {
		name string
		m    Metrics
		want Kind
	}{
		{"round ring", Metrics{Area: 500, Perimeter: 85, Circularity: 0.87, AspectRatio: 1.0}, Circle},
		{"slightly oval", Metrics{Area: 400, Perimeter: 80, Circularity: 0.6, AspectRatio: 1.5}, Circle},
		{"circularity at the threshold", Metrics{Area: 500, Perimeter: 85, Circularity: 0.5, AspectRatio: 1}, Circle},
		{"cross", Metrics{Area: 220, Perimeter: 150, Circularity: 0.12, AspectRatio: 1.0}, Cross},
		{"tall cross", Metrics{Area: 220, Perimeter: 150, Circularity: 0.12, AspectRatio: 0.5}, Cross},
		{"round but too long", Metrics{Area: 500, Perimeter: 85, Circularity: 0.8, AspectRatio: 3}, Unknown},
		{"round but too big", Metrics{Area: 5000, Perimeter: 250, Circularity: 0.9, AspectRatio: 1}, Unknown},
		{"round but below circle area", Metrics{Area: 80, Perimeter: 30, Circularity: 0.9, AspectRatio: 1}, Unknown},
		{"thin stroke", Metrics{Area: 120, Perimeter: 200, Circularity: 0.04, AspectRatio: 6}, Unknown},
		{"cross too big", Metrics{Area: 2500, Perimeter: 600, Circularity: 0.09, AspectRatio: 1}, Unknown},
		{"speck", Metrics{Area: 10, Perimeter: 12, Circularity: 0.9, AspectRatio: 1}, Unknown},
		{"zero perimeter", Metrics{Area: 500, Perimeter: 0, AspectRatio: 1}, Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.m); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShapeClassifier_CircleRegion(t *testing.T) {
	cfg := config.Default().Shape
	c := NewShapeClassifier(cfg)

	for circ := cfg.MinCircularity; circ <= 1.0; circ += 0.05 {
		for aspect := cfg.CircleAspectMin; aspect <= cfg.CircleAspectMax; aspect += 0.1 {
			m := Metrics{Area: 500, Perimeter: 90, Circularity: circ, AspectRatio: aspect}
			if got := c.Classify(m); got != Circle {
				t.Errorf("circularity %.2f aspect %.2f: got %v, want circle", circ, aspect, got)
			}
		}
	}
}

func TestShapeClassifier_DrawnShapes(t *testing.T) {
	c := NewShapeClassifier(config.Default().Shape)

	img := createTestImage(120, 60, white)
	drawRing(img, 30, 30, 12, 4, red)
	drawCross(img, 90, 30, 12, red)

	contours := TraceExternalContours(maskFrom(img, red))
	if len(contours) != 2 {
		t.Fatalf("got %d contours, want 2", len(contours))
	}

	ring := MeasureContour(contours[0])
	if got := c.Classify(ring); got != Circle {
		t.Errorf("ring classified as %v (metrics %+v)", got, ring)
	}
	cross := MeasureContour(contours[1])
	if got := c.Classify(cross); got != Cross {
		t.Errorf("cross classified as %v (metrics %+v)", got, cross)
	}
}

func TestKind_Text(t *testing.T) {
	for _, k := range []Kind{Unknown, Circle, Cross} {
		text, err := k.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v): %v", k, err)
		}
		var back Kind
		if err := back.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%q): %v", text, err)
		}
		if back != k {
			t.Errorf("round trip of %v gave %v", k, back)
		}
	}

	var k Kind
	if err := k.UnmarshalText([]byte("triangle")); err == nil {
		t.Error("expected error for unknown kind name")
	}
}
