package detection

import (
	"image"
	"testing"

	"github.com/ironsheep/mark-extract/internal/config"
)

func TestTableProximityFilter(t *testing.T) {
	cfg := config.Default().Table

	ruled := createTestImage(400, 300, white)
	drawTable(ruled, 20, 30, 380, 270, 30, []int{20, 120, 240, 380})
	drawRing(ruled, 180, 105, 10, 4, red)

	blank := createTestImage(400, 300, white)
	drawRing(blank, 180, 105, 10, 4, red)

	mark := func(img *image.RGBA) Mark {
		t.Helper()
		contours := TraceExternalContours(maskFrom(img, red))
		if len(contours) != 1 {
			t.Fatalf("got %d contours, want 1", len(contours))
		}
		return Mark{Kind: Circle, Metrics: MeasureContour(contours[0])}
	}

	t.Run("beside a table", func(t *testing.T) {
		f := NewTableProximityFilter(cfg)
		m := mark(ruled)
		if !f.Accept(ruled, m) {
			t.Errorf("mark beside table rejected; segments: %+v", f.Segments(ruled, m.Box))
		}
	})

	t.Run("segments are in page coordinates", func(t *testing.T) {
		f := NewTableProximityFilter(cfg)
		for _, l := range f.Segments(ruled, mark(ruled).Box) {
			if l.Start.X < 16 || l.End.X > 386 || l.Start.Y < 26 || l.End.Y > 276 {
				t.Errorf("segment %+v lies outside the ruled area", l)
			}
		}
	})

	t.Run("blank page", func(t *testing.T) {
		f := NewTableProximityFilter(cfg)
		if f.Accept(blank, mark(blank)) {
			t.Error("mark on blank page accepted")
		}
	})

	t.Run("disabled accepts everything", func(t *testing.T) {
		off := cfg
		off.Disabled = true
		if !NewTableProximityFilter(off).Accept(blank, mark(blank)) {
			t.Error("disabled filter rejected a mark")
		}
	})
}
