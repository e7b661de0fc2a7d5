package detection

import (
	"image"

	"github.com/ironsheep/mark-extract/internal/config"
	"github.com/ironsheep/mark-extract/internal/geom"
	"github.com/ironsheep/mark-extract/internal/imaging"
)

// TableProximityFilter accepts marks that sit next to ruled table structure.
//
// Genuine annotations are drawn beside the rows of a printed table; a red
// blob on blank margin is almost always scanner noise or a stray stroke. The
// filter crops a padded window around the mark, runs Canny and counts the
// straight segments in it.
type TableProximityFilter struct {
	cfg config.TableConfig
}

// NewTableProximityFilter creates a filter from the table thresholds.
func NewTableProximityFilter(cfg config.TableConfig) *TableProximityFilter {
	return &TableProximityFilter{cfg: cfg}
}

// Segments returns the line segments found in the padded window around box,
// in page coordinates.
func (f *TableProximityFilter) Segments(img image.Image, box geom.Box) []Line {
	crop, r, err := imaging.PaddedCrop(img, box.Rect(), f.cfg.Padding)
	if err != nil {
		return nil
	}
	edges := imaging.EdgeDetect(crop, f.cfg.CannyLow, f.cfg.CannyHigh)
	lines := DetectLineSegments(edges, LineParams{
		Threshold: f.cfg.HoughThreshold,
		MinLength: f.cfg.MinLineLength,
		MaxGap:    f.cfg.MaxLineGap,
		// One more than needed is enough to decide.
		MaxLines: f.cfg.MinSegments + 1,
	})
	for i := range lines {
		lines[i].Start.X += r.Min.X
		lines[i].Start.Y += r.Min.Y
		lines[i].End.X += r.Min.X
		lines[i].End.Y += r.Min.Y
	}
	return lines
}

// Accept reports whether more than MinSegments segments surround the mark.
// A disabled filter accepts everything.
func (f *TableProximityFilter) Accept(img image.Image, m Mark) bool {
	if f.cfg.Disabled {
		return true
	}
	return len(f.Segments(img, m.Box)) > f.cfg.MinSegments
}
