package detection

import (
	"image"
	"log/slog"
	"sort"

	"github.com/ironsheep/mark-extract/internal/config"
	"github.com/ironsheep/mark-extract/internal/imaging"
)

// Outcome records what happened to a contour during detection.
type Outcome string

const (
	// Accepted contours became marks.
	Accepted Outcome = "accepted"
	// Discarded contours fit neither circle nor cross bounds.
	Discarded Outcome = "discarded"
	// OffTable contours were shaped like marks but had no table nearby.
	OffTable Outcome = "off-table"
	// Degenerate contours have no perimeter.
	Degenerate Outcome = "degenerate"
)

// Candidate is one contour considered during detection, kept for diagnostics.
type Candidate struct {
	Metrics `yaml:",inline"`
	Kind    Kind    `json:"kind" yaml:"kind"`
	Outcome Outcome `json:"outcome" yaml:"outcome"`
}

// Result is the outcome of detecting marks on one page.
type Result struct {
	// Marks are the accepted marks ordered top-to-bottom, then left-to-right.
	Marks []Mark `json:"marks"`

	// Candidates lists every contour examined, accepted or not.
	Candidates []Candidate `json:"candidates,omitempty"`

	// Discarded counts contours that fit neither shape (including degenerate ones).
	Discarded int `json:"discarded"`

	// TableRejected counts classified marks dropped by the table proximity gate.
	TableRejected int `json:"table_rejected"`

	// RawMask and Mask are the color mask before and after cleanup.
	RawMask *image.Gray `json:"-"`
	Mask    *image.Gray `json:"-"`
}

// Circles returns the accepted circle marks.
func (r Result) Circles() []Mark {
	var out []Mark
	for _, m := range r.Marks {
		if m.Kind == Circle {
			out = append(out, m)
		}
	}
	return out
}

// Detector finds colored marks on a page:
// color mask, cleanup, external contours, shape classification, then the
// table proximity gate.
//
// The configuration must already be scaled to the page resolution (see
// config.Config.ScaledFor). A Detector holds no per-page state and may be
// used from several goroutines.
type Detector struct {
	cfg        config.Config
	classifier *ShapeClassifier
	filter     *TableProximityFilter
	logger     *slog.Logger
}

// NewDetector creates a detector. A nil logger discards output.
func NewDetector(cfg config.Config, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Detector{
		cfg:        cfg,
		classifier: NewShapeClassifier(cfg.Shape),
		filter:     NewTableProximityFilter(cfg.Table),
		logger:     logger,
	}
}

// Detect runs the detection chain on page.
func (d *Detector) Detect(page *imaging.Page) Result {
	raw := imaging.ColorMask(page.Image, d.cfg.Color.Ranges)
	mask := imaging.CleanMask(raw, d.cfg.Color.OpenKernel, d.cfg.Color.CloseKernel)
	res := Result{RawMask: raw, Mask: mask}

	for _, c := range TraceExternalContours(mask) {
		m := MeasureContour(c)
		cand := Candidate{Metrics: m}

		if m.Perimeter <= 0 {
			cand.Outcome = Degenerate
			res.Discarded++
			res.Candidates = append(res.Candidates, cand)
			continue
		}

		cand.Kind = d.classifier.Classify(m)
		if cand.Kind == Unknown {
			cand.Outcome = Discarded
			res.Discarded++
			res.Candidates = append(res.Candidates, cand)
			continue
		}

		mark := Mark{Kind: cand.Kind, Metrics: m}
		if !d.filter.Accept(page.Image, mark) {
			cand.Outcome = OffTable
			res.TableRejected++
			res.Candidates = append(res.Candidates, cand)
			d.logger.Debug("mark rejected away from table",
				"page", page.Index, "kind", mark.Kind.String(),
				"x", m.Box.X, "y", m.Box.Y, "w", m.Box.W, "h", m.Box.H)
			continue
		}

		cand.Outcome = Accepted
		res.Candidates = append(res.Candidates, cand)
		res.Marks = append(res.Marks, mark)
	}

	sort.SliceStable(res.Marks, func(i, j int) bool {
		a, b := res.Marks[i].Box, res.Marks[j].Box
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
	for i := range res.Marks {
		res.Marks[i].ID = i + 1
		m := res.Marks[i]
		d.logger.Debug("mark accepted",
			"page", page.Index, "id", m.ID, "kind", m.Kind.String(),
			"x", m.Box.X, "y", m.Box.Y, "w", m.Box.W, "h", m.Box.H,
			"circularity", m.Circularity, "aspect", m.AspectRatio)
	}
	return res
}
