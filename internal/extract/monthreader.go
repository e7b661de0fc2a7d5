package extract

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/ironsheep/mark-extract/internal/config"
	"github.com/ironsheep/mark-extract/internal/detection"
	"github.com/ironsheep/mark-extract/internal/imaging"
	"github.com/ironsheep/mark-extract/internal/month"
	"github.com/ironsheep/mark-extract/internal/ocr"
)

// MonthReading is the month recognized inside one mark.
type MonthReading struct {
	Month      month.Canonical `json:"month"`
	Text       string          `json:"text"`
	Variant    string          `json:"variant"`
	Mode       ocr.Mode        `json:"mode"`
	Confidence float64         `json:"confidence"`

	// Attempts counts engine invocations, Failed those that produced nothing.
	Attempts int `json:"attempts"`
	Failed   int `json:"failed"`

	// ROI and Variants are the bitmaps that were recognized.
	ROI      image.Image       `json:"-"`
	Variants []imaging.Variant `json:"-"`
}

// MonthReader recognizes the handwritten month inside a mark.
//
// The padded mark region is rendered in every configured preprocessing
// variant, each variant is recognized in every configured mode, and the most
// confident attempt whose text parses as a month wins.
type MonthReader struct {
	pre     *imaging.Preprocessor
	adapter *ocr.Adapter
	parser  *month.Parser
	hint    ocr.Hint
	padding int
}

// NewMonthReader builds a reader from the month configuration.
func NewMonthReader(engine ocr.Engine, cfg config.MonthConfig, logger *slog.Logger) (*MonthReader, error) {
	pre, err := imaging.NewPreprocessor(cfg.Variants, cfg.Scale)
	if err != nil {
		return nil, err
	}
	modes, err := ocr.ParseModes(cfg.Modes)
	if err != nil {
		return nil, err
	}
	return &MonthReader{
		pre:     pre,
		adapter: ocr.NewAdapter(engine, modes, logger),
		parser:  month.NewParser(cfg.ReferenceYear),
		hint:    ocr.Hint{Languages: cfg.Languages, Whitelist: cfg.Whitelist},
		padding: cfg.Padding,
	}, nil
}

// Read recognizes the month written inside m. Every failure wraps
// month.ErrUnresolved.
func (r *MonthReader) Read(ctx context.Context, page *imaging.Page, m detection.Mark) (MonthReading, error) {
	roi, _, err := imaging.PaddedCrop(page.Image, m.Box.Rect(), r.padding)
	if err != nil {
		return MonthReading{}, fmt.Errorf("%w: %w", month.ErrUnresolved, err)
	}
	reading := MonthReading{ROI: roi, Variants: r.pre.Variants(roi)}

	attempts := r.adapter.Attempts(ctx, reading.Variants, r.hint)
	reading.Attempts = len(attempts)
	for _, a := range attempts {
		if !a.OK() {
			reading.Failed++
		}
	}
	if err := ctx.Err(); err != nil {
		return reading, fmt.Errorf("%w: %w", month.ErrUnresolved, err)
	}

	best, ok := ocr.Best(attempts, func(a ocr.Attempt) bool {
		_, err := r.parser.Parse(a.Result.Text)
		return err == nil
	})
	if !ok {
		return reading, fmt.Errorf("%w: no parsable text in %d attempts (%d failed)",
			month.ErrUnresolved, reading.Attempts, reading.Failed)
	}

	c, err := r.parser.Parse(best.Result.Text)
	if err != nil {
		return reading, err
	}
	reading.Month = c
	reading.Text = best.Result.Text
	reading.Variant = best.Variant
	reading.Mode = best.Mode
	reading.Confidence = best.Result.MeanConfidence()
	return reading, nil
}
