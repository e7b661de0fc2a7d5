package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/ironsheep/mark-extract/internal/config"
	"github.com/ironsheep/mark-extract/internal/geom"
	"github.com/ironsheep/mark-extract/internal/imaging"
)

// Token scopes.
const (
	ScopePage       = "page"
	ScopeLeftColumn = "left-column"
)

// Token is a recognized word positioned on the page.
type Token struct {
	Text       string     `json:"text" yaml:"text"`
	Box        geom.Box   `json:"bbox" yaml:"bbox"`
	Center     geom.Point `json:"center" yaml:"center"`
	Confidence float64    `json:"confidence" yaml:"confidence"`
}

// TokenLocator recognizes the printed identifiers on a page.
type TokenLocator struct {
	engine Engine
	cfg    config.TokenConfig
	mode   Mode
}

// NewTokenLocator creates a locator. It fails if the configured mode is unknown.
func NewTokenLocator(engine Engine, cfg config.TokenConfig) (*TokenLocator, error) {
	mode, err := ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	return &TokenLocator{engine: engine, cfg: cfg, mode: mode}, nil
}

// Locate runs OCR over the page, or over its left column when so configured,
// and returns the tokens whose confidence exceeds the floor. Token boxes are
// in page coordinates. A page with no text yields no tokens and no error.
func (l *TokenLocator) Locate(ctx context.Context, page *imaging.Page) ([]Token, error) {
	var (
		img    image.Image = page.Image
		origin image.Point
	)
	if l.cfg.Scope == ScopeLeftColumn {
		slice, r, err := imaging.ColumnSlice(page.Image, l.cfg.ColumnFraction)
		if err != nil {
			return nil, fmt.Errorf("failed to slice column: %w", err)
		}
		img, origin = slice, r.Min
	}

	res, err := safeRecognize(ctx, l.engine, Request{
		Image:     img,
		Languages: l.cfg.Languages,
		Mode:      l.mode,
		Whitelist: l.cfg.Whitelist,
	})
	if errors.Is(err, ErrEmptyResult) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to locate tokens on page %d: %w", page.Index, err)
	}
	return l.tokens(res, origin), nil
}

func (l *TokenLocator) tokens(res Result, origin image.Point) []Token {
	tokens := make([]Token, 0, len(res.Words))
	for _, w := range res.Words {
		text := strings.TrimSpace(w.Text)
		if text == "" || w.Confidence <= l.cfg.MinConfidence {
			continue
		}
		box := w.Box.Offset(origin.X, origin.Y)
		tokens = append(tokens, Token{
			Text:       text,
			Box:        box,
			Center:     box.Center(),
			Confidence: w.Confidence,
		})
	}
	return tokens
}
