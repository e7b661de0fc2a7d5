package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ironsheep/mark-extract/internal/config"
	"github.com/ironsheep/mark-extract/internal/geom"
	"github.com/ironsheep/mark-extract/internal/ocr"
)

// Identifiers are the row identifiers found beside a mark.
type Identifiers struct {
	Note Field[string] `json:"note_number"`
	Item Field[string] `json:"item_number"`

	// Candidates are the ranked tokens that were examined, nearest first.
	Candidates []ocr.Token `json:"candidates,omitempty"`
}

// Any reports whether at least one identifier resolved.
func (ids Identifiers) Any() bool {
	return ids.Note.Resolved || ids.Item.Resolved
}

// SpatialAssociator matches a mark to the identifier tokens on its left.
//
// The search window holds tokens whose center lies MinHorizontal to
// MaxHorizontal pixels left of the anchor (both exclusive) and less than
// MaxVertical pixels above or below it. Window tokens are ranked by
// horizontal distance, then vertical distance, and the nearest Nearest are
// classified. The first note and the first item in rank order win.
//
// A bare digit run of the item length is combined with a lone item prefix
// token in the window whose center is within PrefixMaxVertical rows, since
// OCR often splits "JS 1234" in two.
type SpatialAssociator struct {
	cfg    config.AssociationConfig
	note   *regexp.Regexp
	item   *regexp.Regexp
	digits *regexp.Regexp
}

// NewSpatialAssociator compiles the identifier patterns from cfg.
func NewSpatialAssociator(cfg config.AssociationConfig) (*SpatialAssociator, error) {
	if cfg.NoteDigits < 1 || cfg.ItemDigits < 1 {
		return nil, fmt.Errorf("identifier digit counts must be positive")
	}
	return &SpatialAssociator{
		cfg:    cfg,
		note:   regexp.MustCompile(fmt.Sprintf(`(?i)^%s(\d{%d})$`, regexp.QuoteMeta(cfg.NotePrefix), cfg.NoteDigits)),
		item:   regexp.MustCompile(fmt.Sprintf(`(?i)^%s(\d{%d})$`, regexp.QuoteMeta(cfg.ItemPrefix), cfg.ItemDigits)),
		digits: regexp.MustCompile(fmt.Sprintf(`^\d{%d}$`, cfg.ItemDigits)),
	}, nil
}

type ranked struct {
	tok    ocr.Token
	dx, dy int
}

// Window returns the tokens inside the search window of anchor, nearest
// first. It never returns a token outside the configured caps.
func (a *SpatialAssociator) Window(anchor geom.Point, tokens []ocr.Token) []ocr.Token {
	r := a.window(anchor, tokens)
	out := make([]ocr.Token, len(r))
	for i, c := range r {
		out[i] = c.tok
	}
	return out
}

func (a *SpatialAssociator) window(anchor geom.Point, tokens []ocr.Token) []ranked {
	var in []ranked
	for _, t := range tokens {
		dx := anchor.X - t.Center.X
		dy := geom.Abs(anchor.Y - t.Center.Y)
		if dx > a.cfg.MinHorizontal && dx < a.cfg.MaxHorizontal && dy < a.cfg.MaxVertical {
			in = append(in, ranked{tok: t, dx: dx, dy: dy})
		}
	}
	sort.SliceStable(in, func(i, j int) bool {
		if in[i].dx != in[j].dx {
			return in[i].dx < in[j].dx
		}
		return in[i].dy < in[j].dy
	})
	return in
}

// Associate finds the note and item identifiers for a mark centered at anchor.
func (a *SpatialAssociator) Associate(anchor geom.Point, tokens []ocr.Token) Identifiers {
	window := a.window(anchor, tokens)
	nearest := window
	if a.cfg.Nearest > 0 && len(nearest) > a.cfg.Nearest {
		nearest = nearest[:a.cfg.Nearest]
	}

	var ids Identifiers
	for _, c := range nearest {
		ids.Candidates = append(ids.Candidates, c.tok)
		text := stripSpace(c.tok.Text)

		if !ids.Note.Resolved {
			if m := a.note.FindStringSubmatch(text); m != nil {
				ids.Note = Resolve(strings.ToUpper(a.cfg.NotePrefix) + m[1])
				continue
			}
		}
		if ids.Item.Resolved {
			continue
		}
		if m := a.item.FindStringSubmatch(text); m != nil {
			ids.Item = Resolve(strings.ToUpper(a.cfg.ItemPrefix) + m[1])
			continue
		}
		if a.digits.MatchString(text) && a.prefixNear(window, c.tok) {
			ids.Item = Resolve(strings.ToUpper(a.cfg.ItemPrefix) + text)
		}
	}
	return ids
}

// prefixNear reports whether a bare item prefix token sits on the same row
// as digits.
func (a *SpatialAssociator) prefixNear(window []ranked, digits ocr.Token) bool {
	for _, c := range window {
		if !strings.EqualFold(stripSpace(c.tok.Text), a.cfg.ItemPrefix) {
			continue
		}
		if geom.Abs(c.tok.Center.Y-digits.Center.Y) < a.cfg.PrefixMaxVertical {
			return true
		}
	}
	return false
}

func stripSpace(s string) string {
	return strings.Join(strings.Fields(s), "")
}
