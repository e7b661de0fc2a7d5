package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/ironsheep/mark-extract/internal/geom"
	"gonum.org/v1/gonum/stat"
)

// ErrEmptyResult is returned when the engine recognized nothing.
var ErrEmptyResult = errors.New("ocr returned no text")

// Mode tells the engine how the text in a bitmap is laid out.
type Mode int

const (
	// ModeBlock treats the image as one uniform block of text.
	ModeBlock Mode = iota
	// ModeSingleLine treats the image as a single text line.
	ModeSingleLine
	// ModeSingleWord treats the image as a single word.
	ModeSingleWord
	// ModeSingleChar treats the image as a single character.
	ModeSingleChar
	// ModeSparseText finds as much text as possible in no particular order.
	ModeSparseText
)

var modeNames = map[Mode]string{
	ModeBlock:      "block",
	ModeSingleLine: "single-line",
	ModeSingleWord: "single-word",
	ModeSingleChar: "single-char",
	ModeSparseText: "sparse-text",
}

// String returns the configuration name of the mode.
func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// MarshalText encodes the mode as its configuration name.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// ParseMode converts a configuration name such as "single-char" to a Mode.
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown recognition mode %q", s)
}

// ParseModes converts a list of mode names, failing on the first unknown one.
func ParseModes(names []string) ([]Mode, error) {
	modes := make([]Mode, 0, len(names))
	for _, n := range names {
		m, err := ParseMode(n)
		if err != nil {
			return nil, err
		}
		modes = append(modes, m)
	}
	return modes, nil
}

// Request is one engine invocation.
type Request struct {
	// Image is the bitmap to recognize.
	Image image.Image

	// Languages are engine language codes, e.g. "jpn" and "eng".
	Languages []string

	// Mode is the page segmentation hint.
	Mode Mode

	// Whitelist restricts recognized characters. Empty allows all.
	Whitelist string
}

// Word is one recognized word.
type Word struct {
	Text string `json:"text"`

	// Box is in the coordinate space of the request image.
	Box geom.Box `json:"bbox"`

	// Confidence ranges from 0 to 100. Engines that report none leave it 0.
	Confidence float64 `json:"confidence"`
}

// Result is the output of one engine invocation.
type Result struct {
	// Text is the full recognized text with the engine's line breaks.
	Text string `json:"text"`

	// Words may be empty even when Text is not, if word boxes were unavailable.
	Words []Word `json:"words,omitempty"`
}

// Empty reports whether the result carries no text at all.
func (r Result) Empty() bool {
	if strings.TrimSpace(r.Text) != "" {
		return false
	}
	for _, w := range r.Words {
		if strings.TrimSpace(w.Text) != "" {
			return false
		}
	}
	return true
}

// MeanConfidence is the average word confidence, or 0 without words.
func (r Result) MeanConfidence() float64 {
	if len(r.Words) == 0 {
		return 0
	}
	conf := make([]float64, len(r.Words))
	for i, w := range r.Words {
		conf[i] = w.Confidence
	}
	return stat.Mean(conf, nil)
}

// Engine is an OCR backend.
//
// Implementations must be safe for concurrent use. A failed invocation is
// reported as an error; callers treat it as "no results" for that attempt.
type Engine interface {
	Recognize(ctx context.Context, req Request) (Result, error)
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(ctx context.Context, req Request) (Result, error)

// Recognize calls f.
func (f EngineFunc) Recognize(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}
