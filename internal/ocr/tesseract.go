package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"strings"

	"github.com/ironsheep/mark-extract/internal/geom"
	"github.com/otiai10/gosseract/v2"
)

var pageSegModes = map[Mode]gosseract.PageSegMode{
	ModeBlock:      gosseract.PSM_SINGLE_BLOCK,
	ModeSingleLine: gosseract.PSM_SINGLE_LINE,
	ModeSingleWord: gosseract.PSM_SINGLE_WORD,
	ModeSingleChar: gosseract.PSM_SINGLE_CHAR,
	ModeSparseText: gosseract.PSM_SPARSE_TEXT,
}

// TesseractEngine recognizes text with Tesseract through gosseract.
//
// A gosseract client is not safe for concurrent use, so every call creates
// and closes its own client. This costs a Tesseract initialization per call,
// which is small next to recognition itself.
type TesseractEngine struct {
	tessdataPrefix string
}

// TesseractOption configures a TesseractEngine.
type TesseractOption func(*TesseractEngine)

// WithTessdataPrefix points Tesseract at a directory of traineddata files
// instead of its compiled-in default or TESSDATA_PREFIX.
func WithTessdataPrefix(dir string) TesseractOption {
	return func(e *TesseractEngine) { e.tessdataPrefix = dir }
}

// NewTesseractEngine creates a Tesseract-backed engine.
func NewTesseractEngine(opts ...TesseractOption) *TesseractEngine {
	e := &TesseractEngine{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Recognize runs Tesseract on req.Image.
//
// Word boxes come from the RIL_WORD iterator level. If word extraction
// fails the full text is still returned with no words.
func (e *TesseractEngine) Recognize(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if req.Image == nil {
		return Result{}, fmt.Errorf("no image to recognize")
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, req.Image); err != nil {
		return Result{}, fmt.Errorf("failed to encode image: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if e.tessdataPrefix != "" {
		if err := client.SetTessdataPrefix(e.tessdataPrefix); err != nil {
			return Result{}, fmt.Errorf("failed to set tessdata path: %w", err)
		}
	}
	if len(req.Languages) > 0 {
		if err := client.SetLanguage(req.Languages...); err != nil {
			return Result{}, fmt.Errorf("failed to set language: %w", err)
		}
	}
	psm, ok := pageSegModes[req.Mode]
	if !ok {
		return Result{}, fmt.Errorf("unsupported mode %v", req.Mode)
	}
	if err := client.SetPageSegMode(psm); err != nil {
		return Result{}, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if req.Whitelist != "" {
		if err := client.SetWhitelist(req.Whitelist); err != nil {
			return Result{}, fmt.Errorf("failed to set whitelist: %w", err)
		}
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return Result{}, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return Result{}, fmt.Errorf("OCR failed: %w", err)
	}
	res := Result{Text: text}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err == nil {
		res.Words = make([]Word, 0, len(boxes))
		for _, box := range boxes {
			word := strings.TrimSpace(box.Word)
			if word == "" {
				continue
			}
			res.Words = append(res.Words, Word{
				Text:       word,
				Box:        geom.FromRect(box.Box),
				Confidence: box.Confidence,
			})
		}
	}

	if res.Empty() {
		return res, ErrEmptyResult
	}
	return res, nil
}

// Info describes the OCR subsystem.
type Info struct {
	Available bool     `json:"available"`
	Version   string   `json:"version,omitempty"`
	Languages []string `json:"languages,omitempty"`
	Error     string   `json:"error,omitempty"`
	Backend   string   `json:"backend"`
}

// TesseractInfo reports the Tesseract version and installed languages.
func TesseractInfo() Info {
	info := Info{Backend: "gosseract", Version: gosseract.Version()}
	langs, err := gosseract.GetAvailableLanguages()
	if err != nil {
		info.Error = err.Error()
		return info
	}
	info.Available = len(langs) > 0
	info.Languages = langs
	if !info.Available {
		info.Error = "no traineddata installed"
	}
	return info
}
