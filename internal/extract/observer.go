package extract

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"github.com/ironsheep/mark-extract/internal/detection"
	"github.com/ironsheep/mark-extract/internal/imaging"
)

// Observer receives intermediate images for inspection. It is never needed
// for correctness and must not modify the images. Implementations must be
// safe for concurrent use, since pages and marks are processed in parallel.
type Observer interface {
	Observe(page int, name string, img image.Image)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(page int, name string, img image.Image)

// Observe calls f.
func (f ObserverFunc) Observe(page int, name string, img image.Image) { f(page, name, img) }

// NopObserver discards everything.
type NopObserver struct{}

// Observe does nothing.
func (NopObserver) Observe(int, string, image.Image) {}

// DirObserver writes every artifact as a PNG file into a directory.
// Write failures are logged, not returned.
type DirObserver struct {
	dir    string
	logger *slog.Logger
}

// NewDirObserver creates dir if needed.
func NewDirObserver(dir string, logger *slog.Logger) (*DirObserver, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create debug directory: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DirObserver{dir: dir, logger: logger}, nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Path returns the file an artifact is written to.
func (o *DirObserver) Path(page int, name string) string {
	return filepath.Join(o.dir, fmt.Sprintf("page-%03d-%s.png", page+1, unsafeName.ReplaceAllString(name, "_")))
}

// Observe saves img.
func (o *DirObserver) Observe(page int, name string, img image.Image) {
	path := o.Path(page, name)
	if err := imaging.SavePNG(img, path); err != nil {
		o.logger.Warn("failed to write debug image", "path", path, "error", err)
	}
}

var maskColor = color.RGBA{255, 255, 255, 255}

func (p *Pipeline) observing() bool {
	_, nop := p.observer.(NopObserver)
	return !nop
}

// observeDetection reports the masks and an overlay of accepted and rejected
// candidates.
func (p *Pipeline) observeDetection(page *imaging.Page, det detection.Result) {
	if !p.observing() {
		return
	}
	if det.RawMask != nil {
		p.observer.Observe(page.Index, "mask-raw", imaging.MaskToImage(det.RawMask, maskColor))
	}
	if det.Mask != nil {
		p.observer.Observe(page.Index, "mask", imaging.MaskToImage(det.Mask, maskColor))
	}

	var notes []imaging.Annotation
	for _, c := range det.Candidates {
		if c.Outcome == detection.Accepted {
			continue
		}
		notes = append(notes, imaging.Annotation{
			Rect:  c.Box.Rect(),
			Label: string(c.Outcome),
			Color: imaging.RejectedColor,
		})
	}
	for _, m := range det.Marks {
		c := imaging.CircleColor
		if m.Kind == detection.Cross {
			c = imaging.CrossColor
		}
		notes = append(notes, imaging.Annotation{
			Rect:  m.Box.Rect(),
			Label: fmt.Sprintf("#%d %s", m.ID, m.Kind),
			Color: c,
		})
	}
	p.observer.Observe(page.Index, "detections", imaging.Annotate(page.Image, notes))
}

// observeReading reports the month region of a mark and its variants.
func (p *Pipeline) observeReading(page, markID int, r MonthReading) {
	if !p.observing() || r.ROI == nil {
		return
	}
	p.observer.Observe(page, fmt.Sprintf("mark-%02d-roi", markID), r.ROI)
	for _, v := range r.Variants {
		p.observer.Observe(page, fmt.Sprintf("mark-%02d-%s", markID, v.Name), v.Image)
	}
}
