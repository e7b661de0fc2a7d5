package imaging

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/floats"
)

// Variant names understood by Preprocessor.
const (
	VariantGray         = "gray"
	VariantContrast     = "contrast"
	VariantDenoise      = "denoise"
	VariantSharpen      = "sharpen"
	VariantInvert       = "invert"
	VariantOtsu         = "otsu"
	VariantOtsuInv      = "otsu-inv"
	VariantFixedHigh    = "fixed-high"
	VariantFixedLow     = "fixed-low"
	VariantFixedHighInv = "fixed-high-inv"
	VariantFixedLowInv  = "fixed-low-inv"
)

// Fixed binarization levels. Ink darker than the level becomes black.
const (
	fixedHighLevel = 180
	fixedLowLevel  = 100
)

// sharpenKernel boosts the center pixel against its 8 neighbors.
var sharpenKernel = [9]float64{
	-1, -1, -1,
	-1, 9, -1,
	-1, -1, -1,
}

// Variant is one normalized rendition of a handwriting crop.
type Variant struct {
	Name  string
	Image *image.Gray
}

// Preprocessor turns a cropped handwriting region into several candidate
// bitmaps for OCR.
//
// Each configured variant is produced independently from the grayscale crop
// and then upscaled by Scale with a bicubic filter, since month digits on the
// forms are only a few pixels tall at rendering resolution. The preprocessor
// never ranks its output; callers pick the variant whose recognition scores
// best.
type Preprocessor struct {
	names []string
	scale int
}

// NewPreprocessor validates the variant names and returns a preprocessor
// producing them in the given order.
func NewPreprocessor(names []string, scale int) (*Preprocessor, error) {
	if scale < 1 {
		return nil, fmt.Errorf("preprocess scale must be at least 1, got %d", scale)
	}
	for _, n := range names {
		if _, ok := variantFuncs[n]; !ok {
			return nil, fmt.Errorf("unknown preprocessing variant %q", n)
		}
	}
	return &Preprocessor{names: append([]string(nil), names...), scale: scale}, nil
}

// Names returns the configured variant names.
func (p *Preprocessor) Names() []string {
	return append([]string(nil), p.names...)
}

// Variants renders every configured variant of img.
func (p *Preprocessor) Variants(img image.Image) []Variant {
	gray := toGray(img)
	out := make([]Variant, 0, len(p.names))
	for _, name := range p.names {
		v := variantFuncs[name](gray)
		if p.scale > 1 {
			v = toGray(Upscale(v, p.scale))
		}
		out = append(out, Variant{Name: name, Image: v})
	}
	return out
}

var variantFuncs = map[string]func(*image.Gray) *image.Gray{
	VariantGray: func(g *image.Gray) *image.Gray { return g },
	VariantContrast: func(g *image.Gray) *image.Gray {
		return toGray(imaging.AdjustContrast(g, 40))
	},
	VariantDenoise: func(g *image.Gray) *image.Gray {
		return toGray(effect.Median(g, 1))
	},
	VariantSharpen: func(g *image.Gray) *image.Gray {
		return toGray(imaging.Convolve3x3(g, sharpenKernel, nil))
	},
	VariantInvert: invert,
	VariantOtsu: func(g *image.Gray) *image.Gray {
		return binarize(g, OtsuLevel(g))
	},
	VariantOtsuInv: func(g *image.Gray) *image.Gray {
		return invert(binarize(g, OtsuLevel(g)))
	},
	VariantFixedHigh: func(g *image.Gray) *image.Gray {
		return binarize(g, fixedHighLevel)
	},
	VariantFixedLow: func(g *image.Gray) *image.Gray {
		return binarize(g, fixedLowLevel)
	},
	VariantFixedHighInv: func(g *image.Gray) *image.Gray {
		return invert(binarize(g, fixedHighLevel))
	},
	VariantFixedLowInv: func(g *image.Gray) *image.Gray {
		return invert(binarize(g, fixedLowLevel))
	},
}

// OtsuLevel returns the threshold that best separates the luminance histogram
// of img into two classes (maximum between-class variance). Pixels strictly
// above the level belong to the bright class.
func OtsuLevel(img image.Image) uint8 {
	hist := imaging.Histogram(img)
	levels := make([]float64, 256)
	for i := range levels {
		levels[i] = float64(i)
	}
	total := floats.Dot(hist[:], levels)

	var (
		best     uint8
		bestVar  = -1.0
		weight0  float64
		weighted float64
	)
	for t := 0; t < 255; t++ {
		weight0 += hist[t]
		weighted += float64(t) * hist[t]
		weight1 := 1 - weight0
		if weight0 <= 0 || weight1 <= 0 {
			continue
		}
		mean0 := weighted / weight0
		mean1 := (total - weighted) / weight1
		between := weight0 * weight1 * (mean0 - mean1) * (mean0 - mean1)
		if between > bestVar {
			bestVar = between
			best = uint8(t)
		}
	}
	return best
}

// binarize maps pixels above level to white and the rest to black.
func binarize(g *image.Gray, level uint8) *image.Gray {
	if level == 255 {
		return image.NewGray(image.Rect(0, 0, g.Bounds().Dx(), g.Bounds().Dy()))
	}
	return toGray(segment.Threshold(g, level+1))
}

func invert(g *image.Gray) *image.Gray {
	return toGray(effect.Invert(g))
}

// toGray converts any image to an 8-bit grayscale copy anchored at (0,0).
func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(g, g.Bounds(), img, b.Min, draw.Src)
	return g
}
