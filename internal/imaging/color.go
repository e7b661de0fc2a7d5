package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/mark-extract/internal/config"
)

// HSV is a color in the 8-bit hue/saturation/value scale used by the mask
// configuration: H 0-180 (half degrees), S 0-255, V 0-255.
type HSV struct {
	H int `json:"h"`
	S int `json:"s"`
	V int `json:"v"`
}

// In reports whether the color lies inside the inclusive range r.
func (c HSV) In(r config.HSVRange) bool {
	return c.H >= r.Lower[0] && c.H <= r.Upper[0] &&
		c.S >= r.Lower[1] && c.S <= r.Upper[1] &&
		c.V >= r.Lower[2] && c.V <= r.Upper[2]
}

// InAny reports whether the color lies inside at least one of ranges.
func (c HSV) InAny(ranges []config.HSVRange) bool {
	for _, r := range ranges {
		if c.In(r) {
			return true
		}
	}
	return false
}

// ToHSV converts 8-bit RGB to the half-degree HSV scale.
//
// go-colorful reports hue in degrees [0,360) and saturation/value in [0,1].
// Hue is halved so that it fits a byte, matching the ranges operators are used
// to tuning; saturation and value are stretched to 0-255.
func ToHSV(r, g, b uint8) HSV {
	c := colorful.Color{R: float64(r) / 255.0, G: float64(g) / 255.0, B: float64(b) / 255.0}
	h, s, v := c.Hsv()
	return HSV{
		H: int(math.Round(h / 2)),
		S: int(math.Round(s * 255)),
		V: int(math.Round(v * 255)),
	}
}

// ColorSample describes one pixel, for calibrating color ranges.
type ColorSample struct {
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Hex     string `json:"hex"`
	HSV     HSV    `json:"hsv"`
	InRange bool   `json:"in_range"`
}

// SampleColor reads the pixel at (x, y) and reports its HSV value and whether
// the configured ranges would select it.
func SampleColor(img image.Image, x, y int, ranges []config.HSVRange) (*ColorSample, error) {
	bounds := img.Bounds()
	if x < bounds.Min.X || x >= bounds.Max.X || y < bounds.Min.Y || y >= bounds.Max.Y {
		return nil, fmt.Errorf("coordinates (%d,%d) outside image bounds", x, y)
	}

	c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
	hsv := ToHSV(c.R, c.G, c.B)
	return &ColorSample{
		X:       x,
		Y:       y,
		Hex:     fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B),
		HSV:     hsv,
		InRange: hsv.InAny(ranges),
	}, nil
}

// ColorMask returns a binary mask of the pixels whose color falls into any of
// the ranges. Selected pixels are 255, all others 0. The mask has the same size
// as img and its origin at (0,0).
//
// Ranges are OR-ed: a target hue that wraps past the top of the hue circle
// (red) is expressed as two ranges, one at each end. Fully transparent pixels
// are never selected.
func ColorMask(img image.Image, ranges []config.HSVRange) *image.Gray {
	src, ok := img.(*image.NRGBA)
	if !ok || src.Bounds().Min != (image.Point{}) {
		src = imaging.Clone(img)
	}
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	mask := image.NewGray(image.Rect(0, 0, w, h))
	if len(ranges) == 0 {
		return mask
	}

	// Scanned pages have few distinct colors; memoize conversions.
	seen := make(map[[3]uint8]bool)
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		for x := 0; x < w; x++ {
			p := row[x*4 : x*4+4]
			if p[3] == 0 {
				continue
			}
			key := [3]uint8{p[0], p[1], p[2]}
			hit, cached := seen[key]
			if !cached {
				hit = ToHSV(p[0], p[1], p[2]).InAny(ranges)
				if len(seen) < 1<<16 {
					seen[key] = hit
				}
			}
			if hit {
				mask.Pix[y*mask.Stride+x] = 255
			}
		}
	}
	return mask
}

// CountSet returns the number of non-zero pixels in a mask.
func CountSet(mask *image.Gray) int {
	n := 0
	b := mask.Bounds()
	for y := 0; y < b.Dy(); y++ {
		row := mask.Pix[y*mask.Stride : y*mask.Stride+b.Dx()]
		for _, v := range row {
			if v != 0 {
				n++
			}
		}
	}
	return n
}
