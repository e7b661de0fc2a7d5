package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Annotation is a labeled box drawn over a page for inspection.
type Annotation struct {
	Rect  image.Rectangle
	Label string
	Color color.RGBA
}

// Colors used for detection overlays.
var (
	CircleColor   = color.RGBA{0, 160, 0, 255}
	CrossColor    = color.RGBA{0, 0, 220, 255}
	RejectedColor = color.RGBA{128, 128, 128, 255}
	TokenColor    = color.RGBA{220, 140, 0, 255}
)

// Annotate returns a copy of img with each annotation drawn as a two pixel
// outline and its label printed above the box.
func Annotate(img image.Image, notes []Annotation) *image.NRGBA {
	out := imaging.Clone(img)
	bounds := out.Bounds()
	offset := img.Bounds().Min

	for _, n := range notes {
		r := n.Rect.Sub(offset).Intersect(bounds)
		if r.Empty() {
			continue
		}
		drawOutline(out, r, n.Color, 2)
		if n.Label != "" {
			drawLabel(out, r.Min.X, r.Min.Y-2, n.Label, n.Color)
		}
	}
	return out
}

func drawOutline(img *image.NRGBA, r image.Rectangle, c color.RGBA, thickness int) {
	src := image.NewUniform(c)
	for t := 0; t < thickness; t++ {
		inner := r.Inset(t)
		if inner.Empty() {
			return
		}
		edges := []image.Rectangle{
			image.Rect(inner.Min.X, inner.Min.Y, inner.Max.X, inner.Min.Y+1),
			image.Rect(inner.Min.X, inner.Max.Y-1, inner.Max.X, inner.Max.Y),
			image.Rect(inner.Min.X, inner.Min.Y, inner.Min.X+1, inner.Max.Y),
			image.Rect(inner.Max.X-1, inner.Min.Y, inner.Max.X, inner.Max.Y),
		}
		for _, e := range edges {
			draw.Draw(img, e, src, image.Point{}, draw.Src)
		}
	}
}

// drawLabel prints text with its baseline at (x, y) on a white background.
func drawLabel(img *image.NRGBA, x, y int, text string, c color.RGBA) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
	}
	width := d.MeasureString(text).Ceil()
	metrics := face.Metrics()
	ascent, descent := metrics.Ascent.Ceil(), metrics.Descent.Ceil()
	if y-ascent < img.Bounds().Min.Y {
		y = img.Bounds().Min.Y + ascent
	}

	bg := image.Rect(x-1, y-ascent-1, x+width+1, y+descent).Intersect(img.Bounds())
	draw.Draw(img, bg, image.NewUniform(color.White), image.Point{}, draw.Src)

	d.Dot = fixed.P(x, y)
	d.DrawString(text)
}

// MaskToImage renders the set pixels of mask in c over a black background.
func MaskToImage(mask *image.Gray, c color.RGBA) *image.NRGBA {
	b := mask.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			i := out.PixOffset(x, y)
			out.Pix[i+3] = 255
			if mask.GrayAt(b.Min.X+x, b.Min.Y+y).Y != 0 {
				out.Pix[i], out.Pix[i+1], out.Pix[i+2] = c.R, c.G, c.B
			}
		}
	}
	return out
}

// EncodePNGBase64 encodes img as PNG and returns it base64 encoded, the form
// MCP clients expect for inline images.
func EncodePNGBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// SavePNG writes img to path as PNG.
func SavePNG(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}
