package detection

import (
	"image"
	"image/color"
	"math"

	"github.com/ironsheep/mark-extract/internal/geom"
)

var (
	white = color.RGBA{255, 255, 255, 255}
	black = color.RGBA{0, 0, 0, 255}
	red   = color.RGBA{230, 20, 20, 255}
)

// createTestImage creates a solid color test image.
func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// drawRing draws a hand-drawn style circle of the given radius and stroke width.
func drawRing(img *image.RGBA, cx, cy int, radius, thickness float64, c color.Color) {
	reach := int(radius + thickness)
	for y := cy - reach; y <= cy+reach; y++ {
		for x := cx - reach; x <= cx+reach; x++ {
			d := math.Hypot(float64(x-cx), float64(y-cy))
			if d >= radius-thickness/2 && d <= radius+thickness/2 {
				img.Set(x, y, c)
			}
		}
	}
}

// drawCross draws an X whose arms reach half pixels from the center.
func drawCross(img *image.RGBA, cx, cy, half int, c color.Color) {
	for dy := -half; dy <= half; dy++ {
		for dx := -half; dx <= half; dx++ {
			if geom.Abs(dx-dy) <= 2 || geom.Abs(dx+dy) <= 2 {
				img.Set(cx+dx, cy+dy, c)
			}
		}
	}
}

// drawTable draws 2 px ruled rows every rowStep pixels between y0 and y1 and
// vertical rules at each x in cols.
func drawTable(img *image.RGBA, x0, y0, x1, y1, rowStep int, cols []int) {
	for y := y0; y <= y1; y += rowStep {
		for x := x0; x <= x1; x++ {
			img.Set(x, y, black)
			img.Set(x, y+1, black)
		}
	}
	for _, x := range cols {
		for y := y0; y <= y1; y++ {
			img.Set(x, y, black)
			img.Set(x+1, y, black)
		}
	}
}

// maskFrom converts the pixels of img matching c into a binary mask.
func maskFrom(img *image.RGBA, c color.RGBA) *image.Gray {
	b := img.Bounds()
	m := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.RGBAAt(x, y) == c {
				m.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return m
}
