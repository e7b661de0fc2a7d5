package imaging

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// ErrEmptyRegion is returned when a requested region does not overlap the image.
var ErrEmptyRegion = errors.New("region is empty after clipping")

// PaddedRect grows rect by pad pixels on every side and clips it to bounds.
func PaddedRect(bounds, rect image.Rectangle, pad int) image.Rectangle {
	if pad < 0 {
		pad = 0
	}
	// Built field by field: image.Rect would swap corners that clipping
	// inverted and turn an off-page region into a non-empty one.
	r := image.Rectangle{
		Min: image.Pt(max(bounds.Min.X, rect.Min.X-pad), max(bounds.Min.Y, rect.Min.Y-pad)),
		Max: image.Pt(min(bounds.Max.X, rect.Max.X+pad), min(bounds.Max.Y, rect.Max.Y+pad)),
	}
	if r.Empty() {
		return image.Rectangle{}
	}
	return r
}

// PaddedCrop extracts rect plus pad pixels of margin, clipped to the image.
//
// The returned image has its origin at (0,0); the returned rectangle is the
// clipped region in the coordinates of img, so callers can map positions found
// in the crop back onto the page.
func PaddedCrop(img image.Image, rect image.Rectangle, pad int) (*image.NRGBA, image.Rectangle, error) {
	r := PaddedRect(img.Bounds(), rect, pad)
	if r.Empty() {
		return nil, image.Rectangle{}, fmt.Errorf("crop %v with padding %d: %w", rect, pad, ErrEmptyRegion)
	}
	return imaging.Crop(img, r), r, nil
}

// ColumnSlice returns the leftmost fraction of the image's width, full height.
// Identifiers on the forms are printed in this column.
func ColumnSlice(img image.Image, fraction float64) (*image.NRGBA, image.Rectangle, error) {
	if fraction <= 0 || fraction > 1 {
		return nil, image.Rectangle{}, fmt.Errorf("column fraction %g outside (0,1]", fraction)
	}
	b := img.Bounds()
	w := int(float64(b.Dx()) * fraction)
	r := image.Rect(b.Min.X, b.Min.Y, b.Min.X+w, b.Max.Y)
	if r.Empty() {
		return nil, image.Rectangle{}, fmt.Errorf("column slice of %v: %w", b, ErrEmptyRegion)
	}
	return imaging.Crop(img, r), r, nil
}

// Upscale enlarges img by an integer factor with a bicubic (Catmull-Rom)
// filter. Factors below 2 return a copy.
func Upscale(img image.Image, factor int) *image.NRGBA {
	if factor < 2 {
		return imaging.Clone(img)
	}
	b := img.Bounds()
	return imaging.Resize(img, b.Dx()*factor, b.Dy()*factor, imaging.CatmullRom)
}
