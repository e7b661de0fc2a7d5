package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/effect"
)

// CleanMask removes speckle from a color mask and bridges small breaks in
// hand-drawn strokes.
//
// It applies a morphological opening (erode then dilate) with a window of
// radius (openK-1)/2, followed by a closing (dilate then erode) with a window
// of radius (closeK-1)/2. bild's window spans 2r+1 pixels on each axis, so an
// odd k covers exactly k x k and an even k covers (k-1) x (k-1). A kernel size
// below 2 skips that step.
func CleanMask(mask *image.Gray, openK, closeK int) *image.Gray {
	out := mask
	if r := kernelRadius(openK); r > 0 {
		out = toGray(effect.Dilate(effect.Erode(out, r), r))
	}
	if r := kernelRadius(closeK); r > 0 {
		out = toGray(effect.Erode(effect.Dilate(out, r), r))
	}
	if out == mask {
		out = toGray(mask)
	}
	return out
}

// Erode shrinks the set pixels of a mask by a window of radius (k-1)/2.
func Erode(mask *image.Gray, k int) *image.Gray {
	if r := kernelRadius(k); r > 0 {
		return toGray(effect.Erode(mask, r))
	}
	return toGray(mask)
}

// Dilate grows the set pixels of a mask by a window of radius (k-1)/2.
func Dilate(mask *image.Gray, k int) *image.Gray {
	if r := kernelRadius(k); r > 0 {
		return toGray(effect.Dilate(mask, r))
	}
	return toGray(mask)
}

// kernelRadius maps a window size to the radius bild expects (2r+1 = k).
func kernelRadius(k int) float64 {
	if k < 2 {
		return 0
	}
	return float64((k - 1) / 2)
}
