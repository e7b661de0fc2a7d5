package imaging

import (
	"errors"
	"image"
	"testing"
)

func TestPaddedRect(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 80)
	tests := []struct {
		name string
		rect image.Rectangle
		pad  int
		want image.Rectangle
	}{
		{"interior", image.Rect(40, 30, 50, 40), 5, image.Rect(35, 25, 55, 45)},
		{"clipped top-left", image.Rect(5, 5, 15, 15), 10, image.Rect(0, 0, 25, 25)},
		{"clipped bottom-right", image.Rect(90, 70, 100, 80), 20, image.Rect(70, 50, 100, 80)},
		{"negative pad treated as zero", image.Rect(10, 10, 20, 20), -4, image.Rect(10, 10, 20, 20)},
		{"outside", image.Rect(200, 200, 210, 210), 5, image.Rectangle{}},
		{"outside left", image.Rect(-50, 10, -30, 20), 5, image.Rectangle{}},
		{"outside below", image.Rect(10, 120, 20, 130), 10, image.Rectangle{}},
		{"touching after padding", image.Rect(102, 10, 110, 20), 5, image.Rect(97, 5, 100, 25)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PaddedRect(bounds, tt.rect, tt.pad)
			if got != tt.want {
				t.Errorf("PaddedRect = %v, want %v", got, tt.want)
			}
			if !got.In(bounds) {
				t.Errorf("PaddedRect = %v lies outside %v", got, bounds)
			}
		})
	}
}

func TestPaddedCrop(t *testing.T) {
	img := createInMemoryImage(100, 100, white)
	fillRect(img, image.Rect(10, 10, 20, 20), red)

	crop, r, err := PaddedCrop(img, image.Rect(10, 10, 20, 20), 20)
	if err != nil {
		t.Fatalf("PaddedCrop failed: %v", err)
	}
	if r != image.Rect(0, 0, 40, 40) {
		t.Errorf("rect = %v, want (0,0)-(40,40)", r)
	}
	if crop.Bounds() != image.Rect(0, 0, 40, 40) {
		t.Errorf("crop bounds = %v", crop.Bounds())
	}
	if c := crop.NRGBAAt(15, 15); c.R != red.R || c.G != red.G {
		t.Errorf("crop pixel = %v, want red", c)
	}

	for _, off := range []image.Rectangle{
		image.Rect(300, 300, 310, 310),
		image.Rect(200, 200, 210, 210),
		image.Rect(-40, -40, -20, -20),
	} {
		crop, r, err := PaddedCrop(img, off, 5)
		if !errors.Is(err, ErrEmptyRegion) {
			t.Errorf("PaddedCrop(%v) error = %v, want ErrEmptyRegion", off, err)
		}
		if crop != nil || r != (image.Rectangle{}) {
			t.Errorf("PaddedCrop(%v) = %v, %v, want nil and empty rect", off, crop, r)
		}
	}
}

func TestColumnSlice(t *testing.T) {
	img := createInMemoryImage(200, 50, white)

	slice, r, err := ColumnSlice(img, 0.25)
	if err != nil {
		t.Fatalf("ColumnSlice failed: %v", err)
	}
	if r != image.Rect(0, 0, 50, 50) {
		t.Errorf("rect = %v, want (0,0)-(50,50)", r)
	}
	if slice.Bounds().Dx() != 50 || slice.Bounds().Dy() != 50 {
		t.Errorf("slice size = %v", slice.Bounds())
	}

	for _, f := range []float64{0, -1, 1.5} {
		if _, _, err := ColumnSlice(img, f); err == nil {
			t.Errorf("fraction %g: expected error", f)
		}
	}
}

func TestUpscale(t *testing.T) {
	img := createInMemoryImage(10, 7, white)
	if b := Upscale(img, 6).Bounds(); b.Dx() != 60 || b.Dy() != 42 {
		t.Errorf("Upscale(6) size = %dx%d, want 60x42", b.Dx(), b.Dy())
	}
	if b := Upscale(img, 1).Bounds(); b.Dx() != 10 || b.Dy() != 7 {
		t.Errorf("Upscale(1) size = %dx%d, want 10x7", b.Dx(), b.Dy())
	}
}
