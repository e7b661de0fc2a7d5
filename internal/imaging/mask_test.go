package imaging

import (
	"image"
	"testing"
)

func newMask(w, h int) *image.Gray {
	return image.NewGray(image.Rect(0, 0, w, h))
}

func setRect(m *image.Gray, r image.Rectangle) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			m.Pix[y*m.Stride+x] = 255
		}
	}
}

func TestCleanMask(t *testing.T) {
	m := newMask(40, 40)
	setRect(m, image.Rect(10, 10, 20, 30)) // left half of a stroke
	setRect(m, image.Rect(21, 10, 30, 30)) // right half, one pixel gap at x=20
	m.Pix[2*m.Stride+2] = 255              // speckle

	out := CleanMask(m, 3, 5)

	tests := []struct {
		name string
		x, y int
		want uint8
	}{
		{"speckle removed", 2, 2, 0},
		{"gap bridged", 20, 20, 255},
		{"stroke kept", 15, 15, 255},
		{"background untouched", 5, 20, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := out.GrayAt(tt.x, tt.y).Y; got != tt.want {
				t.Errorf("pixel (%d,%d) = %d, want %d", tt.x, tt.y, got, tt.want)
			}
		})
	}

	if m.Pix[2*m.Stride+2] != 255 {
		t.Error("CleanMask modified its input")
	}
}

func TestCleanMask_ZeroKernelsCopy(t *testing.T) {
	m := newMask(10, 10)
	m.Pix[5*m.Stride+5] = 255

	out := CleanMask(m, 0, 1)
	if out == m {
		t.Fatal("CleanMask returned its input")
	}
	if out.GrayAt(5, 5).Y != 255 {
		t.Error("no-op clean lost a pixel")
	}
}

func TestErodeDilate(t *testing.T) {
	m := newMask(20, 20)
	setRect(m, image.Rect(5, 5, 15, 15))

	if got := CountSet(Erode(m, 3)); got != 64 {
		t.Errorf("eroded count = %d, want 64", got)
	}
	if got := CountSet(Dilate(m, 3)); got != 144 {
		t.Errorf("dilated count = %d, want 144", got)
	}
}

func TestDilate_WindowSize(t *testing.T) {
	m := newMask(21, 21)
	m.Pix[10*m.Stride+10] = 255

	tests := []struct {
		k    int
		want int
	}{
		{1, 1},
		{3, 9},
		{4, 9},
		{5, 25},
		{7, 49},
	}
	for _, tt := range tests {
		if got := CountSet(Dilate(m, tt.k)); got != tt.want {
			t.Errorf("Dilate(k=%d) count = %d, want %d", tt.k, got, tt.want)
		}
	}
}
