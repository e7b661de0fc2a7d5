package imaging

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"golang.org/x/image/tiff"
)

// writeTestPage writes a PNG page into dir and returns its path.
func writeTestPage(t *testing.T, dir string, width, height int, c color.Color) string {
	t.Helper()
	path := filepath.Join(dir, "page.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create page: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, createInMemoryImage(width, height, c)); err != nil {
		t.Fatalf("failed to encode page: %v", err)
	}
	return path
}

func TestLoadPage(t *testing.T) {
	path := writeTestPage(t, t.TempDir(), 120, 80, red)

	page, err := LoadPage(path, 3, 144)
	if err != nil {
		t.Fatalf("LoadPage failed: %v", err)
	}
	if page.Index != 3 || page.DPI != 144 || page.Source != path {
		t.Errorf("page = %+v", page)
	}
	if page.Width() != 120 || page.Height() != 80 {
		t.Errorf("size = %dx%d, want 120x80", page.Width(), page.Height())
	}
	if c := page.Image.NRGBAAt(0, 0); c.R != red.R {
		t.Errorf("pixel = %v, want red", c)
	}
}

func TestLoadPage_TIFF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.tiff")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	if err := tiff.Encode(f, createInMemoryImage(30, 20, blue), nil); err != nil {
		t.Fatalf("failed to encode tiff: %v", err)
	}
	f.Close()

	page, err := LoadPage(path, 0, 300)
	if err != nil {
		t.Fatalf("LoadPage failed: %v", err)
	}
	if page.Width() != 30 || page.Height() != 20 {
		t.Errorf("size = %dx%d, want 30x20", page.Width(), page.Height())
	}
}

func TestLoadPage_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadPage(filepath.Join(dir, "missing.png"), 0, 144); err == nil {
		t.Error("expected error for missing file")
	}

	junk := filepath.Join(dir, "junk.png")
	if err := os.WriteFile(junk, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPage(junk, 0, 144); err == nil {
		t.Error("expected error for undecodable file")
	}
}

func TestNewPage(t *testing.T) {
	if _, err := NewPage(nil, 0, 144); !errors.Is(err, ErrEmptyPage) {
		t.Errorf("nil image: error = %v, want ErrEmptyPage", err)
	}

	src := createInMemoryImage(40, 40, white)
	sub := src.SubImage(image.Rect(10, 10, 30, 30))
	page, err := NewPage(sub, 1, 72)
	if err != nil {
		t.Fatalf("NewPage failed: %v", err)
	}
	if page.Bounds() != image.Rect(0, 0, 20, 20) {
		t.Errorf("bounds = %v, want origin-anchored 20x20", page.Bounds())
	}

	// The page owns its pixels.
	src.Set(15, 15, red)
	if c := page.Image.NRGBAAt(5, 5); c.R != 255 || c.G != 255 {
		t.Error("page shares pixels with its source")
	}
}

func TestPageCache(t *testing.T) {
	path := writeTestPage(t, t.TempDir(), 50, 50, white)
	cache := NewPageCache()

	first, err := cache.Load(path, 0, 144)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	second, err := cache.Load(path, 0, 144)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if first != second {
		t.Error("second load did not return the cached page")
	}

	other, err := cache.Load(path, 2, 288)
	if err != nil {
		t.Fatalf("Load with new DPI failed: %v", err)
	}
	if other.DPI != 288 || other.Index != 2 {
		t.Errorf("reloaded page = index %d dpi %d", other.Index, other.DPI)
	}
	if first.DPI != 144 {
		t.Error("cached page was modified")
	}
	if other.Image != first.Image {
		t.Error("pixel buffer not shared")
	}

	cache.Evict(path)
	if cache.Len() != 0 {
		t.Errorf("Len after Evict = %d", cache.Len())
	}
	if _, err := cache.Load(path, 0, 144); err != nil {
		t.Fatal(err)
	}
	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("Len after Clear = %d", cache.Len())
	}
}

func TestPageCache_Concurrent(t *testing.T) {
	path := writeTestPage(t, t.TempDir(), 30, 30, white)
	cache := NewPageCache()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Load(path, 0, 144); err != nil {
				t.Errorf("concurrent Load failed: %v", err)
			}
		}()
	}
	wg.Wait()
	if cache.Len() != 1 {
		t.Errorf("Len = %d, want 1", cache.Len())
	}
}

func TestDescribePage(t *testing.T) {
	path := writeTestPage(t, t.TempDir(), 288, 144, white)
	info, err := DescribePage(NewPageCache(), path, 144)
	if err != nil {
		t.Fatalf("DescribePage failed: %v", err)
	}
	if info.Format != "png" {
		t.Errorf("Format = %s, want png", info.Format)
	}
	if info.WidthInches != 2 || info.HeightInches != 1 {
		t.Errorf("inches = %gx%g, want 2x1", info.WidthInches, info.HeightInches)
	}
	if info.FileSizeBytes <= 0 {
		t.Errorf("FileSizeBytes = %d", info.FileSizeBytes)
	}
}
