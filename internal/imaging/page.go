package imaging

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
)

// ErrEmptyPage is returned when a decoded page has no pixels.
var ErrEmptyPage = errors.New("page has no pixels")

// Page is one rendered document page.
//
// The pixel buffer is an NRGBA copy whose origin is (0,0), so page coordinates
// and buffer offsets agree. A Page is never modified after construction and is
// safe to share between goroutines processing different marks.
type Page struct {
	// Index is the zero-based position of the page in its document.
	Index int `json:"index"`

	// DPI is the resolution the page was rendered at. Zero means unknown, in
	// which case distance thresholds are used unscaled.
	DPI int `json:"dpi"`

	// Source is the file the page was loaded from, if any.
	Source string `json:"source,omitempty"`

	// Image holds the pixels.
	Image *image.NRGBA `json:"-"`
}

// NewPage wraps an already decoded image as a page. The pixels are copied.
func NewPage(img image.Image, index, dpi int) (*Page, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyPage
	}
	return &Page{
		Index: index,
		DPI:   dpi,
		Image: imaging.Clone(img),
	}, nil
}

// Bounds returns the page rectangle, always anchored at the origin.
func (p *Page) Bounds() image.Rectangle {
	return p.Image.Bounds()
}

// Width returns the page width in pixels.
func (p *Page) Width() int { return p.Image.Bounds().Dx() }

// Height returns the page height in pixels.
func (p *Page) Height() int { return p.Image.Bounds().Dy() }

// LoadPage decodes an image file into a page.
//
// Supported formats are PNG, JPEG, GIF, TIFF and BMP, which covers the output of
// PDF rasterizers and most document scanners.
func LoadPage(path string, index, dpi int) (*Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode page %s: %w", path, err)
	}

	page, err := NewPage(img, index, dpi)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	page.Source = path
	return page, nil
}

// PageCache keeps decoded pages keyed by file path.
//
// The MCP server decodes the same page several times when a client first
// detects marks and then extracts records, so decoded pages are kept until
// evicted. A cached page remembers the DPI it was loaded with; loading the same
// path with a different DPI returns a copy carrying the new value and sharing
// the pixel buffer.
//
// PageCache is safe for concurrent use.
type PageCache struct {
	mu    sync.RWMutex
	pages map[string]*Page
}

// NewPageCache creates an empty cache.
func NewPageCache() *PageCache {
	return &PageCache{
		pages: make(map[string]*Page),
	}
}

// Load returns the cached page for path or decodes it from disk.
func (c *PageCache) Load(path string, index, dpi int) (*Page, error) {
	c.mu.RLock()
	cached, ok := c.pages[path]
	c.mu.RUnlock()
	if ok {
		if cached.Index == index && cached.DPI == dpi {
			return cached, nil
		}
		p := *cached
		p.Index = index
		p.DPI = dpi
		return &p, nil
	}

	page, err := LoadPage(path, index, dpi)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.pages[path] = page
	c.mu.Unlock()
	return page, nil
}

// Len reports how many pages are cached.
func (c *PageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pages)
}

// Evict drops one path from the cache.
func (c *PageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.pages, path)
	c.mu.Unlock()
}

// Clear drops every cached page.
func (c *PageCache) Clear() {
	c.mu.Lock()
	c.pages = make(map[string]*Page)
	c.mu.Unlock()
}

// PageInfo describes a page file without exposing its pixels.
type PageInfo struct {
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Format        string `json:"format"`
	DPI           int    `json:"dpi"`
	FileSizeBytes int64  `json:"file_size_bytes"`
	// WidthInches and HeightInches are only set when DPI is known.
	WidthInches  float64 `json:"width_inches,omitempty"`
	HeightInches float64 `json:"height_inches,omitempty"`
}

// DescribePage loads path through the cache and reports its dimensions.
// The format is taken from the file extension.
func DescribePage(cache *PageCache, path string, dpi int) (*PageInfo, error) {
	page, err := cache.Load(path, 0, dpi)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	format := "unknown"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		format = "png"
	case ".jpg", ".jpeg":
		format = "jpeg"
	case ".gif":
		format = "gif"
	case ".tif", ".tiff":
		format = "tiff"
	case ".bmp":
		format = "bmp"
	}

	info := &PageInfo{
		Width:         page.Width(),
		Height:        page.Height(),
		Format:        format,
		DPI:           dpi,
		FileSizeBytes: stat.Size(),
	}
	if dpi > 0 {
		info.WidthInches = float64(info.Width) / float64(dpi)
		info.HeightInches = float64(info.Height) / float64(dpi)
	}
	return info, nil
}
