package server

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/mark-extract/internal/config"
	"github.com/ironsheep/mark-extract/internal/extract"
	"github.com/ironsheep/mark-extract/internal/geom"
	"github.com/ironsheep/mark-extract/internal/ocr"
)

var (
	white = color.RGBA{255, 255, 255, 255}
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

// drawRing draws a red circle outline of the given radius around (cx, cy).
func drawRing(img *image.RGBA, cx, cy, radius int) {
	r := float64(radius)
	for y := cy - radius - 3; y <= cy+radius+3; y++ {
		for x := cx - radius - 3; x <= cx+radius+3; x++ {
			d := math.Hypot(float64(x-cx), float64(y-cy))
			if d >= r-2 && d <= r+2 {
				img.Set(x, y, red)
			}
		}
	}
}

// writeTestImage saves img as a PNG in a temp dir and returns its path.
func writeTestImage(t *testing.T, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// createMarkedPageFile writes a 400x400 page with one red circle at (120,220).
func createMarkedPageFile(t *testing.T) string {
	t.Helper()
	img := createTestImage(400, 400, white)
	drawRing(img, 120, 220, 17)
	return writeTestImage(t, img)
}

// scriptedEngine finds "JS1234" left of the test circle on block passes and
// reads "3月" everywhere else.
func scriptedEngine() ocr.Engine {
	return ocr.EngineFunc(func(ctx context.Context, req ocr.Request) (ocr.Result, error) {
		if req.Mode == ocr.ModeBlock {
			return ocr.Result{Words: []ocr.Word{{
				Text:       "JS1234",
				Box:        geom.Box{X: 30, Y: 204, W: 40, H: 12},
				Confidence: 90,
			}}}, nil
		}
		return ocr.Result{Text: "3月", Words: []ocr.Word{{Text: "3月", Confidence: 80}}}, nil
	})
}

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	p, err := extract.NewPipeline(config.Default().WithTableFilter(false), scriptedEngine())
	if err != nil {
		t.Fatal(err)
	}
	return New(p, opts...)
}

// callTool runs a tools/call request and returns the response.
func callTool(t *testing.T, s *Server, name string, args interface{}) *MCPResponse {
	t.Helper()
	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}
	paramsJSON, _ := json.Marshal(params)

	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// toolResult calls a tool that must succeed and decodes its text content into out.
func toolResult(t *testing.T, s *Server, name string, args, out interface{}) {
	t.Helper()
	resp := callTool(t, s, name, args)
	if resp.Error != nil {
		t.Fatalf("%s: unexpected error: %+v", name, resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("content = %#v", result["content"])
	}
	text, _ := content[0]["text"].(string)
	if err := json.Unmarshal([]byte(text), out); err != nil {
		t.Fatalf("failed to decode %s result: %v\n%s", name, err, text)
	}
}
