package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/ironsheep/mark-extract/internal/detection"
	"github.com/ironsheep/mark-extract/internal/geom"
	"github.com/ironsheep/mark-extract/internal/imaging"
	"github.com/ironsheep/mark-extract/internal/month"
	"github.com/ironsheep/mark-extract/internal/ocr"
)

func newTestMonthReader(t *testing.T, eng ocr.Engine) *MonthReader {
	t.Helper()
	r, err := NewMonthReader(eng, testConfig().Month, nil)
	if err != nil {
		t.Fatalf("NewMonthReader failed: %v", err)
	}
	return r
}

// circlePage returns a page with one ring at (60, 60) holding monthNum and
// the mark describing it.
func circlePage(t *testing.T, monthNum int) (*imaging.Page, detection.Mark) {
	t.Helper()
	img := createTestImage(160, 160, white)
	drawCircleMark(img, 60, 60, 17, monthNum)
	m := detection.Mark{ID: 1, Kind: detection.Circle}
	m.Box = geom.Box{X: 41, Y: 41, W: 39, H: 39}
	m.Center = geom.Point{X: 60, Y: 60}
	return newTestPage(t, img, 0), m
}

func TestMonthReader_Read(t *testing.T) {
	eng := &fakeEngine{}
	r := newTestMonthReader(t, eng)
	page, m := circlePage(t, 5)

	reading, err := r.Read(context.Background(), page, m)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	modes := len(testConfig().Month.Modes)
	if got := reading.Month.String(); got != "2025-05" {
		t.Errorf("Month = %s, want 2025-05", got)
	}
	if reading.Text != "5月" {
		t.Errorf("Text = %q, want 5月", reading.Text)
	}
	if reading.Variant != imaging.VariantGray {
		t.Errorf("Variant = %q, want %q", reading.Variant, imaging.VariantGray)
	}
	if reading.Attempts != modes || reading.Failed != 0 {
		t.Errorf("Attempts/Failed = %d/%d, want %d/0", reading.Attempts, reading.Failed, modes)
	}
	if reading.Confidence != 88 {
		t.Errorf("Confidence = %v, want 88", reading.Confidence)
	}
	if reading.ROI == nil || len(reading.Variants) != 1 {
		t.Errorf("expected ROI and one variant, got %v and %d", reading.ROI != nil, len(reading.Variants))
	}
}

func TestMonthReader_PicksMostConfidentParsable(t *testing.T) {
	eng := ocr.EngineFunc(func(ctx context.Context, req ocr.Request) (ocr.Result, error) {
		switch req.Mode {
		case ocr.ModeSingleWord:
			return ocr.Result{Text: "3月", Words: []ocr.Word{{Text: "3月", Confidence: 40}}}, nil
		case ocr.ModeSingleChar:
			return ocr.Result{Text: "8月", Words: []ocr.Word{{Text: "8月", Confidence: 95}}}, nil
		default:
			return ocr.Result{Text: "xx", Words: []ocr.Word{{Text: "xx", Confidence: 99}}}, nil
		}
	})
	r := newTestMonthReader(t, eng)
	page, m := circlePage(t, 0)

	reading, err := r.Read(context.Background(), page, m)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got := reading.Month.String(); got != "2025-08" {
		t.Errorf("Month = %s, want 2025-08", got)
	}
	if reading.Mode != ocr.ModeSingleChar {
		t.Errorf("Mode = %s, want single-char", reading.Mode)
	}
}

func TestMonthReader_Unresolved(t *testing.T) {
	tests := []struct {
		name       string
		engine     ocr.Engine
		wantFailed bool
	}{
		{
			name: "unparsable text",
			engine: ocr.EngineFunc(func(ctx context.Context, req ocr.Request) (ocr.Result, error) {
				return ocr.Result{Text: "hello", Words: []ocr.Word{{Text: "hello", Confidence: 90}}}, nil
			}),
		},
		{
			name: "engine errors",
			engine: ocr.EngineFunc(func(ctx context.Context, req ocr.Request) (ocr.Result, error) {
				return ocr.Result{}, errors.New("engine failure")
			}),
			wantFailed: true,
		},
		{
			name: "engine panics",
			engine: ocr.EngineFunc(func(ctx context.Context, req ocr.Request) (ocr.Result, error) {
				panic("native crash")
			}),
			wantFailed: true,
		},
		{
			name:       "empty page region",
			engine:     &fakeEngine{},
			wantFailed: true,
		},
	}

	modes := len(testConfig().Month.Modes)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestMonthReader(t, tt.engine)
			page, m := circlePage(t, 0)

			reading, err := r.Read(context.Background(), page, m)
			if !errors.Is(err, month.ErrUnresolved) {
				t.Fatalf("expected ErrUnresolved, got %v", err)
			}
			if reading.Attempts != modes {
				t.Errorf("Attempts = %d, want %d", reading.Attempts, modes)
			}
			if tt.wantFailed && reading.Failed != modes {
				t.Errorf("Failed = %d, want %d", reading.Failed, modes)
			}
			if !tt.wantFailed && reading.Failed != 0 {
				t.Errorf("Failed = %d, want 0", reading.Failed)
			}
		})
	}
}

func TestMonthReader_Canceled(t *testing.T) {
	r := newTestMonthReader(t, &fakeEngine{})
	page, m := circlePage(t, 4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Read(ctx, page, m)
	if !errors.Is(err, month.ErrUnresolved) || !errors.Is(err, context.Canceled) {
		t.Errorf("expected ErrUnresolved wrapping context.Canceled, got %v", err)
	}
}

func TestNewMonthReader_Invalid(t *testing.T) {
	cfg := testConfig().Month
	cfg.Variants = []string{"sepia"}
	if _, err := NewMonthReader(&fakeEngine{}, cfg, nil); err == nil {
		t.Error("expected error for unknown variant")
	}

	cfg = testConfig().Month
	cfg.Modes = []string{"diagonal"}
	if _, err := NewMonthReader(&fakeEngine{}, cfg, nil); err == nil {
		t.Error("expected error for unknown mode")
	}
}
