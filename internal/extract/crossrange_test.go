package extract

import (
	"testing"

	"github.com/ironsheep/mark-extract/internal/config"
	"github.com/ironsheep/mark-extract/internal/detection"
	"github.com/ironsheep/mark-extract/internal/geom"
)

func markAt(id int, kind detection.Kind, cx, cy int) detection.Mark {
	box := geom.Box{X: cx - 12, Y: cy - 12, W: 25, H: 25}
	return detection.Mark{ID: id, Kind: kind, Metrics: detection.Metrics{Box: box, Center: box.Center()}}
}

func TestCrossRangeResolver_Partner(t *testing.T) {
	r := NewCrossRangeResolver(config.Default().Association)
	cross := markAt(1, detection.Cross, 100, 300)

	tests := []struct {
		name    string
		circles []detection.Mark
		wantID  int
	}{
		{"nearest on the right", []detection.Mark{markAt(2, detection.Circle, 300, 300), markAt(3, detection.Circle, 170, 305)}, 3},
		{"left circle ignored", []detection.Mark{markAt(2, detection.Circle, 60, 300)}, 0},
		{"vertical cap is inclusive", []detection.Mark{markAt(2, detection.Circle, 200, 330)}, 2},
		{"beyond the vertical cap", []detection.Mark{markAt(2, detection.Circle, 200, 331)}, 0},
		{"tie broken by row distance", []detection.Mark{markAt(2, detection.Circle, 200, 320), markAt(3, detection.Circle, 200, 296)}, 3},
		{"crosses are not partners", []detection.Mark{markAt(2, detection.Cross, 150, 300)}, 0},
		{"no circles", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Partner(cross, tt.circles)
			if ok != (tt.wantID != 0) {
				t.Fatalf("found = %v, want %v", ok, tt.wantID != 0)
			}
			if ok && got.ID != tt.wantID {
				t.Errorf("partner = #%d, want #%d", got.ID, tt.wantID)
			}
		})
	}
}
