package extract

import (
	"github.com/ironsheep/mark-extract/internal/config"
	"github.com/ironsheep/mark-extract/internal/detection"
	"github.com/ironsheep/mark-extract/internal/geom"
)

// CrossRangeResolver pairs a cross with the circle that carries its month.
//
// On the forms a cross followed by a circled month on the same row means the
// crossed rows share that month. The partner is the nearest circle whose
// center lies to the right of the cross and at most CrossMaxVertical pixels
// above or below it.
type CrossRangeResolver struct {
	maxVertical int
}

// NewCrossRangeResolver creates a resolver from the association caps.
func NewCrossRangeResolver(cfg config.AssociationConfig) *CrossRangeResolver {
	return &CrossRangeResolver{maxVertical: cfg.CrossMaxVertical}
}

// Partner returns the circle supplying the month for cross. It reports false
// when no circle qualifies, in which case the cross yields no record.
func (r *CrossRangeResolver) Partner(cross detection.Mark, circles []detection.Mark) (detection.Mark, bool) {
	var (
		best           detection.Mark
		bestDX, bestDY int
		found          bool
	)
	for _, c := range circles {
		if c.Kind != detection.Circle {
			continue
		}
		dx := c.Center.X - cross.Center.X
		dy := geom.Abs(c.Center.Y - cross.Center.Y)
		if dx <= 0 || dy > r.maxVertical {
			continue
		}
		if !found || dx < bestDX || (dx == bestDX && dy < bestDY) {
			best, bestDX, bestDY, found = c, dx, dy, true
		}
	}
	return best, found
}
