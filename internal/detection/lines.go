package detection

import (
	"image"
	"math"
	"sort"

	"github.com/ironsheep/mark-extract/internal/geom"
)

// Line is a detected straight segment.
type Line struct {
	Start        geom.Point `json:"start"`
	End          geom.Point `json:"end"`
	Length       float64    `json:"length"`
	AngleDegrees float64    `json:"angle_degrees"`
	Votes        int        `json:"votes"`
}

// LineParams controls DetectLineSegments.
type LineParams struct {
	// Threshold is the minimum number of edge pixels voting for a line.
	Threshold int
	// MinLength is the minimum segment length in pixels.
	MinLength int
	// MaxGap is the largest run of missing edge pixels bridged within a segment.
	MaxGap int
	// MaxLines caps the number of segments returned; 0 means no cap.
	MaxLines int
}

// maxPeaks bounds the work spent on one edge map.
const maxPeaks = 200

// DetectLineSegments finds straight segments in a binary edge map.
//
// # Algorithm
//
//  1. Every edge pixel votes in a (rho, theta) accumulator with 1 pixel and
//     1 degree resolution.
//  2. Cells with at least Threshold votes that are maxima of their 5x5
//     neighborhood become candidate lines, strongest first.
//  3. For each candidate, the edge pixels within 1.5 px of the line are
//     projected onto it and sorted. Runs separated by more than MaxGap are
//     split, and runs spanning at least MinLength become segments.
//  4. Pixels claimed by a segment do not contribute to later candidates, so
//     one ruling is not reported once per neighboring angle.
//
// Returned coordinates are in the edge map's coordinate space.
func DetectLineSegments(edges *image.Gray, p LineParams) []Line {
	bounds := edges.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil
	}

	var pts []image.Point
	for y := 0; y < height; y++ {
		row := edges.Pix[y*edges.Stride : y*edges.Stride+width]
		for x, v := range row {
			if v != 0 {
				pts = append(pts, image.Pt(x, y))
			}
		}
	}
	if len(pts) == 0 {
		return nil
	}

	const numAngles = 180
	cosT := make([]float64, numAngles)
	sinT := make([]float64, numAngles)
	for t := 0; t < numAngles; t++ {
		a := float64(t) * math.Pi / numAngles
		cosT[t], sinT[t] = math.Cos(a), math.Sin(a)
	}

	maxDist := int(math.Ceil(math.Hypot(float64(width), float64(height))))
	rhoBins := 2*maxDist + 1
	acc := make([]int, rhoBins*numAngles)
	for _, pt := range pts {
		for t := 0; t < numAngles; t++ {
			rho := int(math.Round(float64(pt.X)*cosT[t]+float64(pt.Y)*sinT[t])) + maxDist
			acc[rho*numAngles+t]++
		}
	}

	type peak struct{ rho, theta, votes int }
	var peaks []peak
	threshold := max(p.Threshold, 1)
	for r := 0; r < rhoBins; r++ {
		for t := 0; t < numAngles; t++ {
			v := acc[r*numAngles+t]
			if v < threshold || !isLocalMax(acc, rhoBins, numAngles, r, t) {
				continue
			}
			peaks = append(peaks, peak{rho: r - maxDist, theta: t, votes: v})
		}
	}
	sort.Slice(peaks, func(i, j int) bool {
		if peaks[i].votes != peaks[j].votes {
			return peaks[i].votes > peaks[j].votes
		}
		if peaks[i].theta != peaks[j].theta {
			return peaks[i].theta < peaks[j].theta
		}
		return peaks[i].rho < peaks[j].rho
	})
	if len(peaks) > maxPeaks {
		peaks = peaks[:maxPeaks]
	}

	used := make([]bool, len(pts))
	var lines []Line
	for _, pk := range peaks {
		segs := segmentsOnLine(pts, used, cosT[pk.theta], sinT[pk.theta], float64(pk.rho), p)
		for _, s := range segs {
			s.Votes = pk.votes
			lines = append(lines, s)
			if p.MaxLines > 0 && len(lines) >= p.MaxLines {
				return lines
			}
		}
	}
	return lines
}

func isLocalMax(acc []int, rhoBins, numAngles, r, t int) bool {
	v := acc[r*numAngles+t]
	for dr := -2; dr <= 2; dr++ {
		nr := r + dr
		if nr < 0 || nr >= rhoBins {
			continue
		}
		for dt := -2; dt <= 2; dt++ {
			if dr == 0 && dt == 0 {
				continue
			}
			nt := (t + dt + numAngles) % numAngles
			nv := acc[nr*numAngles+nt]
			// Break ties toward the earlier cell so plateaus yield one peak.
			if nv > v || (nv == v && (nr < r || (nr == r && nt < t))) {
				return false
			}
		}
	}
	return true
}

// segmentsOnLine splits the unused points near the line x*cos + y*sin = rho
// into gap-separated runs and returns those long enough.
func segmentsOnLine(pts []image.Point, used []bool, cos, sin, rho float64, p LineParams) []Line {
	type proj struct {
		idx int
		t   float64
	}
	var on []proj
	for i, pt := range pts {
		if used[i] {
			continue
		}
		x, y := float64(pt.X), float64(pt.Y)
		if math.Abs(x*cos+y*sin-rho) < 1.5 {
			on = append(on, proj{idx: i, t: -x*sin + y*cos})
		}
	}
	if len(on) == 0 {
		return nil
	}
	sort.Slice(on, func(i, j int) bool { return on[i].t < on[j].t })

	var out []Line
	emit := func(run []proj) {
		a, b := pts[run[0].idx], pts[run[len(run)-1].idx]
		// Segments run left to right, or top to bottom when vertical.
		if b.X < a.X || (b.X == a.X && b.Y < a.Y) {
			a, b = b, a
		}
		length := math.Hypot(float64(b.X-a.X), float64(b.Y-a.Y))
		if length < float64(p.MinLength) {
			return
		}
		for _, q := range run {
			used[q.idx] = true
		}
		out = append(out, Line{
			Start:        geom.Point{X: a.X, Y: a.Y},
			End:          geom.Point{X: b.X, Y: b.Y},
			Length:       math.Round(length*10) / 10,
			AngleDegrees: math.Round(math.Atan2(float64(b.Y-a.Y), float64(b.X-a.X))*1800/math.Pi) / 10,
		})
	}

	start := 0
	for i := 1; i < len(on); i++ {
		if on[i].t-on[i-1].t > float64(p.MaxGap)+1 {
			emit(on[start:i])
			start = i
		}
	}
	emit(on[start:])
	return out
}
