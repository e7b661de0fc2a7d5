package detection

import (
	"image"
	"math"

	"github.com/ironsheep/mark-extract/internal/geom"
)

// Contour is the outer boundary of one connected blob in a binary mask.
//
// Points run clockwise (on screen) from the blob's top-left pixel and are not
// repeated at the end; the contour is implicitly closed.
type Contour struct {
	Points []image.Point
	// Pixels is the number of set pixels in the blob, holes excluded.
	Pixels int
}

// Metrics are the shape measurements of a contour.
type Metrics struct {
	Box         geom.Box   `json:"bbox" yaml:"bbox"`
	Center      geom.Point `json:"center" yaml:"center"`
	Area        float64    `json:"area" yaml:"area"`
	Perimeter   float64    `json:"perimeter" yaml:"perimeter"`
	Circularity float64    `json:"circularity" yaml:"circularity"`
	AspectRatio float64    `json:"aspect_ratio" yaml:"aspect_ratio"`
}

// moore lists the 8 neighbor offsets clockwise on screen, starting west.
var moore = [8]image.Point{
	{-1, 0}, {-1, -1}, {0, -1}, {1, -1},
	{1, 0}, {1, 1}, {0, 1}, {-1, 1},
}

func mooreIndex(d image.Point) int {
	for i, m := range moore {
		if m == d {
			return i
		}
	}
	return 0
}

// TraceExternalContours finds the outer boundary of every blob in mask.
//
// Blobs are 8-connected sets of non-zero pixels. Blobs lying inside a hole of
// another blob (a scribble inside a drawn circle) are skipped, as are the
// inner boundaries of holes: only outermost shapes are reported. Contours are
// returned in raster order of their top-left pixel.
func TraceExternalContours(mask *image.Gray) []Contour {
	b := mask.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil
	}

	fg := make([]bool, w*h)
	for y := 0; y < h; y++ {
		row := mask.Pix[y*mask.Stride : y*mask.Stride+w]
		for x, v := range row {
			fg[y*w+x] = v != 0
		}
	}
	at := func(x, y int) bool {
		return x >= 0 && y >= 0 && x < w && y < h && fg[y*w+x]
	}

	outer := outerBackground(fg, w, h)
	labeled := make([]bool, w*h)
	var contours []Contour
	var queue []int

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			if !fg[i] || labeled[i] {
				continue
			}

			// Flood the blob so its remaining pixels are not revisited.
			pixels := 0
			labeled[i] = true
			queue = append(queue[:0], i)
			for len(queue) > 0 {
				j := queue[len(queue)-1]
				queue = queue[:len(queue)-1]
				pixels++
				jx, jy := j%w, j/w
				for _, d := range moore {
					nx, ny := jx+d.X, jy+d.Y
					if at(nx, ny) && !labeled[ny*w+nx] {
						labeled[ny*w+nx] = true
						queue = append(queue, ny*w+nx)
					}
				}
			}

			// The first raster pixel of a blob has background to its west.
			// If that background is enclosed, the blob sits in a hole.
			if x > 0 && !outer[i-1] {
				continue
			}

			contours = append(contours, Contour{
				Points: traceBoundary(image.Pt(x, y), at, w*h),
				Pixels: pixels,
			})
		}
	}

	if b.Min != (image.Point{}) {
		for _, c := range contours {
			for k := range c.Points {
				c.Points[k] = c.Points[k].Add(b.Min)
			}
		}
	}
	return contours
}

// outerBackground marks the background pixels 4-connected to the image border.
func outerBackground(fg []bool, w, h int) []bool {
	outer := make([]bool, w*h)
	var queue []int
	push := func(x, y int) {
		i := y*w + x
		if !fg[i] && !outer[i] {
			outer[i] = true
			queue = append(queue, i)
		}
	}
	for x := 0; x < w; x++ {
		push(x, 0)
		push(x, h-1)
	}
	for y := 0; y < h; y++ {
		push(0, y)
		push(w-1, y)
	}
	for len(queue) > 0 {
		i := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		x, y := i%w, i/w
		if x > 0 {
			push(x-1, y)
		}
		if x < w-1 {
			push(x+1, y)
		}
		if y > 0 {
			push(x, y-1)
		}
		if y < h-1 {
			push(x, y+1)
		}
	}
	return outer
}

// traceBoundary walks the Moore neighborhood clockwise around the blob whose
// top-left pixel is start. The walk ends when it is about to repeat its first
// move from start, which handles blobs that pass through start more than once.
func traceBoundary(start image.Point, fg func(x, y int) bool, limit int) []image.Point {
	points := []image.Point{start}
	cur := start
	back := 0 // west of start is background by construction
	var first image.Point
	haveFirst := false

	for steps := 0; steps < 4*limit; steps++ {
		moved := false
		for k := 1; k <= 8; k++ {
			d := (back + k) % 8
			n := cur.Add(moore[d])
			if !fg(n.X, n.Y) {
				continue
			}
			if haveFirst && cur == start {
				if n == first {
					return points
				}
				points = append(points, start)
			}
			prev := cur.Add(moore[(d+7)%8])
			if !haveFirst {
				first, haveFirst = n, true
			}
			back = mooreIndex(prev.Sub(n))
			cur = n
			moved = true
			break
		}
		if !moved {
			return points // isolated pixel
		}
		if cur != start {
			points = append(points, cur)
		}
	}
	return points
}

// MeasureContour computes area, perimeter and derived shape metrics.
//
// Area is the polygon area enclosed by the boundary pixel centers (shoelace
// formula); perimeter is the closed polyline length, so diagonal steps count
// as sqrt(2). Both match how scanning tools conventionally measure contours,
// which keeps the configured thresholds meaningful. Circularity is
// 4*pi*area/perimeter^2 (1 for a perfect disc) and the aspect ratio is
// bounding box width over height. A contour with zero perimeter has zero
// circularity.
func MeasureContour(c Contour) Metrics {
	pts := c.Points
	if len(pts) == 0 {
		return Metrics{}
	}

	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	var twiceArea, perimeter float64
	for i, p := range pts {
		q := pts[(i+1)%len(pts)]
		twiceArea += float64(p.X*q.Y - q.X*p.Y)
		perimeter += math.Hypot(float64(q.X-p.X), float64(q.Y-p.Y))
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}

	box := geom.Box{X: minX, Y: minY, W: maxX - minX + 1, H: maxY - minY + 1}
	m := Metrics{
		Box:         box,
		Center:      box.Center(),
		Area:        math.Abs(twiceArea) / 2,
		Perimeter:   perimeter,
		AspectRatio: float64(box.W) / float64(box.H),
	}
	if perimeter > 0 {
		m.Circularity = 4 * math.Pi * m.Area / (perimeter * perimeter)
	}
	return m
}
