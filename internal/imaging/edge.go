package imaging

import (
	"image"
	"math"
)

// EdgeDetect performs Canny edge detection and returns a binary edge map.
//
// Edge pixels are 255 and everything else 0. The result has the size of img
// with its origin at (0,0).
//
// Parameters:
//   - img: Source image (color or grayscale).
//   - thresholdLow: Sobel gradient magnitudes below this are never edges.
//   - thresholdHigh: Gradient magnitudes at or above this always are. Pixels
//     in between are kept only when connected to a strong edge.
//
// # Algorithm
//
//  1. Luminance using ITU-R BT.601 weights (0.299*R + 0.587*G + 0.114*B)
//  2. 5x5 Gaussian blur (sigma about 1.4)
//  3. Sobel gradients; magnitude and direction per pixel
//  4. Non-maximum suppression along the quantized gradient direction
//  5. Hysteresis: weak edges are grown from strong seeds through
//     8-connected neighbors, so a long faint ruling line survives as long as
//     one part of it is strong
//
// The table proximity gate runs this on a padded window around each mark with
// 50/150, which keeps printed rulings and drops paper texture.
func EdgeDetect(img image.Image, thresholdLow, thresholdHigh int) *image.Gray {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	out := image.NewGray(image.Rect(0, 0, width, height))
	if width < 3 || height < 3 {
		return out
	}

	lum := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			lum[y*width+x] = 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
		}
	}
	blurred := gaussianBlur(lum, width, height)

	mag := make([]float64, width*height)
	dir := make([]uint8, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			at := func(dx, dy int) float64 {
				return blurred[clamp(y+dy, 0, height-1)*width+clamp(x+dx, 0, width-1)]
			}
			gx := -at(-1, -1) + at(1, -1) - 2*at(-1, 0) + 2*at(1, 0) - at(-1, 1) + at(1, 1)
			gy := -at(-1, -1) - 2*at(0, -1) - at(1, -1) + at(-1, 1) + 2*at(0, 1) + at(1, 1)
			i := y*width + x
			mag[i] = math.Hypot(gx, gy)
			dir[i] = quantizeDirection(math.Atan2(gy, gx))
		}
	}

	low := float64(thresholdLow)
	high := float64(thresholdHigh)

	const (
		weak uint8 = iota + 1
		strong
	)
	class := make([]uint8, width*height)
	var stack []int
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			i := y*width + x
			m := mag[i]
			if m < low {
				continue
			}
			var n1, n2 float64
			switch dir[i] {
			case 0: // horizontal gradient, vertical edge
				n1, n2 = mag[i-1], mag[i+1]
			case 1:
				n1, n2 = mag[i-width-1], mag[i+width+1]
			case 2:
				n1, n2 = mag[i-width], mag[i+width]
			default:
				n1, n2 = mag[i-width+1], mag[i+width-1]
			}
			if m < n1 || m < n2 {
				continue
			}
			if m >= high {
				class[i] = strong
				stack = append(stack, i)
			} else {
				class[i] = weak
			}
		}
	}

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out.Pix[(i/width)*out.Stride+i%width] = 255
		x, y := i%width, i/width
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := x+dx, y+dy
				if nx < 0 || ny < 0 || nx >= width || ny >= height {
					continue
				}
				j := ny*width + nx
				if class[j] == weak {
					class[j] = strong
					stack = append(stack, j)
				}
			}
		}
	}
	return out
}

// quantizeDirection maps a gradient angle (y pointing down) to one of four
// neighbor axes: 0 horizontal, 1 down-right diagonal, 2 vertical, 3 down-left
// diagonal.
func quantizeDirection(angle float64) uint8 {
	a := angle
	if a < 0 {
		a += math.Pi
	}
	switch {
	case a < math.Pi/8 || a >= 7*math.Pi/8:
		return 0
	case a < 3*math.Pi/8:
		return 1
	case a < 5*math.Pi/8:
		return 2
	default:
		return 3
	}
}

// gaussianBlur applies the 5x5 kernel
//
//	1  4  7  4  1
//	4 16 26 16  4
//	7 26 41 26  7
//	4 16 26 16  4
//	1  4  7  4  1
//
// normalized by its sum (273), replicating border pixels.
func gaussianBlur(src []float64, width, height int) []float64 {
	kernel := [5][5]float64{
		{1, 4, 7, 4, 1},
		{4, 16, 26, 16, 4},
		{7, 26, 41, 26, 7},
		{4, 16, 26, 16, 4},
		{1, 4, 7, 4, 1},
	}
	dst := make([]float64, len(src))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var sum float64
			for ky := -2; ky <= 2; ky++ {
				row := clamp(y+ky, 0, height-1) * width
				for kx := -2; kx <= 2; kx++ {
					sum += src[row+clamp(x+kx, 0, width-1)] * kernel[ky+2][kx+2]
				}
			}
			dst[y*width+x] = sum / 273.0
		}
	}
	return dst
}

func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
