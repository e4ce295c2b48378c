package retouch

import (
	"image"
	"image/color"
	"math"

	"github.com/example/retouch/utils"
)

// stampCircle overwrites every mask pixel whose center lies within
// radius of the given natural-space point. The stamp is hard edged
// and uses replace semantics instead of blending, so painting a
// region and erasing it again restores the mask byte for byte.
func stampCircle(mask *image.NRGBA, c Point, radius float64, col color.NRGBA) {
	r := utils.Max(radius, 0.5)
	rect := mask.Bounds()

	minX := utils.Max(int(math.Floor(c.X-r)), rect.Min.X)
	minY := utils.Max(int(math.Floor(c.Y-r)), rect.Min.Y)
	maxX := utils.Min(int(math.Ceil(c.X+r)), rect.Max.X-1)
	maxY := utils.Min(int(math.Ceil(c.Y+r)), rect.Max.Y-1)

	rr := r * r
	for py := minY; py <= maxY; py++ {
		dy := float64(py) + 0.5 - c.Y
		for px := minX; px <= maxX; px++ {
			dx := float64(px) + 0.5 - c.X
			if dx*dx+dy*dy <= rr {
				i := mask.PixOffset(px, py)
				mask.Pix[i] = col.R
				mask.Pix[i+1] = col.G
				mask.Pix[i+2] = col.B
				mask.Pix[i+3] = col.A
			}
		}
	}
}

// stampQuadratic rasterizes a quadratic Bezier segment from p0 to p1
// with ctrl as the control point, stamping overlapping circles along
// the curve. The step length is tied to the brush radius so the
// stamps fuse into a continuous stroke.
func stampQuadratic(mask *image.NRGBA, p0, ctrl, p1 Point, radius float64, col color.NRGBA) {
	approx := dist(p0, ctrl) + dist(ctrl, p1)
	step := utils.Max(radius/2, 0.5)
	n := utils.Max(int(math.Ceil(approx/step)), 1)

	for i := 0; i <= n; i++ {
		t := float64(i) / float64(n)
		stampCircle(mask, quadPoint(p0, ctrl, p1, t), radius, col)
	}
}

// quadPoint evaluates the quadratic Bezier at parameter t.
func quadPoint(p0, ctrl, p1 Point, t float64) Point {
	u := 1 - t
	return Point{
		X: u*u*p0.X + 2*u*t*ctrl.X + t*t*p1.X,
		Y: u*u*p0.Y + 2*u*t*ctrl.Y + t*t*p1.Y,
	}
}

func dist(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
