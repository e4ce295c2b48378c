package retouch

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/example/retouch/utils"
)

// The zoom interval of the viewport transform.
const (
	MinZoom = 1.0
	MaxZoom = 5.0
)

// DefaultBrushSize is the on-screen brush radius expressed in screen pixels.
const DefaultBrushSize = 30.0

// ViewportPadding is the margin in screen pixels kept around the
// displayed image when it is fitted into the viewport.
const ViewportPadding = 20.0

// StrokeMode selects between painting the replace region and erasing it.
type StrokeMode int

const (
	// Paint marks pixels for replacement (white).
	Paint StrokeMode = iota
	// Erase restores pixels to the preserve state (black). Erasing
	// overwrites the mask with black instead of blending, it is
	// literally painting preserve.
	Erase
)

// Point is a coordinate in the image natural pixel space.
type Point struct {
	X, Y float64
}

// Surface owns the drawable mask raster of the currently loaded image
// together with the viewport transform, and translates pointer input
// captured in screen space into mask strokes expressed in the image
// natural pixel space. A single Surface serves one loaded image at a
// time; Load resets its whole state.
type Surface struct {
	img  *image.NRGBA
	mask *image.NRGBA

	naturalW, naturalH   int
	displayW, displayH   float64
	viewportW, viewportH float64

	zoom             float64
	offsetX, offsetY float64

	// BrushSize is the brush radius in screen pixels. The cursor shown
	// to the user is a screen-space circle of this size regardless of
	// the zoom level; the radius used for rasterization is rescaled
	// into natural pixel units per segment.
	BrushSize float64

	locked  bool
	drawing bool
	mode    StrokeMode

	// anchor is the current path position of the smoothed stroke,
	// last is the previously observed raw pointer position.
	anchor Point
	last   Point
}

// NewSurface initializes an unloaded mask surface.
func NewSurface(brushSize float64) *Surface {
	if brushSize <= 0 {
		brushSize = DefaultBrushSize
	}
	return &Surface{
		BrushSize: brushSize,
		zoom:      MinZoom,
	}
}

// Load attaches a new image to the surface: it fits the image into
// the viewport preserving the aspect ratio and keeping a padding
// margin, resets the viewport transform to identity and allocates a
// new all-preserve mask at the image natural dimensions.
func (s *Surface) Load(img *image.NRGBA, viewportW, viewportH float64) {
	s.img = img
	s.naturalW = img.Bounds().Dx()
	s.naturalH = img.Bounds().Dy()

	s.zoom = MinZoom
	s.offsetX, s.offsetY = 0, 0
	s.drawing = false
	s.locked = false

	s.Resize(viewportW, viewportH)
	s.mask = newMask(s.naturalW, s.naturalH)
}

// Resize recomputes the display size of the loaded image for a new
// viewport. The display to natural ratio consumed by the brush scale
// math is cached here, once per resize event, never inferred at draw
// time.
func (s *Surface) Resize(viewportW, viewportH float64) {
	s.viewportW = viewportW
	s.viewportH = viewportH

	availW := utils.Max(viewportW-2*ViewportPadding, 1)
	availH := utils.Max(viewportH-2*ViewportPadding, 1)

	scale := utils.Min(availW/float64(s.naturalW), availH/float64(s.naturalH))
	s.displayW = float64(s.naturalW) * scale
	s.displayH = float64(s.naturalH) * scale
}

// MapPointerToImageSpace translates a screen coordinate into the image
// natural pixel space, normalizing it against the bounding box of the
// zoomed and panned display element. The box is recomputed on every
// call since it changes with zoom, pan and window resize. The second
// return value is false when the pointer falls outside the image.
func (s *Surface) MapPointerToImageSpace(sx, sy float64) (Point, bool) {
	left, top, boxW, boxH := s.displayBox()

	nx := (sx - left) / boxW
	ny := (sy - top) / boxH
	if nx < 0 || nx > 1 || ny < 0 || ny > 1 {
		return Point{}, false
	}

	return Point{
		X: nx * float64(s.naturalW),
		Y: ny * float64(s.naturalH),
	}, true
}

// displayBox returns the on-screen bounding box of the displayed
// image: the display element scaled by the zoom factor around the
// viewport center and translated by the pan offset.
func (s *Surface) displayBox() (left, top, w, h float64) {
	w = s.displayW * s.zoom
	h = s.displayH * s.zoom
	left = s.viewportW/2 - w/2 + s.offsetX
	top = s.viewportH/2 - h/2 + s.offsetY
	return left, top, w, h
}

// BeginStroke starts a new stroke at the mapped point. It is a no-op
// while the surface is locked by an in-flight edit.
func (s *Surface) BeginStroke(p Point, mode StrokeMode) {
	if s.locked || s.mask == nil {
		return
	}
	s.drawing = true
	s.mode = mode
	s.anchor = p
	s.last = p

	stampCircle(s.mask, p, s.effectiveRadius(), s.strokeColor())
}

// ExtendStroke draws a smoothed segment from the last recorded point
// to p. The segment is a quadratic curve through the midpoint of the
// previous and the current point, which avoids faceted strokes at
// high pointer sampling rates.
func (s *Surface) ExtendStroke(p Point) {
	if !s.drawing {
		return
	}
	mid := Point{
		X: (s.last.X + p.X) / 2,
		Y: (s.last.Y + p.Y) / 2,
	}
	stampQuadratic(s.mask, s.anchor, s.last, mid, s.effectiveRadius(), s.strokeColor())
	s.anchor = mid
	s.last = p
}

// EndStroke finalizes the current stroke and exports the mask raster.
// It is idempotent: calling it with no active stroke returns nil and
// leaves the surface untouched.
func (s *Surface) EndStroke() *image.NRGBA {
	if !s.drawing {
		return nil
	}
	s.drawing = false
	return s.ExportMask()
}

// Drawing reports whether a stroke is currently active.
func (s *Surface) Drawing() bool {
	return s.drawing
}

// Pan accumulates a screen-space delta into the viewport offset.
func (s *Surface) Pan(dx, dy float64) {
	s.offsetX += dx
	s.offsetY += dy
}

// Zoom adjusts the zoom level by delta, clamped to [MinZoom, MaxZoom].
// When the zoom drops back to its minimum the pan offset is reset so
// the unzoomed image cannot drift out of view.
func (s *Surface) Zoom(delta float64) {
	s.zoom = utils.Clamp(s.zoom+delta, MinZoom, MaxZoom)
	if s.zoom <= MinZoom {
		s.offsetX, s.offsetY = 0, 0
	}
}

// Lock rejects new strokes for the duration of an in-flight edit and
// cuts off the active stroke, if any, so the mask raster stays frozen
// until Unlock.
func (s *Surface) Lock() {
	s.locked = true
	s.drawing = false
}

// Unlock re-enables drawing after the in-flight edit settled.
func (s *Surface) Unlock() { s.locked = false }

// Locked reports whether the surface currently rejects strokes.
func (s *Surface) Locked() bool { return s.locked }

// Image returns the currently loaded image.
func (s *Surface) Image() *image.NRGBA { return s.img }

// Mask exposes the live mask raster.
func (s *Surface) Mask() *image.NRGBA { return s.mask }

// ExportMask returns a snapshot copy of the mask raster.
func (s *Surface) ExportMask() *image.NRGBA {
	if s.mask == nil {
		return nil
	}
	return CloneNRGBA(s.mask)
}

// Replace swaps in a newly confirmed image of the same natural
// dimensions and discards the consumed mask. Unlike Load it keeps the
// viewport transform, so the user stays zoomed into the spot that was
// just edited.
func (s *Surface) Replace(img *image.NRGBA) {
	s.img = img
	s.drawing = false
	s.ClearMask()
}

// ClearMask discards the painted mask and replaces it with a fresh
// all-preserve raster.
func (s *Surface) ClearMask() {
	if s.img == nil {
		return
	}
	s.mask = newMask(s.naturalW, s.naturalH)
}

// ZoomLevel returns the current zoom factor.
func (s *Surface) ZoomLevel() float64 { return s.zoom }

// Offset returns the accumulated pan offset in screen pixels.
func (s *Surface) Offset() (float64, float64) { return s.offsetX, s.offsetY }

// NaturalSize returns the natural pixel dimensions of the loaded image.
func (s *Surface) NaturalSize() (int, int) { return s.naturalW, s.naturalH }

// DisplaySize returns the fitted on-screen dimensions of the image at zoom 1.
func (s *Surface) DisplaySize() (float64, float64) { return s.displayW, s.displayH }

// effectiveRadius rescales the screen-space brush radius into natural
// pixel units. Dividing by the zoom keeps the on-screen brush circle
// at a constant size while the natural/display ratio maps it onto the
// source resolution.
func (s *Surface) effectiveRadius() float64 {
	return s.BrushSize / s.zoom * (float64(s.naturalW) / s.displayW)
}

// strokeColor returns the mask value written by the active mode:
// full white marks replace, full black restores preserve. Both are
// written fully opaque so the exported mask stays an opaque raster.
func (s *Surface) strokeColor() color.NRGBA {
	if s.mode == Erase {
		return color.NRGBA{A: 0xff}
	}
	return color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
}

// newMask allocates an all-preserve (fully black, opaque) mask raster.
func newMask(w, h int) *image.NRGBA {
	mask := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(mask, mask.Bounds(), image.NewUniform(color.NRGBA{A: 0xff}), image.Point{}, draw.Src)
	return mask
}
