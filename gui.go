package retouch

import (
	"context"
	"errors"
	"image"
	"image/color"

	"gioui.org/app"
	"gioui.org/f32"
	"gioui.org/font/gofont"
	"gioui.org/io/key"
	"gioui.org/io/pointer"
	"gioui.org/io/system"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget/material"

	"github.com/example/retouch/utils"
)

type (
	C = layout.Context
	D = layout.Dimensions
)

const (
	maxScreenX = 1366
	maxScreenY = 768
)

// zoomStep converts one scrolled pixel into a zoom delta. A typical
// mouse wheel notch reports around 120 pixels, stepping the zoom by
// roughly half a level.
const zoomStep = 0.005

// Tool selects the active pointer interaction of the editor window.
type Tool int

const (
	// ToolBrush paints the replace region of the mask.
	ToolBrush Tool = iota
	// ToolErase restores painted mask pixels to preserve.
	ToolErase
	// ToolPan drags the zoomed image around.
	ToolPan
)

// Gui is the interactive editor window: it renders the current image
// with the painted mask as a tinted overlay, feeds pointer gestures
// into the mask surface and triggers the inpainting round trip.
type Gui struct {
	session *Session
	tool    Tool

	cursor       f32.Point
	cursorInside bool
	panning      bool
	panLast      f32.Point

	imgOp  paint.ImageOp
	imgSrc *image.NRGBA

	overlayOp    paint.ImageOp
	overlayDirty bool

	status  string
	statErr bool

	// edit is the outstanding inpainting round trip; res transfers its
	// outcome from the worker goroutine back into the event loop, which
	// commits or aborts it there.
	edit *Edit
	res  chan editResult
}

// editResult carries the outcome of an inpainting worker back to the
// event loop.
type editResult struct {
	img *image.NRGBA
	err error
}

// NewGUI initializes the editor window over an editing session.
func NewGUI(session *Session) *Gui {
	return &Gui{
		session:      session,
		tool:         ToolBrush,
		overlayDirty: true,
		res:          make(chan editResult),
	}
}

// windowSize fits the image natural dimensions into the maximum
// predefined window, preserving the aspect ratio.
func (g *Gui) windowSize() (float64, float64) {
	w, h := g.session.Surface().NaturalSize()
	nw, nh := float64(w)+2*ViewportPadding, float64(h)+2*ViewportPadding

	if nw > maxScreenX || nh > maxScreenY {
		ratio := utils.Min(maxScreenX/nw, maxScreenY/nh)
		nw *= ratio
		nh *= ratio
	}
	return nw, nh
}

// Run is the core method of the Gio GUI application. It pumps the
// window events into the mask surface and terminates when the window
// gets destroyed or ESC is pressed.
func (g *Gui) Run() error {
	nw, nh := g.windowSize()
	w := app.NewWindow(
		app.Title("retouch: paint over the object, press Enter to remove it"),
		app.Size(unit.Px(float32(nw)), unit.Px(float32(nh))),
	)

	var ops op.Ops
	for {
		select {
		case e := <-w.Events():
			switch e := e.(type) {
			case system.FrameEvent:
				gtx := layout.NewContext(&ops, e)
				g.frame(gtx, e)
				e.Frame(gtx.Ops)
			case key.Event:
				if e.State == key.Press {
					g.key(w, e)
				}
			case system.DestroyEvent:
				return e.Err
			}
		case r := <-g.res:
			// Settle the outstanding edit on the event loop thread so
			// history and surface are never mutated concurrently with a
			// frame.
			if r.err != nil {
				g.edit.Abort()
				g.status, g.statErr = r.err.Error(), true
			} else {
				g.edit.Commit(r.img)
				g.status, g.statErr = "object removed, paint again or press Z to undo", false
			}
			g.edit = nil
			g.overlayDirty = true
			w.Invalidate()
		}
	}
}

// key dispatches the editor key bindings.
func (g *Gui) key(w *app.Window, e key.Event) {
	s := g.session.Surface()

	switch e.Name {
	case key.NameEscape:
		w.Perform(system.ActionClose)
	case "B":
		g.tool = ToolBrush
		g.setStatus("brush tool")
	case "E":
		g.tool = ToolErase
		g.setStatus("erase tool")
	case "P":
		g.tool = ToolPan
		g.setStatus("pan tool")
	case "C":
		s.ClearMask()
		g.overlayDirty = true
		g.setStatus("mask cleared")
	case "Z":
		if g.session.Undo() {
			g.overlayDirty = true
			g.setStatus("undo")
		}
	case "Y":
		if g.session.Redo() {
			g.overlayDirty = true
			g.setStatus("redo")
		}
	case "[":
		s.BrushSize = utils.Max(s.BrushSize-5, 5)
	case "]":
		s.BrushSize = utils.Min(s.BrushSize+5, 200)
	case key.NameReturn, key.NameEnter:
		g.startEdit(w)
	}
	w.Invalidate()
}

// startEdit takes the lock and the mask snapshot synchronously on the
// event loop thread, then runs only the backend round trip on a
// worker goroutine. A second trigger while an edit is outstanding is
// a no-op.
func (g *Gui) startEdit(w *app.Window) {
	edit, err := g.session.BeginEdit()
	if err != nil {
		if !errors.Is(err, ErrBusy) {
			g.status, g.statErr = err.Error(), true
		}
		return
	}
	g.edit = edit
	g.status, g.statErr = "removing the object...", false

	go func() {
		img, err := edit.Run(context.Background())
		g.res <- editResult{img: img, err: err}
		w.Invalidate()
	}()
}

// frame processes the queued pointer events and redraws the window.
func (g *Gui) frame(gtx C, e system.FrameEvent) {
	s := g.session.Surface()
	s.Resize(float64(e.Size.X), float64(e.Size.Y))

	for _, ev := range gtx.Events(g) {
		if pe, ok := ev.(pointer.Event); ok {
			g.pointer(pe)
		}
	}

	paint.Fill(gtx.Ops, color.NRGBA{R: 0x12, G: 0x12, B: 0x14, A: 0xff})

	g.drawImage(gtx)
	g.drawOverlay(gtx)
	g.drawCursor(gtx)
	g.drawStatus(gtx, e)

	// Register for the next frame's pointer events across the whole window.
	defer clip.Rect(image.Rectangle{Max: gtx.Constraints.Max}).Push(gtx.Ops).Pop()
	pointer.InputOp{
		Tag: g,
		Types: pointer.Press | pointer.Drag | pointer.Release | pointer.Cancel |
			pointer.Move | pointer.Scroll | pointer.Leave,
		ScrollBounds: image.Rect(0, -240, 0, 240),
	}.Add(gtx.Ops)
}

// pointer feeds one pointer event into the mask surface, translating
// the screen position into the image natural space first.
func (g *Gui) pointer(e pointer.Event) {
	s := g.session.Surface()
	g.cursor = e.Position
	sx, sy := float64(e.Position.X), float64(e.Position.Y)

	switch e.Type {
	case pointer.Scroll:
		s.Zoom(-float64(e.Scroll.Y) * zoomStep)
	case pointer.Press:
		if g.tool == ToolPan {
			g.panning = true
			g.panLast = e.Position
			return
		}
		if pt, ok := s.MapPointerToImageSpace(sx, sy); ok {
			s.BeginStroke(pt, g.strokeMode())
			g.overlayDirty = true
		}
	case pointer.Drag:
		if g.panning {
			s.Pan(float64(e.Position.X-g.panLast.X), float64(e.Position.Y-g.panLast.Y))
			g.panLast = e.Position
			return
		}
		// A drag outside the image bounds must not extend the stroke;
		// the stroke stays active and resumes when the pointer is back.
		if pt, ok := s.MapPointerToImageSpace(sx, sy); ok && s.Drawing() {
			s.ExtendStroke(pt)
			g.overlayDirty = true
		}
	case pointer.Release, pointer.Cancel:
		g.panning = false
		// A finalized stroke exports the settled mask; refresh the
		// overlay from it one last time.
		if s.EndStroke() != nil {
			g.overlayDirty = true
		}
	case pointer.Move:
		g.cursorInside = true
	case pointer.Leave:
		g.cursorInside = false
	}
}

func (g *Gui) strokeMode() StrokeMode {
	if g.tool == ToolErase {
		return Erase
	}
	return Paint
}

// displayTransform maps the image natural space onto the screen
// through the current viewport transform.
func (g *Gui) displayTransform() (f32.Affine2D, image.Rectangle) {
	s := g.session.Surface()
	left, top, boxW, _ := s.displayBox()
	nw, nh := s.NaturalSize()

	scale := float32(boxW) / float32(nw)
	tr := f32.Affine2D{}.
		Scale(f32.Point{}, f32.Pt(scale, scale)).
		Offset(f32.Pt(float32(left), float32(top)))

	return tr, image.Rect(0, 0, nw, nh)
}

// drawImage renders the current confirmed image under the viewport transform.
func (g *Gui) drawImage(gtx C) {
	cur := g.session.Current()
	if cur != g.imgSrc {
		g.imgOp = paint.NewImageOp(cur)
		g.imgSrc = cur
	}

	tr, rect := g.displayTransform()
	defer op.Affine(tr).Push(gtx.Ops).Pop()
	defer clip.Rect(rect).Push(gtx.Ops).Pop()

	g.imgOp.Add(gtx.Ops)
	paint.PaintOp{}.Add(gtx.Ops)
}

// drawOverlay tints the painted mask region on top of the image so
// the user sees what will be replaced.
func (g *Gui) drawOverlay(gtx C) {
	if g.overlayDirty {
		g.overlayOp = paint.NewImageOp(maskOverlay(g.session.Surface().Mask()))
		g.overlayDirty = false
	}

	tr, rect := g.displayTransform()
	defer op.Affine(tr).Push(gtx.Ops).Pop()
	defer clip.Rect(rect).Push(gtx.Ops).Pop()

	g.overlayOp.Add(gtx.Ops)
	paint.PaintOp{}.Add(gtx.Ops)
}

// drawCursor draws the screen-space brush circle. Its on-screen size
// is constant regardless of the zoom level; the surface rescales the
// actual rasterization radius on its own.
func (g *Gui) drawCursor(gtx C) {
	if !g.cursorInside || g.tool == ToolPan {
		return
	}
	r := int(g.session.Surface().BrushSize)
	bounds := image.Rect(
		int(g.cursor.X)-r, int(g.cursor.Y)-r,
		int(g.cursor.X)+r, int(g.cursor.Y)+r,
	)

	outline := clip.Stroke{
		Path:  clip.Ellipse(bounds).Path(gtx.Ops),
		Width: 1.5,
	}.Op()
	paint.FillShape(gtx.Ops, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xb0}, outline)
}

// drawStatus renders the transient status line at the bottom edge.
func (g *Gui) drawStatus(gtx C, e system.FrameEvent) {
	if g.status == "" {
		return
	}

	fgcol := color.NRGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}
	if g.statErr {
		fgcol = color.NRGBA{R: 0xff, G: 0x6e, B: 0x6e, A: 0xff}
	}

	th := material.NewTheme(gofont.Collection())
	th.Palette.Fg = fgcol

	defer op.Offset(f32.Pt(float32(ViewportPadding), float32(e.Size.Y)-float32(ViewportPadding))).Push(gtx.Ops).Pop()
	material.Label(th, unit.Sp(14), g.status).Layout(gtx)
}

func (g *Gui) setStatus(msg string) {
	g.status, g.statErr = msg, false
}

// maskOverlay converts the mask raster into a translucent red layer:
// the stronger a pixel marks replace, the more visible the tint.
func maskOverlay(mask *image.NRGBA) *image.NRGBA {
	overlay := image.NewNRGBA(mask.Bounds())
	for i := 0; i < len(mask.Pix); i += 4 {
		lum := (uint32(mask.Pix[i]) + uint32(mask.Pix[i+1]) + uint32(mask.Pix[i+2])) / 3
		overlay.Pix[i] = 0xe5
		overlay.Pix[i+1] = 0x39
		overlay.Pix[i+2] = 0x35
		overlay.Pix[i+3] = uint8(lum * 160 / 255)
	}
	return overlay
}
