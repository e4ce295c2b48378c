package retouch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/example/retouch/inpaint"
)

// ErrBusy reports an attempt to start a new edit while another one is
// still in flight. There is no cancellation of an outstanding
// inpainting request; the caller awaits completion or failure.
var ErrBusy = errors.New("retouch: an edit is already in flight")

// ErrEmptyMask reports an edit attempt with nothing painted on the mask.
var ErrEmptyMask = errors.New("retouch: the mask is empty, paint over the object first")

// Session ties the mask surface, the edit history, the compositor and
// an inpainting client into one editing session over a loaded image.
// All methods are meant to be driven from a single event loop; the
// surface lock guarantees that the mask snapshot consumed by an
// outstanding edit can never race against a new stroke.
type Session struct {
	surface *Surface
	history *History
	comp    *Compositor
	client  inpaint.Client

	// Prompt is forwarded to the inpainting backend together with the
	// image and the mask.
	Prompt string
}

// NewSession starts an editing session over the given image. The
// viewport dimensions seed the surface fit; call Surface().Resize on
// window resize events.
func NewSession(img *image.NRGBA, client inpaint.Client, viewportW, viewportH float64) (*Session, error) {
	if img == nil {
		return nil, ErrNilInput
	}
	if img.Bounds().Dx() == 0 || img.Bounds().Dy() == 0 {
		return nil, ErrBounds
	}

	surface := NewSurface(DefaultBrushSize)
	surface.Load(img, viewportW, viewportH)

	return &Session{
		surface: surface,
		history: NewHistory(img),
		comp:    NewCompositor(),
		client:  client,
		Prompt:  inpaint.DefaultPrompt,
	}, nil
}

// Surface returns the interactive mask surface of the session.
func (s *Session) Surface() *Surface { return s.surface }

// History returns the edit ledger of the session.
func (s *Session) History() *History { return s.history }

// Current returns the confirmed image the user is looking at.
func (s *Session) Current() *image.NRGBA { return s.history.Current() }

// Edit is one in-flight inpainting round trip. BeginEdit creates it
// on the thread that owns the session, Run may be carried onto a
// worker goroutine since it only touches the snapshots taken at begin
// time, and Commit or Abort settle it back on the owning thread.
type Edit struct {
	session *Session
	current *image.NRGBA
	mask    *image.NRGBA
	prompt  string
}

// BeginEdit locks the surface and snapshots the mask and the current
// image, pinning the exact state the edit will consume. It must run
// on the thread that owns the session, before any further strokes can
// land. An empty mask or an already outstanding edit is rejected.
func (s *Session) BeginEdit() (*Edit, error) {
	if s.surface.Locked() {
		return nil, ErrBusy
	}

	mask := s.surface.ExportMask()
	if mask == nil || maskIsEmpty(mask) {
		return nil, ErrEmptyMask
	}

	s.surface.Lock()

	return &Edit{
		session: s,
		current: s.history.Current(),
		mask:    mask,
		prompt:  s.Prompt,
	}, nil
}

// Run performs the backend round trip and the surgical composite over
// the snapshots held by the edit. It never touches the live session
// state, so it is safe on a worker goroutine while the owning thread
// keeps rendering.
func (e *Edit) Run(ctx context.Context) (*image.NRGBA, error) {
	imgPNG, err := EncodePNG(e.current)
	if err != nil {
		return nil, fmt.Errorf("retouch: could not encode the current image: %w", err)
	}
	maskPNG, err := EncodePNG(e.mask)
	if err != nil {
		return nil, fmt.Errorf("retouch: could not encode the mask: %w", err)
	}

	reply, err := e.session.client.Inpaint(ctx, imgPNG, maskPNG, e.prompt)
	if err != nil {
		return nil, fmt.Errorf("retouch: inpainting failed: %w", err)
	}

	result, err := DecodeImage(bytes.NewReader(reply))
	if err != nil {
		return nil, err
	}

	return e.session.comp.Composite(e.current, result, e.mask)
}

// Commit confirms the composited image as a new history state,
// swaps it into the surface and unlocks. It must run on the thread
// that owns the session.
func (e *Edit) Commit(final *image.NRGBA) {
	e.session.history.Push(final)
	e.session.surface.Replace(final)
	e.session.surface.Unlock()
}

// Abort releases the lock after a failed run. The history and the
// painted mask stay untouched so the user can simply retry.
func (e *Edit) Abort() {
	e.session.surface.Unlock()
}

// RemoveObject runs one complete edit round trip synchronously: lock
// and snapshot, backend call and composite, confirm. Callers driving
// the session from an event loop use BeginEdit/Run/Commit directly so
// only the Run phase leaves the loop's thread.
func (s *Session) RemoveObject(ctx context.Context) error {
	edit, err := s.BeginEdit()
	if err != nil {
		return err
	}

	final, err := edit.Run(ctx)
	if err != nil {
		edit.Abort()
		return err
	}

	edit.Commit(final)
	return nil
}

// Undo steps the session back to the previous confirmed image.
func (s *Session) Undo() bool {
	if s.surface.Locked() {
		return false
	}
	img, ok := s.history.Undo()
	if ok {
		s.surface.Replace(img)
	}
	return ok
}

// Redo re-applies the most recently undone edit.
func (s *Session) Redo() bool {
	if s.surface.Locked() {
		return false
	}
	img, ok := s.history.Redo()
	if ok {
		s.surface.Replace(img)
	}
	return ok
}

// maskIsEmpty reports whether no pixel of the mask marks a replace
// region, that is every color channel is zero.
func maskIsEmpty(mask *image.NRGBA) bool {
	for i := 0; i < len(mask.Pix); i += 4 {
		if mask.Pix[i] != 0 || mask.Pix[i+1] != 0 || mask.Pix[i+2] != 0 {
			return false
		}
	}
	return true
}
