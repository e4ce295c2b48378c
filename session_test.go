package retouch

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
)

// fakeClient replays a canned inpainting reply and records what it was
// called with. A non-nil block channel holds the call open until the
// channel is closed, standing in for a slow backend.
type fakeClient struct {
	reply []byte
	err   error
	block chan struct{}

	calls    int
	gotImage []byte
	gotMask  []byte
}

func (f *fakeClient) Inpaint(ctx context.Context, image, mask []byte, prompt string) ([]byte, error) {
	f.calls++
	f.gotImage = image
	f.gotMask = mask
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

func testSession(t *testing.T, client *fakeClient) *Session {
	t.Helper()

	img := solidImage(40, 30, color.NRGBA{R: 0xff, A: 0xff})
	session, err := NewSession(img, client, 40+2*ViewportPadding, 30+2*ViewportPadding)
	if err != nil {
		t.Fatalf("NewSession expected to succeed. Got %v", err)
	}
	return session
}

func paintSpot(s *Surface, p Point) {
	s.BrushSize = 5
	s.BeginStroke(p, Paint)
	s.EndStroke()
}

func TestSession_RemoveObject(t *testing.T) {
	reply, err := EncodePNG(solidImage(40, 30, color.NRGBA{B: 0xff, A: 0xff}))
	if err != nil {
		t.Fatal(err)
	}
	client := &fakeClient{reply: reply}
	session := testSession(t, client)

	paintSpot(session.Surface(), Point{X: 20, Y: 15})
	maskSnapshot := session.Surface().ExportMask()

	if err := session.RemoveObject(context.Background()); err != nil {
		t.Fatalf("RemoveObject expected to succeed. Got %v", err)
	}

	if client.calls != 1 {
		t.Errorf("The backend expected to be called once. Got %d", client.calls)
	}

	// The mask handed to the backend is the snapshot taken at call time.
	sentMask, err := DecodeImage(bytes.NewReader(client.gotMask))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(sentMask.Pix, maskSnapshot.Pix) {
		t.Error("The backend expected to receive the exact mask snapshot")
	}

	if session.History().Len() != 2 {
		t.Fatalf("A confirmed edit expected to be pushed to the history. Got %d states", session.History().Len())
	}

	out := session.Current()
	if got := out.NRGBAAt(20, 15); got.B != 0xff {
		t.Errorf("The painted pixel expected to show the AI content. Got %v", got)
	}
	if got := out.NRGBAAt(0, 0); got.R != 0xff || got.B != 0 {
		t.Errorf("An unpainted pixel expected to stay untouched. Got %v", got)
	}

	if !maskIsEmpty(session.Surface().Mask()) {
		t.Error("The consumed mask expected to be reset after a successful edit")
	}
	if session.Surface().Locked() {
		t.Error("The surface expected to be unlocked after the edit settled")
	}
}

func TestSession_EmptyMask(t *testing.T) {
	session := testSession(t, &fakeClient{})

	if err := session.RemoveObject(context.Background()); !errors.Is(err, ErrEmptyMask) {
		t.Errorf("RemoveObject with an empty mask expected to fail with ErrEmptyMask. Got %v", err)
	}
}

func TestSession_BusyRejectsSecondEdit(t *testing.T) {
	session := testSession(t, &fakeClient{})
	paintSpot(session.Surface(), Point{X: 20, Y: 15})

	session.Surface().Lock()
	if err := session.RemoveObject(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("RemoveObject while locked expected to fail with ErrBusy. Got %v", err)
	}
}

func TestSession_FailureKeepsState(t *testing.T) {
	client := &fakeClient{err: errors.New("backend unavailable")}
	session := testSession(t, client)

	paintSpot(session.Surface(), Point{X: 20, Y: 15})
	painted := session.Surface().ExportMask()

	if err := session.RemoveObject(context.Background()); err == nil {
		t.Fatal("RemoveObject expected to surface the backend failure")
	}

	if session.History().Len() != 1 {
		t.Error("A failed edit expected to leave the history untouched")
	}
	if !bytes.Equal(painted.Pix, session.Surface().Mask().Pix) {
		t.Error("A failed edit expected to keep the painted mask so the user can retry")
	}
	if session.Surface().Locked() {
		t.Error("The surface expected to be unlocked after the failure")
	}
}

func TestSession_SnapshotFrozenAtBegin(t *testing.T) {
	reply, err := EncodePNG(solidImage(40, 30, color.NRGBA{B: 0xff, A: 0xff}))
	if err != nil {
		t.Fatal(err)
	}
	client := &fakeClient{reply: reply}
	session := testSession(t, client)

	paintSpot(session.Surface(), Point{X: 20, Y: 15})
	snapshot := session.Surface().ExportMask()

	edit, err := session.BeginEdit()
	if err != nil {
		t.Fatalf("BeginEdit expected to succeed. Got %v", err)
	}

	// Strokes landing after the edit began must not reach the snapshot.
	session.Surface().BeginStroke(Point{X: 5, Y: 5}, Paint)
	session.Surface().ExtendStroke(Point{X: 8, Y: 8})

	final, err := edit.Run(context.Background())
	if err != nil {
		t.Fatalf("Run expected to succeed. Got %v", err)
	}

	sentMask, err := DecodeImage(bytes.NewReader(client.gotMask))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(sentMask.Pix, snapshot.Pix) {
		t.Error("The backend expected to receive the mask exactly as it was when the edit began")
	}

	edit.Commit(final)
	if got := session.Current().NRGBAAt(5, 5); got.R != 0xff || got.B != 0 {
		t.Errorf("A pixel stroked after the edit began expected to stay untouched. Got %v", got)
	}
}

func TestSession_LockCutsOffActiveStroke(t *testing.T) {
	session := testSession(t, &fakeClient{})
	s := session.Surface()

	s.BrushSize = 5
	s.BeginStroke(Point{X: 20, Y: 15}, Paint)

	before := s.ExportMask()
	s.Lock()

	// The stroke that was active at lock time is over; extending it
	// must leave the frozen mask untouched.
	s.ExtendStroke(Point{X: 30, Y: 15})
	if s.Drawing() {
		t.Error("Lock expected to end the active stroke")
	}
	if !bytes.Equal(before.Pix, s.Mask().Pix) {
		t.Error("The mask expected to stay frozen while locked")
	}
}

func TestSession_ConcurrentStrokesDuringEdit(t *testing.T) {
	reply, err := EncodePNG(solidImage(40, 30, color.NRGBA{B: 0xff, A: 0xff}))
	if err != nil {
		t.Fatal(err)
	}
	client := &fakeClient{reply: reply, block: make(chan struct{})}
	session := testSession(t, client)

	paintSpot(session.Surface(), Point{X: 20, Y: 15})

	edit, err := session.BeginEdit()
	if err != nil {
		t.Fatalf("BeginEdit expected to succeed. Got %v", err)
	}

	// The worker runs only over the snapshots taken at begin time.
	done := make(chan editOutcome, 1)
	go func() {
		img, err := edit.Run(context.Background())
		done <- editOutcome{img: img, err: err}
	}()

	// Meanwhile the owning thread keeps handling input and rendering:
	// stroke attempts, mask reads for the overlay, image reads for the
	// frame. None of it may race against the worker.
	for i := 0; i < 100; i++ {
		session.Surface().BeginStroke(Point{X: float64(i % 40), Y: 5}, Paint)
		session.Surface().ExtendStroke(Point{X: float64(i % 40), Y: 10})
		session.Surface().EndStroke()
		_ = session.Current().Pix[0]
		_ = session.Surface().Mask().Pix[0]
	}
	close(client.block)

	outcome := <-done
	if outcome.err != nil {
		t.Fatalf("Run expected to succeed. Got %v", outcome.err)
	}
	edit.Commit(outcome.img)

	if session.History().Len() != 2 {
		t.Errorf("A confirmed edit expected to be pushed to the history. Got %d states", session.History().Len())
	}
	if session.Surface().Locked() {
		t.Error("The surface expected to be unlocked after the edit settled")
	}
	if got := session.Current().NRGBAAt(20, 15); got.B != 0xff {
		t.Errorf("The painted pixel expected to show the AI content. Got %v", got)
	}
}

type editOutcome struct {
	img *image.NRGBA
	err error
}

func TestSession_AbortKeepsState(t *testing.T) {
	session := testSession(t, &fakeClient{})
	paintSpot(session.Surface(), Point{X: 20, Y: 15})
	painted := session.Surface().ExportMask()

	edit, err := session.BeginEdit()
	if err != nil {
		t.Fatalf("BeginEdit expected to succeed. Got %v", err)
	}
	edit.Abort()

	if session.Surface().Locked() {
		t.Error("Abort expected to release the lock")
	}
	if session.History().Len() != 1 {
		t.Error("Abort expected to leave the history untouched")
	}
	if !bytes.Equal(painted.Pix, session.Surface().Mask().Pix) {
		t.Error("Abort expected to keep the painted mask so the user can retry")
	}
}

func TestSession_UndoRedo(t *testing.T) {
	reply, err := EncodePNG(solidImage(40, 30, color.NRGBA{B: 0xff, A: 0xff}))
	if err != nil {
		t.Fatal(err)
	}
	session := testSession(t, &fakeClient{reply: reply})
	original := session.Current()

	paintSpot(session.Surface(), Point{X: 20, Y: 15})
	if err := session.RemoveObject(context.Background()); err != nil {
		t.Fatal(err)
	}
	edited := session.Current()

	if !session.Undo() {
		t.Fatal("Undo after a confirmed edit expected to succeed")
	}
	if session.Current() != original {
		t.Error("Undo expected to restore the original image")
	}
	if session.Surface().Image() != original {
		t.Error("Undo expected to swap the surface image as well")
	}

	if !session.Redo() {
		t.Fatal("Redo expected to succeed")
	}
	if session.Current() != edited {
		t.Error("Redo expected to restore the edited image")
	}
}
