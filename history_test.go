package retouch

import (
	"image"
	"testing"
)

func historyImages(n int) []*image.NRGBA {
	imgs := make([]*image.NRGBA, n)
	for i := range imgs {
		imgs[i] = image.NewNRGBA(image.Rect(0, 0, 4, 4))
		imgs[i].Pix[0] = uint8(i) // make the states distinguishable
	}
	return imgs
}

func TestHistory_CurrentIsLastConfirmed(t *testing.T) {
	imgs := historyImages(3)
	h := NewHistory(imgs[0])

	if h.Current() != imgs[0] || h.Original() != imgs[0] {
		t.Fatal("A fresh history expected to hold the original as its only state")
	}

	h.Push(imgs[1])
	h.Push(imgs[2])

	if h.Current() != imgs[2] {
		t.Error("Current expected to be the most recently pushed state")
	}
	if h.Original() != imgs[0] {
		t.Error("The original expected to stay at the bottom of the ledger")
	}
	if h.Len() != 3 {
		t.Errorf("History length expected to be 3. Got %v", h.Len())
	}
}

func TestHistory_Linearity(t *testing.T) {
	const n = 4
	imgs := historyImages(n)
	h := NewHistory(imgs[0])
	for _, img := range imgs[1:] {
		h.Push(img)
	}

	// Undo n-1 times walks back to the original.
	for i := n - 2; i >= 0; i-- {
		img, ok := h.Undo()
		if !ok {
			t.Fatalf("Undo step down to state %d expected to succeed", i)
		}
		if img != imgs[i] {
			t.Errorf("Undo expected to restore state %d", i)
		}
	}
	if h.CanUndo() {
		t.Error("The original expected to be the undo floor")
	}

	// Redo n-1 times reproduces the exact same sequence.
	for i := 1; i < n; i++ {
		img, ok := h.Redo()
		if !ok {
			t.Fatalf("Redo step up to state %d expected to succeed", i)
		}
		if img != imgs[i] {
			t.Errorf("Redo expected to reproduce state %d", i)
		}
	}
	if h.CanRedo() {
		t.Error("No redo states expected to remain after a full replay")
	}
}

func TestHistory_PushClearsRedo(t *testing.T) {
	imgs := historyImages(4)
	h := NewHistory(imgs[0])
	h.Push(imgs[1])
	h.Push(imgs[2])

	h.Undo()
	if !h.CanRedo() {
		t.Fatal("An undone state expected to be redo-able")
	}

	h.Push(imgs[3])
	if h.CanRedo() {
		t.Error("A newly confirmed edit expected to clear the redo states")
	}
	if h.Current() != imgs[3] {
		t.Error("Current expected to be the newly confirmed edit")
	}
}

func TestHistory_UndoRedoAtBounds(t *testing.T) {
	imgs := historyImages(1)
	h := NewHistory(imgs[0])

	if _, ok := h.Undo(); ok {
		t.Error("Undo on a fresh history expected to be a no-op")
	}
	if _, ok := h.Redo(); ok {
		t.Error("Redo with no undone states expected to be a no-op")
	}
}

func TestHistory_Reset(t *testing.T) {
	imgs := historyImages(3)
	h := NewHistory(imgs[0])
	h.Push(imgs[1])
	h.Undo()

	h.Reset(imgs[2])
	if h.Len() != 1 || h.Current() != imgs[2] || h.CanRedo() {
		t.Error("Reset expected to drop the whole ledger and keep only the new original")
	}
}
