package retouch

import "image"

// History is the linear ledger of confirmed image states. The first
// entry is always the originally loaded image and the current image
// is always the last entry. Undone states move onto a redo stack in
// most-recent-first order; any newly confirmed edit discards them.
type History struct {
	states []*image.NRGBA
	redo   []*image.NRGBA
}

// NewHistory starts a ledger with the originally loaded image as its
// first confirmed state.
func NewHistory(original *image.NRGBA) *History {
	return &History{
		states: []*image.NRGBA{original},
	}
}

// Current returns the image at the head of the ledger.
func (h *History) Current() *image.NRGBA {
	return h.states[len(h.states)-1]
}

// Original returns the originally loaded image.
func (h *History) Original() *image.NRGBA {
	return h.states[0]
}

// Push confirms a new edit. Every previously undone state becomes
// unreachable.
func (h *History) Push(img *image.NRGBA) {
	h.states = append(h.states, img)
	h.redo = h.redo[:0]
}

// Undo steps back to the previous confirmed state. The original image
// can never be undone. It reports whether a step was taken and
// returns the new current image.
func (h *History) Undo() (*image.NRGBA, bool) {
	if !h.CanUndo() {
		return h.Current(), false
	}
	last := len(h.states) - 1
	h.redo = append(h.redo, h.states[last])
	h.states = h.states[:last]
	return h.Current(), true
}

// Redo re-applies the most recently undone state.
func (h *History) Redo() (*image.NRGBA, bool) {
	if !h.CanRedo() {
		return h.Current(), false
	}
	last := len(h.redo) - 1
	h.states = append(h.states, h.redo[last])
	h.redo = h.redo[:last]
	return h.Current(), true
}

// CanUndo reports whether at least one confirmed edit can be undone.
func (h *History) CanUndo() bool {
	return len(h.states) > 1
}

// CanRedo reports whether an undone state is available.
func (h *History) CanRedo() bool {
	return len(h.redo) > 0
}

// Len returns the number of confirmed states.
func (h *History) Len() int {
	return len(h.states)
}

// Reset drops the whole ledger and starts over with a new original.
func (h *History) Reset(original *image.NRGBA) {
	h.states = append(h.states[:0], original)
	h.redo = h.redo[:0]
}
