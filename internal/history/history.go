// Package history holds the undo/redo stacks of an editing session.
package history

import (
	"sync"

	"github.com/floorplan-editor/backend/internal/models"
)

// Unbounded keeps every undoable operation for the life of the session.
const Unbounded = 0

// History is a past/future pair of operation stacks.
type History struct {
	mu     sync.Mutex
	past   []models.ShapeOperation
	future []models.ShapeOperation
	limit  int
}

// New creates an empty history. A positive limit keeps only that many
// undoable operations; anything else keeps all of them.
func New(limit int) *History {
	if limit < 0 {
		limit = Unbounded
	}
	return &History{limit: limit}
}

// Push records a newly applied operation and drops the redo stack.
func (h *History) Push(op models.ShapeOperation) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.past = append(h.past, op.Clone())
	if h.limit > 0 && len(h.past) > h.limit {
		h.past = append([]models.ShapeOperation(nil), h.past[len(h.past)-h.limit:]...)
	}
	h.future = nil
}

// Undo pops the latest operation and moves it to the redo stack.
func (h *History) Undo() (models.ShapeOperation, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.past) == 0 {
		return models.ShapeOperation{}, false
	}
	op := h.past[len(h.past)-1]
	h.past = h.past[:len(h.past)-1]
	h.future = append(h.future, op)
	return op.Clone(), true
}

// Redo pops the latest undone operation and moves it back to the past.
func (h *History) Redo() (models.ShapeOperation, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.future) == 0 {
		return models.ShapeOperation{}, false
	}
	op := h.future[len(h.future)-1]
	h.future = h.future[:len(h.future)-1]
	h.past = append(h.past, op)
	return op.Clone(), true
}

func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.past) > 0
}

func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.future) > 0
}

// Len returns the sizes of the past and future stacks.
func (h *History) Len() (past, future int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.past), len(h.future)
}

// Reset empties both stacks.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.past = nil
	h.future = nil
}
