package history

import (
	"fmt"
	"testing"

	"github.com/floorplan-editor/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func op(id string) models.ShapeOperation {
	return models.ShapeOperation{
		Operation: models.OperationAdd,
		Present:   []models.ShapeEntry{{ID: id, Config: models.ShapeConfig{UUID: id, Shape: models.ShapeRect}}},
	}
}

func TestUndoRedo(t *testing.T) {
	h := New(0)
	assert.False(t, h.CanUndo())
	assert.False(t, h.CanRedo())

	h.Push(op("a"))
	h.Push(op("b"))

	got, ok := h.Undo()
	require.True(t, ok)
	assert.Equal(t, "b", got.Present[0].ID)
	assert.True(t, h.CanRedo())

	got, ok = h.Redo()
	require.True(t, ok)
	assert.Equal(t, "b", got.Present[0].ID)
	assert.False(t, h.CanRedo())

	past, future := h.Len()
	assert.Equal(t, 2, past)
	assert.Equal(t, 0, future)
}

func TestPushClearsFuture(t *testing.T) {
	h := New(0)
	h.Push(op("a"))
	h.Undo()
	require.True(t, h.CanRedo())

	h.Push(op("b"))
	assert.False(t, h.CanRedo())
	_, ok := h.Redo()
	assert.False(t, ok)
}

func TestEmptyStacks(t *testing.T) {
	h := New(0)
	_, ok := h.Undo()
	assert.False(t, ok)
	_, ok = h.Redo()
	assert.False(t, ok)
}

func TestLimit(t *testing.T) {
	h := New(2)
	h.Push(op("a"))
	h.Push(op("b"))
	h.Push(op("c"))

	past, _ := h.Len()
	assert.Equal(t, 2, past)
	got, _ := h.Undo()
	assert.Equal(t, "c", got.Present[0].ID)
	got, _ = h.Undo()
	assert.Equal(t, "b", got.Present[0].ID)
	assert.False(t, h.CanUndo())
}

func TestUnboundedByDefault(t *testing.T) {
	h := New(Unbounded)
	for i := 0; i < 600; i++ {
		h.Push(op(fmt.Sprintf("s%d", i)))
	}

	past, _ := h.Len()
	assert.Equal(t, 600, past)
	for i := 599; i >= 0; i-- {
		got, ok := h.Undo()
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("s%d", i), got.Present[0].ID)
	}
	assert.False(t, h.CanUndo())

	past, _ = New(-1).Len()
	assert.Zero(t, past)
}

func TestStoredCopiesAreIsolated(t *testing.T) {
	h := New(0)
	o := op("a")
	h.Push(o)
	o.Present[0].Config.X = 50

	got, _ := h.Undo()
	assert.Equal(t, 0.0, got.Present[0].Config.X)
}

func TestReset(t *testing.T) {
	h := New(0)
	h.Push(op("a"))
	h.Push(op("b"))
	h.Undo()
	h.Reset()
	assert.False(t, h.CanUndo())
	assert.False(t, h.CanRedo())
}
