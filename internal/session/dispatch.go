package session

import (
	"fmt"

	"github.com/floorplan-editor/backend/internal/models"
	"github.com/floorplan-editor/backend/internal/reconciler"
	"github.com/google/uuid"
)

// Dispatch applies op to the active floor and records it for undo. CHANGE,
// REMOVE and CHANGE_INDEX take their Past from the live nodes when present,
// so a client never has to send it. A CHANGE_INDEX without indices is
// planned from op.Order. The operation actually applied is returned.
func (s *EditorSession) Dispatch(op models.ShapeOperation) (models.ShapeOperation, error) {
	defer s.events.flush()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkMutable(); err != nil {
		return op, err
	}
	if s.active == nil {
		return op, ErrLayoutNotFound
	}

	if op.Operation == models.OperationChangeIndex && !hasIndices(op.Present) {
		if !op.Order.Valid() {
			return op, fmt.Errorf("%w: unknown order directive %q", ErrInvalidOperation, op.Order)
		}
		planned, moved := s.planReorder(entryIDs(op.Present), op.Order)
		if !moved {
			return planned, nil
		}
		op = planned
	} else {
		var err error
		op, err = s.normalize(op)
		if err != nil {
			return op, err
		}
	}

	s.applyLocked(op, reconciler.Forward)
	s.history.Push(op)
	s.markDirty()
	applied := op.Clone()
	s.events.queue(Event{Type: EventOperation, SessionID: s.ID, Operation: &applied})
	return op, nil
}

// Undo reverts the newest operation. It returns false when there is none.
func (s *EditorSession) Undo() (models.ShapeOperation, bool, error) {
	defer s.events.flush()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkMutable(); err != nil {
		return models.ShapeOperation{}, false, err
	}
	op, ok := s.history.Undo()
	if !ok {
		return op, false, nil
	}
	s.applyLocked(op, reconciler.Inverse)
	s.markDirty()
	reverted := op.Clone()
	s.events.queue(Event{Type: EventUndo, SessionID: s.ID, Operation: &reverted})
	return op, true, nil
}

// Redo re-applies the newest undone operation.
func (s *EditorSession) Redo() (models.ShapeOperation, bool, error) {
	defer s.events.flush()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkMutable(); err != nil {
		return models.ShapeOperation{}, false, err
	}
	op, ok := s.history.Redo()
	if !ok {
		return op, false, nil
	}
	s.applyLocked(op, reconciler.Forward)
	s.markDirty()
	redone := op.Clone()
	s.events.queue(Event{Type: EventRedo, SessionID: s.ID, Operation: &redone})
	return op, true, nil
}

// ChangeIndex moves ids within their layers and dispatches the result.
func (s *EditorSession) ChangeIndex(ids []string, order models.IndexOrder) (models.ShapeOperation, bool, error) {
	entries := make([]models.ShapeEntry, len(ids))
	for i, id := range ids {
		entries[i] = models.ShapeEntry{ID: id}
	}
	op, err := s.Dispatch(models.ShapeOperation{
		Operation: models.OperationChangeIndex,
		Present:   entries,
		Order:     order,
	})
	if err != nil {
		return op, false, err
	}
	return op, len(op.Present) > 0 && hasIndices(op.Present), nil
}

// applyLocked hands op to both layers; each picks the kinds it owns.
func (s *EditorSession) applyLocked(op models.ShapeOperation, dir reconciler.Direction) {
	s.areaLayer.Apply(op, dir)
	s.mapLayer.Apply(op, dir)
	s.pruneSelection()
}

func (s *EditorSession) normalize(op models.ShapeOperation) (models.ShapeOperation, error) {
	op = op.Clone()
	for i := range op.Present {
		e := &op.Present[i]
		if e.ID == "" {
			e.ID = e.Config.UUID
		}
		if e.ID == "" && op.Operation == models.OperationAdd {
			e.ID = uuid.NewString()
		}
		e.Config.UUID = e.ID
	}

	switch op.Operation {
	case models.OperationAdd:
		for _, e := range op.Present {
			if _, _, exists := s.node(e.ID); exists {
				return op, fmt.Errorf("%w: shape %s already exists", ErrInvalidOperation, e.ID)
			}
		}
	case models.OperationChange, models.OperationRemove, models.OperationChangeIndex:
		past := make([]models.ShapeEntry, len(op.Present))
		for i, e := range op.Present {
			if live, ok := s.liveEntry(e.ID); ok {
				past[i] = live
				switch op.Operation {
				case models.OperationRemove:
					op.Present[i] = models.ShapeEntry{ID: live.ID, Config: live.Config.Clone(), Index: models.IntPtr(*live.Index)}
				case models.OperationChangeIndex:
					op.Present[i].Config = live.Config.Clone()
				case models.OperationChange:
					cfg, err := e.ConfigOver(live.Config)
					if err != nil {
						return op, fmt.Errorf("%w: shape %s: %v", ErrInvalidOperation, e.ID, err)
					}
					op.Present[i] = models.ShapeEntry{ID: e.ID, Config: cfg, Index: e.Index}
				}
				continue
			}
			if i < len(op.Past) && op.Past[i].ID == e.ID {
				past[i] = op.Past[i]
				continue
			}
			past[i] = models.ShapeEntry{ID: e.ID, Config: e.Config.Clone(), Index: e.Index}
		}
		op.Past = past
	}
	if err := op.Validate(); err != nil {
		return op, fmt.Errorf("%w: %v", ErrInvalidOperation, err)
	}
	return op, nil
}

// planReorder combines the per-layer plans into one CHANGE_INDEX.
func (s *EditorSession) planReorder(ids []string, order models.IndexOrder) (models.ShapeOperation, bool) {
	op := models.ShapeOperation{Operation: models.OperationChangeIndex, Order: order}
	moved := false
	for _, layer := range []*reconciler.Reconciler{s.areaLayer, s.mapLayer} {
		past, present, ok := layer.PlanReorder(ids, order)
		if !ok {
			continue
		}
		op.Past = append(op.Past, past...)
		op.Present = append(op.Present, present...)
		moved = true
	}
	return op, moved
}

func hasIndices(entries []models.ShapeEntry) bool {
	for _, e := range entries {
		if e.Index == nil {
			return false
		}
	}
	return len(entries) > 0
}

func entryIDs(entries []models.ShapeEntry) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	return ids
}
