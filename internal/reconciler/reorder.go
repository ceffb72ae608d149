package reconciler

import (
	"github.com/floorplan-editor/backend/internal/models"
)

// PlanReorder computes the CHANGE_INDEX entries that move ids by order. It
// returns false when nothing would move.
func (r *Reconciler) PlanReorder(ids []string, order models.IndexOrder) (past, present []models.ShapeEntry, moved bool) {
	selected := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := r.layer.byID[id]; ok {
			selected[id] = true
		}
	}
	if len(selected) == 0 {
		return nil, nil, false
	}

	current := make([]string, len(r.layer.order))
	for i, n := range r.layer.order {
		current[i] = n.UUID()
	}
	next := reorderIDs(current, selected, order)

	target := make(map[string]int, len(next))
	for i, id := range next {
		target[id] = i
	}
	for i, id := range current {
		if !selected[id] {
			continue
		}
		cfg := r.layer.byID[id].Config()
		past = append(past, models.ShapeEntry{ID: id, Config: cfg, Index: models.IntPtr(i)})
		present = append(present, models.ShapeEntry{ID: id, Config: cfg.Clone(), Index: models.IntPtr(target[id])})
		if target[id] != i {
			moved = true
		}
	}
	return past, present, moved
}

func reorderIDs(ids []string, selected map[string]bool, order models.IndexOrder) []string {
	out := make([]string, 0, len(ids))
	switch order {
	case models.OrderTop, models.OrderBottom:
		var picked, rest []string
		for _, id := range ids {
			if selected[id] {
				picked = append(picked, id)
			} else {
				rest = append(rest, id)
			}
		}
		if order == models.OrderTop {
			return append(append(out, rest...), picked...)
		}
		return append(append(out, picked...), rest...)
	case models.OrderUp:
		out = append(out, ids...)
		for i := len(out) - 2; i >= 0; i-- {
			if selected[out[i]] && !selected[out[i+1]] {
				out[i], out[i+1] = out[i+1], out[i]
			}
		}
	case models.OrderDown:
		out = append(out, ids...)
		for i := 1; i < len(out); i++ {
			if selected[out[i]] && !selected[out[i-1]] {
				out[i], out[i-1] = out[i-1], out[i]
			}
		}
	default:
		out = append(out, ids...)
	}
	return out
}
