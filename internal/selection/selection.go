package selection

import (
	"fmt"
	"sort"

	"github.com/floorplan-editor/backend/internal/scene"
	"github.com/floorplan-editor/backend/internal/shape"
)

// DefaultMax is the selection cap when none is configured.
const DefaultMax = 1000

// Notifier receives dialog requests raised while selecting.
type Notifier interface {
	SelectionLimited(requested, limit int)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(requested, limit int)

func (f NotifierFunc) SelectionLimited(requested, limit int) { f(requested, limit) }

// Resolver looks up a node and its sort rank (z-order) by uuid.
type Resolver func(id string) (n *shape.Node, rank int, ok bool)

// Selection is the set of nodes whose payload lives in the edit container.
type Selection struct {
	edit     *scene.Container
	max      int
	notifier Notifier
	ids      []string
	nodes    map[string]*shape.Node
}

// New creates an empty selection over edit. limit <= 0 selects DefaultMax.
func New(edit *scene.Container, limit int, notifier Notifier) *Selection {
	if limit <= 0 {
		limit = DefaultMax
	}
	return &Selection{
		edit:     edit,
		max:      limit,
		notifier: notifier,
		nodes:    make(map[string]*shape.Node),
	}
}

// Edit is the container selected payloads live in.
func (s *Selection) Edit() *scene.Container {
	return s.edit
}

// Max is the selection cap.
func (s *Selection) Max() int {
	return s.max
}

// IDs returns the selected uuids in rank order.
func (s *Selection) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Len is the number of selected nodes.
func (s *Selection) Len() int {
	return len(s.ids)
}

// Contains reports whether id is selected.
func (s *Selection) Contains(id string) bool {
	_, ok := s.nodes[id]
	return ok
}

type ranked struct {
	id   string
	node *shape.Node
	rank int
}

// Set replaces the selection with ids. Unknown and unselectable ids are
// dropped; the rest are sorted by rank and cut at the cap, in which case the
// notifier is asked once for a dialog and Set returns true.
func (s *Selection) Set(ids []string, resolve Resolver) (bool, error) {
	seen := make(map[string]bool, len(ids))
	var picked []ranked
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		n, rank, ok := resolve(id)
		if !ok || !selectable(n) {
			continue
		}
		picked = append(picked, ranked{id: id, node: n, rank: rank})
	}
	sort.SliceStable(picked, func(i, j int) bool { return picked[i].rank < picked[j].rank })

	truncated := false
	if len(picked) > s.max {
		requested := len(picked)
		picked = picked[:s.max]
		truncated = true
		if s.notifier != nil {
			s.notifier.SelectionLimited(requested, s.max)
		}
	}

	next := make(map[string]*shape.Node, len(picked))
	for _, p := range picked {
		next[p.id] = p.node
	}
	// Bookkeeping follows each move, so on error it still matches the edit
	// container.
	for _, id := range s.IDs() {
		if _, keep := next[id]; keep {
			continue
		}
		if _, err := Restore(s.nodes[id]); err != nil {
			return truncated, err
		}
		s.forget(id)
	}
	for _, p := range picked {
		if _, err := Transfer(p.node, s.edit); err != nil {
			s.ids = s.selectedOf(picked)
			return truncated, fmt.Errorf("select: %w", err)
		}
		s.nodes[p.id] = p.node
	}
	s.ids = s.selectedOf(picked)
	return truncated, nil
}

func (s *Selection) forget(id string) {
	delete(s.nodes, id)
	for i, sid := range s.ids {
		if sid == id {
			s.ids = append(s.ids[:i:i], s.ids[i+1:]...)
			return
		}
	}
}

// selectedOf lists the picked ids currently selected, in rank order.
func (s *Selection) selectedOf(picked []ranked) []string {
	out := make([]string, 0, len(picked))
	for _, p := range picked {
		if _, ok := s.nodes[p.id]; ok {
			out = append(out, p.id)
		}
	}
	return out
}

// Clear moves every selected payload home.
func (s *Selection) Clear() error {
	var firstErr error
	for _, n := range s.nodes {
		if _, err := Restore(n); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.ids = nil
	s.nodes = make(map[string]*shape.Node)
	return firstErr
}

// Prune forgets selected nodes that are no longer live, without moving them.
// live reports whether id still resolves to the same node.
func (s *Selection) Prune(live func(id string, n *shape.Node) bool) {
	kept := s.ids[:0]
	for _, id := range s.ids {
		if live(id, s.nodes[id]) {
			kept = append(kept, id)
			continue
		}
		delete(s.nodes, id)
	}
	s.ids = kept
}

func selectable(n *shape.Node) bool {
	cfg := n.Config()
	return cfg.IsSelectable() && !cfg.Disabled
}
