// Package reconciler keeps a layer of shape nodes in step with the
// operations applied to a floor.
package reconciler

import (
	"github.com/floorplan-editor/backend/internal/scene"
	"github.com/floorplan-editor/backend/internal/shape"
)

// Layer is an ordered set of nodes; order is z-order, last on top.
type Layer struct {
	container *scene.Container
	order     []*shape.Node
	byID      map[string]*shape.Node
}

func newLayer(name string) *Layer {
	return &Layer{
		container: scene.NewContainer(name),
		byID:      make(map[string]*shape.Node),
	}
}

func (l *Layer) insert(n *shape.Node, index int) {
	n.Attach(l.container)
	l.byID[n.UUID()] = n
	if index < 0 || index >= len(l.order) {
		l.order = append(l.order, n)
		return
	}
	l.order = append(l.order, nil)
	copy(l.order[index+1:], l.order[index:])
	l.order[index] = n
}

func (l *Layer) remove(id string) (*shape.Node, bool) {
	n, ok := l.byID[id]
	if !ok {
		return nil, false
	}
	n.Detach()
	delete(l.byID, id)
	l.order = removeNode(l.order, n)
	return n, true
}

func (l *Layer) indexOf(id string) int {
	for i, n := range l.order {
		if n.UUID() == id {
			return i
		}
	}
	return -1
}

func (l *Layer) reset() {
	for _, n := range l.order {
		n.Detach()
	}
	l.container.Reset()
	l.order = nil
	l.byID = make(map[string]*shape.Node)
}

func removeNode(order []*shape.Node, n *shape.Node) []*shape.Node {
	for i, m := range order {
		if m == n {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}
