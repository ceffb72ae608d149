package reconciler

import (
	"fmt"
	"sort"

	"github.com/floorplan-editor/backend/internal/models"
	"github.com/floorplan-editor/backend/internal/scene"
	"github.com/floorplan-editor/backend/internal/shape"
)

// Direction selects whether an operation is applied or reverted.
type Direction int

const (
	Forward Direction = iota
	Inverse
)

func (d Direction) String() string {
	if d == Inverse {
		return "inverse"
	}
	return "forward"
}

// Filter decides which shape kinds a reconciler owns.
type Filter func(kind models.ShapeKind) bool

// MapShapes accepts everything but areas.
func MapShapes(kind models.ShapeKind) bool { return kind != models.ShapeArea }

// AreaShapes accepts only areas.
func AreaShapes(kind models.ShapeKind) bool { return kind == models.ShapeArea }

// AllShapes accepts every kind.
func AllShapes(models.ShapeKind) bool { return true }

// Reconciler applies shape operations to one layer.
type Reconciler struct {
	name     string
	layer    *Layer
	filter   Filter
	registry *shape.Registry
	env      shape.Env
	optimize bool
}

// New creates a reconciler with an empty layer.
func New(name string, filter Filter, registry *shape.Registry) *Reconciler {
	if registry == nil {
		registry = shape.GetGlobalRegistry()
	}
	return &Reconciler{
		name:     name,
		layer:    newLayer(name),
		filter:   filter,
		registry: registry,
		env:      shape.DefaultEnv(),
	}
}

// Name identifies the layer.
func (r *Reconciler) Name() string {
	return r.name
}

// Accepts reports whether the reconciler owns kind.
func (r *Reconciler) Accepts(kind models.ShapeKind) bool {
	return r.filter(kind)
}

// Container is the layer's home container.
func (r *Reconciler) Container() *scene.Container {
	return r.layer.container
}

// SetOptimize switches the performance flag used for new nodes.
func (r *Reconciler) SetOptimize(optimize bool) {
	r.optimize = optimize
}

// Env returns the layer-owned attributes.
func (r *Reconciler) Env() shape.Env {
	return r.env
}

// SetEnv pushes the layer-owned attributes to every node.
func (r *Reconciler) SetEnv(env shape.Env) {
	r.env = env
	for _, n := range r.layer.order {
		n.SetEnv(env)
	}
}

// Apply runs op forward or reverts it. Entries of kinds the layer does not own
// are ignored, as are CHANGE and CHANGE_INDEX entries for unknown uuids.
func (r *Reconciler) Apply(op models.ShapeOperation, dir Direction) {
	switch op.Operation {
	case models.OperationAdd:
		if dir == Forward {
			r.add(op.Present)
		} else {
			r.remove(op.Present)
		}
	case models.OperationChange:
		if dir == Forward {
			r.change(op.Present)
		} else {
			r.change(op.Past)
		}
	case models.OperationRemove:
		if dir == Forward {
			r.remove(op.Present)
		} else {
			r.add(op.Present)
		}
	case models.OperationChangeIndex:
		if dir == Forward {
			r.reindex(op.Present)
		} else {
			r.reindex(op.Past)
		}
	}
}

func (r *Reconciler) accepted(entries []models.ShapeEntry) []models.ShapeEntry {
	out := make([]models.ShapeEntry, 0, len(entries))
	for _, e := range entries {
		if r.filter(e.Config.Shape) {
			out = append(out, e)
		}
	}
	return out
}

// add inserts entries at their saved index, lowest index first so that later
// inserts land where they were.
func (r *Reconciler) add(entries []models.ShapeEntry) {
	entries = r.accepted(entries)
	sortByIndex(entries)
	for _, e := range entries {
		if existing, ok := r.layer.byID[e.ID]; ok {
			existing.ReplaceConfig(e.Config)
			continue
		}
		cfg := e.Config
		cfg.UUID = e.ID
		n, ok := r.registry.New(cfg, r.env, r.optimize)
		if !ok {
			fmt.Printf("[Reconciler %s] Skipping %s: unknown shape kind %q\n", r.name, e.ID, cfg.Shape)
			continue
		}
		index := -1
		if e.Index != nil {
			index = *e.Index
		}
		r.layer.insert(n, index)
	}
}

func (r *Reconciler) change(entries []models.ShapeEntry) {
	for _, e := range r.accepted(entries) {
		if n, ok := r.layer.byID[e.ID]; ok {
			n.ReplaceConfig(e.Config)
		}
	}
}

func (r *Reconciler) remove(entries []models.ShapeEntry) {
	for _, e := range r.accepted(entries) {
		r.layer.remove(e.ID)
	}
}

// reindex moves the entries' nodes to their Index. All moving nodes are taken
// out first, then put back lowest target first.
func (r *Reconciler) reindex(entries []models.ShapeEntry) {
	var moving []models.ShapeEntry
	for _, e := range r.accepted(entries) {
		n, ok := r.layer.byID[e.ID]
		if !ok || e.Index == nil {
			continue
		}
		r.layer.order = removeNode(r.layer.order, n)
		moving = append(moving, e)
	}
	sortByIndex(moving)
	for _, e := range moving {
		n := r.layer.byID[e.ID]
		index := *e.Index
		if index < 0 || index >= len(r.layer.order) {
			r.layer.order = append(r.layer.order, n)
			continue
		}
		r.layer.order = append(r.layer.order, nil)
		copy(r.layer.order[index+1:], r.layer.order[index:])
		r.layer.order[index] = n
	}
}

func sortByIndex(entries []models.ShapeEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return indexKey(entries[i]) < indexKey(entries[j])
	})
}

// indexKey sorts entries without an index after every indexed one.
func indexKey(e models.ShapeEntry) int {
	if e.Index == nil {
		return int(^uint(0) >> 1)
	}
	return *e.Index
}

// Node looks a node up by uuid.
func (r *Reconciler) Node(id string) (*shape.Node, bool) {
	n, ok := r.layer.byID[id]
	return n, ok
}

// Nodes returns the nodes in z-order.
func (r *Reconciler) Nodes() []*shape.Node {
	out := make([]*shape.Node, len(r.layer.order))
	copy(out, r.layer.order)
	return out
}

// Len is the number of nodes.
func (r *Reconciler) Len() int {
	return len(r.layer.order)
}

// IndexOf returns the z-order index of id, or -1.
func (r *Reconciler) IndexOf(id string) int {
	return r.layer.indexOf(id)
}

// Configs returns the live configs in z-order.
func (r *Reconciler) Configs() []models.ShapeConfig {
	out := make([]models.ShapeConfig, len(r.layer.order))
	for i, n := range r.layer.order {
		out[i] = n.Config()
	}
	return out
}

// Snapshot returns every node as an entry carrying its z-order index.
func (r *Reconciler) Snapshot() []models.ShapeEntry {
	out := make([]models.ShapeEntry, len(r.layer.order))
	for i, n := range r.layer.order {
		out[i] = models.ShapeEntry{ID: n.UUID(), Config: n.Config(), Index: models.IntPtr(i)}
	}
	return out
}

// Clear drops every node.
func (r *Reconciler) Clear() {
	r.layer.reset()
}

// Load replaces the layer content with configs, keeping their order.
func (r *Reconciler) Load(configs []models.ShapeConfig) {
	r.Clear()
	entries := make([]models.ShapeEntry, 0, len(configs))
	for _, cfg := range configs {
		entries = append(entries, models.ShapeEntry{ID: cfg.UUID, Config: cfg})
	}
	r.add(entries)
}
