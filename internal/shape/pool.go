package shape

import (
	"sync"
	"sync/atomic"

	"github.com/floorplan-editor/backend/internal/models"
)

// PrototypePool keeps the last derived node per kind as a template. A new node
// whose config differs from the template only in identity and placement is a
// clone with its outer transform moved; anything else is re-derived and
// becomes the next template. The result is identical to building the node
// from scratch.
type PrototypePool struct {
	mu        sync.RWMutex
	templates map[poolKey]*Node
	kinds     map[models.ShapeKind]bool
	build     func(cfg models.ShapeConfig, env Env, optimize bool) *Node
	reused    atomic.Int64
}

type poolKey struct {
	kind     models.ShapeKind
	optimize bool
}

// NewPrototypePool pools the given kinds, building templates with build.
func NewPrototypePool(build func(cfg models.ShapeConfig, env Env, optimize bool) *Node, kinds ...models.ShapeKind) *PrototypePool {
	p := &PrototypePool{
		templates: make(map[poolKey]*Node),
		kinds:     make(map[models.ShapeKind]bool, len(kinds)),
		build:     build,
	}
	for _, k := range kinds {
		p.kinds[k] = true
	}
	return p
}

// Pooled reports whether kind is served from the pool.
func (p *PrototypePool) Pooled(kind models.ShapeKind) bool {
	return p.kinds[kind]
}

// Instantiate clones the template for cfg.Shape and patches cfg onto it.
func (p *PrototypePool) Instantiate(cfg models.ShapeConfig, env Env, optimize bool) *Node {
	n := p.template(cfg.Shape, optimize).Clone()
	if n.adopt(cfg, env) {
		p.reused.Add(1)
		return n
	}
	n.reset(cfg, env)

	p.mu.Lock()
	p.templates[poolKey{kind: n.Kind(), optimize: optimize}] = n.Clone()
	p.mu.Unlock()
	return n
}

// Reused counts the instances that skipped derivation.
func (p *PrototypePool) Reused() int64 {
	return p.reused.Load()
}

func (p *PrototypePool) template(kind models.ShapeKind, optimize bool) *Node {
	key := poolKey{kind: kind, optimize: optimize}

	// Fast path: read lock
	p.mu.RLock()
	if t, ok := p.templates[key]; ok {
		p.mu.RUnlock()
		return t
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	// Double-check after acquiring write lock
	if t, ok := p.templates[key]; ok {
		return t
	}
	t := p.build(models.ShapeConfig{Shape: kind}, DefaultEnv(), optimize)
	p.templates[key] = t
	return t
}

// Len returns the number of built templates.
func (p *PrototypePool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.templates)
}

// Clear drops every template.
func (p *PrototypePool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.templates = make(map[poolKey]*Node)
}
