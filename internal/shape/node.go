// Package shape implements the shape nodes of the floor-plan scene graph.
//
// A Node pairs a ShapeConfig with a kind variant. The config is the only
// input: ChangeConfig re-derives the outer transform and every drawable of
// the payload from (config, env, kind defaults) and nothing else, so it is
// safe to replay any number of times.
package shape

import (
	"reflect"

	"github.com/floorplan-editor/backend/internal/models"
	"github.com/floorplan-editor/backend/internal/scene"
)

// Env carries the attributes a layer owns rather than the config: they follow
// the stage, not the undo history.
type Env struct {
	StageScale        float64
	LatticeSize       float64
	ShowRemarksIcon   bool
	NumberingMinScale float64
	FreeTextMinScale  float64
}

// Zoom thresholds used when an Env leaves them unset.
const (
	DefaultNumberingMinScale = 0.7
	DefaultFreeTextMinScale  = 1.5
)

// DefaultEnv is a 100% stage with default thresholds.
func DefaultEnv() Env {
	return Env{
		StageScale:        1,
		NumberingMinScale: DefaultNumberingMinScale,
		FreeTextMinScale:  DefaultFreeTextMinScale,
	}
}

func (e Env) normalized() Env {
	if e.StageScale == 0 {
		e.StageScale = 1
	}
	if e.NumberingMinScale == 0 {
		e.NumberingMinScale = DefaultNumberingMinScale
	}
	if e.FreeTextMinScale == 0 {
		e.FreeTextMinScale = DefaultFreeTextMinScale
	}
	return e
}

// variant is implemented once per shape kind.
type variant interface {
	kind() models.ShapeKind
	// derive builds the payload drawables in payload-local coordinates.
	derive(cfg *models.ShapeConfig, env Env, d KindDefaults) []scene.Primitive
}

// backfiller is implemented by variants with extra construction defaults.
type backfiller interface {
	backfill(cfg *models.ShapeConfig, d KindDefaults)
}

// Node is one placed shape: outer transform plus a payload owned by a container.
type Node struct {
	variant  variant
	defaults KindDefaults
	config   models.ShapeConfig
	env      Env
	optimize bool

	outer  scene.Transform
	home   *scene.Container
	handle scene.Handle
	// detached holds the payload while the node is in no container.
	detached *scene.Payload
}

func newNode(v variant, cfg models.ShapeConfig, env Env, d KindDefaults, optimize bool) *Node {
	n := &Node{
		variant:  v,
		defaults: d,
		optimize: optimize,
		detached: &scene.Payload{Local: scene.Identity()},
	}
	n.reset(cfg, env)
	return n
}

// reset gives the node a new identity and re-derives everything.
func (n *Node) reset(cfg models.ShapeConfig, env Env) {
	n.config = cfg.Clone()
	n.config.Shape = n.variant.kind()
	applyDefaults(&n.config, n.variant, n.defaults)
	n.env = env.normalized()
	n.ChangeConfig()
}

// adopt takes cfg without re-deriving when it would produce the same
// drawables as the current config, which holds when only identity and
// placement differ.
func (n *Node) adopt(cfg models.ShapeConfig, env Env) bool {
	next := cfg.Clone()
	next.Shape = n.variant.kind()
	applyDefaults(&next, n.variant, n.defaults)
	if env.normalized() != n.env || !sameDrawables(next, n.config) {
		return false
	}
	n.config = next
	n.outer = scene.Transform{X: next.X, Y: next.Y, Rotation: next.Rotation, ScaleX: 1, ScaleY: 1}
	return true
}

func sameDrawables(a, b models.ShapeConfig) bool {
	a.UUID, a.X, a.Y, a.Rotation = "", 0, 0, 0
	b.UUID, b.X, b.Y, b.Rotation = "", 0, 0, 0
	return reflect.DeepEqual(a, b)
}

// UUID is the immutable join key.
func (n *Node) UUID() string {
	return n.config.UUID
}

// Kind is the shape discriminator.
func (n *Node) Kind() models.ShapeKind {
	return n.variant.kind()
}

// Config returns a copy of the current config.
func (n *Node) Config() models.ShapeConfig {
	return n.config.Clone()
}

// SetConfig merges the non-zero fields of partial into the config, keeping
// the node identity, then re-derives.
func (n *Node) SetConfig(partial models.ShapeConfig) {
	n.ReplaceConfig(n.config.Merge(partial))
}

// ReplaceConfig swaps in a complete config snapshot, keeping the node
// identity, then re-derives.
func (n *Node) ReplaceConfig(cfg models.ShapeConfig) {
	id := n.config.UUID
	n.config = cfg.Clone()
	n.config.UUID = id
	n.config.Shape = n.variant.kind()
	applyDefaults(&n.config, n.variant, n.defaults)
	n.ChangeConfig()
}

// Update edits the config in place, then re-derives.
func (n *Node) Update(fn func(cfg *models.ShapeConfig)) {
	cfg := n.config.Clone()
	fn(&cfg)
	n.ReplaceConfig(cfg)
}

// Env returns the layer-owned attributes.
func (n *Node) Env() Env {
	return n.env
}

// SetEnv replaces the layer-owned attributes and re-derives.
func (n *Node) SetEnv(env Env) {
	n.env = env.normalized()
	n.ChangeConfig()
}

// Optimized reports the performance flag the node was built with.
func (n *Node) Optimized() bool {
	return n.optimize
}

// Outer is the identity/position transform of the node.
func (n *Node) Outer() scene.Transform {
	return n.outer
}

// Home is the container the node belongs to when not selected.
func (n *Node) Home() *scene.Container {
	return n.home
}

// Handle is where the payload currently lives.
func (n *Node) Handle() scene.Handle {
	return n.handle
}

// SetHandle records a payload move performed by the caller.
func (n *Node) SetHandle(h scene.Handle) {
	n.handle = h
}

// Payload returns the drawable payload wherever it lives.
func (n *Node) Payload() *scene.Payload {
	if p := n.handle.Payload(); p != nil {
		return p
	}
	return n.detached
}

// InHome reports whether the payload sits in the home container.
func (n *Node) InHome() bool {
	return n.home != nil && n.handle.Owner == n.home
}

// Attach puts the payload into its home container.
func (n *Node) Attach(home *scene.Container) {
	p := n.Payload()
	n.home = home
	n.handle = scene.Handle{Owner: home, Slot: home.Put(p)}
	n.detached = nil
}

// Detach removes the payload from whichever container holds it.
func (n *Node) Detach() {
	if n.handle.Owner == nil {
		return
	}
	if p, err := n.handle.Owner.Take(n.handle.Slot); err == nil {
		n.detached = p
	}
	n.handle = scene.Handle{}
}

// Absolute is the stage transform the payload is currently drawn under.
func (n *Node) Absolute() scene.Matrix {
	p := n.Payload()
	owner := n.handle.Owner
	if owner == nil || owner == n.home {
		origin := scene.Identity()
		if n.home != nil {
			origin = n.home.Origin()
		}
		return scene.Compose(origin, n.outer, p.Local)
	}
	return scene.Compose(owner.Origin(), p.Local)
}

// HomeAbsolute is the stage transform the payload would have at home with an
// identity local transform.
func (n *Node) HomeAbsolute() scene.Matrix {
	origin := scene.Identity()
	if n.home != nil {
		origin = n.home.Origin()
	}
	return scene.Compose(origin, n.outer)
}

// ChangeConfig re-derives the outer transform and every drawable from the
// current config and env.
func (n *Node) ChangeConfig() {
	cfg := &n.config
	n.outer = scene.Transform{X: cfg.X, Y: cfg.Y, Rotation: cfg.Rotation, ScaleX: 1, ScaleY: 1}

	p := n.Payload()
	p.Visible = cfg.IsVisible()
	p.PerfectDraw = !n.optimize
	p.Primitives = n.variant.derive(cfg, n.env, n.defaults)
	bx, by := badgeAnchor(p.Primitives)
	p.Primitives = append(p.Primitives, remarksBadge(cfg, n.env, bx, by))

	// A selected payload follows its outer transform from the edit container.
	if owner := n.handle.Owner; owner != nil && n.home != nil && owner != n.home {
		p.Local = scene.Rebase(n.HomeAbsolute(), owner)
	}
}

// Clone returns a detached copy sharing no state with n.
func (n *Node) Clone() *Node {
	return &Node{
		variant:  n.variant,
		defaults: n.defaults,
		config:   n.config.Clone(),
		env:      n.env,
		optimize: n.optimize,
		outer:    n.outer,
		detached: n.Payload().Clone(),
	}
}
