package shape

import (
	"github.com/floorplan-editor/backend/internal/models"
)

// Registry builds nodes by kind.
type Registry struct {
	catalog  *Catalog
	variants map[models.ShapeKind]variant
	pool     *PrototypePool
}

// Global registry instance
var globalRegistry = NewRegistry(BuiltinCatalog())

// NewRegistry returns a registry for every supported kind. Gondolas, which
// dominate large maps, are built from a prototype pool.
func NewRegistry(catalog *Catalog) *Registry {
	if catalog == nil {
		catalog = BuiltinCatalog()
	}
	r := &Registry{
		catalog:  catalog,
		variants: make(map[models.ShapeKind]variant),
	}
	for _, v := range []variant{
		rectShape{}, roundedTableShape{}, ellipseShape{}, ellipseTableShape{},
		lineShape{}, penShape{}, arrowShape{}, polygonShape{},
		gondolaShape{}, registerShape{}, freeTextShape{}, specialLShape{},
		textShape{}, circularArrowShape{}, outletShape{}, restAreaShape{},
		restroomShape{}, areaShape{},
	} {
		r.variants[v.kind()] = v
	}
	r.pool = NewPrototypePool(r.fresh, models.ShapeGondola)
	return r
}

// GetGlobalRegistry returns the registry built on the builtin catalog.
func GetGlobalRegistry() *Registry {
	return globalRegistry
}

// Catalog returns the defaults the registry builds with.
func (r *Registry) Catalog() *Catalog {
	return r.catalog
}

// Supports reports whether kind can be built.
func (r *Registry) Supports(kind models.ShapeKind) bool {
	_, ok := r.variants[kind]
	return ok
}

// New builds a node for cfg. It returns false for an unknown kind.
func (r *Registry) New(cfg models.ShapeConfig, env Env, optimize bool) (*Node, bool) {
	if !r.Supports(cfg.Shape) {
		return nil, false
	}
	if r.pool.Pooled(cfg.Shape) {
		return r.pool.Instantiate(cfg, env, optimize), true
	}
	return r.fresh(cfg, env, optimize), true
}

func (r *Registry) fresh(cfg models.ShapeConfig, env Env, optimize bool) *Node {
	v := r.variants[cfg.Shape]
	return newNode(v, cfg, env, r.catalog.Defaults(cfg.Shape), optimize)
}
