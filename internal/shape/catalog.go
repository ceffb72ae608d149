package shape

import (
	"fmt"
	"io"
	"os"

	"github.com/floorplan-editor/backend/internal/models"
	"gopkg.in/yaml.v3"
)

// Catalog maps each shape kind to its construction defaults.
//
// The YAML form only needs to list the fields it overrides:
//
//	kinds:
//	  GONDOLA:
//	    fill: {r: 200, g: 220, b: 255, a: 1}
//	    min_width: 40
type Catalog struct {
	Version string                            `yaml:"version"`
	Kinds   map[models.ShapeKind]KindDefaults `yaml:"kinds"`
}

// BuiltinCatalog returns the defaults every kind starts from.
func BuiltinCatalog() *Catalog {
	return &Catalog{Version: "builtin", Kinds: builtinDefaults()}
}

// ParseCatalog reads a YAML catalog file and overlays it on the builtin one.
func ParseCatalog(filePath string) (*Catalog, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ParseCatalogFromReader(file)
}

// ParseCatalogFromReader parses a catalog from an io.Reader.
func ParseCatalogFromReader(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var overrides Catalog
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, err
	}
	for kind := range overrides.Kinds {
		if !kind.Valid() {
			return nil, fmt.Errorf("catalog: unknown shape kind %q", kind)
		}
	}

	catalog := BuiltinCatalog()
	catalog.Merge(&overrides)
	if overrides.Version != "" {
		catalog.Version = overrides.Version
	}
	return catalog, nil
}

// Merge overlays the non-zero fields of o.
func (c *Catalog) Merge(o *Catalog) {
	if o == nil {
		return
	}
	if c.Kinds == nil {
		c.Kinds = make(map[models.ShapeKind]KindDefaults)
	}
	for kind, d := range o.Kinds {
		c.Kinds[kind] = c.Kinds[kind].merge(d)
	}
}

// Defaults returns the defaults for kind.
func (c *Catalog) Defaults(kind models.ShapeKind) KindDefaults {
	if c == nil {
		return builtinDefaults()[kind]
	}
	return c.Kinds[kind]
}
