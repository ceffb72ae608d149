// Package models contains domain types for the floor-plan editor.
package models

import (
	"bytes"
	"encoding/json"
	"reflect"
)

// ShapeKind discriminates the supported shape kinds.
type ShapeKind string

const (
	ShapeRect          ShapeKind = "RECT"
	ShapeRoundedTable  ShapeKind = "ROUNDED_TABLE"
	ShapeEllipse       ShapeKind = "ELLIPSE"
	ShapeEllipseTable  ShapeKind = "ELLIPSE_TABLE"
	ShapeLine          ShapeKind = "LINE"
	ShapePen           ShapeKind = "PEN"
	ShapeArrow         ShapeKind = "ARROW"
	ShapePolygon       ShapeKind = "POLYGON"
	ShapeGondola       ShapeKind = "GONDOLA"
	ShapeRegister      ShapeKind = "REGISTER"
	ShapeFreeText      ShapeKind = "FREE_TEXT"
	ShapeSpecialL      ShapeKind = "SPECIAL_L"
	ShapeText          ShapeKind = "TEXT"
	ShapeCircularArrow ShapeKind = "CIRCULAR_ARROW"
	ShapeOutlet        ShapeKind = "OUTLET"
	ShapeRestArea      ShapeKind = "REST_AREA"
	ShapeRestroom      ShapeKind = "RESTROOM"
	ShapeArea          ShapeKind = "AREA"
)

var shapeKinds = []ShapeKind{
	ShapeRect, ShapeRoundedTable, ShapeEllipse, ShapeEllipseTable,
	ShapeLine, ShapePen, ShapeArrow, ShapePolygon,
	ShapeGondola, ShapeRegister, ShapeFreeText, ShapeSpecialL,
	ShapeText, ShapeCircularArrow, ShapeOutlet, ShapeRestArea,
	ShapeRestroom, ShapeArea,
}

// AllShapeKinds returns every supported kind in declaration order.
func AllShapeKinds() []ShapeKind {
	out := make([]ShapeKind, len(shapeKinds))
	copy(out, shapeKinds)
	return out
}

// Valid reports whether k is one of the supported kinds.
func (k ShapeKind) Valid() bool {
	for _, s := range shapeKinds {
		if s == k {
			return true
		}
	}
	return false
}

// Placement tells whether a gondola stands against a wall or on an island.
type Placement string

const (
	PlacementWall   Placement = "WALL"
	PlacementIsland Placement = "ISLAND"
)

// Direction is the side of a fixture that faces the aisle.
type Direction string

const (
	DirectionTop    Direction = "TOP"
	DirectionBottom Direction = "BOTTOM"
	DirectionLeft   Direction = "LEFT"
	DirectionRight  Direction = "RIGHT"
)

// RGBA is a paint color split into components. A is in [0,1].
type RGBA struct {
	R uint8   `json:"r"`
	G uint8   `json:"g"`
	B uint8   `json:"b"`
	A float64 `json:"a"`
}

// ShapeConfig is the single source of truth for one placed shape.
// Zero numeric geometry means "unset" and falls back to the kind minimum.
type ShapeConfig struct {
	UUID  string    `json:"uuid"`
	Shape ShapeKind `json:"shape"`

	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width,omitempty"`
	Height   float64 `json:"height,omitempty"`
	RadiusX  float64 `json:"radiusX,omitempty"`
	RadiusY  float64 `json:"radiusY,omitempty"`
	Rotation float64 `json:"rotation,omitempty"`

	Stroke            string  `json:"stroke,omitempty"`
	StrokeRgb         *RGBA   `json:"strokeRgb,omitempty"`
	StrokeTransparent bool    `json:"strokeTransparent,omitempty"`
	StrokeWidth       float64 `json:"strokeWidth,omitempty"`
	StrokeDash        *bool   `json:"strokeDash,omitempty"`
	Fill              string  `json:"fill,omitempty"`
	FillRgb           *RGBA   `json:"fillRgb,omitempty"`
	FillTransparent   bool    `json:"fillTransparent,omitempty"`

	AreaID              string `json:"areaId,omitempty"`
	AreaName            string `json:"areaName,omitempty"`
	TableID             string `json:"tableId,omitempty"`
	BranchNum           string `json:"branchNum,omitempty"`
	LocationNum         string `json:"locationNum,omitempty"`
	DisplayLocationNum  string `json:"displayLocationNum,omitempty"`
	ShowFullLocationNum bool   `json:"showFullLocationNum,omitempty"`

	Text     string  `json:"text,omitempty"`
	FontSize float64 `json:"fontSize,omitempty"`

	Visible       *bool  `json:"visible,omitempty"`
	Disabled      bool   `json:"disabled,omitempty"`
	Selectable    *bool  `json:"selectable,omitempty"`
	ReadOnly      bool   `json:"readOnly,omitempty"`
	MissingNumber bool   `json:"missingNumber,omitempty"`
	EmptyNumber   bool   `json:"emptyNumber,omitempty"`
	Remarks       string `json:"remarks,omitempty"`

	// Kind-specific extras.
	Points             []float64 `json:"points,omitempty"`
	Closed             bool      `json:"closed,omitempty"`
	Tension            float64   `json:"tension,omitempty"`
	PointerAtBeginning bool      `json:"pointerAtBeginning,omitempty"`
	PointerAtEnding    bool      `json:"pointerAtEnding,omitempty"`
	Clockwise          bool      `json:"clockwise,omitempty"`
	Angle              float64   `json:"angle,omitempty"`
	ArmWidth           float64   `json:"armWidth,omitempty"`
	CornerRadius       float64   `json:"cornerRadius,omitempty"`
	Placement          Placement `json:"placement,omitempty"`
	Direction          Direction `json:"direction,omitempty"`
	IsDoubleLine       bool      `json:"isDoubleLine,omitempty"`
	IsMeshEnd          bool      `json:"isMeshEnd,omitempty"`
}

// IsVisible treats an absent flag as visible.
func (c *ShapeConfig) IsVisible() bool {
	return c.Visible == nil || *c.Visible
}

// IsDashed reports whether the outline is drawn dashed.
func (c *ShapeConfig) IsDashed() bool {
	return c.StrokeDash != nil && *c.StrokeDash
}

// IsSelectable treats an absent flag as selectable.
func (c *ShapeConfig) IsSelectable() bool {
	return c.Selectable == nil || *c.Selectable
}

// Clone returns a deep copy so snapshots never alias live state.
func (c ShapeConfig) Clone() ShapeConfig {
	out := c
	if c.StrokeRgb != nil {
		v := *c.StrokeRgb
		out.StrokeRgb = &v
	}
	if c.FillRgb != nil {
		v := *c.FillRgb
		out.FillRgb = &v
	}
	if c.Visible != nil {
		out.Visible = BoolPtr(*c.Visible)
	}
	if c.Selectable != nil {
		out.Selectable = BoolPtr(*c.Selectable)
	}
	if c.StrokeDash != nil {
		out.StrokeDash = BoolPtr(*c.StrokeDash)
	}
	if c.Points != nil {
		out.Points = append([]float64(nil), c.Points...)
	}
	return out
}

// Merge returns a copy of c with every non-zero field of partial applied.
// UUID and Shape always come from c.
func (c ShapeConfig) Merge(partial ShapeConfig) ShapeConfig {
	out := c.Clone()
	src := reflect.ValueOf(partial.Clone())
	dst := reflect.ValueOf(&out).Elem()
	for i := 0; i < src.NumField(); i++ {
		if f := src.Field(i); !f.IsZero() {
			dst.Field(i).Set(f)
		}
	}
	out.UUID, out.Shape = c.UUID, c.Shape
	return out
}

// MergeJSON returns a copy of c with the keys present in raw applied, so an
// explicit zero or false in raw clears the field. UUID and Shape always come
// from c.
func (c ShapeConfig) MergeJSON(raw []byte) (ShapeConfig, error) {
	out := c.Clone()
	if err := json.Unmarshal(raw, &out); err != nil {
		return c, err
	}
	out.UUID, out.Shape = c.UUID, c.Shape
	return out, nil
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}

// ShapeEntry pairs a config with its id. Index is only set for z-order
// bookkeeping (CHANGE_INDEX, and REMOVE so undo can restore position).
type ShapeEntry struct {
	ID     string      `json:"id"`
	Config ShapeConfig `json:"config"`
	Index  *int        `json:"index,omitempty"`

	// patch is the config object as the client sent it.
	patch json.RawMessage
}

// UnmarshalJSON keeps the raw config object next to the decoded one so a
// CHANGE can touch only the keys the client sent.
func (e *ShapeEntry) UnmarshalJSON(data []byte) error {
	type plain ShapeEntry
	var aux struct {
		plain
		Config json.RawMessage `json:"config"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*e = ShapeEntry(aux.plain)
	e.Config = ShapeConfig{}
	e.patch = nil
	if len(aux.Config) == 0 || bytes.Equal(bytes.TrimSpace(aux.Config), []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(aux.Config, &e.Config); err != nil {
		return err
	}
	e.patch = append(json.RawMessage(nil), aux.Config...)
	return nil
}

// ConfigOver resolves the entry as a partial edit of base. Entries decoded
// from JSON apply exactly the keys they carried; entries built in code apply
// their non-zero fields.
func (e ShapeEntry) ConfigOver(base ShapeConfig) (ShapeConfig, error) {
	if e.patch != nil {
		return base.MergeJSON(e.patch)
	}
	return base.Merge(e.Config), nil
}

// IntPtr returns a pointer to i.
func IntPtr(i int) *int {
	return &i
}

// CloneEntries deep-copies a slice of entries.
func CloneEntries(entries []ShapeEntry) []ShapeEntry {
	if entries == nil {
		return nil
	}
	out := make([]ShapeEntry, len(entries))
	for i, e := range entries {
		out[i] = ShapeEntry{ID: e.ID, Config: e.Config.Clone(), patch: e.patch}
		if e.Index != nil {
			out[i].Index = IntPtr(*e.Index)
		}
	}
	return out
}
