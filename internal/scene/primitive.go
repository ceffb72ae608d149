package scene

// PrimitiveKind is the closed set of drawables the canvas backend paints.
type PrimitiveKind string

const (
	PrimRect    PrimitiveKind = "rect"
	PrimEllipse PrimitiveKind = "ellipse"
	PrimLine    PrimitiveKind = "line"
	PrimText    PrimitiveKind = "text"
	PrimArc     PrimitiveKind = "arc"
)

// Primitive is one drawable inside a payload, in payload-local coordinates.
// Name identifies its role inside the shape ("body", "label", "crossout", ...).
type Primitive struct {
	Kind PrimitiveKind `json:"kind"`
	Name string        `json:"name"`

	X            float64   `json:"x"`
	Y            float64   `json:"y"`
	Width        float64   `json:"width,omitempty"`
	Height       float64   `json:"height,omitempty"`
	RadiusX      float64   `json:"radiusX,omitempty"`
	RadiusY      float64   `json:"radiusY,omitempty"`
	CornerRadius float64   `json:"cornerRadius,omitempty"`
	Points       []float64 `json:"points,omitempty"`
	Closed       bool      `json:"closed,omitempty"`
	Tension      float64   `json:"tension,omitempty"`
	Angle        float64   `json:"angle,omitempty"`
	InnerRadius  float64   `json:"innerRadius,omitempty"`
	OuterRadius  float64   `json:"outerRadius,omitempty"`
	Clockwise    bool      `json:"clockwise,omitempty"`

	Text     string  `json:"text,omitempty"`
	FontSize float64 `json:"fontSize,omitempty"`
	Align    string  `json:"align,omitempty"`

	Stroke      string    `json:"stroke,omitempty"`
	Fill        string    `json:"fill,omitempty"`
	StrokeWidth float64   `json:"strokeWidth,omitempty"`
	Dash        []float64 `json:"dash,omitempty"`
	Visible     bool      `json:"visible"`
}

// Clone deep-copies the primitive.
func (p Primitive) Clone() Primitive {
	out := p
	if p.Points != nil {
		out.Points = append([]float64(nil), p.Points...)
	}
	if p.Dash != nil {
		out.Dash = append([]float64(nil), p.Dash...)
	}
	return out
}

// Payload is the inner group of a node: the actual drawables plus the local
// transform they are drawn under.
type Payload struct {
	Local      Transform   `json:"local"`
	Primitives []Primitive `json:"primitives"`
	Visible    bool        `json:"visible"`
	// PerfectDraw asks the canvas for exact stroke/fill compositing; it is
	// switched off for large maps.
	PerfectDraw bool `json:"perfectDraw"`
}

// Clone deep-copies the payload.
func (p *Payload) Clone() *Payload {
	out := &Payload{Local: p.Local, Visible: p.Visible, PerfectDraw: p.PerfectDraw}
	if p.Primitives != nil {
		out.Primitives = make([]Primitive, len(p.Primitives))
		for i, prim := range p.Primitives {
			out.Primitives[i] = prim.Clone()
		}
	}
	return out
}

// Find returns the first primitive with the given role.
func (p *Payload) Find(name string) (Primitive, bool) {
	for _, prim := range p.Primitives {
		if prim.Name == name {
			return prim, true
		}
	}
	return Primitive{}, false
}
