// Package scene is the retained, headless scene graph the shape engine draws
// into: affine transforms, drawable primitives, and the arenas that own each
// node's drawable payload.
package scene

import "math"

// Transform is a decomposed 2D transform. Rotation is in degrees.
// A zero scale is read as 1 so the zero Transform is the identity.
type Transform struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation"`
	ScaleX   float64 `json:"scaleX"`
	ScaleY   float64 `json:"scaleY"`
}

// Identity returns the identity transform with explicit unit scale.
func Identity() Transform {
	return Transform{ScaleX: 1, ScaleY: 1}
}

// Matrix is a 2D affine matrix in canvas order:
//
//	| A C E |
//	| B D F |
type Matrix struct {
	A, B, C, D, E, F float64
}

// IdentityMatrix returns the identity matrix.
func IdentityMatrix() Matrix {
	return Matrix{A: 1, D: 1}
}

// Matrix builds translate * rotate * scale.
func (t Transform) Matrix() Matrix {
	sx, sy := t.ScaleX, t.ScaleY
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}
	rad := t.Rotation * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	return Matrix{
		A: cos * sx,
		B: sin * sx,
		C: -sin * sy,
		D: cos * sy,
		E: t.X,
		F: t.Y,
	}
}

// Multiply returns m * n (n is applied first).
func (m Matrix) Multiply(n Matrix) Matrix {
	return Matrix{
		A: m.A*n.A + m.C*n.B,
		B: m.B*n.A + m.D*n.B,
		C: m.A*n.C + m.C*n.D,
		D: m.B*n.C + m.D*n.D,
		E: m.A*n.E + m.C*n.F + m.E,
		F: m.B*n.E + m.D*n.F + m.F,
	}
}

// Invert returns the inverse matrix. A singular matrix yields the identity.
func (m Matrix) Invert() Matrix {
	det := m.A*m.D - m.B*m.C
	if det == 0 {
		return IdentityMatrix()
	}
	return Matrix{
		A: m.D / det,
		B: -m.B / det,
		C: -m.C / det,
		D: m.A / det,
		E: (m.C*m.F - m.D*m.E) / det,
		F: (m.B*m.E - m.A*m.F) / det,
	}
}

// Apply maps a point through the matrix.
func (m Matrix) Apply(x, y float64) (float64, float64) {
	return m.A*x + m.C*y + m.E, m.B*x + m.D*y + m.F
}

// Decompose splits a skew-free matrix back into position, rotation and scale.
func (m Matrix) Decompose() Transform {
	t := Transform{X: m.E, Y: m.F, ScaleX: 1, ScaleY: 1}
	r := math.Hypot(m.A, m.B)
	if r == 0 {
		return t
	}
	t.Rotation = math.Atan2(m.B, m.A) * 180 / math.Pi
	t.ScaleX = r
	t.ScaleY = (m.A*m.D - m.B*m.C) / r
	return t
}

// Compose multiplies transforms outermost first.
func Compose(ts ...Transform) Matrix {
	m := IdentityMatrix()
	for _, t := range ts {
		m = m.Multiply(t.Matrix())
	}
	return m
}
