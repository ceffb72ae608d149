package shape

import (
	"math"

	"github.com/floorplan-editor/backend/internal/models"
	"github.com/floorplan-editor/backend/internal/scene"
)

type roundedTableShape struct{}

func (roundedTableShape) kind() models.ShapeKind { return models.ShapeRoundedTable }

func (roundedTableShape) derive(cfg *models.ShapeConfig, env Env, d KindDefaults) []scene.Primitive {
	w, h := rectSize(cfg, d)
	b := body(scene.PrimRect, cfg, d)
	b.Width, b.Height = w, h
	b.CornerRadius = ClampMin(cfg.CornerRadius, math.Min(w, h)/4)
	return append([]scene.Primitive{b}, numbering(cfg, env, box{W: w, H: h})...)
}

type ellipseTableShape struct{}

func (ellipseTableShape) kind() models.ShapeKind { return models.ShapeEllipseTable }

func (ellipseTableShape) derive(cfg *models.ShapeConfig, env Env, d KindDefaults) []scene.Primitive {
	rx, ry := radii(cfg, d)
	b := body(scene.PrimEllipse, cfg, d)
	b.RadiusX, b.RadiusY = rx, ry
	return append([]scene.Primitive{b}, numbering(cfg, env, box{X: -rx, Y: -ry, W: 2 * rx, H: 2 * ry})...)
}

const (
	doubleLineGap = 3
	meshStep      = 10
)

type gondolaShape struct{}

func (gondolaShape) kind() models.ShapeKind { return models.ShapeGondola }

func (gondolaShape) backfill(cfg *models.ShapeConfig, d KindDefaults) {
	if cfg.Placement == "" {
		cfg.Placement = models.PlacementWall
	}
	if cfg.Direction == "" {
		cfg.Direction = models.DirectionBottom
	}
}

func (gondolaShape) derive(cfg *models.ShapeConfig, env Env, d KindDefaults) []scene.Primitive {
	w, h := rectSize(cfg, d)
	b := body(scene.PrimRect, cfg, d)
	b.Width, b.Height = w, h
	stroke := b.Stroke

	out := []scene.Primitive{b}
	out = append(out, frontLine(cfg.Direction, w, h, 0, stroke, true))
	out = append(out, frontLine(cfg.Direction, w, h, doubleLineGap, stroke, cfg.IsDoubleLine))
	out = append(out, mesh(w, h, stroke, cfg.IsMeshEnd)...)

	textVisible := NumberingVisible(env)
	if cfg.Placement == models.PlacementIsland {
		textVisible = IslandTextVisible(env)
	}
	out = append(out, scene.Primitive{
		Kind:     scene.PrimText,
		Name:     "text",
		Y:        h - cfg.FontSize,
		Width:    w,
		Text:     cfg.Text,
		FontSize: cfg.FontSize,
		Align:    "center",
		Fill:     PaintString(black, false),
		Visible:  textVisible && cfg.Text != "",
	})
	return append(out, numbering(cfg, env, box{W: w, H: h})...)
}

// frontLine marks the aisle-facing side, inset by gap towards the center.
func frontLine(dir models.Direction, w, h, gap float64, stroke string, visible bool) scene.Primitive {
	var pts []float64
	switch dir {
	case models.DirectionTop:
		pts = []float64{0, gap, w, gap}
	case models.DirectionLeft:
		pts = []float64{gap, 0, gap, h}
	case models.DirectionRight:
		pts = []float64{w - gap, 0, w - gap, h}
	default:
		pts = []float64{0, h - gap, w, h - gap}
	}
	return scene.Primitive{
		Kind:        scene.PrimLine,
		Name:        "front",
		Points:      pts,
		Stroke:      stroke,
		StrokeWidth: 2,
		Visible:     visible,
	}
}

// mesh hatches the body with vertical lines every meshStep units.
func mesh(w, h float64, stroke string, visible bool) []scene.Primitive {
	var out []scene.Primitive
	for x := float64(meshStep); x < w; x += meshStep {
		out = append(out, scene.Primitive{
			Kind:        scene.PrimLine,
			Name:        "mesh",
			Points:      []float64{x, 0, x, h},
			Stroke:      stroke,
			StrokeWidth: 0.5,
			Visible:     visible,
		})
	}
	return out
}

type registerShape struct{}

func (registerShape) kind() models.ShapeKind { return models.ShapeRegister }

func (registerShape) derive(cfg *models.ShapeConfig, env Env, d KindDefaults) []scene.Primitive {
	w, h := rectSize(cfg, d)
	b := body(scene.PrimRect, cfg, d)
	b.Width, b.Height = w, h
	r := math.Min(w, h) / 4
	icon := scene.Primitive{
		Kind:        scene.PrimEllipse,
		Name:        "icon",
		X:           w / 2,
		Y:           h / 2,
		RadiusX:     r,
		RadiusY:     r,
		Stroke:      b.Stroke,
		StrokeWidth: 1,
		Visible:     true,
	}
	return append([]scene.Primitive{b, icon}, numbering(cfg, env, box{W: w, H: h})...)
}

const minArmWidth = 10

type specialLShape struct{}

func (specialLShape) kind() models.ShapeKind { return models.ShapeSpecialL }

func (specialLShape) derive(cfg *models.ShapeConfig, env Env, d KindDefaults) []scene.Primitive {
	w, h := rectSize(cfg, d)
	arm := math.Min(ClampMin(cfg.ArmWidth, minArmWidth), math.Min(w, h))
	b := body(scene.PrimLine, cfg, d)
	b.Points = []float64{0, 0, w, 0, w, arm, arm, arm, arm, h, 0, h}
	b.Closed = true
	return append([]scene.Primitive{b}, numbering(cfg, env, box{W: w, H: arm})...)
}

type outletShape struct{}

func (outletShape) kind() models.ShapeKind { return models.ShapeOutlet }

func (outletShape) derive(cfg *models.ShapeConfig, env Env, d KindDefaults) []scene.Primitive {
	w, h := rectSize(cfg, d)
	b := body(scene.PrimRect, cfg, d)
	b.Width, b.Height = w, h
	out := []scene.Primitive{b}
	for _, fx := range []float64{w / 3, 2 * w / 3} {
		out = append(out, scene.Primitive{
			Kind:        scene.PrimLine,
			Name:        "slot",
			Points:      []float64{fx, h / 3, fx, 2 * h / 3},
			Stroke:      b.Stroke,
			StrokeWidth: math.Max(1, cfg.StrokeWidth),
			Visible:     true,
		})
	}
	return out
}
