package shape

import (
	"math"

	"github.com/floorplan-editor/backend/internal/models"
	"github.com/floorplan-editor/backend/internal/scene"
)

type rectShape struct{}

func (rectShape) kind() models.ShapeKind { return models.ShapeRect }

func (rectShape) derive(cfg *models.ShapeConfig, env Env, d KindDefaults) []scene.Primitive {
	w, h := rectSize(cfg, d)
	b := body(scene.PrimRect, cfg, d)
	b.Width, b.Height = w, h
	b.CornerRadius = cfg.CornerRadius
	return []scene.Primitive{b}
}

type ellipseShape struct{}

func (ellipseShape) kind() models.ShapeKind { return models.ShapeEllipse }

func (ellipseShape) derive(cfg *models.ShapeConfig, env Env, d KindDefaults) []scene.Primitive {
	b := body(scene.PrimEllipse, cfg, d)
	b.RadiusX, b.RadiusY = radii(cfg, d)
	return []scene.Primitive{b}
}

// defaultSegment is used when a line-like shape has fewer than two points.
var defaultSegment = []float64{0, 0, 100, 0}

func pointsOf(cfg *models.ShapeConfig) []float64 {
	if len(cfg.Points) < 4 {
		return append([]float64(nil), defaultSegment...)
	}
	n := len(cfg.Points) &^ 1
	return append([]float64(nil), cfg.Points[:n]...)
}

func strokeLine(cfg *models.ShapeConfig, d KindDefaults) scene.Primitive {
	b := body(scene.PrimLine, cfg, d)
	b.Fill = ""
	b.Points = pointsOf(cfg)
	return b
}

type lineShape struct{}

func (lineShape) kind() models.ShapeKind { return models.ShapeLine }

func (lineShape) derive(cfg *models.ShapeConfig, env Env, d KindDefaults) []scene.Primitive {
	return []scene.Primitive{strokeLine(cfg, d)}
}

const penTension = 0.5

type penShape struct{}

func (penShape) kind() models.ShapeKind { return models.ShapePen }

func (penShape) backfill(cfg *models.ShapeConfig, d KindDefaults) {
	if cfg.Tension == 0 {
		cfg.Tension = penTension
	}
}

func (penShape) derive(cfg *models.ShapeConfig, env Env, d KindDefaults) []scene.Primitive {
	b := strokeLine(cfg, d)
	b.Tension = cfg.Tension
	return []scene.Primitive{b}
}

type arrowShape struct{}

func (arrowShape) kind() models.ShapeKind { return models.ShapeArrow }

func (arrowShape) backfill(cfg *models.ShapeConfig, d KindDefaults) {
	if !cfg.PointerAtBeginning && !cfg.PointerAtEnding {
		cfg.PointerAtEnding = true
	}
}

func (arrowShape) derive(cfg *models.ShapeConfig, env Env, d KindDefaults) []scene.Primitive {
	shaft := strokeLine(cfg, d)
	pts := shaft.Points
	n := len(pts)
	size := pointerSize(cfg.StrokeWidth)
	stroke := shaft.Stroke

	begin := arrowHead(pts[2], pts[3], pts[0], pts[1], size, stroke)
	begin.Name = "head-begin"
	begin.Visible = cfg.PointerAtBeginning
	end := arrowHead(pts[n-4], pts[n-3], pts[n-2], pts[n-1], size, stroke)
	end.Name = "head-end"
	end.Visible = cfg.PointerAtEnding
	return []scene.Primitive{shaft, begin, end}
}

func pointerSize(strokeWidth float64) float64 {
	return math.Max(10, strokeWidth*4)
}

// arrowHead is a closed triangle pointing from (fx,fy) towards (tx,ty) with
// its tip on (tx,ty).
func arrowHead(fx, fy, tx, ty, size float64, paint string) scene.Primitive {
	angle := math.Atan2(ty-fy, tx-fx)
	spread := math.Pi / 7
	lx := tx - size*math.Cos(angle-spread)
	ly := ty - size*math.Sin(angle-spread)
	rx := tx - size*math.Cos(angle+spread)
	ry := ty - size*math.Sin(angle+spread)
	return scene.Primitive{
		Kind:        scene.PrimLine,
		Points:      []float64{tx, ty, lx, ly, rx, ry},
		Closed:      true,
		Stroke:      paint,
		Fill:        paint,
		StrokeWidth: 1,
	}
}

type polygonShape struct{}

func (polygonShape) kind() models.ShapeKind { return models.ShapePolygon }

func (polygonShape) derive(cfg *models.ShapeConfig, env Env, d KindDefaults) []scene.Primitive {
	b := body(scene.PrimLine, cfg, d)
	b.Points = pointsOf(cfg)
	b.Closed = cfg.Closed
	if !cfg.Closed {
		b.Fill = ""
	}
	return []scene.Primitive{b}
}

const minFontSize = 6

type textShape struct{}

func (textShape) kind() models.ShapeKind { return models.ShapeText }

func (textShape) derive(cfg *models.ShapeConfig, env Env, d KindDefaults) []scene.Primitive {
	b := body(scene.PrimText, cfg, d)
	b.Text = cfg.Text
	b.FontSize = ClampMin(cfg.FontSize, minFontSize)
	b.Width = cfg.Width
	b.Stroke = ""
	b.StrokeWidth = 0
	b.Dash = nil
	return []scene.Primitive{b}
}
