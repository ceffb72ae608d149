package shape

import (
	"github.com/floorplan-editor/backend/internal/models"
	"github.com/floorplan-editor/backend/internal/scene"
)

type freeTextShape struct{}

func (freeTextShape) kind() models.ShapeKind { return models.ShapeFreeText }

func (freeTextShape) derive(cfg *models.ShapeConfig, env Env, d KindDefaults) []scene.Primitive {
	w, h := rectSize(cfg, d)
	b := body(scene.PrimRect, cfg, d)
	b.Width, b.Height = w, h
	text := scene.Primitive{
		Kind:     scene.PrimText,
		Name:     "text",
		Width:    w,
		Text:     cfg.Text,
		FontSize: ClampMin(cfg.FontSize, minFontSize),
		Fill:     PaintString(black, false),
		Visible:  FreeTextVisible(env),
	}
	return []scene.Primitive{b, text}
}

const (
	defaultArcAngle = 270
	arrowTipSize    = 6
)

type circularArrowShape struct{}

func (circularArrowShape) kind() models.ShapeKind { return models.ShapeCircularArrow }

func (circularArrowShape) backfill(cfg *models.ShapeConfig, d KindDefaults) {
	if cfg.Angle == 0 {
		cfg.Angle = defaultArcAngle
	}
}

func (circularArrowShape) derive(cfg *models.ShapeConfig, env Env, d KindDefaults) []scene.Primitive {
	outer, _ := radii(cfg, d)
	inner := outer - ClampMin(cfg.StrokeWidth, 1)
	if inner < 0 {
		inner = 0
	}
	b := body(scene.PrimArc, cfg, d)
	b.Fill = b.Stroke
	b.OuterRadius = outer
	b.InnerRadius = inner
	b.Angle = cfg.Angle
	b.Clockwise = cfg.Clockwise

	// The tip sits at the end of the sweep, on the mid radius.
	mid := (outer + inner) / 2
	end := cfg.Angle
	if !cfg.Clockwise {
		end = -end
	}
	m := scene.Transform{Rotation: end}.Matrix()
	tx, ty := m.Apply(mid, 0)
	fx, fy := m.Apply(mid, -arrowTipSize)
	if !cfg.Clockwise {
		fx, fy = m.Apply(mid, arrowTipSize)
	}
	tip := arrowHead(fx, fy, tx, ty, arrowTipSize+outer-inner, b.Stroke)
	tip.Name = "tip"
	tip.Visible = true
	return []scene.Primitive{b, tip}
}

type restAreaShape struct{}

func (restAreaShape) kind() models.ShapeKind { return models.ShapeRestArea }

func (restAreaShape) backfill(cfg *models.ShapeConfig, d KindDefaults) {
	if cfg.Text == "" {
		cfg.Text = d.Text
	}
}

func (restAreaShape) derive(cfg *models.ShapeConfig, env Env, d KindDefaults) []scene.Primitive {
	return roomPrimitives(cfg, env, d, 6)
}

type restroomShape struct{}

func (restroomShape) kind() models.ShapeKind { return models.ShapeRestroom }

func (restroomShape) backfill(cfg *models.ShapeConfig, d KindDefaults) {
	if cfg.Text == "" {
		cfg.Text = d.Text
	}
}

func (restroomShape) derive(cfg *models.ShapeConfig, env Env, d KindDefaults) []scene.Primitive {
	return roomPrimitives(cfg, env, d, 0)
}

func roomPrimitives(cfg *models.ShapeConfig, env Env, d KindDefaults, corner float64) []scene.Primitive {
	w, h := rectSize(cfg, d)
	b := body(scene.PrimRect, cfg, d)
	b.Width, b.Height = w, h
	b.CornerRadius = corner
	text := scene.Primitive{
		Kind:     scene.PrimText,
		Name:     "text",
		Y:        h/2 - cfg.FontSize/2,
		Width:    w,
		Text:     cfg.Text,
		FontSize: cfg.FontSize,
		Align:    "center",
		Fill:     PaintString(black, false),
		Visible:  cfg.Text != "",
	}
	return []scene.Primitive{b, text}
}

type areaShape struct{}

func (areaShape) kind() models.ShapeKind { return models.ShapeArea }

// Areas start dashed; an explicit false sticks.
func (areaShape) backfill(cfg *models.ShapeConfig, d KindDefaults) {
	if cfg.StrokeDash == nil {
		cfg.StrokeDash = models.BoolPtr(true)
	}
}

func (areaShape) derive(cfg *models.ShapeConfig, env Env, d KindDefaults) []scene.Primitive {
	w, h := rectSize(cfg, d)
	b := body(scene.PrimRect, cfg, d)
	b.Width, b.Height = w, h
	name := scene.Primitive{
		Kind:     scene.PrimText,
		Name:     "label",
		X:        4,
		Y:        4,
		Text:     cfg.AreaName,
		FontSize: cfg.FontSize,
		Fill:     strokeOf(cfg, d),
		Visible:  cfg.AreaName != "" && NumberingVisible(env),
	}
	return []scene.Primitive{b, name}
}
