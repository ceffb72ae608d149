package shape

import (
	"fmt"
	"strconv"

	"github.com/floorplan-editor/backend/internal/models"
	"github.com/floorplan-editor/backend/internal/scene"
)

// ClampMin returns lo when v is below it. Zero counts as unset.
func ClampMin(v, lo float64) float64 {
	if v == 0 || v < lo {
		return lo
	}
	return v
}

// PaintString renders a color as "rgba(r,g,b,a)". Transparent forces a=0.
func PaintString(c models.RGBA, transparent bool) string {
	a := c.A
	if transparent {
		a = 0
	}
	return fmt.Sprintf("rgba(%d,%d,%d,%s)", c.R, c.G, c.B, strconv.FormatFloat(a, 'f', -1, 64))
}

func strokeOf(cfg *models.ShapeConfig, d KindDefaults) string {
	return paintOf(cfg.StrokeRgb, cfg.Stroke, cfg.StrokeTransparent, d.Stroke)
}

func fillOf(cfg *models.ShapeConfig, d KindDefaults) string {
	return paintOf(cfg.FillRgb, cfg.Fill, cfg.FillTransparent, d.Fill)
}

func paintOf(rgb *models.RGBA, raw string, transparent bool, fallback models.RGBA) string {
	switch {
	case rgb != nil:
		return PaintString(*rgb, transparent)
	case raw != "" && !transparent:
		return raw
	default:
		return PaintString(fallback, transparent)
	}
}

func dashOf(cfg *models.ShapeConfig) []float64 {
	if !cfg.IsDashed() {
		return nil
	}
	sw := cfg.StrokeWidth
	if sw <= 0 {
		sw = 1
	}
	return []float64{4 * sw, 2 * sw}
}

// NumberingVisible reports whether numbering labels show at the env zoom.
func NumberingVisible(env Env) bool {
	env = env.normalized()
	return env.StageScale >= env.NumberingMinScale
}

// FreeTextVisible reports whether free text shows at the env zoom.
func FreeTextVisible(env Env) bool {
	env = env.normalized()
	return env.StageScale >= env.FreeTextMinScale
}

// IslandTextVisible reports whether island body text shows; it needs a zoom
// strictly above the free-text threshold.
func IslandTextVisible(env Env) bool {
	env = env.normalized()
	return env.StageScale > env.FreeTextMinScale
}

// NumberLabel returns the numbering text of a location-aware shape and
// whether it should be drawn at all.
func NumberLabel(cfg *models.ShapeConfig) (string, bool) {
	if cfg.EmptyNumber {
		return "", false
	}
	full := cfg.DisplayLocationNum
	if full == "" {
		full = cfg.LocationNum
	}
	text := full
	if !cfg.ShowFullLocationNum && cfg.BranchNum != "" {
		text = cfg.BranchNum
	}
	return text, text != "" || cfg.MissingNumber
}

// box is an axis-aligned rectangle in payload-local coordinates.
type box struct {
	X, Y, W, H float64
}

// CrossOutLines are the two diagonals drawn over a shape with a missing number.
func CrossOutLines(b box, stroke string, visible bool) []scene.Primitive {
	return []scene.Primitive{
		{
			Kind:        scene.PrimLine,
			Name:        "crossout",
			Points:      []float64{b.X, b.Y, b.X + b.W, b.Y + b.H},
			Stroke:      stroke,
			StrokeWidth: 1,
			Visible:     visible,
		},
		{
			Kind:        scene.PrimLine,
			Name:        "crossout",
			Points:      []float64{b.X + b.W, b.Y, b.X, b.Y + b.H},
			Stroke:      stroke,
			StrokeWidth: 1,
			Visible:     visible,
		},
	}
}

// numbering builds the label and cross-out primitives for a location-aware
// shape. The primitives are always emitted so the payload layout is stable;
// only their visibility changes.
func numbering(cfg *models.ShapeConfig, env Env, b box) []scene.Primitive {
	text, show := NumberLabel(cfg)
	visible := show && NumberingVisible(env)
	label := scene.Primitive{
		Kind:     scene.PrimText,
		Name:     "label",
		X:        b.X,
		Y:        b.Y + b.H/2 - cfg.FontSize/2,
		Width:    b.W,
		Text:     text,
		FontSize: cfg.FontSize,
		Align:    "center",
		Fill:     PaintString(black, false),
		Visible:  visible && text != "",
	}
	out := []scene.Primitive{label}
	return append(out, CrossOutLines(b, PaintString(missingRed, false), visible && cfg.MissingNumber)...)
}

var (
	missingRed  = models.RGBA{R: 229, G: 57, B: 53, A: 1}
	remarksTint = models.RGBA{R: 255, G: 152, B: 0, A: 1}
)

const remarksRadius = 4

// remarksBadge is the small marker drawn at the top-right corner of a shape
// carrying remarks.
func remarksBadge(cfg *models.ShapeConfig, env Env, x, y float64) scene.Primitive {
	return scene.Primitive{
		Kind:    scene.PrimEllipse,
		Name:    "remarks",
		X:       x,
		Y:       y,
		RadiusX: remarksRadius,
		RadiusY: remarksRadius,
		Fill:    PaintString(remarksTint, false),
		Visible: env.ShowRemarksIcon && cfg.Remarks != "",
	}
}

// badgeAnchor is the top-right corner of the body primitive.
func badgeAnchor(prims []scene.Primitive) (float64, float64) {
	for _, p := range prims {
		if p.Name != "body" {
			continue
		}
		switch p.Kind {
		case scene.PrimEllipse:
			return p.X + p.RadiusX, p.Y - p.RadiusY
		case scene.PrimArc:
			return p.X + p.OuterRadius, p.Y - p.OuterRadius
		case scene.PrimLine:
			return lineTopRight(p.Points)
		default:
			return p.X + p.Width, p.Y
		}
	}
	return 0, 0
}

func lineTopRight(points []float64) (float64, float64) {
	if len(points) < 2 {
		return 0, 0
	}
	maxX, minY := points[0], points[1]
	for i := 0; i+1 < len(points); i += 2 {
		if points[i] > maxX {
			maxX = points[i]
		}
		if points[i+1] < minY {
			minY = points[i+1]
		}
	}
	return maxX, minY
}

func body(kind scene.PrimitiveKind, cfg *models.ShapeConfig, d KindDefaults) scene.Primitive {
	return scene.Primitive{
		Kind:        kind,
		Name:        "body",
		Stroke:      strokeOf(cfg, d),
		Fill:        fillOf(cfg, d),
		StrokeWidth: cfg.StrokeWidth,
		Dash:        dashOf(cfg),
		Visible:     true,
	}
}

func rectSize(cfg *models.ShapeConfig, d KindDefaults) (float64, float64) {
	return ClampMin(cfg.Width, d.MinWidth), ClampMin(cfg.Height, d.MinHeight)
}

func radii(cfg *models.ShapeConfig, d KindDefaults) (float64, float64) {
	return ClampMin(cfg.RadiusX, d.MinWidth), ClampMin(cfg.RadiusY, d.MinHeight)
}
