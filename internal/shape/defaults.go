package shape

import (
	"github.com/floorplan-editor/backend/internal/models"
)

// KindDefaults are the per-kind construction defaults and size minimums.
// For ellipse kinds MinWidth/MinHeight are minimum radii.
type KindDefaults struct {
	Stroke      models.RGBA `yaml:"stroke" json:"stroke"`
	Fill        models.RGBA `yaml:"fill" json:"fill"`
	StrokeWidth float64     `yaml:"stroke_width" json:"strokeWidth"`
	FontSize    float64     `yaml:"font_size" json:"fontSize"`
	MinWidth    float64     `yaml:"min_width" json:"minWidth"`
	MinHeight   float64     `yaml:"min_height" json:"minHeight"`
	Text        string      `yaml:"text" json:"text,omitempty"`
}

var (
	black       = models.RGBA{A: 1}
	white       = models.RGBA{R: 255, G: 255, B: 255, A: 1}
	noPaint     = models.RGBA{R: 255, G: 255, B: 255}
	tableFill   = models.RGBA{R: 255, G: 248, B: 220, A: 1}
	fixtureFill = models.RGBA{R: 224, G: 236, B: 255, A: 1}
	areaFill    = models.RGBA{R: 33, G: 150, B: 243, A: 0.08}
	areaStroke  = models.RGBA{R: 33, G: 150, B: 243, A: 1}
)

func builtinDefaults() map[models.ShapeKind]KindDefaults {
	return map[models.ShapeKind]KindDefaults{
		models.ShapeRect:          {Stroke: black, Fill: white, StrokeWidth: 1, FontSize: 12, MinWidth: 10, MinHeight: 10},
		models.ShapeRoundedTable:  {Stroke: black, Fill: tableFill, StrokeWidth: 1, FontSize: 12, MinWidth: 20, MinHeight: 20},
		models.ShapeEllipse:       {Stroke: black, Fill: white, StrokeWidth: 1, FontSize: 12, MinWidth: 5, MinHeight: 5},
		models.ShapeEllipseTable:  {Stroke: black, Fill: tableFill, StrokeWidth: 1, FontSize: 12, MinWidth: 10, MinHeight: 10},
		models.ShapeLine:          {Stroke: black, Fill: noPaint, StrokeWidth: 2, FontSize: 12},
		models.ShapePen:           {Stroke: black, Fill: noPaint, StrokeWidth: 2, FontSize: 12},
		models.ShapeArrow:         {Stroke: black, Fill: noPaint, StrokeWidth: 2, FontSize: 12},
		models.ShapePolygon:       {Stroke: black, Fill: white, StrokeWidth: 1, FontSize: 12},
		models.ShapeGondola:       {Stroke: black, Fill: fixtureFill, StrokeWidth: 1, FontSize: 12, MinWidth: 30, MinHeight: 15},
		models.ShapeRegister:      {Stroke: black, Fill: fixtureFill, StrokeWidth: 1, FontSize: 12, MinWidth: 20, MinHeight: 20},
		models.ShapeFreeText:      {Stroke: noPaint, Fill: noPaint, StrokeWidth: 1, FontSize: 12, MinWidth: 20, MinHeight: 10},
		models.ShapeSpecialL:      {Stroke: black, Fill: tableFill, StrokeWidth: 1, FontSize: 12, MinWidth: 40, MinHeight: 40},
		models.ShapeText:          {Stroke: noPaint, Fill: black, StrokeWidth: 1, FontSize: 12},
		models.ShapeCircularArrow: {Stroke: black, Fill: black, StrokeWidth: 2, FontSize: 12, MinWidth: 10, MinHeight: 10},
		models.ShapeOutlet:        {Stroke: black, Fill: white, StrokeWidth: 1, FontSize: 12, MinWidth: 20, MinHeight: 20},
		models.ShapeRestArea:      {Stroke: black, Fill: white, StrokeWidth: 1, FontSize: 14, MinWidth: 40, MinHeight: 40, Text: "REST"},
		models.ShapeRestroom:      {Stroke: black, Fill: white, StrokeWidth: 1, FontSize: 14, MinWidth: 40, MinHeight: 40, Text: "WC"},
		models.ShapeArea:          {Stroke: areaStroke, Fill: areaFill, StrokeWidth: 2, FontSize: 14, MinWidth: 50, MinHeight: 50},
	}
}

// merge overlays the non-zero fields of o onto d.
func (d KindDefaults) merge(o KindDefaults) KindDefaults {
	if o.Stroke != (models.RGBA{}) {
		d.Stroke = o.Stroke
	}
	if o.Fill != (models.RGBA{}) {
		d.Fill = o.Fill
	}
	if o.StrokeWidth > 0 {
		d.StrokeWidth = o.StrokeWidth
	}
	if o.FontSize > 0 {
		d.FontSize = o.FontSize
	}
	if o.MinWidth > 0 {
		d.MinWidth = o.MinWidth
	}
	if o.MinHeight > 0 {
		d.MinHeight = o.MinHeight
	}
	if o.Text != "" {
		d.Text = o.Text
	}
	return d
}

// applyDefaults backfills missing optional fields. Running it twice is a no-op.
func applyDefaults(cfg *models.ShapeConfig, v variant, d KindDefaults) {
	if cfg.StrokeRgb == nil && cfg.Stroke == "" {
		c := d.Stroke
		cfg.StrokeRgb = &c
	}
	if cfg.FillRgb == nil && cfg.Fill == "" {
		c := d.Fill
		cfg.FillRgb = &c
	}
	if cfg.StrokeWidth == 0 {
		cfg.StrokeWidth = d.StrokeWidth
	}
	if cfg.FontSize == 0 {
		cfg.FontSize = d.FontSize
	}
	if b, ok := v.(backfiller); ok {
		b.backfill(cfg, d)
	}
}
