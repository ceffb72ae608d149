// Package render rasterizes scene payloads to PNG for the read-only viewer.
package render

import (
	"fmt"
	"image/color"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/floorplan-editor/backend/internal/scene"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// Item is one payload drawn under an absolute stage matrix.
type Item struct {
	Matrix  scene.Matrix
	Payload *scene.Payload
}

// Request describes one picture.
type Request struct {
	Width  int
	Height int
	// Scale multiplies stage coordinates into pixels.
	Scale float64
	// Items are painted in order; later items cover earlier ones.
	Items []Item
}

// MaxPixels bounds Width*Height of a single render.
const MaxPixels = 8192 * 8192

// Renderer paints requests with a shared font.
type Renderer struct {
	mu    sync.Mutex
	font  *truetype.Font
	faces map[float64]font.Face
}

// NewRenderer parses the embedded Go Regular font.
func NewRenderer() (*Renderer, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	return &Renderer{font: f, faces: make(map[float64]font.Face)}, nil
}

func (r *Renderer) face(size float64) font.Face {
	if size <= 0 {
		size = 12
	}
	if f, ok := r.faces[size]; ok {
		return f
	}
	f := truetype.NewFace(r.font, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	r.faces[size] = f
	return f
}

// PNG paints req and writes it as PNG.
func (r *Renderer) PNG(w io.Writer, req Request) error {
	if req.Width <= 0 || req.Height <= 0 {
		return fmt.Errorf("invalid image size %dx%d", req.Width, req.Height)
	}
	if req.Width*req.Height > MaxPixels {
		return fmt.Errorf("image size %dx%d exceeds limit", req.Width, req.Height)
	}
	if req.Scale <= 0 {
		req.Scale = 1
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	dc := gg.NewContext(req.Width, req.Height)
	dc.SetColor(color.White)
	dc.Clear()
	dc.Scale(req.Scale, req.Scale)

	for _, item := range req.Items {
		if item.Payload == nil || !item.Payload.Visible {
			continue
		}
		dc.Push()
		t := item.Matrix.Multiply(item.Payload.Local.Matrix()).Decompose()
		dc.Translate(t.X, t.Y)
		dc.Rotate(gg.Radians(t.Rotation))
		dc.Scale(t.ScaleX, t.ScaleY)
		for _, p := range item.Payload.Primitives {
			if p.Visible {
				r.draw(dc, p)
			}
		}
		dc.Pop()
	}
	return dc.EncodePNG(w)
}

func (r *Renderer) draw(dc *gg.Context, p scene.Primitive) {
	switch p.Kind {
	case scene.PrimRect:
		if p.CornerRadius > 0 {
			dc.DrawRoundedRectangle(p.X, p.Y, p.Width, p.Height, p.CornerRadius)
		} else {
			dc.DrawRectangle(p.X, p.Y, p.Width, p.Height)
		}
		paint(dc, p)
	case scene.PrimEllipse:
		dc.DrawEllipse(p.X, p.Y, p.RadiusX, p.RadiusY)
		paint(dc, p)
	case scene.PrimLine:
		if len(p.Points) < 4 {
			return
		}
		dc.MoveTo(p.Points[0], p.Points[1])
		for i := 2; i+1 < len(p.Points); i += 2 {
			dc.LineTo(p.Points[i], p.Points[i+1])
		}
		if p.Closed {
			dc.ClosePath()
			paint(dc, p)
			return
		}
		p.Fill = ""
		paint(dc, p)
	case scene.PrimArc:
		end := gg.Radians(p.Angle)
		if !p.Clockwise {
			end = -end
		}
		dc.NewSubPath()
		dc.DrawArc(p.X, p.Y, p.OuterRadius, 0, end)
		dc.DrawArc(p.X, p.Y, p.InnerRadius, end, 0)
		dc.ClosePath()
		paint(dc, p)
	case scene.PrimText:
		if p.Text == "" {
			return
		}
		c, ok := ParsePaint(p.Fill)
		if !ok {
			return
		}
		dc.SetFontFace(r.face(p.FontSize))
		dc.SetColor(c)
		align := gg.AlignLeft
		switch p.Align {
		case "center":
			align = gg.AlignCenter
		case "right":
			align = gg.AlignRight
		}
		width := p.Width
		if width <= 0 {
			width, _ = dc.MeasureString(p.Text)
		}
		dc.DrawStringWrapped(p.Text, p.X, p.Y, 0, 0, width, 1.2, align)
	}
}

// paint fills then strokes the current path.
func paint(dc *gg.Context, p scene.Primitive) {
	if c, ok := ParsePaint(p.Fill); ok {
		dc.SetColor(c)
		dc.FillPreserve()
	}
	if c, ok := ParsePaint(p.Stroke); ok && p.StrokeWidth > 0 {
		dc.SetColor(c)
		dc.SetLineWidth(p.StrokeWidth)
		dc.SetDash(p.Dash...)
		dc.StrokePreserve()
		dc.SetDash()
	}
	dc.ClearPath()
}

// ParsePaint reads "rgba(r,g,b,a)", "rgb(r,g,b)" and "#rrggbb" colors. Fully
// transparent and unparseable paints report false.
func ParsePaint(s string) (color.NRGBA, bool) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "rgba(") && strings.HasSuffix(s, ")"):
		return parseComponents(s[5:len(s)-1], 4)
	case strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")"):
		return parseComponents(s[4:len(s)-1], 3)
	case strings.HasPrefix(s, "#") && len(s) == 7:
		v, err := strconv.ParseUint(s[1:], 16, 32)
		if err != nil {
			return color.NRGBA{}, false
		}
		return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, true
	}
	return color.NRGBA{}, false
}

func parseComponents(body string, n int) (color.NRGBA, bool) {
	parts := strings.Split(body, ",")
	if len(parts) != n {
		return color.NRGBA{}, false
	}
	var rgb [3]uint8
	for i := 0; i < 3; i++ {
		v, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil || v < 0 || v > 255 {
			return color.NRGBA{}, false
		}
		rgb[i] = uint8(v)
	}
	alpha := 1.0
	if n == 4 {
		a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil {
			return color.NRGBA{}, false
		}
		alpha = a
	}
	if alpha <= 0 {
		return color.NRGBA{}, false
	}
	if alpha > 1 {
		alpha = 1
	}
	return color.NRGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: uint8(alpha*255 + 0.5)}, true
}
