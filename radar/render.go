package radar

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"gitea.kood.tech/petrkubec/match-me/matchradar/logger"
	"gitea.kood.tech/petrkubec/match-me/matchradar/scoring"
)

const (
	labelPoints = 12.0
	valuePoints = 10.0
	// bitmapPoints is the fixed height of the built-in face.
	bitmapPoints = 13.0
)

// Options configures a Renderer.
type Options struct {
	// FontPath is a TrueType font with CJK glyphs. Without one, axis labels are
	// drawn in English with the built-in bitmap face.
	FontPath string
	Locale   string
}

// Renderer draws radar charts. It holds no per-chart state and is safe for
// concurrent use.
type Renderer struct {
	font   *truetype.Font
	labels Labels
	log    logger.Logger
}

// NewRenderer parses the configured font once.
func NewRenderer(opts Options, log logger.Logger) (*Renderer, error) {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	r := &Renderer{labels: LabelsFor("en"), log: log}
	if opts.FontPath == "" {
		return r, nil
	}

	data, err := os.ReadFile(opts.FontPath)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", opts.FontPath, err)
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", opts.FontPath, err)
	}
	r.font = f
	r.labels = LabelsFor(opts.Locale)
	return r, nil
}

// Draw clears dc and draws data scaled about the surface centre. A nil surface
// is skipped; nil data draws the neutral chart.
func (r *Renderer) Draw(dc *gg.Context, data *scoring.Breakdown, scale float64) {
	if dc == nil {
		r.log.Warn("Drawing surface unavailable, chart skipped", nil)
		return
	}
	if scale <= 0 {
		scale = 1
	}
	g := Layout(dc.Width(), data, 1)

	dc.Push()
	defer dc.Pop()
	dc.SetColor(Palette.Background)
	dc.Clear()
	dc.ScaleAbout(scale, scale, g.Center.X, g.Center.Y)
	r.draw(dc, g)
}

// RenderPNG draws a size×size chart at scale and encodes it as PNG. The
// canvas grows with scale. Output is identical for identical input.
func (r *Renderer) RenderPNG(w io.Writer, size int, data *scoring.Breakdown, scale float64) error {
	if size <= 0 {
		return fmt.Errorf("invalid chart size %d", size)
	}
	g := Layout(size, data, scale)
	dc := gg.NewContext(g.Canvas, g.Canvas)
	dc.SetColor(Palette.Background)
	dc.Clear()
	r.draw(dc, g)
	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode chart: %w", err)
	}
	return nil
}

func (r *Renderer) draw(dc *gg.Context, g Geometry) {
	r.drawGrid(dc, g)
	r.drawLabels(dc, g)
	r.drawData(dc, g)
}

func (r *Renderer) drawGrid(dc *gg.Context, g Geometry) {
	for level, ring := range g.Rings {
		outer := level == levels-1
		if outer {
			dc.SetColor(Palette.GridDark)
			dc.SetLineWidth(2 * g.Unit)
		} else {
			dc.SetColor(Palette.Grid)
			dc.SetLineWidth(g.Unit)
		}
		polygon(dc, ring[:])
		dc.Stroke()
	}

	dc.SetColor(Palette.Grid)
	dc.SetLineWidth(g.Unit)
	for _, p := range g.Spokes {
		dc.MoveTo(g.Center.X, g.Center.Y)
		dc.LineTo(p.X, p.Y)
		dc.Stroke()
	}
}

func (r *Renderer) drawLabels(dc *gg.Context, g Geometry) {
	points := labelPoints * g.Unit
	dc.SetFontFace(r.face(points))
	dc.SetColor(Palette.Text)
	k := r.textScale(points)
	pad := 2 * g.Unit
	edge := float64(g.Canvas)
	for i, spot := range g.Labels {
		w, h := dc.MeasureString(r.labels[i])
		w, h = w*k, h*k
		left := clamp(spot.X-w/2, pad, edge-pad-w)
		top := clamp(spot.Y-(1-spot.AnchorY)*h, pad, edge-pad-h)
		r.drawText(dc, r.labels[i], left, top+h, k)
	}
}

func (r *Renderer) drawData(dc *gg.Context, g Geometry) {
	dc.SetColor(Palette.Fill)
	polygon(dc, g.Vertices[:])
	dc.Fill()

	dc.SetColor(Palette.Stroke)
	dc.SetLineWidth(2 * g.Unit)
	polygon(dc, g.Vertices[:])
	dc.Stroke()

	for _, p := range g.Vertices {
		dc.DrawCircle(p.X, p.Y, g.DotRadius)
		dc.Fill()
	}

	points := valuePoints * g.Unit
	dc.SetFontFace(r.face(points))
	dc.SetColor(Palette.Text)
	k := r.textScale(points)
	for i, p := range g.Vertices {
		text := fmt.Sprintf("%d", percent(g.Values[i]))
		w, _ := dc.MeasureString(text)
		r.drawText(dc, text, p.X-w*k/2, p.Y-6*g.Unit, k)
	}
}

// drawText draws s with its baseline origin at (x, y), magnified by k.
func (r *Renderer) drawText(dc *gg.Context, s string, x, y, k float64) {
	if k == 1 {
		dc.DrawString(s, x, y)
		return
	}
	dc.Push()
	dc.ScaleAbout(k, k, x, y)
	dc.DrawString(s, x, y)
	dc.Pop()
}

// textScale is the magnification that brings the current face to points.
// TrueType faces are already sized; the bitmap face is scaled.
func (r *Renderer) textScale(points float64) float64 {
	if r.font != nil {
		return 1
	}
	return points / bitmapPoints
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// face returns a new face per draw; truetype faces are not safe for
// concurrent use.
func (r *Renderer) face(points float64) font.Face {
	if r.font == nil {
		return basicfont.Face7x13
	}
	return truetype.NewFace(r.font, &truetype.Options{Size: points, Hinting: font.HintingFull})
}

func polygon(dc *gg.Context, pts []Point) {
	dc.NewSubPath()
	for i, p := range pts {
		if i == 0 {
			dc.MoveTo(p.X, p.Y)
		} else {
			dc.LineTo(p.X, p.Y)
		}
	}
	dc.ClosePath()
}
