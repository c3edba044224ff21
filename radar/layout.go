package radar

import (
	"image/color"
	"math"

	"gitea.kood.tech/petrkubec/match-me/matchradar/scoring"
)

// BaseSize is the reference surface width every proportion is expressed against.
const BaseSize = 200.0

const (
	levels     = 5
	axes       = len(scoring.Factors)
	angleStep  = 2 * math.Pi / float64(axes)
	startAngle = -math.Pi / 2
)

// Palette holds the fixed chart colours.
var Palette = struct {
	Grid, GridDark, Fill, Stroke, Text, Background color.Color
}{
	Grid:       color.RGBA{0xe5, 0xe7, 0xeb, 0xff},
	GridDark:   color.RGBA{0x9c, 0xa3, 0xaf, 0xff},
	Fill:       color.NRGBA{59, 130, 246, 51},
	Stroke:     color.RGBA{0x3b, 0x82, 0xf6, 0xff},
	Text:       color.RGBA{0x37, 0x41, 0x51, 0xff},
	Background: color.RGBA{0xff, 0xff, 0xff, 0xff},
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LabelSpot is where an axis label is drawn. AnchorY follows gg: 0 puts the
// text above the point, 1 below it, 0.5 centred. The renderer nudges the text
// box back inside the canvas when it would cross an edge.
type LabelSpot struct {
	Point
	AnchorY float64
}

// Geometry is the fully resolved layout of one chart.
type Geometry struct {
	Canvas      int
	Unit        float64 // pixels per reference pixel
	Center      Point
	Radius      float64
	LabelRadius float64
	DotRadius   float64
	Rings       [levels][axes]Point
	Spokes      [axes]Point
	Labels      [axes]LabelSpot
	Values      [axes]float64
	Vertices    [axes]Point
}

// Layout computes the geometry of a size×size chart drawn at scale. The canvas
// grows with the scale so nothing is clipped. A nil breakdown lays out the
// neutral chart.
func Layout(size int, data *scoring.Breakdown, scale float64) Geometry {
	if scale <= 0 {
		scale = 1
	}
	b := scoring.NeutralBreakdown()
	if data != nil {
		b = scoring.Validate(*data)
	}

	width := float64(size) * scale
	canvas := int(math.Round(width))
	g := Geometry{
		Canvas:      canvas,
		Unit:        width / BaseSize,
		Center:      Point{float64(canvas) / 2, float64(canvas) / 2},
		Radius:      0.4 * width,
		LabelRadius: 0.48 * width,
		DotRadius:   0.02 * width,
		Values:      b.Values(),
	}

	for level := 1; level <= levels; level++ {
		r := g.Radius / levels * float64(level)
		for i := 0; i < axes; i++ {
			g.Rings[level-1][i] = g.polar(i, r)
		}
	}
	for i := 0; i < axes; i++ {
		g.Spokes[i] = g.polar(i, g.Radius)
		g.Labels[i] = LabelSpot{Point: g.polar(i, g.LabelRadius), AnchorY: labelAnchor(i)}
		g.Vertices[i] = g.polar(i, g.Radius*g.Values[i]/100)
	}
	return g
}

func (g Geometry) polar(i int, r float64) Point {
	angle := angleStep*float64(i) + startAngle
	return Point{
		X: g.Center.X + math.Cos(angle)*r,
		Y: g.Center.Y + math.Sin(angle)*r,
	}
}

// labelAnchor keeps the top label above its spot and the bottom label below.
func labelAnchor(i int) float64 {
	switch i {
	case 0:
		return 0
	case axes / 2:
		return 1
	default:
		return 0.5
	}
}
