package radar

import (
	"bytes"
	"image/png"
	"math"
	"testing"

	"github.com/fogleman/gg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"gitea.kood.tech/petrkubec/match-me/matchradar/logger"
	"gitea.kood.tech/petrkubec/match-me/matchradar/scoring"
)

func sample() *scoring.Breakdown {
	return &scoring.Breakdown{
		BusinessSynergy:    80,
		SolutionMatch:      65,
		BusinessTrends:     90,
		GrowthPhaseMatch:   40,
		UrgencyAlignment:   55,
		ResourceComplement: 70,
	}
}

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(Options{}, logger.NewTestLogger(t))
	require.NoError(t, err)
	return r
}

func TestLayout(t *testing.T) {
	g := Layout(200, sample(), 1)

	assert.Equal(t, 200, g.Canvas)
	assert.Equal(t, Point{100, 100}, g.Center)
	assert.Equal(t, 80.0, g.Radius)
	assert.InDelta(t, 96.0, g.LabelRadius, 1e-9)

	t.Run("first spoke points up", func(t *testing.T) {
		assert.InDelta(t, 100, g.Spokes[0].X, 1e-9)
		assert.InDelta(t, 20, g.Spokes[0].Y, 1e-9)
	})

	t.Run("rings evenly spaced", func(t *testing.T) {
		for level, ring := range g.Rings {
			want := g.Radius / levels * float64(level+1)
			for _, p := range ring {
				assert.InDelta(t, want, math.Hypot(p.X-g.Center.X, p.Y-g.Center.Y), 1e-9)
			}
		}
	})

	t.Run("vertex distance proportional to value", func(t *testing.T) {
		for i, p := range g.Vertices {
			want := g.Radius * g.Values[i] / 100
			assert.InDelta(t, want, math.Hypot(p.X-g.Center.X, p.Y-g.Center.Y), 1e-9)
		}
	})

	t.Run("spokes 60 degrees apart", func(t *testing.T) {
		for i := 0; i < axes; i++ {
			a := math.Atan2(g.Spokes[i].Y-g.Center.Y, g.Spokes[i].X-g.Center.X)
			b := math.Atan2(g.Spokes[(i+1)%axes].Y-g.Center.Y, g.Spokes[(i+1)%axes].X-g.Center.X)
			d := math.Mod(b-a+2*math.Pi, 2*math.Pi)
			assert.InDelta(t, math.Pi/3, d, 1e-9)
		}
	})

	t.Run("scale grows canvas", func(t *testing.T) {
		big := Layout(200, sample(), 1.1)
		assert.Equal(t, 220, big.Canvas)
		assert.InDelta(t, 88, big.Radius, 1e-9)
	})

	t.Run("nil data is neutral", func(t *testing.T) {
		assert.Equal(t, scoring.NeutralBreakdown().Values(), Layout(200, nil, 1).Values)
	})

	t.Run("out of range values clamped", func(t *testing.T) {
		g := Layout(200, &scoring.Breakdown{BusinessSynergy: 150, SolutionMatch: -3}, 1)
		assert.Equal(t, 100.0, g.Values[0])
		assert.Equal(t, 0.0, g.Values[1])
	})
}

func TestRenderPNGDeterministic(t *testing.T) {
	r := newTestRenderer(t)

	var a, b bytes.Buffer
	require.NoError(t, r.RenderPNG(&a, 200, sample(), 1))
	require.NoError(t, r.RenderPNG(&b, 200, sample(), 1))
	assert.Equal(t, a.Bytes(), b.Bytes())

	img, err := png.Decode(bytes.NewReader(a.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())
}

func TestRenderPNGNilDataIsNeutral(t *testing.T) {
	r := newTestRenderer(t)

	var fromNil, fromNeutral bytes.Buffer
	neutral := scoring.NeutralBreakdown()
	require.NoError(t, r.RenderPNG(&fromNil, 200, nil, 1))
	require.NoError(t, r.RenderPNG(&fromNeutral, 200, &neutral, 1))
	assert.Equal(t, fromNeutral.Bytes(), fromNil.Bytes())
}

func TestRenderPNGFullscreen(t *testing.T) {
	r := newTestRenderer(t)

	var buf bytes.Buffer
	require.NoError(t, r.RenderPNG(&buf, 600, sample(), 1))
	cfg, err := png.DecodeConfig(&buf)
	require.NoError(t, err)
	assert.Equal(t, 600, cfg.Width)

	assert.Error(t, r.RenderPNG(&buf, 0, sample(), 1))
}

func TestDraw(t *testing.T) {
	t.Run("nil surface is skipped and logged", func(t *testing.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		r, err := NewRenderer(Options{}, logger.NewZapAdapter(zap.New(core)))
		require.NoError(t, err)

		assert.NotPanics(t, func() { r.Draw(nil, sample(), 1) })
		assert.Equal(t, 1, logs.Len())
	})

	t.Run("matches RenderPNG at scale 1", func(t *testing.T) {
		r := newTestRenderer(t)
		dc := gg.NewContext(200, 200)
		r.Draw(dc, sample(), 1)

		var drawn, rendered bytes.Buffer
		require.NoError(t, dc.EncodePNG(&drawn))
		require.NoError(t, r.RenderPNG(&rendered, 200, sample(), 1))
		assert.Equal(t, rendered.Bytes(), drawn.Bytes())
	})

	t.Run("background cleared", func(t *testing.T) {
		r := newTestRenderer(t)
		dc := gg.NewContext(200, 200)
		r.Draw(dc, nil, 1)
		cr, cg, cb, _ := dc.Image().At(1, 1).RGBA()
		assert.Equal(t, [3]uint32{0xffff, 0xffff, 0xffff}, [3]uint32{cr, cg, cb})
	})
}

// changedPixels renders with and without label i and counts differing pixels.
func changedPixels(t *testing.T, size, i int) int {
	t.Helper()
	r := newTestRenderer(t)
	var with, without bytes.Buffer
	require.NoError(t, r.RenderPNG(&with, size, sample(), 1))
	r.labels[i] = ""
	require.NoError(t, r.RenderPNG(&without, size, sample(), 1))

	a, err := png.Decode(&with)
	require.NoError(t, err)
	b, err := png.Decode(&without)
	require.NoError(t, err)

	n := 0
	bounds := a.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if a.At(x, y) != b.At(x, y) {
				n++
			}
		}
	}
	return n
}

func TestAxisLabelsVisible(t *testing.T) {
	for _, size := range []int{200, 600} {
		for i, label := range LabelsFor("en") {
			assert.Positive(t, changedPixels(t, size, i), "label %d (%s) at %d", i, label, size)
		}
	}

	t.Run("labels grow with the surface", func(t *testing.T) {
		small := changedPixels(t, 200, 0)
		large := changedPixels(t, 600, 0)
		assert.Greater(t, large, 4*small)
	})
}

func TestNewRendererMissingFont(t *testing.T) {
	_, err := NewRenderer(Options{FontPath: "/nonexistent/font.ttf"}, nil)
	assert.Error(t, err)
}
