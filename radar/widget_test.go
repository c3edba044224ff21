package radar

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"gitea.kood.tech/petrkubec/match-me/matchradar/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu   sync.Mutex
	outs []Output
}

func (r *recorder) sink(o Output) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outs = append(r.outs, o)
}

func (r *recorder) all() []Output {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Output(nil), r.outs...)
}

func (r *recorder) last(typ OutputType) (Output, bool) {
	outs := r.all()
	for i := len(outs) - 1; i >= 0; i-- {
		if outs[i].Type == typ {
			return outs[i], true
		}
	}
	return Output{}, false
}

func testOptions() WidgetOptions {
	return WidgetOptions{
		Size:           200,
		FullscreenSize: 600,
		HoverScale:     1.08,
		Animation:      40 * time.Millisecond,
		FrameInterval:  5 * time.Millisecond,
		Locale:         "ja",
	}
}

func newTestWidget(t *testing.T) (*Widget, *recorder) {
	t.Helper()
	rec := &recorder{}
	w := NewWidget("chart-1", newTestRenderer(t), *sample(), testOptions(), rec.sink, logger.NewTestLogger(t))
	t.Cleanup(w.Close)
	return w, rec
}

func TestWidgetDefersUntilVisible(t *testing.T) {
	w, rec := newTestWidget(t)

	w.Handle(Event{Type: EventPointerEnter})
	w.Handle(Event{Type: EventDoubleClick})
	assert.Empty(t, rec.all())

	w.Handle(Event{Type: EventVisible})
	w.Handle(Event{Type: EventVisible})
	outs := rec.all()
	require.Len(t, outs, 1)
	assert.Equal(t, OutputFrame, outs[0].Type)
	assert.Equal(t, "chart-1", outs[0].ChartID)
	assert.Equal(t, 1.0, outs[0].Scale)
	assert.NotEmpty(t, outs[0].Frame)
}

func TestWidgetHoverAnimation(t *testing.T) {
	w, rec := newTestWidget(t)
	w.Handle(Event{Type: EventVisible})

	w.Handle(Event{Type: EventPointerEnter, X: 10, Y: 10, ViewportW: 800, ViewportH: 600})
	require.Eventually(t, func() bool { return w.Scale() == 1.08 }, time.Second, 5*time.Millisecond)

	frame, ok := rec.last(OutputFrame)
	require.True(t, ok)
	assert.Equal(t, 1.08, frame.Scale)

	tip, ok := rec.last(OutputTooltip)
	require.True(t, ok)
	assert.True(t, tip.Open)
	assert.Len(t, tip.Items, 6)
	assert.Equal(t, &Point{20, 20}, tip.Position)

	w.Handle(Event{Type: EventPointerLeave})
	require.Eventually(t, func() bool { return w.Scale() == 1 }, time.Second, 5*time.Millisecond)
	tip, _ = rec.last(OutputTooltip)
	assert.False(t, tip.Open)
}

func TestWidgetAnimationScalesMonotonically(t *testing.T) {
	w, rec := newTestWidget(t)
	w.Handle(Event{Type: EventVisible})
	w.Handle(Event{Type: EventPointerEnter})
	require.Eventually(t, func() bool { return w.Scale() == 1.08 }, time.Second, 5*time.Millisecond)

	prev := 0.0
	for _, o := range rec.all() {
		if o.Type != OutputFrame {
			continue
		}
		assert.GreaterOrEqual(t, o.Scale, prev)
		assert.LessOrEqual(t, o.Scale, 1.08)
		prev = o.Scale
	}
}

func TestWidgetNewAnimationCancelsPrevious(t *testing.T) {
	w, _ := newTestWidget(t)
	w.Handle(Event{Type: EventVisible})

	for i := 0; i < 5; i++ {
		w.Handle(Event{Type: EventPointerEnter})
		w.Handle(Event{Type: EventPointerLeave})
	}
	require.Eventually(t, func() bool { return w.Scale() == 1 }, time.Second, 5*time.Millisecond)
}

func TestWidgetOverlay(t *testing.T) {
	w, rec := newTestWidget(t)
	w.Handle(Event{Type: EventVisible})

	w.Handle(Event{Type: EventDoubleClick})
	ov, ok := rec.last(OutputOverlay)
	require.True(t, ok)
	assert.True(t, ov.Open)
	assert.Equal(t, 600, ov.Size)
	assert.NotEmpty(t, ov.Frame)

	w.Handle(Event{Type: EventKey, Key: "Escape"})
	ov, _ = rec.last(OutputOverlay)
	assert.False(t, ov.Open)

	t.Run("keyboard and long press open it", func(t *testing.T) {
		for _, ev := range []Event{
			{Type: EventKey, Key: "Enter"},
			{Type: EventKey, Key: " "},
			{Type: EventLongPress},
		} {
			w.Handle(ev)
			ov, _ := rec.last(OutputOverlay)
			assert.True(t, ov.Open, "event %+v", ev)
			w.Handle(Event{Type: EventBackgroundClick})
			ov, _ = rec.last(OutputOverlay)
			assert.False(t, ov.Open)
		}
	})

	t.Run("close without overlay is a no-op", func(t *testing.T) {
		n := len(rec.all())
		w.Handle(Event{Type: EventClose})
		assert.Len(t, rec.all(), n)
	})
}

func TestWidgetCloseStopsAnimation(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	rec := &recorder{}
	opts := testOptions()
	opts.Animation = time.Hour
	w := NewWidget("chart-2", newTestRenderer(t), *sample(), opts, rec.sink, nil)
	w.Handle(Event{Type: EventVisible})
	w.Handle(Event{Type: EventPointerEnter})

	w.Close()
	n := len(rec.all())
	w.Handle(Event{Type: EventDoubleClick})
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, rec.all(), n)
	w.Close()
}

func TestEaseOutCubic(t *testing.T) {
	assert.Equal(t, 0.0, EaseOutCubic(0))
	assert.Equal(t, 1.0, EaseOutCubic(1))
	assert.InDelta(t, 0.875, EaseOutCubic(0.5), 1e-9)
}
