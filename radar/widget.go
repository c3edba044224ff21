package radar

import (
	"bytes"
	"sync"
	"time"

	"gitea.kood.tech/petrkubec/match-me/matchradar/logger"
	"gitea.kood.tech/petrkubec/match-me/matchradar/scoring"
)

// EventType names a pointer or keyboard interaction with a mounted chart.
type EventType string

const (
	EventVisible         EventType = "visible"
	EventPointerEnter    EventType = "pointer_enter"
	EventPointerLeave    EventType = "pointer_leave"
	EventPointerMove     EventType = "pointer_move"
	EventDoubleClick     EventType = "dblclick"
	EventLongPress       EventType = "long_press"
	EventKey             EventType = "key"
	EventClose           EventType = "close"
	EventBackgroundClick EventType = "background_click"
)

// Event is one interaction forwarded by the host page. X and Y are viewport
// coordinates of the pointer.
type Event struct {
	Type      EventType `json:"type"`
	Key       string    `json:"key,omitempty"`
	X         float64   `json:"x,omitempty"`
	Y         float64   `json:"y,omitempty"`
	ViewportW float64   `json:"viewport_w,omitempty"`
	ViewportH float64   `json:"viewport_h,omitempty"`
}

// OutputType names what a widget asks the host to show.
type OutputType string

const (
	OutputFrame   OutputType = "frame"
	OutputOverlay OutputType = "overlay"
	OutputTooltip OutputType = "tooltip"
)

// Output is one update for the host. Frame is a PNG.
type Output struct {
	Type     OutputType    `json:"type"`
	ChartID  string        `json:"chart_id"`
	Frame    []byte        `json:"frame,omitempty"`
	Size     int           `json:"size,omitempty"`
	Scale    float64       `json:"scale,omitempty"`
	Open     bool          `json:"open"`
	Items    []TooltipItem `json:"items,omitempty"`
	Position *Point        `json:"position,omitempty"`
}

// Sink receives widget outputs. It may be called from the widget's animation
// goroutine and must not block.
type Sink func(Output)

// WidgetOptions are the interaction parameters of a widget.
type WidgetOptions struct {
	Size           int
	FullscreenSize int
	HoverScale     float64
	Animation      time.Duration
	FrameInterval  time.Duration
	Locale         string
}

// Widget is one mounted chart. It owns its breakdown, current scale, animation
// and overlay state. Handle and Close may be called from any goroutine.
type Widget struct {
	id       string
	renderer *Renderer
	data     scoring.Breakdown
	opts     WidgetOptions
	log      logger.Logger

	// handleMu serialises Handle and Close. The animation goroutine never
	// takes it, so stopping an animation while holding it cannot deadlock.
	handleMu sync.Mutex
	visible  bool
	overlay  bool
	closed   bool
	anim     *animation

	mu    sync.Mutex
	scale float64

	sinkMu sync.RWMutex
	sink   Sink
}

type animation struct {
	stop chan struct{}
	done chan struct{}
}

// NewWidget mounts a chart. Nothing is rendered until the chart is visible.
func NewWidget(id string, r *Renderer, data scoring.Breakdown, opts WidgetOptions, sink Sink, log logger.Logger) *Widget {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if opts.HoverScale < 1 {
		opts.HoverScale = 1
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = 16 * time.Millisecond
	}
	return &Widget{
		id:       id,
		renderer: r,
		data:     scoring.Validate(data),
		opts:     opts,
		log:      log.WithFields(map[string]interface{}{"chart_id": id}),
		scale:    1,
		sink:     sink,
	}
}

// ID returns the chart identifier.
func (w *Widget) ID() string {
	return w.id
}

// Scale returns the current hover scale.
func (w *Widget) Scale() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.scale
}

// Handle applies one event.
func (w *Widget) Handle(ev Event) {
	w.handleMu.Lock()
	defer w.handleMu.Unlock()
	if w.closed {
		return
	}

	if ev.Type == EventVisible {
		if !w.visible {
			w.visible = true
			w.emitFrame(w.Scale())
		}
		return
	}
	if !w.visible {
		return
	}

	switch ev.Type {
	case EventPointerEnter:
		w.animateTo(w.opts.HoverScale)
		w.emitTooltip(ev)
	case EventPointerMove:
		w.emitTooltip(ev)
	case EventPointerLeave:
		w.animateTo(1)
		w.emit(Output{Type: OutputTooltip, Open: false})
	case EventDoubleClick, EventLongPress:
		w.openOverlay()
	case EventKey:
		switch ev.Key {
		case "Enter", " ", "Space", "Spacebar":
			w.openOverlay()
		case "Escape", "Esc":
			w.closeOverlay()
		}
	case EventClose, EventBackgroundClick:
		w.closeOverlay()
	default:
		w.log.Debug("Ignoring chart event", map[string]interface{}{"type": string(ev.Type)})
	}
}

// Close cancels any pending animation, waits for it to finish and detaches the
// sink. Later events are ignored.
func (w *Widget) Close() {
	w.handleMu.Lock()
	defer w.handleMu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	w.stopAnimation()

	w.sinkMu.Lock()
	w.sink = nil
	w.sinkMu.Unlock()
}

func (w *Widget) openOverlay() {
	if w.overlay {
		return
	}
	w.overlay = true
	size := w.opts.FullscreenSize
	frame, err := w.render(size, 1)
	if err != nil {
		return
	}
	w.emit(Output{Type: OutputOverlay, Open: true, Size: size, Scale: 1, Frame: frame})
}

func (w *Widget) closeOverlay() {
	if !w.overlay {
		return
	}
	w.overlay = false
	w.emit(Output{Type: OutputOverlay, Open: false})
}

func (w *Widget) emitTooltip(ev Event) {
	pos := PlaceTooltip(Point{ev.X, ev.Y}, TooltipWidth, TooltipHeight, ev.ViewportW, ev.ViewportH)
	w.emit(Output{
		Type:     OutputTooltip,
		Open:     true,
		Items:    TooltipFor(w.opts.Locale, &w.data),
		Position: &pos,
	})
}

// animateTo replaces any running animation with one from the current scale to
// target.
func (w *Widget) animateTo(target float64) {
	w.stopAnimation()

	from := w.Scale()
	if from == target {
		return
	}
	a := &animation{stop: make(chan struct{}), done: make(chan struct{})}
	w.anim = a
	go w.runAnimation(a, from, target)
}

func (w *Widget) stopAnimation() {
	if w.anim == nil {
		return
	}
	close(w.anim.stop)
	<-w.anim.done
	w.anim = nil
}

func (w *Widget) runAnimation(a *animation, from, to float64) {
	defer close(a.done)

	ticker := time.NewTicker(w.opts.FrameInterval)
	defer ticker.Stop()
	start := time.Now()

	for {
		select {
		case <-a.stop:
			return
		case now := <-ticker.C:
			p := 1.0
			if w.opts.Animation > 0 {
				p = float64(now.Sub(start)) / float64(w.opts.Animation)
			}
			if p > 1 {
				p = 1
			}
			scale := from + (to-from)*EaseOutCubic(p)
			w.mu.Lock()
			w.scale = scale
			w.mu.Unlock()
			w.emitFrame(scale)
			if p >= 1 {
				return
			}
		}
	}
}

func (w *Widget) emitFrame(scale float64) {
	frame, err := w.render(w.opts.Size, scale)
	if err != nil {
		return
	}
	w.emit(Output{Type: OutputFrame, Size: w.opts.Size, Scale: scale, Frame: frame})
}

func (w *Widget) render(size int, scale float64) ([]byte, error) {
	var buf bytes.Buffer
	if err := w.renderer.RenderPNG(&buf, size, &w.data, scale); err != nil {
		w.log.Warn("Chart render failed", map[string]interface{}{"error": err, "size": size})
		return nil, err
	}
	return buf.Bytes(), nil
}

func (w *Widget) emit(out Output) {
	out.ChartID = w.id
	w.sinkMu.RLock()
	defer w.sinkMu.RUnlock()
	if w.sink != nil {
		w.sink(out)
	}
}

// EaseOutCubic maps linear progress p in [0,1] to 1-(1-p)^3.
func EaseOutCubic(p float64) float64 {
	q := 1 - p
	return 1 - q*q*q
}
