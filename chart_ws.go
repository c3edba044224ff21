package main

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"gitea.kood.tech/petrkubec/match-me/matchradar/logger"
	"gitea.kood.tech/petrkubec/match-me/matchradar/radar"
	"gitea.kood.tech/petrkubec/match-me/matchradar/resolve"
)

const (
	wsReadLimit    = 1 << 20
	wsPongWait     = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteWait    = 10 * time.Second
	wsSendBuffer   = 32
)

// chartClientMessage is what the page sends: mount, unmount or event.
type chartClientMessage struct {
	Type        string         `json:"type"`
	ChartID     string         `json:"chart_id"`
	CandidateID string         `json:"candidate_id,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	Event       *radar.Event   `json:"event,omitempty"`
}

// chartServerEvent is what the server pushes: info, a11y, frame, overlay,
// tooltip or error.
type chartServerEvent struct {
	Type    string `json:"type"`
	ChartID string `json:"chart_id,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type chartA11yPayload struct {
	radar.A11y
	Source resolve.Source `json:"source"`
}

// chartSession is one websocket connection and the charts mounted on it.
type chartSession struct {
	id     string
	viewer string
	conn   *websocket.Conn
	send   chan chartServerEvent
	done   chan struct{}
	once   sync.Once
	log    logger.Logger

	mu      sync.Mutex
	widgets map[string]*radar.Widget
}

func newChartSession(viewer string, conn *websocket.Conn, log logger.Logger) *chartSession {
	id := uuid.NewString()
	return &chartSession{
		id:      id,
		viewer:  viewer,
		conn:    conn,
		send:    make(chan chartServerEvent, wsSendBuffer),
		done:    make(chan struct{}),
		log:     log.WithFields(map[string]interface{}{"session": id, "viewer": viewer}),
		widgets: make(map[string]*radar.Widget),
	}
}

// push queues an event without blocking. Events are dropped when the buffer is
// full or the session has ended.
func (c *chartSession) push(evt chartServerEvent) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- evt:
	default:
		c.log.Debug("Dropping chart event, send buffer full", map[string]interface{}{"type": evt.Type})
	}
}

func (c *chartSession) sink(out radar.Output) {
	c.push(chartServerEvent{Type: string(out.Type), ChartID: out.ChartID, Data: out})
}

func (c *chartSession) end() {
	c.once.Do(func() { close(c.done) })
}

// sessionHub tracks open sessions so shutdown can end them.
type sessionHub struct {
	mu       sync.Mutex
	sessions map[*chartSession]struct{}
	wg       sync.WaitGroup
}

func newSessionHub() *sessionHub {
	return &sessionHub{sessions: make(map[*chartSession]struct{})}
}

func (h *sessionHub) register(c *chartSession) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[c] = struct{}{}
	h.wg.Add(1)
}

func (h *sessionHub) unregister(c *chartSession) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[c]; ok {
		delete(h.sessions, c)
		h.wg.Done()
	}
}

func (h *sessionHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// closeAll closes every connection and waits for the sessions to clean up.
func (h *sessionHub) closeAll() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.sessions))
	for c := range h.sessions {
		conns = append(conns, c.conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
	h.wg.Wait()
}

// GET /ws/charts?token=
func (s *Server) handleChartSocket(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := s.viewerFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WS upgrade failed", map[string]interface{}{"viewer": viewerID, "error": err})
		return
	}

	c := newChartSession(viewerID, conn, s.log)
	s.sessions.register(c)
	s.metrics.ChartSessions.Inc()
	c.log.Info("Chart session opened", nil)

	ctx, cancel := context.WithCancel(context.Background())
	writerDone := make(chan struct{})

	c.push(chartServerEvent{Type: "info", Data: map[string]string{"session_id": c.id}})
	go func() {
		defer close(writerDone)
		s.chartWriter(c)
	}()

	s.chartReader(ctx, c)

	cancel()
	s.unmountAll(c)
	c.end()
	_ = conn.Close()
	<-writerDone
	s.sessions.unregister(c)
	s.metrics.ChartSessions.Dec()
	c.log.Info("Chart session closed", nil)
}

func (s *Server) chartReader(ctx context.Context, c *chartSession) {
	c.conn.SetReadLimit(wsReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Debug("Chart session read ended", map[string]interface{}{"error": err})
			}
			return
		}

		var msg chartClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			c.push(chartServerEvent{Type: "error", Data: "invalid message format"})
			continue
		}

		switch msg.Type {
		case "mount":
			s.mountChart(ctx, c, msg)
		case "unmount":
			if !s.unmountChart(c, msg.ChartID) {
				c.push(chartServerEvent{Type: "error", ChartID: msg.ChartID, Data: "unknown chart"})
			}
		case "event":
			s.forwardChartEvent(c, msg)
		default:
			c.push(chartServerEvent{Type: "error", Data: "unknown message type"})
		}
	}
}

func (s *Server) chartWriter(c *chartSession) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case evt := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteJSON(evt); err != nil {
				_ = c.conn.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.conn.Close()
				return
			}
		}
	}
}

// mountChart resolves the chart's breakdown and creates its widget. Mounting
// an id that is already mounted replaces the old widget.
func (s *Server) mountChart(ctx context.Context, c *chartSession, msg chartClientMessage) {
	chartID := msg.ChartID
	if chartID == "" {
		chartID = msg.CandidateID
	}
	if chartID == "" {
		c.push(chartServerEvent{Type: "error", Data: "chart_id required"})
		return
	}
	candidate := msg.CandidateID
	if candidate == "" {
		candidate = chartID
	}

	res := s.resolver.Resolve(ctx, resolve.Request{
		Viewer:    c.viewer,
		Candidate: candidate,
		Explicit:  msg.Data,
	})

	widget := radar.NewWidget(chartID, s.renderer, res.Breakdown, radar.WidgetOptions{
		Size:           s.cfg.Chart.Size,
		FullscreenSize: s.cfg.Chart.FullscreenSize,
		HoverScale:     s.cfg.Chart.HoverScale,
		Animation:      s.cfg.Chart.Animation,
		FrameInterval:  s.cfg.Chart.FrameInterval,
		Locale:         s.cfg.Chart.Locale,
	}, c.sink, c.log)

	c.mu.Lock()
	old := c.widgets[chartID]
	c.widgets[chartID] = widget
	c.mu.Unlock()
	if old != nil {
		old.Close()
	} else {
		s.metrics.MountedCharts.Inc()
	}

	c.push(chartServerEvent{
		Type:    "a11y",
		ChartID: chartID,
		Data:    chartA11yPayload{A11y: radar.Describe(s.cfg.Chart.Locale, &res.Breakdown), Source: res.Source},
	})
}

func (s *Server) unmountChart(c *chartSession, chartID string) bool {
	c.mu.Lock()
	widget, ok := c.widgets[chartID]
	delete(c.widgets, chartID)
	c.mu.Unlock()
	if !ok {
		return false
	}
	widget.Close()
	s.metrics.MountedCharts.Dec()
	return true
}

func (s *Server) unmountAll(c *chartSession) {
	c.mu.Lock()
	widgets := c.widgets
	c.widgets = make(map[string]*radar.Widget)
	c.mu.Unlock()

	for _, w := range widgets {
		w.Close()
		s.metrics.MountedCharts.Dec()
	}
}

func (s *Server) forwardChartEvent(c *chartSession, msg chartClientMessage) {
	if msg.Event == nil {
		c.push(chartServerEvent{Type: "error", ChartID: msg.ChartID, Data: "event required"})
		return
	}
	c.mu.Lock()
	widget, ok := c.widgets[msg.ChartID]
	c.mu.Unlock()
	if !ok {
		c.push(chartServerEvent{Type: "error", ChartID: msg.ChartID, Data: "unknown chart"})
		return
	}
	widget.Handle(*msg.Event)
}
