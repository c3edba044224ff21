package main

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"gitea.kood.tech/petrkubec/match-me/matchradar/radar"
	"gitea.kood.tech/petrkubec/match-me/matchradar/resolve"
)

// GET /charts/{id}.png?size=200|600
func (s *Server) handleChartPNG(w http.ResponseWriter, r *http.Request) {
	candidateID, ok := strings.CutSuffix(r.PathValue("file"), ".png")
	if !ok || candidateID == "" {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	size, ok := s.chartSize(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_size")
		return
	}

	viewerID, _ := viewerFromContext(r.Context())
	res := s.resolver.Resolve(r.Context(), resolve.Request{Viewer: viewerID, Candidate: candidateID})

	var buf bytes.Buffer
	if err := s.renderer.RenderPNG(&buf, size, &res.Breakdown, 1); err != nil {
		s.log.Error("Chart render failed", map[string]interface{}{"candidate": candidateID, "error": err})
		writeError(w, http.StatusInternalServerError, "render_error")
		return
	}
	s.metrics.ChartRenders.WithLabelValues(strconv.Itoa(size)).Inc()

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=60")
	w.Header().Set("X-Score-Source", string(res.Source))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// GET /charts/{id}/a11y?locale=
func (s *Server) handleChartA11y(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := viewerFromContext(r.Context())
	res := s.resolver.Resolve(r.Context(), resolve.Request{Viewer: viewerID, Candidate: r.PathValue("id")})

	locale := r.URL.Query().Get("locale")
	if locale == "" {
		locale = s.cfg.Chart.Locale
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"a11y":    radar.Describe(locale, &res.Breakdown),
		"tooltip": radar.TooltipFor(locale, &res.Breakdown),
		"source":  res.Source,
	})
}

// chartSize accepts the card size and the fullscreen size.
func (s *Server) chartSize(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("size")
	if raw == "" {
		return s.cfg.Chart.Size, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	if n != s.cfg.Chart.Size && n != s.cfg.Chart.FullscreenSize {
		return 0, false
	}
	return n, true
}
