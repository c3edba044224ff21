package main

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	ScoresResolved  *prometheus.CounterVec
	ChartRenders    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ChartSessions   prometheus.Gauge
	MountedCharts   prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		ScoresResolved: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matchradar_scores_resolved_total",
				Help: "Score breakdowns resolved, by resolution source",
			},
			[]string{"source"},
		),
		ChartRenders: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matchradar_chart_renders_total",
				Help: "Radar chart PNG renders, by size",
			},
			[]string{"size"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "matchradar_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "status"},
		),
		ChartSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "matchradar_chart_sessions_active",
			Help: "Open chart websocket sessions",
		}),
		MountedCharts: f.NewGauge(prometheus.GaugeOpts{
			Name: "matchradar_charts_mounted",
			Help: "Chart widgets mounted across all sessions",
		}),
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack passes websocket upgrades through to the underlying connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (m *metrics) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.RequestDuration.WithLabelValues(route, strconv.Itoa(rec.status)).Observe(time.Since(start).Seconds())
	})
}
