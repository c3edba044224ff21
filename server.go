package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gitea.kood.tech/petrkubec/match-me/matchradar/config"
	"gitea.kood.tech/petrkubec/match-me/matchradar/logger"
	"gitea.kood.tech/petrkubec/match-me/matchradar/radar"
	"gitea.kood.tech/petrkubec/match-me/matchradar/resolve"
	"gitea.kood.tech/petrkubec/match-me/matchradar/scorecache"
	"gitea.kood.tech/petrkubec/match-me/matchradar/scoring"
	"gitea.kood.tech/petrkubec/match-me/matchradar/store"
)

// Server wires every component once. Handlers are its methods.
type Server struct {
	cfg       *config.Config
	log       logger.Logger
	store     *store.SQLStore
	scorer    *scoring.Scorer
	renderer  *radar.Renderer
	resolver  *resolve.Resolver
	cache     scorecache.Store
	memCache  *scorecache.Memory
	metrics   *metrics
	registry  *prometheus.Registry
	jwtSecret []byte
	upgrader  websocket.Upgrader
	sessions  *sessionHub
	now       func() time.Time
	closers   []func() error
}

func newServer(cfg *config.Config, log logger.Logger, db *sql.DB, dialect store.Dialect, reg *prometheus.Registry) (*Server, error) {
	tuning, err := scoring.LoadTuning(cfg.Scoring.TuningPath)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(cfg.Scoring.Timezone)
	if err != nil {
		return nil, fmt.Errorf("scoring timezone: %w", err)
	}
	renderer, err := radar.NewRenderer(radar.Options{FontPath: cfg.Chart.FontPath, Locale: cfg.Chart.Locale},
		log.WithFields(map[string]interface{}{"component": "radar"}))
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:       cfg,
		log:       log,
		store:     store.NewSQLStore(db, dialect, log.WithFields(map[string]interface{}{"component": "store"})),
		scorer:    scoring.NewScorer(tuning, loc, log.WithFields(map[string]interface{}{"component": "scoring"})),
		renderer:  renderer,
		metrics:   newMetrics(reg),
		registry:  reg,
		jwtSecret: []byte(cfg.Auth.JWTSecret),
		now:       time.Now,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originAllowed(cfg.HTTP.AllowedOrigins),
	}
	s.sessions = newSessionHub()

	if cfg.Redis.Enabled {
		client := scorecache.NewRedisClient(cfg.Redis)
		rc := scorecache.NewRedis(client, cfg.Cache.MaxAge)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rc.Ping(ctx); err != nil {
			// cache errors degrade to recomputation, so start anyway
			log.Warn("Redis unreachable", map[string]interface{}{"address": cfg.Redis.Address, "error": err})
		}
		cancel()
		s.cache = rc
		s.closers = append(s.closers, client.Close)
	} else {
		s.memCache = scorecache.NewMemory(cfg.Cache.MaxAge, log.WithFields(map[string]interface{}{"component": "scorecache"}))
		s.cache = s.memCache
	}

	s.resolver = resolve.New(profileSource{store: s.store}, s.cache, s.scorer, resolve.Options{
		Concurrency: cfg.Scoring.Concurrency,
		OnResolve: func(src resolve.Source) {
			s.metrics.ScoresResolved.WithLabelValues(string(src)).Inc()
		},
	}, log.WithFields(map[string]interface{}{"component": "resolve"}))

	log.Info("Scorer ready", map[string]interface{}{
		"tuning_version": tuning.Version,
		"timezone":       loc.String(),
		"redis":          cfg.Redis.Enabled,
	})
	return s, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.metrics.instrument(pattern, h))
	}

	handle("GET /matches", s.authenticate(s.withProfileLoaders(s.handleMatches)))
	handle("POST /matches/{id}/dismiss", s.authenticate(s.handleDismiss))
	handle("GET /scores/{id}", s.authenticate(s.withProfileLoaders(s.handleScore)))
	handle("POST /scores/validate", s.authenticate(s.handleValidate))
	handle("GET /charts/{file}", s.authenticate(s.withProfileLoaders(s.handleChartPNG)))
	handle("GET /charts/{id}/a11y", s.authenticate(s.withProfileLoaders(s.handleChartA11y)))
	handle("GET /ws/charts", s.handleChartSocket)

	// Health check endpoint for Docker
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	return withCORS(s.cfg.HTTP.AllowedOrigins)(mux)
}

// runBackground starts the memory cache sweeper until ctx is done.
func (s *Server) runBackground(ctx context.Context) {
	if s.memCache != nil {
		s.memCache.Run(ctx, s.cfg.Cache.SweepInterval)
	}
}

// Close ends every chart session and releases external clients.
func (s *Server) Close() error {
	s.sessions.closeAll()
	var firstErr error
	for _, c := range s.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
