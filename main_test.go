package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"gitea.kood.tech/petrkubec/match-me/matchradar/config"
	"gitea.kood.tech/petrkubec/match-me/matchradar/logger"
	"gitea.kood.tech/petrkubec/match-me/matchradar/scoring"
)

const testSecret = "test-secret-key-for-testing"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// Test helper structures and types
type testEnv struct {
	srv     *Server
	handler http.Handler
	now     time.Time
}

type testUser struct {
	ID    string
	Token string
}

func testConfig(dsn string) *config.Config {
	return &config.Config{
		App:      config.AppConfig{Name: "matchradar", Environment: "test"},
		HTTP:     config.HTTPConfig{Address: ":0", AllowedOrigins: []string{"http://localhost:5173"}, ShutdownTimeout: time.Second},
		Database: config.DatabaseConfig{Driver: "sqlite", DSN: dsn, MaxOpenConns: 1, MaxIdleConns: 1},
		Cache:    config.CacheConfig{MaxAge: 30 * time.Minute, SweepInterval: time.Minute},
		Auth:     config.AuthConfig{JWTSecret: testSecret},
		Chart: config.ChartConfig{
			Size:           200,
			FullscreenSize: 600,
			HoverScale:     1.08,
			Animation:      40 * time.Millisecond,
			FrameInterval:  10 * time.Millisecond,
			Locale:         "ja",
		},
		Scoring: config.ScoringConfig{Timezone: "Asia/Tokyo", Concurrency: 4},
		Logging: config.LoggingConfig{Level: "debug", Format: "console"},
	}
}

// newTestEnv builds a server over a fresh SQLite file. The logger discards
// output because websocket goroutines may log after the test returns.
func newTestEnv(t *testing.T, tweaks ...func(*config.Config)) *testEnv {
	t.Helper()
	ctx := context.Background()
	cfg := testConfig(filepath.Join(t.TempDir(), "matchradar.db"))
	for _, tweak := range tweaks {
		tweak(cfg)
	}
	log := logger.NewNoOpLogger()

	db, dialect, err := openDB(ctx, cfg.Database, log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s, err := newServer(cfg, log, db, dialect, prometheus.NewRegistry())
	require.NoError(t, err)
	require.NoError(t, s.store.Migrate(ctx))
	t.Cleanup(func() { _ = s.Close() })

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return &testEnv{srv: s, handler: s.routes(), now: now}
}

// createTestUser stores p and returns a bearer token for it.
func (e *testEnv) createTestUser(t *testing.T, p scoring.Profile) testUser {
	t.Helper()
	require.NoError(t, e.srv.store.InsertProfile(context.Background(), &p))
	tok, err := issueToken([]byte(testSecret), p.ID, time.Hour)
	require.NoError(t, err)
	return testUser{ID: p.ID, Token: tok}
}

func (e *testEnv) do(t *testing.T, method, target, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func ts(t time.Time) *time.Time { return &t }

// fixture profiles share enough to score above neutral against viewer.
func viewerProfile() scoring.Profile {
	return scoring.Profile{
		ID:                 "viewer",
		Name:               "山田 太郎",
		Title:              "CEO",
		Company:            "株式会社テスト",
		Bio:                "製造業のDX",
		Skills:             []string{"AI", "システム開発"},
		Interests:          []string{"DX", "AI"},
		BusinessChallenges: []string{"売上向上"},
		Location:           "東京都渋谷区",
		Industry:           "IT",
		LastActiveAt:       ts(time.Date(2024, 5, 1, 1, 0, 0, 0, time.UTC)),
	}
}

func closeProfile() scoring.Profile {
	return scoring.Profile{
		ID:                 "close",
		Name:               "佐藤 花子",
		Title:              "部長",
		Company:            "株式会社サクラ",
		Bio:                "BtoBマーケティング",
		Skills:             []string{"マーケティング", "営業"},
		Interests:          []string{"DX", "AI"},
		BusinessChallenges: []string{"業務効率化"},
		Location:           "東京都千代田区",
		Industry:           "IT",
		LastActiveAt:       ts(time.Date(2024, 5, 1, 1, 0, 0, 0, time.UTC)),
	}
}

func farProfile() scoring.Profile {
	return scoring.Profile{
		ID:       "far",
		Name:     "鈴木 誠",
		Skills:   []string{"財務"},
		Location: "北海道札幌市",
		Industry: "金融",
	}
}
