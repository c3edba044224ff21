package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS(t *testing.T) {
	allowed := []string{"http://localhost:5173", "http://127.0.0.1:5173"}

	t.Run("CORS Headers Applied", func(t *testing.T) {
		called := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusTeapot)
		})

		req := httptest.NewRequest(http.MethodGet, "/anything", nil)
		req.Header.Set("Origin", "http://127.0.0.1:5173")
		w := httptest.NewRecorder()

		withCORS(allowed)(handler).ServeHTTP(w, req)
		resp := w.Result()

		if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://127.0.0.1:5173" {
			t.Errorf("missing or wrong CORS origin header: %v", got)
		}
		if !called {
			t.Error("expected wrapped handler to be called")
		}
		if resp.StatusCode != http.StatusTeapot {
			t.Errorf("expected status %d, got %d", http.StatusTeapot, resp.StatusCode)
		}
	})

	t.Run("Unknown origin gets the fallback", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/anything", nil)
		req.Header.Set("Origin", "http://evil.example")
		w := httptest.NewRecorder()

		withCORS(allowed)(http.NotFoundHandler()).ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != allowed[0] {
			t.Errorf("expected fallback origin %q, got %q", allowed[0], got)
		}
	})

	t.Run("OPTIONS Preflight", func(t *testing.T) {
		called := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		})

		req := httptest.NewRequest(http.MethodOptions, "/anything", nil)
		w := httptest.NewRecorder()
		withCORS(allowed)(handler).ServeHTTP(w, req)

		if w.Code != http.StatusNoContent {
			t.Errorf("expected status %d for OPTIONS, got %d", http.StatusNoContent, w.Code)
		}
		if called {
			t.Error("handler should not be called for OPTIONS preflight")
		}
	})
}

func TestOriginAllowed(t *testing.T) {
	check := originAllowed([]string{"http://localhost:5173"})
	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:5173", true},
		{"http://evil.example", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/ws/charts", nil)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		if got := check(req); got != tt.want {
			t.Errorf("originAllowed(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}

	if !originAllowed([]string{"*"})(httptest.NewRequest(http.MethodGet, "/", nil)) {
		t.Error("wildcard should allow everything")
	}
}
