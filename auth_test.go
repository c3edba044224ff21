package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signClaims(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func TestParseViewerFromJWT(t *testing.T) {
	secret := []byte(testSecret)
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name   string
		token  string
		wantID string
		wantOK bool
	}{
		{"string claim", signClaims(t, testSecret, jwt.MapClaims{"user_id": "u-1", "exp": exp}), "u-1", true},
		{"numeric claim", signClaims(t, testSecret, jwt.MapClaims{"user_id": 42, "exp": exp}), "42", true},
		{"wrong secret", signClaims(t, "other", jwt.MapClaims{"user_id": "u-1", "exp": exp}), "", false},
		{"expired", signClaims(t, testSecret, jwt.MapClaims{"user_id": "u-1", "exp": time.Now().Add(-time.Hour).Unix()}), "", false},
		{"missing claim", signClaims(t, testSecret, jwt.MapClaims{"exp": exp}), "", false},
		{"garbage", "not-a-token", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := parseViewerFromJWT(secret, tt.token)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestViewerFromRequest(t *testing.T) {
	s := &Server{jwtSecret: []byte(testSecret)}
	tok, err := issueToken(s.jwtSecret, "u-7", time.Hour)
	require.NoError(t, err)

	t.Run("Valid Authorization header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		id, ok := s.viewerFromRequest(req)
		assert.True(t, ok)
		assert.Equal(t, "u-7", id)
	})

	t.Run("Valid token query parameter", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test?token="+tok, nil)
		id, ok := s.viewerFromRequest(req)
		assert.True(t, ok)
		assert.Equal(t, "u-7", id)
	})

	t.Run("No authentication", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		_, ok := s.viewerFromRequest(req)
		assert.False(t, ok)
	})

	t.Run("Malformed Authorization header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "NotBearer "+tok)
		_, ok := s.viewerFromRequest(req)
		assert.False(t, ok)
	})
}

func TestAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	user := env.createTestUser(t, viewerProfile())

	var seen string
	h := env.srv.authenticate(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = viewerFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("Unauthorized request", func(t *testing.T) {
		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"unauthorized"}`, w.Body.String())
	})

	t.Run("Viewer in context and presence recorded", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("Authorization", "Bearer "+user.Token)
		w := httptest.NewRecorder()
		h(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, user.ID, seen)

		p, err := env.srv.store.FetchProfile(context.Background(), user.ID)
		require.NoError(t, err)
		require.NotNil(t, p.LastActiveAt)
		assert.True(t, env.now.Equal(*p.LastActiveAt))
	})
}
