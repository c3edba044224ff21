package main

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// viewerKey is the context key of the authenticated viewer id.
type viewerKey struct{}

func withViewer(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, viewerKey{}, id)
}

func viewerFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(viewerKey{}).(string)
	return id, ok && id != ""
}

// authenticate rejects requests without a valid bearer token, records the
// viewer's activity and puts the viewer id in the request context.
func (s *Server) authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewerID, ok := s.viewerFromRequest(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		s.touchPresence(r.Context(), viewerID)

		next(w, r.WithContext(withViewer(r.Context(), viewerID)))
	}
}

// viewerFromRequest reads the token from the Authorization header, falling back
// to the token query parameter because browsers cannot set headers on
// websocket handshakes.
func (s *Server) viewerFromRequest(r *http.Request) (string, bool) {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return parseViewerFromJWT(s.jwtSecret, strings.TrimPrefix(auth, "Bearer "))
	}
	if q := r.URL.Query().Get("token"); q != "" {
		return parseViewerFromJWT(s.jwtSecret, q)
	}
	return "", false
}

func parseViewerFromJWT(secret []byte, tokenStr string) (string, bool) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return "", false
	}

	// jwt.MapClaims stores numbers as float64; older tokens carry numeric ids
	switch v := claims["user_id"].(type) {
	case string:
		return v, v != ""
	case float64:
		return strconv.FormatInt(int64(v), 10), true
	}
	return "", false
}

// issueToken signs a viewer token. Used by the token command and tests.
func issueToken(secret []byte, viewerID string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": viewerID,
		"exp":     time.Now().Add(ttl).Unix(),
	})
	return token.SignedString(secret)
}
