package main

import (
	"context"
	"net/http"
)

type profileLoaderKey struct{}

func withProfileLoader(ctx context.Context, l *profileLoader) context.Context {
	return context.WithValue(ctx, profileLoaderKey{}, l)
}

func profileLoaderFromContext(ctx context.Context) *profileLoader {
	if l, ok := ctx.Value(profileLoaderKey{}).(*profileLoader); ok {
		return l
	}
	return nil
}

// withProfileLoaders gives every request its own loader so cached profiles
// never outlive the request.
func (s *Server) withProfileLoaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := withProfileLoader(r.Context(), newProfileLoader(s.store))
		next(w, r.WithContext(ctx))
	}
}
