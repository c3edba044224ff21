// Package scorecache keeps computed score breakdowns per (viewer, candidate)
// pair for a bounded time.
package scorecache

import (
	"context"
	"fmt"
	"time"

	"gitea.kood.tech/petrkubec/match-me/matchradar/scoring"
)

// Key identifies an ordered (viewer, candidate) pair.
type Key struct {
	Viewer    string
	Candidate string
}

func (k Key) String() string {
	return fmt.Sprintf("match:score:%s:%s", k.Viewer, k.Candidate)
}

// Entry is one cached result.
type Entry struct {
	Breakdown  scoring.Breakdown `json:"breakdown"`
	Score      int               `json:"score"`
	ComputedAt time.Time         `json:"computed_at"`
}

// Fresh reports whether e is younger than maxAge at now.
func (e Entry) Fresh(now time.Time, maxAge time.Duration) bool {
	return now.Sub(e.ComputedAt) < maxAge
}

// Store is a score cache. Get reports false for missing and stale entries.
type Store interface {
	Get(ctx context.Context, key Key) (Entry, bool, error)
	Put(ctx context.Context, key Key, e Entry) error
	Delete(ctx context.Context, key Key) error
}
