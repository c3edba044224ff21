package main

import (
	"context"
	"time"
)

// touchPresence records that the viewer is active now. The last activity hour
// feeds the schedule factor of later scores. Failures are only logged.
func (s *Server) touchPresence(ctx context.Context, viewerID string) {
	if err := s.store.TouchLastActive(ctx, viewerID, s.now()); err != nil {
		s.log.Warn("Failed to update last_active_at", map[string]interface{}{
			"viewer": viewerID,
			"error":  err,
		})
	}
}

// presenceWindow is how recently a member must have been active to count as online.
const presenceWindow = 90 * time.Second

func isOnline(lastActive *time.Time, now time.Time) bool {
	return lastActive != nil && now.Sub(*lastActive) <= presenceWindow
}
