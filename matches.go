package main

import (
	"errors"
	"net/http"
	"strings"

	"gitea.kood.tech/petrkubec/match-me/matchradar/resolve"
	"gitea.kood.tech/petrkubec/match-me/matchradar/scoring"
	"gitea.kood.tech/petrkubec/match-me/matchradar/store"
)

const maxListLimit = 200

// matchCardView is one entry of GET /matches.
type matchCardView struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Title          string            `json:"title,omitempty"`
	Company        string            `json:"company,omitempty"`
	Location       string            `json:"location,omitempty"`
	Industry       string            `json:"industry,omitempty"`
	AvatarURL      string            `json:"avatar_url,omitempty"`
	Online         bool              `json:"online"`
	Score          int               `json:"score"`
	Tier           scoring.Tier      `json:"tier"`
	Recommendation string            `json:"recommendation"`
	Breakdown      scoring.Breakdown `json:"breakdown"`
	Source         resolve.Source    `json:"source"`
	ChartURL       string            `json:"chart_url"`
}

// GET /matches?industry=&location=&limit=&offset=
// The viewer's candidates, scored and sorted. Backend failures yield an empty
// list so the page still renders.
func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := viewerFromContext(r.Context())

	limit, ok := queryInt(r, "limit", store.DefaultLimit)
	if !ok || limit > maxListLimit {
		writeError(w, http.StatusBadRequest, "invalid_limit")
		return
	}
	offset, ok := queryInt(r, "offset", 0)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_offset")
		return
	}

	empty := map[string][]matchCardView{"matches": {}}

	viewer, err := profileSource{store: s.store}.FetchProfile(r.Context(), viewerID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "profile_not_found")
		return
	}
	if err != nil {
		s.log.Warn("Viewer fetch failed, returning no matches", map[string]interface{}{"viewer": viewerID, "error": err})
		writeJSON(w, http.StatusOK, empty)
		return
	}

	candidates, err := s.store.ListProfiles(r.Context(), viewerID, store.Filter{
		Industry: strings.TrimSpace(r.URL.Query().Get("industry")),
		Location: strings.TrimSpace(r.URL.Query().Get("location")),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		s.log.Warn("Candidate listing failed, returning no matches", map[string]interface{}{"viewer": viewerID, "error": err})
		writeJSON(w, http.StatusOK, empty)
		return
	}

	cards, err := s.resolver.Cards(r.Context(), viewer, candidates)
	if err != nil {
		s.log.Warn("Scoring matches interrupted", map[string]interface{}{"viewer": viewerID, "error": err})
		writeJSON(w, http.StatusOK, empty)
		return
	}

	now := s.now()
	views := make([]matchCardView, 0, len(cards))
	for _, c := range cards {
		p := c.Profile
		views = append(views, matchCardView{
			ID:             p.ID,
			Name:           p.Name,
			Title:          p.Title,
			Company:        p.Company,
			Location:       p.Location,
			Industry:       p.Industry,
			AvatarURL:      p.AvatarURL,
			Online:         isOnline(p.LastActiveAt, now),
			Score:          c.Score,
			Tier:           c.Tier,
			Recommendation: c.Tier.Recommendation(),
			Breakdown:      c.Breakdown,
			Source:         c.Source,
			ChartURL:       "/charts/" + p.ID + ".png",
		})
	}
	writeJSON(w, http.StatusOK, map[string][]matchCardView{"matches": views})
}

// POST /matches/{id}/dismiss
func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := viewerFromContext(r.Context())
	candidateID := r.PathValue("id")
	if candidateID == "" || candidateID == viewerID {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}

	if _, err := s.store.FetchProfile(r.Context(), candidateID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	if err := s.store.Dismiss(r.Context(), viewerID, candidateID); err != nil {
		s.log.Error("Dismiss failed", map[string]interface{}{"viewer": viewerID, "candidate": candidateID, "error": err})
		writeError(w, http.StatusInternalServerError, "dismiss_error")
		return
	}
	s.resolver.Invalidate(r.Context(), viewerID, candidateID)
	writeJSON(w, http.StatusCreated, map[string]bool{"dismissed": true})
}
