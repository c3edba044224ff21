package main

import (
	"encoding/json"
	"net/http"

	"gitea.kood.tech/petrkubec/match-me/matchradar/resolve"
	"gitea.kood.tech/petrkubec/match-me/matchradar/scoring"
)

const maxBodyBytes = 1 << 20

type scoreView struct {
	Score          int                     `json:"score"`
	Tier           scoring.Tier            `json:"tier"`
	Recommendation string                  `json:"recommendation"`
	Breakdown      scoring.Breakdown       `json:"breakdown"`
	Legacy         scoring.LegacyBreakdown `json:"legacy"`
	Source         resolve.Source          `json:"source"`
	TuningVersion  string                  `json:"tuning_version"`
}

// GET /scores/{id}
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := viewerFromContext(r.Context())
	res := s.resolver.Resolve(r.Context(), resolve.Request{Viewer: viewerID, Candidate: r.PathValue("id")})

	view := scoreView{
		Score:          res.Score,
		Tier:           res.Tier,
		Recommendation: res.Tier.Recommendation(),
		Breakdown:      res.Breakdown,
		Legacy:         scoring.ToLegacy(res.Breakdown),
		Source:         res.Source,
		TuningVersion:  s.scorer.Tuning().Version,
	}
	if res.Result != nil {
		view.Legacy = res.Result.Legacy
	}
	writeJSON(w, http.StatusOK, view)
}

// POST /scores/validate
// Repairs any breakdown-shaped JSON object.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	b, issues := s.scorer.Repair(raw)
	if issues == nil {
		issues = []scoring.Issue{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"breakdown": b,
		"issues":    issues,
		"legacy":    scoring.ToLegacy(b),
		"score":     s.scorer.Overall(b),
	})
}
