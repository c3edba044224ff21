package scoring

import (
	"math"
	"time"

	"gitea.kood.tech/petrkubec/match-me/matchradar/logger"
)

// Tier is the coarse verdict derived from the overall score.
type Tier string

const (
	TierExcellent            Tier = "excellent"
	TierGood                 Tier = "good"
	TierPotential            Tier = "potential"
	TierDifferentPerspective Tier = "different_perspective"
)

var recommendations = map[Tier]string{
	TierExcellent:            "非常に相性が良いマッチングです！積極的にコンタクトを取ることをお勧めします。",
	TierGood:                 "良いマッチングです。共通点を活かしたコミュニケーションが期待できます。",
	TierPotential:            "潜在的な可能性があります。まずはカジュアルな交流から始めてみましょう。",
	TierDifferentPerspective: "新しい視点を得られる可能性があります。お互いの違いを活かせるかもしれません。",
}

// Recommendation returns the display text of the tier.
func (t Tier) Recommendation() string {
	return recommendations[t]
}

// Result is the outcome of scoring one (viewer, candidate) pair.
type Result struct {
	Score          int             `json:"score"`
	Breakdown      Breakdown       `json:"breakdown"`
	Legacy         LegacyBreakdown `json:"legacy"`
	Tier           Tier            `json:"tier"`
	Recommendation string          `json:"recommendation"`
	TuningVersion  string          `json:"tuning_version"`
}

// Scorer computes compatibility between two profiles. It is safe for
// concurrent use.
type Scorer struct {
	tuning Tuning
	loc    *time.Location
	log    logger.Logger
}

// NewScorer builds a scorer. A nil location means UTC.
func NewScorer(t Tuning, loc *time.Location, log logger.Logger) *Scorer {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Scorer{tuning: t, loc: loc, log: log}
}

// Tuning returns the constants the scorer was built with.
func (s *Scorer) Tuning() Tuning {
	return s.tuning
}

// Score computes the five heuristic factors, their weighted overall and the
// six-factor breakdown. Missing fields fall back to Neutral, so Score never fails.
func (s *Scorer) Score(viewer, candidate *Profile) Result {
	legacy := LegacyBreakdown{
		CommonTopics:       s.TopicSimilarity(viewer, candidate),
		CommunicationStyle: s.Communication(viewer, candidate),
		EmotionalSync:      s.Personality(viewer, candidate),
		ActivityOverlap:    s.Schedule(viewer, candidate),
		ProfileMatch:       s.BasicProfileMatch(viewer, candidate),
	}

	overall := legacy.Overall(s.tuning.Weights)
	score := int(math.Round(clampScore(overall)))
	tier := s.TierFor(float64(score))

	s.log.Debug("Scored pair", map[string]interface{}{
		"viewer":    profileID(viewer),
		"candidate": profileID(candidate),
		"score":     score,
		"tier":      string(tier),
	})

	return Result{
		Score:          score,
		Breakdown:      FromLegacy(legacy, s.tuning.Weights),
		Legacy:         legacy,
		Tier:           tier,
		Recommendation: tier.Recommendation(),
		TuningVersion:  s.tuning.Version,
	}
}

// Overall is the rounded score of a breakdown, weighted over its five legacy
// factors.
func (s *Scorer) Overall(b Breakdown) int {
	return int(math.Round(clampScore(ToLegacy(b).Overall(s.tuning.Weights))))
}

// TierFor maps a score onto the tuning's thresholds.
func (s *Scorer) TierFor(score float64) Tier {
	th := s.tuning.Thresholds
	switch {
	case score >= th.Excellent:
		return TierExcellent
	case score >= th.Good:
		return TierGood
	case score >= th.Potential:
		return TierPotential
	default:
		return TierDifferentPerspective
	}
}

// Repair validates raw with the scorer's weights. Repairs are logged.
func (s *Scorer) Repair(raw map[string]any) (Breakdown, []Issue) {
	b, issues := RepairWith(raw, s.tuning.Weights)
	if len(issues) > 0 {
		s.log.Warn("Repaired score breakdown", map[string]interface{}{
			"issues": len(issues),
			"kinds":  issueKinds(issues),
		})
	}
	return b, issues
}

func issueKinds(issues []Issue) []string {
	kinds := make([]string, len(issues))
	for i, is := range issues {
		kinds[i] = string(is.Kind)
	}
	return kinds
}

func profileID(p *Profile) string {
	if p == nil {
		return ""
	}
	return p.ID
}
