package scoring

// Legacy factor keys, the five-axis vocabulary the scoring heuristics produce.
const (
	LegacyCommonTopics       = "commonTopics"
	LegacyCommunicationStyle = "communicationStyle"
	LegacyEmotionalSync      = "emotionalSync"
	LegacyActivityOverlap    = "activityOverlap"
	LegacyProfileMatch       = "profileMatch"
)

// LegacyBreakdown is the five-factor vocabulary. It exists only at the edges:
// the scorer fills it and FromLegacy turns it into a Breakdown.
type LegacyBreakdown struct {
	CommonTopics       float64 `json:"commonTopics"`
	CommunicationStyle float64 `json:"communicationStyle"`
	EmotionalSync      float64 `json:"emotionalSync"`
	ActivityOverlap    float64 `json:"activityOverlap"`
	ProfileMatch       float64 `json:"profileMatch"`
}

// legacyMapping is the fixed source key of every current factor.
// ResourceComplement has no legacy source; FromLegacy derives it from the
// weighted overall.
var legacyMapping = map[Factor]string{
	BusinessSynergy:  LegacyProfileMatch,
	SolutionMatch:    LegacyCommonTopics,
	BusinessTrends:   LegacyCommunicationStyle,
	GrowthPhaseMatch: LegacyEmotionalSync,
	UrgencyAlignment: LegacyActivityOverlap,
}

// LegacySource returns the legacy key feeding f, if any.
func LegacySource(f Factor) (string, bool) {
	k, ok := legacyMapping[f]
	return k, ok
}

func (l LegacyBreakdown) get(key string) float64 {
	switch key {
	case LegacyCommonTopics:
		return l.CommonTopics
	case LegacyCommunicationStyle:
		return l.CommunicationStyle
	case LegacyEmotionalSync:
		return l.EmotionalSync
	case LegacyActivityOverlap:
		return l.ActivityOverlap
	case LegacyProfileMatch:
		return l.ProfileMatch
	}
	return Neutral
}

func (l *LegacyBreakdown) set(key string, v float64) {
	switch key {
	case LegacyCommonTopics:
		l.CommonTopics = v
	case LegacyCommunicationStyle:
		l.CommunicationStyle = v
	case LegacyEmotionalSync:
		l.EmotionalSync = v
	case LegacyActivityOverlap:
		l.ActivityOverlap = v
	case LegacyProfileMatch:
		l.ProfileMatch = v
	}
}

// Overall is the weighted sum of the five legacy factors.
func (l LegacyBreakdown) Overall(w Weights) float64 {
	return l.CommonTopics*w.CommonTopics +
		l.CommunicationStyle*w.CommunicationStyle +
		l.EmotionalSync*w.EmotionalSync +
		l.ActivityOverlap*w.ActivityOverlap +
		l.ProfileMatch*w.ProfileMatch
}

// FromLegacy converts the five-factor vocabulary into a Breakdown.
func FromLegacy(l LegacyBreakdown, w Weights) Breakdown {
	var b Breakdown
	for f, key := range legacyMapping {
		b.Set(f, clampScore(l.get(key)))
	}
	b.ResourceComplement = clampScore(l.Overall(w))
	return b
}

// ToLegacy is the inverse of FromLegacy on the five shared factors.
// ResourceComplement is dropped.
func ToLegacy(b Breakdown) LegacyBreakdown {
	var l LegacyBreakdown
	for f, key := range legacyMapping {
		l.set(key, b.Get(f))
	}
	return l
}
