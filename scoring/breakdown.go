package scoring

import "math"

// Neutral is the fallback factor value wherever data is missing.
const Neutral = 50.0

// Factor names one axis of the compatibility breakdown.
type Factor string

const (
	BusinessSynergy    Factor = "businessSynergy"
	SolutionMatch      Factor = "solutionMatch"
	BusinessTrends     Factor = "businessTrends"
	GrowthPhaseMatch   Factor = "growthPhaseMatch"
	UrgencyAlignment   Factor = "urgencyAlignment"
	ResourceComplement Factor = "resourceComplement"
)

// Factors lists the six axes in chart order, clockwise from the top.
var Factors = [6]Factor{
	BusinessSynergy,
	SolutionMatch,
	BusinessTrends,
	GrowthPhaseMatch,
	UrgencyAlignment,
	ResourceComplement,
}

// Breakdown is the six-factor compatibility vector. Every value lies in [0,100].
type Breakdown struct {
	BusinessSynergy    float64 `json:"businessSynergy"`
	SolutionMatch      float64 `json:"solutionMatch"`
	BusinessTrends     float64 `json:"businessTrends"`
	GrowthPhaseMatch   float64 `json:"growthPhaseMatch"`
	UrgencyAlignment   float64 `json:"urgencyAlignment"`
	ResourceComplement float64 `json:"resourceComplement"`
}

// NeutralBreakdown returns a breakdown with every factor at Neutral.
func NeutralBreakdown() Breakdown {
	return Breakdown{Neutral, Neutral, Neutral, Neutral, Neutral, Neutral}
}

func (b *Breakdown) field(f Factor) *float64 {
	switch f {
	case BusinessSynergy:
		return &b.BusinessSynergy
	case SolutionMatch:
		return &b.SolutionMatch
	case BusinessTrends:
		return &b.BusinessTrends
	case GrowthPhaseMatch:
		return &b.GrowthPhaseMatch
	case UrgencyAlignment:
		return &b.UrgencyAlignment
	case ResourceComplement:
		return &b.ResourceComplement
	}
	return nil
}

// Get returns the value of f, or Neutral for an unknown factor.
func (b Breakdown) Get(f Factor) float64 {
	if p := b.field(f); p != nil {
		return *p
	}
	return Neutral
}

// Set assigns v to f. Unknown factors are ignored.
func (b *Breakdown) Set(f Factor, v float64) {
	if p := b.field(f); p != nil {
		*p = v
	}
}

// Values returns the factors in chart order.
func (b Breakdown) Values() [6]float64 {
	var out [6]float64
	for i, f := range Factors {
		out[i] = b.Get(f)
	}
	return out
}

// Validate clamps every factor into [0,100] and replaces non-finite values with
// Neutral. Validating a valid breakdown returns it unchanged.
func Validate(b Breakdown) Breakdown {
	out := b
	for _, f := range Factors {
		out.Set(f, clampScore(b.Get(f)))
	}
	return out
}

func clampScore(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Neutral
	}
	return math.Max(0, math.Min(100, v))
}
