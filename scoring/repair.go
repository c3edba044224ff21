package scoring

import (
	"encoding/json"
	"fmt"
	"math"
)

// IssueKind classifies what Repair had to fix.
type IssueKind string

const (
	IssueFormatConversion IssueKind = "format_conversion"
	IssueMissingValue     IssueKind = "missing_value"
	IssueInvalidType      IssueKind = "invalid_type"
	IssueOutOfRange       IssueKind = "out_of_range"
	IssueUnknownFormat    IssueKind = "unknown_format"
)

// Issue is one recoverable problem found in a breakdown-shaped value.
type Issue struct {
	Kind    IssueKind `json:"type"`
	Field   string    `json:"field,omitempty"`
	Message string    `json:"message,omitempty"`
}

var legacyKeys = []string{
	LegacyCommonTopics,
	LegacyCommunicationStyle,
	LegacyEmotionalSync,
	LegacyActivityOverlap,
	LegacyProfileMatch,
}

// Repair turns an arbitrary breakdown-shaped object into a valid Breakdown
// using the default weights. See RepairWith.
func Repair(raw map[string]any) (Breakdown, []Issue) {
	return RepairWith(raw, DefaultTuning().Weights)
}

// RepairWith validates raw against the current six-factor vocabulary. If no
// current key is present but legacy keys are, the legacy values are converted
// with FromLegacy. Anything else yields the neutral breakdown. Missing and
// non-numeric values become Neutral and numbers are clamped into [0,100].
// The result is never rounded, so repairing a valid breakdown is a no-op.
func RepairWith(raw map[string]any, w Weights) (Breakdown, []Issue) {
	var issues []Issue

	switch {
	case hasAny(raw, factorKeys()):
		var b Breakdown
		for _, f := range Factors {
			v, issue := coerce(raw, string(f))
			if issue != nil {
				issues = append(issues, *issue)
			}
			b.Set(f, v)
		}
		return b, issues

	case hasAny(raw, legacyKeys):
		var l LegacyBreakdown
		for _, key := range legacyKeys {
			v, issue := coerce(raw, key)
			if issue != nil {
				issues = append(issues, *issue)
			}
			l.set(key, v)
		}
		issues = append(issues, Issue{
			Kind:    IssueFormatConversion,
			Message: "converted legacy five-factor breakdown",
		})
		return FromLegacy(l, w), issues
	}

	return NeutralBreakdown(), []Issue{{
		Kind:    IssueUnknownFormat,
		Message: "no known breakdown keys, neutral breakdown applied",
	}}
}

func factorKeys() []string {
	keys := make([]string, len(Factors))
	for i, f := range Factors {
		keys[i] = string(f)
	}
	return keys
}

func hasAny(raw map[string]any, keys []string) bool {
	for _, k := range keys {
		if _, ok := raw[k]; ok {
			return true
		}
	}
	return false
}

// coerce reads raw[key] as a score.
func coerce(raw map[string]any, key string) (float64, *Issue) {
	v, ok := raw[key]
	if !ok || v == nil {
		return Neutral, &Issue{Kind: IssueMissingValue, Field: key, Message: "default applied"}
	}

	n, ok := toFloat(v)
	if !ok {
		return Neutral, &Issue{
			Kind:    IssueInvalidType,
			Field:   key,
			Message: fmt.Sprintf("expected number, got %T", v),
		}
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return Neutral, &Issue{Kind: IssueInvalidType, Field: key, Message: "non-finite number"}
	}
	if n < 0 || n > 100 {
		return clampScore(n), &Issue{
			Kind:    IssueOutOfRange,
			Field:   key,
			Message: fmt.Sprintf("%g clamped into [0,100]", n),
		}
	}
	return n, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// Map returns b keyed by factor name, the inverse of Repair's input shape.
func (b Breakdown) Map() map[string]any {
	out := make(map[string]any, len(Factors))
	for _, f := range Factors {
		out[string(f)] = b.Get(f)
	}
	return out
}

// Clamp is Validate as a method.
func (b Breakdown) Clamp() Breakdown {
	return Validate(b)
}
