package scoring

import (
	"strings"
	"time"
)

// Profile is the read-only member record the scorer compares. Every field is
// optional; a nil *Profile behaves like an empty one.
type Profile struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name,omitempty"`
	Title              string     `json:"title,omitempty"`
	Company            string     `json:"company,omitempty"`
	Bio                string     `json:"bio,omitempty"`
	Skills             []string   `json:"skills,omitempty"`
	Interests          []string   `json:"interests,omitempty"`
	BusinessChallenges []string   `json:"business_challenges,omitempty"`
	Location           string     `json:"location,omitempty"`
	Industry           string     `json:"industry,omitempty"`
	AvatarURL          string     `json:"avatar_url,omitempty"`
	LastActiveAt       *time.Time `json:"last_active_at,omitempty"`
	CreatedAt          *time.Time `json:"created_at,omitempty"`
}

// completenessFields is the checklist behind Completeness.
var completenessFields = []func(p *Profile) bool{
	func(p *Profile) bool { return blank(p.Name) },
	func(p *Profile) bool { return blank(p.Title) },
	func(p *Profile) bool { return blank(p.Company) },
	func(p *Profile) bool { return blank(p.Bio) },
	func(p *Profile) bool { return len(nonEmpty(p.Skills)) == 0 },
	func(p *Profile) bool { return len(nonEmpty(p.Interests)) == 0 },
	func(p *Profile) bool { return blank(p.AvatarURL) },
	func(p *Profile) bool { return blank(p.Location) },
	func(p *Profile) bool { return blank(p.Industry) },
}

// Completeness returns the percentage (0-100) of checklist fields that are filled.
func (p *Profile) Completeness() float64 {
	if p == nil {
		return 0
	}
	filled := 0
	for _, isBlank := range completenessFields {
		if !isBlank(p) {
			filled++
		}
	}
	return float64(filled) / float64(len(completenessFields)) * 100
}

// topicSet is the case-folded union of interests and skills.
func (p *Profile) topicSet() map[string]struct{} {
	set := make(map[string]struct{})
	if p == nil {
		return set
	}
	for _, list := range [][]string{p.Interests, p.Skills} {
		for _, s := range nonEmpty(list) {
			set[strings.ToLower(s)] = struct{}{}
		}
	}
	return set
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func nonEmpty(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
