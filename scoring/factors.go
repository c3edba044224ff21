package scoring

import (
	"math"
	"strings"
)

// TopicSimilarity compares the combined interests and skills of a and b as
// 2|A∩B|/(|A|+|B|), scaled to 100. It is symmetric.
func (s *Scorer) TopicSimilarity(a, b *Profile) float64 {
	setA, setB := a.topicSet(), b.topicSet()
	if len(setA) == 0 || len(setB) == 0 {
		return Neutral
	}

	common := 0
	for k := range setA {
		if _, ok := setB[k]; ok {
			common++
		}
	}
	return math.Min(100, 2*float64(common)/float64(len(setA)+len(setB))*100)
}

// Communication starts from the base score and adds the industry bonus and
// either the location or the region bonus.
func (s *Scorer) Communication(a, b *Profile) float64 {
	var indA, indB, locA, locB string
	if a != nil {
		indA, locA = strings.TrimSpace(a.Industry), strings.TrimSpace(a.Location)
	}
	if b != nil {
		indB, locB = strings.TrimSpace(b.Industry), strings.TrimSpace(b.Location)
	}

	industryComparable := indA != "" && indB != ""
	locationComparable := locA != "" && locB != ""
	if !industryComparable && !locationComparable {
		return Neutral
	}

	c := s.tuning.Communication
	score := c.Base
	if industryComparable && indA == indB {
		score += c.IndustryBonus
	}
	if locationComparable {
		switch {
		case locA == locB:
			score += c.LocationBonus
		case s.sameRegion(locA, locB):
			score += c.RegionBonus
		}
	}
	return math.Min(score, 100)
}

func (s *Scorer) sameRegion(a, b string) bool {
	for _, r := range s.tuning.Regions {
		if containsAny(a, r.Members) && containsAny(b, r.Members) {
			return true
		}
	}
	return false
}

// Personality compares how complete the two profiles are.
func (s *Scorer) Personality(a, b *Profile) float64 {
	ca, cb := a.Completeness(), b.Completeness()
	if ca == 0 || cb == 0 {
		return Neutral
	}
	return math.Max(0, 100-math.Abs(ca-cb))
}

// Schedule compares the hour of day of the last activity of a and b in the
// scorer's time zone.
func (s *Scorer) Schedule(a, b *Profile) float64 {
	if a == nil || b == nil || a.LastActiveAt == nil || b.LastActiveAt == nil {
		return Neutral
	}
	ha := a.LastActiveAt.In(s.loc).Hour()
	hb := b.LastActiveAt.In(s.loc).Hour()
	diff := math.Abs(float64(ha - hb))
	return math.Max(0, 100-s.tuning.SchedulePenaltyPerHour*diff)
}

// BasicProfileMatch averages the seniority, company scale and challenge
// relevance checks that apply to the pair.
func (s *Scorer) BasicProfileMatch(viewer, candidate *Profile) float64 {
	if viewer == nil || candidate == nil {
		return Neutral
	}

	total, checks := 0.0, 0
	if !blank(viewer.Title) && !blank(candidate.Title) {
		checks++
		if s.titlesCompatible(viewer.Title, candidate.Title) {
			total += 100
		}
	}
	if !blank(viewer.Company) && !blank(candidate.Company) {
		checks++
		if s.companiesCompatible(viewer.Company, candidate.Company) {
			total += 100
		}
	}
	challenges, skills := nonEmpty(viewer.BusinessChallenges), nonEmpty(candidate.Skills)
	if len(challenges) > 0 && len(skills) > 0 {
		checks++
		total += s.challengeRelevance(challenges, skills)
	}

	if checks == 0 {
		return Neutral
	}
	return total / float64(checks)
}

// titlesCompatible is true when both titles are executive, both are manager,
// or neither is either.
func (s *Scorer) titlesCompatible(a, b string) bool {
	t := s.tuning.Titles
	execA, execB := containsAny(a, t.Executive), containsAny(b, t.Executive)
	mgrA, mgrB := containsAny(a, t.Manager), containsAny(b, t.Manager)
	return (execA && execB) || (mgrA && mgrB) || (!execA && !mgrA && !execB && !mgrB)
}

func (s *Scorer) companiesCompatible(a, b string) bool {
	c := s.tuning.Companies
	return containsAny(a, c.Large) == containsAny(b, c.Large) ||
		containsAny(a, c.Startup) == containsAny(b, c.Startup)
}

// challengeRelevance gives every challenge an equal share of 100 and awards the
// share when a skill mentions one of the challenge's related keywords.
func (s *Scorer) challengeRelevance(challenges, skills []string) float64 {
	share := 100 / float64(len(challenges))
	score := 0.0
	for _, challenge := range challenges {
		related := s.relatedSkills(challenge)
		for _, skill := range skills {
			if containsAny(skill, related) {
				score += share
				break
			}
		}
	}
	return math.Min(score, 100)
}

func (s *Scorer) relatedSkills(challenge string) []string {
	for _, cs := range s.tuning.ChallengeSkills {
		if challenge == cs.Challenge {
			return cs.Skills
		}
	}
	return nil
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
