package scoring

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// ErrInvalidTuning is returned when a tuning document fails to parse or validate.
var ErrInvalidTuning = errors.New("invalid scoring tuning")

//go:embed tuning.schema.json
var tuningSchema []byte

// Weights are the factor weights of the overall score. They sum to 1.
type Weights struct {
	CommonTopics       float64 `yaml:"common_topics" json:"common_topics"`
	CommunicationStyle float64 `yaml:"communication_style" json:"communication_style"`
	EmotionalSync      float64 `yaml:"emotional_sync" json:"emotional_sync"`
	ActivityOverlap    float64 `yaml:"activity_overlap" json:"activity_overlap"`
	ProfileMatch       float64 `yaml:"profile_match" json:"profile_match"`
}

// Sum returns the total weight.
func (w Weights) Sum() float64 {
	return w.CommonTopics + w.CommunicationStyle + w.EmotionalSync + w.ActivityOverlap + w.ProfileMatch
}

type CommunicationTuning struct {
	Base          float64 `yaml:"base" json:"base"`
	IndustryBonus float64 `yaml:"industry_bonus" json:"industry_bonus"`
	LocationBonus float64 `yaml:"location_bonus" json:"location_bonus"`
	RegionBonus   float64 `yaml:"region_bonus" json:"region_bonus"`
}

// Region groups locations that count as near each other. A location belongs to
// the region if it contains any member.
type Region struct {
	Name    string   `yaml:"name" json:"name"`
	Members []string `yaml:"members" json:"members"`
}

type TitleTuning struct {
	Executive []string `yaml:"executive" json:"executive"`
	Manager   []string `yaml:"manager" json:"manager"`
}

type CompanyTuning struct {
	Large   []string `yaml:"large" json:"large"`
	Startup []string `yaml:"startup" json:"startup"`
}

// ChallengeSkills relates a business challenge keyword to skills that help with it.
type ChallengeSkills struct {
	Challenge string   `yaml:"challenge" json:"challenge"`
	Skills    []string `yaml:"skills" json:"skills"`
}

type Thresholds struct {
	Excellent float64 `yaml:"excellent" json:"excellent"`
	Good      float64 `yaml:"good" json:"good"`
	Potential float64 `yaml:"potential" json:"potential"`
}

// Tuning holds every heuristic constant of the scorer.
type Tuning struct {
	Version                string              `yaml:"version" json:"version"`
	Weights                Weights             `yaml:"weights" json:"weights"`
	Communication          CommunicationTuning `yaml:"communication" json:"communication"`
	SchedulePenaltyPerHour float64             `yaml:"schedule_penalty_per_hour" json:"schedule_penalty_per_hour"`
	Regions                []Region            `yaml:"regions" json:"regions"`
	Titles                 TitleTuning         `yaml:"titles" json:"titles"`
	Companies              CompanyTuning       `yaml:"companies" json:"companies"`
	ChallengeSkills        []ChallengeSkills   `yaml:"challenge_skills" json:"challenge_skills"`
	Thresholds             Thresholds          `yaml:"thresholds" json:"thresholds"`
}

// DefaultTuning returns the built-in constants.
func DefaultTuning() Tuning {
	return Tuning{
		Version: "2024.1-default",
		Weights: Weights{
			CommonTopics:       0.30,
			CommunicationStyle: 0.20,
			EmotionalSync:      0.20,
			ActivityOverlap:    0.15,
			ProfileMatch:       0.15,
		},
		Communication: CommunicationTuning{
			Base:          70,
			IndustryBonus: 15,
			LocationBonus: 15,
			RegionBonus:   8,
		},
		SchedulePenaltyPerHour: 4,
		Regions: []Region{
			{Name: "関東", Members: []string{"東京", "神奈川", "埼玉", "千葉"}},
			{Name: "関西", Members: []string{"大阪", "京都", "兵庫", "奈良"}},
			{Name: "中部", Members: []string{"愛知", "岐阜", "静岡", "三重"}},
		},
		Titles: TitleTuning{
			Executive: []string{"CEO", "代表", "社長", "役員", "CTO", "CFO", "COO"},
			Manager:   []string{"マネージャー", "部長", "課長", "リーダー", "ディレクター"},
		},
		Companies: CompanyTuning{
			Large:   []string{"株式会社", "Inc", "Corp"},
			Startup: []string{"スタートアップ", "ベンチャー"},
		},
		ChallengeSkills: []ChallengeSkills{
			{Challenge: "売上向上", Skills: []string{"マーケティング", "営業", "セールス"}},
			{Challenge: "業務効率化", Skills: []string{"自動化", "AI", "システム開発"}},
			{Challenge: "人材育成", Skills: []string{"研修", "コーチング", "マネジメント"}},
			{Challenge: "新規事業", Skills: []string{"事業開発", "戦略", "イノベーション"}},
		},
		Thresholds: Thresholds{Excellent: 80, Good: 60, Potential: 40},
	}
}

// LoadTuning reads a YAML tuning document. Fields absent from the document keep
// their default values. An empty path returns the defaults.
func LoadTuning(path string) (Tuning, error) {
	if path == "" {
		return DefaultTuning(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Tuning{}, fmt.Errorf("read tuning %s: %w", path, err)
	}
	return ParseTuning(data)
}

// ParseTuning validates a YAML tuning document and overlays it on the defaults.
func ParseTuning(data []byte) (Tuning, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Tuning{}, fmt.Errorf("%w: %v", ErrInvalidTuning, err)
	}
	if err := validateTuningDoc(doc); err != nil {
		return Tuning{}, err
	}

	t := DefaultTuning()
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Tuning{}, fmt.Errorf("%w: %v", ErrInvalidTuning, err)
	}
	if err := t.Validate(); err != nil {
		return Tuning{}, err
	}
	return t, nil
}

func validateTuningDoc(doc map[string]interface{}) error {
	var schemaMap map[string]interface{}
	if err := json.Unmarshal(tuningSchema, &schemaMap); err != nil {
		return fmt.Errorf("tuning schema: %w", err)
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schemaMap), gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTuning, err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("%w: %s", ErrInvalidTuning, strings.Join(errs, "; "))
	}
	return nil
}

// Validate checks the constraints the schema cannot express.
func (t Tuning) Validate() error {
	if t.Version == "" {
		return fmt.Errorf("%w: version is required", ErrInvalidTuning)
	}
	if sum := t.Weights.Sum(); math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("%w: weights sum to %g, want 1", ErrInvalidTuning, sum)
	}
	th := t.Thresholds
	if !(th.Excellent >= th.Good && th.Good >= th.Potential) {
		return fmt.Errorf("%w: thresholds must be descending", ErrInvalidTuning)
	}
	return nil
}
