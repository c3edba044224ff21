package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"gitea.kood.tech/petrkubec/match-me/matchradar/logger"
	"gitea.kood.tech/petrkubec/match-me/matchradar/scoring"
	"gitea.kood.tech/petrkubec/match-me/matchradar/store"
)

type seedOptions struct {
	Count       int
	Seed        int64
	Truncate    bool
	DismissRate float64
}

func (o seedOptions) validate() error {
	if o.Count < 1 {
		return fmt.Errorf("--count must be at least 1")
	}
	if o.DismissRate < 0 || o.DismissRate > 1 {
		return fmt.Errorf("--dismiss-rate must be in range 0..1")
	}
	return nil
}

// staticProfiles are always the first two members so local logins are stable.
var staticProfiles = []scoring.Profile{
	{
		Name:               "山田 太郎",
		Title:              "CEO",
		Company:            "株式会社テストワン",
		Bio:                "製造業のDXを進めています。AIと自動化で現場を変えたい。",
		Skills:             []string{"AI", "システム開発", "事業開発"},
		Interests:          []string{"DX", "AI", "製造業"},
		BusinessChallenges: []string{"売上向上", "人材育成"},
		Location:           "東京都渋谷区",
		Industry:           "IT",
	},
	{
		Name:               "佐藤 花子",
		Title:              "マーケティング部長",
		Company:            "テストツー Inc",
		Bio:                "BtoBマーケティングと営業組織づくりが専門です。",
		Skills:             []string{"マーケティング", "営業", "コーチング"},
		Interests:          []string{"AI", "マーケティング", "DX"},
		BusinessChallenges: []string{"業務効率化"},
		Location:           "神奈川県横浜市",
		Industry:           "IT",
	},
}

var (
	seedFamilyNames = []string{"佐藤", "鈴木", "高橋", "田中", "伊藤", "渡辺", "山本", "中村", "小林", "加藤"}
	seedGivenNames  = []string{"翔太", "美咲", "大輔", "結衣", "健", "彩", "拓海", "陽菜", "誠", "葵"}
	seedTitles      = []string{"CEO", "代表取締役", "CTO", "部長", "課長", "マネージャー", "ディレクター", "エンジニア", "デザイナー", "コンサルタント", ""}
	seedCompanies   = []string{"株式会社サクラ", "ミライ Corp", "スタートアップラボ", "ベンチャーワークス", "ヤマト Inc", "個人事業", ""}
	seedSkills      = []string{"マーケティング", "営業", "セールス", "自動化", "AI", "システム開発", "研修", "コーチング", "マネジメント", "事業開発", "戦略", "イノベーション", "デザイン", "財務"}
	seedInterests   = []string{"DX", "AI", "サステナビリティ", "製造業", "SaaS", "地方創生", "ヘルスケア", "教育", "フィンテック", "マーケティング"}
	seedChallenges  = []string{"売上向上", "業務効率化", "人材育成", "新規事業", "資金調達"}
	seedLocations   = []string{"東京都千代田区", "東京都渋谷区", "神奈川県横浜市", "埼玉県さいたま市", "千葉県千葉市", "大阪府大阪市", "京都府京都市", "兵庫県神戸市", "愛知県名古屋市", "静岡県浜松市", "福岡県福岡市", "北海道札幌市"}
	seedIndustries  = []string{"IT", "製造", "金融", "小売", "医療", "教育", "不動産"}
)

// generateProfiles builds a deterministic population for a seed. IDs come from
// the same RNG so re-running with the same seed upserts the same rows.
func generateProfiles(r *rand.Rand, n int, now time.Time) ([]*scoring.Profile, error) {
	out := make([]*scoring.Profile, 0, n)
	for i := 0; i < n; i++ {
		id, err := uuid.NewRandomFromReader(r)
		if err != nil {
			return nil, fmt.Errorf("generate id: %w", err)
		}

		var p scoring.Profile
		if i < len(staticProfiles) {
			p = staticProfiles[i]
			p.Skills = append([]string(nil), p.Skills...)
			p.Interests = append([]string(nil), p.Interests...)
			p.BusinessChallenges = append([]string(nil), p.BusinessChallenges...)
		} else {
			p = randomProfile(r)
		}
		p.ID = id.String()

		// within the last two weeks, at a random hour
		lastActive := now.Add(-time.Duration(r.Intn(14*24)) * time.Hour)
		created := lastActive.Add(-time.Duration(1+r.Intn(365)) * 24 * time.Hour)
		if i < len(staticProfiles) {
			lastActive = now
		}
		p.LastActiveAt = &lastActive
		p.CreatedAt = &created

		out = append(out, &p)
	}
	return out, nil
}

func randomProfile(r *rand.Rand) scoring.Profile {
	p := scoring.Profile{
		Name:     pick(r, seedFamilyNames) + " " + pick(r, seedGivenNames),
		Title:    pick(r, seedTitles),
		Company:  pick(r, seedCompanies),
		Location: pick(r, seedLocations),
		Industry: pick(r, seedIndustries),
	}
	p.Skills = pickSome(r, seedSkills, 1+r.Intn(4))
	p.Interests = pickSome(r, seedInterests, r.Intn(4))
	p.BusinessChallenges = pickSome(r, seedChallenges, r.Intn(3))
	if r.Float64() < 0.7 {
		p.Bio = fmt.Sprintf("%sの分野で%sに取り組んでいます。", p.Industry, pick(r, seedInterests))
	}
	if r.Float64() < 0.5 {
		p.AvatarURL = fmt.Sprintf("/avatars/%d.png", r.Intn(1000))
	}
	return p
}

func pick(r *rand.Rand, opts []string) string {
	return opts[r.Intn(len(opts))]
}

// pickSome returns up to n distinct entries in a random order.
func pickSome(r *rand.Rand, opts []string, n int) []string {
	if n > len(opts) {
		n = len(opts)
	}
	out := make([]string, 0, n)
	for _, i := range r.Perm(len(opts))[:n] {
		out = append(out, opts[i])
	}
	return out
}

// seedProfiles writes a generated population. Each member dismisses one
// random other member with probability DismissRate.
func seedProfiles(ctx context.Context, st *store.SQLStore, opts seedOptions, now time.Time, log logger.Logger) (int, error) {
	if err := opts.validate(); err != nil {
		return 0, err
	}
	r := rand.New(rand.NewSource(opts.Seed))

	if opts.Truncate {
		if err := st.Truncate(ctx); err != nil {
			return 0, fmt.Errorf("truncate: %w", err)
		}
		log.Info("Truncated profiles and dismissed_matches", nil)
	}

	profiles, err := generateProfiles(r, opts.Count, now)
	if err != nil {
		return 0, err
	}
	for _, p := range profiles {
		if err := st.InsertProfile(ctx, p); err != nil {
			return 0, fmt.Errorf("insert profile %s: %w", p.ID, err)
		}
	}
	log.Info("Inserted profiles", map[string]interface{}{"count": len(profiles)})

	dismissed := 0
	if len(profiles) > 1 {
		for i, viewer := range profiles {
			if r.Float64() >= opts.DismissRate {
				continue
			}
			j := r.Intn(len(profiles) - 1)
			if j >= i {
				j++
			}
			if err := st.Dismiss(ctx, viewer.ID, profiles[j].ID); err != nil {
				return 0, fmt.Errorf("dismiss %s -> %s: %w", viewer.ID, profiles[j].ID, err)
			}
			dismissed++
		}
	}
	log.Info("Inserted dismissed matches", map[string]interface{}{"count": dismissed})
	return len(profiles), nil
}
