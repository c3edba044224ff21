// Package resolve finds the breakdown to show for a (viewer, candidate) pair.
package resolve

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"gitea.kood.tech/petrkubec/match-me/matchradar/logger"
	"gitea.kood.tech/petrkubec/match-me/matchradar/scorecache"
	"gitea.kood.tech/petrkubec/match-me/matchradar/scoring"
	"gitea.kood.tech/petrkubec/match-me/matchradar/store"
)

// Source names the step of the chain that produced a breakdown.
type Source string

const (
	SourceExplicit Source = "explicit"
	SourceElement  Source = "element"
	SourceCache    Source = "cache"
	SourceComputed Source = "computed"
	SourceDefault  Source = "default"
)

// ProfileSource fetches profiles by id in one round trip. Unknown ids are
// absent from the result.
type ProfileSource interface {
	FetchProfiles(ctx context.Context, ids []string) (map[string]*scoring.Profile, error)
}

// Request describes one pair. Explicit is caller-supplied data of any shape;
// Element is data already attached to the rendered card.
type Request struct {
	Viewer    string
	Candidate string
	Explicit  map[string]any
	Element   *scoring.Breakdown
}

// Resolution is the outcome of Resolve. Result is set only for computed
// breakdowns.
type Resolution struct {
	Breakdown scoring.Breakdown `json:"breakdown"`
	Score     int               `json:"score"`
	Tier      scoring.Tier      `json:"tier"`
	Source    Source            `json:"source"`
	Issues    []scoring.Issue   `json:"issues,omitempty"`
	Result    *scoring.Result   `json:"result,omitempty"`
}

// MatchCard is one scored candidate of a list.
type MatchCard struct {
	Profile   *scoring.Profile  `json:"profile"`
	Score     int               `json:"score"`
	Tier      scoring.Tier      `json:"tier"`
	Breakdown scoring.Breakdown `json:"breakdown"`
	Source    Source            `json:"source"`
}

// Options tune a Resolver.
type Options struct {
	// Concurrency bounds how many candidates Cards scores at once.
	Concurrency int
	// OnResolve, if set, observes the source of every resolution.
	OnResolve func(Source)
}

// Resolver walks the fallback chain: explicit data, element data, the score
// cache, a fresh computation and finally the neutral breakdown. It never
// fails; backend and cache errors are logged and skipped.
type Resolver struct {
	profiles ProfileSource
	cache    scorecache.Store
	scorer   *scoring.Scorer
	opts     Options
	log      logger.Logger
	now      func() time.Time
}

// New builds a resolver. cache may be nil.
func New(profiles ProfileSource, cache scorecache.Store, scorer *scoring.Scorer, opts Options, log logger.Logger) *Resolver {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Resolver{
		profiles: profiles,
		cache:    cache,
		scorer:   scorer,
		opts:     opts,
		log:      log,
		now:      time.Now,
	}
}

// Resolve returns the breakdown for req.
func (r *Resolver) Resolve(ctx context.Context, req Request) Resolution {
	if req.Explicit != nil {
		b, issues := r.scorer.Repair(req.Explicit)
		res := r.fromBreakdown(b, SourceExplicit)
		res.Issues = issues
		return r.observe(res)
	}
	if req.Element != nil {
		return r.observe(r.fromBreakdown(scoring.Validate(*req.Element), SourceElement))
	}

	key := scorecache.Key{Viewer: req.Viewer, Candidate: req.Candidate}
	if res, ok := r.fromCache(ctx, key); ok {
		return r.observe(res)
	}

	viewer, candidate, err := r.fetchPair(ctx, req.Viewer, req.Candidate)
	if err != nil {
		return r.observe(r.neutral())
	}
	return r.observe(r.compute(ctx, key, viewer, candidate))
}

// Cards scores every candidate against viewer and sorts them by score, highest
// first, ties broken by candidate id. It only fails when ctx is done.
func (r *Resolver) Cards(ctx context.Context, viewer *scoring.Profile, candidates []*scoring.Profile) ([]MatchCard, error) {
	cards := make([]MatchCard, len(candidates))
	viewerID := ""
	if viewer != nil {
		viewerID = viewer.ID
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)
	for i, cand := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			key := scorecache.Key{Viewer: viewerID, Candidate: profileID(cand)}
			res, ok := r.fromCache(gctx, key)
			if !ok {
				res = r.compute(gctx, key, viewer, cand)
			}
			r.observe(res)
			cards[i] = MatchCard{
				Profile:   cand,
				Score:     res.Score,
				Tier:      res.Tier,
				Breakdown: res.Breakdown,
				Source:    res.Source,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(cards, func(i, j int) bool {
		if cards[i].Score != cards[j].Score {
			return cards[i].Score > cards[j].Score
		}
		return profileID(cards[i].Profile) < profileID(cards[j].Profile)
	})
	return cards, nil
}

// Invalidate drops the cached breakdown of a pair.
func (r *Resolver) Invalidate(ctx context.Context, viewer, candidate string) {
	if r.cache == nil {
		return
	}
	key := scorecache.Key{Viewer: viewer, Candidate: candidate}
	if err := r.cache.Delete(ctx, key); err != nil {
		r.log.Warn("Score cache delete failed", map[string]interface{}{"key": key.String(), "error": err})
	}
}

func (r *Resolver) fromCache(ctx context.Context, key scorecache.Key) (Resolution, bool) {
	if r.cache == nil {
		return Resolution{}, false
	}
	e, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		r.log.Warn("Score cache read failed", map[string]interface{}{"key": key.String(), "error": err})
		return Resolution{}, false
	}
	if !ok {
		return Resolution{}, false
	}
	return r.fromBreakdown(scoring.Validate(e.Breakdown), SourceCache), true
}

func (r *Resolver) compute(ctx context.Context, key scorecache.Key, viewer, candidate *scoring.Profile) Resolution {
	result := r.scorer.Score(viewer, candidate)
	if r.cache != nil {
		entry := scorecache.Entry{Breakdown: result.Breakdown, Score: result.Score, ComputedAt: r.now()}
		if err := r.cache.Put(ctx, key, entry); err != nil {
			r.log.Warn("Score cache write failed", map[string]interface{}{"key": key.String(), "error": err})
		}
	}
	return Resolution{
		Breakdown: result.Breakdown,
		Score:     result.Score,
		Tier:      result.Tier,
		Source:    SourceComputed,
		Result:    &result,
	}
}

// fetchPair loads both profiles of a pair with a single request.
func (r *Resolver) fetchPair(ctx context.Context, viewerID, candidateID string) (*scoring.Profile, *scoring.Profile, error) {
	if r.profiles == nil {
		return nil, nil, store.ErrNotFound
	}
	found, err := r.profiles.FetchProfiles(ctx, []string{viewerID, candidateID})
	if err != nil {
		r.log.Warn("Profile fetch failed, using neutral breakdown", map[string]interface{}{
			"viewer_id": viewerID, "candidate_id": candidateID, "error": err,
		})
		return nil, nil, err
	}
	for _, id := range []string{viewerID, candidateID} {
		if found[id] == nil {
			r.log.Info("Profile not found, using neutral breakdown", map[string]interface{}{"profile_id": id})
			return nil, nil, store.ErrNotFound
		}
	}
	return found[viewerID], found[candidateID], nil
}

func (r *Resolver) neutral() Resolution {
	return r.fromBreakdown(scoring.NeutralBreakdown(), SourceDefault)
}

func (r *Resolver) fromBreakdown(b scoring.Breakdown, src Source) Resolution {
	score := r.scorer.Overall(b)
	return Resolution{
		Breakdown: b,
		Score:     score,
		Tier:      r.scorer.TierFor(float64(score)),
		Source:    src,
	}
}

func (r *Resolver) observe(res Resolution) Resolution {
	if r.opts.OnResolve != nil {
		r.opts.OnResolve(res.Source)
	}
	return res
}

func profileID(p *scoring.Profile) string {
	if p == nil {
		return ""
	}
	return p.ID
}
