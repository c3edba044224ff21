package main

import (
	"context"
	"errors"
	"time"

	"github.com/graph-gophers/dataloader/v7"

	"gitea.kood.tech/petrkubec/match-me/matchradar/scoring"
	"gitea.kood.tech/petrkubec/match-me/matchradar/store"
)

type profileLoader = dataloader.Loader[string, *scoring.Profile]

// profileBatcher is the batch query behind the loader.
type profileBatcher interface {
	FetchProfiles(ctx context.Context, ids []string) (map[string]*scoring.Profile, error)
}

// newProfileLoader batches profile lookups made within 16ms into one query.
func newProfileLoader(b profileBatcher) *profileLoader {
	return dataloader.NewBatchedLoader(profileBatchFn(b), dataloader.WithWait[string, *scoring.Profile](16*time.Millisecond))
}

// profileBatchFn creates a batch function for loading profiles
func profileBatchFn(b profileBatcher) dataloader.BatchFunc[string, *scoring.Profile] {
	return func(ctx context.Context, keys []string) []*dataloader.Result[*scoring.Profile] {
		results := make([]*dataloader.Result[*scoring.Profile], len(keys))

		found, err := b.FetchProfiles(ctx, keys)
		if err != nil {
			// Set error for all results
			for i := range results {
				results[i] = &dataloader.Result[*scoring.Profile]{Error: err}
			}
			return results
		}

		for i, key := range keys {
			if p, ok := found[key]; ok {
				results[i] = &dataloader.Result[*scoring.Profile]{Data: p}
			} else {
				results[i] = &dataloader.Result[*scoring.Profile]{Error: store.ErrNotFound}
			}
		}
		return results
	}
}

// profileSource serves the resolver: through the request's loader when there
// is one, straight from the store otherwise.
type profileSource struct {
	store *store.SQLStore
}

func (p profileSource) FetchProfile(ctx context.Context, id string) (*scoring.Profile, error) {
	if l := profileLoaderFromContext(ctx); l != nil {
		return l.Load(ctx, id)()
	}
	return p.store.FetchProfile(ctx, id)
}

// FetchProfiles queues every id on the loader before waiting, so they share
// one batch. Ids that are not found are left out of the result.
func (p profileSource) FetchProfiles(ctx context.Context, ids []string) (map[string]*scoring.Profile, error) {
	l := profileLoaderFromContext(ctx)
	if l == nil {
		return p.store.FetchProfiles(ctx, ids)
	}

	profiles, errs := l.LoadMany(ctx, ids)()
	out := make(map[string]*scoring.Profile, len(ids))
	for i, id := range ids {
		if i < len(errs) && errs[i] != nil {
			if errors.Is(errs[i], store.ErrNotFound) {
				continue
			}
			return nil, errs[i]
		}
		out[id] = profiles[i]
	}
	return out, nil
}
