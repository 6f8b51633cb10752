package state

import (
	"context"

	"github.com/strps/Trackbit-sub000/internal/tracker"
)

// Query identities of the caches the client keeps.
const (
	HistoryKey = "habit-logs"
	CatalogKey = "exercises"
)

// NewHistoryCache builds the history cache, refetched through api. A nil api
// yields a cache without a fetcher.
func NewHistoryCache(api tracker.API) *Cache[tracker.History] {
	var opts []Option[tracker.History]
	if api != nil {
		opts = append(opts, WithFetcher(func(ctx context.Context) (tracker.History, error) {
			habits, err := api.FetchHistory(ctx)
			if err != nil {
				return nil, err
			}
			return tracker.NewHistory(habits), nil
		}))
	}
	return New(HistoryKey, tracker.History.Clone, opts...)
}

// NewCatalogCache builds the exercise catalog cache, refetched through api.
func NewCatalogCache(api tracker.API) *Cache[tracker.Catalog] {
	var opts []Option[tracker.Catalog]
	if api != nil {
		opts = append(opts, WithFetcher(func(ctx context.Context) (tracker.Catalog, error) {
			exercises, err := api.FetchExercises(ctx)
			if err != nil {
				return nil, err
			}
			return tracker.Catalog(exercises), nil
		}))
	}
	return New(CatalogKey, tracker.Catalog.Clone, opts...)
}
