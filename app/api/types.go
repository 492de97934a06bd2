package api

import (
	"context"

	"github.com/lysyi3m/feed-normalizer/app/database"
	"github.com/lysyi3m/feed-normalizer/app/feed"
	"github.com/lysyi3m/feed-normalizer/app/fetch"
	"github.com/lysyi3m/feed-normalizer/app/sources"
	"github.com/lysyi3m/feed-normalizer/app/tasks"
	"github.com/patrickmn/go-cache"
)

type NormalizerInterface interface {
	Run(ctx context.Context, raw []byte) (*feed.Feed, error)
	Adapters() []feed.Adapter
}

type FetcherInterface interface {
	Fetch(ctx context.Context, url string) (*fetch.Result, error)
}

var (
	_ NormalizerInterface = (*feed.Normalizer)(nil)
	_ FetcherInterface    = (*fetch.Fetcher)(nil)
)

type Handler struct {
	normalizer  NormalizerInterface
	fetcher     FetcherInterface
	feedRepo    database.FeedRepository
	configCache *sources.ConfigCache
	scheduler   tasks.TaskSchedulerInterface
	generator   *feed.Generator
	results     *cache.Cache // nil when caching is disabled
	maxBodySize int64
	version     string
}

type parserInfo struct {
	Name     string `json:"name"`
	Priority int    `json:"priority"`
}
