package tasks

import (
	"context"

	"github.com/lysyi3m/feed-normalizer/app/feed"
	"github.com/lysyi3m/feed-normalizer/app/fetch"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application and the API to manage background normalization.
// Example usage:
//
//	scheduler := NewScheduler(configCache, feedRepo, fetcher, normalizer, interval, workerCount)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueSource("example")
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	EnqueueSource(sourceName string) error
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Result, error)
	FetchPage(ctx context.Context, url string) (*fetch.Result, error)
}

type Normalizer interface {
	Run(ctx context.Context, raw []byte) (*feed.Feed, error)
}
