package database

import (
	"time"

	"github.com/lysyi3m/feed-normalizer/app/feed"
)

type FeedRepository interface {
	GetFeed(id string) (*Feed, error)
	GetFeedBySource(source string) (*Feed, error)
	GetNextFetchAt(source string) (*time.Time, error)
	ListFeeds() ([]Feed, error)
	GetFeedCount() (int, error)

	SaveFeed(source string, normalized *feed.Feed, nextFetchAt time.Time) (string, error)
}
