package database

import (
	"time"

	"github.com/lysyi3m/feed-normalizer/app/feed"
)

// Feed is a stored normalization result for one configured source.
type Feed struct {
	ID            string     `json:"id"` // Database UUID
	Source        string     `json:"source"`
	LastFetchedAt *time.Time `json:"last_fetched_at,omitempty"`
	NextFetchAt   *time.Time `json:"next_fetch_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"` // Tracks last successful normalization
	Feed          *feed.Feed `json:"feed"`       // Entries are only loaded by single-feed lookups
}
