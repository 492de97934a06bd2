package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lysyi3m/feed-normalizer/app/database"
	"github.com/lysyi3m/feed-normalizer/app/feed"
	"github.com/lysyi3m/feed-normalizer/app/fetch"
)

// MockFeedRepository implements a simple in-memory repository for testing
type MockFeedRepository struct {
	mu     sync.Mutex
	feeds  map[string]*database.Feed
	saved  []string
	err    error
	nextID int

	sourceLookups int
}

var _ database.FeedRepository = (*MockFeedRepository)(nil)

func NewMockFeedRepository() *MockFeedRepository {
	return &MockFeedRepository{feeds: make(map[string]*database.Feed)}
}

func (m *MockFeedRepository) GetFeed(id string) (*database.Feed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.feeds {
		if f.ID == id {
			return f, nil
		}
	}
	return nil, nil
}

func (m *MockFeedRepository) GetFeedBySource(source string) (*database.Feed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.sourceLookups++
	return m.feeds[source], nil
}

func (m *MockFeedRepository) GetNextFetchAt(source string) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if stored, ok := m.feeds[source]; ok {
		return stored.NextFetchAt, nil
	}
	return nil, nil
}

func (m *MockFeedRepository) SourceLookups() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sourceLookups
}

func (m *MockFeedRepository) ListFeeds() ([]database.Feed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	feeds := []database.Feed{}
	for _, f := range m.feeds {
		feeds = append(feeds, *f)
	}
	return feeds, nil
}

func (m *MockFeedRepository) GetFeedCount() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.feeds), nil
}

func (m *MockFeedRepository) SaveFeed(source string, normalized *feed.Feed, nextFetchAt time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}

	stored, ok := m.feeds[source]
	if !ok {
		m.nextID++
		stored = &database.Feed{ID: fmt.Sprintf("feed-%d", m.nextID), Source: source}
		m.feeds[source] = stored
	}
	stored.Feed = normalized
	stored.NextFetchAt = &nextFetchAt
	m.saved = append(m.saved, source)

	return stored.ID, nil
}

func (m *MockFeedRepository) Saved() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.saved...)
}

// MockFetcher serves canned bodies by URL
type MockFetcher struct {
	mu      sync.Mutex
	bodies  map[string]string
	err     error
	fetched []string
	calls   chan string
}

func (m *MockFetcher) Fetch(ctx context.Context, url string) (*fetch.Result, error) {
	m.mu.Lock()
	m.fetched = append(m.fetched, url)
	body, ok := m.bodies[url]
	err := m.err
	m.mu.Unlock()

	if m.calls != nil {
		m.calls <- url
	}

	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &fetch.StatusError{Code: 404, Status: "404 Not Found"}
	}
	return &fetch.Result{URL: url, Body: []byte(body)}, nil
}

func (m *MockFetcher) FetchPage(ctx context.Context, url string) (*fetch.Result, error) {
	return m.Fetch(ctx, url)
}

func (m *MockFetcher) Fetched() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.fetched...)
}
