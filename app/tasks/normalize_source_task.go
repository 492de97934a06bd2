package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/feed-normalizer/app/database"
	"github.com/lysyi3m/feed-normalizer/app/feed"
	"github.com/lysyi3m/feed-normalizer/app/sources"
)

// maxExtractionsPerRun bounds the number of entry pages downloaded per task run.
const maxExtractionsPerRun = 20

type NormalizeSourceTask struct {
	Task
	SourceConfig *sources.Config
	fetcher      Fetcher
	normalizer   Normalizer
	filterer     *sources.Filterer
	extractor    *feed.ContentExtractor
	feedRepo     database.FeedRepository
}

func NewNormalizeSourceTask(sourceName string, sourceConfig *sources.Config, fetcher Fetcher, normalizer Normalizer, filterer *sources.Filterer, extractor *feed.ContentExtractor, feedRepo database.FeedRepository) *NormalizeSourceTask {
	return &NormalizeSourceTask{
		Task:         NewTask(TaskTypeNormalizeSource, sourceName),
		SourceConfig: sourceConfig,
		fetcher:      fetcher,
		normalizer:   normalizer,
		filterer:     filterer,
		extractor:    extractor,
		feedRepo:     feedRepo,
	}
}

func (t *NormalizeSourceTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.SourceConfig.Settings.Enabled {
		slog.Debug("Source disabled, skipping", "source", t.SourceName)
		return nil
	}

	data, err := t.fetchSource(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch source: %w", err)
	}

	normalized, err := t.normalizer.Run(ctx, data)
	if err != nil {
		return fmt.Errorf("failed to normalize feed: %w", err)
	}

	total := len(normalized.Entries)
	filteredCount := 0
	if t.filterer != nil {
		normalized.Entries, filteredCount = t.filterer.Run(normalized.Entries, t.SourceConfig)
	}

	extracted := 0
	if t.SourceConfig.Settings.ExtractContent && t.extractor != nil {
		extracted = t.extractMissingContent(ctx, normalized.Entries)
	}

	nextFetch := time.Now().UTC().Add(time.Duration(t.SourceConfig.Settings.RefreshInterval) * time.Second)

	feedID, err := t.feedRepo.SaveFeed(t.SourceName, normalized, nextFetch)
	if err != nil {
		return fmt.Errorf("failed to store feed: %w", err)
	}

	slog.Info("Task completed",
		"type", "NormalizeSource",
		"source", t.SourceName,
		"feed_id", feedID,
		"parser", normalized.Parser,
		"total", total,
		"filtered", filteredCount,
		"entries", len(normalized.Entries),
		"extracted", extracted,
		"duration", t.GetDuration())

	return nil
}

func (t *NormalizeSourceTask) fetchSource(ctx context.Context) ([]byte, error) {
	if t.SourceConfig.Settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(t.SourceConfig.Settings.Timeout)*time.Second)
		defer cancel()
	}

	result, err := t.fetcher.Fetch(ctx, t.SourceConfig.URL)
	if err != nil {
		return nil, err
	}

	if result.Discovered {
		slog.Debug("Source URL resolved through autodiscovery", "source", t.SourceName, "feed_url", result.URL)
	}

	return result.Body, nil
}

// extractMissingContent downloads the first link of entries without content
// and fills Content.Body with the readable part of the page. Failures are
// logged and leave the entry unchanged.
func (t *NormalizeSourceTask) extractMissingContent(ctx context.Context, entries []feed.Entry) int {
	attempts := 0
	extracted := 0

	for i := range entries {
		entry := &entries[i]
		if entry.Content.Body != "" || len(entry.URLs) == 0 {
			continue
		}
		if attempts >= maxExtractionsPerRun || ctx.Err() != nil {
			break
		}
		attempts++

		content, err := t.extractEntry(ctx, entry.URLs[0])
		if err != nil {
			slog.Warn("Content extraction failed", "source", t.SourceName, "url", entry.URLs[0], "error", err)
			continue
		}

		entry.Content.Body = content
		extracted++
	}

	return extracted
}

func (t *NormalizeSourceTask) extractEntry(ctx context.Context, pageURL string) (string, error) {
	if t.SourceConfig.Settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(t.SourceConfig.Settings.Timeout)*time.Second)
		defer cancel()
	}

	page, err := t.fetcher.FetchPage(ctx, pageURL)
	if err != nil {
		return "", err
	}

	return t.extractor.Run(page.Body, page.URL)
}
