package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/feed-normalizer/app/database"
	"github.com/lysyi3m/feed-normalizer/app/feed"
	"github.com/lysyi3m/feed-normalizer/app/fetch"
	"github.com/lysyi3m/feed-normalizer/app/sources"
	"github.com/lysyi3m/feed-normalizer/app/tasks"
	"github.com/patrickmn/go-cache"
)

func NewHandler(normalizer NormalizerInterface, fetcher FetcherInterface, configCache *sources.ConfigCache,
	feedRepo database.FeedRepository, scheduler tasks.TaskSchedulerInterface,
	cacheTTL time.Duration, maxBodySize int64, version string) *Handler {
	var results *cache.Cache
	if cacheTTL > 0 {
		results = cache.New(cacheTTL, 2*cacheTTL)
	}

	return &Handler{
		normalizer:  normalizer,
		fetcher:     fetcher,
		feedRepo:    feedRepo,
		configCache: configCache,
		scheduler:   scheduler,
		generator:   feed.NewGenerator(version),
		results:     results,
		maxBodySize: maxBodySize,
		version:     version,
	}
}

// PostNormalize normalizes the raw feed document sent as the request body.
func (h *Handler) PostNormalize(c *gin.Context) {
	body := c.Request.Body
	if h.maxBodySize > 0 {
		body = http.MaxBytesReader(c.Writer, body, h.maxBodySize)
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Feed document too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	if len(raw) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Empty feed document"})
		return
	}

	h.respondNormalized(c, raw)
}

// GetNormalize fetches the feed at ?url= and normalizes it.
func (h *Handler) GetNormalize(c *gin.Context) {
	feedURL := c.Query("url")
	if err := fetch.ValidateURL(feedURL); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid url parameter", "details": err.Error()})
		return
	}

	result, err := h.fetcher.Fetch(c.Request.Context(), feedURL)
	if err != nil {
		slog.Warn("Feed fetch failed", "url", feedURL, "error", err)
		if errors.Is(err, fetch.ErrBodyTooLarge) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "Feed document too large", "details": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch feed", "details": err.Error()})
		return
	}

	c.Header("X-Feed-URL", result.URL)
	h.respondNormalized(c, result.Body)
}

func (h *Handler) respondNormalized(c *gin.Context, raw []byte) {
	normalized, cached, err := h.normalize(c.Request.Context(), raw)
	if err != nil {
		switch {
		case errors.Is(err, feed.ErrAllAdaptersExhausted):
			slog.Info("No parser accepted the feed", "bytes", len(raw), "error", err)
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "No parser could read the feed", "details": err.Error()})
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Normalization cancelled"})
		default:
			slog.Error("Normalization error", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Normalization failed"})
		}
		return
	}

	if cached {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
	c.Header("X-Feed-Parser", normalized.Parser)

	c.JSON(http.StatusOK, normalized)
}

func (h *Handler) normalize(ctx context.Context, raw []byte) (*feed.Feed, bool, error) {
	if h.results == nil {
		normalized, err := h.normalizer.Run(ctx, raw)
		return normalized, false, err
	}

	sum := sha256.Sum256(raw)
	key := hex.EncodeToString(sum[:])

	if cached, ok := h.results.Get(key); ok {
		return cached.(*feed.Feed), true, nil
	}

	normalized, err := h.normalizer.Run(ctx, raw)
	if err != nil {
		return nil, false, err
	}

	h.results.SetDefault(key, normalized)

	return normalized, false, nil
}

func (h *Handler) GetParsers(c *gin.Context) {
	adapters := h.normalizer.Adapters()

	parsers := make([]parserInfo, 0, len(adapters))
	for _, adapter := range adapters {
		parsers = append(parsers, parserInfo{Name: adapter.Name(), Priority: adapter.Priority()})
	}

	c.JSON(http.StatusOK, gin.H{
		"parsers": parsers,
		"total":   len(parsers),
	})
}

func (h *Handler) ListFeeds(c *gin.Context) {
	feeds, err := h.feedRepo.ListFeeds()
	if err != nil {
		slog.Error("Database error", "operation", "list_feeds", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"feeds": feeds,
		"total": len(feeds),
	})
}

func (h *Handler) GetFeed(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing feed id parameter"})
		return
	}

	stored, err := h.feedRepo.GetFeed(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_feed", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if stored == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found"})
		return
	}

	c.Header("X-Last-Updated", stored.UpdatedAt.Format(time.RFC3339))
	c.JSON(http.StatusOK, stored)
}

// GetFeedRSS renders a stored feed as RSS 2.0.
func (h *Handler) GetFeedRSS(c *gin.Context) {
	id := c.Param("id")

	stored, err := h.feedRepo.GetFeed(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_feed", "id", id, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	if stored == nil {
		c.Status(http.StatusNotFound)
		return
	}

	rss, err := h.generator.Run(stored.Feed, requestURL(c))
	if err != nil {
		slog.Error("RSS generation error", "id", id, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Entries", strconv.Itoa(len(stored.Feed.Entries)))
	c.Header("X-Feed-Source", stored.Source)
	c.Header("X-Last-Updated", stored.UpdatedAt.Format(time.RFC3339))

	c.String(http.StatusOK, rss)
}

func requestURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + c.Request.Host + c.Request.URL.Path
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"status":    "ok",
		"version":   h.version,
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"parsers":   len(h.normalizer.Adapters()),
	}

	if feedCount, err := h.feedRepo.GetFeedCount(); err == nil {
		health["feeds"] = feedCount
	}

	health["loaded_configurations"] = h.configCache.GetConfigCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) APIListSources(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	result := make([]map[string]interface{}, 0, len(configs))

	for _, sourceConfig := range configs {
		sourceInfo := map[string]interface{}{
			"name":             sourceConfig.Name,
			"url":              sourceConfig.URL,
			"enabled":          sourceConfig.Settings.Enabled,
			"refresh_interval": (time.Duration(sourceConfig.Settings.RefreshInterval) * time.Second).String(),
			"timeout":          (time.Duration(sourceConfig.Settings.Timeout) * time.Second).String(),
		}

		if stored, err := h.feedRepo.GetFeedBySource(sourceConfig.Name); err == nil && stored != nil {
			sourceInfo["feed_id"] = stored.ID
			sourceInfo["title"] = stored.Feed.Title
			sourceInfo["parser"] = stored.Feed.Parser
			sourceInfo["entries"] = len(stored.Feed.Entries)
			sourceInfo["last_fetched_at"] = stored.LastFetchedAt
			sourceInfo["next_fetch_at"] = stored.NextFetchAt
		}

		result = append(result, sourceInfo)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"sources": result,
		"total":   len(result),
	})
}

// APIRefreshSource reloads a source configuration from disk and queues its
// normalization immediately.
func (h *Handler) APIRefreshSource(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing source name parameter"})
		return
	}

	sourceConfig, err := h.configCache.LoadConfig(name)
	if err != nil {
		slog.Error("Error reloading configuration", "source", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Source configuration not found",
			"details": err.Error(),
		})
		return
	}

	if err := h.scheduler.EnqueueSource(name); err != nil {
		switch {
		case errors.Is(err, tasks.ErrSourceNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Source configuration not found"})
		case errors.Is(err, tasks.ErrAlreadyQueued):
			c.JSON(http.StatusConflict, gin.H{"error": "Source is already queued"})
		default:
			slog.Error("Error enqueueing normalization task", "source", name, "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":   "Failed to enqueue normalization task",
				"details": err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Configuration reloaded and normalization enqueued",
		"source": gin.H{
			"name":    name,
			"url":     sourceConfig.URL,
			"enabled": sourceConfig.Settings.Enabled,
		},
	})
}
