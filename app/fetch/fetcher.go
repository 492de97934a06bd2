package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const acceptHeader = "application/rss+xml, application/atom+xml, application/feed+json, application/xml;q=0.9, text/xml;q=0.9, */*;q=0.8"

var (
	ErrInvalidURL   = errors.New("invalid feed URL")
	ErrBodyTooLarge = errors.New("response body exceeds size limit")
)

// StatusError is returned when the remote server answers with a non-200 status.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error: %d %s", e.Code, e.Status)
}

type Result struct {
	URL         string // final URL, after redirects and autodiscovery
	ContentType string
	Body        []byte // UTF-8
	Discovered  bool
}

type Fetcher struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
}

func NewFetcher(client *http.Client, userAgent string, maxBodySize int64) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Fetcher{
		client:      client,
		userAgent:   userAgent,
		maxBodySize: maxBodySize,
	}
}

// Fetch downloads a feed. When the URL points at an HTML page advertising a
// feed, the advertised feed is fetched instead (one hop only).
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) (*Result, error) {
	if err := ValidateURL(feedURL); err != nil {
		return nil, err
	}

	result, err := f.get(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	if !isHTML(result) {
		return result, nil
	}

	discovered, ok := discoverFeedURL(result.Body, result.URL)
	if !ok {
		slog.Debug("No feed advertised by HTML page", "url", result.URL)
		return result, nil
	}

	slog.Debug("Feed discovered", "page", result.URL, "feed", discovered)

	feedResult, err := f.get(ctx, discovered)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch discovered feed %s: %w", discovered, err)
	}
	feedResult.Discovered = true

	return feedResult, nil
}

// FetchPage downloads a web page as is, without feed autodiscovery.
func (f *Fetcher) FetchPage(ctx context.Context, pageURL string) (*Result, error) {
	if err := ValidateURL(pageURL); err != nil {
		return nil, err
	}
	return f.get(ctx, pageURL)
}

func (f *Fetcher) get(ctx context.Context, feedURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	data, err := f.readBody(resp.Body)
	if err != nil {
		return nil, err
	}

	contentType := resp.Header.Get("Content-Type")

	body, err := toUTF8(data, contentType)
	if err != nil {
		return nil, err
	}

	return &Result{
		URL:         resp.Request.URL.String(),
		ContentType: contentType,
		Body:        body,
	}, nil
}

func (f *Fetcher) readBody(r io.Reader) ([]byte, error) {
	if f.maxBodySize <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}
		return data, nil
	}

	data, err := io.ReadAll(io.LimitReader(r, f.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(data)) > f.maxBodySize {
		return nil, fmt.Errorf("%w (%d bytes)", ErrBodyTooLarge, f.maxBodySize)
	}

	return data, nil
}

// ValidateURL accepts absolute http and https URLs only.
func ValidateURL(feedURL string) error {
	u, err := url.ParseRequestURI(strings.TrimSpace(feedURL))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}

func isHTML(result *Result) bool {
	if strings.Contains(strings.ToLower(result.ContentType), "text/html") {
		return true
	}

	head := bytes.ToLower(bytes.TrimSpace(result.Body))
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html"))
}
