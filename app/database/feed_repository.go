package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lysyi3m/feed-normalizer/app/feed"
)

var _ FeedRepository = (*SQLiteFeedRepository)(nil)

const feedColumns = `id, source, parser, generator, title, urls, description, copyright, authors,
	last_updated, feed_ref, image, last_fetched_at, next_fetch_at, created_at, updated_at`

// SQLiteFeedRepository handles database operations for normalized feeds
type SQLiteFeedRepository struct {
	db *DB
}

func NewFeedRepository(db *DB) *SQLiteFeedRepository {
	return &SQLiteFeedRepository{db: db}
}

// SaveFeed stores the latest normalization result of a source, replacing the
// previous one. Returns the feed's database id.
func (r *SQLiteFeedRepository) SaveFeed(source string, normalized *feed.Feed, nextFetchAt time.Time) (string, error) {
	if normalized == nil {
		return "", fmt.Errorf("feed is nil")
	}

	urls, err := encodeStrings(normalized.URLs)
	if err != nil {
		return "", err
	}
	authors, err := encodeStrings(normalized.Authors)
	if err != nil {
		return "", err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := formatTime(time.Now())

	var dbID string
	err = tx.QueryRow(`SELECT id FROM feeds WHERE source = ?`, source).Scan(&dbID)
	if err == sql.ErrNoRows {
		dbID = uuid.NewString()
		_, err = tx.Exec(`
			INSERT INTO feeds (id, source, parser, generator, title, urls, description, copyright, authors,
				last_updated, feed_ref, image, last_fetched_at, next_fetch_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, dbID, source, normalized.Parser, normalized.Generator, normalized.Title, urls,
			normalized.Description, normalized.Copyright, authors, formatNullTime(normalized.LastUpdated),
			normalized.ID, normalized.Image, now, formatTime(nextFetchAt), now, now)
		if err != nil {
			return "", fmt.Errorf("failed to insert feed: %w", err)
		}
	} else if err != nil {
		return "", fmt.Errorf("failed to check existing feed: %w", err)
	} else {
		_, err = tx.Exec(`
			UPDATE feeds
			SET parser = ?, generator = ?, title = ?, urls = ?, description = ?, copyright = ?, authors = ?,
				last_updated = ?, feed_ref = ?, image = ?, last_fetched_at = ?, next_fetch_at = ?, updated_at = ?
			WHERE id = ?
		`, normalized.Parser, normalized.Generator, normalized.Title, urls, normalized.Description,
			normalized.Copyright, authors, formatNullTime(normalized.LastUpdated), normalized.ID,
			normalized.Image, now, formatTime(nextFetchAt), now, dbID)
		if err != nil {
			return "", fmt.Errorf("failed to update feed: %w", err)
		}
	}

	if _, err := tx.Exec(`DELETE FROM entries WHERE feed_id = ?`, dbID); err != nil {
		return "", fmt.Errorf("failed to clear entries: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO entries (id, feed_id, position, entry_ref, title, urls, description, authors, copyright, content, date_published)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare entry insert: %w", err)
	}
	defer stmt.Close()

	for i, entry := range normalized.Entries {
		entryURLs, err := encodeStrings(entry.URLs)
		if err != nil {
			return "", err
		}
		entryAuthors, err := encodeStrings(entry.Authors)
		if err != nil {
			return "", err
		}

		_, err = stmt.Exec(uuid.NewString(), dbID, i, entry.ID, entry.Title, entryURLs, entry.Description,
			entryAuthors, entry.Copyright, entry.Content.Body, formatNullTime(entry.DatePublished))
		if err != nil {
			return "", fmt.Errorf("failed to insert entry %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit feed: %w", err)
	}

	return dbID, nil
}

// GetFeed retrieves a feed with its entries by database id
func (r *SQLiteFeedRepository) GetFeed(id string) (*Feed, error) {
	row := r.db.QueryRow(`SELECT `+feedColumns+` FROM feeds WHERE id = ?`, id)

	stored, err := scanFeed(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}

	if err := r.loadEntries(stored); err != nil {
		return nil, err
	}

	return stored, nil
}

// GetFeedBySource retrieves a feed with its entries by source name
func (r *SQLiteFeedRepository) GetFeedBySource(source string) (*Feed, error) {
	row := r.db.QueryRow(`SELECT `+feedColumns+` FROM feeds WHERE source = ?`, source)

	stored, err := scanFeed(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed by source: %w", err)
	}

	if err := r.loadEntries(stored); err != nil {
		return nil, err
	}

	return stored, nil
}

// GetNextFetchAt returns when a source is due next, without loading the
// feed. It is nil for unknown sources.
func (r *SQLiteFeedRepository) GetNextFetchAt(source string) (*time.Time, error) {
	var nextFetch sql.NullString
	err := r.db.QueryRow(`SELECT next_fetch_at FROM feeds WHERE source = ?`, source).Scan(&nextFetch)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get next fetch time: %w", err)
	}

	return parseNullTime(nextFetch)
}

// ListFeeds returns all stored feeds ordered by source, without entries
func (r *SQLiteFeedRepository) ListFeeds() ([]Feed, error) {
	rows, err := r.db.Query(`SELECT ` + feedColumns + ` FROM feeds ORDER BY source`)
	if err != nil {
		return nil, fmt.Errorf("failed to list feeds: %w", err)
	}
	defer rows.Close()

	feeds := []Feed{}
	for rows.Next() {
		stored, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed row: %w", err)
		}
		feeds = append(feeds, *stored)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feed rows: %w", err)
	}

	return feeds, nil
}

// GetFeedCount returns the total number of feeds
func (r *SQLiteFeedRepository) GetFeedCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM feeds").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get feed count: %w", err)
	}
	return count, nil
}

func (r *SQLiteFeedRepository) loadEntries(stored *Feed) error {
	rows, err := r.db.Query(`
		SELECT entry_ref, title, urls, description, authors, copyright, content, date_published
		FROM entries
		WHERE feed_id = ?
		ORDER BY position
	`, stored.ID)
	if err != nil {
		return fmt.Errorf("failed to get entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		entry := feed.NewEntry()
		var urls, authors string
		var datePublished sql.NullString

		err := rows.Scan(&entry.ID, &entry.Title, &urls, &entry.Description, &authors,
			&entry.Copyright, &entry.Content.Body, &datePublished)
		if err != nil {
			return fmt.Errorf("failed to scan entry row: %w", err)
		}

		if entry.URLs, err = decodeStrings(urls); err != nil {
			return err
		}
		if entry.Authors, err = decodeStrings(authors); err != nil {
			return err
		}
		if entry.DatePublished, err = parseNullTime(datePublished); err != nil {
			return err
		}

		stored.Feed.Entries = append(stored.Feed.Entries, entry)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating entry rows: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeed(row rowScanner) (*Feed, error) {
	var (
		stored                              Feed
		parser, urls, authors               string
		createdAt, updatedAt                string
		lastUpdated, lastFetched, nextFetch sql.NullString
	)
	normalized := feed.NewFeed("")

	err := row.Scan(&stored.ID, &stored.Source, &parser, &normalized.Generator, &normalized.Title, &urls,
		&normalized.Description, &normalized.Copyright, &authors, &lastUpdated, &normalized.ID,
		&normalized.Image, &lastFetched, &nextFetch, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	normalized.Parser = parser
	if normalized.URLs, err = decodeStrings(urls); err != nil {
		return nil, err
	}
	if normalized.Authors, err = decodeStrings(authors); err != nil {
		return nil, err
	}
	if normalized.LastUpdated, err = parseNullTime(lastUpdated); err != nil {
		return nil, err
	}
	if stored.LastFetchedAt, err = parseNullTime(lastFetched); err != nil {
		return nil, err
	}
	if stored.NextFetchAt, err = parseNullTime(nextFetch); err != nil {
		return nil, err
	}
	if stored.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if stored.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	stored.Feed = normalized

	return &stored, nil
}
