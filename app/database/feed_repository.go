package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const feedColumns = `id, name, url, last_fetched_at, created_at, updated_at`

// FeedRepo handles database operations for feeds
type FeedRepo struct {
	db *DB
}

func NewFeedRepository(db *DB) *FeedRepo {
	return &FeedRepo{db: db}
}

func (r *FeedRepo) ListFeeds(ctx context.Context) ([]Feed, error) {
	feeds := []Feed{}
	err := r.db.SelectContext(ctx, &feeds, `SELECT `+feedColumns+` FROM feeds ORDER BY created_at, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list feeds: %w", err)
	}
	return feeds, nil
}

func (r *FeedRepo) GetFeed(ctx context.Context, id string) (*Feed, error) {
	var feed Feed
	err := r.db.GetContext(ctx, &feed, `SELECT `+feedColumns+` FROM feeds WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}
	return &feed, nil
}

func (r *FeedRepo) getFeedByURL(ctx context.Context, url string) (*Feed, error) {
	var feed Feed
	err := r.db.GetContext(ctx, &feed, `SELECT `+feedColumns+` FROM feeds WHERE url = ?`, url)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed by URL: %w", err)
	}
	return &feed, nil
}

func (r *FeedRepo) GetFeedCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM feeds`); err != nil {
		return 0, fmt.Errorf("failed to get feed count: %w", err)
	}
	return count, nil
}

// CreateFeed inserts a new feed and fails with ErrConflict when the URL is
// already registered.
func (r *FeedRepo) CreateFeed(ctx context.Context, name, url string) (*Feed, error) {
	now := dbTime(time.Now())
	feed := Feed{
		ID:        uuid.NewString(),
		Name:      name,
		URL:       url,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO feeds (id, name, url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, feed.ID, feed.Name, feed.URL, feed.CreatedAt, feed.UpdatedAt)
	if isUniqueViolation(err) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create feed: %w", err)
	}

	return &feed, nil
}

// UpsertFeed registers a feed by URL, updating its name when it already
// exists. Used to sync feeds declared in the seed file.
func (r *FeedRepo) UpsertFeed(ctx context.Context, name, url string) (*Feed, error) {
	now := dbTime(time.Now())
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO feeds (id, name, url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			name = excluded.name,
			updated_at = excluded.updated_at
	`, uuid.NewString(), name, url, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert feed: %w", err)
	}

	return r.getFeedByURL(ctx, url)
}

func (r *FeedRepo) UpdateFeed(ctx context.Context, id string, update FeedUpdate) (*Feed, error) {
	feed, err := r.GetFeed(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		feed.Name = *update.Name
	}
	if update.URL != nil {
		feed.URL = *update.URL
	}
	feed.UpdatedAt = dbTime(time.Now())

	_, err = r.db.ExecContext(ctx, `
		UPDATE feeds SET name = ?, url = ?, updated_at = ? WHERE id = ?
	`, feed.Name, feed.URL, feed.UpdatedAt, feed.ID)
	if isUniqueViolation(err) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update feed: %w", err)
	}

	return feed, nil
}

// DeleteFeed removes a feed; its articles are removed by the foreign key
// cascade.
func (r *FeedRepo) DeleteFeed(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM feeds WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete feed: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete feed: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *FeedRepo) MarkFeedFetched(ctx context.Context, id string, fetchedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE feeds SET last_fetched_at = ?, updated_at = ? WHERE id = ?
	`, dbTime(fetchedAt), dbTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to update last fetch time: %w", err)
	}
	return nil
}
