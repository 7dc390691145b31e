package database

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

// ArticleRepo handles database operations for articles
type ArticleRepo struct {
	db *DB
}

func NewArticleRepository(db *DB) *ArticleRepo {
	return &ArticleRepo{db: db}
}

func (r *ArticleRepo) filtered(query sq.SelectBuilder, filter ArticleFilter) sq.SelectBuilder {
	if filter.FeedID != "" {
		query = query.Where(sq.Eq{"a.feed_id": filter.FeedID})
	}
	if filter.URL != "" {
		query = query.Where(sq.Eq{"a.url": filter.URL})
	}
	if filter.Processed != nil {
		query = query.Where(sq.Eq{"a.processed": *filter.Processed})
	}
	if filter.Since != nil {
		query = query.Where(sq.GtOrEq{"a.publish_date": dbTime(*filter.Since)})
	}
	return query
}

// ListArticles returns articles joined with their feed name, newest first.
func (r *ArticleRepo) ListArticles(ctx context.Context, filter ArticleFilter) ([]Article, error) {
	query := r.filtered(sq.Select(
		"a.id", "a.feed_id", "f.name AS feed_name", "a.title", "a.content", "a.url",
		"a.publish_date", "a.processed", "a.created_at", "a.updated_at",
	).From("articles a").Join("feeds f ON f.id = a.feed_id"), filter).
		OrderBy("a.publish_date DESC", "a.id")

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build article query: %w", err)
	}

	articles := []Article{}
	if err := r.db.SelectContext(ctx, &articles, stmt, args...); err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}

	return articles, nil
}

func (r *ArticleRepo) CountArticles(ctx context.Context, filter ArticleFilter) (int, error) {
	stmt, args, err := r.filtered(sq.Select("COUNT(*)").From("articles a"), filter).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build article count query: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, stmt, args...); err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}

	return count, nil
}

func (r *ArticleRepo) UpsertArticle(ctx context.Context, article ArticleUpsert) (bool, error) {
	now := dbTime(time.Now())
	newID := uuid.NewString()

	var id string
	err := r.db.GetContext(ctx, &id, `
		INSERT INTO articles (id, feed_id, title, content, url, publish_date, processed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			feed_id = excluded.feed_id,
			title = excluded.title,
			content = excluded.content,
			publish_date = excluded.publish_date,
			updated_at = excluded.updated_at
		RETURNING id
	`, newID, article.FeedID, article.Title, article.Content, article.URL,
		dbTime(article.PublishDate), now, now)
	if err != nil {
		return false, fmt.Errorf("failed to upsert article: %w", err)
	}

	return id == newID, nil
}

func (r *ArticleRepo) MarkProcessed(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	stmt, args, err := sq.Update("articles").
		Set("processed", true).
		Set("updated_at", dbTime(time.Now())).
		Where(sq.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build mark processed query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to mark articles processed: %w", err)
	}

	return res.RowsAffected()
}
