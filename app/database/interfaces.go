package database

import (
	"context"
	"time"
)

type FeedRepository interface {
	ListFeeds(ctx context.Context) ([]Feed, error)
	GetFeed(ctx context.Context, id string) (*Feed, error)
	GetFeedCount(ctx context.Context) (int, error)

	CreateFeed(ctx context.Context, name, url string) (*Feed, error)
	UpsertFeed(ctx context.Context, name, url string) (*Feed, error)
	UpdateFeed(ctx context.Context, id string, update FeedUpdate) (*Feed, error)
	DeleteFeed(ctx context.Context, id string) error
	MarkFeedFetched(ctx context.Context, id string, fetchedAt time.Time) error
}

type ArticleRepository interface {
	ListArticles(ctx context.Context, filter ArticleFilter) ([]Article, error)
	CountArticles(ctx context.Context, filter ArticleFilter) (int, error)

	// UpsertArticle inserts or overwrites the article keyed by URL and
	// reports whether a new row was created.
	UpsertArticle(ctx context.Context, article ArticleUpsert) (bool, error)
	MarkProcessed(ctx context.Context, ids []string) (int64, error)
}

type SubscriberRepository interface {
	ListSubscribers(ctx context.Context) ([]Subscriber, error)
	ListActiveSubscribers(ctx context.Context) ([]Subscriber, error)
	GetSubscriber(ctx context.Context, id string) (*Subscriber, error)
	CountActiveSubscribers(ctx context.Context) (int, error)

	CreateSubscriber(ctx context.Context, email string) (*Subscriber, error)
	UpdateSubscriber(ctx context.Context, id string, update SubscriberUpdate) (*Subscriber, error)
	DeactivateSubscriber(ctx context.Context, email string) (*Subscriber, error)
	DeleteSubscriber(ctx context.Context, id string) error
}

var (
	_ FeedRepository       = (*FeedRepo)(nil)
	_ ArticleRepository    = (*ArticleRepo)(nil)
	_ SubscriberRepository = (*SubscriberRepo)(nil)
)
