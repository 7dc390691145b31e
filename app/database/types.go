package database

import (
	"time"
)

type Feed struct {
	ID            string     `db:"id" json:"id"`
	Name          string     `db:"name" json:"name"`
	URL           string     `db:"url" json:"url"`
	LastFetchedAt *time.Time `db:"last_fetched_at" json:"lastFetchedAt"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updatedAt"`
}

// Article is the single article shape used by the fetcher, the newsletter
// workflow and the mail templates. FeedName is filled from the feeds table
// on reads and ignored on writes.
type Article struct {
	ID          string    `db:"id" json:"id"`
	FeedID      string    `db:"feed_id" json:"feedId"`
	FeedName    string    `db:"feed_name" json:"feedName"`
	Title       string    `db:"title" json:"title"`
	Content     string    `db:"content" json:"content"`
	URL         string    `db:"url" json:"url"`
	PublishDate time.Time `db:"publish_date" json:"publishDate"`
	Processed   bool      `db:"processed" json:"processed"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

type Subscriber struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// ArticleUpsert carries the fields the fetcher owns. The processed flag is
// never part of an upsert.
type ArticleUpsert struct {
	FeedID      string
	Title       string
	Content     string
	URL         string
	PublishDate time.Time
}

type ArticleFilter struct {
	FeedID    string
	URL       string
	Processed *bool
	Since     *time.Time
	Limit     uint64
}

type FeedUpdate struct {
	Name *string
	URL  *string
}

type SubscriberUpdate struct {
	Email  *string
	Active *bool
}
