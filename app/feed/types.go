package feed

import (
	"fmt"
	"time"
)

type Metadata struct {
	Title       string
	Link        string
	Description string
	Language    string
}

type Item struct {
	GUID        string
	Title       string
	Link        string
	Description string
	Content     string
	PublishedAt *time.Time
	UpdatedAt   *time.Time
}

// Body is the item content, falling back to the description.
func (i Item) Body() string {
	if i.Content != "" {
		return i.Content
	}
	return i.Description
}

// PublishDate falls back to the updated date, then to fallback.
func (i Item) PublishDate(fallback time.Time) time.Time {
	if i.PublishedAt != nil {
		return *i.PublishedAt
	}
	if i.UpdatedAt != nil {
		return *i.UpdatedAt
	}
	return fallback
}

// Result reports what a single feed fetch did to the article store.
type Result struct {
	FeedID   string `json:"feedId"`
	FeedName string `json:"feedName"`
	Total    int    `json:"total"`
	Created  int    `json:"created"`
	Updated  int    `json:"updated"`
	Skipped  int    `json:"skipped"`
}

type Failure struct {
	FeedID   string `json:"feedId"`
	FeedName string `json:"feedName"`
	Error    string `json:"error"`
}

type Summary struct {
	Results  []Result  `json:"results"`
	Failures []Failure `json:"failures"`
}

func (s *Summary) Created() int {
	total := 0
	for _, r := range s.Results {
		total += r.Created
	}
	return total
}

// FetchError is returned when a feed could not be retrieved or parsed.
type FetchError struct {
	FeedID string
	URL    string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch feed %s (%s): %v", e.FeedID, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// SeedFeed is a feed declared in the YAML seed file.
type SeedFeed struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}
