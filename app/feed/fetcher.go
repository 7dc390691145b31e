package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/lysyi3m/rss-digest/app/database"
)

const maxFeedSize = 10 << 20

type Fetcher struct {
	feedRepo    database.FeedRepository
	articleRepo database.ArticleRepository
	httpClient  *http.Client
	parser      *Parser
	extractor   *ContentExtractor
	userAgent   string
	timeout     time.Duration
	now         func() time.Time
}

type FetcherOption func(*Fetcher)

// WithContentExtraction fetches the article page for items that carry no body.
func WithContentExtraction(extractor *ContentExtractor) FetcherOption {
	return func(f *Fetcher) {
		f.extractor = extractor
	}
}

func WithTimeout(timeout time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.timeout = timeout
	}
}

func NewFetcher(feedRepo database.FeedRepository, articleRepo database.ArticleRepository, httpClient *http.Client, userAgent string, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		feedRepo:    feedRepo,
		articleRepo: articleRepo,
		httpClient:  httpClient,
		parser:      NewParser(),
		userAgent:   userAgent,
		timeout:     30 * time.Second,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// FetchAll fetches every registered feed. A failing feed is logged and
// recorded in the summary without stopping the others.
func (f *Fetcher) FetchAll(ctx context.Context) (*Summary, error) {
	feeds, err := f.feedRepo.ListFeeds(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list feeds: %w", err)
	}

	summary := &Summary{
		Results:  []Result{},
		Failures: []Failure{},
	}

	for _, fd := range feeds {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		result, err := f.FetchOne(ctx, fd)
		if err != nil {
			slog.Error("Feed fetch failed", "feed", fd.Name, "url", fd.URL, "error", err)
			summary.Failures = append(summary.Failures, Failure{
				FeedID:   fd.ID,
				FeedName: fd.Name,
				Error:    err.Error(),
			})
			continue
		}

		summary.Results = append(summary.Results, *result)
	}

	return summary, nil
}

func (f *Fetcher) FetchOne(ctx context.Context, fd database.Feed) (*Result, error) {
	started := f.now()

	data, err := f.download(ctx, fd.URL)
	if err != nil {
		return nil, &FetchError{FeedID: fd.ID, URL: fd.URL, Err: err}
	}

	_, items, err := f.parser.Run(data)
	if err != nil {
		return nil, &FetchError{FeedID: fd.ID, URL: fd.URL, Err: err}
	}

	result := &Result{
		FeedID:   fd.ID,
		FeedName: fd.Name,
		Total:    len(items),
	}

	fetchedAt := f.now()
	for _, item := range items {
		if item.Link == "" {
			result.Skipped++
			continue
		}

		content := item.Body()
		if content == "" && f.extractor != nil {
			content = f.storedOrExtract(ctx, item.Link)
		}

		created, err := f.articleRepo.UpsertArticle(ctx, database.ArticleUpsert{
			FeedID:      fd.ID,
			Title:       item.Title,
			Content:     content,
			URL:         item.Link,
			PublishDate: item.PublishDate(fetchedAt),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to store article %s: %w", item.Link, err)
		}

		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	if err := f.feedRepo.MarkFeedFetched(ctx, fd.ID, fetchedAt); err != nil {
		return nil, err
	}

	slog.Info("Feed fetched",
		"feed", fd.Name,
		"duration", time.Since(started),
		"total", result.Total,
		"new", result.Created,
		"updated", result.Updated,
		"skipped", result.Skipped)

	return result, nil
}

// storedOrExtract keeps content already extracted for a known article so a
// refresh neither refetches the page nor blanks it on a failed extraction.
func (f *Fetcher) storedOrExtract(ctx context.Context, link string) string {
	existing, err := f.articleRepo.ListArticles(ctx, database.ArticleFilter{URL: link, Limit: 1})
	if err != nil {
		slog.Warn("Failed to look up stored article", "url", link, "error", err)
	} else if len(existing) > 0 && existing[0].Content != "" {
		return existing[0].Content
	}

	return f.extract(ctx, link)
}

func (f *Fetcher) extract(ctx context.Context, link string) string {
	extractCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	content, err := f.extractor.Extract(extractCtx, link)
	if err != nil {
		slog.Warn("Content extraction failed", "url", link, "error", err)
		return ""
	}
	return content
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("empty response body")
	}

	return data, nil
}
