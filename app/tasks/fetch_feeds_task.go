package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/rss-digest/app/feed"
)

type FetchFeedsTask struct {
	Task
	fetcher FeedFetcher
}

func NewFetchFeedsTask(fetcher FeedFetcher) *FetchFeedsTask {
	return &FetchFeedsTask{
		Task:    NewTask(TaskTypeFetchFeeds),
		fetcher: fetcher,
	}
}

func (t *FetchFeedsTask) Execute(ctx context.Context) error {
	summary, err := t.fetcher.FetchAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch feeds: %w", err)
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"feeds", len(summary.Results)+len(summary.Failures),
		"failed", len(summary.Failures),
		"new", summary.Created())

	return nil
}

var _ FeedFetcher = (*feed.Fetcher)(nil)
