package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/rss-digest/app/database"
	"github.com/lysyi3m/rss-digest/app/feed"
)

// SyncFeedsTask registers the feeds from the seed file, updating names of
// feeds that already exist.
type SyncFeedsTask struct {
	Task
	feeds    []feed.SeedFeed
	feedRepo database.FeedRepository
}

func NewSyncFeedsTask(feeds []feed.SeedFeed, feedRepo database.FeedRepository) *SyncFeedsTask {
	return &SyncFeedsTask{
		Task:     NewTask(TaskTypeSyncFeeds),
		feeds:    feeds,
		feedRepo: feedRepo,
	}
}

func (t *SyncFeedsTask) Execute(ctx context.Context) error {
	for _, seed := range t.feeds {
		if err := ctx.Err(); err != nil {
			return err
		}

		if _, err := t.feedRepo.UpsertFeed(ctx, seed.Name, seed.URL); err != nil {
			return fmt.Errorf("failed to sync feed %s: %w", seed.Name, err)
		}
	}

	slog.Info("Task completed", "type", t.GetType(), "duration", t.GetDuration(), "feeds", len(t.feeds))

	return nil
}
