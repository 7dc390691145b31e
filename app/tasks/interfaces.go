package tasks

import (
	"context"

	"github.com/lysyi3m/rss-digest/app/feed"
	"github.com/lysyi3m/rss-digest/app/newsletter"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Example usage:
//
//	scheduler := NewScheduler(fetcher, workflow, feedRepo, Config{...})
//	if err := scheduler.Start(); err != nil { ... }
//	defer scheduler.Stop()
//	id, err := scheduler.TriggerNewsletter()
type TaskSchedulerInterface interface {
	Start() error
	Stop()
	EnqueueTask(task TaskInterface) error
	TriggerNewsletter() (string, error)
	Pending() []TaskType
}

type FeedFetcher interface {
	FetchAll(ctx context.Context) (*feed.Summary, error)
}

type NewsletterRunner interface {
	Run(ctx context.Context) (*newsletter.Report, error)
}

var _ NewsletterRunner = (*newsletter.Workflow)(nil)
