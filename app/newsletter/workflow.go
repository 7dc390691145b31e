package newsletter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/rss-digest/app/database"
	"github.com/lysyi3m/rss-digest/app/mailer"
)

const collectWindow = 24 * time.Hour

type ContentGenerator interface {
	Generate(ctx context.Context, articles []database.Article) (string, error)
}

type Deliverer interface {
	SendNewsletter(ctx context.Context, subscribers []database.Subscriber, issue mailer.Issue) (*mailer.Result, error)
}

// Report summarizes one newsletter run. Skipped is set when the run stopped
// at the gate without generating anything.
type Report struct {
	Skipped   string         `json:"skipped,omitempty"`
	Articles  int            `json:"articles"`
	Processed int64          `json:"processed"`
	Delivery  *mailer.Result `json:"delivery,omitempty"`
}

type Workflow struct {
	articleRepo    database.ArticleRepository
	subscriberRepo database.SubscriberRepository
	generator      ContentGenerator
	deliverer      Deliverer
	now            func() time.Time
}

func NewWorkflow(articleRepo database.ArticleRepository, subscriberRepo database.SubscriberRepository, generator ContentGenerator, deliverer Deliverer) *Workflow {
	return &Workflow{
		articleRepo:    articleRepo,
		subscriberRepo: subscriberRepo,
		generator:      generator,
		deliverer:      deliverer,
		now:            time.Now,
	}
}

// Run collects the last day's unprocessed articles, generates the issue,
// delivers it and marks the articles processed. Any error before delivery
// completes leaves the articles unprocessed for the next run.
func (w *Workflow) Run(ctx context.Context) (*Report, error) {
	started := w.now()

	unprocessed := false
	since := started.Add(-collectWindow)
	articles, err := w.articleRepo.ListArticles(ctx, database.ArticleFilter{
		Processed: &unprocessed,
		Since:     &since,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to collect articles: %w", err)
	}

	report := &Report{Articles: len(articles)}
	if len(articles) == 0 {
		report.Skipped = "no new articles"
		slog.Info("Newsletter skipped", "reason", report.Skipped)
		return report, nil
	}

	subscribers, err := w.subscriberRepo.ListActiveSubscribers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscribers: %w", err)
	}
	if len(subscribers) == 0 {
		report.Skipped = "no active subscribers"
		slog.Info("Newsletter skipped", "reason", report.Skipped)
		return report, nil
	}

	content, err := w.generator.Generate(ctx, articles)
	if err != nil {
		return nil, err
	}

	delivery, err := w.deliverer.SendNewsletter(ctx, subscribers, mailer.Issue{
		Content:  content,
		Articles: articles,
		Date:     started,
	})
	if err != nil {
		return nil, err
	}
	report.Delivery = delivery

	ids := make([]string, 0, len(articles))
	for _, article := range articles {
		ids = append(ids, article.ID)
	}

	processed, err := w.articleRepo.MarkProcessed(ctx, ids)
	if err != nil {
		return report, fmt.Errorf("failed to mark articles processed: %w", err)
	}
	report.Processed = processed

	slog.Info("Newsletter sent",
		"duration", time.Since(started),
		"articles", len(articles),
		"subscribers", len(subscribers),
		"succeeded", len(delivery.Succeeded),
		"failed", len(delivery.Failed))

	return report, nil
}

// Preview generates content from the most recent articles without sending
// anything or touching the processed flags.
func (w *Workflow) Preview(ctx context.Context, limit uint64) (string, []database.Article, error) {
	articles, err := w.articleRepo.ListArticles(ctx, database.ArticleFilter{Limit: limit})
	if err != nil {
		return "", nil, fmt.Errorf("failed to load articles: %w", err)
	}

	content, err := w.generator.Generate(ctx, articles)
	if err != nil {
		return "", nil, err
	}

	return content, articles, nil
}
