package api

import (
	"context"

	"github.com/lysyi3m/rss-digest/app/database"
	"github.com/lysyi3m/rss-digest/app/feed"
	"github.com/lysyi3m/rss-digest/app/mailer"
	"github.com/lysyi3m/rss-digest/app/newsletter"
	"github.com/lysyi3m/rss-digest/app/tasks"
)

type FetcherInterface interface {
	FetchAll(ctx context.Context) (*feed.Summary, error)
	FetchOne(ctx context.Context, fd database.Feed) (*feed.Result, error)
}

type PreviewerInterface interface {
	Preview(ctx context.Context, limit uint64) (string, []database.Article, error)
}

type MailerInterface interface {
	CheckTemplate() (*mailer.TemplateReport, error)
	SendNewsletter(ctx context.Context, subscribers []database.Subscriber, issue mailer.Issue) (*mailer.Result, error)
}

type ProviderCheckerInterface interface {
	CheckAccount(ctx context.Context) (*mailer.AccountStatus, error)
}

var (
	_ FetcherInterface         = (*feed.Fetcher)(nil)
	_ PreviewerInterface       = (*newsletter.Workflow)(nil)
	_ MailerInterface          = (*mailer.Mailer)(nil)
	_ ProviderCheckerInterface = (*mailer.SESSender)(nil)
)

// Settings holds the plain values handlers need from the configuration.
type Settings struct {
	Title     string
	Version   string
	TestEmail string
}

type Handler struct {
	feedRepo       database.FeedRepository
	articleRepo    database.ArticleRepository
	subscriberRepo database.SubscriberRepository
	fetcher        FetcherInterface
	previewer      PreviewerInterface
	mailer         MailerInterface
	provider       ProviderCheckerInterface
	scheduler      tasks.TaskSchedulerInterface
	settings       Settings
}

type feedRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type feedUpdateRequest struct {
	Name *string `json:"name"`
	URL  *string `json:"url"`
}

type fetchRequest struct {
	FeedID string `json:"feedId"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type subscriberUpdateRequest struct {
	Email  *string `json:"email"`
	Active *bool   `json:"active"`
}

type previewRequest struct {
	Limit uint64 `json:"limit"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
