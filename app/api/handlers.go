package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/rss-digest/app/database"
	"github.com/lysyi3m/rss-digest/app/tasks"
)

func NewHandler(feedRepo database.FeedRepository, articleRepo database.ArticleRepository,
	subscriberRepo database.SubscriberRepository, fetcher FetcherInterface,
	previewer PreviewerInterface, newsletterMailer MailerInterface, provider ProviderCheckerInterface,
	scheduler tasks.TaskSchedulerInterface, settings Settings) *Handler {
	return &Handler{
		feedRepo:       feedRepo,
		articleRepo:    articleRepo,
		subscriberRepo: subscriberRepo,
		fetcher:        fetcher,
		previewer:      previewer,
		mailer:         newsletterMailer,
		provider:       provider,
		scheduler:      scheduler,
		settings:       settings,
	}
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	})
}

func (h *Handler) Index(authRequired bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":     "RSS Digest",
			"version":     h.settings.Version,
			"description": "Daily newsletter generated from RSS feeds",
			"endpoints": map[string]string{
				"health":      "/health",
				"rss":         "/feed.xml",
				"subscribe":   "POST /api/subscribers",
				"unsubscribe": "POST /api/subscribers/unsubscribe",
				"feeds":       "/api/feeds",
				"subscribers": "/api/subscribers",
				"newsletter":  "/api/newsletter/{send,preview,test,template-check,provider-check}",
				"status":      "/api/status",
			},
			"api_status": gin.H{
				"auth_required": authRequired,
				"header":        "X-API-Key",
			},
		})
	}
}

func (h *Handler) Status(c *gin.Context) {
	ctx := c.Request.Context()

	feeds, err := h.feedRepo.GetFeedCount(ctx)
	if err != nil {
		h.storeError(c, "get_feed_count", err)
		return
	}

	articles, err := h.articleRepo.CountArticles(ctx, database.ArticleFilter{})
	if err != nil {
		h.storeError(c, "count_articles", err)
		return
	}

	unprocessedFilter := false
	unprocessed, err := h.articleRepo.CountArticles(ctx, database.ArticleFilter{Processed: &unprocessedFilter})
	if err != nil {
		h.storeError(c, "count_unprocessed", err)
		return
	}

	subscribers, err := h.subscriberRepo.CountActiveSubscribers(ctx)
	if err != nil {
		h.storeError(c, "count_subscribers", err)
		return
	}

	recent, err := h.articleRepo.ListArticles(ctx, database.ArticleFilter{Limit: 5})
	if err != nil {
		h.storeError(c, "list_recent_articles", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"feeds":                feeds,
		"articles":             articles,
		"unprocessed_articles": unprocessed,
		"active_subscribers":   subscribers,
		"recent_articles":      recent,
		"pending_tasks":        h.scheduler.Pending(),
		"timestamp":            time.Now().In(time.Local).Format(time.RFC3339),
	})
}

func respondError(c *gin.Context, status int, message string, err error) {
	resp := errorResponse{Message: message}
	if err != nil {
		resp.Error = err.Error()
	}
	c.AbortWithStatusJSON(status, resp)
}

// storeError maps repository errors onto HTTP statuses.
func (h *Handler) storeError(c *gin.Context, operation string, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		respondError(c, http.StatusNotFound, "Resource not found", nil)
	case errors.Is(err, database.ErrConflict):
		respondError(c, http.StatusConflict, "Resource already exists", nil)
	default:
		slog.Error("Database error", "operation", operation, "error", err)
		respondError(c, http.StatusInternalServerError, "Database error", err)
	}
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}
