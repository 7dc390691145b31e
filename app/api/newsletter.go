package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/rss-digest/app/database"
	"github.com/lysyi3m/rss-digest/app/mailer"
	"github.com/lysyi3m/rss-digest/app/newsletter"
	"github.com/lysyi3m/rss-digest/app/tasks"
)

const defaultPreviewLimit = 10

// SendNewsletter queues a newsletter run on the scheduler.
func (h *Handler) SendNewsletter(c *gin.Context) {
	id, err := h.scheduler.TriggerNewsletter()
	if errors.Is(err, tasks.ErrTaskPending) {
		respondError(c, http.StatusConflict, "A newsletter run is already in progress", nil)
		return
	}
	if err != nil {
		slog.Error("Failed to queue newsletter", "error", err)
		respondError(c, http.StatusInternalServerError, "Failed to queue newsletter", err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Newsletter queued",
		"taskId":  id,
	})
}

func (h *Handler) PreviewNewsletter(c *gin.Context) {
	content, articles, ok := h.generatePreview(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"content":  content,
		"articles": articles,
	})
}

// TestNewsletter generates an issue from the latest articles and sends it to
// the configured test recipient only. Articles are not marked processed.
func (h *Handler) TestNewsletter(c *gin.Context) {
	if h.settings.TestEmail == "" {
		respondError(c, http.StatusBadRequest, "Test recipient is not configured", errors.New("TEST_EMAIL is not set"))
		return
	}

	content, articles, ok := h.generatePreview(c)
	if !ok {
		return
	}

	recipient := []database.Subscriber{{Email: h.settings.TestEmail, Active: true}}
	result, err := h.mailer.SendNewsletter(c.Request.Context(), recipient, mailer.Issue{
		Content:  content,
		Articles: articles,
		Date:     time.Now().In(time.Local),
	})
	if err != nil {
		slog.Error("Test newsletter failed", "email", h.settings.TestEmail, "error", err)
		respondError(c, http.StatusInternalServerError, "Failed to send test newsletter", err)
		return
	}

	status := http.StatusOK
	if len(result.Failed) > 0 {
		status = http.StatusBadGateway
	}

	c.JSON(status, gin.H{
		"recipient": h.settings.TestEmail,
		"articles":  len(articles),
		"result":    result,
	})
}

// generatePreview writes the error response itself and reports false when
// no content could be produced.
func (h *Handler) generatePreview(c *gin.Context) (string, []database.Article, bool) {
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, http.StatusBadRequest, "Invalid request body", err)
		return "", nil, false
	}
	if req.Limit == 0 {
		req.Limit = defaultPreviewLimit
	}
	if req.Limit > maxArticleLimit {
		respondError(c, http.StatusBadRequest, "limit must be between 1 and 100", nil)
		return "", nil, false
	}

	count, err := h.articleRepo.CountArticles(c.Request.Context(), database.ArticleFilter{})
	if err != nil {
		h.storeError(c, "count_articles", err)
		return "", nil, false
	}
	if count == 0 {
		respondError(c, http.StatusNotFound, "No articles found", nil)
		return "", nil, false
	}

	content, articles, err := h.previewer.Preview(c.Request.Context(), req.Limit)
	if err != nil {
		var genErr *newsletter.GenerationError
		if errors.As(err, &genErr) {
			respondError(c, http.StatusInternalServerError, "Failed to generate newsletter", err)
			return "", nil, false
		}
		h.storeError(c, "preview_newsletter", err)
		return "", nil, false
	}

	return content, articles, true
}

func (h *Handler) CheckTemplate(c *gin.Context) {
	report, err := h.mailer.CheckTemplate()
	if err != nil {
		slog.Error("Template check failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Template check failed",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, report)
}

// CheckProvider confirms the email provider accepts our credentials.
func (h *Handler) CheckProvider(c *gin.Context) {
	status, err := h.provider.CheckAccount(c.Request.Context())
	if err != nil {
		slog.Error("Email provider check failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"message": "Email provider check failed",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": status.SendingEnabled,
		"account": status,
	})
}
