package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/rss-digest/app/database"
	"github.com/lysyi3m/rss-digest/app/feed"
)

const (
	defaultArticleLimit = 10
	maxArticleLimit     = 100
)

func (h *Handler) ListFeeds(c *gin.Context) {
	feeds, err := h.feedRepo.ListFeeds(c.Request.Context())
	if err != nil {
		h.storeError(c, "list_feeds", err)
		return
	}

	c.JSON(http.StatusOK, feeds)
}

func (h *Handler) CreateFeed(c *gin.Context) {
	var req feedRequest
	if !bindJSON(c, &req) {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.URL = strings.TrimSpace(req.URL)
	if err := feed.ValidateFeed(req.Name, req.URL); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid feed", err)
		return
	}

	created, err := h.feedRepo.CreateFeed(c.Request.Context(), req.Name, req.URL)
	if errors.Is(err, database.ErrConflict) {
		respondError(c, http.StatusConflict, "Feed with this URL already exists", nil)
		return
	}
	if err != nil {
		h.storeError(c, "create_feed", err)
		return
	}

	slog.Info("Feed created", "feed", created.Name, "url", created.URL)
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) UpdateFeed(c *gin.Context) {
	var req feedUpdateRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	current, err := h.feedRepo.GetFeed(ctx, c.Param("id"))
	if err != nil {
		h.storeError(c, "get_feed", err)
		return
	}

	name, url := current.Name, current.URL
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
		req.Name = &name
	}
	if req.URL != nil {
		url = strings.TrimSpace(*req.URL)
		req.URL = &url
	}
	if err := feed.ValidateFeed(name, url); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid feed", err)
		return
	}

	updated, err := h.feedRepo.UpdateFeed(ctx, current.ID, database.FeedUpdate{Name: req.Name, URL: req.URL})
	if err != nil {
		h.storeError(c, "update_feed", err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (h *Handler) DeleteFeed(c *gin.Context) {
	if err := h.feedRepo.DeleteFeed(c.Request.Context(), c.Param("id")); err != nil {
		h.storeError(c, "delete_feed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Feed deleted"})
}

func (h *Handler) ListFeedArticles(c *gin.Context) {
	limit := uint64(defaultArticleLimit)
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || parsed == 0 || parsed > maxArticleLimit {
			respondError(c, http.StatusBadRequest, "limit must be between 1 and 100", nil)
			return
		}
		limit = parsed
	}

	ctx := c.Request.Context()
	fd, err := h.feedRepo.GetFeed(ctx, c.Param("id"))
	if err != nil {
		h.storeError(c, "get_feed", err)
		return
	}

	articles, err := h.articleRepo.ListArticles(ctx, database.ArticleFilter{FeedID: fd.ID, Limit: limit})
	if err != nil {
		h.storeError(c, "list_articles", err)
		return
	}

	c.JSON(http.StatusOK, articles)
}

func (h *Handler) FetchFeed(c *gin.Context) {
	var req fetchRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.FeedID == "" {
		respondError(c, http.StatusBadRequest, "feedId is required", nil)
		return
	}

	ctx := c.Request.Context()
	fd, err := h.feedRepo.GetFeed(ctx, req.FeedID)
	if err != nil {
		h.storeError(c, "get_feed", err)
		return
	}

	result, err := h.fetcher.FetchOne(ctx, *fd)
	if err != nil {
		slog.Error("Feed fetch failed", "feed", fd.Name, "error", err)
		respondError(c, http.StatusInternalServerError, "Failed to fetch feed", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) FetchAllFeeds(c *gin.Context) {
	summary, err := h.fetcher.FetchAll(c.Request.Context())
	if err != nil {
		slog.Error("Fetching all feeds failed", "error", err)
		respondError(c, http.StatusInternalServerError, "Failed to fetch feeds", err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
