package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/rss-digest/app/database"
	"github.com/lysyi3m/rss-digest/app/feed"
)

const aggregatedFeedLimit = 50

// AggregatedFeed republishes the most recent articles from all feeds as RSS.
func (h *Handler) AggregatedFeed(c *gin.Context) {
	articles, err := h.articleRepo.ListArticles(c.Request.Context(), database.ArticleFilter{Limit: aggregatedFeedLimit})
	if err != nil {
		h.storeError(c, "list_articles", err)
		return
	}

	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	base := fmt.Sprintf("%s://%s", scheme, c.Request.Host)

	rss, err := feed.NewGenerator().Run(feed.Channel{
		Title:    h.settings.Title,
		Link:     base,
		SelfLink: base + "/feed.xml",
		Version:  h.settings.Version,
	}, articles)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to generate feed", err)
		return
	}

	c.Header("Content-Type", "application/rss+xml; charset=utf-8")
	c.String(http.StatusOK, rss)
}
