package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, apiAccessKey string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		SkipPaths: []string{"/health"},
	}))

	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-API-Key")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	r.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, "Route not found", nil)
	})

	setupRoutes(r, handler, apiAccessKey)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string) {
	r.GET("/health", handler.HealthCheck)
	r.GET("/", handler.Index(apiAccessKey != ""))
	r.GET("/feed.xml", handler.AggregatedFeed)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	public := r.Group("/api")
	{
		public.POST("/subscribers", handler.Subscribe)
		public.POST("/subscribers/unsubscribe", handler.Unsubscribe)
	}

	admin := r.Group("/api")
	if apiAccessKey != "" {
		admin.Use(authMiddleware(apiAccessKey))
		slog.Info("Admin API enabled with authentication")
	} else {
		slog.Warn("Admin API enabled without authentication (API_ACCESS_KEY not set)")
	}
	{
		admin.GET("/feeds", handler.ListFeeds)
		admin.POST("/feeds", handler.CreateFeed)
		admin.PUT("/feeds/:id", handler.UpdateFeed)
		admin.DELETE("/feeds/:id", handler.DeleteFeed)
		admin.GET("/feeds/:id/articles", handler.ListFeedArticles)
		admin.POST("/feeds/fetch", handler.FetchFeed)
		admin.POST("/feeds/fetch-all", handler.FetchAllFeeds)

		admin.GET("/subscribers", handler.ListSubscribers)
		admin.GET("/subscribers/:id", handler.GetSubscriber)
		admin.PUT("/subscribers/:id", handler.UpdateSubscriber)
		admin.DELETE("/subscribers/:id", handler.DeleteSubscriber)

		admin.POST("/newsletter/send", handler.SendNewsletter)
		admin.POST("/newsletter/preview", handler.PreviewNewsletter)
		admin.POST("/newsletter/test", handler.TestNewsletter)
		admin.GET("/newsletter/template-check", handler.CheckTemplate)
		admin.GET("/newsletter/provider-check", handler.CheckProvider)

		admin.GET("/status", handler.Status)
	}
}

// authMiddleware creates authentication middleware for admin endpoints
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{
				Message: "Provide API key in X-API-Key header or Authorization: Bearer <key>",
				Error:   "API key required",
			})
			return
		}

		if providedKey != apiAccessKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{
				Message: "The provided API key is not valid",
				Error:   "Invalid API key",
			})
			return
		}

		c.Next()
	}
}
