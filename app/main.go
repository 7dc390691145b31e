package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/rss-digest/app/api"
	"github.com/lysyi3m/rss-digest/app/cfg"
	"github.com/lysyi3m/rss-digest/app/database"
	"github.com/lysyi3m/rss-digest/app/feed"
	"github.com/lysyi3m/rss-digest/app/mailer"
	"github.com/lysyi3m/rss-digest/app/newsletter"
	"github.com/lysyi3m/rss-digest/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	setupLogger(appCfg.Debug)

	if err := run(appCfg); err != nil {
		slog.Error("RSS Digest stopped with error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

func run(appCfg *cfg.Cfg) error {
	slog.Info("Starting RSS Digest", "version", appCfg.Version, "timezone", appCfg.Location().String())

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	slog.Info("Database ready", "path", appCfg.DBPath)

	feedRepo := database.NewFeedRepository(db)
	articleRepo := database.NewArticleRepository(db)
	subscriberRepo := database.NewSubscriberRepository(db)

	var seeds []feed.SeedFeed
	if appCfg.FeedsFile != "" {
		seeds, err = feed.LoadSeedFile(appCfg.FeedsFile)
		if err != nil {
			return err
		}
		slog.Info("Loaded seed feeds", "file", appCfg.FeedsFile, "count", len(seeds))
	}

	httpClient := &http.Client{Timeout: appCfg.FetchTimeout}
	fetcherOpts := []feed.FetcherOption{feed.WithTimeout(appCfg.FetchTimeout)}
	if appCfg.ExtractContent {
		fetcherOpts = append(fetcherOpts, feed.WithContentExtraction(feed.NewContentExtractor(httpClient, appCfg.UserAgent)))
	}
	fetcher := feed.NewFetcher(feedRepo, articleRepo, httpClient, appCfg.UserAgent, fetcherOpts...)

	if appCfg.OpenAIAPIKey == "" {
		slog.Warn("OPENAI_API_KEY is not set, newsletter generation will fail")
	}
	completer := newsletter.NewOpenAICompleter(appCfg.OpenAIAPIKey, appCfg.OpenAIBaseURL, appCfg.OpenAIModel)
	generator := newsletter.NewGenerator(completer, appCfg.LLMMaxTokens, appCfg.LLMTimeout)

	sender, err := mailer.NewSESSender(context.Background(), appCfg.AWSRegion, appCfg.SESConfigurationSet)
	if err != nil {
		return err
	}
	newsletterMailer, err := mailer.New(sender, mailer.Config{
		From:           appCfg.EmailFrom,
		Title:          appCfg.NewsletterTitle,
		UnsubscribeURL: appCfg.UnsubscribeURL,
	})
	if err != nil {
		return err
	}
	if appCfg.EmailFrom == "" {
		slog.Warn("EMAIL_FROM is not set, newsletter delivery will fail")
	}

	workflow := newsletter.NewWorkflow(articleRepo, subscriberRepo, generator, newsletterMailer)

	slog.Info("Starting background scheduler",
		"workers", appCfg.WorkerCount,
		"fetch_schedule", appCfg.FetchSchedule,
		"newsletter_schedule", appCfg.NewsletterSchedule)
	scheduler := tasks.NewScheduler(fetcher, workflow, feedRepo, tasks.Config{
		FetchSchedule:      appCfg.FetchSchedule,
		NewsletterSchedule: appCfg.NewsletterSchedule,
		Location:           appCfg.Location(),
		WorkerCount:        appCfg.WorkerCount,
		TaskTimeout:        appCfg.TaskTimeout,
		FetchOnStartup:     appCfg.FetchOnStartup,
		SeedFeeds:          seeds,
	})
	if err := scheduler.Start(); err != nil {
		return err
	}
	defer scheduler.Stop()

	handler := api.NewHandler(feedRepo, articleRepo, subscriberRepo, fetcher, workflow,
		newsletterMailer, sender, scheduler, api.Settings{
			Title:     appCfg.NewsletterTitle,
			Version:   appCfg.Version,
			TestEmail: appCfg.TestEmail,
		})
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if appCfg.APIAccessKey == "" {
			slog.Warn("API_ACCESS_KEY not set, admin endpoints are unprotected")
		}

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	slog.Info("RSS Digest started")

	var runErr error
	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case runErr = <-serverErrChan:
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	return runErr
}
