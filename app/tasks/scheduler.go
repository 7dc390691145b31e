package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lysyi3m/rss-digest/app/database"
	"github.com/lysyi3m/rss-digest/app/feed"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// ErrTaskPending is returned when a task of the same type is already queued
// or running.
var ErrTaskPending = errors.New("task of this type is already pending")

const queueSize = 32

type Config struct {
	FetchSchedule      string
	NewsletterSchedule string
	Location           *time.Location
	WorkerCount        int
	TaskTimeout        time.Duration
	FetchOnStartup     bool
	SeedFeeds          []feed.SeedFeed
}

type Scheduler struct {
	fetcher  FeedFetcher
	workflow NewsletterRunner
	feedRepo database.FeedRepository
	config   Config

	cron      *cron.Cron
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	taskQueue chan TaskInterface

	mu      sync.Mutex
	pending map[TaskType]string
}

func NewScheduler(fetcher FeedFetcher, workflow NewsletterRunner, feedRepo database.FeedRepository, config Config) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	if config.Location == nil {
		config.Location = time.Local
	}
	if config.WorkerCount < 1 {
		config.WorkerCount = 1
	}
	if config.TaskTimeout <= 0 {
		config.TaskTimeout = 15 * time.Minute
	}

	return &Scheduler{
		fetcher:   fetcher,
		workflow:  workflow,
		feedRepo:  feedRepo,
		config:    config,
		cron:      cron.New(cron.WithLocation(config.Location)),
		ctx:       ctx,
		cancel:    cancel,
		taskQueue: make(chan TaskInterface, queueSize),
		pending:   make(map[TaskType]string),
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.config.FetchSchedule, func() {
		s.trigger(NewFetchFeedsTask(s.fetcher))
	}); err != nil {
		return fmt.Errorf("invalid fetch schedule %q: %w", s.config.FetchSchedule, err)
	}

	if _, err := s.cron.AddFunc(s.config.NewsletterSchedule, func() {
		s.trigger(NewSendNewsletterTask(s.workflow))
	}); err != nil {
		return fmt.Errorf("invalid newsletter schedule %q: %w", s.config.NewsletterSchedule, err)
	}

	for i := 0; i < s.config.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.enqueueStartupTasks()
	s.cron.Start()

	slog.Info("Scheduler started",
		"workers", s.config.WorkerCount,
		"fetch_schedule", s.config.FetchSchedule,
		"newsletter_schedule", s.config.NewsletterSchedule,
		"timezone", s.config.Location.String())

	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.cancel()
	s.wg.Wait()
}

// EnqueueTask queues a task unless one of the same type is already queued or
// running.
func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}

	if err := s.acquire(task); err != nil {
		return err
	}

	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		s.release(task)
		return s.ctx.Err()
	default:
		s.release(task)
		return fmt.Errorf("task queue is full")
	}
}

// TriggerNewsletter queues a newsletter run and returns its task id.
func (s *Scheduler) TriggerNewsletter() (string, error) {
	task := NewSendNewsletterTask(s.workflow)
	if err := s.EnqueueTask(task); err != nil {
		return "", err
	}
	return task.GetID(), nil
}

func (s *Scheduler) Pending() []TaskType {
	s.mu.Lock()
	defer s.mu.Unlock()

	types := make([]TaskType, 0, len(s.pending))
	for taskType := range s.pending {
		types = append(types, taskType)
	}
	return types
}

func (s *Scheduler) trigger(task TaskInterface) {
	err := s.EnqueueTask(task)
	switch {
	case errors.Is(err, ErrTaskPending):
		slog.Info("Skipping scheduled task, previous run still pending", "type", task.GetType())
	case err != nil:
		slog.Warn("Failed to enqueue scheduled task", "type", task.GetType(), "error", err)
	default:
		slog.Debug("Scheduled task enqueued", "type", task.GetType(), "id", task.GetID())
	}
}

func (s *Scheduler) enqueueStartupTasks() {
	// Seed feeds are synced inline so the startup fetch sees them.
	if len(s.config.SeedFeeds) > 0 {
		task := NewSyncFeedsTask(s.config.SeedFeeds, s.feedRepo)
		if err := s.acquire(task); err == nil {
			s.executeTask(-1, task)
		}
	}

	if s.config.FetchOnStartup {
		s.trigger(NewFetchFeedsTask(s.fetcher))
	}
}

func (s *Scheduler) acquire(task TaskInterface) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pending[task.GetType()]; ok {
		return ErrTaskPending
	}
	s.pending[task.GetType()] = task.GetID()
	return nil
}

func (s *Scheduler) release(task TaskInterface) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending[task.GetType()] == task.GetID() {
		delete(s.pending, task.GetType())
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	defer s.release(task)

	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, s.config.TaskTimeout)
	defer cancel()

	if err := task.Execute(taskCtx); err != nil {
		slog.Error("Worker task execution failed",
			"worker_id", workerID,
			"type", string(task.GetType()),
			"id", task.GetID(),
			"duration", task.GetDuration(),
			"error", err)
	}
}
