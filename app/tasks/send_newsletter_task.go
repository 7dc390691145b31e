package tasks

import (
	"context"
	"log/slog"
)

type SendNewsletterTask struct {
	Task
	workflow NewsletterRunner
}

func NewSendNewsletterTask(workflow NewsletterRunner) *SendNewsletterTask {
	return &SendNewsletterTask{
		Task:     NewTask(TaskTypeSendNewsletter),
		workflow: workflow,
	}
}

func (t *SendNewsletterTask) Execute(ctx context.Context) error {
	report, err := t.workflow.Run(ctx)
	if err != nil {
		return err
	}

	if report.Skipped != "" {
		slog.Info("Task completed", "type", t.GetType(), "duration", t.GetDuration(), "skipped", report.Skipped)
		return nil
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"articles", report.Articles,
		"processed", report.Processed)

	return nil
}
