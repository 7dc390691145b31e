package mailer

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/lysyi3m/rss-digest/app/database"
)

//go:embed templates/newsletter.html
var templateFS embed.FS

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second

	sampleTitle = "Test Article"
)

type templateData struct {
	Title          string
	Date           string
	Content        template.HTML
	Articles       []database.Article
	UnsubscribeURL string
}

type Config struct {
	From           string
	Title          string
	UnsubscribeURL string
}

type Mailer struct {
	sender    Sender
	cfg       Config
	tmpl      *template.Template
	converter *md.Converter

	maxRetries int
	baseDelay  time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
}

func New(sender Sender, cfg Config) (*Mailer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/newsletter.html")
	if err != nil {
		return nil, &TemplateError{Err: err}
	}

	return newMailer(sender, cfg, tmpl), nil
}

func newMailer(sender Sender, cfg Config, tmpl *template.Template) *Mailer {
	if cfg.Title == "" {
		cfg.Title = "Daily Newsletter"
	}

	return &Mailer{
		sender:     sender,
		cfg:        cfg,
		tmpl:       tmpl,
		converter:  md.NewConverter("", true, nil),
		maxRetries: DefaultMaxRetries,
		baseDelay:  DefaultBaseDelay,
		sleep:      sleepContext,
	}
}

// TemplateReport describes the outcome of rendering the template with
// sample data.
type TemplateReport struct {
	Success         bool   `json:"success"`
	RenderedLength  int    `json:"renderedLength"`
	ContainsArticle bool   `json:"containsArticle"`
	Sample          string `json:"sample"`
}

// CheckTemplate renders the template with a synthetic issue and verifies the
// output is a parseable document that carries the sample article.
func (m *Mailer) CheckTemplate() (*TemplateReport, error) {
	now := time.Now()
	sample := Issue{
		Content: "<h1>Sample headline</h1><p>Sample summary.</p>",
		Date:    now,
		Articles: []database.Article{{
			ID:          "sample",
			FeedName:    "Test Feed",
			Title:       sampleTitle,
			Content:     "Test Content",
			URL:         "https://example.com",
			PublishDate: now,
		}},
	}

	rendered, err := m.render(sample, "#")
	if err != nil {
		return nil, &TemplateError{Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rendered))
	if err != nil {
		return nil, &TemplateError{Err: fmt.Errorf("rendered output is not valid HTML: %w", err)}
	}

	body := doc.Find("body")
	if body.Length() == 0 || strings.TrimSpace(body.Text()) == "" {
		return nil, &TemplateError{Err: errors.New("rendered output has an empty body")}
	}

	report := &TemplateReport{
		Success:         true,
		RenderedLength:  len(rendered),
		ContainsArticle: strings.Contains(body.Text(), sampleTitle),
		Sample:          truncate(rendered, 200),
	}
	if !report.ContainsArticle {
		return nil, &TemplateError{Err: errors.New("rendered output does not contain the sample article")}
	}

	return report, nil
}

// SendNewsletter delivers the issue to every active subscriber. A failing
// recipient is recorded in the result and does not stop the batch.
func (m *Mailer) SendNewsletter(ctx context.Context, subscribers []database.Subscriber, issue Issue) (*Result, error) {
	if m.cfg.From == "" {
		return nil, errors.New("sender address is not configured")
	}

	if _, err := m.CheckTemplate(); err != nil {
		return nil, err
	}

	subject := m.Subject(issue.Date)
	result := &Result{
		Succeeded: []string{},
		Failed:    []Failure{},
	}

	for _, subscriber := range subscribers {
		if !subscriber.Active {
			slog.Debug("Skipping inactive subscriber", "email", subscriber.Email)
			continue
		}

		msg, err := m.compose(subscriber.Email, subject, issue)
		if err == nil {
			err = m.deliver(ctx, msg)
		}

		if err != nil {
			slog.Error("Newsletter delivery failed", "email", subscriber.Email, "error", err)
			result.Failed = append(result.Failed, Failure{Email: subscriber.Email, Reason: err.Error()})
			continue
		}

		slog.Debug("Newsletter delivered", "email", subscriber.Email)
		result.Succeeded = append(result.Succeeded, subscriber.Email)
	}

	slog.Info("Newsletter batch completed",
		"subject", subject,
		"succeeded", len(result.Succeeded),
		"failed", len(result.Failed))

	return result, nil
}

func (m *Mailer) Subject(date time.Time) string {
	return fmt.Sprintf("%s - %s", m.cfg.Title, date.Format("Jan 2, 2006"))
}

func (m *Mailer) compose(email, subject string, issue Issue) (Message, error) {
	html, err := m.render(issue, m.unsubscribeLink(email))
	if err != nil {
		return Message{}, fmt.Errorf("failed to render newsletter: %w", err)
	}

	text, err := m.converter.ConvertString(html)
	if err != nil {
		return Message{}, fmt.Errorf("failed to build text version: %w", err)
	}

	return Message{
		From:    m.cfg.From,
		To:      email,
		Subject: subject,
		HTML:    html,
		Text:    text,
	}, nil
}

// deliver sends msg, retrying transient provider failures with exponential
// backoff.
func (m *Mailer) deliver(ctx context.Context, msg Message) error {
	attempt := 0
	for {
		err := m.sender.Send(ctx, msg)
		attempt++
		if err == nil {
			return nil
		}

		if attempt > m.maxRetries || !isTransient(err) {
			return &DeliveryError{Email: msg.To, Attempts: attempt, Err: err}
		}

		delay := m.baseDelay * time.Duration(1<<(attempt-1))
		slog.Warn("Retrying newsletter delivery",
			"email", msg.To,
			"attempt", attempt,
			"delay", delay,
			"error", err)

		if err := m.sleep(ctx, delay); err != nil {
			return &DeliveryError{Email: msg.To, Attempts: attempt, Err: err}
		}
	}
}

func (m *Mailer) render(issue Issue, unsubscribeURL string) (string, error) {
	data := templateData{
		Title:          m.cfg.Title,
		Date:           issue.Date.Format("Monday, January 2, 2006"),
		Content:        template.HTML(issue.Content),
		Articles:       issue.Articles,
		UnsubscribeURL: unsubscribeURL,
	}

	var buf bytes.Buffer
	if err := m.tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (m *Mailer) unsubscribeLink(email string) string {
	if m.cfg.UnsubscribeURL == "" {
		return ""
	}

	u, err := url.Parse(m.cfg.UnsubscribeURL)
	if err != nil {
		return m.cfg.UnsubscribeURL
	}
	query := u.Query()
	query.Set("email", email)
	u.RawQuery = query.Encode()
	return u.String()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
