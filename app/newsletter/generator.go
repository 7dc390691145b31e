package newsletter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lysyi3m/rss-digest/app/database"
)

const (
	systemPrompt = "You are a professional newsletter curator. Create a concise, engaging daily newsletter from the provided articles. Include brief summaries and maintain a consistent, professional tone."

	contentPreviewLength = 300
	defaultTemperature   = 0.7
	defaultMaxTokens     = 1000
)

// CompletionRequest is a single chat completion call.
type CompletionRequest struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// Completer produces text for a prompt, typically through an LLM API.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// GenerationError means no newsletter content could be produced.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("newsletter generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

type Generator struct {
	completer Completer
	maxTokens int
	timeout   time.Duration
}

// NewGenerator returns a generator; a zero timeout leaves the call bounded
// only by ctx.
func NewGenerator(completer Completer, maxTokens int, timeout time.Duration) *Generator {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &Generator{
		completer: completer,
		maxTokens: maxTokens,
		timeout:   timeout,
	}
}

// Generate returns an HTML fragment summarizing articles.
func (g *Generator) Generate(ctx context.Context, articles []database.Article) (string, error) {
	if len(articles) == 0 {
		return "", &GenerationError{Err: errors.New("no articles to summarize")}
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	content, err := g.completer.Complete(ctx, CompletionRequest{
		System:      systemPrompt,
		Prompt:      BuildPrompt(articles),
		Temperature: defaultTemperature,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", &GenerationError{Err: fmt.Errorf("completion timed out: %w", err)}
		}
		return "", &GenerationError{Err: err}
	}

	content = stripCodeFence(content)
	if content == "" {
		return "", &GenerationError{Err: errors.New("completion returned empty content")}
	}

	return content, nil
}

// BuildPrompt lists the articles grouped by feed, feeds in first-seen order.
func BuildPrompt(articles []database.Article) string {
	var order []string
	groups := make(map[string][]database.Article)
	for _, article := range articles {
		if _, ok := groups[article.FeedName]; !ok {
			order = append(order, article.FeedName)
		}
		groups[article.FeedName] = append(groups[article.FeedName], article)
	}

	var b strings.Builder
	b.WriteString("Please create a comprehensive newsletter combining news from multiple RSS feeds.\n\n")
	b.WriteString("Available Sources and Articles:\n")

	for _, name := range order {
		fmt.Fprintf(&b, "\nSource: %s\n", name)
		for _, article := range groups[name] {
			fmt.Fprintf(&b, "- Title: %s\n", article.Title)
			fmt.Fprintf(&b, "  URL: %s\n", article.URL)
			fmt.Fprintf(&b, "  Published: %s\n", article.PublishDate.Local().Format("Jan 2, 2006 15:04 MST"))
			fmt.Fprintf(&b, "  Content: %s\n", contentPreview(article.Content))
		}
		b.WriteString("---\n")
	}

	b.WriteString(`
Create a newsletter that:
1. Highlights the most important stories across all feeds
2. Groups related topics together regardless of source
3. Provides context when similar stories appear in multiple feeds
4. Includes a balanced representation from all sources
5. Prioritizes the most recent and most significant stories

Format the content with:
1. A main headline (h1)
2. An executive summary of the day's most important news
3. Major stories with detailed coverage
4. Quick hits for other notable stories
5. Clear attribution to sources

Use appropriate HTML tags (h1, h2, h3, p, ul, li, a) for formatting, but do not include any styling or HTML boilerplate.`)

	return b.String()
}

func contentPreview(content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return "No content available"
	}

	runes := []rune(content)
	if len(runes) > contentPreviewLength {
		return string(runes[:contentPreviewLength])
	}
	return content
}

// stripCodeFence removes a markdown code fence the model sometimes wraps
// HTML in.
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}

	content = strings.TrimPrefix(content, "```")
	if i := strings.IndexByte(content, '\n'); i >= 0 {
		content = content[i+1:]
	} else {
		content = ""
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")

	return strings.TrimSpace(content)
}
