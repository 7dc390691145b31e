package newsletter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/rss-digest/app/database"
)

type mockCompleter struct {
	response string
	err      error
	requests []CompletionRequest
	block    bool
}

func (m *mockCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	m.requests = append(m.requests, req)
	if m.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return m.response, m.err
}

func sampleArticles() []database.Article {
	published := time.Date(2024, 3, 4, 18, 0, 0, 0, time.UTC)
	return []database.Article{
		{ID: "1", FeedName: "Tech", Title: "Go release", URL: "https://tech.example.com/go", Content: strings.Repeat("é", 400), PublishDate: published},
		{ID: "2", FeedName: "World", Title: "Summit", URL: "https://world.example.com/summit", PublishDate: published},
		{ID: "3", FeedName: "Tech", Title: "Rust release", URL: "https://tech.example.com/rust", Content: "Short", PublishDate: published},
	}
}

func TestBuildPromptGroupsByFeed(t *testing.T) {
	prompt := BuildPrompt(sampleArticles())

	tech := strings.Index(prompt, "Source: Tech")
	world := strings.Index(prompt, "Source: World")
	if tech < 0 || world < 0 || tech > world {
		t.Fatalf("Expected Tech group before World group, got:\n%s", prompt)
	}
	if strings.Count(prompt, "Source: Tech") != 1 {
		t.Error("Expected a single Tech group")
	}

	rust := strings.Index(prompt, "Rust release")
	if rust < tech || rust > world {
		t.Error("Expected Rust release to be listed in the Tech group")
	}

	if !strings.Contains(prompt, "Content: No content available") {
		t.Error("Expected placeholder for article without content")
	}
	if strings.Contains(prompt, strings.Repeat("é", 301)) {
		t.Error("Expected content to be truncated to 300 characters")
	}
	if !strings.Contains(prompt, strings.Repeat("é", 300)) {
		t.Error("Expected first 300 characters of content")
	}
	if !strings.Contains(prompt, "https://world.example.com/summit") {
		t.Error("Expected article URL in prompt")
	}
}

func TestGenerate(t *testing.T) {
	completer := &mockCompleter{response: "```html\n<h1>Daily</h1>\n<p>News</p>\n```"}
	generator := NewGenerator(completer, 0, 0)

	content, err := generator.Generate(context.Background(), sampleArticles())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if content != "<h1>Daily</h1>\n<p>News</p>" {
		t.Errorf("Expected code fence to be stripped, got: %q", content)
	}

	req := completer.requests[0]
	if req.System != systemPrompt {
		t.Errorf("Unexpected system prompt: %s", req.System)
	}
	if req.MaxTokens != 1000 {
		t.Errorf("Expected default max tokens 1000, got %d", req.MaxTokens)
	}
	if req.Temperature != 0.7 {
		t.Errorf("Expected temperature 0.7, got %v", req.Temperature)
	}
}

func TestGenerateFailures(t *testing.T) {
	tests := []struct {
		name      string
		completer *mockCompleter
		articles  []database.Article
	}{
		{"no articles", &mockCompleter{response: "<p>x</p>"}, nil},
		{"completion error", &mockCompleter{err: errors.New("api down")}, sampleArticles()},
		{"blank completion", &mockCompleter{response: "   \n"}, sampleArticles()},
		{"empty fence", &mockCompleter{response: "```html\n```"}, sampleArticles()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGenerator(tt.completer, 500, 0).Generate(context.Background(), tt.articles)

			var genErr *GenerationError
			if !errors.As(err, &genErr) {
				t.Errorf("Expected GenerationError, got: %v", err)
			}
		})
	}
}

func TestGenerateTimeout(t *testing.T) {
	generator := NewGenerator(&mockCompleter{block: true}, 0, 10*time.Millisecond)

	_, err := generator.Generate(context.Background(), sampleArticles())

	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("Expected GenerationError, got: %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline error, got: %v", err)
	}
}
