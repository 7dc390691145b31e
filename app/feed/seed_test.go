package feed

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feeds.yml")
	content := `feeds:
  - name: Hacker News
    url: https://news.ycombinator.com/rss
  - name: "  Go Blog "
    url: https://go.dev/blog/feed.atom
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write seed file: %v", err)
	}

	feeds, err := LoadSeedFile(path)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(feeds) != 2 {
		t.Fatalf("Expected 2 feeds, got: %d", len(feeds))
	}
	if feeds[1].Name != "Go Blog" {
		t.Errorf("Expected trimmed name 'Go Blog', got: %q", feeds[1].Name)
	}
}

func TestLoadSeedFileMissing(t *testing.T) {
	if _, err := LoadSeedFile(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestParseSeedValidation(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing name", "feeds:\n  - url: https://example.com/rss\n"},
		{"missing url", "feeds:\n  - name: Example\n"},
		{"relative url", "feeds:\n  - name: Example\n    url: /rss\n"},
		{"unsupported scheme", "feeds:\n  - name: Example\n    url: ftp://example.com/rss\n"},
		{"duplicate url", "feeds:\n  - name: A\n    url: https://example.com/rss\n  - name: B\n    url: https://example.com/rss\n"},
		{"malformed yaml", "feeds: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseSeed([]byte(tt.data)); err == nil {
				t.Errorf("Expected error for %s", tt.name)
			}
		})
	}
}
