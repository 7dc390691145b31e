package feed

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Feeds []SeedFeed `yaml:"feeds"`
}

// LoadSeedFile reads the feeds declared in a YAML file of the form:
//
//	feeds:
//	  - name: Hacker News
//	    url: https://news.ycombinator.com/rss
func LoadSeedFile(path string) ([]SeedFeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	return parseSeed(data)
}

func parseSeed(data []byte) ([]SeedFeed, error) {
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	seen := make(map[string]bool, len(file.Feeds))
	feeds := make([]SeedFeed, 0, len(file.Feeds))
	for i, f := range file.Feeds {
		f.Name = strings.TrimSpace(f.Name)
		f.URL = strings.TrimSpace(f.URL)

		if err := ValidateFeed(f.Name, f.URL); err != nil {
			return nil, fmt.Errorf("invalid feed #%d: %w", i+1, err)
		}
		if seen[f.URL] {
			return nil, fmt.Errorf("invalid feed #%d: duplicate url %s", i+1, f.URL)
		}
		seen[f.URL] = true

		feeds = append(feeds, f)
	}

	return feeds, nil
}

// ValidateFeed checks that a feed has a name and an absolute http(s) URL.
func ValidateFeed(name, feedURL string) error {
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if feedURL == "" {
		return fmt.Errorf("url is required")
	}

	u, err := url.Parse(feedURL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("url must be an absolute http(s) URL")
	}

	return nil
}
