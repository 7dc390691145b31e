package cfg

import (
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmpOr(Version, "unknown")
}

type rawCfg struct {
	// Storage
	DBPath    string `long:"db-path" env:"DB_PATH" default:"./data/digest.db" description:"SQLite database file"`
	FeedsFile string `long:"feeds-file" env:"FEEDS_FILE" description:"YAML file with feeds to register at startup (optional)"`

	// HTTP server
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for admin endpoints (optional)"`

	// Feed fetching
	FetchSchedule  string        `long:"fetch-schedule" env:"FETCH_SCHEDULE" default:"0 */6 * * *" description:"Cron expression for feed refresh"`
	FetchTimeout   time.Duration `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30s" description:"Timeout for a single feed request"`
	FetchOnStartup bool          `long:"fetch-on-startup" env:"FETCH_ON_STARTUP" description:"Fetch all feeds once when the service starts"`
	ExtractContent bool          `long:"extract-content" env:"EXTRACT_CONTENT" description:"Extract article text from the page when a feed item has no body"`

	// Newsletter generation
	NewsletterSchedule string        `long:"newsletter-schedule" env:"NEWSLETTER_SCHEDULE" default:"0 7 * * *" description:"Cron expression for the daily newsletter"`
	NewsletterTitle    string        `long:"newsletter-title" env:"NEWSLETTER_TITLE" default:"Daily Newsletter" description:"Title used in the email subject and header"`
	OpenAIAPIKey       string        `long:"openai-api-key" env:"OPENAI_API_KEY" description:"OpenAI API key"`
	OpenAIBaseURL      string        `long:"openai-base-url" env:"OPENAI_BASE_URL" description:"Override for OpenAI compatible endpoints (optional)"`
	OpenAIModel        string        `long:"openai-model" env:"OPENAI_MODEL" default:"gpt-4o-mini" description:"Chat completion model"`
	LLMTimeout         time.Duration `long:"llm-timeout" env:"LLM_TIMEOUT" default:"0s" description:"Timeout for newsletter generation, 0 disables it"`
	LLMMaxTokens       int           `long:"llm-max-tokens" env:"LLM_MAX_TOKENS" default:"1000" description:"Max tokens for the generated newsletter"`

	// Email delivery
	EmailFrom           string `long:"email-from" env:"EMAIL_FROM" description:"Sender address for newsletters"`
	AWSRegion           string `long:"aws-region" env:"AWS_REGION" default:"us-east-1" description:"AWS region for SES"`
	SESConfigurationSet string `long:"ses-configuration-set" env:"SES_CONFIGURATION_SET" description:"SES configuration set (optional)"`
	UnsubscribeURL      string `long:"unsubscribe-url" env:"UNSUBSCRIBE_URL" description:"Base URL of the unsubscribe page (optional)"`
	TestEmail           string `long:"test-email" env:"TEST_EMAIL" description:"Recipient for test sends from the admin API (optional)"`

	// Workers
	WorkerCount int           `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers"`
	TaskTimeout time.Duration `long:"task-timeout" env:"TASK_TIMEOUT" default:"15m" description:"Timeout for a single background task"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"RSS Digest/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for schedules and dates (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

func Load() (*Cfg, error) {
	return LoadArgs(os.Args[1:])
}

// LoadArgs parses the given arguments with environment fallbacks. A nil
// config with a nil error means help was requested.
func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if raw.WorkerCount < 1 {
		return nil, fmt.Errorf("worker count must be at least 1, got %d", raw.WorkerCount)
	}
	if raw.LLMMaxTokens < 1 {
		return nil, fmt.Errorf("llm max tokens must be positive, got %d", raw.LLMMaxTokens)
	}

	cfg := &Cfg{
		DBPath:              raw.DBPath,
		FeedsFile:           raw.FeedsFile,
		Port:                raw.Port,
		APIAccessKey:        raw.APIAccessKey,
		FetchSchedule:       raw.FetchSchedule,
		FetchTimeout:        raw.FetchTimeout,
		FetchOnStartup:      raw.FetchOnStartup,
		ExtractContent:      raw.ExtractContent,
		NewsletterSchedule:  raw.NewsletterSchedule,
		NewsletterTitle:     raw.NewsletterTitle,
		OpenAIAPIKey:        raw.OpenAIAPIKey,
		OpenAIBaseURL:       raw.OpenAIBaseURL,
		OpenAIModel:         raw.OpenAIModel,
		LLMTimeout:          raw.LLMTimeout,
		LLMMaxTokens:        raw.LLMMaxTokens,
		EmailFrom:           raw.EmailFrom,
		AWSRegion:           raw.AWSRegion,
		SESConfigurationSet: raw.SESConfigurationSet,
		UnsubscribeURL:      raw.UnsubscribeURL,
		TestEmail:           raw.TestEmail,
		WorkerCount:         raw.WorkerCount,
		TaskTimeout:         raw.TaskTimeout,
		UserAgent:           raw.UserAgent,
		Timezone:            raw.Timezone,
		Debug:               raw.Debug,
		Version:             GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

// Location returns the configured timezone, falling back to time.Local.
func (c *Cfg) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
