package cfg

import "time"

type Cfg struct {
	// Storage
	DBPath    string
	FeedsFile string

	// HTTP server
	Port         string
	APIAccessKey string

	// Feed fetching
	FetchSchedule  string
	FetchTimeout   time.Duration
	FetchOnStartup bool
	ExtractContent bool

	// Newsletter generation
	NewsletterSchedule string
	NewsletterTitle    string
	OpenAIAPIKey       string
	OpenAIBaseURL      string
	OpenAIModel        string
	LLMTimeout         time.Duration
	LLMMaxTokens       int

	// Email delivery
	EmailFrom           string
	AWSRegion           string
	SESConfigurationSet string
	UnsubscribeURL      string
	TestEmail           string

	// Workers
	WorkerCount int
	TaskTimeout time.Duration

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
