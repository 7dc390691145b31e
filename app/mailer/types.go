package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lysyi3m/rss-digest/app/database"
)

// Sender delivers a single rendered message to one recipient.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
	Text    string
}

// Issue is one edition of the newsletter.
type Issue struct {
	Content  string
	Articles []database.Article
	Date     time.Time
}

type Failure struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

type Result struct {
	Succeeded []string  `json:"succeeded"`
	Failed    []Failure `json:"failed"`
}

// AccountStatus reports whether the provider account can send right now.
type AccountStatus struct {
	SendingEnabled    bool    `json:"sendingEnabled"`
	ProductionAccess  bool    `json:"productionAccess"`
	EnforcementStatus string  `json:"enforcementStatus,omitempty"`
	Max24HourSend     float64 `json:"max24HourSend"`
	MaxSendRate       float64 `json:"maxSendRate"`
	SentLast24Hours   float64 `json:"sentLast24Hours"`
}

type ErrorKind string

const (
	KindThrottling  ErrorKind = "throttling"
	KindTimeout     ErrorKind = "timeout"
	KindUnavailable ErrorKind = "unavailable"
	KindRejected    ErrorKind = "rejected"
	KindInvalid     ErrorKind = "invalid"
	KindUnknown     ErrorKind = "unknown"
)

func (k ErrorKind) Transient() bool {
	switch k {
	case KindThrottling, KindTimeout, KindUnavailable:
		return true
	}
	return false
}

// ProviderError is a classified failure reported by the email provider.
type ProviderError struct {
	Kind ErrorKind
	Code string
	Err  error
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider error %s (%s): %v", e.Code, e.Kind, e.Err)
	}
	return fmt.Sprintf("provider error (%s): %v", e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// DeliveryError is the final failure for one recipient after retries.
type DeliveryError struct {
	Email    string
	Attempts int
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("failed to deliver to %s after %d attempt(s): %v", e.Email, e.Attempts, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Transient reports whether the underlying provider failure was retryable.
func (e *DeliveryError) Transient() bool {
	return isTransient(e.Err)
}

// TemplateError means the newsletter template failed its self-check.
type TemplateError struct {
	Err error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("newsletter template check failed: %v", e.Err)
}

func (e *TemplateError) Unwrap() error {
	return e.Err
}

func isTransient(err error) bool {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Kind.Transient()
	}
	return false
}
