// Package translation sends caption or transcript text to a language model and
// checks what comes back.
package translation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"subflick/internal/retry"
)

// Kind tells the gateway what shape the source text has.
type Kind string

const (
	KindCaptions   Kind = "captions"
	KindTranscript Kind = "transcript"
)

// Status is the in-band result of a translation attempt.
type Status string

const (
	StatusTranslated Status = "translated"
	// StatusRepaired means the model changed numbering or timings and the
	// original values were put back.
	StatusRepaired Status = "repaired"
	// StatusMismatch means the reply could not be aligned with the source.
	StatusMismatch Status = "mismatch"
	StatusSkipped  Status = "skipped"
	StatusFailed   Status = "failed"
)

// Request is one translation job.
type Request struct {
	Text           string
	TargetLanguage string
	Kind           Kind
}

// Outcome is what the gateway reports. Text is empty for skipped and failed
// outcomes.
type Outcome struct {
	Status         Status   `json:"status"`
	TargetLanguage string   `json:"target_language"`
	Text           string   `json:"-"`
	Detail         string   `json:"detail,omitempty"`
	Issues         []string `json:"issues,omitempty"`
}

// OK reports whether Text holds a usable translation.
func (o Outcome) OK() bool {
	return o.Status == StatusTranslated || o.Status == StatusRepaired
}

// Model is a text completion backend.
type Model interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// Options configures a Model.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	Retry      retry.Policy
	HTTPClient *http.Client
	Log        logrus.FieldLogger
}

func (o Options) withDefaults() Options {
	if o.Log == nil {
		o.Log = logrus.StandardLogger()
	}
	if o.HTTPClient == nil {
		timeout := o.Timeout
		if timeout <= 0 {
			timeout = 2 * time.Minute
		}
		o.HTTPClient = &http.Client{Timeout: timeout}
	}
	if o.Retry.Attempts == 0 {
		o.Retry = retry.DefaultPolicy()
	}
	return o
}

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// NewModel builds the named provider.
func NewModel(provider string, o Options) (Model, error) {
	switch provider {
	case ProviderGemini, "":
		return NewGemini(o)
	case ProviderOpenAI:
		return NewOpenAI(o)
	default:
		return nil, fmt.Errorf("translation provider %q not supported", provider)
	}
}

// StatusError is an unsuccessful HTTP reply from a model API.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Provider, e.StatusCode, e.Body)
}

func transient(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return retry.RetryableStatus(se.StatusCode)
	}
	return retry.NetworkError(err)
}
