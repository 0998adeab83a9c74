// Package transcription turns audio files into timed transcripts through an
// external speech recognizer.
//
// Every provider normalizes its response into a Transcript, so callers never
// see provider specific shapes. Timed transcripts carry segments; flat ones
// carry only text.
package transcription

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"subflick/internal/captions"
	"subflick/internal/retry"
)

// ErrBusy is returned when the recognizer is saturated and the request was not queued.
var ErrBusy = errors.New("transcription: recognizer busy")

// Audio names a local audio file to transcribe.
type Audio struct {
	Path     string
	Filename string
}

// Transcript is a normalized recognizer response.
type Transcript struct {
	Text     string
	Language string
	Duration time.Duration
	// Timed is set when the recognizer returned segment timings, even if it
	// returned zero segments.
	Timed    bool
	Segments []captions.Cue
}

// Transcriber converts audio into a Transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, audio Audio) (*Transcript, error)
}

// Provider is a named Transcriber backed by one recognizer service.
type Provider interface {
	Transcriber
	Name() string
}

// Options configures a provider. Fields a provider does not use are ignored.
type Options struct {
	APIKey          string
	BaseURL         string
	Model           string
	ResponseFormat  string
	Language        string
	Timeout         time.Duration
	CredentialsFile string
	Retry           retry.Policy
	HTTPClient      *http.Client
	Log             logrus.FieldLogger
}

func (o Options) logger() logrus.FieldLogger {
	if o.Log == nil {
		return logrus.StandardLogger()
	}
	return o.Log
}

// StatusError is an unsuccessful HTTP reply from a recognizer.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Temporary reports whether the request may succeed if repeated.
func (e *StatusError) Temporary() bool { return retry.RetryableStatus(e.StatusCode) }
