package transcription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"subflick/internal/captions"
	"subflick/internal/retry"
)

const (
	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"

	DefaultGroqBaseURL   = "https://api.groq.com/openai/v1"
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultWhisperModel  = "whisper-large-v3"

	FormatVerboseJSON = "verbose_json"
	FormatJSON        = "json"
	FormatText        = "text"

	maxErrorBody = 4 << 10
)

// Whisper talks to an OpenAI compatible /audio/transcriptions endpoint.
type Whisper struct {
	name           string
	baseURL        string
	apiKey         string
	model          string
	responseFormat string
	language       string
	client         *http.Client
	policy         retry.Policy
	log            logrus.FieldLogger
}

// NewWhisper builds a provider for Groq, OpenAI or any compatible server.
func NewWhisper(name string, o Options) (*Whisper, error) {
	w := &Whisper{
		name:           name,
		baseURL:        strings.TrimRight(strings.TrimSpace(o.BaseURL), "/"),
		apiKey:         strings.TrimSpace(o.APIKey),
		model:          strings.TrimSpace(o.Model),
		responseFormat: strings.TrimSpace(o.ResponseFormat),
		language:       strings.TrimSpace(o.Language),
		client:         o.HTTPClient,
		policy:         o.Retry,
		log:            o.logger().WithField("provider", name),
	}
	if w.baseURL == "" {
		w.baseURL = DefaultGroqBaseURL
		if name == ProviderOpenAI {
			w.baseURL = DefaultOpenAIBaseURL
		}
	}
	if w.model == "" {
		w.model = DefaultWhisperModel
		if name == ProviderOpenAI {
			w.model = "whisper-1"
		}
	}
	switch w.responseFormat {
	case "":
		w.responseFormat = FormatVerboseJSON
	case FormatVerboseJSON, FormatJSON, FormatText:
	default:
		return nil, fmt.Errorf("%s: unsupported response format %q", name, w.responseFormat)
	}
	if w.apiKey == "" {
		return nil, fmt.Errorf("%s: api key is required", name)
	}
	if w.client == nil {
		timeout := o.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Minute
		}
		w.client = &http.Client{Timeout: timeout}
	}
	if w.policy.Attempts == 0 {
		w.policy = retry.DefaultPolicy()
	}
	return w, nil
}

func (w *Whisper) Name() string { return w.name }

// Transcribe uploads the audio file and normalizes the reply.
func (w *Whisper) Transcribe(ctx context.Context, audio Audio) (*Transcript, error) {
	if _, err := os.Stat(audio.Path); err != nil {
		return nil, fmt.Errorf("%s: audio file: %w", w.name, err)
	}
	start := time.Now()
	body, err := retry.Do(ctx, w.policy, whisperTransient, w.log, func(ctx context.Context) ([]byte, error) {
		return w.post(ctx, audio)
	})
	if err != nil {
		return nil, err
	}
	t, err := w.decode(body)
	if err != nil {
		return nil, err
	}
	w.log.WithFields(logrus.Fields{
		"segments": len(t.Segments),
		"elapsed":  time.Since(start).String(),
	}).Info("transcription received")
	return t, nil
}

func whisperTransient(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return retry.NetworkError(err)
}

// post streams a multipart form so the audio is never held in memory whole.
func (w *Whisper) post(ctx context.Context, audio Audio) ([]byte, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(w.writeForm(mw, audio))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/audio/transcriptions", pr)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("%s: build request: %w", w.name, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+w.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request: %w", w.name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", w.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Provider: w.name, StatusCode: resp.StatusCode, Body: truncate(string(data), maxErrorBody)}
	}
	return data, nil
}

func (w *Whisper) writeForm(mw *multipart.Writer, audio Audio) error {
	f, err := os.Open(audio.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	name := audio.Filename
	if name == "" {
		name = filepath.Base(audio.Path)
	}
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return err
	}
	fields := [][2]string{
		{"model", w.model},
		{"response_format", w.responseFormat},
	}
	if w.responseFormat == FormatVerboseJSON {
		fields = append(fields, [2]string{"timestamp_granularities[]", "segment"})
	}
	if w.language != "" {
		fields = append(fields, [2]string{"language", w.language})
	}
	for _, kv := range fields {
		if err := mw.WriteField(kv[0], kv[1]); err != nil {
			return err
		}
	}
	return mw.Close()
}

type verboseResponse struct {
	Text     string         `json:"text"`
	Language string         `json:"language"`
	Duration float64        `json:"duration"`
	Segments []captions.Cue `json:"segments"`
}

func (w *Whisper) decode(body []byte) (*Transcript, error) {
	switch w.responseFormat {
	case FormatText:
		return &Transcript{Text: strings.TrimSpace(string(body))}, nil
	case FormatJSON:
		var out struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("%s: decode response: %w", w.name, err)
		}
		return &Transcript{Text: strings.TrimSpace(out.Text)}, nil
	default:
		var out verboseResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("%s: decode response: %w", w.name, err)
		}
		segments := out.Segments
		if segments == nil {
			segments = []captions.Cue{}
		}
		return &Transcript{
			Text:     strings.TrimSpace(out.Text),
			Language: out.Language,
			Duration: time.Duration(out.Duration * float64(time.Second)),
			Timed:    true,
			Segments: segments,
		}, nil
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
