package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"subflick/internal/retry"
)

const (
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	DefaultGeminiModel   = "gemini-flash-latest"
)

// ErrEmptyReply is returned when a model answers without any text.
var ErrEmptyReply = errors.New("model returned no text")

// Gemini calls the generateContent REST endpoint.
type Gemini struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	policy  retry.Policy
	log     logrus.FieldLogger
}

// NewGemini returns a Gemini model client.
func NewGemini(o Options) (*Gemini, error) {
	o = o.withDefaults()
	if strings.TrimSpace(o.APIKey) == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	g := &Gemini{
		baseURL: strings.TrimRight(strings.TrimSpace(o.BaseURL), "/"),
		apiKey:  strings.TrimSpace(o.APIKey),
		model:   strings.TrimSpace(o.Model),
		client:  o.HTTPClient,
		policy:  o.Retry,
		log:     o.Log.WithField("provider", ProviderGemini),
	}
	if g.baseURL == "" {
		g.baseURL = DefaultGeminiBaseURL
	}
	if g.model == "" {
		g.model = DefaultGeminiModel
	}
	return g, nil
}

func (g *Gemini) Name() string { return ProviderGemini }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Complete sends prompt as a single user turn.
func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(geminiRequest{Contents: []geminiContent{{
		Role:  "user",
		Parts: []geminiPart{{Text: prompt}},
	}}})
	if err != nil {
		return "", fmt.Errorf("gemini: encode request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, url.PathEscape(g.model))

	body, err := retry.Do(ctx, g.policy, transient, g.log, func(ctx context.Context) ([]byte, error) {
		return g.post(ctx, endpoint, payload)
	})
	if err != nil {
		return "", err
	}

	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("gemini: decode response: %w", err)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("gemini: prompt blocked: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini: %w", ErrEmptyReply)
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("gemini: %w (finish reason %s)", ErrEmptyReply, resp.Candidates[0].FinishReason)
	}
	return text, nil
}

func (g *Gemini) post(ctx context.Context, endpoint string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("gemini: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini: request: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gemini: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Provider: ProviderGemini, StatusCode: resp.StatusCode, Body: clip(string(data))}
	}
	return data, nil
}

func clip(s string) string {
	const limit = 4 << 10
	s = strings.TrimSpace(s)
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
