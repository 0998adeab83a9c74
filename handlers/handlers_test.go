package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus/hooks/test"

	"subflick/internal/captions"
	"subflick/internal/orchestrator"
	"subflick/internal/translation"
	"subflick/models"
)

type fakeProcessor struct {
	err      error
	panics   bool
	seen     orchestrator.Upload
	seenBody string
}

func (f *fakeProcessor) Process(_ context.Context, up orchestrator.Upload) (*orchestrator.Result, error) {
	f.seen = up
	if up.Reader != nil {
		b, _ := io.ReadAll(up.Reader)
		f.seenBody = string(b)
	}
	if f.panics {
		panic("pipeline exploded")
	}
	if f.err != nil {
		return nil, f.err
	}
	return &orchestrator.Result{
		RequestID:      up.RequestID,
		Filename:       up.Filename,
		Checksum:       "abc",
		Size:           up.Size,
		Mode:           orchestrator.ModeCaptions,
		TargetLanguage: "Sinhala",
		Original:       "1\n00:00:00,000 --> 00:00:01,000\nhi\n\n",
		Segments:       []captions.Cue{{StartSec: 0, EndSec: 1, Line: "hi"}},
		Translation: translation.Outcome{
			Status:         translation.StatusTranslated,
			TargetLanguage: "Sinhala",
			Text:           "1\n00:00:00,000 --> 00:00:01,000\nආයුබෝවන්\n\n",
		},
		Timings: orchestrator.Timings{Total: 1500 * time.Millisecond},
	}, nil
}

type fakeTranslator struct {
	seen translation.Request
}

func (f *fakeTranslator) Translate(_ context.Context, req translation.Request) translation.Outcome {
	f.seen = req
	return translation.Outcome{
		Status:         translation.StatusRepaired,
		TargetLanguage: "French",
		Text:           "translated",
		Issues:         []string{"entry 1: timing changed"},
	}
}

func (f *fakeTranslator) DefaultLanguage() string { return "Sinhala" }

func newTestApp(p *fakeProcessor, tl *fakeTranslator) *fiber.App {
	logger, _ := test.NewNullLogger()
	h := NewApplicationHandler(p, tl, Status{TranscriptionProvider: "groq", Pending: func() int { return 3 }}, logger)
	return NewApp(h, AppConfig{MaxUploadBytes: 1 << 20})
}

func multipartRequest(t *testing.T, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/transcribe", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestTranscribeSuccess(t *testing.T) {
	p := &fakeProcessor{}
	app := newTestApp(p, &fakeTranslator{})

	req := multipartRequest(t, "talk.mp4", []byte("video bytes"), map[string]string{"target_language": "  si\n"})
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	requestID := resp.Header.Get("X-Request-ID")
	body := decode[models.TranscriptionResponse](t, resp)

	if body.Filename != "talk.mp4" || body.Mode != "captions" || body.RequestID != requestID || requestID == "" {
		t.Fatalf("unexpected body %+v", body)
	}
	if body.TranslatedSRT == "" || body.Translation.Status != "translated" || body.TargetLanguage != "Sinhala" {
		t.Fatalf("unexpected translation %+v", body)
	}
	if len(body.Segments) != 1 || body.Segments[0].EndTime != 1 || body.Timings.TotalMS != 1500 {
		t.Fatalf("unexpected segments or timings %+v", body)
	}
	if p.seenBody != "video bytes" || p.seen.Size != int64(len("video bytes")) {
		t.Errorf("processor saw %q (%d bytes)", p.seenBody, p.seen.Size)
	}
	if p.seen.TargetLanguage != "si" {
		t.Errorf("target language = %q, want trimmed input", p.seen.TargetLanguage)
	}
}

func TestTranscribeRequiresFile(t *testing.T) {
	p := &fakeProcessor{}
	app := newTestApp(p, &fakeTranslator{})

	resp, err := app.Test(multipartRequest(t, "", nil, map[string]string{"target_language": "fr"}), -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decode[models.ErrorResponse](t, resp)
	if body.Status != "error" || body.Code != "invalid_upload" {
		t.Fatalf("unexpected body %+v", body)
	}
	if p.seen.Filename != "" {
		t.Fatal("processor must not run without a file")
	}
}

func TestTranscribeErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
		detail string
	}{
		{&orchestrator.Error{Kind: orchestrator.KindInvalidUpload, Err: errors.New("upload is empty")}, 400, "invalid_upload", "upload is empty"},
		{&orchestrator.Error{Kind: orchestrator.KindUploadTooLarge, Err: errors.New("too big")}, 413, "upload_too_large", "too big"},
		{&orchestrator.Error{Kind: orchestrator.KindBusy, Err: errors.New("queue full")}, 503, "busy", "busy"},
		{&orchestrator.Error{Kind: orchestrator.KindExtractionFailed, Err: errors.New("no audio stream")}, 500, "extraction_failed", "no audio stream"},
		{&orchestrator.Error{Kind: orchestrator.KindTranscriptionFailed, Err: errors.New("groq: 401")}, 500, "transcription_failed", "groq: 401"},
		{errors.New("disk on fire"), 500, "internal", "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			app := newTestApp(&fakeProcessor{err: tt.err}, &fakeTranslator{})
			resp, err := app.Test(multipartRequest(t, "a.mp4", []byte("x"), nil), -1)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if tt.status == 503 && resp.Header.Get("Retry-After") == "" {
				t.Error("busy responses should carry Retry-After")
			}
			body := decode[models.ErrorResponse](t, resp)
			if body.Code != tt.code || !strings.Contains(body.Detail, tt.detail) {
				t.Fatalf("unexpected body %+v", body)
			}
		})
	}
}

func TestTranscribeRecoversPanics(t *testing.T) {
	app := newTestApp(&fakeProcessor{panics: true}, &fakeTranslator{})
	resp, err := app.Test(multipartRequest(t, "a.mp4", []byte("x"), nil), -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body := decode[models.ErrorResponse](t, resp); body.Status != "error" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func jsonRequest(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestFormatCaptions(t *testing.T) {
	app := newTestApp(&fakeProcessor{}, &fakeTranslator{})

	resp, err := app.Test(jsonRequest("/captions/format",
		`{"segments":[{"start_time":0,"end_time":2.5,"text":"Hello world"},{"start_time":2.5,"end_time":5,"text":"This is a test"}]}`))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decode[models.FormatCaptionsResponse](t, resp)
	want := "1\n00:00:00,000 --> 00:00:02,500\nHello world\n\n2\n00:00:02,500 --> 00:00:05,000\nThis is a test\n\n"
	if body.SRT != want || body.Entries != 2 {
		t.Fatalf("unexpected body %+v", body)
	}

	resp, err = app.Test(jsonRequest("/captions/format", `{"segments":[]}`))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if body := decode[models.FormatCaptionsResponse](t, resp); body.SRT != "" || body.Entries != 0 {
		t.Fatalf("empty input should give an empty payload, got %+v", body)
	}
}

func TestFormatCaptionsValidation(t *testing.T) {
	app := newTestApp(&fakeProcessor{}, &fakeTranslator{})
	tests := map[string]string{
		"end before start": `{"segments":[{"start_time":3,"end_time":2,"text":"x"}]}`,
		"negative start":   `{"segments":[{"start_time":-1,"end_time":2,"text":"x"}]}`,
		"missing segments": `{}`,
		"bad json":         `{"segments":`,
	}
	for name, payload := range tests {
		t.Run(name, func(t *testing.T) {
			resp, err := app.Test(jsonRequest("/captions/format", payload))
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != fiber.StatusBadRequest {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			if body := decode[models.ErrorResponse](t, resp); body.Detail == "" {
				t.Fatal("expected a detail message")
			}
		})
	}
}

func TestTranslateCaptions(t *testing.T) {
	tl := &fakeTranslator{}
	app := newTestApp(&fakeProcessor{}, tl)

	resp, err := app.Test(jsonRequest("/captions/translate", `{"srt":"1\n00:00:00,000 --> 00:00:01,000\nhi\n\n","target_language":"fr"}`))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decode[models.TranslateCaptionsResponse](t, resp)
	if body.Translation.Status != "repaired" || body.TranslatedSRT != "translated" || body.TargetLanguage != "French" {
		t.Fatalf("unexpected body %+v", body)
	}
	if len(body.Translation.Issues) != 1 {
		t.Errorf("issues not passed through: %+v", body.Translation)
	}
	if tl.seen.Kind != translation.KindCaptions || tl.seen.TargetLanguage != "fr" {
		t.Errorf("translator saw %+v", tl.seen)
	}

	resp, err = app.Test(jsonRequest("/captions/translate", `{"target_language":"fr"}`))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("missing srt: status = %d", resp.StatusCode)
	}
}

func TestHealthAndUnknownRoute(t *testing.T) {
	app := newTestApp(&fakeProcessor{}, &fakeTranslator{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	health := decode[models.HealthResponse](t, resp)
	if health.Status != "ok" || health.PendingTranscriptions != 3 || health.DefaultTargetLanguage != "Sinhala" {
		t.Fatalf("unexpected health %+v", health)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/nope", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body := decode[models.ErrorResponse](t, resp); body.Status != "error" {
		t.Fatalf("unexpected body %+v", body)
	}
}
