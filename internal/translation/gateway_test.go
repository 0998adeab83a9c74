package translation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/sirupsen/logrus/hooks/test"

	"subflick/internal/captions"
)

type fakeModel struct {
	reply   string
	err     error
	calls   int
	prompts []string
}

func (f *fakeModel) Name() string { return "fake" }

func (f *fakeModel) Complete(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

const sourceSRT = "1\n00:00:00,000 --> 00:00:01,500\nHi\n\n2\n00:00:01,500 --> 00:00:03,000\nthere\n\n"

func newTestGateway(m Model, maxChars int) *Gateway {
	log, _ := test.NewNullLogger()
	return NewGateway(m, GatewayConfig{DefaultLanguage: "Sinhala", MaxInputChars: maxChars}, log)
}

func TestTranslateCaptions(t *testing.T) {
	m := &fakeModel{reply: "```srt\n1\n00:00:00,000 --> 00:00:01,500\nආයුබෝවන්\n\n2\n00:00:01,500 --> 00:00:03,000\nඑතන\n```"}
	out := newTestGateway(m, 0).Translate(context.Background(), Request{Text: sourceSRT, Kind: KindCaptions})
	if out.Status != StatusTranslated {
		t.Fatalf("status = %s (%s %v)", out.Status, out.Detail, out.Issues)
	}
	if out.TargetLanguage != "Sinhala" {
		t.Fatalf("target language = %q", out.TargetLanguage)
	}
	want := "1\n00:00:00,000 --> 00:00:01,500\nආයුබෝවන්\n\n2\n00:00:01,500 --> 00:00:03,000\nඑතන\n\n"
	if out.Text != want {
		t.Fatalf("text = %q, want %q", out.Text, want)
	}
	if !strings.Contains(m.prompts[0], "Sinhala") || !strings.Contains(m.prompts[0], sourceSRT) {
		t.Fatalf("prompt does not carry language and source:\n%s", m.prompts[0])
	}
}

func TestTranslateRepairsTimings(t *testing.T) {
	m := &fakeModel{reply: "1\n00:00:00.000 --> 00:00:01.400\nSalut\n\n3\n00:00:01,500 --> 00:00:03,000\nlà\n"}
	out := newTestGateway(m, 0).Translate(context.Background(), Request{Text: sourceSRT, TargetLanguage: "fr", Kind: KindCaptions})
	if out.Status != StatusRepaired {
		t.Fatalf("status = %s", out.Status)
	}
	if len(out.Issues) != 2 {
		t.Fatalf("expected 2 issues, got %v", out.Issues)
	}
	want := "1\n00:00:00,000 --> 00:00:01,500\nSalut\n\n2\n00:00:01,500 --> 00:00:03,000\nlà\n\n"
	if out.Text != want || out.TargetLanguage != "French" {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestTranslateReportsMismatch(t *testing.T) {
	tests := map[string]string{
		"dropped entry": "1\n00:00:00,000 --> 00:00:01,500\nSalut là\n",
		"chatty reply":  "Here is your translation:\n1\n00:00:00,000 --> 00:00:01,500\nSalut\n",
	}
	for name, reply := range tests {
		t.Run(name, func(t *testing.T) {
			out := newTestGateway(&fakeModel{reply: reply}, 0).Translate(context.Background(), Request{Text: sourceSRT, Kind: KindCaptions})
			if out.Status != StatusMismatch || len(out.Issues) == 0 {
				t.Fatalf("unexpected outcome %+v", out)
			}
			if out.Text != strings.TrimSpace(reply) {
				t.Fatalf("mismatch should keep the reply, got %q", out.Text)
			}
			if out.OK() {
				t.Fatal("mismatch must not count as a usable translation")
			}
		})
	}
}

func TestTranslateTranscript(t *testing.T) {
	m := &fakeModel{reply: "  bonjour le monde \n"}
	out := newTestGateway(m, 0).Translate(context.Background(), Request{Text: "hello world", TargetLanguage: "French", Kind: KindTranscript})
	if out.Status != StatusTranslated || out.Text != "bonjour le monde" {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestTranslateLengthLimit(t *testing.T) {
	faker := gofakeit.New(3)
	text := faker.Sentence(40)
	m := &fakeModel{reply: "unused"}
	g := newTestGateway(m, 10)
	out := g.Translate(context.Background(), Request{Text: text, Kind: KindTranscript})
	if out.Status != StatusSkipped || out.Text != "" || !strings.Contains(out.Detail, "limit of 10") {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if m.calls != 0 {
		t.Fatal("model was called for an oversized input")
	}

	// Runes, not bytes, are counted.
	out = g.Translate(context.Background(), Request{Text: "ආයුබෝවන්", Kind: KindTranscript})
	if out.Status != StatusTranslated {
		t.Fatalf("short multi-byte input was rejected: %+v", out)
	}
}

func TestTranslateEmptyInput(t *testing.T) {
	m := &fakeModel{}
	out := newTestGateway(m, 0).Translate(context.Background(), Request{Text: " \n ", Kind: KindCaptions})
	if out.Status != StatusSkipped || m.calls != 0 {
		t.Fatalf("unexpected outcome %+v after %d calls", out, m.calls)
	}
}

func TestTranslateModelFailure(t *testing.T) {
	m := &fakeModel{err: errors.New("gemini: unexpected status 500: boom")}
	out := newTestGateway(m, 0).Translate(context.Background(), Request{Text: sourceSRT, Kind: KindCaptions})
	if out.Status != StatusFailed || !strings.Contains(out.Detail, "boom") || out.Text != "" {
		t.Fatalf("unexpected outcome %+v", out)
	}
	out = newTestGateway(nil, 0).Translate(context.Background(), Request{Text: sourceSRT, Kind: KindCaptions})
	if out.Status != StatusFailed {
		t.Fatalf("expected failure without a model, got %+v", out)
	}
}

func TestTranslateRandomCaptions(t *testing.T) {
	faker := gofakeit.New(21)
	var cues []captions.Cue
	at := 0.0
	for i := 0; i < 30; i++ {
		d := faker.Float64Range(0.5, 4)
		cues = append(cues, captions.Cue{StartSec: at, EndSec: at + d, Line: faker.Sentence(5)})
		at += d
	}
	src, err := captions.Assemble(cues)
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}
	// An echoing model keeps the structure intact.
	out := newTestGateway(&fakeModel{reply: src}, 0).Translate(context.Background(), Request{Text: src, Kind: KindCaptions})
	if out.Status != StatusTranslated || out.Text != src {
		t.Fatalf("echoed captions did not validate: %+v", out.Issues)
	}
}

func TestTranslateCatchesDroppedEntryAfterBlankLineText(t *testing.T) {
	source, err := captions.Assemble([]captions.Cue{
		{StartSec: 0, EndSec: 1, Line: "Hi\n\nthere"},
		{StartSec: 1, EndSec: 2, Line: "bye"},
	})
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}
	m := &fakeModel{reply: "1\n00:00:00,000 --> 00:00:01,000\nSalut\nlà\n\n"}
	out := newTestGateway(m, 0).Translate(context.Background(), Request{Text: source, TargetLanguage: "fr", Kind: KindCaptions})
	if out.Status != StatusMismatch {
		t.Fatalf("status = %s (%s), want mismatch", out.Status, out.Detail)
	}
	if len(out.Issues) == 0 || !strings.Contains(out.Issues[0], "entry_count_mismatch") {
		t.Fatalf("issues = %v", out.Issues)
	}
}

func TestTranslateUnparsableSourceIsNotReportedTranslated(t *testing.T) {
	m := &fakeModel{reply: "Bonjour"}
	out := newTestGateway(m, 0).Translate(context.Background(), Request{Text: "just some words", Kind: KindCaptions})
	if out.Status != StatusMismatch || out.OK() {
		t.Fatalf("status = %s, want mismatch", out.Status)
	}
	if out.Text != "Bonjour" || len(out.Issues) != 1 || !strings.HasPrefix(out.Issues[0], "unparsable source") {
		t.Fatalf("unexpected outcome %+v", out)
	}
}
