package transcription

import (
	"context"
	"errors"
	"testing"
	"time"

	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/sirupsen/logrus/hooks/test"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"subflick/internal/retry"
)

type fakeRecognizer struct {
	errs  []error
	resp  *speechpb.LongRunningRecognizeResponse
	calls int
	last  *speechpb.LongRunningRecognizeRequest
}

func (f *fakeRecognizer) Recognize(_ context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error) {
	f.calls++
	f.last = req
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return f.resp, nil
}

func (f *fakeRecognizer) Close() error { return nil }

func word(text string, start, end float64) *speechpb.WordInfo {
	return &speechpb.WordInfo{
		Word:      text,
		StartTime: durationpb.New(time.Duration(start * float64(time.Second))),
		EndTime:   durationpb.New(time.Duration(end * float64(time.Second))),
	}
}

func gcpOptions() Options {
	log, _ := test.NewNullLogger()
	return Options{
		Language: "en-US",
		Retry:    retry.Policy{Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
		Log:      log,
	}
}

func TestGoogleSpeechGroupsWords(t *testing.T) {
	rec := &fakeRecognizer{
		errs: []error{status.Error(codes.Unavailable, "try again")},
		resp: &speechpb.LongRunningRecognizeResponse{Results: []*speechpb.SpeechRecognitionResult{{
			Alternatives: []*speechpb.SpeechRecognitionAlternative{{
				Transcript: "hello world again",
				Words: []*speechpb.WordInfo{
					word("hello", 0, 0.5),
					word("world", 0.5, 1.2),
					word("again", 7.0, 7.6),
				},
			}},
			ResultEndTime: durationpb.New(8 * time.Second),
		}}},
	}
	g := newGoogleSpeech(rec, gcpOptions())
	tr, err := g.Transcribe(context.Background(), writeAudio(t))
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if rec.calls != 2 {
		t.Fatalf("expected a retry after Unavailable, got %d calls", rec.calls)
	}
	if rec.last.GetConfig().GetEncoding() != speechpb.RecognitionConfig_MP3 || !rec.last.GetConfig().GetEnableWordTimeOffsets() {
		t.Fatalf("unexpected config %+v", rec.last.GetConfig())
	}
	if !tr.Timed || len(tr.Segments) != 2 {
		t.Fatalf("unexpected segments %+v", tr.Segments)
	}
	if tr.Segments[0].Line != "hello world" || tr.Segments[0].EndSec != 1.2 {
		t.Fatalf("unexpected first segment %+v", tr.Segments[0])
	}
	if tr.Segments[1].Line != "again" || tr.Segments[1].StartSec != 7.0 {
		t.Fatalf("unexpected second segment %+v", tr.Segments[1])
	}
	if tr.Text != "hello world again" || tr.Duration != 8*time.Second {
		t.Fatalf("unexpected text/duration %q %v", tr.Text, tr.Duration)
	}
}

func TestGoogleSpeechPermanentError(t *testing.T) {
	rec := &fakeRecognizer{errs: []error{status.Error(codes.InvalidArgument, "bad audio")}}
	g := newGoogleSpeech(rec, gcpOptions())
	_, err := g.Transcribe(context.Background(), writeAudio(t))
	if status.Code(errors.Unwrap(err)) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
	if rec.calls != 1 {
		t.Fatalf("expected no retry, got %d calls", rec.calls)
	}
}

func TestGoogleSpeechEmptyResponse(t *testing.T) {
	g := newGoogleSpeech(&fakeRecognizer{resp: &speechpb.LongRunningRecognizeResponse{}}, gcpOptions())
	tr, err := g.Transcribe(context.Background(), writeAudio(t))
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if !tr.Timed || len(tr.Segments) != 0 || tr.Text != "" {
		t.Fatalf("unexpected transcript %+v", tr)
	}
}

func TestInferEncoding(t *testing.T) {
	tests := map[string]speechpb.RecognitionConfig_AudioEncoding{
		"a.wav":  speechpb.RecognitionConfig_LINEAR16,
		"a.FLAC": speechpb.RecognitionConfig_FLAC,
		"a.mp3":  speechpb.RecognitionConfig_MP3,
		"a.opus": speechpb.RecognitionConfig_OGG_OPUS,
		"a.m4a":  speechpb.RecognitionConfig_ENCODING_UNSPECIFIED,
	}
	for path, want := range tests {
		if got := inferEncoding(path); got != want {
			t.Errorf("inferEncoding(%s) = %v, want %v", path, got, want)
		}
	}
}
