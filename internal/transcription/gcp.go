package transcription

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"subflick/internal/captions"
	"subflick/internal/retry"
)

const (
	ProviderGCP = "gcp"

	defaultSpeechLanguage = "en-US"
	segmentWindowSeconds  = 6.0
)

// recognizer runs one long-running recognition to completion.
type recognizer interface {
	Recognize(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error)
	Close() error
}

type speechClient struct {
	c *speech.Client
}

func (s speechClient) Recognize(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error) {
	op, err := s.c.LongRunningRecognize(ctx, req)
	if err != nil {
		return nil, err
	}
	return op.Wait(ctx)
}

func (s speechClient) Close() error { return s.c.Close() }

// GoogleSpeech transcribes through Google Cloud Speech-to-Text. Word offsets
// are grouped into caption sized segments.
type GoogleSpeech struct {
	rec      recognizer
	language string
	model    string
	timeout  time.Duration
	policy   retry.Policy
	log      logrus.FieldLogger
}

// NewGoogleSpeech dials the Speech API. Credentials come from
// Options.CredentialsFile or the usual application default lookup.
func NewGoogleSpeech(o Options) (*GoogleSpeech, error) {
	var opts []option.ClientOption
	if creds := strings.TrimSpace(o.CredentialsFile); creds != "" {
		if strings.HasPrefix(creds, "{") {
			opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
		} else {
			opts = append(opts, option.WithCredentialsFile(creds))
		}
	}
	c, err := speech.NewClient(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("gcp: speech client: %w", err)
	}
	return newGoogleSpeech(speechClient{c: c}, o), nil
}

func newGoogleSpeech(rec recognizer, o Options) *GoogleSpeech {
	g := &GoogleSpeech{
		rec:      rec,
		language: strings.TrimSpace(o.Language),
		model:    strings.TrimSpace(o.Model),
		timeout:  o.Timeout,
		policy:   o.Retry,
		log:      o.logger().WithField("provider", ProviderGCP),
	}
	if g.language == "" {
		g.language = defaultSpeechLanguage
	}
	if g.timeout <= 0 {
		g.timeout = 10 * time.Minute
	}
	if g.policy.Attempts == 0 {
		g.policy = retry.DefaultPolicy()
	}
	return g
}

func (g *GoogleSpeech) Name() string { return ProviderGCP }

// Close releases the gRPC connection.
func (g *GoogleSpeech) Close() error { return g.rec.Close() }

// Transcribe sends the audio inline and waits for the operation to finish.
func (g *GoogleSpeech) Transcribe(ctx context.Context, audio Audio) (*Transcript, error) {
	content, err := os.ReadFile(audio.Path)
	if err != nil {
		return nil, fmt.Errorf("gcp: audio file: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req := &speechpb.LongRunningRecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   inferEncoding(audio.Path),
			LanguageCode:               g.language,
			Model:                      g.model,
			EnableAutomaticPunctuation: true,
			EnableWordTimeOffsets:      true,
		},
		Audio: &speechpb.RecognitionAudio{AudioSource: &speechpb.RecognitionAudio_Content{Content: content}},
	}
	resp, err := retry.Do(ctx, g.policy, grpcTransient, g.log, func(ctx context.Context) (*speechpb.LongRunningRecognizeResponse, error) {
		return g.rec.Recognize(ctx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("gcp: long running recognize: %w", err)
	}
	return speechTranscript(resp, g.language), nil
}

func grpcTransient(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded:
		return !errors.Is(err, context.DeadlineExceeded)
	default:
		return false
	}
}

func inferEncoding(path string) speechpb.RecognitionConfig_AudioEncoding {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return speechpb.RecognitionConfig_LINEAR16
	case ".flac":
		return speechpb.RecognitionConfig_FLAC
	case ".mp3":
		return speechpb.RecognitionConfig_MP3
	case ".ogg", ".opus":
		return speechpb.RecognitionConfig_OGG_OPUS
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}

type timedWord struct {
	text       string
	start, end float64
}

func speechTranscript(resp *speechpb.LongRunningRecognizeResponse, language string) *Transcript {
	t := &Transcript{Language: language, Timed: true, Segments: []captions.Cue{}}
	if resp == nil {
		return t
	}
	var words []timedWord
	var full []string
	for _, r := range resp.GetResults() {
		alts := r.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		alt := alts[0]
		if text := strings.TrimSpace(alt.GetTranscript()); text != "" {
			full = append(full, text)
		}
		for _, w := range alt.GetWords() {
			words = append(words, timedWord{
				text:  w.GetWord(),
				start: seconds(w.GetStartTime()),
				end:   seconds(w.GetEndTime()),
			})
		}
		if end := seconds(r.GetResultEndTime()); end > t.Duration.Seconds() {
			t.Duration = time.Duration(end * float64(time.Second))
		}
	}
	t.Text = strings.Join(full, " ")
	t.Segments = groupWords(words, segmentWindowSeconds)
	return t
}

// groupWords joins consecutive words into segments spanning at most window
// seconds from their first word.
func groupWords(words []timedWord, window float64) []captions.Cue {
	segments := []captions.Cue{}
	var cur captions.Cue
	var parts []string
	flush := func() {
		if len(parts) == 0 {
			return
		}
		cur.Line = strings.Join(parts, " ")
		segments = append(segments, cur)
		parts = nil
	}
	for _, w := range words {
		if len(parts) > 0 && w.start-cur.StartSec >= window {
			flush()
		}
		if len(parts) == 0 {
			cur = captions.Cue{StartSec: w.start, EndSec: w.end}
		}
		parts = append(parts, w.text)
		if w.end > cur.EndSec {
			cur.EndSec = w.end
		}
	}
	flush()
	return segments
}

func seconds(d *durationpb.Duration) float64 {
	if d == nil {
		return 0
	}
	return d.AsDuration().Seconds()
}
