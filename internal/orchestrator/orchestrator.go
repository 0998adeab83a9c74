// Package orchestrator drives one upload through storage, audio extraction,
// transcription, caption assembly and translation.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"subflick/internal/captions"
	"subflick/internal/ffmpeg"
	"subflick/internal/media"
	"subflick/internal/tracing"
	"subflick/internal/transcription"
	"subflick/internal/translation"
	"subflick/internal/workspace"
)

// State is a step of the upload lifecycle.
type State string

const (
	StateReceived       State = "RECEIVED"
	StateStored         State = "STORED"
	StateAudioExtracted State = "AUDIO_EXTRACTED"
	StateTranscribed    State = "TRANSCRIBED"
	StateAssembled      State = "ASSEMBLED"
	StateTranslated     State = "TRANSLATED"
	StateResponded      State = "RESPONDED"
	StateCleanedUp      State = "CLEANED_UP"
)

// Mode tells whether the result holds captions or a plain transcript.
type Mode string

const (
	ModeCaptions   Mode = "captions"
	ModeTranscript Mode = "transcript"
)

// Extractor probes media files and pulls their audio out.
type Extractor interface {
	Probe(ctx context.Context, path string) (*ffmpeg.Metadata, error)
	ExtractAudio(ctx context.Context, input, output string, format ffmpeg.AudioFormat) error
}

// Translator is the translation policy applied to the assembled text.
type Translator interface {
	Translate(ctx context.Context, req translation.Request) translation.Outcome
}

// Upload is a client file still being read from the request. Size is the
// declared length, or negative when unknown.
type Upload struct {
	Filename       string
	Size           int64
	Reader         io.Reader
	TargetLanguage string
	RequestID      string
}

// Timings records how long each stage took.
type Timings struct {
	Store      time.Duration
	Extract    time.Duration
	Transcribe time.Duration
	Translate  time.Duration
	Total      time.Duration
}

// Result is a processed upload.
type Result struct {
	RequestID      string
	Filename       string
	Checksum       string
	Size           int64
	Media          media.Info
	Mode           Mode
	Language       string
	TargetLanguage string
	Original       string
	Segments       []captions.Cue
	Translation    translation.Outcome
	Timings        Timings
}

// Config holds the orchestrator limits.
type Config struct {
	// MaxUploadBytes of zero disables the size limit.
	MaxUploadBytes int64
	AudioFormat    ffmpeg.AudioFormat
}

// Orchestrator owns no per-request state; one instance serves every request.
type Orchestrator struct {
	workspaces  *workspace.Manager
	extractor   Extractor
	transcriber transcription.Transcriber
	translator  Translator
	cfg         Config
	log         logrus.FieldLogger
	tracer      trace.Tracer
}

// New wires an Orchestrator from its collaborators.
func New(ws *workspace.Manager, ex Extractor, tr transcription.Transcriber, tl Translator, cfg Config, log logrus.FieldLogger) *Orchestrator {
	if cfg.AudioFormat == "" {
		cfg.AudioFormat = ffmpeg.FormatMP3
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Orchestrator{
		workspaces:  ws,
		extractor:   ex,
		transcriber: tr,
		translator:  tl,
		cfg:         cfg,
		log:         log.WithField("component", "orchestrator"),
		tracer:      tracing.Tracer(),
	}
}

// Process runs an upload to completion. The workspace created for it is
// removed before Process returns, whatever the outcome.
func (o *Orchestrator) Process(ctx context.Context, up Upload) (*Result, error) {
	start := time.Now()
	if up.RequestID == "" {
		up.RequestID = uuid.NewString()
	}
	log := o.log.WithFields(logrus.Fields{
		"request_id": up.RequestID,
		"filename":   up.Filename,
	})
	ctx, span := o.tracer.Start(ctx, "orchestrator.process",
		trace.WithAttributes(attribute.String("subflick.request_id", up.RequestID)))
	defer span.End()

	res, err := o.process(ctx, up, log)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(KindOf(err)))
		log.WithError(err).WithField("kind", string(KindOf(err))).Warn("upload failed")
		return nil, err
	}
	res.Timings.Total = time.Since(start)
	span.SetAttributes(
		attribute.String("subflick.mode", string(res.Mode)),
		attribute.String("subflick.translation", string(res.Translation.Status)),
	)
	log.WithFields(logrus.Fields{
		"mode":        string(res.Mode),
		"segments":    len(res.Segments),
		"translation": string(res.Translation.Status),
		"elapsed":     res.Timings.Total.String(),
	}).Info("upload processed")
	return res, nil
}

func (o *Orchestrator) process(ctx context.Context, up Upload, log logrus.FieldLogger) (*Result, error) {
	enter(log, StateReceived)
	if up.Reader == nil || up.Size == 0 {
		return nil, fail(KindInvalidUpload, workspace.ErrEmpty)
	}
	if o.cfg.MaxUploadBytes > 0 && up.Size > o.cfg.MaxUploadBytes {
		return nil, fail(KindUploadTooLarge, fmt.Errorf("%w: %s declared, limit is %s",
			workspace.ErrTooLarge, humanize.IBytes(uint64(up.Size)), humanize.IBytes(uint64(o.cfg.MaxUploadBytes))))
	}

	ws, err := o.workspaces.Acquire()
	if err != nil {
		return nil, fail(KindInternal, err)
	}
	defer func() {
		ws.Release()
		enter(log, StateCleanedUp)
	}()
	log = log.WithField("workspace", ws.ID)

	res := &Result{RequestID: up.RequestID, Filename: displayName(up.Filename)}

	stageStart := time.Now()
	stored, err := o.store(ctx, ws, up)
	if err != nil {
		return nil, err
	}
	res.Checksum = stored.Checksum
	res.Size = stored.Size
	res.Timings.Store = time.Since(stageStart)
	enter(log, StateStored)
	ws.Touch()

	stageStart = time.Now()
	audioPath, info, err := o.audio(ctx, ws, stored.Path, log)
	if err != nil {
		return nil, err
	}
	res.Media = info
	res.Timings.Extract = time.Since(stageStart)
	ws.Touch()

	stageStart = time.Now()
	tr, err := o.transcribe(ctx, transcription.Audio{Path: audioPath, Filename: filepath.Base(audioPath)})
	if err != nil {
		return nil, err
	}
	res.Language = tr.Language
	res.Timings.Transcribe = time.Since(stageStart)
	enter(log, StateTranscribed)
	ws.Touch()

	kind, err := assemble(res, tr)
	if err != nil {
		return nil, err
	}
	enter(log, StateAssembled)

	stageStart = time.Now()
	res.Translation = o.translate(ctx, translation.Request{
		Text:           res.Original,
		TargetLanguage: up.TargetLanguage,
		Kind:           kind,
	})
	res.TargetLanguage = res.Translation.TargetLanguage
	res.Timings.Translate = time.Since(stageStart)
	enter(log, StateTranslated)
	return res, nil
}

func (o *Orchestrator) store(ctx context.Context, ws *workspace.Workspace, up Upload) (*workspace.Stored, error) {
	_, span := o.tracer.Start(ctx, "orchestrator.store")
	defer span.End()

	stored, err := ws.Store(up.Reader, up.Filename, o.cfg.MaxUploadBytes)
	switch {
	case errors.Is(err, workspace.ErrEmpty):
		return nil, spanFail(span, fail(KindInvalidUpload, err))
	case errors.Is(err, workspace.ErrTooLarge):
		return nil, spanFail(span, fail(KindUploadTooLarge, err))
	case err != nil:
		return nil, spanFail(span, fail(KindInternal, err))
	}
	span.SetAttributes(attribute.Int64("subflick.upload_bytes", stored.Size))
	return stored, nil
}

// audio returns the path of a file the recognizer can read. Audio uploads are
// used as stored; anything else has its first audio stream extracted.
func (o *Orchestrator) audio(ctx context.Context, ws *workspace.Workspace, path string, log logrus.FieldLogger) (string, media.Info, error) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.extract")
	defer span.End()

	info, err := media.Detect(path)
	if err != nil {
		return "", info, spanFail(span, fail(KindInternal, err))
	}
	span.SetAttributes(attribute.String("subflick.mime", info.MIME))
	if info.IsAudio() {
		log.WithField("mime", info.MIME).Debug("audio upload, extraction skipped")
		return path, info, nil
	}

	meta, err := o.extractor.Probe(ctx, path)
	if err != nil {
		return "", info, spanFail(span, fail(KindExtractionFailed, err))
	}
	_, hasAudio := meta.AudioStream()
	if info.Kind == media.KindUnknown {
		switch {
		case meta.HasVideo():
			info.Kind = media.KindVideo
		case hasAudio:
			info.Kind = media.KindAudio
		}
	}
	if !hasAudio {
		return "", info, spanFail(span, fail(KindExtractionFailed, ffmpeg.ErrNoAudio))
	}
	out := ws.Path("audio" + o.cfg.AudioFormat.Ext())
	if err := o.extractor.ExtractAudio(ctx, path, out, o.cfg.AudioFormat); err != nil {
		return "", info, spanFail(span, fail(KindExtractionFailed, err))
	}
	enter(log.WithField("mime", info.MIME), StateAudioExtracted)
	return out, info, nil
}

func (o *Orchestrator) transcribe(ctx context.Context, audio transcription.Audio) (*transcription.Transcript, error) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.transcribe")
	defer span.End()

	tr, err := o.transcriber.Transcribe(ctx, audio)
	switch {
	case errors.Is(err, transcription.ErrBusy):
		return nil, spanFail(span, fail(KindBusy, err))
	case err != nil:
		return nil, spanFail(span, fail(KindTranscriptionFailed, err))
	case tr == nil:
		return nil, spanFail(span, fail(KindTranscriptionFailed, errors.New("recognizer returned no transcript")))
	}
	span.SetAttributes(
		attribute.Bool("subflick.timed", tr.Timed),
		attribute.Int("subflick.segments", len(tr.Segments)),
	)
	return tr, nil
}

func assemble(res *Result, tr *transcription.Transcript) (translation.Kind, error) {
	if !tr.Timed {
		res.Mode = ModeTranscript
		res.Original = tr.Text
		return translation.KindTranscript, nil
	}
	payload, err := captions.Assemble(tr.Segments)
	if err != nil {
		return "", fail(KindTranscriptionFailed, err)
	}
	res.Mode = ModeCaptions
	res.Original = payload
	res.Segments = tr.Segments
	return translation.KindCaptions, nil
}

func (o *Orchestrator) translate(ctx context.Context, req translation.Request) translation.Outcome {
	ctx, span := o.tracer.Start(ctx, "orchestrator.translate")
	defer span.End()

	out := o.translator.Translate(ctx, req)
	span.SetAttributes(attribute.String("subflick.translation", string(out.Status)))
	if out.Status == translation.StatusFailed {
		span.SetStatus(codes.Error, out.Detail)
	}
	return out
}

func enter(log logrus.FieldLogger, s State) {
	log.WithField("state", string(s)).Debug("state entered")
}

func spanFail(span trace.Span, err *Error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(err.Kind))
	return err
}

func displayName(filename string) string {
	if filename == "" {
		return "upload"
	}
	return filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
}
