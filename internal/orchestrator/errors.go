package orchestrator

import (
	"errors"
	"fmt"
)

// ErrKind classifies a failed upload.
type ErrKind string

const (
	KindInvalidUpload       ErrKind = "invalid_upload"
	KindUploadTooLarge      ErrKind = "upload_too_large"
	KindBusy                ErrKind = "busy"
	KindExtractionFailed    ErrKind = "extraction_failed"
	KindTranscriptionFailed ErrKind = "transcription_failed"
	KindInternal            ErrKind = "internal"
)

// Error is returned by Process for every failed upload.
type Error struct {
	Kind ErrKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func fail(kind ErrKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
