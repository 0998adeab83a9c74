package models

import "subflick/internal/captions"

// CaptionSegment is one timed piece of text supplied by a client.
type CaptionSegment struct {
	StartTime float64 `json:"start_time" validate:"gte=0" example:"0"`
	EndTime   float64 `json:"end_time" validate:"gte=0,gtefield=StartTime" example:"2.5"`
	Text      string  `json:"text" example:"Hello world"`
}

// Cue converts the segment for the caption assembler.
func (s CaptionSegment) Cue() captions.Cue {
	return captions.Cue{StartSec: s.StartTime, EndSec: s.EndTime, Line: s.Text}
}

// FormatCaptionsRequest is the body of POST /captions/format.
type FormatCaptionsRequest struct {
	Segments []CaptionSegment `json:"segments" validate:"required,max=20000,dive"`
}

// FormatCaptionsResponse carries the assembled caption payload.
type FormatCaptionsResponse struct {
	SRT     string `json:"srt"`
	Entries int    `json:"entries"`
}

// TranslateCaptionsRequest is the body of POST /captions/translate.
type TranslateCaptionsRequest struct {
	SRT            string `json:"srt" validate:"required"`
	TargetLanguage string `json:"target_language" validate:"max=64"`
}

// TranslateCaptionsResponse is the translation outcome for a caption payload.
type TranslateCaptionsResponse struct {
	TranslatedSRT  string            `json:"translated_srt"`
	TargetLanguage string            `json:"target_language"`
	Translation    TranslationStatus `json:"translation"`
}
