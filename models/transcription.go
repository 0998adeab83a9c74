package models

// TranslationStatus reports how the translation step went.
type TranslationStatus struct {
	Status string   `json:"status" example:"translated" enums:"translated,repaired,mismatch,skipped,failed"`
	Detail string   `json:"detail,omitempty"`
	Issues []string `json:"issues,omitempty"`
}

// Timings are stage durations in milliseconds.
type Timings struct {
	StoreMS      int64 `json:"store_ms"`
	ExtractMS    int64 `json:"extract_ms"`
	TranscribeMS int64 `json:"transcribe_ms"`
	TranslateMS  int64 `json:"translate_ms"`
	TotalMS      int64 `json:"total_ms"`
}

// TranscriptionResponse is the body of a successful POST /transcribe.
type TranscriptionResponse struct {
	Filename       string            `json:"filename" example:"interview.mp4"`
	OriginalSRT    string            `json:"original_srt"`
	TranslatedSRT  string            `json:"translated_srt"`
	TargetLanguage string            `json:"target_language" example:"Sinhala"`
	Mode           string            `json:"mode" example:"captions" enums:"captions,transcript"`
	Language       string            `json:"language,omitempty" example:"en"`
	Checksum       string            `json:"checksum"`
	SizeBytes      int64             `json:"size_bytes"`
	MediaType      string            `json:"media_type" example:"video/mp4"`
	RequestID      string            `json:"request_id"`
	Segments       []CaptionSegment  `json:"segments"`
	Translation    TranslationStatus `json:"translation"`
	Timings        Timings           `json:"timings"`
}
