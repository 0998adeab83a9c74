package models

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Status string `json:"status" example:"error"`
	Code   string `json:"code,omitempty" example:"invalid_upload"`
	Detail string `json:"detail" example:"upload is empty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status                string `json:"status" example:"ok"`
	Message               string `json:"message"`
	TranscriptionProvider string `json:"transcription_provider" example:"groq"`
	PendingTranscriptions int    `json:"pending_transcriptions"`
	DefaultTargetLanguage string `json:"default_target_language" example:"Sinhala"`
}
