// Package docs registers the OpenAPI description served under /swagger.
// Keep it in step with the handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.HealthResponse"}}
                }
            }
        },
        "/transcribe": {
            "post": {
                "description": "Extracts the audio of an uploaded video, transcribes it into SRT captions and translates them.",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["transcription"],
                "summary": "Transcribe and translate a video",
                "parameters": [
                    {"type": "file", "description": "Video or audio file", "name": "file", "in": "formData", "required": true},
                    {"type": "string", "description": "Target language name or code (default Sinhala)", "name": "target_language", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.TranscriptionResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "413": {"description": "Request Entity Too Large", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/captions/format": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["captions"],
                "summary": "Format segments as SRT",
                "parameters": [
                    {"description": "Timed segments", "name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.FormatCaptionsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.FormatCaptionsResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/captions/translate": {
            "post": {
                "description": "Translation problems are reported in the translation status, not as HTTP errors.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["captions"],
                "summary": "Translate an SRT payload",
                "parameters": [
                    {"description": "Caption payload and target language", "name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.TranslateCaptionsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.TranslateCaptionsResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "models.CaptionSegment": {
            "type": "object",
            "properties": {
                "start_time": {"type": "number", "example": 0},
                "end_time": {"type": "number", "example": 2.5},
                "text": {"type": "string", "example": "Hello world"}
            }
        },
        "models.ErrorResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "error"},
                "code": {"type": "string", "example": "invalid_upload"},
                "detail": {"type": "string", "example": "upload is empty"}
            }
        },
        "models.FormatCaptionsRequest": {
            "type": "object",
            "properties": {
                "segments": {"type": "array", "items": {"$ref": "#/definitions/models.CaptionSegment"}}
            }
        },
        "models.FormatCaptionsResponse": {
            "type": "object",
            "properties": {
                "srt": {"type": "string"},
                "entries": {"type": "integer"}
            }
        },
        "models.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "ok"},
                "message": {"type": "string"},
                "transcription_provider": {"type": "string", "example": "groq"},
                "pending_transcriptions": {"type": "integer"},
                "default_target_language": {"type": "string", "example": "Sinhala"}
            }
        },
        "models.Timings": {
            "type": "object",
            "properties": {
                "store_ms": {"type": "integer"},
                "extract_ms": {"type": "integer"},
                "transcribe_ms": {"type": "integer"},
                "translate_ms": {"type": "integer"},
                "total_ms": {"type": "integer"}
            }
        },
        "models.TranscriptionResponse": {
            "type": "object",
            "properties": {
                "filename": {"type": "string", "example": "interview.mp4"},
                "original_srt": {"type": "string"},
                "translated_srt": {"type": "string"},
                "target_language": {"type": "string", "example": "Sinhala"},
                "mode": {"type": "string", "enum": ["captions", "transcript"]},
                "language": {"type": "string", "example": "en"},
                "checksum": {"type": "string"},
                "size_bytes": {"type": "integer"},
                "media_type": {"type": "string", "example": "video/mp4"},
                "request_id": {"type": "string"},
                "segments": {"type": "array", "items": {"$ref": "#/definitions/models.CaptionSegment"}},
                "translation": {"$ref": "#/definitions/models.TranslationStatus"},
                "timings": {"$ref": "#/definitions/models.Timings"}
            }
        },
        "models.TranslateCaptionsRequest": {
            "type": "object",
            "properties": {
                "srt": {"type": "string"},
                "target_language": {"type": "string"}
            }
        },
        "models.TranslateCaptionsResponse": {
            "type": "object",
            "properties": {
                "translated_srt": {"type": "string"},
                "target_language": {"type": "string"},
                "translation": {"$ref": "#/definitions/models.TranslationStatus"}
            }
        },
        "models.TranslationStatus": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["translated", "repaired", "mismatch", "skipped", "failed"]},
                "detail": {"type": "string"},
                "issues": {"type": "array", "items": {"type": "string"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "SubFlick API",
	Description:      "Video to translated SRT captions.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
