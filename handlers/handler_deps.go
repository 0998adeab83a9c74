package handlers

import (
	"context"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"subflick/internal/orchestrator"
	"subflick/internal/translation"
)

// Processor runs an upload through the transcription pipeline.
type Processor interface {
	Process(ctx context.Context, up orchestrator.Upload) (*orchestrator.Result, error)
}

// Translator applies the translation policy to caption payloads.
type Translator interface {
	Translate(ctx context.Context, req translation.Request) translation.Outcome
	DefaultLanguage() string
}

// Status reports live service information for the health endpoint.
type Status struct {
	TranscriptionProvider string
	Pending               func() int
}

// ApplicationHandler holds shared dependencies for handlers.
type ApplicationHandler struct {
	Processor  Processor
	Translator Translator
	Status     Status
	Logger     logrus.FieldLogger
	Validate   *validator.Validate
}

// NewApplicationHandler creates a new ApplicationHandler with the given dependencies.
func NewApplicationHandler(p Processor, t Translator, status Status, logger logrus.FieldLogger) *ApplicationHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ApplicationHandler{
		Processor:  p,
		Translator: t,
		Status:     status,
		Logger:     logger,
		Validate:   newValidator(),
	}
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
