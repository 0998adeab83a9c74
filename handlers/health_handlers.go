package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"subflick/models"
	"subflick/utils"
)

// Health reports liveness and the transcription queue depth.
//
//	@Summary	Health check
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	models.HealthResponse
//	@Router		/health [get]
func (h *ApplicationHandler) Health(c *fiber.Ctx) error {
	resp := models.HealthResponse{
		Status:                "ok",
		Message:               "SubFlick is healthy",
		TranscriptionProvider: h.Status.TranscriptionProvider,
	}
	if h.Status.Pending != nil {
		resp.PendingTranscriptions = h.Status.Pending()
	}
	if h.Translator != nil {
		resp.DefaultTargetLanguage = h.Translator.DefaultLanguage()
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, resp)
}

// ErrorHandler renders errors that escaped a handler in the common error shape.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	detail := "internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		detail = fe.Message
	}
	return utils.RespondWithError(c, code, detail)
}
