package handlers

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"subflick/internal/captions"
	"subflick/internal/translation"
	"subflick/models"
	"subflick/utils"
)

// FormatCaptions assembles client supplied segments into an SRT payload.
//
//	@Summary	Format segments as SRT
//	@Tags		captions
//	@Accept		json
//	@Produce	json
//	@Param		payload	body		models.FormatCaptionsRequest	true	"Timed segments"
//	@Success	200		{object}	models.FormatCaptionsResponse
//	@Failure	400		{object}	models.ErrorResponse
//	@Router		/captions/format [post]
func (h *ApplicationHandler) FormatCaptions(c *fiber.Ctx) error {
	var payload models.FormatCaptionsRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Cannot parse JSON: %v", err))
	}
	if err := h.Validate.Struct(payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, strings.Join(utils.FormatValidationErrors(err), ", "))
	}

	cues := make([]captions.Cue, len(payload.Segments))
	for i, s := range payload.Segments {
		cues[i] = s.Cue()
	}
	srt, err := captions.Assemble(cues)
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, err.Error())
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, models.FormatCaptionsResponse{SRT: srt, Entries: len(cues)})
}

// TranslateCaptions translates an SRT payload, keeping its structure.
//
//	@Summary		Translate an SRT payload
//	@Description	Translation problems are reported in the translation status, not as HTTP errors.
//	@Tags			captions
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		models.TranslateCaptionsRequest	true	"Caption payload and target language"
//	@Success		200		{object}	models.TranslateCaptionsResponse
//	@Failure		400		{object}	models.ErrorResponse
//	@Router			/captions/translate [post]
func (h *ApplicationHandler) TranslateCaptions(c *fiber.Ctx) error {
	var payload models.TranslateCaptionsRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Cannot parse JSON: %v", err))
	}
	if err := h.Validate.Struct(payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, strings.Join(utils.FormatValidationErrors(err), ", "))
	}

	out := h.Translator.Translate(c.UserContext(), translation.Request{
		Text:           payload.SRT,
		TargetLanguage: utils.SanitizeInput(payload.TargetLanguage, maxLanguageLen),
		Kind:           translation.KindCaptions,
	})
	return utils.RespondWithJSON(c, fiber.StatusOK, models.TranslateCaptionsResponse{
		TranslatedSRT:  out.Text,
		TargetLanguage: out.TargetLanguage,
		Translation: models.TranslationStatus{
			Status: string(out.Status),
			Detail: out.Detail,
			Issues: out.Issues,
		},
	})
}
