package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"subflick/internal/orchestrator"
	"subflick/middleware"
	"subflick/models"
	"subflick/utils"
)

const maxLanguageLen = 64

// Transcribe accepts a media upload and returns its captions and translation.
//
//	@Summary		Transcribe and translate a video
//	@Description	Extracts the audio of an uploaded video, transcribes it into SRT captions and translates them.
//	@Tags			transcription
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file			formData	file	true	"Video or audio file"
//	@Param			target_language	formData	string	false	"Target language name or code (default Sinhala)"
//	@Success		200				{object}	models.TranscriptionResponse
//	@Failure		400				{object}	models.ErrorResponse
//	@Failure		413				{object}	models.ErrorResponse
//	@Failure		500				{object}	models.ErrorResponse
//	@Failure		503				{object}	models.ErrorResponse
//	@Router			/transcribe [post]
func (h *ApplicationHandler) Transcribe(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return utils.RespondWithErrorCode(c, fiber.StatusBadRequest,
			string(orchestrator.KindInvalidUpload), "multipart field 'file' is required")
	}
	if fh.Filename == "" {
		return utils.RespondWithErrorCode(c, fiber.StatusBadRequest,
			string(orchestrator.KindInvalidUpload), "uploaded file has no name")
	}
	f, err := fh.Open()
	if err != nil {
		h.Logger.WithError(err).Error("open multipart file")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "could not read the uploaded file")
	}
	defer f.Close()

	res, err := h.Processor.Process(c.UserContext(), orchestrator.Upload{
		Filename:       fh.Filename,
		Size:           fh.Size,
		Reader:         f,
		TargetLanguage: utils.SanitizeInput(c.FormValue("target_language"), maxLanguageLen),
		RequestID:      middleware.RequestID(c),
	})
	if err != nil {
		return h.respondProcessError(c, err)
	}

	h.Logger.WithFields(logrus.Fields{
		"request_id": res.RequestID,
		"state":      string(orchestrator.StateResponded),
	}).Debug("state entered")
	return utils.RespondWithJSON(c, fiber.StatusOK, toTranscriptionResponse(res))
}

func (h *ApplicationHandler) respondProcessError(c *fiber.Ctx, err error) error {
	kind := orchestrator.KindOf(err)
	status := statusFor(kind)
	detail := err.Error()
	var oe *orchestrator.Error
	if errors.As(err, &oe) && oe.Err != nil {
		detail = oe.Err.Error()
	}
	switch kind {
	case orchestrator.KindBusy:
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(5))
		detail = "the transcription service is busy, try again shortly"
	case orchestrator.KindInternal:
		h.Logger.WithError(err).WithField("request_id", middleware.RequestID(c)).Error("upload failed")
		detail = "internal error while processing the upload"
	}
	return utils.RespondWithErrorCode(c, status, string(kind), detail)
}

func statusFor(kind orchestrator.ErrKind) int {
	switch kind {
	case orchestrator.KindInvalidUpload:
		return http.StatusBadRequest
	case orchestrator.KindUploadTooLarge:
		return http.StatusRequestEntityTooLarge
	case orchestrator.KindBusy:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func toTranscriptionResponse(res *orchestrator.Result) models.TranscriptionResponse {
	segments := make([]models.CaptionSegment, 0, len(res.Segments))
	for _, s := range res.Segments {
		segments = append(segments, models.CaptionSegment{StartTime: s.StartSec, EndTime: s.EndSec, Text: s.Line})
	}
	return models.TranscriptionResponse{
		Filename:       res.Filename,
		OriginalSRT:    res.Original,
		TranslatedSRT:  res.Translation.Text,
		TargetLanguage: res.TargetLanguage,
		Mode:           string(res.Mode),
		Language:       res.Language,
		Checksum:       res.Checksum,
		SizeBytes:      res.Size,
		MediaType:      res.Media.MIME,
		RequestID:      res.RequestID,
		Segments:       segments,
		Translation: models.TranslationStatus{
			Status: string(res.Translation.Status),
			Detail: res.Translation.Detail,
			Issues: res.Translation.Issues,
		},
		Timings: models.Timings{
			StoreMS:      res.Timings.Store.Milliseconds(),
			ExtractMS:    res.Timings.Extract.Milliseconds(),
			TranscribeMS: res.Timings.Transcribe.Milliseconds(),
			TranslateMS:  res.Timings.Translate.Milliseconds(),
			TotalMS:      res.Timings.Total.Milliseconds(),
		},
	}
}
