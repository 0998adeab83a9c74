package utils

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"subflick/models"
)

// RespondWithError sends a JSON error response.
func RespondWithError(c *fiber.Ctx, statusCode int, detail string) error {
	return RespondWithErrorCode(c, statusCode, "", detail)
}

// RespondWithErrorCode sends a JSON error response carrying a machine readable code.
func RespondWithErrorCode(c *fiber.Ctx, statusCode int, code, detail string) error {
	return c.Status(statusCode).JSON(models.ErrorResponse{
		Status: "error",
		Code:   code,
		Detail: detail,
	})
}

// RespondWithJSON sends data as the JSON response body.
func RespondWithJSON(c *fiber.Ctx, statusCode int, data interface{}) error {
	return c.Status(statusCode).JSON(data)
}

// FormatValidationErrors formats validation errors from validator/v10.
func FormatValidationErrors(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		if err == nil {
			return nil
		}
		return []string{err.Error()}
	}
	var out []string
	for _, fe := range verrs {
		element := fmt.Sprintf("Field '%s' failed on the '%s' tag", fe.Namespace(), fe.Tag())
		if fe.Param() != "" {
			element = fmt.Sprintf("%s (value: %s)", element, fe.Param())
		}
		out = append(out, element)
	}
	return out
}

// SanitizeInput trims whitespace, drops control characters and caps the
// result at max runes. A max of zero means no cap.
func SanitizeInput(input string, max int) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.TrimSpace(input))
	if max > 0 {
		if runes := []rune(cleaned); len(runes) > max {
			cleaned = strings.TrimSpace(string(runes[:max]))
		}
	}
	return cleaned
}
