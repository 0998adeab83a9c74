package middleware

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestRequestLogger(t *testing.T) {
	logger, hook := test.NewNullLogger()
	app := fiber.New()
	app.Use(RequestLogger(logger))
	app.Get("/ok", func(c *fiber.Ctx) error {
		return c.SendString(RequestID(c))
	})
	app.Get("/missing", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNotFound)
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("boom")
	})

	req := httptest.NewRequest("GET", "/ok", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if got := resp.Header.Get(RequestIDHeader); got != "abc-123" {
		t.Fatalf("request id header = %q", got)
	}
	entry := hook.LastEntry()
	if entry.Level != logrus.InfoLevel || entry.Data["request_id"] != "abc-123" || entry.Data["status_code"] != 200 {
		t.Fatalf("unexpected entry %v %v", entry.Level, entry.Data)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/missing", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Fatal("a request id should be generated")
	}
	if hook.LastEntry().Level != logrus.WarnLevel {
		t.Fatalf("4xx should log at warn, got %v", hook.LastEntry().Level)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/boom", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	entry = hook.LastEntry()
	if entry.Level != logrus.ErrorLevel || entry.Data["status_code"] != 500 {
		t.Fatalf("unexpected entry %v %v", entry.Level, entry.Data)
	}
}
