package handlers

import (
	"math"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	fiberSwagger "github.com/swaggo/fiber-swagger"

	_ "subflick/docs"
	"subflick/middleware"
)

// multipartOverhead leaves room for form boundaries and small fields on top
// of the upload limit.
const multipartOverhead = 1 << 20

// AppConfig holds the HTTP server settings.
type AppConfig struct {
	// MaxUploadBytes of zero means no upload limit.
	MaxUploadBytes int64
	AllowOrigins   string
}

// NewApp builds the fiber application with middleware and routes.
func NewApp(h *ApplicationHandler, cfg AppConfig) *fiber.App {
	bodyLimit := math.MaxInt32
	if cfg.MaxUploadBytes > 0 && cfg.MaxUploadBytes+multipartOverhead < math.MaxInt32 {
		bodyLimit = int(cfg.MaxUploadBytes + multipartOverhead)
	}
	if cfg.AllowOrigins == "" {
		cfg.AllowOrigins = "*"
	}

	app := fiber.New(fiber.Config{
		AppName:               "subflick",
		BodyLimit:             bodyLimit,
		ErrorHandler:          ErrorHandler,
		DisableStartupMessage: true,
	})

	app.Use(middleware.RequestLogger(h.Logger))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.AllowOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept, " + middleware.RequestIDHeader,
		ExposeHeaders: middleware.RequestIDHeader,
	}))

	app.Get("/health", h.Health)
	app.Get("/swagger/*", fiberSwagger.WrapHandler)

	app.Post("/transcribe", h.Transcribe)

	captionRoutes := app.Group("/captions")
	captionRoutes.Post("/format", h.FormatCaptions)
	captionRoutes.Post("/translate", h.TranslateCaptions)

	return app
}
