package api

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/raine/telegram-carbon-bot/internal/challenge"
	"github.com/raine/telegram-carbon-bot/internal/llm"
	"github.com/rs/zerolog/log"
)

// bodyLimit leaves room for a base64 encoded phone photo.
const bodyLimit = 12 * 1024 * 1024

// Config holds HTTP server settings.
type Config struct {
	AllowedOrigins string
	// DisableRequestLog turns off the access log, used by tests.
	DisableRequestLog bool
}

// Server exposes the estimator over HTTP.
type Server struct {
	app      *fiber.App
	analyzer llm.ReceiptAnalyzer
	catalog  *challenge.Catalog
}

// NewServer creates the fiber app and registers all routes.
func NewServer(cfg Config, analyzer llm.ReceiptAnalyzer, catalog *challenge.Catalog) *Server {
	s := &Server{
		analyzer: analyzer,
		catalog:  catalog,
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          ErrorHandler,
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	if !cfg.DisableRequestLog {
		app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
			Output: log.Logger,
		}))
	}
	origins := cfg.AllowedOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")
	api.Post("/analyze", s.Analyze)
	api.Post("/estimate", s.Estimate)
	api.Get("/equivalencies", s.Equivalencies)
	api.Get("/factors", s.Factors)
	api.Get("/categories", s.Categories)
	api.Get("/challenges", s.Challenges)

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("starting http api")
		errCh <- s.app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info().Msg("stopping http api")
		if err := s.app.Shutdown(); err != nil {
			return err
		}
		return nil
	}
}

// ErrorHandler renders errors as {"error": "..."}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	} else {
		log.Error().Err(err).Str("path", c.Path()).Msg("unhandled api error")
	}

	return c.Status(code).JSON(fiber.Map{
		"error": message,
	})
}
