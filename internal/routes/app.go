package routes

import (
	"io"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	apperrors "safeflow/internal/errors"
	"safeflow/internal/middleware"
)

type AppOptions struct {
	Name         string
	AllowOrigins string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Logger       *slog.Logger
	// AccessLog receives one line per request. Nil disables access logging.
	AccessLog io.Writer
	Metrics   middleware.HTTPRecorder
}

// NewApp builds the fiber app with the global middleware chain. Routes are
// added by SetupRoutes.
func NewApp(opts AppOptions) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               opts.Name,
		ReadTimeout:           opts.ReadTimeout,
		WriteTimeout:          opts.WriteTimeout,
		ErrorHandler:          apperrors.NewHandler(opts.Logger).Fiber,
		DisableStartupMessage: true,
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(requestid.New(requestid.Config{
		Generator: func() string { return uuid.NewString() },
	}))
	app.Use(middleware.RequestContext())

	if opts.AccessLog != nil {
		app.Use(logger.New(logger.Config{
			Format: "[${time}] ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
			Output: opts.AccessLog,
		}))
	}
	if opts.Metrics != nil {
		app.Use(middleware.Metrics(opts.Metrics))
	}

	if opts.AllowOrigins != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     opts.AllowOrigins,
			AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
			AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH",
			AllowCredentials: true,
		}))
	}

	return app
}
