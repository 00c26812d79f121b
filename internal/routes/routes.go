// Package routes defines the API routing configuration.
// It sets up all HTTP routes and their corresponding handlers,
// including middleware and authentication requirements.
package routes

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"safeflow/internal/handlers"
	"safeflow/internal/middleware"
)

// Handlers bundles everything the router wires.
type Handlers struct {
	Auth    *handlers.AuthHandler
	User    *handlers.UserHandler
	Wallet  *handlers.WalletHandler
	Fraud   *handlers.FraudHandler
	MFA     *handlers.MFAHandler
	Events  *handlers.EventsHandler
	Health  *handlers.HealthHandler
	Metrics http.Handler

	AuthMiddleware *middleware.AuthMiddleware

	// AuthRateLimit is the number of credential attempts allowed per IP
	// per minute. Zero disables the limiter.
	AuthRateLimit int
}

// SetupRoutes configures all application routes.
func SetupRoutes(app *fiber.App, h Handlers) {
	app.Get("/health", h.Health.HealthCheck)
	if h.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(h.Metrics))
	}

	api := app.Group("/api")

	// Public endpoints (no auth required). The limiter is attached per route
	// because a group middleware would cover every /api path.
	limit := authLimiter(h.AuthRateLimit)
	api.Post("/register", limit, h.Auth.Register)
	api.Post("/login", limit, h.Auth.Login)
	api.Post("/login/2fa", limit, h.Auth.LoginSecondFactor)
	api.Post("/login/google", limit, h.Auth.GoogleLogin)

	api.Post("/auth/refresh", h.Auth.RefreshToken)
	api.Post("/password/strength", h.Auth.PasswordStrength)

	// Must stay below the public routes: everything registered after this
	// point requires a valid access token.
	protected := api.Use(h.AuthMiddleware.Handler)
	protected.Post("/auth/logout", h.Auth.Logout)

	protected.Get("/profile", h.User.GetProfile)
	protected.Put("/profile", h.User.CompleteProfile)
	protected.Get("/users/search", h.User.Search)

	wallet := protected.Group("/wallet")
	wallet.Get("/balance", h.Wallet.GetBalance)
	wallet.Post("/deposit", h.Wallet.Deposit)
	wallet.Post("/transfer", h.Wallet.Transfer)
	wallet.Get("/transactions", h.Wallet.GetTransactions)

	protected.Get("/fraud-logs", h.Fraud.GetFraudLogs)

	protected.Post("/2fa/setup", h.MFA.Setup)
	protected.Post("/2fa/enable", h.MFA.Enable)

	protected.Get("/events", h.Events.Stream)
}

func authLimiter(max int) fiber.Handler {
	if max <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many attempts, try again later",
				"code":  "RATE_LIMITED",
			})
		},
	})
}
