// Package middleware provides HTTP middleware components for the application.
// It includes authentication, request context propagation and request
// metrics for the fiber web framework.
package middleware

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	apperrors "safeflow/internal/errors"
	"safeflow/internal/models"
	"safeflow/internal/utils"
)

const AccessTokenCookie = "access_token"

// TokenVersionSource reports the current token version of a user.
type TokenVersionSource interface {
	GetUserTokenVersion(ctx context.Context, userID uuid.UUID) (int, error)
}

// AuthMiddleware handles JWT token validation and user authentication.
type AuthMiddleware struct {
	tokens   *utils.TokenIssuer
	versions TokenVersionSource
	logger   *slog.Logger
}

func NewAuthMiddleware(tokens *utils.TokenIssuer, versions TokenVersionSource, logger *slog.Logger) *AuthMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthMiddleware{tokens: tokens, versions: versions, logger: logger}
}

// Handler accepts an access token from the Authorization header or the
// access_token cookie. It checks for:
// - Valid signature, issuer and expiry
// - Access purpose (refresh and 2FA challenge tokens are refused)
// - Token version matches the user's current version
func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	tokenString, ok := bearerToken(c)
	if !ok {
		return apperrors.ErrInvalidToken.WithMessage("missing authorization")
	}

	claims, err := m.tokens.ParseToken(tokenString, models.TokenPurposeAccess)
	if err != nil {
		m.logger.DebugContext(c.UserContext(), "token rejected", "error", err)
		return apperrors.ErrInvalidToken
	}

	currentVersion, err := m.versions.GetUserTokenVersion(c.UserContext(), claims.UserID)
	if err != nil {
		if _, isDomain := apperrors.As(err); isDomain {
			return apperrors.ErrInvalidToken
		}
		return err
	}
	if claims.TokenVersion != currentVersion {
		return apperrors.ErrInvalidToken.WithMessage("session expired")
	}

	c.Locals(utils.LocalsClaims, claims)
	c.Locals(utils.LocalsUserID, claims.UserID)

	return c.Next()
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		token, found := strings.CutPrefix(header, "Bearer ")
		token = strings.TrimSpace(token)
		return token, found && token != ""
	}
	if cookie := c.Cookies(AccessTokenCookie); cookie != "" {
		return cookie, true
	}
	return "", false
}
