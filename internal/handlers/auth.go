package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"safeflow/internal/middleware"
	"safeflow/internal/models"
	"safeflow/internal/services/auth"
	"safeflow/internal/utils"
	"safeflow/internal/validation"
)

const refreshTokenCookie = "refresh_token"

type AuthHandler struct {
	authService   auth.Service
	secureCookies bool
}

func NewAuthHandler(authService auth.Service, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		secureCookies: secureCookies,
	}
}

func userView(u *models.User) fiber.Map {
	return fiber.Map{
		"id":             u.ID,
		"email":          u.Email,
		"name":           u.Name,
		"two_fa_enabled": u.TwoFAEnabled,
	}
}

// Register creates an account with a zero balance.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input auth.RegisterInput
	if err := parseBody(c, &input); err != nil {
		return err
	}

	user, err := h.authService.Register(c.UserContext(), input)
	if err != nil {
		return err
	}

	return utils.Created(c, fiber.Map{
		"message": "Account created! Please login.",
		"user":    userView(user),
	})
}

// Login handles password authentication. Accounts with 2FA get a challenge
// token instead of a session.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := parseBody(c, &input); err != nil {
		return err
	}

	v := validation.New()
	v.Required("email", input.Email)
	v.Required("password", input.Password)
	if !v.Valid() {
		return validationFailed(c, v)
	}

	result, err := h.authService.Login(c.UserContext(), input.Email, input.Password)
	if err != nil {
		return err
	}
	return h.loginResponse(c, result)
}

// LoginSecondFactor trades a challenge token and a TOTP code for a session.
func (h *AuthHandler) LoginSecondFactor(c *fiber.Ctx) error {
	var input struct {
		ChallengeToken string `json:"challenge_token"`
		Code           string `json:"code"`
	}
	if err := parseBody(c, &input); err != nil {
		return err
	}

	v := validation.New()
	v.Required("challenge_token", input.ChallengeToken)
	v.Required("code", input.Code)
	if !v.Valid() {
		return validationFailed(c, v)
	}

	result, err := h.authService.VerifyLoginCode(c.UserContext(), input.ChallengeToken, input.Code)
	if err != nil {
		return err
	}
	return h.loginResponse(c, result)
}

func (h *AuthHandler) GoogleLogin(c *fiber.Ctx) error {
	var input struct {
		IDToken string `json:"id_token"`
	}
	if err := parseBody(c, &input); err != nil {
		return err
	}

	v := validation.New()
	v.Required("id_token", input.IDToken)
	if !v.Valid() {
		return validationFailed(c, v)
	}

	result, err := h.authService.GoogleLogin(c.UserContext(), input.IDToken)
	if err != nil {
		return err
	}
	return h.loginResponse(c, result)
}

// RefreshToken reads the refresh token from the cookie, falling back to the
// request body.
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	refreshToken := c.Cookies(refreshTokenCookie)
	if refreshToken == "" {
		var input struct {
			RefreshToken string `json:"refresh_token"`
		}
		_ = c.BodyParser(&input)
		refreshToken = input.RefreshToken
	}
	if refreshToken == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "refresh token not provided")
	}

	pair, err := h.authService.RefreshTokens(c.UserContext(), refreshToken)
	if err != nil {
		return err
	}

	h.setAuthCookies(c, pair)
	return utils.Success(c, fiber.Map{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_in":    int(pair.ExpiresIn.Seconds()),
	})
}

// Logout revokes every outstanding token of the caller.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	userID, err := utils.GetUserID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	if err := h.authService.Logout(c.UserContext(), userID); err != nil {
		return err
	}

	h.clearAuthCookies(c)
	return utils.Message(c, "Successfully logged out")
}

func (h *AuthHandler) PasswordStrength(c *fiber.Ctx) error {
	var input struct {
		Password string `json:"password"`
	}
	if err := parseBody(c, &input); err != nil {
		return err
	}

	score, label := validation.PasswordStrength(input.Password)
	return utils.Success(c, fiber.Map{"score": score, "label": label})
}

func (h *AuthHandler) loginResponse(c *fiber.Ctx, result *auth.LoginResult) error {
	if result.MFARequired {
		return utils.Success(c, fiber.Map{
			"mfa_required":    true,
			"challenge_token": result.ChallengeToken,
		})
	}

	h.setAuthCookies(c, result.Tokens)
	return utils.Success(c, fiber.Map{
		"access_token":  result.Tokens.AccessToken,
		"refresh_token": result.Tokens.RefreshToken,
		"expires_in":    int(result.Tokens.ExpiresIn.Seconds()),
		"needs_profile": result.NeedsProfile,
		"user":          userView(result.User),
	})
}

func (h *AuthHandler) setAuthCookies(c *fiber.Ctx, pair *auth.TokenPair) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    pair.AccessToken,
		Expires:  time.Now().Add(pair.ExpiresIn),
		HTTPOnly: true,
		Secure:   h.secureCookies,
		SameSite: fiber.CookieSameSiteStrictMode,
		Path:     "/",
	})
	c.Cookie(&fiber.Cookie{
		Name:     refreshTokenCookie,
		Value:    pair.RefreshToken,
		Expires:  time.Now().Add(pair.RefreshExpiresIn),
		HTTPOnly: true,
		Secure:   h.secureCookies,
		SameSite: fiber.CookieSameSiteStrictMode,
		Path:     "/api/auth",
	})
}

func (h *AuthHandler) clearAuthCookies(c *fiber.Ctx) {
	for name, path := range map[string]string{middleware.AccessTokenCookie: "/", refreshTokenCookie: "/api/auth"} {
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Value:    "",
			Expires:  time.Now().Add(-time.Hour),
			HTTPOnly: true,
			Secure:   h.secureCookies,
			Path:     path,
		})
	}
}
