package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"safeflow/internal/config"
	"safeflow/internal/models"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrWrongPurpose   = errors.New("token used for the wrong purpose")
	ErrSecretsMissing = errors.New("jwt secrets not configured")
)

// TokenIssuer signs and verifies the three token kinds. Refresh tokens use
// their own secret so an access secret leak cannot mint long-lived tokens.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	challengeTTL  time.Duration
	now           func() time.Time
}

func NewTokenIssuer(cfg config.AuthConfig) (*TokenIssuer, error) {
	if cfg.JWTSecret == "" || cfg.RefreshSecret == "" {
		return nil, ErrSecretsMissing
	}
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = "safeflow-api"
	}
	return &TokenIssuer{
		accessSecret:  []byte(cfg.JWTSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		issuer:        issuer,
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		challengeTTL:  cfg.ChallengeTTL,
		now:           time.Now,
	}, nil
}

// GenerateTokens generates an access token and a refresh token for user.
func (t *TokenIssuer) GenerateTokens(user *models.User) (accessToken string, refreshToken string, err error) {
	accessToken, err = t.sign(user, models.TokenPurposeAccess, t.accessTTL, t.accessSecret)
	if err != nil {
		return "", "", err
	}
	refreshToken, err = t.sign(user, models.TokenPurposeRefresh, t.refreshTTL, t.refreshSecret)
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

// GenerateChallenge issues the short-lived token a client trades, together
// with a TOTP code, for a real token pair.
func (t *TokenIssuer) GenerateChallenge(user *models.User) (string, error) {
	return t.sign(user, models.TokenPurposeChallenge, t.challengeTTL, t.accessSecret)
}

func (t *TokenIssuer) AccessTTL() time.Duration {
	return t.accessTTL
}

func (t *TokenIssuer) RefreshTTL() time.Duration {
	return t.refreshTTL
}

func (t *TokenIssuer) sign(user *models.User, purpose string, ttl time.Duration, secret []byte) (string, error) {
	now := t.now()
	claims := models.UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    t.issuer,
			Subject:   user.ID.String(),
		},
		UserID:       user.ID,
		Email:        user.Email,
		Purpose:      purpose,
		TokenVersion: user.TokenVersion,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", purpose, err)
	}
	return signed, nil
}

// ParseToken validates tokenStr and checks it was issued for purpose.
func (t *TokenIssuer) ParseToken(tokenStr, purpose string) (*models.UserClaims, error) {
	secret := t.accessSecret
	if purpose == models.TokenPurposeRefresh {
		secret = t.refreshSecret
	}

	token, err := jwt.ParseWithClaims(tokenStr, &models.UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	},
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*models.UserClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Purpose != purpose {
		return nil, ErrWrongPurpose
	}
	return claims, nil
}
