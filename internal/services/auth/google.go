package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const GoogleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

var ErrGoogleTokenRejected = errors.New("google id token rejected")

type GoogleIdentity struct {
	Subject string
	Email   string
	Name    string
}

// GoogleVerifier turns a Google Sign-In id token into a verified identity.
type GoogleVerifier interface {
	Verify(ctx context.Context, idToken string) (*GoogleIdentity, error)
}

// TokenInfoVerifier asks Google's tokeninfo endpoint to validate the token
// and then checks the audience against our client id.
type TokenInfoVerifier struct {
	client   *http.Client
	endpoint string
	clientID string
}

func NewTokenInfoVerifier(clientID string, client *http.Client) *TokenInfoVerifier {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &TokenInfoVerifier{client: client, endpoint: GoogleTokenInfoURL, clientID: clientID}
}

type tokenInfo struct {
	Aud           string `json:"aud"`
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
}

func (v *TokenInfoVerifier) Verify(ctx context.Context, idToken string) (*GoogleIdentity, error) {
	if v.clientID == "" {
		return nil, fmt.Errorf("%w: google login is not configured", ErrGoogleTokenRejected)
	}
	if strings.TrimSpace(idToken) == "" {
		return nil, ErrGoogleTokenRejected
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.endpoint+"?id_token="+url.QueryEscape(idToken), nil)
	if err != nil {
		return nil, fmt.Errorf("build tokeninfo request: %w", err)
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call tokeninfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: tokeninfo status %d", ErrGoogleTokenRejected, resp.StatusCode)
	}

	var info tokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode tokeninfo: %w", err)
	}
	if info.Aud != v.clientID {
		return nil, fmt.Errorf("%w: audience mismatch", ErrGoogleTokenRejected)
	}
	if info.EmailVerified != "true" || info.Email == "" {
		return nil, fmt.Errorf("%w: email not verified", ErrGoogleTokenRejected)
	}

	return &GoogleIdentity{Subject: info.Sub, Email: info.Email, Name: info.Name}, nil
}
