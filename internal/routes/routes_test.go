package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pquerna/otp/totp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"safeflow/internal/config"
	"safeflow/internal/handlers"
	"safeflow/internal/health"
	"safeflow/internal/logger"
	"safeflow/internal/metrics"
	"safeflow/internal/middleware"
	"safeflow/internal/repositories/memory"
	"safeflow/internal/routes"
	"safeflow/internal/services/auth"
	"safeflow/internal/services/fraud"
	"safeflow/internal/services/mfa"
	"safeflow/internal/services/realtime"
	"safeflow/internal/services/user"
	"safeflow/internal/services/wallet"
	"safeflow/internal/utils"
)

type harness struct {
	t     *testing.T
	app   *fiber.App
	store *memory.Store
	hub   *realtime.Hub
}

func newHarness(t *testing.T, rateLimit int) *harness {
	t.Helper()
	log := logger.Discard()
	store := memory.NewStore()
	hub := realtime.NewHub(16)
	t.Cleanup(func() { _ = hub.Close() })
	collector := metrics.NewCollector()

	tokens, err := utils.NewTokenIssuer(config.AuthConfig{
		JWTSecret:     "test-access-secret",
		RefreshSecret: "test-refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    time.Hour,
		ChallengeTTL:  5 * time.Minute,
	})
	require.NoError(t, err)

	detector := fraud.NewDetector(decimal.NewFromInt(wallet.DefaultFraudThreshold))
	mfaService := mfa.NewService(store, nil, "SafeFlow", log)
	authService := auth.NewService(store, tokens, mfaService, detector, log,
		auth.WithEvents(hub),
		auth.WithMetrics(collector),
		auth.WithBcryptCost(bcrypt.MinCost),
	)
	userService := user.NewService(store, nil, hub, log)
	walletService := wallet.NewService(store, nil, hub, wallet.WalletConfig{}, collector, log)

	checker := health.NewChecker(log, time.Second)
	checker.AddCheck("store", health.CheckFunc(func(context.Context) error { return nil }))

	app := routes.NewApp(routes.AppOptions{Name: "safeflow-test", Logger: log, Metrics: collector})
	routes.SetupRoutes(app, routes.Handlers{
		Auth:           handlers.NewAuthHandler(authService, false),
		User:           handlers.NewUserHandler(userService),
		Wallet:         handlers.NewWalletHandler(walletService),
		Fraud:          handlers.NewFraudHandler(fraud.NewService(store)),
		MFA:            handlers.NewMFAHandler(mfaService),
		Events:         handlers.NewEventsHandler(hub, collector, log),
		Health:         handlers.NewHealthHandler(checker, "test"),
		Metrics:        collector.Handler(),
		AuthMiddleware: middleware.NewAuthMiddleware(tokens, authService, log),
		AuthRateLimit:  rateLimit,
	})

	return &harness{t: t, app: app, store: store, hub: hub}
}

func (h *harness) request(method, path string, body interface{}, token string) *http.Response {
	h.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := h.app.Test(req, 5000)
	require.NoError(h.t, err)
	return resp
}

func (h *harness) do(method, path string, body interface{}, token string) (int, map[string]interface{}) {
	h.t.Helper()
	resp := h.request(method, path, body, token)
	defer resp.Body.Close()
	var out map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	if len(raw) > 0 {
		require.NoError(h.t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

// signUp registers and logs in, returning the access token.
func (h *harness) signUp(email, name string) string {
	h.t.Helper()
	status, body := h.do(http.MethodPost, "/api/register", map[string]string{
		"email":      email,
		"password":   "s3cure-password",
		"name":       name,
		"birth_date": "1990-01-15",
		"cpf":        "12345678901",
	}, "")
	require.Equal(h.t, http.StatusCreated, status, body)

	status, body = h.do(http.MethodPost, "/api/login", map[string]string{
		"email":    email,
		"password": "s3cure-password",
	}, "")
	require.Equal(h.t, http.StatusOK, status, body)
	token, _ := body["access_token"].(string)
	require.NotEmpty(h.t, token)
	return token
}

func TestAuthFlow(t *testing.T) {
	h := newHarness(t, 0)
	token := h.signUp("alice@example.com", "Alice")

	status, body := h.do(http.MethodGet, "/api/profile", nil, token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice@example.com", body["email"])
	assert.Equal(t, "0", body["balance"])
	assert.EqualValues(t, 600, body["credit_score"])
	assert.Equal(t, true, body["profile_complete"])

	status, body = h.do(http.MethodPost, "/api/register", map[string]string{
		"email": "alice@example.com", "password": "another-password", "name": "A", "birth_date": "1990-01-15", "cpf": "12345678901",
	}, "")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "EMAIL_EXISTS", body["code"])

	status, body = h.do(http.MethodPost, "/api/login", map[string]string{"email": "alice@example.com", "password": "nope-nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "INVALID_CREDENTIALS", body["code"])

	status, body = h.do(http.MethodPost, "/api/login", map[string]string{"email": "alice@example.com"}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["fields"], "password")

	status, body = h.do(http.MethodGet, "/api/fraud-logs", nil, token)
	require.Equal(t, http.StatusOK, status)
	data := body["data"].([]interface{})
	require.Len(t, data, 1)
	assert.Equal(t, "Failed login attempt", data[0].(map[string]interface{})["description"])

	status, _ = h.do(http.MethodPost, "/api/auth/logout", nil, token)
	require.Equal(t, http.StatusOK, status)

	status, _ = h.do(http.MethodGet, "/api/profile", nil, token)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newHarness(t, 0)
	for _, path := range []string{"/api/profile", "/api/wallet/transactions", "/api/fraud-logs", "/api/users/search?email=a@b.co"} {
		status, _ := h.do(http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusUnauthorized, status, path)
	}
}

func TestTransferFlow(t *testing.T) {
	h := newHarness(t, 0)
	alice := h.signUp("alice@example.com", "Alice")
	bob := h.signUp("bob@example.com", "Bob")

	status, body := h.do(http.MethodPost, "/api/wallet/deposit", map[string]interface{}{"amount": 10000}, alice)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "10000", body["balance"])

	status, body = h.do(http.MethodPost, "/api/wallet/transfer", map[string]interface{}{"recipient": "bob@example.com", "amount": "6000"}, alice)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "4000", body["balance"])
	assert.Equal(t, true, body["flagged"])
	assert.Equal(t, "Transfer to Bob completed", body["message"])

	status, body = h.do(http.MethodGet, "/api/wallet/balance", nil, bob)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "6000", body["balance"])

	tests := []struct {
		name   string
		body   map[string]interface{}
		status int
		code   string
	}{
		{"insufficient balance", map[string]interface{}{"recipient": "bob@example.com", "amount": 6000}, http.StatusConflict, "INSUFFICIENT_BALANCE"},
		{"self-transfer", map[string]interface{}{"recipient_email": "alice@example.com", "amount": 10}, http.StatusConflict, "SELF_TRANSFER"},
		{"unknown recipient", map[string]interface{}{"recipient": "carol@example.com", "amount": 10}, http.StatusNotFound, "RECIPIENT_NOT_FOUND"},
		{"zero amount", map[string]interface{}{"recipient": "bob@example.com", "amount": 0}, http.StatusBadRequest, "INVALID_AMOUNT"},
		{"sub-cent amount", map[string]interface{}{"recipient": "bob@example.com", "amount": "0.005"}, http.StatusBadRequest, "INVALID_AMOUNT"},
		{"missing recipient", map[string]interface{}{"amount": 10}, http.StatusBadRequest, "VALIDATION_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := h.do(http.MethodPost, "/api/wallet/transfer", tt.body, alice)
			assert.Equal(t, tt.status, status, body)
			assert.Equal(t, tt.code, body["code"])
		})
	}

	status, body = h.do(http.MethodGet, "/api/wallet/transactions?limit=1", nil, alice)
	require.Equal(t, http.StatusOK, status)
	page := body["pagination"].(map[string]interface{})
	assert.EqualValues(t, 2, page["total"])
	assert.EqualValues(t, 2, page["last_page"])
	latest := body["data"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "Transfer to Bob", latest["description"])

	status, body = h.do(http.MethodGet, "/api/fraud-logs", nil, alice)
	require.Equal(t, http.StatusOK, status)
	logs := body["data"].([]interface{})
	require.Len(t, logs, 1)
	assert.Equal(t, "High transfer amount: $6000.00 to bob@example.com", logs[0].(map[string]interface{})["description"])
}

func TestSearch(t *testing.T) {
	h := newHarness(t, 0)
	token := h.signUp("alice@example.com", "Alice")
	h.signUp("bob@example.com", "Bob")

	status, body := h.do(http.MethodGet, "/api/users/search?email=BOB@example.com", nil, token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Bob", body["name"])
	assert.NotContains(t, body, "email")

	status, _ = h.do(http.MethodGet, "/api/users/search", nil, token)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = h.do(http.MethodGet, "/api/users/search?email=carol@example.com", nil, token)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestTwoFactorFlow(t *testing.T) {
	h := newHarness(t, 0)
	token := h.signUp("alice@example.com", "Alice")

	status, body := h.do(http.MethodPost, "/api/2fa/setup", nil, token)
	require.Equal(t, http.StatusOK, status)
	secret := body["secret"].(string)

	status, body = h.do(http.MethodPost, "/api/2fa/enable", map[string]string{"code": "000000"}, token)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_CODE", body["code"])

	code, err := totp.GenerateCode(secret, time.Now().UTC())
	require.NoError(t, err)
	status, _ = h.do(http.MethodPost, "/api/2fa/enable", map[string]string{"code": code}, token)
	require.Equal(t, http.StatusOK, status)

	status, body = h.do(http.MethodPost, "/api/2fa/setup", nil, token)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "TWO_FA_ALREADY_ENABLED", body["code"])

	status, body = h.do(http.MethodPost, "/api/login", map[string]string{"email": "alice@example.com", "password": "s3cure-password"}, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["mfa_required"])
	assert.NotContains(t, body, "access_token")
	challenge := body["challenge_token"].(string)

	status, _ = h.do(http.MethodGet, "/api/profile", nil, challenge)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = h.do(http.MethodPost, "/api/login/2fa", map[string]string{"challenge_token": challenge, "code": code}, "")
	require.Equal(t, http.StatusOK, status, body)
	assert.NotEmpty(t, body["access_token"])
}

func TestPasswordStrength(t *testing.T) {
	h := newHarness(t, 0)
	status, body := h.do(http.MethodPost, "/api/password/strength", map[string]string{"password": "Abcdefgh1!xyz"}, "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 100, body["score"])
	assert.Equal(t, "Strong", body["label"])
}

func TestLoginRateLimit(t *testing.T) {
	h := newHarness(t, 2)
	creds := map[string]string{"email": "ghost@example.com", "password": "whatever1"}
	for i := 0; i < 2; i++ {
		status, _ := h.do(http.MethodPost, "/api/login", creds, "")
		assert.Equal(t, http.StatusUnauthorized, status)
	}
	status, body := h.do(http.MethodPost, "/api/login", creds, "")
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "RATE_LIMITED", body["code"])

	// Other public routes are not limited.
	status, _ = h.do(http.MethodPost, "/api/password/strength", map[string]string{"password": "x"}, "")
	assert.Equal(t, http.StatusOK, status)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t, 0)

	status, body := h.do(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	h.signUp("alice@example.com", "Alice")

	resp := h.request(http.MethodGet, "/metrics", nil, "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `safeflow_auth_logins_total{method="password",result="success"} 1`)
	assert.Contains(t, string(raw), `route="/api/register"`)
}

func TestEventStream(t *testing.T) {
	h := newHarness(t, 0)
	alice := h.signUp("alice@example.com", "Alice")
	u, err := h.store.Users().GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)

	go func() {
		deadline := time.Now().Add(2 * time.Second)
		for h.hub.Subscribers(u.ID) == 0 && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		_ = h.hub.Publish(context.Background(), realtime.NewEvent(realtime.EventTransactionCreated, u.ID, u.ID))
		_ = h.hub.Close()
	}()

	resp := h.request(http.MethodGet, "/api/events", nil, alice)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "event: transaction.created")
	assert.Contains(t, string(raw), u.ID.String())
}
