package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"mind-scribe/cmd/server/testutil"
	"mind-scribe/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.Config {
	return config.Config{
		JWTSecret:       testutil.JWTSecret,
		JWTAlgorithm:    "HS256",
		AuthRatePerMin:  2,
		WSMaxSessionSec: 900,
		WSOutboxBuffer:  16,
	}
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	testutil.CreateTestApp(t) // initializes the logger
	return newApp(testConfig(), apiDeps{})
}

func TestRequestLoggingConfig(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		expected bool
	}{
		{
			name:     "request logging disabled",
			envValue: "false",
			expected: false,
		},
		{
			name:     "request logging enabled",
			envValue: "true",
			expected: true,
		},
		{
			name:     "default value (no env var)",
			envValue: "",
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				_ = os.Unsetenv("REQUEST_LOGGING_ENABLED")
				config.ResetCache()
			}()

			if tt.envValue != "" {
				require.NoError(t, os.Setenv("REQUEST_LOGGING_ENABLED", tt.envValue))
			}

			config.ResetCache()

			cfg, err := config.Load()
			require.NoError(t, err)

			assert.Equal(t, tt.expected, cfg.RequestLoggingEnabled,
				"RequestLoggingEnabled should be %v when REQUEST_LOGGING_ENABLED=%s",
				tt.expected, tt.envValue)
		})
	}
}

func TestRoutesRegistered(t *testing.T) {
	app := newTestApp(t)

	registered := map[string]bool{}
	for _, r := range app.GetRoutes(true) {
		registered[r.Method+" "+r.Path] = true
	}

	for _, want := range []string{
		"GET /healthz",
		"POST /api/auth/register",
		"POST /api/auth/login",
		"GET /api/auth/verify",
		"GET /api/auth/me",
		"PUT /api/auth/update-profile",
		"POST /api/auth/change-password",
		"POST /api/notes/",
		"GET /api/notes/",
		"GET /api/notes/nearby",
		"PUT /api/notes/:id",
		"DELETE /api/notes/:id",
		"GET /api/notes/:id/owner",
		"PUT /api/notes/:id/add-collaborator",
		"PUT /api/notes/:id/remove-collaborator",
		"GET /ws/notes/stream",
	} {
		assert.True(t, registered[want], "route %s missing", want)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/notes/"},
		{http.MethodPost, "/api/notes/"},
		{http.MethodGet, "/api/notes/nearby?longitude=1&latitude=1"},
		{http.MethodPut, "/api/notes/683cdb8aa96ad71e8e075bd1"},
		{http.MethodDelete, "/api/notes/683cdb8aa96ad71e8e075bd1"},
		{http.MethodGet, "/api/auth/me"},
		{http.MethodPut, "/api/auth/update-profile"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp, err := app.Test(testutil.CreateJSONRequest(tt.method, tt.path, nil))
			require.NoError(t, err)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

			body := testutil.DecodeJSON(t, resp)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, "No token, authorization denied", body["message"])
		})
	}
}

func TestVerifyBypassesJWTMiddleware(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(testutil.CreateJSONRequest(http.MethodGet, "/api/auth/verify", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "No token provided", testutil.DecodeJSON(t, resp)["message"])
}

func TestAuthRateLimit(t *testing.T) {
	app := newTestApp(t)

	statuses := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		statuses = append(statuses, resp.StatusCode)
	}

	assert.Equal(t, []int{http.StatusBadRequest, http.StatusBadRequest, http.StatusTooManyRequests}, statuses)
}

func TestRequestIDHeader(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NoError(t, err)

	id := resp.Header.Get(fiber.HeaderXRequestID)
	require.NotEmpty(t, id)
	_, err = uuid.Parse(id)
	assert.NoError(t, err, "request id should be a UUID")
}

func TestHealthzWithoutDatabase(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "down", testutil.DecodeJSON(t, resp)["status"])
}
