package httperr

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"custom error", New(fiber.StatusForbidden, "nope"), fiber.StatusForbidden, "nope"},
		{"fiber error", fiber.ErrMethodNotAllowed, fiber.StatusMethodNotAllowed, "Method Not Allowed"},
		{"unknown error hides details", errors.New("mongo exploded"), fiber.StatusInternalServerError, "Server error"},
		{"invalid input", InvalidInput(errors.New("email is required")), fiber.StatusBadRequest, "Invalid input: email is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New(fiber.Config{ErrorHandler: Handler})
			app.Get("/", func(c *fiber.Ctx) error { return tt.err })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			body, _ := io.ReadAll(resp.Body)
			var out map[string]any
			require.NoError(t, json.Unmarshal(body, &out))
			assert.Equal(t, false, out["success"])
			assert.Equal(t, tt.wantMsg, out["message"])
		})
	}
}
