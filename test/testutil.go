//go:build e2e

package test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// HTTPJSONStep is one request in a scenario. Token, when set, is sent as a
// bearer credential.
type HTTPJSONStep struct {
	Name           string
	Method         string
	URL            string
	Body           any
	Token          string
	ExpectedStatus int
	Validator      func(*testing.T, map[string]any) // optional
}

// ExecuteHTTPJSONStep executes a single HTTP JSON step and handles all the common boilerplate
func ExecuteHTTPJSONStep(t *testing.T, step HTTPJSONStep, baseURL string) map[string]any {
	t.Helper()
	t.Logf("step: %s", step.Name)

	var headers map[string]string
	if step.Token != "" {
		headers = map[string]string{"Authorization": "Bearer " + step.Token}
	}

	resp, err := httpJSON(step.Method, baseURL+step.URL, step.Body, headers)
	require.NoError(t, err)
	defer func() {
		if err := resp.Body.Close(); err != nil {
			t.Errorf(msgFailedToCloseResponseBody, err)
		}
	}()

	require.Equal(t, step.ExpectedStatus, resp.StatusCode, "step %q", step.Name)

	var respData map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&respData))
	if resp.StatusCode < 400 {
		assert.Equal(t, true, respData["success"], "step %q", step.Name)
	}

	if step.Validator != nil {
		step.Validator(t, respData)
	}

	return respData
}

// ExecuteHTTPJSONSteps executes a sequence of HTTP JSON steps
func ExecuteHTTPJSONSteps(t *testing.T, steps []HTTPJSONStep, baseURL string) []map[string]any {
	t.Helper()
	var results []map[string]any

	for _, step := range steps {
		result := ExecuteHTTPJSONStep(t, step, baseURL)
		results = append(results, result)
	}

	return results
}

// FieldsValidator validates that a response contains non-empty fields
func FieldsValidator(expectedFields ...string) func(*testing.T, map[string]any) {
	return func(t *testing.T, respData map[string]any) {
		t.Helper()
		for _, field := range expectedFields {
			value, exists := respData[field]
			require.True(t, exists, "Expected field %s to exist in response", field)
			require.NotEmpty(t, value, "Expected field %s to not be empty", field)
		}
	}
}

// ErrorMessageValidator validates that an error response contains expected message content
func ErrorMessageValidator(expectedSubstring string) func(*testing.T, map[string]any) {
	return func(t *testing.T, respData map[string]any) {
		t.Helper()
		errorMsg, exists := respData["message"]
		require.True(t, exists, "Expected message field to exist in response")
		assert.Equal(t, false, respData["success"])
		assert.Contains(t, errorMsg.(string), expectedSubstring,
			"Expected error message to contain '%s', but got: %s", expectedSubstring, errorMsg)
	}
}

// MessageValidator validates that a response contains a specific message
func MessageValidator(expectedMessage string) func(*testing.T, map[string]any) {
	return func(t *testing.T, respData map[string]any) {
		t.Helper()
		message, exists := respData["message"]
		require.True(t, exists, "Expected message field to exist in response")
		assert.Equal(t, expectedMessage, message)
	}
}

// GetStringFromResponse safely extracts a string field from response data
func GetStringFromResponse(t *testing.T, respData map[string]any, fieldName string) string {
	t.Helper()
	value, exists := respData[fieldName]
	require.True(t, exists, "Expected %s field to exist in response", fieldName)
	str, ok := value.(string)
	require.True(t, ok, "Expected %s to be a string", fieldName)
	require.NotEmpty(t, str, "Expected %s to not be empty", fieldName)
	return str
}
