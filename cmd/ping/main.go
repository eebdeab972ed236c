// Command ping is the container HEALTHCHECK for the MindScribe server.
// It probes /healthz and, unless PING_SKIP_API is set, confirms the API
// group answers /api/auth/verify with its JSON envelope.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/viper"

	"mind-scribe/internal/logger"
)

const (
	healthEndpoint = "/healthz"
	verifyEndpoint = "/api/auth/verify"

	// exit codes
	codeRequestFailed     = 2
	codeBadHTTPStatus     = 3
	codeDecodeError       = 4
	codeReportedUnhealthy = 5
)

var (
	errBadHTTPStatus = errors.New("unexpected HTTP status")
	errUnhealthy     = errors.New("service reported unhealthy")
	errNoEnvelope    = errors.New("api answered without a JSON envelope")
)

type pingConfig struct {
	Port    int           `mapstructure:"APP_PORT"`
	Timeout time.Duration `mapstructure:"PING_TIMEOUT"`
	SkipAPI bool          `mapstructure:"PING_SKIP_API"`
}

type healthResp struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

func main() {
	log := logger.New(os.Stderr, "info", "text")

	cfg, err := loadConfig()
	if err != nil {
		log.Error("bad ping config", "error", err)
		os.Exit(codeRequestFailed)
	}

	base := fmt.Sprintf("http://localhost:%d", cfg.Port)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	if err := probe(ctx, &http.Client{}, base, cfg.SkipAPI); err != nil {
		log.Error("healthcheck failed", "base", base, "error", err)
		os.Exit(exitCode(err))
	}
	log.Info("service healthy", "port", cfg.Port)
}

func loadConfig() (pingConfig, error) {
	v := viper.New()
	v.SetDefault("APP_PORT", 4000)
	v.SetDefault("PING_TIMEOUT", "2s")
	v.SetDefault("PING_SKIP_API", false)
	v.AutomaticEnv()

	var cfg pingConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return pingConfig{}, err
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return pingConfig{}, fmt.Errorf("APP_PORT out of range: %d", cfg.Port)
	}
	return cfg, nil
}

// probe runs both checks against base.
func probe(ctx context.Context, c *http.Client, base string, skipAPI bool) error {
	if err := checkHealth(ctx, c, base+healthEndpoint); err != nil {
		return err
	}
	if skipAPI {
		return nil
	}
	return checkAPI(ctx, c, base+verifyEndpoint)
}

func checkHealth(ctx context.Context, c *http.Client, url string) error {
	resp, err := get(ctx, c, url)
	if err != nil {
		return err
	}
	defer closeBody(resp)

	var h healthResp
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w %d: %s", errBadHTTPStatus, resp.StatusCode, h.Error)
	}
	if h.Status != "" && h.Status != "ok" {
		return fmt.Errorf("%w: %q", errUnhealthy, h.Status)
	}
	return nil
}

// checkAPI expects 401 with {"success":false}: the routes are mounted and
// the verify handler runs without a token.
func checkAPI(ctx context.Context, c *http.Client, url string) error {
	resp, err := get(ctx, c, url)
	if err != nil {
		return err
	}
	defer closeBody(resp)

	if resp.StatusCode != http.StatusUnauthorized {
		return fmt.Errorf("%w %d from %s", errBadHTTPStatus, resp.StatusCode, url)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	if _, ok := body["success"]; !ok {
		return errNoEnvelope
	}
	return nil
}

func get(ctx context.Context, c *http.Client, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

func closeBody(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		slog.Warn("failed to close response body", "error", err)
	}
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, errUnhealthy):
		return codeReportedUnhealthy
	case errors.Is(err, errBadHTTPStatus):
		return codeBadHTTPStatus
	case errors.Is(err, errNoEnvelope), isDecode(err):
		return codeDecodeError
	default:
		return codeRequestFailed
	}
}

func isDecode(err error) bool {
	var syntax *json.SyntaxError
	var typ *json.UnmarshalTypeError
	return errors.As(err, &syntax) || errors.As(err, &typ)
}
