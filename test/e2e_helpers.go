//go:build e2e

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"mind-scribe/internal/config"
)

const (
	registerEndpoint = "/api/auth/register"
	loginEndpoint    = "/api/auth/login"
	verifyEndpoint   = "/api/auth/verify"
	meEndpoint       = "/api/auth/me"
	profileEndpoint  = "/api/auth/update-profile"
	notesEndpoint    = "/api/notes/"
	streamEndpoint   = "/ws/notes/stream"

	e2eDatabase = "e2e"
	e2eSecret   = "test-e2e-secret-with-32-plus-characters-for-hs256-validation"

	msgFailedToCloseResponseBody = "failed to close response body: %v"
)

// tailBuffer keeps the last max bytes written to it; server logs can be long
// and only the end matters when a test fails.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.max; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

// TestEnvironment is one MongoDB container plus one server process.
type TestEnvironment struct {
	BaseURL string
	Client  *http.Client

	server *serverProcess
}

// Logs returns the tail of the server's stderr.
func (e *TestEnvironment) Logs() string {
	return e.server.logs.String()
}

// startMongo runs a throwaway MongoDB and returns its URI.
func startMongo(ctx context.Context, t *testing.T) string {
	t.Helper()
	t.Log("starting MongoDB container")

	mongoC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:8.0",
			ExposedPorts: []string{"27017/tcp"},
			Env: map[string]string{
				"MONGO_INITDB_ROOT_USERNAME": "root",
				"MONGO_INITDB_ROOT_PASSWORD": "example",
				"MONGO_INITDB_DATABASE":      e2eDatabase,
			},
			WaitingFor: wait.ForExec([]string{"mongosh", "--quiet", "--eval", "db.adminCommand('ping')"}).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mongoC.Terminate(context.Background()) })

	endpoint, err := mongoC.PortEndpoint(ctx, "27017/tcp", "")
	require.NoError(t, err)
	return fmt.Sprintf("mongodb://root:example@%s/", endpoint)
}

// serverProcess is the API server under test, started from BIN_SERVER when
// set and through `go run` otherwise.
type serverProcess struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	logs   *tailBuffer
}

func startServer(ctx context.Context, t *testing.T, mongoURI string, extraEnv map[string]string) (*serverProcess, string) {
	t.Helper()

	port, err := randomPort()
	require.NoError(t, err)

	srvCtx, cancel := context.WithCancel(ctx)

	var cmd *exec.Cmd
	if bin := os.Getenv("BIN_SERVER"); bin != "" {
		cmd = exec.CommandContext(srvCtx, bin)
	} else {
		cmd = exec.CommandContext(srvCtx, "go", "run", "./cmd/server")
		cmd.Dir = "../"
	}
	// own process group so `go run` and its child die together
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	env := []string{
		"MONGO_URI=" + mongoURI,
		"MONGO_DB_NAME=" + e2eDatabase,
		"JWT_SECRET=" + e2eSecret,
		"LOG_LEVEL=info",
		"APP_PORT=" + port,
	}
	for k, v := range extraEnv {
		env = append(env, k+"="+v)
	}
	cmd.Env = append(env, os.Environ()...)

	logs := &tailBuffer{max: 64 * 1024}
	cmd.Stdout = logs
	cmd.Stderr = logs

	t.Logf("launching server on :%s", port)
	if err := cmd.Start(); err != nil {
		cancel()
		require.NoError(t, err)
	}

	return &serverProcess{cmd: cmd, cancel: cancel, logs: logs}, "http://localhost:" + port
}

// stop kills the whole process group and waits for it, bounded.
func (p *serverProcess) stop() {
	p.cancel()
	if pgid, err := syscall.Getpgid(p.cmd.Process.Pid); err == nil {
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
	}

	done := make(chan struct{})
	go func() {
		_ = p.cmd.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		_ = p.cmd.Process.Kill()
		<-done
	}
}

// waitHealthy polls /healthz until the server and its database answer.
func waitHealthy(baseURL string, timeout time.Duration) error {
	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(baseURL + "/healthz")
		if err == nil {
			ok := resp.StatusCode == http.StatusOK
			_ = resp.Body.Close()
			if ok {
				return nil
			}
		}
		time.Sleep(200 * time.Millisecond)
	}
	return fmt.Errorf("server never became healthy on %s/healthz", baseURL)
}

// httpJSON performs an HTTP request with a JSON payload.
func httpJSON(method, url string, payload any, headers map[string]string) (*http.Response, error) {
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequest(method, url, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	return client.Do(req)
}

// SetupTestEnvironment starts MongoDB and the server with default settings.
func SetupTestEnvironment(t *testing.T) *TestEnvironment {
	return SetupTestEnvironmentWithEnv(t, nil)
}

// SetupTestEnvironmentWithEnv starts MongoDB and the server with extraEnv
// layered over the defaults.
func SetupTestEnvironmentWithEnv(t *testing.T, extraEnv map[string]string) *TestEnvironment {
	t.Helper()
	config.ResetCache()
	t.Cleanup(config.ResetCache)

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	t.Cleanup(cancel)

	mongoURI := startMongo(ctx, t)
	server, baseURL := startServer(ctx, t, mongoURI, extraEnv)
	env := &TestEnvironment{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 5 * time.Second},
		server:  server,
	}

	t.Cleanup(func() {
		server.stop()
		if t.Failed() {
			t.Logf("server output:\n%s", env.Logs())
		}
	})

	if err := waitHealthy(baseURL, 30*time.Second); err != nil {
		t.Logf("server output:\n%s", env.Logs())
		require.NoError(t, err)
	}
	return env
}

// register creates an account and expects 201.
func register(t *testing.T, c *http.Client, baseURL, fullname, email, password string) {
	t.Helper()
	status, _, err := doJSONPost(t, c, baseURL+registerEndpoint, map[string]string{
		"fullname": fullname,
		"email":    email,
		"password": password,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, status)
}

// loginExpect logs in and asserts the status; the token is returned on 200.
func loginExpect(t *testing.T, c *http.Client, baseURL, email, password string, want int) string {
	t.Helper()
	status, body, err := doJSONPost(t, c, baseURL+loginEndpoint, map[string]string{
		"email":    email,
		"password": password,
	})
	require.NoError(t, err)
	require.Equal(t, want, status)

	token, _ := body["token"].(string)
	return token
}

// registerAndLogin is the common fixture: a fresh account and its token.
func registerAndLogin(t *testing.T, env *TestEnvironment, fullname, email, password string) string {
	t.Helper()
	register(t, env.Client, env.BaseURL, fullname, email, password)
	token := loginExpect(t, env.Client, env.BaseURL, email, password, http.StatusOK)
	require.NotEmpty(t, token)
	return token
}

func doJSONPost(t *testing.T, c *http.Client, url string, body any) (int, map[string]any, error) {
	t.Helper()
	b, _ := json.Marshal(body)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			t.Errorf(msgFailedToCloseResponseBody, err)
		}
	}()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp.StatusCode, decoded, nil
}

// dialStream opens the notes stream for token and waits for the subscription to land.
func dialStream(t *testing.T, baseURL, token string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(baseURL, "http") + streamEndpoint + "?token=" + token

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	time.Sleep(200 * time.Millisecond)
	return conn
}

// readEvent waits up to five seconds for the next stream message.
func readEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev map[string]any
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}
