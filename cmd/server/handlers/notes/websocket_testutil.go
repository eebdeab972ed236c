package notes

import (
	"context"
	"crypto/rand"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"mind-scribe/cmd/server/ctxkeys"
	"mind-scribe/cmd/server/testutil"
	"mind-scribe/internal/config"
	"mind-scribe/internal/logger"
	"mind-scribe/internal/services/auth"
	"mind-scribe/internal/services/notes"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// MockHub implements the Hub interface for testing
type MockHub struct {
	mu          sync.Mutex
	subscribers map[ulid.ULID]*notes.Subscriber
	subscribed  chan *notes.Subscriber
}

func NewMockHub() *MockHub {
	return &MockHub{
		subscribers: make(map[ulid.ULID]*notes.Subscriber),
		subscribed:  make(chan *notes.Subscriber, 8),
	}
}

func (m *MockHub) Subscribe(connULID ulid.ULID, email string) (*notes.Subscriber, func()) {
	sub := &notes.Subscriber{
		Email: email,
		Ch:    make(chan notes.NoteEvent, 10),
		Done:  make(chan struct{}),
	}
	m.mu.Lock()
	m.subscribers[connULID] = sub
	m.mu.Unlock()

	select {
	case m.subscribed <- sub:
	default:
	}
	return sub, func() { m.Unsubscribe(connULID) }
}

func (m *MockHub) Unsubscribe(connULID ulid.ULID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub, exists := m.subscribers[connULID]; exists {
		close(sub.Ch)
		close(sub.Done)
		delete(m.subscribers, connULID)
	}
}

func (m *MockHub) GetSubscriberCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscribers)
}

// stubIdentity verifies real tokens and serves users from a map.
type stubIdentity struct {
	svc   *auth.Service
	users map[bson.ObjectID]*auth.User
}

func (s *stubIdentity) VerifyToken(raw string) (*auth.Claims, error) {
	return s.svc.VerifyToken(raw)
}

func (s *stubIdentity) Me(_ context.Context, userID bson.ObjectID) (*auth.User, error) {
	if u, ok := s.users[userID]; ok {
		return u, nil
	}
	return nil, auth.ErrUserNotFound
}

func newStubIdentity(secret string, users ...*auth.User) *stubIdentity {
	cfg := config.Config{JWTSecret: secret, JWTAlgorithm: "HS256", TokenTTLHours: 1}
	id := &stubIdentity{
		svc:   auth.NewService(nil, nil, cfg, logger.L()),
		users: make(map[bson.ObjectID]*auth.User),
	}
	for _, u := range users {
		id.users[u.ID] = u
	}
	return id
}

// WebSocketTestConfig holds configuration for WebSocket tests
type WebSocketTestConfig struct {
	Secret        string
	MaxSessionSec int
}

// DefaultWebSocketTestConfig returns a default test configuration
func DefaultWebSocketTestConfig() WebSocketTestConfig {
	return WebSocketTestConfig{
		Secret:        testutil.JWTSecret,
		MaxSessionSec: 900,
	}
}

// SetupWebSocketHandlersApp creates a test app whose /ws route echoes the
// identity WSUpgrade resolved.
func SetupWebSocketHandlersApp(t *testing.T, cfg WebSocketTestConfig, users ...*auth.User) (*fiber.App, *MockHub, *WebSocketHandlers) {
	t.Helper()

	app := testutil.CreateTestApp(t)
	hub := NewMockHub()
	wsHandlers := NewWebSocketHandlers(hub, newStubIdentity(cfg.Secret, users...), cfg.MaxSessionSec)

	app.Get("/ws", wsHandlers.WSUpgrade, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id": c.Locals(ctxkeys.UserIDKey),
			"email":   c.Locals(ctxkeys.UserEmailKey),
		})
	})

	return app, hub, wsHandlers
}

// StartStreamServer serves WSNotesStream on a random port, authenticating
// every upgrade as email.
func StartStreamServer(t *testing.T, hub Hub, maxSessionSec int, email string) string {
	t.Helper()

	wsHandlers := NewWebSocketHandlers(hub, nil, maxSessionSec)

	app := fiber.New()
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals(ctxkeys.UserIDKey, bson.NewObjectID().Hex())
			c.Locals(ctxkeys.UserEmailKey, email)
			c.Locals(ctxkeys.ParentCtxKey, c.UserContext())
			return c.Next()
		}
		return c.SendStatus(fiber.StatusBadRequest)
	})
	app.Get("/ws", websocket.New(wsHandlers.WSNotesStream))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	return fmt.Sprintf("ws://%s/ws", ln.Addr().String())
}

// WSUpgradeTestCase represents a WebSocket upgrade test case
type WSUpgradeTestCase struct {
	Name           string
	Token          *string // nil means no token
	ExpectedStatus int
}

// GetStandardWSUpgradeTestCases returns common WebSocket upgrade test cases
// for user.
func GetStandardWSUpgradeTestCases(t *testing.T, secret string, user *auth.User) []WSUpgradeTestCase {
	t.Helper()

	validToken, err := testutil.CreateTestJWT(user.ID.Hex(), user.Email, []byte(secret), time.Hour)
	require.NoError(t, err)

	expiredToken, err := testutil.CreateTestJWT(user.ID.Hex(), user.Email, []byte(secret), -time.Hour)
	require.NoError(t, err)

	strangerToken, err := testutil.CreateTestJWT(bson.NewObjectID().Hex(), "ghost@example.com", []byte(secret), time.Hour)
	require.NoError(t, err)

	invalidToken := "invalid-token"

	return []WSUpgradeTestCase{
		{Name: "ValidToken", Token: &validToken, ExpectedStatus: 200},
		{Name: "MissingToken", Token: nil, ExpectedStatus: 401},
		{Name: "InvalidToken", Token: &invalidToken, ExpectedStatus: 401},
		{Name: "ExpiredToken", Token: &expiredToken, ExpectedStatus: 401},
		{Name: "DeletedAccount", Token: &strangerToken, ExpectedStatus: 401},
	}
}

// WebSocketConnectionTest subscribes email on hub and unsubscribes on cleanup.
func WebSocketConnectionTest(t *testing.T, hub *MockHub, email string) *notes.Subscriber {
	t.Helper()

	connULID := ulid.MustNew(ulid.Timestamp(time.Now().UTC()), rand.Reader)
	sub, cancel := hub.Subscribe(connULID, email)
	t.Cleanup(cancel)

	return sub
}
