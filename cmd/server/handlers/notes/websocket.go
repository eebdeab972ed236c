package notes

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"mind-scribe/cmd/server/ctxkeys"
	"mind-scribe/cmd/server/handlers/httperr"
	"mind-scribe/internal/logger"
	"mind-scribe/internal/services/auth"
	"mind-scribe/internal/services/notes"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/oklog/ulid/v2"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	// WSClosePolicyViolation represents WebSocket close code for policy violation
	WSClosePolicyViolation = 1008

	wsWriteTimeout     = 10 * time.Second
	wsPingInterval     = 25 * time.Second
	wsPingWriteTimeout = 5 * time.Second

	msgFailedToCloseWebSocketConnection = "failed to close WebSocket connection"
)

// Hub interface for WebSocket management
type Hub interface {
	Subscribe(connULID ulid.ULID, email string) (*notes.Subscriber, func())
	Unsubscribe(connULID ulid.ULID)
}

// Identity verifies stream tokens and resolves the account behind them.
type Identity interface {
	VerifyToken(raw string) (*auth.Claims, error)
	Me(ctx context.Context, userID bson.ObjectID) (*auth.User, error)
}

// WebSocketHandlers contains WebSocket-related handlers
type WebSocketHandlers struct {
	hub           Hub
	identity      Identity
	maxSessionSec int
}

// NewWebSocketHandlers creates new WebSocket handlers
func NewWebSocketHandlers(hub Hub, identity Identity, maxSessionSec int) *WebSocketHandlers {
	return &WebSocketHandlers{
		hub:           hub,
		identity:      identity,
		maxSessionSec: maxSessionSec,
	}
}

// WSUpgrade authenticates the ?token= query parameter and hands over to the
// stream. Events are routed by the account's current email, not the one
// frozen into the token.
// @Summary Stream note events
// @Tags notes
// @Param token query string true "Session token"
// @Success 101
// @Failure 400 {object} httperr.E
// @Failure 401 {object} httperr.E
// @Router /ws/notes/stream [get]
func (h *WebSocketHandlers) WSUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		logger.L().Warn("websocket upgrade required", "handler", "WSUpgrade", "path", c.Path())
		return httperr.Fail(httperr.New(fiber.StatusBadRequest, "WebSocket upgrade required"))
	}

	token := c.Query("token")
	if token == "" {
		logger.L().Warn("missing token in websocket upgrade", "handler", "WSUpgrade", "path", c.Path())
		return httperr.Fail(httperr.ErrNoToken)
	}

	claims, err := h.identity.VerifyToken(token)
	if err != nil {
		logger.L().Warn("invalid token in websocket upgrade", "handler", "WSUpgrade", "path", c.Path(), "error", err)
		return httperr.Fail(httperr.New(fiber.StatusUnauthorized, auth.ErrInvalidToken.Error()))
	}

	userID, err := bson.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return httperr.Fail(httperr.New(fiber.StatusUnauthorized, auth.ErrInvalidToken.Error()))
	}

	user, err := h.identity.Me(c.UserContext(), userID)
	if err != nil {
		logger.L().Warn("websocket user lookup failed", "handler", "WSUpgrade", "userID", claims.UserID, "error", err)
		return httperr.Fail(httperr.New(fiber.StatusUnauthorized, auth.ErrInvalidToken.Error()))
	}

	c.Locals(ctxkeys.UserIDKey, userID.Hex())
	c.Locals(ctxkeys.UserEmailKey, user.Email)
	c.Locals(ctxkeys.ParentCtxKey, c.UserContext())

	return c.Next()
}

// WSNotesStream handles WebSocket connections for real-time notes updates
func (h *WebSocketHandlers) WSNotesStream(c *websocket.Conn) {
	conn, parentCtx, err := h.initializeConnection(c)
	if err != nil {
		h.closeConnection(c)
		return
	}

	ctx, cancelCtx := context.WithCancel(parentCtx)
	defer cancelCtx()

	subscriber, cancel := h.hub.Subscribe(conn.connULID, conn.email)
	defer cancel()

	logger.L().Info("WebSocket connection established", "user_id", conn.userID, "conn_id", conn.connID)

	sessionTimer := h.startSessionTimer(c, conn, cancelCtx)
	defer sessionTimer.Stop()

	ping := h.startKeepAlive(c, conn)
	defer ping.Stop()

	go h.handleOutgoingMessages(ctx, c, conn, subscriber)

	h.handleIncomingMessages(c, conn)

	logger.L().Info("WebSocket connection closed", "user_id", conn.userID, "conn_id", conn.connID)
}

// wsConnection holds connection-specific data
type wsConnection struct {
	userID   string
	email    string
	connULID ulid.ULID
	connID   string
}

func (h *WebSocketHandlers) initializeConnection(c *websocket.Conn) (*wsConnection, context.Context, error) {
	userID, ok := c.Locals(ctxkeys.UserIDKey).(string)
	if !ok {
		logger.L().Error(ctxkeys.UserIDKey + " not found in WebSocket context")
		return nil, nil, fmt.Errorf("%s not found", ctxkeys.UserIDKey)
	}

	email, ok := c.Locals(ctxkeys.UserEmailKey).(string)
	if !ok || email == "" {
		logger.L().Error(ctxkeys.UserEmailKey + " not found in WebSocket context")
		return nil, nil, fmt.Errorf("%s not found", ctxkeys.UserEmailKey)
	}

	parentCtx, ok := c.Locals(ctxkeys.ParentCtxKey).(context.Context)
	if !ok {
		parentCtx = context.Background()
	}

	connULID := ulid.MustNew(ulid.Timestamp(time.Now().UTC()), rand.Reader)

	return &wsConnection{
		userID:   userID,
		email:    email,
		connULID: connULID,
		connID:   connULID.String(),
	}, parentCtx, nil
}

func (h *WebSocketHandlers) closeConnection(c *websocket.Conn) {
	if err := c.Close(); err != nil {
		logger.L().Error(msgFailedToCloseWebSocketConnection, "error", err)
	}
}

func (h *WebSocketHandlers) startSessionTimer(c *websocket.Conn, conn *wsConnection, cancelCtx context.CancelFunc) *time.Timer {
	return time.AfterFunc(time.Duration(h.maxSessionSec)*time.Second, func() {
		logger.L().Info("WebSocket session timeout", "user_id", conn.userID, "conn_id", conn.connID)
		err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(WSClosePolicyViolation, "session timeout"))
		if err != nil {
			logger.L().Error("failed to send close message", "error", err, "conn_id", conn.connID)
		}
		h.closeConnection(c)
		cancelCtx()
	})
}

func (h *WebSocketHandlers) startKeepAlive(c *websocket.Conn, conn *wsConnection) *time.Ticker {
	ping := time.NewTicker(wsPingInterval)
	go func() {
		for range ping.C {
			if err := c.SetWriteDeadline(time.Now().Add(wsPingWriteTimeout)); err != nil {
				return
			}
			if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.L().Warn("failed to write ping message", "error", err, "conn_id", conn.connID)
				return
			}
		}
	}()
	return ping
}

func (h *WebSocketHandlers) handleOutgoingMessages(ctx context.Context, c *websocket.Conn, conn *wsConnection, subscriber *notes.Subscriber) {
	defer func() {
		if r := recover(); r != nil {
			logger.L().Error("panic in WebSocket sender", "error", r, "user_id", conn.userID)
		}
	}()

	for {
		select {
		case event, ok := <-subscriber.Ch:
			if !ok {
				return
			}
			if err := c.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
			if err := c.WriteJSON(BuildEventMessage(event)); err != nil {
				logger.L().Error("failed to write WebSocket message", "error", err, "conn_id", conn.connID)
				return
			}
		case <-subscriber.Done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// BuildEventMessage shapes an event for the wire. Deleted notes carry only
// their id.
func BuildEventMessage(event notes.NoteEvent) map[string]any {
	msg := map[string]any{"type": event.Type}
	if event.Email != "" {
		msg["email"] = event.Email
	}
	switch {
	case event.Note == nil:
		msg["note"] = nil
	case event.Type == notes.EventDeleted:
		msg["note"] = map[string]any{"id": event.Note.ID.Hex()}
	default:
		msg["note"] = event.Note
	}
	return msg
}

func (h *WebSocketHandlers) handleIncomingMessages(c *websocket.Conn, conn *wsConnection) {
	for {
		messageType, _, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.L().Error("WebSocket error", "error", err, "conn_id", conn.connID)
			}
			return
		}

		if messageType == websocket.PingMessage {
			if err := c.WriteMessage(websocket.PongMessage, nil); err != nil {
				return
			}
		}
	}
}

// LogWSConnections logs every WebSocket upgrade attempt. The user id is only
// logged once the token verifies, so it cannot be spoofed.
func LogWSConnections(identity Identity) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			user := ""
			if token := c.Query("token"); token != "" {
				if claims, err := identity.VerifyToken(token); err == nil {
					user = claims.UserID
				}
			}
			logger.L().Info("WebSocket upgrade attempt", "ip", c.IP(), "user", user)
		}
		return c.Next()
	}
}
