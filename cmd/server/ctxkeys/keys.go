// Package ctxkeys names the fiber Locals shared between middlewares and handlers.
package ctxkeys

const (
	UserIDKey    = "userID"
	UserEmailKey = "userEmail"
	// ParentCtxKey carries the request context into websocket sessions.
	ParentCtxKey = "parentCtx"
)
