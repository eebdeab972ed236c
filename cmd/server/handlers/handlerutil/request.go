package handlerutil

import (
	"errors"

	"mind-scribe/cmd/server/ctxkeys"
	"mind-scribe/cmd/server/handlers/httperr"
	"mind-scribe/internal/logger"
	"mind-scribe/internal/services/auth"
	"mind-scribe/internal/services/notes"
	"mind-scribe/internal/utils/crypto"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Service errors that are the caller's fault and carry a user-facing message.
var badRequest = []error{
	auth.ErrDuplicate,
	auth.ErrInvalidCredentials,
	auth.ErrOldPasswordIncorrect,
	crypto.ErrPasswordStrength,
	notes.ErrTitleContentRequired,
	notes.ErrInvalidLocation,
	notes.ErrInvalidBlock,
	notes.ErrInvalidRadius,
	notes.ErrCollaboratorExists,
	notes.ErrRemoveOwner,
}

var notFound = []error{
	notes.ErrNoteNotFound,
	notes.ErrOwnerNotFound,
	notes.ErrCollaboratorUnknown,
	auth.ErrUserNotFound,
}

// NotFoundError renders err as a 404.
func NotFoundError(err error) error {
	return httperr.Fail(httperr.E{
		Status:  fiber.StatusNotFound,
		Message: err.Error(),
	})
}

// GetUserID extracts user ID from fiber context
func GetUserID(c *fiber.Ctx) (bson.ObjectID, error) {
	userIDStr, ok := c.Locals(ctxkeys.UserIDKey).(string)
	if !ok {
		logger.L().Error("user ID not found in context", "handler", "getUserID", "path", c.Path())
		return bson.ObjectID{}, httperr.Fail(httperr.ErrUnauthorized)
	}

	userID, err := bson.ObjectIDFromHex(userIDStr)
	if err != nil {
		logger.L().Warn("invalid user ID", "handler", "getUserID", "userIDStr", userIDStr, "path", c.Path(), "error", err)
		return bson.ObjectID{}, httperr.Fail(httperr.ErrUnauthorized)
	}

	return userID, nil
}

// ParseAndValidateBody parses request body and validates it
func ParseAndValidateBody(c *fiber.Ctx, req any, validator *validator.Validate, handlerName string) error {
	userID, _ := c.Locals(ctxkeys.UserIDKey).(string)

	if err := c.BodyParser(req); err != nil {
		logger.L().Warn("failed to parse request body", "handler", handlerName, "userID", userID, "error", err)
		return httperr.Fail(httperr.ErrBadRequest)
	}

	if err := validator.Struct(req); err != nil {
		logger.L().Warn("request validation failed", "handler", handlerName, "userID", userID, "error", err)
		return httperr.InvalidInput(err)
	}

	return nil
}

// ParseAndValidateQuery parses query parameters and validates them
func ParseAndValidateQuery(c *fiber.Ctx, req any, validator *validator.Validate, handlerName string) error {
	userID, _ := c.Locals(ctxkeys.UserIDKey).(string)

	if err := c.QueryParser(req); err != nil {
		logger.L().Warn("failed to parse query params", "handler", handlerName, "userID", userID, "error", err)
		return httperr.Fail(httperr.ErrBadRequest)
	}

	if err := validator.Struct(req); err != nil {
		logger.L().Warn("query validation failed", "handler", handlerName, "userID", userID, "error", err)
		return httperr.InvalidInput(err)
	}

	return nil
}

// ExtractNoteID extracts and validates note ID from URL parameter. Malformed
// ids are reported as a missing note.
func ExtractNoteID(c *fiber.Ctx, userID bson.ObjectID, handlerName string) (bson.ObjectID, error) {
	noteIDStr := c.Params("id")
	if noteIDStr == "" {
		logger.L().Warn("missing note ID parameter", "handler", handlerName, "userID", userID.Hex(), "path", c.Path())
		return bson.ObjectID{}, NotFoundError(notes.ErrNoteNotFound)
	}

	noteID, err := bson.ObjectIDFromHex(noteIDStr)
	if err != nil {
		logger.L().Warn("invalid note ID parameter", "handler", handlerName, "userID", userID.Hex(), "noteIDStr", noteIDStr, "error", err)
		return bson.ObjectID{}, NotFoundError(notes.ErrNoteNotFound)
	}

	return noteID, nil
}

// HandleServiceError maps a service error onto the HTTP taxonomy. Unknown
// errors are logged and hidden behind a generic 500.
func HandleServiceError(err error, handlerName string, userID bson.ObjectID, noteID *bson.ObjectID) error {
	logFields := []any{"handler", handlerName, "userID", userID.Hex(), "error", err}
	if noteID != nil {
		logFields = append(logFields, "noteID", noteID.Hex())
	}

	for _, target := range notFound {
		if errors.Is(err, target) {
			logger.L().Info("resource not found", logFields...)
			return NotFoundError(target)
		}
	}

	for _, target := range badRequest {
		if errors.Is(err, target) {
			logger.L().Info("request rejected", logFields...)
			return httperr.Fail(httperr.E{Status: fiber.StatusBadRequest, Message: target.Error()})
		}
	}

	var forbidden *notes.ForbiddenError
	if errors.As(err, &forbidden) {
		logger.L().Warn("forbidden", logFields...)
		return httperr.Fail(httperr.E{Status: fiber.StatusForbidden, Message: forbidden.Error()})
	}

	logger.L().Error("service operation failed", logFields...)
	return httperr.Fail(httperr.ErrInternal)
}
