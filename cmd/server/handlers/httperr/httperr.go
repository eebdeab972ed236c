package httperr

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// E represents an HTTP error with status code and message. It renders as
// {"success": false, "message": "..."}.
type E struct {
	Status  int    `json:"-" example:"400"`
	Success bool   `json:"success" example:"false"`
	Message string `json:"message" example:"Bad Request"`
}

// Error implements the error interface
func (e E) Error() string {
	return e.Message
}

// JSON returns the error as JSON response
func (e E) JSON(c *fiber.Ctx) error {
	e.Success = false
	return c.Status(e.Status).JSON(e)
}

// Fail returns the error for Fiber's global error handler to process
func Fail(err E) error {
	return err
}

// New builds an error with an arbitrary status.
func New(status int, message string) E {
	return E{Status: status, Message: message}
}

// InvalidInput wraps a validation error and returns the standard response.
func InvalidInput(err error) error {
	return Fail(E{
		Status:  fiber.StatusBadRequest,
		Message: "Invalid input: " + err.Error(),
	})
}

// InternalError returns an internal server error with the given message
func InternalError(message string) E {
	return E{Status: fiber.StatusInternalServerError, Message: message}
}

// Pre-defined HTTP errors
var (
	ErrBadRequest      = E{Status: fiber.StatusBadRequest, Message: "Bad Request"}
	ErrUnauthorized    = E{Status: fiber.StatusUnauthorized, Message: "Unauthorized"}
	ErrNoToken         = E{Status: fiber.StatusUnauthorized, Message: "No token, authorization denied"}
	ErrTooManyRequests = E{Status: fiber.StatusTooManyRequests, Message: "Too Many Requests"}
	ErrInternal        = InternalError("Server error")
)

// Handler is the global error handler for Fiber
func Handler(c *fiber.Ctx, err error) error {
	var e E
	if errors.As(err, &e) {
		return e.JSON(c)
	}

	var fiberError *fiber.Error
	if errors.As(err, &fiberError) {
		return E{Status: fiberError.Code, Message: fiberError.Message}.JSON(c)
	}

	return ErrInternal.JSON(c)
}
