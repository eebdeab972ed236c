package auth

import (
	"context"

	"mind-scribe/cmd/server/handlers/handlerutil"
	"mind-scribe/cmd/server/handlers/httperr"
	"mind-scribe/internal/logger"
	"mind-scribe/internal/services/auth"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// AuthService defines the interface for auth service
type AuthService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*auth.User, error)
	Login(ctx context.Context, req auth.LoginRequest) (string, error)
	VerifyToken(raw string) (*auth.Claims, error)
	Me(ctx context.Context, userID bson.ObjectID) (*auth.User, error)
	UpdateProfile(ctx context.Context, userID bson.ObjectID, req auth.UpdateProfileRequest) (*auth.User, error)
	ChangePassword(ctx context.Context, userID bson.ObjectID, req auth.ChangePasswordRequest) error
}

// Handlers contains the auth HTTP handlers
type Handlers struct {
	authService AuthService
	validator   *validator.Validate
}

// NewHandlers creates new auth handlers
func NewHandlers(authService AuthService, validator *validator.Validate) *Handlers {
	return &Handlers{
		authService: authService,
		validator:   validator,
	}
}

// Register handles user registration
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body auth.RegisterRequest true "Register request"
// @Success 201 {object} auth.MessageResponse
// @Failure 400 {object} httperr.E
// @Failure 429 {object} httperr.E
// @Router /auth/register [post]
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req auth.RegisterRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "Register"); err != nil {
		return err
	}

	if _, err := h.authService.Register(c.UserContext(), req); err != nil {
		return handlerutil.HandleServiceError(err, "Register", bson.ObjectID{}, nil)
	}

	return c.Status(fiber.StatusCreated).JSON(auth.MessageResponse{
		Success: true,
		Message: "User registered successfully.",
	})
}

// Login handles user authentication
// @Summary Authenticate a user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body auth.LoginRequest true "Login request"
// @Success 200 {object} auth.LoginResponse
// @Failure 400 {object} httperr.E
// @Failure 429 {object} httperr.E
// @Router /auth/login [post]
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req auth.LoginRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "Login"); err != nil {
		return err
	}

	token, err := h.authService.Login(c.UserContext(), req)
	if err != nil {
		return handlerutil.HandleServiceError(err, "Login", bson.ObjectID{}, nil)
	}

	return c.JSON(auth.LoginResponse{Success: true, Token: token})
}

// Verify checks the bearer token without the JWT middleware so that a bad
// token still answers with the verify body shape.
// @Summary Verify a session token
// @Tags auth
// @Produce json
// @Security Bearer
// @Success 200 {object} auth.VerifyResponse
// @Failure 401 {object} auth.VerifyResponse
// @Router /auth/verify [get]
func (h *Handlers) Verify(c *fiber.Ctx) error {
	raw := c.Get(fiber.HeaderAuthorization)
	if raw == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(auth.VerifyResponse{
			Message: "No token provided",
		})
	}

	claims, err := h.authService.VerifyToken(raw)
	if err != nil {
		logger.L().Info("token verification failed", "handler", "Verify", "error", err)
		return c.Status(fiber.StatusUnauthorized).JSON(auth.VerifyResponse{
			Message: auth.ErrInvalidToken.Error(),
		})
	}

	return c.JSON(auth.VerifyResponse{Success: true, Valid: true, UserID: claims.UserID})
}

// Me returns the caller's profile
// @Summary Get current user
// @Tags auth
// @Produce json
// @Security Bearer
// @Success 200 {object} auth.UserResponse
// @Failure 401 {object} httperr.E
// @Failure 404 {object} httperr.E
// @Router /auth/me [get]
func (h *Handlers) Me(c *fiber.Ctx) error {
	userID, err := handlerutil.GetUserID(c)
	if err != nil {
		return err
	}

	user, err := h.authService.Me(c.UserContext(), userID)
	if err != nil {
		return handlerutil.HandleServiceError(err, "Me", userID, nil)
	}

	return c.JSON(auth.UserResponse{Success: true, User: user})
}

// UpdateProfile replaces fullname, email and avatar
// @Summary Update profile
// @Tags auth
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body auth.UpdateProfileRequest true "Profile"
// @Success 200 {object} auth.UserResponse
// @Failure 400 {object} httperr.E
// @Failure 401 {object} httperr.E
// @Failure 404 {object} httperr.E
// @Router /auth/update-profile [put]
func (h *Handlers) UpdateProfile(c *fiber.Ctx) error {
	userID, err := handlerutil.GetUserID(c)
	if err != nil {
		return err
	}

	var req auth.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return httperr.Fail(httperr.ErrBadRequest)
	}
	if req.Fullname == "" || req.Email == "" {
		return httperr.Fail(httperr.New(fiber.StatusBadRequest, "Full name and email are required."))
	}
	if err := h.validator.Struct(req); err != nil {
		logger.L().Warn("profile validation failed", "handler", "UpdateProfile", "userID", userID.Hex(), "error", err)
		return httperr.InvalidInput(err)
	}

	user, err := h.authService.UpdateProfile(c.UserContext(), userID, req)
	if err != nil {
		return handlerutil.HandleServiceError(err, "UpdateProfile", userID, nil)
	}

	return c.JSON(auth.UserResponse{
		Success: true,
		Message: "Profile updated successfully.",
		User:    user,
	})
}

// ChangePassword swaps the caller's password
// @Summary Change password
// @Tags auth
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body auth.ChangePasswordRequest true "Passwords"
// @Success 200 {object} auth.MessageResponse
// @Failure 400 {object} httperr.E
// @Failure 401 {object} httperr.E
// @Failure 404 {object} httperr.E
// @Router /auth/change-password [post]
func (h *Handlers) ChangePassword(c *fiber.Ctx) error {
	userID, err := handlerutil.GetUserID(c)
	if err != nil {
		return err
	}

	var req auth.ChangePasswordRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "ChangePassword"); err != nil {
		return err
	}

	if err := h.authService.ChangePassword(c.UserContext(), userID, req); err != nil {
		return handlerutil.HandleServiceError(err, "ChangePassword", userID, nil)
	}

	return c.JSON(auth.MessageResponse{Success: true, Message: "Password updated successfully."})
}
