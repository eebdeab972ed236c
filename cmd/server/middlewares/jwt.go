package middlewares

import (
	"mind-scribe/cmd/server/ctxkeys"
	"mind-scribe/cmd/server/handlers/httperr"
	"mind-scribe/internal/config"
	"mind-scribe/internal/logger"
	"mind-scribe/internal/services/auth"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// JWT returns a configured Fiber middleware that:
//
//   - validates the HS256 Bearer token signature using cfg.JWTSecret
//   - makes sure the token carries "user_id" and "email" claims
//   - stores those values in ctx.Locals(ctxkeys.UserIDKey) / ctx.Locals(ctxkeys.UserEmailKey)
//
// A missing header and a bad token both end in a 401.
func JWT(cfg config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{JWTAlg: jwt.SigningMethodHS256.Alg(), Key: []byte(cfg.JWTSecret)},
		SuccessHandler: func(c *fiber.Ctx) error {
			token := c.Locals("user").(*jwt.Token)
			claims, _ := token.Claims.(jwt.MapClaims)

			userID, ok := claims["user_id"].(string)
			if !ok || userID == "" {
				return unauthorized(c, auth.ErrInvalidTokenMissingUserID)
			}

			userEmail, ok := claims["email"].(string)
			if !ok || userEmail == "" {
				return unauthorized(c, auth.ErrInvalidTokenMissingEmail)
			}

			c.Locals(ctxkeys.UserIDKey, userID)
			c.Locals(ctxkeys.UserEmailKey, userEmail)
			return c.Next()
		},
		ErrorHandler: unauthorized,
	})
}

func unauthorized(c *fiber.Ctx, err error) error {
	logger.L().Info("rejected bearer token", "path", c.Path(), "error", err)
	if c.Get(fiber.HeaderAuthorization) == "" {
		return httperr.Fail(httperr.ErrNoToken)
	}
	return httperr.Fail(httperr.New(fiber.StatusUnauthorized, auth.ErrInvalidToken.Error()))
}
