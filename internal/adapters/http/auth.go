package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/samirrijal/pinmap/internal/pkg/auth"
)

const userIDLocal = "user_id"

// AuthMiddleware requires a valid bearer token. Browsers cannot set headers
// on WebSocket upgrades, so a token query parameter is accepted as well.
// The authenticated user is stored in Locals("user_id") and in the user
// context, and the request logger is tagged with it.
func AuthMiddleware(v *auth.Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return errUnauthorized(c, auth.ErrMissingToken.Error())
		}
		if v == nil {
			return errUnauthorized(c, auth.ErrInvalidToken.Error())
		}

		claims, err := v.Verify(token)
		if err != nil {
			LoggerFromCtx(c.UserContext()).Debug("token rejected", "error", err)
			return errUnauthorized(c, auth.ErrInvalidToken.Error())
		}

		userID := claims.Subject
		c.Locals(userIDLocal, userID)
		ctx := auth.WithUserID(c.UserContext(), userID)
		ctx = withLogger(ctx, LoggerFromCtx(ctx).With("user_id", userID))
		c.SetUserContext(ctx)

		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) string {
	h := c.Get(fiber.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return c.Query("token")
}

// viewerID returns the authenticated user for the request.
func viewerID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDLocal).(string)
	return id
}
