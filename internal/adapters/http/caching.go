package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets default Cache-Control headers on GET responses
// that did not set their own. Pin data is per viewer (is_liked, is_mine),
// so API responses are private and revalidated through the ETag.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet {
			return err
		}
		if existing := c.GetRespHeader(fiber.HeaderCacheControl); existing != "" {
			return err
		}

		path := c.Path()
		var value string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			value = "public, max-age=10"
		case path == "/metrics":
			value = "no-cache"
		case strings.HasPrefix(path, "/docs"):
			value = "public, max-age=3600"
		case strings.HasPrefix(path, "/v1/pins/visible"), strings.HasPrefix(path, "/v1/pins/nearby"):
			value = "private, max-age=5"
		case strings.HasPrefix(path, "/v1/profiles/"):
			value = "private, max-age=30"
		case strings.HasPrefix(path, "/v1/"):
			value = "private, no-cache"
		}

		if value != "" {
			c.Set(fiber.HeaderCacheControl, value)
		}
		return err
	}
}
