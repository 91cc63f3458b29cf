package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets a default Cache-Control on GET responses that did
// not set one. View snapshots change every refresh cycle and are revalidated
// through their ETag.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet || len(c.Response().Header.Peek(fiber.HeaderCacheControl)) > 0 {
			return err
		}

		path := c.Path()
		var ttl string
		switch {
		case path == "/metrics", strings.HasPrefix(path, "/ws/"):
			ttl = "no-store"
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "no-cache"
		case strings.HasPrefix(path, "/v1/views/"):
			ttl = "private, no-cache"
		case strings.HasPrefix(path, "/v1/clients"):
			ttl = "private, max-age=5"
		case strings.HasPrefix(path, "/docs"):
			ttl = "public, max-age=3600"
		case strings.HasPrefix(path, "/v1/"):
			ttl = "private, max-age=0"
		}

		if ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}
		return err
	}
}
