package http

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/trackmap/internal/core/domain"
)

// snapshotETag is the validator of one view revision.
func snapshotETag(snap domain.Snapshot, format string) string {
	return fmt.Sprintf(`W/"%s-%d-%s"`, snap.ViewID, snap.Revision, format)
}

// ETagMiddleware answers conditional GETs. Handlers that already set an
// ETag (view snapshots use their revision) keep it; other successful GET
// bodies get a weak hash.
func ETagMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := c.Next(); err != nil {
			return err
		}

		if c.Method() != fiber.MethodGet || c.Response().StatusCode() != fiber.StatusOK {
			return nil
		}

		etag := string(c.Response().Header.Peek(fiber.HeaderETag))
		if etag == "" {
			body := c.Response().Body()
			if len(body) == 0 {
				return nil
			}
			h := sha256.Sum256(body)
			etag = `W/"` + hex.EncodeToString(h[:8]) + `"`
			c.Set(fiber.HeaderETag, etag)
		}

		if c.Get(fiber.HeaderIfNoneMatch) == etag {
			c.Status(fiber.StatusNotModified)
			c.Response().ResetBody()
		}
		return nil
	}
}
