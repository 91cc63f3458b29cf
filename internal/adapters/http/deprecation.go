package http

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// DeprecatedRoute marks an endpoint as deprecated with a sunset date.
type DeprecatedRoute struct {
	Path        string // route pattern, ":name" segments match anything
	SunsetDate  time.Time
	Alternative string
}

// legacyRoutes are the RPC endpoints kept for older map clients.
var legacyRoutes = []DeprecatedRoute{
	{Path: "/get_clients_with_location", SunsetDate: time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC), Alternative: "/v1/clients"},
	{Path: "/update_partner_location", SunsetDate: time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC), Alternative: "/v1/clients/{id}/location"},
}

// DeprecationMiddleware adds Deprecation, Sunset and Link headers to
// deprecated endpoints.
func DeprecationMiddleware(deprecated []DeprecatedRoute) fiber.Handler {
	return func(c *fiber.Ctx) error {
		for _, d := range deprecated {
			if !matchPattern(c.Path(), d.Path) {
				continue
			}
			c.Set("Deprecation", "true")
			c.Set("Sunset", d.SunsetDate.UTC().Format(time.RFC1123))
			if d.Alternative != "" {
				c.Set(fiber.HeaderLink, fmt.Sprintf(`<%s>; rel="successor-version"`, d.Alternative))
			}
			days := time.Until(d.SunsetDate).Hours() / 24
			c.Set("Warning", fmt.Sprintf(`299 - "Deprecated API, will sunset in %.0f days"`, days))
			break
		}
		return c.Next()
	}
}

// matchPattern reports whether path matches a route pattern such as
// "/v1/clients/:id/location".
func matchPattern(path, pattern string) bool {
	if path == pattern {
		return true
	}
	ps := strings.Split(strings.Trim(path, "/"), "/")
	pp := strings.Split(strings.Trim(pattern, "/"), "/")
	if len(ps) != len(pp) {
		return false
	}
	for i := range pp {
		if strings.HasPrefix(pp[i], ":") {
			if ps[i] == "" {
				return false
			}
			continue
		}
		if pp[i] != ps[i] {
			return false
		}
	}
	return true
}
