package http

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/trackmap/internal/core/domain"
	"github.com/samirrijal/trackmap/internal/core/usecases"
)

type openViewRequest struct {
	Kind   string          `json:"kind"`
	Params json.RawMessage `json:"params"`
}

type viewResponse struct {
	ID       string          `json:"id"`
	Kind     string          `json:"kind"`
	Snapshot domain.Snapshot `json:"snapshot"`
}

type viewSummary struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Revision  uint64 `json:"revision"`
	Container string `json:"container"`
}

type locationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (r locationRequest) point() (domain.GeoPoint, bool) {
	if r.Latitude == nil || r.Longitude == nil {
		return domain.GeoPoint{}, false
	}
	p := domain.GeoPoint{Lat: *r.Latitude, Lon: *r.Longitude}
	return p, p.Valid()
}

func respondView(c *fiber.Ctx, status int, v usecases.View) error {
	snap := v.Snapshot()
	return c.Status(status).JSON(viewResponse{ID: v.ID(), Kind: v.Kind(), Snapshot: snap})
}

// OpenViewHandler starts a view of the requested kind.
func OpenViewHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req openViewRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Kind == "" {
			return errBadRequest(c, "kind is required")
		}

		v, err := deps.Views.Open(c.UserContext(), req.Kind, req.Params)
		if err != nil {
			return errFrom(c, err)
		}

		c.Location("/v1/views/" + v.ID())
		return respondView(c, fiber.StatusCreated, v)
	}
}

// ListViewsHandler lists the running views.
func ListViewsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		views := deps.Views.List()
		out := make([]viewSummary, len(views))
		for i, v := range views {
			snap := v.Snapshot()
			out[i] = viewSummary{ID: v.ID(), Kind: v.Kind(), Revision: snap.Revision, Container: snap.Container}
		}
		return c.JSON(out)
	}
}

// GetViewHandler returns the current snapshot, as JSON or as GeoJSON when
// format=geojson.
func GetViewHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		v, err := deps.Views.Get(c.Params("id"))
		if err != nil {
			return errFrom(c, err)
		}

		snap := v.Snapshot()
		format := c.Query("format", "json")
		switch format {
		case "json":
			c.Set(fiber.HeaderETag, snapshotETag(snap, format))
			return c.JSON(snap)
		case "geojson":
			c.Set(fiber.HeaderETag, snapshotETag(snap, format))
			c.Set(fiber.HeaderContentType, "application/geo+json")
			data, err := snapshotGeoJSON(snap).MarshalJSON()
			if err != nil {
				return errInternal(c, err.Error())
			}
			return c.Send(data)
		default:
			return errBadRequest(c, "format must be json or geojson")
		}
	}
}

// CloseViewHandler stops a view.
func CloseViewHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Views.Close(c.Params("id")); err != nil {
			return errFrom(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// RefreshViewHandler queues a manual refresh.
func RefreshViewHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		queued, err := deps.Views.Trigger(c.Params("id"))
		if err != nil {
			return errFrom(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"queued": queued})
	}
}

// MoveMarkerHandler places the marker of an editable view.
func MoveMarkerHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req locationRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		p, ok := req.point()
		if !ok {
			return errBadRequest(c, "latitude and longitude are required and must be valid")
		}

		id := c.Params("id")
		if err := deps.Views.Move(id, p.Lat, p.Lon); err != nil {
			return errFrom(c, err)
		}
		v, err := deps.Views.Get(id)
		if err != nil {
			return errFrom(c, err)
		}
		return respondView(c, fiber.StatusOK, v)
	}
}

// SaveViewHandler persists the marker of an editable view.
func SaveViewHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if err := deps.Views.Save(c.UserContext(), id); err != nil {
			return errFrom(c, err)
		}
		v, err := deps.Views.Get(id)
		if err != nil {
			return errFrom(c, err)
		}
		return respondView(c, fiber.StatusOK, v)
	}
}
