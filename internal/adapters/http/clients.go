package http

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/trackmap/internal/core/domain"
)

// ListClientsHandler returns the located clients, paginated.
func ListClientsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		partners, err := deps.Partners.ListWithLocation(c.UserContext())
		if err != nil {
			return errFrom(c, err)
		}
		if partners == nil {
			partners = []domain.Partner{}
		}

		offset, limit := pageParams(c)
		page, pg := paginate(partners, offset, limit)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// UpdateClientLocationHandler stores a client's coordinates.
func UpdateClientLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := strconv.ParseInt(c.Params("id"), 10, 64)
		if err != nil || id <= 0 {
			return errBadRequest(c, "client id must be a positive integer")
		}

		var req locationRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		p, ok := req.point()
		if !ok {
			return errBadRequest(c, "latitude and longitude are required and must be valid")
		}

		if err := deps.Partners.UpdateLocation(c.UserContext(), id, p.Lat, p.Lon); err != nil {
			return errFrom(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// rpcRequest is the JSON-RPC envelope older clients post. Bare parameter
// objects are accepted too.
type rpcRequest struct {
	ID     any             `json:"id"`
	Params json.RawMessage `json:"params"`
}

type rpcResponse struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id"`
	Result  any    `json:"result"`
}

func parseRPC(c *fiber.Ctx, dst any) (id any, err error) {
	body := c.Body()
	if len(body) == 0 {
		return nil, nil
	}
	var env rpcRequest
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	raw := env.Params
	if len(raw) == 0 {
		raw = body
	}
	if dst != nil {
		if err := json.Unmarshal(raw, dst); err != nil {
			return env.ID, err
		}
	}
	return env.ID, nil
}

type legacyClient struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Street    any      `json:"street"`
}

// LegacyClientsHandler serves POST /get_clients_with_location.
func LegacyClientsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseRPC(c, nil)
		if err != nil {
			return errBadRequest(c, "invalid request body")
		}

		partners, err := deps.Partners.ListWithLocation(c.UserContext())
		if err != nil {
			return errFrom(c, err)
		}

		out := make([]legacyClient, len(partners))
		for i, p := range partners {
			out[i] = legacyClient{ID: p.ID, Name: p.Name, Latitude: p.Latitude, Longitude: p.Longitude, Street: false}
			if p.Street != "" {
				out[i].Street = p.Street
			}
		}
		return c.JSON(rpcResponse{JSONRPC: "2.0", ID: id, Result: out})
	}
}

type legacyLocationParams struct {
	PartnerID json.Number `json:"partner_id"`
	Latitude  *float64    `json:"latitude"`
	Longitude *float64    `json:"longitude"`
}

// LegacyUpdateLocationHandler serves POST /update_partner_location. Failures
// are reported in the result body the way the old endpoint did.
func LegacyUpdateLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var params legacyLocationParams
		id, err := parseRPC(c, &params)
		if err != nil {
			return errBadRequest(c, "invalid request body")
		}

		partnerID, err := params.PartnerID.Int64()
		if err != nil || params.Latitude == nil || params.Longitude == nil {
			return errBadRequest(c, "partner_id, latitude and longitude are required")
		}

		result := fiber.Map{"status": "success"}
		err = deps.Partners.UpdateLocation(c.UserContext(), partnerID, *params.Latitude, *params.Longitude)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			result = fiber.Map{"status": "error", "message": "Partner not found"}
		case err != nil:
			return errFrom(c, err)
		}
		return c.JSON(rpcResponse{JSONRPC: "2.0", ID: id, Result: result})
	}
}
