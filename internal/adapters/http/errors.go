package http

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/trackmap/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int      `json:"status"`
	Code      string   `json:"code"`    // bad_request, not_found, conflict, bad_gateway, internal_error
	Message   string   `json:"message"` // Human-readable message
	Fields    []string `json:"fields,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "not_found", msg)
}

func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}

// errFrom maps a service error onto a response. Parameter errors list the
// offending fields; tracking-service failures become 502.
func errFrom(c *fiber.Ctx, err error) error {
	var (
		paramErr  *domain.ParamError
		statusErr *domain.UpstreamStatusError
		decodeErr *domain.DecodeError
	)
	switch {
	case errors.As(err, &paramErr):
		reqID, _ := c.Locals("requestid").(string)
		return c.Status(fiber.StatusBadRequest).JSON(APIError{
			Status:    fiber.StatusBadRequest,
			Code:      "bad_request",
			Message:   "missing or invalid parameters: " + strings.Join(paramErr.Fields, ", "),
			Fields:    paramErr.Fields,
			RequestID: reqID,
		})
	case errors.Is(err, domain.ErrNotFound):
		return errNotFound(c, err.Error())
	case errors.Is(err, domain.ErrNoContainer):
		return errBadRequest(c, err.Error())
	case errors.Is(err, domain.ErrUnsupported):
		return newError(c, fiber.StatusConflict, "conflict", err.Error())
	case errors.As(err, &statusErr), errors.As(err, &decodeErr):
		return newError(c, fiber.StatusBadGateway, "bad_gateway", err.Error())
	default:
		LoggerFromCtx(c.UserContext()).Error("request failed", "path", c.Path(), "error", err)
		return errInternal(c, "internal error")
	}
}
