package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// SyncVehicleHandler mirrors the tracker device of a vehicle. With
// async=true and a workflow engine configured the sync runs as a workflow
// and the run id is returned.
func SyncVehicleHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := strconv.ParseInt(c.Params("id"), 10, 64)
		if err != nil || id <= 0 {
			return errBadRequest(c, "vehicle id must be a positive integer")
		}

		if c.QueryBool("async") {
			if deps.Workflow == nil {
				return newError(c, fiber.StatusServiceUnavailable, "unavailable", "workflow engine not configured")
			}
			runID, err := deps.Workflow.StartDeviceSync(c.UserContext(), id)
			if err != nil {
				return errFrom(c, err)
			}
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"vehicle_id": id, "run_id": runID})
		}

		v, err := deps.Sync.SyncDevice(c.UserContext(), id)
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(v)
	}
}
