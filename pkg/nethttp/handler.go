package nethttp

import (
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Health returns HTTP 200 with a minimal liveness body.
func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Version returns HTTP 200 with build metadata.
func Version(version string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"version":     version,
			"buildNumber": os.Getenv("BUILD_NUMBER"),
			"requestDate": time.Now().UTC(),
		})
	}
}
