package nethttp

import "github.com/gofiber/fiber/v2"

// ErrorBody is the minimal JSON error envelope every failure response
// carries: at least {"error": <kind>}.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeError(c *fiber.Ctx, status int, kind, message string) error {
	return c.Status(status).JSON(ErrorBody{Error: kind, Message: message})
}

// BadRequest writes a 400 with the given error kind and message.
func BadRequest(c *fiber.Ctx, kind, message string) error {
	return writeError(c, fiber.StatusBadRequest, kind, message)
}

// NotFound writes a 404 with the given error kind and message.
func NotFound(c *fiber.Ctx, kind, message string) error {
	return writeError(c, fiber.StatusNotFound, kind, message)
}

// InternalServerError writes a 500 with the given error kind and message.
// The body carries only kind and message; no stack trace is added.
func InternalServerError(c *fiber.Ctx, kind, message string) error {
	return writeError(c, fiber.StatusInternalServerError, kind, message)
}
