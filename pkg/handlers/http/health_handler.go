package http

import "github.com/gofiber/fiber/v2"

type healthHandler struct{}

func NewHealthHandler() Handler {
	return &healthHandler{}
}

func (h *healthHandler) Handle(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"status":  "healthy",
	})
}
