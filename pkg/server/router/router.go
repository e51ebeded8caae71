package router

import "github.com/gofiber/fiber/v2"

// ServerRouter registers one group of routes on a shared fiber app.
type ServerRouter interface {
	BuildRoutes(router *fiber.App) error
}
