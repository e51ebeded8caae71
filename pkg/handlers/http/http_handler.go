package http

import "github.com/gofiber/fiber/v2"

// Handler is the common shape every route handler satisfies.
type Handler interface {
	Handle(ctx *fiber.Ctx) error
}

// HandlerTransport groups every wired handler so the router can build
// routes without knowing how each one was constructed.
type HandlerTransport struct {
	IngestDataHandler       Handler
	ValidateRequestHandler  Handler
	ValidateResponseHandler Handler
	HealthHandler           Handler
	GetVersionHandler       Handler
}
