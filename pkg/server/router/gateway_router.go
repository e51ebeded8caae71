package router

import (
	"github.com/gofiber/fiber/v2"

	handlers "github.com/NeuralTrust/mcp-guardrail/pkg/handlers/http"
)

// GatewayRouter registers the gateway's ingress routes, plus an ambient
// /version probe alongside the correctness-bearing /health check.
type GatewayRouter struct {
	handlers handlers.HandlerTransport
}

func NewGatewayRouter(transport handlers.HandlerTransport) *GatewayRouter {
	return &GatewayRouter{handlers: transport}
}

func (r *GatewayRouter) BuildRoutes(router *fiber.App) error {
	api := router.Group("/api")
	api.Post("/ingestData", r.handlers.IngestDataHandler.Handle)

	validate := api.Group("/validate")
	validate.Post("/request", r.handlers.ValidateRequestHandler.Handle)
	validate.Post("/response", r.handlers.ValidateResponseHandler.Handle)

	router.Get("/health", r.handlers.HealthHandler.Handle)
	router.Get("/version", r.handlers.GetVersionHandler.Handle)

	return nil
}
