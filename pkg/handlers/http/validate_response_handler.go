package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/mcp-guardrail/pkg/domain/guardrail"
	"github.com/NeuralTrust/mcp-guardrail/pkg/policy"
)

type validateResponseHandler struct {
	policy     policy.Client
	engine     Engine
	background guardrail.BackgroundGroup
	logger     *logrus.Logger
}

// NewValidateResponseHandler serves POST /api/validate/response (spec §6).
// Same request/response shape as validate/request; the response path
// never runs rate-limit or audit, only matchers and scanner fan-out.
func NewValidateResponseHandler(policyClient policy.Client, engine Engine, background guardrail.BackgroundGroup, logger *logrus.Logger) Handler {
	return &validateResponseHandler{policy: policyClient, engine: engine, background: background, logger: logger}
}

func (h *validateResponseHandler) Handle(c *fiber.Ctx) error {
	var body validatePayloadBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	ctx := c.Context()
	policies, err := h.policy.FetchGuardrailPolicies(ctx)
	if err != nil {
		h.logger.WithError(err).Error("failed to fetch guardrail policies")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "policy store unavailable"})
	}

	vctx := &guardrail.ValidationContext{
		ClientIP:           c.IP(),
		Endpoint:           c.OriginalURL(),
		Method:             c.Method(),
		ResponseHeaders:    headersOf(c),
		RawResponsePayload: body.Payload,
		ActivePolicies:     policies,
		RateLimit:          guardrail.DefaultRateLimitConfig(),
		Background:         h.background,
	}

	result := h.engine.ValidateResponse(ctx, vctx)
	return c.Status(fiber.StatusOK).JSON(toResponseBody(result))
}
