package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/mcp-guardrail/pkg/domain/guardrail"
	"github.com/NeuralTrust/mcp-guardrail/pkg/policy"
)

type validatePayloadBody struct {
	Payload string `json:"payload"`
}

type validateRequestHandler struct {
	policy     policy.Client
	engine     Engine
	background guardrail.BackgroundGroup
	logger     *logrus.Logger
}

// NewValidateRequestHandler serves POST /api/validate/request (spec §6):
// fetches the policy set fresh for this one call, then runs it through
// the request-side pipeline (rate-limit, audit, matchers, scanner).
func NewValidateRequestHandler(policyClient policy.Client, engine Engine, background guardrail.BackgroundGroup, logger *logrus.Logger) Handler {
	return &validateRequestHandler{policy: policyClient, engine: engine, background: background, logger: logger}
}

func (h *validateRequestHandler) Handle(c *fiber.Ctx) error {
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
	auditPolicies := h.policy.FetchAuditPolicies(ctx)

	vctx := &guardrail.ValidationContext{
		ClientIP:          c.IP(),
		Endpoint:          c.OriginalURL(),
		Method:            c.Method(),
		RequestHeaders:    headersOf(c),
		RawRequestPayload: body.Payload,
		ActivePolicies:    policies,
		AuditPolicies:     auditPolicies,
		HasAuditRules:     len(auditPolicies) > 0,
		RateLimit:         guardrail.DefaultRateLimitConfig(),
		Background:        h.background,
	}

	result := h.engine.ValidateRequest(ctx, vctx)
	return c.Status(fiber.StatusOK).JSON(toResponseBody(result))
}
