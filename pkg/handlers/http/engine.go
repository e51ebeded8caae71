package http

import (
	"context"

	"github.com/NeuralTrust/mcp-guardrail/pkg/domain/guardrail"
)

// Engine is the subset of validation.Engine the ingress handlers drive.
type Engine interface {
	ValidateRequest(ctx context.Context, vctx *guardrail.ValidationContext) *guardrail.ValidationResult
	ValidateResponse(ctx context.Context, vctx *guardrail.ValidationContext) *guardrail.ValidationResult
}

type validationResponseBody struct {
	Allowed         bool                      `json:"allowed"`
	Modified        bool                      `json:"modified"`
	ModifiedPayload *string                   `json:"modifiedPayload,omitempty"`
	Reason          string                    `json:"reason,omitempty"`
	BlockedResponse *guardrail.BlockedResponse `json:"blockedResponse,omitempty"`
}

func toResponseBody(result *guardrail.ValidationResult) validationResponseBody {
	if result == nil {
		return validationResponseBody{Allowed: true}
	}
	return validationResponseBody{
		Allowed:         result.Allowed,
		Modified:        result.Modified,
		ModifiedPayload: result.ModifiedPayload,
		Reason:          result.Reason,
		BlockedResponse: result.BlockedResponse,
	}
}
