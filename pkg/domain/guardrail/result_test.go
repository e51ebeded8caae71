package guardrail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationResult_Validate_BlockedRequiresReason(t *testing.T) {
	r := ValidationResult{Allowed: false}
	assert.Error(t, r.Validate())
}

func TestValidationResult_Validate_ModifiedRequiresPayload(t *testing.T) {
	r := ValidationResult{Allowed: true, Modified: true}
	assert.Error(t, r.Validate())
}

func TestValidationResult_Validate_AllowPasses(t *testing.T) {
	r := Allow()
	assert.NoError(t, r.Validate())
}

func TestNewBlockedResponse_BuildsCanonicalEnvelope(t *testing.T) {
	resp := NewBlockedResponse("blocked by scanner", `{"method":"tools/call"}`)

	assert.Equal(t, "2.0", resp.JSONRPC)
	assert.Equal(t, -32000, resp.Error.Code)
	assert.Equal(t, "Request blocked by security policy", resp.Error.Message)
	assert.Equal(t, "blocked by scanner", resp.Error.Data.Reason)
	assert.Equal(t, `{"method":"tools/call"}`, resp.Error.Data.OriginalPayload)
}
