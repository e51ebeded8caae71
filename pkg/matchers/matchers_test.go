package matchers

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NeuralTrust/mcp-guardrail/pkg/domain/guardrail"
)

func TestMatchPII_Redact(t *testing.T) {
	rule := guardrail.FilterRule{Type: guardrail.FilterPII, Pattern: "email", Action: guardrail.ActionRedact}

	result := MatchPII(rule, "Contact me at alice@example.com", "MCPGuardrails")
	require.NotNil(t, result)
	assert.True(t, result.Allowed)
	assert.True(t, result.Modified)
	assert.Equal(t, "Contact me at [EMAIL_REDACTED]", *result.ModifiedPayload)
}

func TestMatchPII_Block(t *testing.T) {
	rule := guardrail.FilterRule{Type: guardrail.FilterPII, Pattern: "ssn", Action: guardrail.ActionBlock}

	result := MatchPII(rule, "my ssn is 123-45-6789", "MCPGuardrails")
	require.NotNil(t, result)
	assert.False(t, result.Allowed)
	assert.Equal(t, "ssn", result.Metadata["pii_type"])
}

func TestMatchPII_NoMatch_ReturnsNil(t *testing.T) {
	rule := guardrail.FilterRule{Type: guardrail.FilterPII, Pattern: "email", Action: guardrail.ActionBlock}
	assert.Nil(t, MatchPII(rule, "nothing sensitive here", "MCPGuardrails"))
}

func TestMatchPII_UnknownType_ReturnsNil(t *testing.T) {
	rule := guardrail.FilterRule{Type: guardrail.FilterPII, Pattern: "not_a_real_type", Action: guardrail.ActionBlock}
	assert.Nil(t, MatchPII(rule, "alice@example.com", "MCPGuardrails"))
}

func TestMatchRegex_Redact(t *testing.T) {
	rule := guardrail.FilterRule{Type: guardrail.FilterRegex, Pattern: `secret-\d+`, Action: guardrail.ActionRedact}

	result := MatchRegex(rule, "token is secret-123", "MCPGuardrails", logrus.New())
	require.NotNil(t, result)
	assert.Equal(t, "token is [REDACTED]", *result.ModifiedPayload)
}

func TestMatchRegex_Block(t *testing.T) {
	rule := guardrail.FilterRule{Type: guardrail.FilterRegex, Pattern: `secret-\d+`, Action: guardrail.ActionBlock}

	result := MatchRegex(rule, "token is secret-123", "MCPGuardrails", logrus.New())
	require.NotNil(t, result)
	assert.False(t, result.Allowed)
}

func TestMatchRegex_InvalidPattern_ReturnsNil(t *testing.T) {
	rule := guardrail.FilterRule{Type: guardrail.FilterRegex, Pattern: `(unclosed`, Action: guardrail.ActionBlock}
	assert.Nil(t, MatchRegex(rule, "anything", "MCPGuardrails", logrus.New()))
}

func TestMatchRegex_CaseInsensitive(t *testing.T) {
	rule := guardrail.FilterRule{Type: guardrail.FilterRegex, Pattern: `SECRET`, Action: guardrail.ActionBlock}
	result := MatchRegex(rule, "this is secret", "MCPGuardrails", logrus.New())
	require.NotNil(t, result)
	assert.False(t, result.Allowed)
}
