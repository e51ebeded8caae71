package policy

import "github.com/NeuralTrust/mcp-guardrail/pkg/domain/guardrail"

// guardrailPoliciesResponse decodes straight into the authoring-shape
// domain entities spec §3 names (guardrail.GuardrailPolicy and friends);
// there is no private DTO layer for this response body, since
// mapstructure.Decode can fill the public structs directly from the
// generic map the JSON body decodes into.
type guardrailPoliciesResponse struct {
	Policies []guardrail.GuardrailPolicy `mapstructure:"policies"`
}

type approvalConditionsDTO struct {
	ExpiresAt            int64    `mapstructure:"expires_at"`
	AllowedIPs           []string `mapstructure:"allowed_ips"`
	AllowedIPRanges      []string `mapstructure:"allowed_ip_ranges"`
	WhitelistedEndpoints []string `mapstructure:"whitelisted_endpoints"`
}

type auditPolicyDTO struct {
	ResourceName       string                  `mapstructure:"resource_name"`
	Remarks            string                  `mapstructure:"remarks"`
	MarkedBy           string                  `mapstructure:"marked_by"`
	ApprovalConditions *approvalConditionsDTO `mapstructure:"approval_conditions"`
}

type auditPoliciesResponse struct {
	AuditPolicies []auditPolicyDTO `mapstructure:"auditPolicies"`
}
