// Package audit implements the Audit Validator (spec §4.4): per-resource
// explicit allow/reject/conditional decisions, including IP allow-list
// and CIDR checks, and conditional-approval expiry.
package audit

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/mcp-guardrail/pkg/domain/guardrail"
)

// Validator runs only when a ValidationContext carries audit rules.
// Validate returns nil when no audit entry applies at all — the
// orchestrator then proceeds to the rest of the pipeline as if audit
// weren't configured.
type Validator interface {
	Validate(vctx *guardrail.ValidationContext, rawPayload string) *guardrail.ValidationResult
}

type validator struct {
	logger *logrus.Logger
	now    func() time.Time
}

func NewValidator(logger *logrus.Logger) Validator {
	return &validator{logger: logger, now: time.Now}
}

func (v *validator) Validate(vctx *guardrail.ValidationContext, rawPayload string) *guardrail.ValidationResult {
	// Server-level lookup keys by lowercased server name. Resource-level
	// lookup keys by the raw resource name — the asymmetry is deliberate
	// (spec §9b): re-implementers must preserve it, not "fix" it.
	if vctx.MCPServerName != "" {
		if policy, ok := vctx.AuditPolicies[strings.ToLower(vctx.MCPServerName)]; ok {
			if result := v.evaluate(policy, vctx); !result.Allowed {
				return &result
			}
		}
	}

	resourceName := ResourceName(rawPayload)
	if resourceName == "" {
		return nil
	}

	policy, ok := vctx.AuditPolicies[resourceName]
	if !ok {
		return nil
	}
	result := v.evaluate(policy, vctx)
	return &result
}

func (v *validator) evaluate(policy guardrail.AuditPolicy, vctx *guardrail.ValidationContext) guardrail.ValidationResult {
	remarks := strings.ToLower(strings.TrimSpace(policy.Remarks))

	switch guardrail.AuditRemark(remarks) {
	case guardrail.RemarkApproved:
		return guardrail.Allow()
	case guardrail.RemarkRejected:
		return guardrail.Block(
			"Resource access has been rejected by Audit Policy",
			map[string]interface{}{"policy_id": guardrail.AuditPolicyID},
		)
	case guardrail.RemarkConditionallyApproved:
		return v.evaluateConditional(policy, vctx)
	default:
		v.logger.WithField("remarks", policy.Remarks).Warn("audit policy has unrecognised remarks, allowing")
		return guardrail.Allow()
	}
}

func (v *validator) evaluateConditional(policy guardrail.AuditPolicy, vctx *guardrail.ValidationContext) guardrail.ValidationResult {
	cond := policy.ApprovalConditions
	if cond == nil {
		return guardrail.Allow()
	}

	if cond.ExpiresAt > 0 && v.now().Unix() > cond.ExpiresAt {
		return guardrail.Block(
			"Conditional approval has expired",
			map[string]interface{}{"policy_id": guardrail.AuditPolicyID},
		)
	}

	if vctx.ClientIP != "" && (len(cond.AllowedIPs) > 0 || len(cond.AllowedIPRanges) > 0) {
		if !matchesAny(vctx.ClientIP, cond.AllowedIPs, cond.AllowedIPRanges) {
			return guardrail.Block(
				"Client IP is not in the audit policy's allowed list",
				map[string]interface{}{"policy_id": guardrail.AuditPolicyID},
			)
		}
	}

	if len(cond.WhitelistedEndpoints) > 0 {
		v.logger.WithField("resource", policy.ResourceName).Warn("whitelisted endpoints are recognised but not enforced")
	}

	return guardrail.Allow()
}
