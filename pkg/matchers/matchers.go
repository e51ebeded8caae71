// Package matchers implements the PII and Regex validators (spec §4.5):
// synchronous, deterministic per-rule pattern matchers with block or
// redact actions.
package matchers

import (
	"fmt"
	"regexp"

	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/mcp-guardrail/pkg/domain/guardrail"
	"github.com/NeuralTrust/mcp-guardrail/pkg/pii_entities"
)

// MatchPII evaluates one pii-type FilterRule against payload. A nil
// return means "no match, continue" — including when rule.Pattern names
// an unrecognised PII type, which spec §4.5 treats as allow.
func MatchPII(rule guardrail.FilterRule, payload, policyID string) *guardrail.ValidationResult {
	entity, pattern, ok := pii_entities.Lookup(rule.Pattern)
	if !ok {
		return nil
	}
	if !pattern.MatchString(payload) {
		return nil
	}

	switch rule.Action {
	case guardrail.ActionRedact:
		redacted := pattern.ReplaceAllString(payload, pii_entities.RedactTemplates[entity])
		result := guardrail.Redact(redacted, map[string]interface{}{
			"policy_id": policyID,
			"rule_type": string(guardrail.FilterPII),
			"pii_type":  string(entity),
		})
		return &result
	default:
		result := guardrail.Block(
			fmt.Sprintf("blocked by PII rule: %s", entity),
			map[string]interface{}{
				"policy_id": policyID,
				"rule_type": string(guardrail.FilterPII),
				"pii_type":  string(entity),
			},
		)
		return &result
	}
}

// MatchRegex evaluates one regex FilterRule against payload, compiled
// case-insensitively. An invalid pattern is logged and treated as no
// match (spec §4.5: "Invalid regex → allow").
func MatchRegex(rule guardrail.FilterRule, payload, policyID string, logger *logrus.Logger) *guardrail.ValidationResult {
	re, err := regexp.Compile("(?i)" + rule.Pattern)
	if err != nil {
		logger.WithError(err).WithField("pattern", rule.Pattern).Warn("invalid regex rule, allowing")
		return nil
	}
	if !re.MatchString(payload) {
		return nil
	}

	switch rule.Action {
	case guardrail.ActionRedact:
		redacted := re.ReplaceAllString(payload, "[REDACTED]")
		result := guardrail.Redact(redacted, map[string]interface{}{
			"policy_id": policyID,
			"rule_type": string(guardrail.FilterRegex),
		})
		return &result
	default:
		result := guardrail.Block(
			fmt.Sprintf("blocked by regex rule: %s", rule.Pattern),
			map[string]interface{}{
				"policy_id": policyID,
				"rule_type": string(guardrail.FilterRegex),
			},
		)
		return &result
	}
}
