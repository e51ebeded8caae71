package policy

import (
	"strings"

	"github.com/NeuralTrust/mcp-guardrail/pkg/domain/guardrail"
)

// translateGuardrailPolicy implements spec §4.1's authoring-to-internal
// translation. The resulting policy id is always "MCPGuardrails".
func translateGuardrailPolicy(dto guardrail.GuardrailPolicy) guardrail.Policy {
	p := guardrail.Policy{
		ID:     guardrail.GuardrailPolicyID,
		Name:   dto.Name,
		Active: dto.Active,
	}

	if dto.HarmfulCategories {
		p.RequestRules = append(p.RequestRules, guardrail.FilterRule{
			Type:   guardrail.FilterHarmfulCategories,
			Action: guardrail.ActionBlock,
		})
	}
	if dto.PromptAttacks {
		p.RequestRules = append(p.RequestRules, guardrail.FilterRule{
			Type:   guardrail.FilterPromptAttacks,
			Action: guardrail.ActionBlock,
			Config: map[string]interface{}{"threshold": 0.5},
		})
	}

	if len(dto.DeniedTopics) > 0 {
		topics := make([]string, 0, len(dto.DeniedTopics))
		var substrings []string
		for _, dt := range dto.DeniedTopics {
			topics = append(topics, dt.Topic)
			substrings = append(substrings, dt.SamplePhrases...)
		}
		banTopics := guardrail.FilterRule{
			Type:   guardrail.FilterBanTopics,
			Action: guardrail.ActionBlock,
			Config: map[string]interface{}{"topics": topics},
		}
		banSubstrings := guardrail.FilterRule{
			Type:   guardrail.FilterBanSubstrings,
			Action: guardrail.ActionBlock,
			Config: map[string]interface{}{"substrings": substrings},
		}
		appendByApplyFlags(&p, dto, banTopics)
		appendByApplyFlags(&p, dto, banSubstrings)
	}

	for _, pii := range dto.PIITypes {
		action := guardrail.ActionBlock
		if strings.EqualFold(pii.Behavior, "mask") {
			action = guardrail.ActionRedact
		}
		rule := guardrail.FilterRule{
			Type:    guardrail.FilterPII,
			Pattern: pii.Type,
			Action:  action,
		}
		appendByApplyFlags(&p, dto, rule)
	}

	for _, rx := range dto.RegexPatterns {
		action := guardrail.RuleAction(rx.Action)
		if action == "" {
			action = guardrail.ActionBlock
		}
		rule := guardrail.FilterRule{
			Type:    guardrail.FilterRegex,
			Pattern: rx.Pattern,
			Action:  action,
		}
		appendByApplyFlags(&p, dto, rule)
	}

	return p
}

// appendByApplyFlags adds rule to request and/or response rule sets per
// the policy's apply-on-* flags. harmfulCategories/promptAttacks are
// request-only per §4.1 and never go through this helper.
func appendByApplyFlags(p *guardrail.Policy, dto guardrail.GuardrailPolicy, rule guardrail.FilterRule) {
	if dto.ApplyOnRequest {
		p.RequestRules = append(p.RequestRules, rule)
	}
	if dto.ApplyOnResponse {
		p.ResponseRules = append(p.ResponseRules, rule)
	}
}

// translateAuditPolicy builds the internal AuditPolicy and the lowercased
// key it is stored under.
func translateAuditPolicy(dto auditPolicyDTO) (string, guardrail.AuditPolicy) {
	key := strings.ToLower(dto.ResourceName)
	ap := guardrail.AuditPolicy{
		ResourceName: dto.ResourceName,
		Remarks:      dto.Remarks,
		MarkedBy:     dto.MarkedBy,
	}
	if dto.ApprovalConditions != nil {
		ap.ApprovalConditions = &guardrail.ApprovalConditions{
			ExpiresAt:            dto.ApprovalConditions.ExpiresAt,
			AllowedIPs:           dto.ApprovalConditions.AllowedIPs,
			AllowedIPRanges:      dto.ApprovalConditions.AllowedIPRanges,
			WhitelistedEndpoints: dto.ApprovalConditions.WhitelistedEndpoints,
		}
	}
	return key, ap
}
