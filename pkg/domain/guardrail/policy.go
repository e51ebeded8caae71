package guardrail

import "fmt"

// FilterRuleType identifies the kind of check a FilterRule performs.
type FilterRuleType string

const (
	FilterHarmfulCategories FilterRuleType = "harmfulCategories"
	FilterPromptAttacks     FilterRuleType = "promptAttacks"
	FilterBanTopics         FilterRuleType = "banTopics"
	FilterBanSubstrings     FilterRuleType = "banSubstrings"
	FilterDeniedTopics      FilterRuleType = "deniedTopics"
	FilterPII               FilterRuleType = "pii"
	FilterRegex             FilterRuleType = "regex"
	FilterAudit             FilterRuleType = "audit"
	FilterComponentMetadata FilterRuleType = "componentMetadata"
)

// RuleAction is the effect a matching FilterRule has on a payload.
type RuleAction string

const (
	ActionBlock  RuleAction = "block"
	ActionRedact RuleAction = "redact"
)

// FilterRule is the internal, already-normalized shape a validator consumes.
// It lives only inside a Policy; it is never addressed independently.
type FilterRule struct {
	Type    FilterRuleType
	Pattern string
	Action  RuleAction
	Config  map[string]interface{}
}

// RuleSet is an ordered list of FilterRule, evaluated in slice order.
type RuleSet []FilterRule

// Policy is the internal, post-translation representation of a GuardrailPolicy.
type Policy struct {
	ID            string
	Name          string
	Active        bool
	DefaultAction RuleAction
	RequestRules  RuleSet
	ResponseRules RuleSet
}

func (p *Policy) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("policy ID is required")
	}
	if p.Name == "" {
		return fmt.Errorf("policy name is required")
	}
	return nil
}

// DeniedTopic is one authoring-shape entry of GuardrailPolicy.DeniedTopics.
// Field tags follow the policy store's wire convention (snake_case) so
// mapstructure.Decode can fill this struct directly from the generic map
// the JSON response body decodes into.
type DeniedTopic struct {
	Topic         string   `mapstructure:"topic"`
	SamplePhrases []string `mapstructure:"sample_phrases"`
}

// PIIRule is one authoring-shape entry of GuardrailPolicy.PIITypes.
type PIIRule struct {
	Type     string `mapstructure:"type"`
	Behavior string `mapstructure:"behavior"` // "block" | "mask"
}

// RegexRule is one authoring-shape entry of GuardrailPolicy.RegexPatterns.
type RegexRule struct {
	Pattern string `mapstructure:"pattern"`
	Action  string `mapstructure:"action"`
}

// GuardrailPolicy is the authoring-shape record returned by the policy
// store. It is translated into a Policy at fetch time and never mutated
// or re-addressed after that.
type GuardrailPolicy struct {
	Name                  string        `mapstructure:"name"`
	Active                bool          `mapstructure:"active"`
	ApplyOnRequest        bool          `mapstructure:"apply_on_request"`
	ApplyOnResponse       bool          `mapstructure:"apply_on_response"`
	HarmfulCategories     bool          `mapstructure:"harmful_categories"`
	PromptAttacks         bool          `mapstructure:"prompt_attacks"`
	PromptAttackThreshold float64       `mapstructure:"prompt_attack_threshold"`
	DeniedTopics          []DeniedTopic `mapstructure:"denied_topics"`
	PIITypes              []PIIRule     `mapstructure:"pii_types"`
	RegexPatterns         []RegexRule   `mapstructure:"regex_patterns"`
}

// GuardrailPolicyID is the fixed policy id the translation step assigns to
// every GuardrailPolicy record, per spec.
const GuardrailPolicyID = "MCPGuardrails"
