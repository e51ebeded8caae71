package guardrail

import "context"

// ValidationContext is constructed once per call (or once per batch item)
// and passed by pointer into the validation engine. Components must not
// mutate it except through SetModifiedPayload, which records a redaction.
type ValidationContext struct {
	ClientIP        string
	Endpoint        string
	Method          string
	RequestHeaders  map[string]string
	ResponseHeaders map[string]string
	StatusCode      int

	RawRequestPayload  string
	RawResponsePayload string

	MCPServerName string

	ActivePolicies  []Policy
	AuditPolicies   AuditPolicySet
	HasAuditRules   bool
	RateLimit       RateLimitConfig

	// ModifiedPayload holds the last redaction applied by a validator, if any.
	ModifiedPayload *string

	// Background is the detached-work handle for threat reports and
	// metadata audits that must survive this context's cancellation.
	// It is never nil in production; tests may leave it nil when they
	// don't exercise detached work.
	Background BackgroundGroup
}

// BackgroundGroup is the minimal surface the validation engine needs from
// pkg/background.Group, kept here to avoid an import cycle between the
// domain package and the infra package that implements it.
type BackgroundGroup interface {
	Go(func(context.Context))
}

// SetModifiedPayload records a redaction. It is the only mutation allowed
// on a ValidationContext after construction (spec §3).
func (c *ValidationContext) SetModifiedPayload(payload string) {
	c.ModifiedPayload = &payload
}
