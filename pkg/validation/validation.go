// Package validation is the Policy Validator orchestrator (spec §4.7):
// it composes the extractor, rate-limit, audit, PII/regex matchers, and
// scanner fan-out into the engine's two entry points, ValidateRequest and
// ValidateResponse, and is the only place that emits a threat report.
package validation

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/mcp-guardrail/pkg/audit"
	"github.com/NeuralTrust/mcp-guardrail/pkg/domain/guardrail"
	"github.com/NeuralTrust/mcp-guardrail/pkg/extractor"
	"github.com/NeuralTrust/mcp-guardrail/pkg/infra/metrics"
	"github.com/NeuralTrust/mcp-guardrail/pkg/matchers"
	"github.com/NeuralTrust/mcp-guardrail/pkg/metadata"
	"github.com/NeuralTrust/mcp-guardrail/pkg/ratelimit"
	"github.com/NeuralTrust/mcp-guardrail/pkg/scanner"
	"github.com/NeuralTrust/mcp-guardrail/pkg/threat"
)

// Engine ties every validator kind together under the fixed precedence
// spec §4.7 names: rate-limit, audit, local matchers, scanner fan-out,
// plus the metadata auditor on the response side (spec §4.9).
type Engine struct {
	enabled   bool
	rateLimit ratelimit.Validator
	audit     audit.Validator
	scanner   scanner.Client
	metadata  metadata.Auditor
	reporter  threat.Reporter
	logger    *logrus.Logger
}

// NewEngine wires one instance of each validator. Any of rateLimit/audit/
// metadataAuditor may be nil in tests that don't exercise that stage;
// scanner must be non-nil whenever an active policy carries a scanner
// filter type. enabled is spec §6's ENABLE_MCP_GUARDRAILS toggle for the
// whole engine; when false every call allows through unevaluated.
func NewEngine(enabled bool, rateLimit ratelimit.Validator, auditValidator audit.Validator, scannerClient scanner.Client, metadataAuditor metadata.Auditor, reporter threat.Reporter, logger *logrus.Logger) *Engine {
	return &Engine{enabled: enabled, rateLimit: rateLimit, audit: auditValidator, scanner: scannerClient, metadata: metadataAuditor, reporter: reporter, logger: logger}
}

// ValidateRequest runs the request-side pipeline: rate-limit, audit,
// local matchers over request rules, then scanner fan-out.
func (e *Engine) ValidateRequest(ctx context.Context, vctx *guardrail.ValidationContext) *guardrail.ValidationResult {
	return e.validate(ctx, vctx, true)
}

// ValidateResponse runs the response-side pipeline: local matchers over
// response rules then scanner fan-out. No rate-limit, no audit.
func (e *Engine) ValidateResponse(ctx context.Context, vctx *guardrail.ValidationContext) *guardrail.ValidationResult {
	return e.validate(ctx, vctx, false)
}

func (e *Engine) validate(ctx context.Context, vctx *guardrail.ValidationContext, isRequest bool) *guardrail.ValidationResult {
	if !e.enabled {
		result := guardrail.Allow()
		return &result
	}

	payload := vctx.RawRequestPayload
	if !isRequest {
		payload = vctx.RawResponsePayload
	}
	if payload == "" {
		return e.finish(ctx, vctx, guardrail.Allow(), isRequest)
	}

	if isRequest {
		if res := e.runRateLimitAndAudit(ctx, vctx, payload); res != nil {
			return e.finish(ctx, vctx, *res, isRequest)
		}
	} else {
		e.auditMetadataIfToolsList(ctx, vctx, payload)
	}

	scannable := extractor.Extract(payload)
	if scannable == "" {
		return e.finish(ctx, vctx, guardrail.Allow(), isRequest)
	}

	var (
		scanTasks []scanner.Task
		redacted  *guardrail.ValidationResult
	)

	for _, policy := range vctx.ActivePolicies {
		if !policy.Active {
			continue
		}
		ruleset := policy.RequestRules
		if !isRequest {
			ruleset = policy.ResponseRules
		}
		for _, rule := range ruleset {
			switch rule.Type {
			case guardrail.FilterPII:
				if res := matchers.MatchPII(rule, scannable, policy.ID); res != nil {
					if !res.Allowed {
						return e.finish(ctx, vctx, *res, isRequest)
					}
					redacted = res
				}
			case guardrail.FilterRegex:
				if res := matchers.MatchRegex(rule, scannable, policy.ID, e.logger); res != nil {
					if !res.Allowed {
						return e.finish(ctx, vctx, *res, isRequest)
					}
					redacted = res
				}
			default:
				if scanner.IsScannerFilterType(rule.Type) {
					scanTasks = append(scanTasks, scanner.Task{
						Text:       scannable,
						FilterType: rule.Type,
						PolicyID:   policy.ID,
						PolicyName: policy.Name,
						Config:     rule.Config,
					})
				}
			}
		}
	}

	if len(scanTasks) > 0 {
		results, err := e.scanner.Scan(ctx, scanTasks)
		if err != nil {
			e.logger.WithError(err).Warn("scanner fan-out did not complete")
		}
		for _, r := range results {
			if r.IsValid {
				continue
			}
			res := guardrail.Block(
				fmt.Sprintf("blocked by scanner %q (risk_score=%.2f)", r.ScannerName, r.RiskScore),
				map[string]interface{}{
					"policy_id":  r.PolicyID,
					"scanner":    r.ScannerName,
					"risk_score": r.RiskScore,
					"details":    r.Details,
				},
			)
			return e.finish(ctx, vctx, res, isRequest)
		}
	}

	if redacted != nil {
		vctx.SetModifiedPayload(*redacted.ModifiedPayload)
		return e.finish(ctx, vctx, *redacted, isRequest)
	}

	return e.finish(ctx, vctx, guardrail.Allow(), isRequest)
}

// runRateLimitAndAudit returns a non-nil result only when one of the two
// stages wants to short-circuit the pipeline with its own verdict.
func (e *Engine) runRateLimitAndAudit(ctx context.Context, vctx *guardrail.ValidationContext, payload string) *guardrail.ValidationResult {
	method, toolName := extractor.MethodAndToolName(payload)
	if method == "tools/call" && e.rateLimit != nil {
		res := e.rateLimit.Validate(ctx, vctx, toolName)
		if !res.Allowed {
			metrics.RateLimitHitsTotal.WithLabelValues(toolName).Inc()
			return &res
		}
	}

	if vctx.HasAuditRules && e.audit != nil {
		if res := e.audit.Validate(vctx, payload); res != nil && !res.Allowed {
			return res
		}
	}

	return nil
}

// auditMetadataIfToolsList runs the metadata auditor (spec §4.9) over a
// tools/list response's tool descriptors. It never affects the
// allow/block/redact verdict; findings go straight to the threat
// reporter on a detached task, same as every other threat report.
func (e *Engine) auditMetadataIfToolsList(ctx context.Context, vctx *guardrail.ValidationContext, payload string) {
	if e.metadata == nil {
		return
	}

	isToolsList := false
	if vctx.RawRequestPayload != "" {
		method, _ := extractor.MethodAndToolName(vctx.RawRequestPayload)
		isToolsList = method == "tools/list"
	} else {
		isToolsList = metadata.LooksLikeToolsListResult(payload)
	}
	if !isToolsList {
		return
	}

	tools := metadata.ParseToolsListResponse(payload)
	if len(tools) == 0 {
		return
	}

	audit := func(auditCtx context.Context) {
		e.metadata.Audit(auditCtx, vctx.Endpoint, tools, func(evt threat.Event) {
			if e.reporter != nil {
				e.reporter.Report(auditCtx, evt)
			}
		})
	}
	if vctx.Background != nil {
		vctx.Background.Go(audit)
		return
	}
	audit(ctx)
}

func (e *Engine) finish(ctx context.Context, vctx *guardrail.ValidationContext, result guardrail.ValidationResult, isRequest bool) *guardrail.ValidationResult {
	direction := "request"
	if !isRequest {
		direction = "response"
	}
	outcome := "allow"
	switch {
	case !result.Allowed:
		outcome = "block"
	case result.Modified:
		outcome = "redact"
	}
	metrics.DecisionsTotal.WithLabelValues(direction, outcome).Inc()

	if result.Allowed && !result.Modified {
		return &result
	}

	if !result.Allowed {
		originalPayload := vctx.RawRequestPayload
		if !isRequest {
			originalPayload = vctx.RawResponsePayload
		}
		blocked := guardrail.NewBlockedResponse(result.Reason, originalPayload)
		result.BlockedResponse = &blocked
	}

	e.reportThreat(ctx, vctx, result)
	return &result
}

func (e *Engine) reportThreat(ctx context.Context, vctx *guardrail.ValidationContext, result guardrail.ValidationResult) {
	if e.reporter == nil {
		return
	}

	policyID, _ := result.Metadata["policy_id"].(string)
	evt := threat.Event{
		PolicyID:        policyID,
		IP:              vctx.ClientIP,
		Endpoint:        vctx.Endpoint,
		Method:          vctx.Method,
		RequestPayload:  vctx.RawRequestPayload,
		ResponsePayload: vctx.RawResponsePayload,
		RequestHeaders:  vctx.RequestHeaders,
		ResponseHeaders: vctx.ResponseHeaders,
		StatusCode:      vctx.StatusCode,
		BlockedResponse: result.BlockedResponse,
	}

	if vctx.Background != nil {
		vctx.Background.Go(func(bgCtx context.Context) { e.reporter.Report(bgCtx, evt) })
		return
	}
	e.reporter.Report(ctx, evt)
}
