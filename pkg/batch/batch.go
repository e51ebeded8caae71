// Package batch is the Batch Processor (spec §4.10): it fetches policies
// once per batch, then runs each ingest record's request and response
// halves through the validation engine sequentially, preserving order
// and isolating a failing half to that half's result.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/mcp-guardrail/pkg/domain/guardrail"
	"github.com/NeuralTrust/mcp-guardrail/pkg/policy"
)

// Engine is the subset of validation.Engine the batch processor drives.
type Engine interface {
	ValidateRequest(ctx context.Context, vctx *guardrail.ValidationContext) *guardrail.ValidationResult
	ValidateResponse(ctx context.Context, vctx *guardrail.ValidationContext) *guardrail.ValidationResult
}

// Processor runs one ingestData batch end to end.
type Processor struct {
	policy     policy.Client
	engine     Engine
	background guardrail.BackgroundGroup
	logger     *logrus.Logger
}

// NewProcessor wires the policy store client and validation engine the
// batch fans every record out to. background may be nil; a nil value
// means threat reports and metadata audits run inline instead of
// detached, which tests often prefer.
func NewProcessor(policyClient policy.Client, engine Engine, background guardrail.BackgroundGroup, logger *logrus.Logger) *Processor {
	return &Processor{policy: policyClient, engine: engine, background: background, logger: logger}
}

// Process fetches GuardrailPolicy/AuditPolicy records once, then walks
// records in order. A guardrail policy fetch failure aborts the whole
// batch (spec §4.1: fatal); a per-half validation failure is captured in
// that half's result and never aborts the batch.
func (p *Processor) Process(ctx context.Context, records []guardrail.IngestRecord) ([]guardrail.ValidationBatchResult, error) {
	policies, err := p.policy.FetchGuardrailPolicies(ctx)
	if err != nil {
		return nil, err
	}
	auditPolicies := p.policy.FetchAuditPolicies(ctx)
	hasAuditRules := len(auditPolicies) > 0

	results := make([]guardrail.ValidationBatchResult, len(records))
	for i, rec := range records {
		results[i] = p.processOne(ctx, i, rec, policies, auditPolicies, hasAuditRules)
	}
	return results, nil
}

func (p *Processor) processOne(
	ctx context.Context,
	index int,
	rec guardrail.IngestRecord,
	policies []guardrail.Policy,
	auditPolicies guardrail.AuditPolicySet,
	hasAuditRules bool,
) guardrail.ValidationBatchResult {
	result := guardrail.ValidationBatchResult{Index: index, Method: rec.Method, Path: rec.Path}
	vctx := p.buildContext(rec, policies, auditPolicies, hasAuditRules)

	if rec.RequestPayload == "" {
		result.RequestAllowed = true
	} else {
		p.runHalf(ctx, vctx, true, &result)
	}

	if rec.ResponsePayload == "" {
		result.ResponseAllowed = true
	} else {
		p.runHalf(ctx, vctx, false, &result)
	}

	return result
}

func (p *Processor) runHalf(ctx context.Context, vctx *guardrail.ValidationContext, isRequest bool, result *guardrail.ValidationBatchResult) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Sprintf("validation panicked: %v", r)
			if isRequest {
				result.RequestError = err
			} else {
				result.ResponseError = err
			}
			p.logger.WithField("panic", r).Error("batch item validation panicked")
		}
	}()

	var res *guardrail.ValidationResult
	if isRequest {
		res = p.engine.ValidateRequest(ctx, vctx)
	} else {
		res = p.engine.ValidateResponse(ctx, vctx)
	}
	if res == nil {
		return
	}

	if isRequest {
		result.RequestAllowed = res.Allowed
		result.RequestModified = res.Modified
		result.RequestModifiedPayload = res.ModifiedPayload
	} else {
		result.ResponseAllowed = res.Allowed
		result.ResponseModified = res.Modified
		result.ResponseModifiedPayload = res.ModifiedPayload
	}
}

func (p *Processor) buildContext(
	rec guardrail.IngestRecord,
	policies []guardrail.Policy,
	auditPolicies guardrail.AuditPolicySet,
	hasAuditRules bool,
) *guardrail.ValidationContext {
	statusCode, _ := strconv.Atoi(rec.StatusCode)

	return &guardrail.ValidationContext{
		ClientIP:           rec.IP,
		Endpoint:           rec.Path,
		Method:             rec.Method,
		RequestHeaders:     decodeHeaders(rec.RequestHeaders),
		ResponseHeaders:    decodeHeaders(rec.ResponseHeaders),
		StatusCode:         statusCode,
		RawRequestPayload:  rec.RequestPayload,
		RawResponsePayload: rec.ResponsePayload,
		MCPServerName:      rec.MCPServerName,
		ActivePolicies:     policies,
		AuditPolicies:       auditPolicies,
		HasAuditRules:      hasAuditRules,
		RateLimit:          guardrail.DefaultRateLimitConfig(),
		Background:         p.background,
	}
}

func decodeHeaders(raw string) map[string]string {
	if raw == "" {
		return nil
	}
	var headers map[string]string
	if err := json.Unmarshal([]byte(raw), &headers); err != nil {
		return nil
	}
	return headers
}
