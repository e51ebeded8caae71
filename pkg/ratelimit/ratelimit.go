// Package ratelimit implements the rate-limit validator: a
// per-identifier sliding-window counter backed by a shared key-value
// store. The read-modify-write against that store is deliberately not
// atomic; last-write-wins under a race is an accepted cost, not a bug
// to chase.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/mcp-guardrail/pkg/domain/errors"
	"github.com/NeuralTrust/mcp-guardrail/pkg/domain/guardrail"
	"github.com/NeuralTrust/mcp-guardrail/pkg/infra/ratelimitstore"
)

// Validator checks a tool invocation against the context's RateLimitConfig.
// It does no method dispatch of its own: the orchestrator only invokes it
// for tools/call requests and passes in the tool name it extracted.
type Validator interface {
	Validate(ctx context.Context, vctx *guardrail.ValidationContext, toolName string) guardrail.ValidationResult
}

type validator struct {
	store  ratelimitstore.Store
	logger *logrus.Logger
	now    func() time.Time
}

// NewValidator wires the shared rate-limit store.
func NewValidator(store ratelimitstore.Store, logger *logrus.Logger) Validator {
	return &validator{store: store, logger: logger, now: time.Now}
}

func (v *validator) Validate(ctx context.Context, vctx *guardrail.ValidationContext, toolName string) guardrail.ValidationResult {
	cfg := vctx.RateLimit
	if !cfg.Enabled || v.store == nil {
		return guardrail.Allow()
	}

	identifier := v.buildIdentifier(cfg.IdentifierTypes, vctx, toolName)
	key := "ratelimit:" + identifier
	nowMs := v.now().UnixMilli()

	cell, err := v.store.Get(ctx, key)
	if err != nil {
		v.logger.WithError(errors.NewRateLimitStoreError(err)).Warn("rate limit store read failed, allowing")
		return guardrail.Allow()
	}

	if cell == nil || nowMs > cell.ResetAt {
		fresh := guardrail.RateLimitCell{Count: 1, ResetAt: nowMs + int64(cfg.WindowSeconds)*1000}
		if err := v.store.Set(ctx, key, fresh, time.Duration(cfg.WindowSeconds)*time.Second); err != nil {
			v.logger.WithError(errors.NewRateLimitStoreError(err)).Warn("rate limit store write failed, allowing")
		}
		return guardrail.Allow()
	}

	if cell.Count >= cfg.Limit {
		resetInSeconds := int64(math.Ceil(float64(cell.ResetAt-nowMs) / 1000))
		if resetInSeconds < 0 {
			resetInSeconds = 0
		}
		return guardrail.Block(
			fmt.Sprintf("rate limit exceeded for tool %q, resets in %ds", toolName, resetInSeconds),
			map[string]interface{}{
				"policy_id":        guardrail.RateLimitPolicyID,
				"tool":             toolName,
				"current_count":    cell.Count,
				"limit":            cfg.Limit,
				"reset_at":         cell.ResetAt,
				"reset_in_seconds": resetInSeconds,
			},
		)
	}

	updated := guardrail.RateLimitCell{Count: cell.Count + 1, ResetAt: cell.ResetAt}
	ttl := time.Duration(math.Ceil(float64(cell.ResetAt-nowMs)/1000)) * time.Second
	if err := v.store.Set(ctx, key, updated, ttl); err != nil {
		v.logger.WithError(errors.NewRateLimitStoreError(err)).Warn("rate limit store write failed, allowing")
	}
	return guardrail.Allow()
}

func (v *validator) buildIdentifier(types []guardrail.IdentifierType, vctx *guardrail.ValidationContext, toolName string) string {
	parts := make([]string, 0, len(types))
	for _, t := range types {
		switch t {
		case guardrail.IdentifierIP:
			ip := vctx.ClientIP
			if ip == "" {
				ip = "unknown"
			}
			parts = append(parts, ip)
		case guardrail.IdentifierUser:
			parts = append(parts, v.resolveUser(vctx))
		case guardrail.IdentifierTool:
			parts = append(parts, toolName)
		}
	}
	return strings.Join(parts, ":")
}

func (v *validator) resolveUser(vctx *guardrail.ValidationContext) string {
	if uid := headerValue(vctx.RequestHeaders, "x-user-id"); uid != "" {
		return uid
	}
	if vctx.ClientIP != "" {
		return vctx.ClientIP
	}
	return "unknown"
}

func headerValue(headers map[string]string, key string) string {
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}
