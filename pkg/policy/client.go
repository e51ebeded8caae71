// Package policy is the Policy Store Client (spec §4.1): it fetches
// GuardrailPolicy and AuditPolicy authoring records from the policy
// backend and translates them into the internal shapes the rest of the
// validation engine consumes.
package policy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/mcp-guardrail/pkg/domain/errors"
	"github.com/NeuralTrust/mcp-guardrail/pkg/domain/guardrail"
	"github.com/NeuralTrust/mcp-guardrail/pkg/infra/httpx"
)

// Client fetches and normalizes policy records for one request or batch.
// Per spec §4.1, a guardrail fetch failure is fatal for the caller; an
// audit fetch failure degrades to an empty set.
type Client interface {
	FetchGuardrailPolicies(ctx context.Context) ([]guardrail.Policy, error)
	FetchAuditPolicies(ctx context.Context) guardrail.AuditPolicySet
}

type client struct {
	http    httpx.Client
	breaker httpx.CircuitBreaker
	baseURL string
	token   string
	logger  *logrus.Logger
}

// NewClient builds a policy store client bound to baseURL with the given
// token, sent as the raw Authorization header value. http is the shared egress transport; breaker trips
// after repeated policy-store failures so every in-flight validation
// doesn't separately pay the full timeout.
func NewClient(httpClient httpx.Client, baseURL, token string, logger *logrus.Logger) Client {
	return &client{
		http:    httpClient,
		breaker: httpx.NewCircuitBreaker("policy-store", 30*time.Second, 5),
		baseURL: baseURL,
		token:   token,
		logger:  logger,
	}
}

func (c *client) FetchGuardrailPolicies(ctx context.Context) ([]guardrail.Policy, error) {
	var raw map[string]interface{}
	err := c.breaker.Execute(func() error {
		var postErr error
		raw, postErr = c.post(ctx, "/api/fetchGuardrailPolicies", map[string]interface{}{})
		return postErr
	})
	if err != nil {
		return nil, errors.NewPolicyFetchError(err)
	}

	var resp guardrailPoliciesResponse
	if err := mapstructure.Decode(raw, &resp); err != nil {
		return nil, errors.NewPolicyFetchError(fmt.Errorf("decode guardrail policies: %w", err))
	}

	policies := make([]guardrail.Policy, 0, len(resp.Policies))
	for _, dto := range resp.Policies {
		policies = append(policies, translateGuardrailPolicy(dto))
	}
	return policies, nil
}

func (c *client) FetchAuditPolicies(ctx context.Context) guardrail.AuditPolicySet {
	set := guardrail.AuditPolicySet{}

	var raw map[string]interface{}
	err := c.breaker.Execute(func() error {
		var postErr error
		raw, postErr = c.post(ctx, "/api/fetchMcpAuditInfo", map[string]interface{}{
			"remarksList": []string{"Conditionally Approved", "Rejected"},
		})
		return postErr
	})
	if err != nil {
		c.logger.WithError(err).Warn("audit policy fetch failed, continuing with empty set")
		return set
	}

	var resp auditPoliciesResponse
	if err := mapstructure.Decode(raw, &resp); err != nil {
		c.logger.WithError(err).Warn("audit policy decode failed, continuing with empty set")
		return set
	}

	for _, dto := range resp.AuditPolicies {
		key, ap := translateAuditPolicy(dto)
		set[key] = ap
	}
	return set
}

func (c *client) post(ctx context.Context, path string, body interface{}) (map[string]interface{}, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("policy store returned status %d", resp.StatusCode)
	}

	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode policy store response: %w", err)
	}
	return out, nil
}
