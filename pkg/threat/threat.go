// Package threat is the Threat Reporter (spec §4.8): builds the canonical
// MaliciousEvent record for a block or redact decision and POSTs it to the
// threat backend on a detached task, so a slow or failing backend never
// delays or fails the request that triggered it.
package threat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/mcp-guardrail/pkg/domain/guardrail"
	"github.com/NeuralTrust/mcp-guardrail/pkg/infra/httpx"
	"github.com/NeuralTrust/mcp-guardrail/pkg/infra/metrics"
)

// Event is the input the orchestrator assembles from one blocked or
// modified ValidationResult; Reporter fills in the rest.
type Event struct {
	PolicyID        string
	IP              string
	Endpoint        string
	Method          string
	RequestPayload  string
	ResponsePayload string
	RequestHeaders  map[string]string
	ResponseHeaders map[string]string
	StatusCode      int

	// BlockedResponse is the JSON-RPC -32000 envelope the orchestrator
	// returned to the caller for this event, if any (spec §3: "both
	// returned to caller and attached to threat report").
	BlockedResponse *guardrail.BlockedResponse
}

// Reporter builds and sends MaliciousEvent records. Report performs the POST
// synchronously; the orchestrator runs it inside a background.Group.Go
// closure when the context carries one, and inline otherwise.
type Reporter interface {
	Report(ctx context.Context, evt Event)
}

type reporter struct {
	http    httpx.Client
	breaker httpx.CircuitBreaker
	url     string
	token   string
	logger  *logrus.Logger
	now     func() time.Time
}

// NewReporter builds a Reporter bound to the threat backend at url
// (default https://tbs.akto.io/api/threat_detection/record_malicious_event).
// An empty token means every Report call is a no-op.
func NewReporter(httpClient httpx.Client, url, token string, logger *logrus.Logger) Reporter {
	return &reporter{
		http:    httpClient,
		breaker: httpx.NewCircuitBreaker("threat-backend", 30*time.Second, 5),
		url:     url,
		token:   token,
		logger:  logger,
		now:     time.Now,
	}
}

func (r *reporter) Report(ctx context.Context, evt Event) {
	if r.token == "" {
		return
	}

	method := evt.Method
	if method == "" {
		method = "POST"
	}
	ip := evt.IP
	if ip == "" {
		ip = "unknown"
	}
	path := evt.Endpoint
	if path == "" {
		path = "/mcp/unknown"
	}
	statusCode := evt.StatusCode
	if statusCode == 0 {
		statusCode = 200
	}

	nowUnix := r.now().Unix()
	detectedAt := strconv.FormatInt(nowUnix, 10)

	reqHeaders, _ := json.Marshal(evt.RequestHeaders)
	respHeaders, _ := json.Marshal(evt.ResponseHeaders)

	payload := guardrail.ThreatEventPayload{
		Method:          method,
		RequestPayload:  evt.RequestPayload,
		ResponsePayload: evt.ResponsePayload,
		IP:              ip,
		DestIP:          ip,
		Source:          "OTHER",
		Type:            "http",
		AktoVxlanID:     "",
		Path:            path,
		RequestHeaders:  string(reqHeaders),
		ResponseHeaders: string(respHeaders),
		Time:            0,
		AktoAccountID:   "",
		StatusCode:      statusCode,
		Status:          "OK",
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		r.logger.WithError(err).Warn("failed to marshal threat event payload")
		return
	}

	eventMetadata := map[string]string{"countryCode": "IN"}
	if evt.BlockedResponse != nil {
		if blocked, err := json.Marshal(evt.BlockedResponse); err == nil {
			eventMetadata["blockedResponse"] = string(blocked)
		}
	}

	event := guardrail.MaliciousEvent{
		Actor:                 ip,
		FilterID:              evt.PolicyID,
		DetectedAt:            detectedAt,
		LatestAPIIP:           ip,
		LatestAPIEndpoint:     path,
		LatestAPIMethod:       method,
		LatestAPICollectionID: detectedAt,
		LatestAPIPayload:      string(payloadJSON),
		EventType:             "EVENT_TYPE_SINGLE",
		Category:              evt.PolicyID,
		SubCategory:           evt.PolicyID,
		Severity:              "CRITICAL",
		Type:                  "Rule-Based",
		Metadata:              eventMetadata,
	}

	outcome := "ok"
	if err := r.send(ctx, event); err != nil {
		outcome = "failure"
		r.logger.WithError(err).Warn("threat report failed")
	}
	metrics.ThreatReportsTotal.WithLabelValues(outcome).Inc()
}

func (r *reporter) send(ctx context.Context, event guardrail.MaliciousEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.token)

	return r.breaker.Execute(func() error {
		resp, err := r.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("threat backend returned status %d", resp.StatusCode)
		}
		return nil
	})
}
