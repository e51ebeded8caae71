package threat

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NeuralTrust/mcp-guardrail/pkg/domain/guardrail"
)

type capturingHTTPClient struct {
	lastReq  *http.Request
	lastBody []byte
	status   int
}

func (c *capturingHTTPClient) Do(req *http.Request) (*http.Response, error) {
	c.lastReq = req
	if req.Body != nil {
		c.lastBody, _ = io.ReadAll(req.Body)
	}
	status := c.status
	if status == 0 {
		status = 200
	}
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader("{}"))}, nil
}

func TestReport_MissingToken_Skipped(t *testing.T) {
	client := &capturingHTTPClient{}
	r := NewReporter(client, "https://tbs.akto.io/api/threat_detection/record_malicious_event", "", logrus.New())

	r.Report(context.Background(), Event{PolicyID: "MCPGuardrails"})
	assert.Nil(t, client.lastReq)
}

func TestReport_BuildsCanonicalEvent(t *testing.T) {
	client := &capturingHTTPClient{}
	rep := NewReporter(client, "https://tbs.akto.io/api/threat_detection/record_malicious_event", "tok", logrus.New()).(*reporter)
	rep.now = func() time.Time { return time.Unix(1700000000, 0) }

	rep.Report(context.Background(), Event{
		PolicyID:       "MCPGuardrails",
		IP:              "1.2.3.4",
		Endpoint:        "/mcp/tools/call",
		RequestPayload:  `{"method":"tools/call"}`,
		ResponsePayload: "",
	})

	require.NotNil(t, client.lastReq)
	assert.Equal(t, "Bearer tok", client.lastReq.Header.Get("Authorization"))

	var evt guardrail.MaliciousEvent
	require.NoError(t, json.Unmarshal(client.lastBody, &evt))
	assert.Equal(t, "1.2.3.4", evt.Actor)
	assert.Equal(t, "MCPGuardrails", evt.FilterID)
	assert.Equal(t, "1700000000", evt.DetectedAt)
	assert.Equal(t, "1700000000", evt.LatestAPICollectionID)
	assert.Equal(t, "EVENT_TYPE_SINGLE", evt.EventType)
	assert.Equal(t, "CRITICAL", evt.Severity)
	assert.Equal(t, "Rule-Based", evt.Type)
	assert.Equal(t, "IN", evt.Metadata["countryCode"])

	var payload guardrail.ThreatEventPayload
	require.NoError(t, json.Unmarshal([]byte(evt.LatestAPIPayload), &payload))
	assert.Equal(t, "POST", payload.Method)
	assert.Equal(t, "1.2.3.4", payload.IP)
	assert.Equal(t, "1.2.3.4", payload.DestIP)
	assert.Equal(t, "OTHER", payload.Source)
	assert.Equal(t, 200, payload.StatusCode)
	assert.Equal(t, "OK", payload.Status)
}

func TestReport_Defaults(t *testing.T) {
	client := &capturingHTTPClient{}
	rep := NewReporter(client, "https://tbs.akto.io/api/threat_detection/record_malicious_event", "tok", logrus.New()).(*reporter)
	rep.now = func() time.Time { return time.Unix(1, 0) }

	rep.Report(context.Background(), Event{PolicyID: "MCPGuardrails"})

	var evt guardrail.MaliciousEvent
	require.NoError(t, json.Unmarshal(client.lastBody, &evt))
	assert.Equal(t, "unknown", evt.Actor)
	assert.Equal(t, "/mcp/unknown", evt.LatestAPIEndpoint)
	assert.Equal(t, "POST", evt.LatestAPIMethod)

	var payload guardrail.ThreatEventPayload
	require.NoError(t, json.Unmarshal([]byte(evt.LatestAPIPayload), &payload))
	assert.Equal(t, 200, payload.StatusCode)
}

func TestReport_NonSuccessStatus_LoggedNotThrown(t *testing.T) {
	client := &capturingHTTPClient{status: 500}
	r := NewReporter(client, "https://tbs.akto.io/api/threat_detection/record_malicious_event", "tok", logrus.New())

	assert.NotPanics(t, func() {
		r.Report(context.Background(), Event{PolicyID: "MCPGuardrails"})
	})
}

func TestReport_AttachesBlockedResponse(t *testing.T) {
	client := &capturingHTTPClient{}
	rep := NewReporter(client, "https://tbs.akto.io/api/threat_detection/record_malicious_event", "tok", logrus.New()).(*reporter)
	rep.now = func() time.Time { return time.Unix(1700000000, 0) }

	blocked := guardrail.NewBlockedResponse("blocked by scanner", `{"method":"tools/call"}`)
	rep.Report(context.Background(), Event{
		PolicyID:        "MCPGuardrails",
		BlockedResponse: &blocked,
	})

	var evt guardrail.MaliciousEvent
	require.NoError(t, json.Unmarshal(client.lastBody, &evt))
	require.Contains(t, evt.Metadata, "blockedResponse")

	var gotBlocked guardrail.BlockedResponse
	require.NoError(t, json.Unmarshal([]byte(evt.Metadata["blockedResponse"]), &gotBlocked))
	assert.Equal(t, -32000, gotBlocked.Error.Code)
	assert.Equal(t, "blocked by scanner", gotBlocked.Error.Data.Reason)
}
