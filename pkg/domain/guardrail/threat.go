package guardrail

// MaliciousEvent is the canonical record POSTed to the threat backend on
// every block or redact decision (invariant I3: exactly one per event).
type MaliciousEvent struct {
	Actor                 string            `json:"actor"`
	FilterID              string            `json:"filterId"`
	DetectedAt            string            `json:"detectedAt"`
	LatestAPIIP           string            `json:"latestApiIp"`
	LatestAPIEndpoint     string            `json:"latestApiEndpoint"`
	LatestAPIMethod       string            `json:"latestApiMethod"`
	LatestAPICollectionID string            `json:"latestApiCollectionId"`
	LatestAPIPayload      string            `json:"latestApiPayload"`
	EventType             string            `json:"eventType"`
	Category              string            `json:"category"`
	SubCategory           string            `json:"subCategory"`
	Severity              string            `json:"severity"`
	Type                  string            `json:"type"`
	Metadata              map[string]string `json:"metadata"`
}

// ThreatEventPayload is the JSON-encoded string that fills
// MaliciousEvent.LatestAPIPayload.
type ThreatEventPayload struct {
	Method          string `json:"method"`
	RequestPayload  string `json:"requestPayload"`
	ResponsePayload string `json:"responsePayload"`
	IP              string `json:"ip"`
	DestIP          string `json:"destIp"`
	Source          string `json:"source"`
	Type            string `json:"type"`
	AktoVxlanID     string `json:"akto_vxlan_id"`
	Path            string `json:"path"`
	RequestHeaders  string `json:"requestHeaders"`
	ResponseHeaders string `json:"responseHeaders"`
	Time            int64  `json:"time"`
	AktoAccountID   string `json:"akto_account_id"`
	StatusCode      int    `json:"statusCode"`
	Status          string `json:"status"`
}

const (
	MCPMaliciousComponentPolicyID = "MCPMaliciousComponent"
)
