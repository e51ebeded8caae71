package httpx

import "net/http"

// Client is the minimal transport every egress caller in this gateway
// depends on (policy store, scanner, threat backend, LLM audit calls)
// instead of *http.Client directly, so FastHTTPClient and test mocks can
// both stand in for one shape. Circuit breaking is a separate
// CircuitBreaker that callers wrap around their Do calls.
type Client interface {
	Do(req *http.Request) (*http.Response, error)
}
