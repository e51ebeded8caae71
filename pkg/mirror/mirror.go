// Package mirror tees an ingestData batch body to a downstream target
// configured out of band, per spec.md §6: "When a downstream mirror
// target is configured, the request is tee'd to it in parallel." The
// tee never affects the response returned to the caller; a failed or
// slow mirror is logged and swallowed, the same fire-and-forget shape
// pkg/threat uses for malicious-event reporting.
package mirror

import (
	"bytes"
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/mcp-guardrail/pkg/infra/httpx"
)

// Teer forwards a raw batch payload to the configured mirror target.
type Teer interface {
	Tee(ctx context.Context, body []byte)
}

type noopTeer struct{}

// NewNoopTeer is used when no mirror target is configured.
func NewNoopTeer() Teer { return noopTeer{} }

func (noopTeer) Tee(context.Context, []byte) {}

type teer struct {
	http   httpx.Client
	url    string
	logger *logrus.Logger
}

// NewTeer builds a Teer bound to the given URL. http is the shared
// egress transport; a non-2xx or transport error is logged, never
// surfaced to the caller of Tee.
func NewTeer(httpClient httpx.Client, url string, logger *logrus.Logger) Teer {
	return &teer{http: httpClient, url: url, logger: logger}
}

func (t *teer) Tee(ctx context.Context, body []byte) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		t.logger.WithError(err).Warn("failed to build mirror request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		t.logger.WithError(err).Warn("mirror tee failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		t.logger.WithField("status", resp.StatusCode).Warn("mirror tee returned non-success status")
	}
}
