// Package metadata is the Metadata Auditor (spec §4.9): for a tools/list
// response, scores every returned tool descriptor against its own
// description via an LLM call, bounded to 5 concurrent requests, and
// reports tools whose score crosses either threshold to the threat
// backend.
package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/valyala/fastjson"
	"golang.org/x/sync/semaphore"

	"github.com/NeuralTrust/mcp-guardrail/pkg/domain/guardrail"
	"github.com/NeuralTrust/mcp-guardrail/pkg/infra/httpx"
	"github.com/NeuralTrust/mcp-guardrail/pkg/infra/metrics"
	"github.com/NeuralTrust/mcp-guardrail/pkg/threat"
)

const maxConcurrentAudits = 5

// ToolDescriptor is one entry of a tools/list response's result.tools.
type ToolDescriptor struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
}

type llmVerdict struct {
	IsMalicious                   bool    `json:"isMalicious"`
	MaliciousMatchScore           float64 `json:"maliciousMatchScore"`
	ToolNameDescriptionMatchScore float64 `json:"toolNameDescriptionMatchScore"`
	Reason                        string  `json:"reason"`
}

// Auditor runs the LLM-backed audit over a tools/list result and emits a
// threat report for any tool that crosses the malicious or name/description
// mismatch threshold. Audit is meant to run on a detached task; it never
// returns an error to the caller, only logs.
type Auditor interface {
	Audit(ctx context.Context, endpoint string, tools []ToolDescriptor, report func(threat.Event))
}

type auditor struct {
	http    httpx.Client
	baseURL string
	token   string
	logger  *logrus.Logger
}

// NewAuditor builds an Auditor bound to <baseURL>/api/getLLMResponseV2,
// authenticated with a raw (non-Bearer) Authorization header, sharing the
// DATABASE_ABSTRACTOR_SERVICE_TOKEN credential with the policy store.
func NewAuditor(httpClient httpx.Client, baseURL, token string, logger *logrus.Logger) Auditor {
	return &auditor{http: httpClient, baseURL: baseURL, token: token, logger: logger}
}

func (a *auditor) Audit(ctx context.Context, endpoint string, tools []ToolDescriptor, report func(threat.Event)) {
	if len(tools) == 0 {
		return
	}

	sem := semaphore.NewWeighted(maxConcurrentAudits)
	var wg sync.WaitGroup

	for _, tool := range tools {
		if err := sem.Acquire(ctx, 1); err != nil {
			a.logger.WithError(err).Warn("metadata audit semaphore acquire failed")
			continue
		}
		wg.Add(1)
		go func(tool ToolDescriptor) {
			defer wg.Done()
			defer sem.Release(1)
			a.auditOne(ctx, endpoint, tool, report)
		}(tool)
	}
	wg.Wait()
}

func (a *auditor) auditOne(ctx context.Context, endpoint string, tool ToolDescriptor, report func(threat.Event)) {
	prompt := buildPrompt(tool.Name, tool.Description, FlattenSchema(tool.InputSchema))

	start := time.Now()
	verdict, err := a.callLLM(ctx, prompt)
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.MetadataAuditLatency.WithLabelValues(result).Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		a.logger.WithError(err).WithField("tool", tool.Name).Warn("metadata audit LLM call failed")
		return
	}

	if verdict.MaliciousMatchScore <= 0.75 && verdict.ToolNameDescriptionMatchScore >= 0.7 {
		return
	}

	filteredResponse, err := json.Marshal(map[string]interface{}{
		"result": map[string]interface{}{
			"tools": []ToolDescriptor{tool},
		},
	})
	if err != nil {
		a.logger.WithError(err).Warn("failed to marshal filtered metadata response")
		return
	}

	report(threat.Event{
		PolicyID:        guardrail.MCPMaliciousComponentPolicyID,
		Endpoint:        fmt.Sprintf("%s/tools/list/%s", endpoint, tool.Name),
		ResponsePayload: string(filteredResponse),
	})
}

type llmChatRequest struct {
	LLMPayload llmPayload `json:"llmPayload"`
}

type llmPayload struct {
	Temperature      float64      `json:"temperature"`
	TopP             float64      `json:"top_p"`
	MaxTokens        int          `json:"max_tokens"`
	FrequencyPenalty float64      `json:"frequency_penalty"`
	PresencePenalty  float64      `json:"presence_penalty"`
	Messages         []llmMessage `json:"messages"`
}

type llmMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type llmChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (a *auditor) callLLM(ctx context.Context, prompt string) (llmVerdict, error) {
	reqBody, err := json.Marshal(llmChatRequest{LLMPayload: llmPayload{
		Temperature:      0.1,
		TopP:             0.9,
		MaxTokens:        10000,
		FrequencyPenalty: 0,
		PresencePenalty:  0.6,
		Messages:         []llmMessage{{Role: "system", Content: prompt}},
	}})
	if err != nil {
		return llmVerdict{}, err
	}

	url := a.baseURL + "/api/getLLMResponseV2"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return llmVerdict{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", a.token)

	resp, err := a.http.Do(req)
	if err != nil {
		return llmVerdict{}, err
	}
	defer resp.Body.Close()

	var chat llmChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return llmVerdict{}, fmt.Errorf("decode LLM response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return llmVerdict{}, fmt.Errorf("LLM response has no choices")
	}

	content := chat.Choices[0].Message.Content
	first := strings.Index(content, "{")
	last := strings.LastIndex(content, "}")
	if first == -1 || last == -1 || last < first {
		return llmVerdict{}, fmt.Errorf("LLM response content has no JSON object")
	}

	var verdict llmVerdict
	if err := json.Unmarshal([]byte(content[first:last+1]), &verdict); err != nil {
		return llmVerdict{}, fmt.Errorf("decode LLM verdict: %w", err)
	}
	return verdict, nil
}

// LooksLikeToolsListResult reports whether payload is a JSON-RPC response
// carrying a result.tools array, the shape a tools/list response takes.
// Used when the caller has no originating request payload to read the
// method off of (the standalone /api/validate/response ingress has none).
func LooksLikeToolsListResult(payload string) bool {
	var p fastjson.Parser
	v, err := p.Parse(payload)
	if err != nil {
		return false
	}
	tools := v.Get("result", "tools")
	return tools != nil && tools.Type() == fastjson.TypeArray
}

// ParseToolsListResponse extracts every tool descriptor out of a
// tools/list response's result.tools array. A malformed payload or a
// missing/non-array result.tools yields nil.
func ParseToolsListResponse(payload string) []ToolDescriptor {
	var p fastjson.Parser
	v, err := p.Parse(payload)
	if err != nil {
		return nil
	}
	items := v.GetArray("result", "tools")
	if len(items) == 0 {
		return nil
	}

	tools := make([]ToolDescriptor, 0, len(items))
	for _, item := range items {
		tool := ToolDescriptor{
			Name:        string(item.GetStringBytes("name")),
			Description: string(item.GetStringBytes("description")),
		}
		if schema := item.Get("inputSchema"); schema != nil {
			var decoded map[string]interface{}
			if err := json.Unmarshal(schema.MarshalTo(nil), &decoded); err == nil {
				tool.InputSchema = decoded
			}
		}
		tools = append(tools, tool)
	}
	return tools
}
