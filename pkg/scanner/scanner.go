// Package scanner is the Scanner Client (spec §4.6): parallel fan-out to
// a remote scanner endpoint, one call per (filter-type, scanner-name),
// under a single 5-second global deadline. A scanner timing out or
// erroring is a failure, never a block; only an explicit is_valid=false
// response counts against the payload.
package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/mcp-guardrail/pkg/domain/errors"
	"github.com/NeuralTrust/mcp-guardrail/pkg/domain/guardrail"
	"github.com/NeuralTrust/mcp-guardrail/pkg/infra/httpx"
	"github.com/NeuralTrust/mcp-guardrail/pkg/infra/metrics"
)

const (
	maxTextBytes   = 1 << 20 // 1 MiB
	fanoutDeadline = 5 * time.Second
)

// filterTypeScanners maps a scanner filter type to the remote scanner
// names invoked for it. Only harmfulCategories, promptAttacks, and the
// two rules a deniedTopics entry expands into are scanner filter types;
// pii/regex/audit/componentMetadata are handled locally and never reach
// this client.
var filterTypeScanners = map[guardrail.FilterRuleType][]string{
	guardrail.FilterHarmfulCategories: {"Toxicity"},
	guardrail.FilterPromptAttacks:     {"PromptInjection"},
	guardrail.FilterBanSubstrings:     {"BanSubstrings"},
	guardrail.FilterBanTopics:         {"BanTopics"},
}

// ScannerNamesFor returns the scanner names a filter type fans out to,
// or nil if the type isn't a scanner filter type.
func ScannerNamesFor(filterType guardrail.FilterRuleType) []string {
	return filterTypeScanners[filterType]
}

// IsScannerFilterType reports whether the orchestrator should route a
// rule of this type to the scanner fan-out instead of a local matcher.
func IsScannerFilterType(filterType guardrail.FilterRuleType) bool {
	return len(filterTypeScanners[filterType]) > 0
}

// Task is one scannable text tagged with the policy and rule that
// produced it, so a block result can carry policy_id/policy_name back.
type Task struct {
	Text       string
	FilterType guardrail.FilterRuleType
	PolicyID   string
	PolicyName string
	Config     map[string]interface{}
}

// Result is one scanner's verdict on one Task.
type Result struct {
	ScannerName string
	IsValid     bool
	RiskScore   float64
	Details     string
	PolicyID    string
	PolicyName  string
}

// Client fans tasks out to the remote scanner and collects every
// response that arrives before the shared deadline.
type Client interface {
	Scan(ctx context.Context, tasks []Task) ([]Result, error)
}

type client struct {
	http    httpx.Client
	breaker httpx.CircuitBreaker
	url     string
	logger  *logrus.Logger
}

// NewClient builds a scanner client bound to the fixed scanner endpoint
// url (default https://model-executor/scan, spec §6).
func NewClient(httpClient httpx.Client, url string, logger *logrus.Logger) Client {
	return &client{
		http:    httpClient,
		breaker: httpx.NewCircuitBreaker("scanner", 30*time.Second, 5),
		url:     url,
		logger:  logger,
	}
}

type scanRequest struct {
	Text        string                 `json:"text"`
	ScannerType string                 `json:"scanner_type"`
	ScannerName string                 `json:"scanner_name"`
	Config      map[string]interface{} `json:"config"`
}

type scanResponse struct {
	ScannerName string  `json:"scanner_name"`
	IsValid     bool    `json:"is_valid"`
	RiskScore   float64 `json:"risk_score"`
	Details     string  `json:"details"`
}

func (c *client) Scan(ctx context.Context, tasks []Task) ([]Result, error) {
	if len(tasks) == 0 {
		return nil, nil
	}
	for _, t := range tasks {
		if len(t.Text) > maxTextBytes {
			return nil, fmt.Errorf("scan text exceeds %d bytes", maxTextBytes)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, fanoutDeadline)
	defer cancel()

	type job struct {
		task        Task
		scannerName string
	}
	var jobs []job
	for _, t := range tasks {
		for _, name := range ScannerNamesFor(t.FilterType) {
			jobs = append(jobs, job{task: t, scannerName: name})
		}
	}
	if len(jobs) == 0 {
		return nil, nil
	}

	var (
		mu      sync.Mutex
		results = make([]Result, 0, len(jobs))
		wg      sync.WaitGroup
	)

	for _, j := range jobs {
		wg.Add(1)
		go func(j job) {
			defer wg.Done()

			start := time.Now()
			res, err := c.scanOne(ctx, j.task, j.scannerName)
			metrics.ScannerLatency.WithLabelValues(j.scannerName).Observe(float64(time.Since(start).Milliseconds()))

			if err != nil {
				c.logger.WithError(errors.NewScannerError(j.scannerName, err)).Warn("scanner call failed, not counted as block")
				metrics.ScannerCallsTotal.WithLabelValues(j.scannerName, "failure").Inc()
				return
			}

			outcome := "ok"
			if !res.IsValid {
				outcome = "invalid"
			}
			metrics.ScannerCallsTotal.WithLabelValues(j.scannerName, outcome).Inc()

			mu.Lock()
			results = append(results, res)
			mu.Unlock()
		}(j)
	}
	wg.Wait()

	return results, nil
}

func (c *client) scanOne(ctx context.Context, task Task, scannerName string) (Result, error) {
	body, err := json.Marshal(scanRequest{
		Text:        task.Text,
		ScannerType: string(task.FilterType),
		ScannerName: scannerName,
		Config:      task.Config,
	})
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var data []byte
	err = c.breaker.Execute(func() error {
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 300 {
			return fmt.Errorf("scanner %q returned status %d", scannerName, resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	var out scanResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return Result{}, fmt.Errorf("decode scanner response: %w", err)
	}

	return Result{
		ScannerName: out.ScannerName,
		IsValid:     out.IsValid,
		RiskScore:   out.RiskScore,
		Details:     out.Details,
		PolicyID:    task.PolicyID,
		PolicyName:  task.PolicyName,
	}, nil
}
