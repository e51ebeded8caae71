package scanner

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NeuralTrust/mcp-guardrail/pkg/domain/guardrail"
)

type fakeHTTPClient struct {
	respond func(req *http.Request) (*http.Response, error)
}

func (f *fakeHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return f.respond(req)
}

func jsonResponse(t *testing.T, status int, body interface{}) *http.Response {
	data, err := json.Marshal(body)
	require.NoError(t, err)
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(string(data))),
	}
}

func TestScannerNamesFor(t *testing.T) {
	assert.Equal(t, []string{"Toxicity"}, ScannerNamesFor(guardrail.FilterHarmfulCategories))
	assert.Equal(t, []string{"PromptInjection"}, ScannerNamesFor(guardrail.FilterPromptAttacks))
	assert.Equal(t, []string{"BanSubstrings"}, ScannerNamesFor(guardrail.FilterBanSubstrings))
	assert.Equal(t, []string{"BanTopics"}, ScannerNamesFor(guardrail.FilterBanTopics))
	assert.Nil(t, ScannerNamesFor(guardrail.FilterPII))
}

func TestIsScannerFilterType(t *testing.T) {
	assert.True(t, IsScannerFilterType(guardrail.FilterHarmfulCategories))
	assert.False(t, IsScannerFilterType(guardrail.FilterPII))
	assert.False(t, IsScannerFilterType(guardrail.FilterRegex))
}

func TestScan_NoTasks_ReturnsNil(t *testing.T) {
	c := NewClient(&fakeHTTPClient{}, "https://model-executor/scan", logrus.New())
	results, err := c.Scan(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestScan_OversizedText_Errors(t *testing.T) {
	c := NewClient(&fakeHTTPClient{}, "https://model-executor/scan", logrus.New())
	huge := strings.Repeat("a", maxTextBytes+1)
	_, err := c.Scan(context.Background(), []Task{{Text: huge, FilterType: guardrail.FilterHarmfulCategories}})
	assert.Error(t, err)
}

func TestScan_SingleScannerInvalid(t *testing.T) {
	fake := &fakeHTTPClient{respond: func(req *http.Request) (*http.Response, error) {
		return jsonResponse(t, 200, scanResponse{ScannerName: "Toxicity", IsValid: false, RiskScore: 0.9, Details: "toxic"}), nil
	}}
	c := NewClient(fake, "https://model-executor/scan", logrus.New())

	results, err := c.Scan(context.Background(), []Task{{
		Text:       "you are an idiot",
		FilterType: guardrail.FilterHarmfulCategories,
		PolicyID:   "p1",
		PolicyName: "Default",
	}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].IsValid)
	assert.Equal(t, "Toxicity", results[0].ScannerName)
	assert.Equal(t, "p1", results[0].PolicyID)
}

func TestScan_FanOutMultipleScanners(t *testing.T) {
	fake := &fakeHTTPClient{respond: func(req *http.Request) (*http.Response, error) {
		var reqBody scanRequest
		data, _ := io.ReadAll(req.Body)
		_ = json.Unmarshal(data, &reqBody)
		return jsonResponse(t, 200, scanResponse{ScannerName: reqBody.ScannerName, IsValid: true}), nil
	}}
	c := NewClient(fake, "https://model-executor/scan", logrus.New())

	results, err := c.Scan(context.Background(), []Task{
		{Text: "hello", FilterType: guardrail.FilterHarmfulCategories},
		{Text: "world", FilterType: guardrail.FilterPromptAttacks},
	})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestScan_ScannerError_OmittedNotErrored(t *testing.T) {
	fake := &fakeHTTPClient{respond: func(req *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: 500, Body: io.NopCloser(strings.NewReader("boom"))}, nil
	}}
	c := NewClient(fake, "https://model-executor/scan", logrus.New())

	results, err := c.Scan(context.Background(), []Task{{Text: "x", FilterType: guardrail.FilterBanTopics}})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestScan_UnknownFilterType_NoJobs(t *testing.T) {
	c := NewClient(&fakeHTTPClient{}, "https://model-executor/scan", logrus.New())
	results, err := c.Scan(context.Background(), []Task{{Text: "x", FilterType: guardrail.FilterPII}})
	require.NoError(t, err)
	assert.Nil(t, results)
}
