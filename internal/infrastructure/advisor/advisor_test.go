package advisor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/erp/unify/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var testRequest = Request{
	SourceA: Source{Name: "reconciliation.csv", Columns: []string{"client_ref", "purchase_dt"}},
	SourceB: Source{Name: "orders.csv", Columns: []string{"CustomerID", "productCode"}},
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"fenced json", "Sure!\n```json\n{\"a\": 1}\n```\nDone.", `{"a": 1}`},
		{"fenced plain", "```\n{\"a\": 2}\n```", `{"a": 2}`},
		{"braces", "Here you go: {\"a\": {\"b\": 3}} hope it helps", `{"a": {"b": 3}}`},
		{"raw", "  not json at all  ", "not json at all"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.text))
		})
	}
}

func TestParseSuggestion(t *testing.T) {
	s, err := ParseSuggestion("```json\n{\"source_a_mappings\": {\"client_ref\": \"customers.customer_id\"}, " +
		"\"source_b_mappings\": {\"productCode\": [\"products.product_id\", \"order_items.product_id\"]}}\n```")
	require.NoError(t, err)
	assert.Equal(t, "customers.customer_id", s.SourceA["client_ref"])
	assert.Len(t, s.SourceB["productCode"], 2)

	_, err = ParseSuggestion("I cannot help with that")
	assert.ErrorIs(t, err, ErrMalformedAnswer)

	_, err = ParseSuggestion(`{"unrelated": true}`)
	assert.ErrorIs(t, err, ErrMalformedAnswer)
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(testRequest)
	assert.Contains(t, p, "Name: reconciliation.csv")
	assert.Contains(t, p, "Columns: client_ref, purchase_dt")
	assert.Contains(t, p, NoClearTarget)

	customers := strings.Index(p, "Table 'customers'")
	orderItems := strings.Index(p, "Table 'order_items'")
	products := strings.Index(p, "Table 'products'")
	require.Positive(t, customers)
	assert.Less(t, customers, orderItems)
	assert.Less(t, orderItems, products)

	custom := BuildPrompt(Request{TargetSchema: map[string][]string{"ledger": {"entry_id"}}})
	assert.Contains(t, custom, "Table 'ledger': entry_id")
	assert.NotContains(t, custom, "Table 'customers'")
}

// geminiStub answers generateContent calls with a fixed status and text
func geminiStub(t *testing.T, status int, text string, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))

		var req generateRequest
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) && assert.Len(t, req.Contents, 1) {
			assert.Contains(t, req.Contents[0].Parts[0].Text, "reconciliation.csv")
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error": {"message": "boom"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"parts": []any{map[string]any{"text": text}}},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(endpoint string) config.AdvisorConfig {
	return config.AdvisorConfig{
		APIKey:         "secret",
		Model:          "gemini-test",
		Endpoint:       endpoint,
		Timeout:        5 * time.Second,
		RatePerSecond:  1000,
		Burst:          10,
		MaxFailures:    2,
		BreakerTimeout: time.Minute,
	}
}

func TestClient_Suggest(t *testing.T) {
	var hits atomic.Int32
	answer := "```json\n{\"source_a_mappings\": {\"client_ref\": \"customers.customer_id\", \"purchase_dt\": \"orders.order_date\"}, " +
		"\"source_b_mappings\": {\"CustomerID\": \"customers.customer_id\"}}\n```"
	srv := geminiStub(t, http.StatusOK, answer, &hits)

	c := New(testConfig(srv.URL + "/"))
	s := c.SuggestSchemaMapping(context.Background(), testRequest)
	require.NotNil(t, s)
	assert.Equal(t, "orders.order_date", s.SourceA["purchase_dt"])
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_GarbageAnswer(t *testing.T) {
	var hits atomic.Int32
	srv := geminiStub(t, http.StatusOK, "I am unable to comply.", &hits)
	core, logs := observer.New(zapcore.InfoLevel)

	c := New(testConfig(srv.URL), WithLogger(zap.New(core)))
	assert.Nil(t, c.SuggestSchemaMapping(context.Background(), testRequest))

	entries := logs.FilterMessage("no schema mapping suggestion").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "malformed_answer", entries[0].ContextMap()["cause"])
	assert.Equal(t, "closed", c.BreakerState(), "a malformed answer is not a transport failure")
}

func TestClient_NoKey(t *testing.T) {
	var hits atomic.Int32
	srv := geminiStub(t, http.StatusOK, "{}", &hits)
	cfg := testConfig(srv.URL)
	cfg.APIKey = ""

	c := New(cfg)
	assert.False(t, c.Enabled())
	assert.Nil(t, c.SuggestSchemaMapping(context.Background(), testRequest))
	assert.Zero(t, hits.Load())
}

func TestClient_BreakerOpens(t *testing.T) {
	var hits atomic.Int32
	srv := geminiStub(t, http.StatusInternalServerError, "", &hits)
	core, logs := observer.New(zapcore.InfoLevel)
	c := New(testConfig(srv.URL), WithLogger(zap.New(core)))

	for range 4 {
		assert.Nil(t, c.SuggestSchemaMapping(context.Background(), testRequest))
	}
	assert.Equal(t, int32(2), hits.Load(), "calls stop once the breaker opens")
	assert.Equal(t, "open", c.BreakerState())

	causes := map[string]int{}
	for _, e := range logs.FilterMessage("no schema mapping suggestion").All() {
		causes[e.ContextMap()["cause"].(string)]++
	}
	assert.Equal(t, map[string]int{"http_status": 2, "breaker_open": 2}, causes)
	assert.Equal(t, 1, logs.FilterMessage("advisor circuit breaker state changed").Len())
}

func TestClient_RateLimited(t *testing.T) {
	var hits atomic.Int32
	srv := geminiStub(t, http.StatusOK, `{"source_a_mappings": {"a": "customers.customer_id"}}`, &hits)
	cfg := testConfig(srv.URL)
	cfg.RatePerSecond = 0.001
	cfg.Burst = 1

	c := New(cfg)
	assert.NotNil(t, c.SuggestSchemaMapping(context.Background(), testRequest))
	assert.Nil(t, c.SuggestSchemaMapping(context.Background(), testRequest))
	assert.Equal(t, int32(1), hits.Load())
}

func TestCauseOf(t *testing.T) {
	assert.Equal(t, "quota", causeOf(&statusError{code: http.StatusTooManyRequests}))
	assert.Equal(t, "timeout", causeOf(context.DeadlineExceeded))
	assert.Equal(t, "no_api_key", causeOf(errNoKey))
}
