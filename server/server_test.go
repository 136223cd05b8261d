package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glia-labs/convoscope/corpus"
	"github.com/glia-labs/convoscope/llm"
	"github.com/glia-labs/convoscope/llm/testutil"
	"github.com/glia-labs/convoscope/pipeline"
	"github.com/glia-labs/convoscope/sanitize"
)

const planJSON = `{"search_terms": ["refund"], "content_types": ["all"], "time_filters": "all", "analysis_focus": "refunds", "max_items": 50}`

func testCorpus() []corpus.Record {
	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	return []corpus.Record{
		{
			ID: "item-1", ConversationID: "conv-1", CustomerID: "cust-1",
			Timestamp: base,
			Content:   corpus.Content{Type: corpus.ContentTypeChatMessage, Text: "I want a refund"},
		},
		{
			ID: "item-2", ConversationID: "conv-1", CustomerID: "cust-1",
			Timestamp: base.Add(time.Hour),
			Content:   corpus.Content{Type: corpus.ContentTypeChatMessage, Text: "refund approved"},
		},
	}
}

func newTestServer(t *testing.T, mock *testutil.MockClient) *Server {
	t.Helper()
	store := corpus.NewStore(nil)
	store.Swap(corpus.BuildSnapshot(testCorpus()))

	sanitizer, err := sanitize.New(sanitize.Config{Mode: sanitize.ModeRedact}, nil)
	require.NoError(t, err)

	pipe := pipeline.New(mock, store, sanitizer, pipeline.Options{})
	return New(pipe, store, prometheus.NewRegistry(), nil)
}

func TestQueryEndpoint(t *testing.T) {
	mock := &testutil.MockClient{
		Responses: []*llm.Response{
			{Content: planJSON},
			{Content: "refunds look fine", Model: "test-model", Usage: llm.TokenUsage{TotalTokens: 42}},
		},
	}
	handler := newTestServer(t, mock).Handler()

	req := httptest.NewRequest("POST", "/api/rag/query", strings.NewReader(`{"question": "How are refunds?"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Answer       string          `json:"answer"`
		TokensUsed   int             `json:"tokens_used"`
		Retrieved    int             `json:"retrieved"`
		FallbackPlan bool            `json:"fallback_plan"`
		Trace        *pipeline.Trace `json:"trace"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "refunds look fine", resp.Answer)
	assert.Equal(t, 42, resp.TokensUsed)
	assert.Equal(t, 2, resp.Retrieved)
	assert.False(t, resp.FallbackPlan)
	require.NotNil(t, resp.Trace)
	assert.Len(t, resp.Trace.Stages, 4)
}

func TestQueryEndpointValidation(t *testing.T) {
	handler := newTestServer(t, &testutil.MockClient{}).Handler()

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"not json", "hello"},
		{"missing question", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/rag/query", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestQueryEndpointSynthesisFailure(t *testing.T) {
	mock := &testutil.MockClient{Err: errors.New("upstream down")}
	handler := newTestServer(t, mock).Handler()

	req := httptest.NewRequest("POST", "/api/rag/query", strings.NewReader(`{"question": "How are refunds?"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)

	var resp struct {
		Error    string          `json:"error"`
		Category string          `json:"category"`
		Trace    *pipeline.Trace `json:"trace"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "synthesis", resp.Category)
	require.NotNil(t, resp.Trace)
	// Stages before the failing one are preserved in the error payload.
	assert.Len(t, resp.Trace.Stages, 4)
	assert.Equal(t, pipeline.StateFailed, resp.Trace.State)
}

func TestSummaryEndpoint(t *testing.T) {
	handler := newTestServer(t, &testutil.MockClient{}).Handler()

	req := httptest.NewRequest("GET", "/api/conversations/summary", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var sum corpus.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, 2, sum.TotalItems)
	assert.Equal(t, 1, sum.UniqueConversations)
}

func TestSearchEndpoint(t *testing.T) {
	handler := newTestServer(t, &testutil.MockClient{}).Handler()

	req := httptest.NewRequest("GET", "/api/conversations/search?q=refund&limit=1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Query   string          `json:"query"`
		Count   int             `json:"count"`
		Results []corpus.Record `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "refund", resp.Query)
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "item-2", resp.Results[0].ID)
}

func TestRecentEndpoint(t *testing.T) {
	handler := newTestServer(t, &testutil.MockClient{}).Handler()

	// A window wide enough to cover the fixture timestamps.
	req := httptest.NewRequest("GET", "/api/conversations/recent?hours=200000", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Hours   int             `json:"hours"`
		Count   int             `json:"count"`
		Results []corpus.Record `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 200000, resp.Hours)
	assert.Equal(t, 2, resp.Count)
	require.Len(t, resp.Results, 2)
}

func TestRecentEndpointValidation(t *testing.T) {
	handler := newTestServer(t, &testutil.MockClient{}).Handler()

	for _, target := range []string{
		"/api/conversations/recent?hours=0",
		"/api/conversations/recent?hours=abc",
	} {
		req := httptest.NewRequest("GET", target, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestSearchEndpointValidation(t *testing.T) {
	handler := newTestServer(t, &testutil.MockClient{}).Handler()

	for _, target := range []string{
		"/api/conversations/search",
		"/api/conversations/search?q=refund&limit=0",
		"/api/conversations/search?q=refund&limit=abc",
	} {
		req := httptest.NewRequest("GET", target, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestConversationEndpoint(t *testing.T) {
	handler := newTestServer(t, &testutil.MockClient{}).Handler()

	req := httptest.NewRequest("GET", "/api/conversations/conv-1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		ConversationID string          `json:"conversation_id"`
		Count          int             `json:"count"`
		Items          []corpus.Record `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "conv-1", resp.ConversationID)
	assert.Equal(t, 2, resp.Count)

	req = httptest.NewRequest("GET", "/api/conversations/missing", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestServer(t, &testutil.MockClient{}).Handler()

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, true, resp["corpus_loaded"])
}

func TestMetricsEndpoint(t *testing.T) {
	mock := &testutil.MockClient{
		Responses: []*llm.Response{
			{Content: planJSON},
			{Content: "answer", Usage: llm.TokenUsage{TotalTokens: 10}},
		},
	}
	handler := newTestServer(t, mock).Handler()

	// One successful query first so counters have values.
	req := httptest.NewRequest("POST", "/api/rag/query", strings.NewReader(`{"question": "refunds?"}`))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "convoscope_pipeline_runs_total")
	assert.Contains(t, body, `outcome="success"`)
	assert.Contains(t, body, "convoscope_llm_tokens_used_total")
}
