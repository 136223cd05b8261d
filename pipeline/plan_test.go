package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glia-labs/convoscope/corpus"
	"github.com/glia-labs/convoscope/llm"
	"github.com/glia-labs/convoscope/llm/testutil"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestPlanner(mock *testutil.MockClient) *Planner {
	p := NewPlanner(mock, nil)
	p.now = func() time.Time { return fixedNow }
	return p
}

func TestPlanDecodesLLMResponse(t *testing.T) {
	mock := &testutil.MockClient{
		Responses: []*llm.Response{{
			Content: "Here is the plan:\n```json\n" +
				`{"search_terms": ["Refund", "battery"], "content_types": ["CHAT_MESSAGE", "EMAIL"], "time_filters": "last_7_days", "analysis_focus": "refund complaints", "max_items": 100}` +
				"\n```",
			Model: "test-model",
		}},
	}

	outcome := newTestPlanner(mock).Plan(context.Background(), "What refund complaints came in?", corpus.Summary{})
	require.False(t, outcome.Fallback)
	require.NoError(t, outcome.Cause)

	plan := outcome.Plan
	require.Len(t, plan.SearchTerms, 2)
	assert.Equal(t, "refund", plan.SearchTerms[0].Term)
	assert.Contains(t, plan.SearchTerms[0].Expansions, "money back")
	assert.Equal(t, "battery", plan.SearchTerms[1].Term)

	assert.Equal(t, []corpus.ContentType{corpus.ContentTypeChatMessage, corpus.ContentTypeEmail}, plan.ContentTypes)
	require.NotNil(t, plan.Window)
	assert.Equal(t, fixedNow.Add(-7*24*time.Hour), plan.Window.From)
	assert.Equal(t, 100, plan.MaxItems)
	assert.Equal(t, "refund complaints", plan.AnalysisFocus)

	assert.Equal(t, 1, mock.CallCount())
}

func TestPlanContentTypesAllMeansNoFilter(t *testing.T) {
	mock := &testutil.MockClient{
		Responses: []*llm.Response{{
			Content: `{"search_terms": ["shipping"], "content_types": ["all"], "time_filters": "all", "analysis_focus": "x", "max_items": 50}`,
		}},
	}

	outcome := newTestPlanner(mock).Plan(context.Background(), "q", corpus.Summary{})
	require.False(t, outcome.Fallback)
	assert.Empty(t, outcome.Plan.ContentTypes)
	assert.Nil(t, outcome.Plan.Window)
}

func TestPlanClampsMaxItems(t *testing.T) {
	tests := []struct {
		raw  int
		want int
	}{
		{0, DefaultMaxItems},
		{-5, DefaultMaxItems},
		{10, 10},
		{9999, maxPlanItems},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, clampMaxItems(tt.raw))
	}
}

func TestPlanFallbackOnCallError(t *testing.T) {
	mock := &testutil.MockClient{Err: errors.New("connection refused")}

	outcome := newTestPlanner(mock).Plan(context.Background(), "What refund complaints came in?", corpus.Summary{})
	require.True(t, outcome.Fallback)
	require.Error(t, outcome.Cause)
	assert.NotEmpty(t, outcome.Plan.SearchTerms)
}

func TestPlanFallbackOnMalformedResponse(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no JSON at all", "I cannot produce a plan for that."},
		{"invalid JSON", `{"search_terms": [unquoted]}`},
		{"empty search terms", `{"search_terms": [], "max_items": 50}`},
		{"blank search terms", `{"search_terms": ["  ", ""], "max_items": 50}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &testutil.MockClient{Responses: []*llm.Response{{Content: tt.content}}}

			outcome := newTestPlanner(mock).Plan(context.Background(), "What refund complaints came in?", corpus.Summary{})
			require.True(t, outcome.Fallback)
			require.Error(t, outcome.Cause)
			assert.NotEmpty(t, outcome.Plan.SearchTerms)
			assert.Equal(t, DefaultMaxItems, outcome.Plan.MaxItems)
		})
	}
}

func TestFallbackPlanKeywords(t *testing.T) {
	plan := FallbackPlan("What are the most common refund complaints?")

	terms := termStrings(plan.SearchTerms)
	assert.Equal(t, []string{"common", "refund", "complaints"}, terms)
	assert.Equal(t, DefaultMaxItems, plan.MaxItems)
	assert.Empty(t, plan.ContentTypes)
	assert.Nil(t, plan.Window)

	// "refund" belongs to a concept group; its expansions come along.
	assert.Contains(t, plan.SearchTerms[1].Expansions, "money back")
}

func TestFallbackPlanIsDeterministic(t *testing.T) {
	question := "Why did customers cancel after the battery problems?"
	assert.Equal(t, FallbackPlan(question), FallbackPlan(question))
}

func TestQuestionKeywords(t *testing.T) {
	tests := []struct {
		name     string
		question string
		want     []string
	}{
		{
			name:     "drops stopwords and short tokens",
			question: "What are the most common refund complaints?",
			want:     []string{"common", "refund", "complaints"},
		},
		{
			name:     "dedupes repeated tokens",
			question: "refund refund REFUND battery",
			want:     []string{"refund", "battery"},
		},
		{
			name:     "caps at max",
			question: "alpha bravo charlie delta echo foxtrot golf hotel india juliet",
			want:     []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf", "hotel"},
		},
		{
			name:     "degenerate question keeps the whole question",
			question: "??",
			want:     []string{"??"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, questionKeywords(tt.question, 8))
		})
	}
}

func TestExpandTerm(t *testing.T) {
	expansions := ExpandTerm("refund")
	assert.Equal(t, []string{"return", "money back", "reimbursement", "credit", "compensation"}, expansions)

	// Not in any group.
	assert.Empty(t, ExpandTerm("zebra"))

	// A term in two groups gets both, without duplicates.
	tracking := ExpandTerm("tracking")
	assert.Contains(t, tracking, "shipping")
	assert.Contains(t, tracking, "gps")
	seen := map[string]int{}
	for _, e := range tracking {
		seen[e]++
		assert.LessOrEqual(t, seen[e], 1)
	}
}
