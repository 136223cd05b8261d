package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glia-labs/convoscope/corpus"
	"github.com/glia-labs/convoscope/llm"
)

// planMaxTokens bounds the planning response; plans are small.
const planMaxTokens = 500

// Planner turns a question into a retrieval plan with one LLM call. Planning
// never fails the pipeline: any call or decode failure is recovered locally
// by substituting the deterministic fallback plan.
type Planner struct {
	client llm.Completer
	logger *slog.Logger
	// now is the clock used to resolve relative time filters.
	now func() time.Time
}

// NewPlanner creates a planner over the given completer.
func NewPlanner(client llm.Completer, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{client: client, logger: logger, now: time.Now}
}

// Plan issues the planning call and returns a tagged outcome. When Fallback
// is true, Cause records why the LLM plan was unusable.
func (p *Planner) Plan(ctx context.Context, question string, summary corpus.Summary) PlanOutcome {
	resp, err := p.client.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "user", Content: planningPrompt(question, summary)},
		},
		MaxTokens: planMaxTokens,
	})
	if err != nil {
		p.logger.Warn("query planning call failed, using fallback plan", "error", err)
		return PlanOutcome{Plan: FallbackPlan(question), Fallback: true, Cause: err}
	}

	plan, err := decodePlan(resp.Content, p.now())
	if err != nil {
		p.logger.Warn("query planning response unusable, using fallback plan", "error", err)
		return PlanOutcome{Plan: FallbackPlan(question), Fallback: true, Cause: err}
	}

	p.logger.Info("query plan created",
		"terms", len(plan.SearchTerms),
		"content_types", len(plan.ContentTypes),
		"max_items", plan.MaxItems)
	return PlanOutcome{Plan: plan}
}

// planSchema is the strict JSON schema the planning prompt requests.
type planSchema struct {
	SearchTerms   []string `json:"search_terms"`
	ContentTypes  []string `json:"content_types"`
	TimeFilters   string   `json:"time_filters"`
	AnalysisFocus string   `json:"analysis_focus"`
	MaxItems      int      `json:"max_items"`
}

// decodePlan extracts the first balanced JSON object from the response text
// (tolerating surrounding prose) and decodes it against the plan schema.
func decodePlan(content string, now time.Time) (Plan, error) {
	raw := llm.ExtractJSON(content)
	if raw == "" {
		return Plan{}, fmt.Errorf("no JSON object in planning response")
	}

	var schema planSchema
	if err := json.Unmarshal([]byte(raw), &schema); err != nil {
		return Plan{}, fmt.Errorf("decode plan JSON: %w", err)
	}
	if len(schema.SearchTerms) == 0 {
		return Plan{}, fmt.Errorf("plan has no search terms")
	}

	plan := Plan{
		AnalysisFocus: schema.AnalysisFocus,
		MaxItems:      clampMaxItems(schema.MaxItems),
	}

	for _, term := range schema.SearchTerms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		plan.SearchTerms = append(plan.SearchTerms, SearchTerm{
			Term:       term,
			Expansions: ExpandTerm(term),
		})
	}
	if len(plan.SearchTerms) == 0 {
		return Plan{}, fmt.Errorf("plan has no usable search terms")
	}

	plan.ContentTypes = decodeContentTypes(schema.ContentTypes)
	plan.Window = decodeTimeFilter(schema.TimeFilters, now)

	return plan, nil
}

// decodeContentTypes maps the schema's content type strings onto known
// types. "all", an empty list, or a list with no recognizable types all mean
// no filtering.
func decodeContentTypes(raw []string) []corpus.ContentType {
	var out []corpus.ContentType
	for _, s := range raw {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "ALL" {
			return nil
		}
		for _, known := range corpus.KnownContentTypes {
			if corpus.ContentType(s) == known {
				out = append(out, known)
				break
			}
		}
	}
	return out
}

// decodeTimeFilter resolves the schema's relative time filter against now.
func decodeTimeFilter(raw string, now time.Time) *TimeWindow {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "last_24_hours":
		return &TimeWindow{From: now.Add(-24 * time.Hour)}
	case "last_7_days":
		return &TimeWindow{From: now.Add(-7 * 24 * time.Hour)}
	case "last_30_days":
		return &TimeWindow{From: now.Add(-30 * 24 * time.Hour)}
	default:
		// "all", empty, or unrecognized: no time bound.
		return nil
	}
}

func clampMaxItems(n int) int {
	if n <= 0 {
		return DefaultMaxItems
	}
	if n > maxPlanItems {
		return maxPlanItems
	}
	return n
}

// FallbackPlan builds the deterministic default plan from the question
// alone: top question keywords as terms, all content types, no time window,
// and the default item cap. It guarantees the pipeline always proceeds.
func FallbackPlan(question string) Plan {
	plan := Plan{
		MaxItems:      DefaultMaxItems,
		AnalysisFocus: "general analysis",
	}
	for _, term := range questionKeywords(question, 8) {
		plan.SearchTerms = append(plan.SearchTerms, SearchTerm{
			Term:       term,
			Expansions: ExpandTerm(term),
		})
	}
	return plan
}

// stopwords excluded from fallback keyword extraction.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "are": {}, "was": {}, "were": {}, "what": {},
	"which": {}, "when": {}, "where": {}, "who": {}, "why": {}, "how": {},
	"most": {}, "many": {}, "much": {}, "have": {}, "has": {}, "had": {},
	"did": {}, "does": {}, "for": {}, "with": {}, "about": {}, "from": {},
	"that": {}, "this": {}, "these": {}, "those": {}, "our": {}, "their": {},
	"customers": {}, "customer": {}, "conversations": {}, "conversation": {},
}

// questionKeywords tokenizes a question into up to max lowercase keywords,
// preserving first-occurrence order, dropping stopwords and short tokens.
// Duplicate tokens are kept once. Deterministic for identical input.
func questionKeywords(question string, max int) []string {
	fields := strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})

	seen := make(map[string]struct{})
	var keywords []string
	for _, f := range fields {
		if len(f) < 3 {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		keywords = append(keywords, f)
		if len(keywords) >= max {
			break
		}
	}

	if len(keywords) == 0 {
		// Degenerate questions still need one term so retrieval can proceed.
		keywords = []string{strings.ToLower(strings.TrimSpace(question))}
	}
	return keywords
}
