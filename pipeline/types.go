// Package pipeline implements the retrieval-augmented analysis pipeline:
// query planning, corpus retrieval, PII sanitization, and answer synthesis,
// with a per-run process trace.
package pipeline

import (
	"time"

	"github.com/glia-labs/convoscope/corpus"
)

// DefaultMaxItems caps retrieval when the planner does not set a bound.
const DefaultMaxItems = 50

// maxPlanItems is the hard ceiling for any plan's item cap.
const maxPlanItems = 500

// SearchTerm is one planned search term with its synonym expansions.
// A record matching either the term or any expansion is attributed to Term.
type SearchTerm struct {
	Term       string   `json:"term"`
	Expansions []string `json:"expansions,omitempty"`
}

// TimeWindow bounds retrieval to records inside [From, To]. A zero bound is
// open on that side.
type TimeWindow struct {
	From time.Time `json:"from,omitempty"`
	To   time.Time `json:"to,omitempty"`
}

// Contains reports whether t falls inside the window.
func (w TimeWindow) Contains(t time.Time) bool {
	if !w.From.IsZero() && t.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && t.After(w.To) {
		return false
	}
	return true
}

// Plan is the structured retrieval strategy for one question. Plans are
// created once by the planner, never mutated, and consumed exactly once by
// the retriever.
type Plan struct {
	SearchTerms []SearchTerm `json:"search_terms"`
	// ContentTypes filters retrieval; empty means all types.
	ContentTypes []corpus.ContentType `json:"content_types,omitempty"`
	// Window optionally bounds retrieval in time.
	Window *TimeWindow `json:"time_window,omitempty"`
	// MaxItems caps the retrieval result size. Always in [1, maxPlanItems].
	MaxItems int `json:"max_items"`
	// AnalysisFocus is free-text guidance for the synthesis stage.
	AnalysisFocus string `json:"analysis_focus,omitempty"`
}

// MatchesType reports whether the plan's content-type filter admits ct.
func (p Plan) MatchesType(ct corpus.ContentType) bool {
	if len(p.ContentTypes) == 0 {
		return true
	}
	for _, t := range p.ContentTypes {
		if t == ct {
			return true
		}
	}
	return false
}

// PlanOutcome is the tagged result of the planning stage, so callers and
// tests can distinguish an LLM-produced plan from the deterministic
// fallback.
type PlanOutcome struct {
	Plan Plan
	// Fallback is true when planning failed and the deterministic default
	// plan was substituted.
	Fallback bool
	// Cause is the planning failure that triggered the fallback, nil
	// otherwise.
	Cause error
}

// Item is one retrieved record with its first-seen term attribution.
type Item struct {
	Record corpus.Record `json:"record"`
	// MatchedTerm is the plan term that first matched this record.
	MatchedTerm string `json:"matched_term"`
}

// Result is the outcome of executing a plan against a corpus snapshot.
type Result struct {
	Items []Item `json:"items"`
	// PerTermCounts maps each plan term to the number of records it matched
	// (before deduplication).
	PerTermCounts map[string]int `json:"per_term_counts"`
	// PerTypeCounts maps content types to counts among the surviving items.
	PerTypeCounts map[corpus.ContentType]int `json:"per_type_counts"`
	// TotalScanned is the corpus size at scan time.
	TotalScanned int `json:"total_scanned"`
	// DuplicatesRemoved counts matches dropped by record-id deduplication.
	DuplicatesRemoved int `json:"duplicates_removed"`
	// FilteredOut counts matches excluded by the type and time filters.
	FilteredOut int `json:"filtered_out"`
}

// Answer is the synthesis result.
type Answer struct {
	Text       string `json:"text"`
	Model      string `json:"model"`
	TokensUsed int    `json:"tokens_used"`
}
