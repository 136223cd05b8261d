package pipeline

import (
	"context"
	"log/slog"

	"github.com/glia-labs/convoscope/corpus"
	"github.com/glia-labs/convoscope/llm"
	"github.com/glia-labs/convoscope/sanitize"
)

// Pipeline is the explicit context object for one analysis service: LLM
// client, corpus store, and sanitizer wired once at startup and passed into
// each invocation. There is no hidden global state beyond the store's
// snapshot pointer; invocations may run concurrently.
type Pipeline struct {
	planner     *Planner
	synthesizer *Synthesizer
	store       *corpus.Store
	sanitizer   *sanitize.Sanitizer
	logger      *slog.Logger
}

// Options configures pipeline construction.
type Options struct {
	// AnswerMaxTokens bounds the synthesis response. 0 uses the default.
	AnswerMaxTokens int
	Logger          *slog.Logger
}

// New wires a pipeline from its collaborators.
func New(client llm.Completer, store *corpus.Store, sanitizer *sanitize.Sanitizer, opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		planner:     NewPlanner(client, logger),
		synthesizer: NewSynthesizer(client, opts.AnswerMaxTokens, logger),
		store:       store,
		sanitizer:   sanitizer,
		logger:      logger,
	}
}

// Outcome is the result of a successful pipeline run.
type Outcome struct {
	Answer *Answer `json:"answer"`
	Plan   Plan    `json:"plan"`
	// FallbackPlan is true when the deterministic fallback plan was used.
	FallbackPlan bool `json:"fallback_plan"`
	// Retrieved is the number of items handed to synthesis.
	Retrieved int    `json:"retrieved"`
	Trace     *Trace `json:"trace"`
}

// Run answers one question. The snapshot is captured once at the start so
// the whole run sees a consistent corpus even if ingestion swaps in a new
// snapshot mid-run. On synthesis failure the returned error carries the
// trace of every stage completed before it.
func (p *Pipeline) Run(ctx context.Context, question string) (*Outcome, error) {
	trace := NewTrace()
	snap := p.store.Current()
	summary := snap.Summary()

	p.logger.Info("pipeline run started",
		"run_id", trace.RunID,
		"corpus_records", snap.Len())

	// Stage 1: planning. Never fails; fallback is noted on the trace.
	trace.begin(StagePlan)
	outcome := p.planner.Plan(ctx, question, summary)
	plan := outcome.Plan
	trace.complete(StagePlan, map[string]any{
		"search_terms":   termStrings(plan.SearchTerms),
		"content_types":  plan.ContentTypes,
		"max_items":      plan.MaxItems,
		"analysis_focus": plan.AnalysisFocus,
		"fallback":       outcome.Fallback,
	})
	if outcome.Fallback {
		trace.warn(StagePlan, "planning failed, deterministic fallback plan used: "+outcome.Cause.Error())
	}

	// Stage 2: retrieval. Pure scan; empty result is success.
	trace.begin(StageRetrieve)
	result := Retrieve(plan, snap)
	trace.complete(StageRetrieve, map[string]any{
		"total_scanned":      result.TotalScanned,
		"retrieved":          len(result.Items),
		"per_term_counts":    result.PerTermCounts,
		"per_type_counts":    result.PerTypeCounts,
		"duplicates_removed": result.DuplicatesRemoved,
		"filtered_out":       result.FilteredOut,
	})
	if snap.Len() == 0 {
		trace.warn(StageRetrieve, "no conversation data is currently loaded")
	}

	// Stage 3: sanitization. A failing item is dropped, never fatal.
	trace.begin(StageSanitize)
	sanitized := make([]Item, 0, len(result.Items))
	dropped := 0
	for _, item := range result.Items {
		rec, err := p.sanitizer.Record(item.Record)
		if err != nil {
			dropped++
			p.logger.Warn("dropping item that failed sanitization",
				"run_id", trace.RunID,
				"record_id", item.Record.ID,
				"error", err)
			continue
		}
		sanitized = append(sanitized, Item{Record: rec, MatchedTerm: item.MatchedTerm})
	}
	trace.complete(StageSanitize, map[string]any{
		"sanitized": len(sanitized),
		"dropped":   dropped,
		"mode":      string(p.sanitizer.Mode()),
	})
	if dropped > 0 {
		trace.warn(StageSanitize, "some items failed sanitization and were dropped")
	}

	// Stage 4: synthesis. Fatal for this invocation on failure.
	trace.begin(StageSynthesize)
	answer, err := p.synthesizer.Synthesize(ctx, question, plan.AnalysisFocus, sanitized, summary)
	if err != nil {
		trace.fail(StageSynthesize, err)
		p.logger.Error("pipeline run failed",
			"run_id", trace.RunID,
			"stage", StageSynthesize,
			"error", err)
		return nil, NewSynthesisError(err, trace)
	}
	trace.complete(StageSynthesize, map[string]any{
		"model":       answer.Model,
		"tokens_used": answer.TokensUsed,
	})
	trace.finish()

	p.logger.Info("pipeline run completed",
		"run_id", trace.RunID,
		"retrieved", len(sanitized),
		"tokens_used", answer.TokensUsed,
		"fallback_plan", outcome.Fallback)

	return &Outcome{
		Answer:       answer,
		Plan:         plan,
		FallbackPlan: outcome.Fallback,
		Retrieved:    len(sanitized),
		Trace:        trace,
	}, nil
}

func termStrings(terms []SearchTerm) []string {
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = t.Term
	}
	return out
}
