package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/glia-labs/convoscope/corpus"
	"github.com/glia-labs/convoscope/llm"
)

// defaultAnswerTokens bounds the synthesis response when the caller does not.
const defaultAnswerTokens = 2000

// Synthesizer builds a bounded prompt from sanitized retrieved items and the
// question, issues exactly one LLM call, and returns the answer. It never
// retries internally: retrieval results may legitimately differ between
// invocations, so callers retry the whole pipeline instead.
type Synthesizer struct {
	client    llm.Completer
	logger    *slog.Logger
	maxTokens int
}

// NewSynthesizer creates a synthesizer. maxTokens <= 0 uses the default
// answer budget.
func NewSynthesizer(client llm.Completer, maxTokens int, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	if maxTokens <= 0 {
		maxTokens = defaultAnswerTokens
	}
	return &Synthesizer{client: client, logger: logger, maxTokens: maxTokens}
}

// Synthesize answers the question over the sanitized items. Transport or
// auth failure from the LLM call is returned as an error for the pipeline to
// wrap with its trace.
func (s *Synthesizer) Synthesize(ctx context.Context, question, analysisFocus string, items []Item, summary corpus.Summary) (*Answer, error) {
	contextText := formatContext(items)
	system := synthesisSystemPrompt(question, analysisFocus, summary, contextText)

	resp, err := s.client.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: question},
		},
		MaxTokens: s.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("synthesis call: %w", err)
	}

	s.logger.Info("synthesis completed",
		"model", resp.Model,
		"items", len(items),
		"tokens_used", resp.Usage.TotalTokens)

	return &Answer{
		Text:       resp.Content,
		Model:      resp.Model,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}
