package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/glia-labs/convoscope/corpus"
	"github.com/glia-labs/convoscope/llm"
	"github.com/glia-labs/convoscope/sanitize"
)

// ConversationTopics is the fixed category list conversations are classified
// into. The model must answer with one of these names verbatim.
var ConversationTopics = []string{
	"Product Issues / Technical Problems",
	"Billing / Subscription Questions",
	"Shipping / Delivery Issues",
	"Account Management / Login Issues",
	"Feature Questions / How-to",
	"Returns / Refunds",
	"Product Recommendations / Purchasing",
	"General Customer Service",
	"Other",
}

// TopicOther is the catch-all category. Classification never fails: call
// errors and unrecognized model output both resolve to it.
const TopicOther = "Other"

// topicMaxTokens bounds the classification response; a category name is
// a few words.
const topicMaxTokens = 100

// TopicExtractor classifies whole conversations into ConversationTopics
// with one LLM call per conversation. Transcripts are sanitized before they
// leave the process.
type TopicExtractor struct {
	client    llm.Completer
	sanitizer *sanitize.Sanitizer
	logger    *slog.Logger
}

func NewTopicExtractor(client llm.Completer, sanitizer *sanitize.Sanitizer, logger *slog.Logger) *TopicExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &TopicExtractor{client: client, sanitizer: sanitizer, logger: logger}
}

// ExtractTopic classifies one conversation's records, oldest first.
func (e *TopicExtractor) ExtractTopic(ctx context.Context, records []corpus.Record) string {
	if len(records) == 0 {
		return TopicOther
	}

	transcript := e.formatTranscript(records)

	resp, err := e.client.Complete(ctx, llm.Request{
		Messages:  []llm.Message{{Role: "user", Content: topicPrompt(transcript)}},
		MaxTokens: topicMaxTokens,
	})
	if err != nil {
		e.logger.Warn("topic classification call failed", "conversation_id", records[0].ConversationID, "error", err)
		return TopicOther
	}

	return matchTopic(resp.Content, e.logger)
}

// ExtractAll classifies every conversation in the snapshot. Conversations
// keep being classified after individual failures; a cancelled context stops
// the batch.
func (e *TopicExtractor) ExtractAll(ctx context.Context, snap *corpus.Snapshot) (map[string]string, error) {
	out := make(map[string]string)
	for _, id := range snap.ConversationIDs() {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out[id] = e.ExtractTopic(ctx, snap.Conversation(id))
	}
	return out, nil
}

// matchTopic resolves model output to a category, case-insensitively, with
// unrecognized output falling back to TopicOther.
func matchTopic(content string, logger *slog.Logger) string {
	topic := strings.Trim(strings.TrimSpace(content), `"'`)
	for _, valid := range ConversationTopics {
		if strings.EqualFold(topic, valid) {
			return valid
		}
	}
	logger.Warn("model returned unrecognized topic", "topic", topic)
	return TopicOther
}

func (e *TopicExtractor) formatTranscript(records []corpus.Record) string {
	var b strings.Builder
	for _, rec := range records {
		clean := rec
		if e.sanitizer != nil {
			sanitized, err := e.sanitizer.Record(rec)
			if err != nil {
				e.logger.Warn("skipping unsanitizable record in transcript", "record_id", rec.ID, "error", err)
				continue
			}
			clean = sanitized
		}

		fmt.Fprintf(&b, "\n[%s] %s:\n", formatItemTime(clean.Timestamp), orUnknown(string(clean.Content.Type)))
		if clean.Content.Subject != "" {
			fmt.Fprintf(&b, "  Subject: %s\n", truncate(clean.Content.Subject, truncateLimit))
		}
		if clean.Content.Text != "" {
			fmt.Fprintf(&b, "  %s\n", truncate(clean.Content.Text, truncateLimit))
		}
		if clean.Content.Body != "" {
			fmt.Fprintf(&b, "  %s\n", truncate(clean.Content.Body, truncateLimit))
		}
	}
	return b.String()
}

func topicPrompt(transcript string) string {
	var b strings.Builder
	b.WriteString("Analyze this customer support conversation and identify the PRIMARY topic/category.\n\n")
	b.WriteString("CONVERSATION TRANSCRIPT:\n")
	b.WriteString(transcript)
	b.WriteString("\n\nVALID TOPIC CATEGORIES (use exact spelling):\n")
	for _, topic := range ConversationTopics {
		fmt.Fprintf(&b, "  %q\n", topic)
	}
	b.WriteString(`
INSTRUCTIONS:
1. Read through the entire conversation transcript
2. Identify the PRIMARY topic or main reason for this conversation
3. Choose the SINGLE most appropriate category from the list above
4. Return ONLY the category name (exact match from the list)

If the conversation doesn't clearly fit any category, use "Other".`)
	return b.String()
}
