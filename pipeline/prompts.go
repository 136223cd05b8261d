package pipeline

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/glia-labs/convoscope/corpus"
)

// truncateLimit bounds each serialized content field in the synthesis context.
const truncateLimit = 500

// planningPrompt builds the instruction prompt for the planning stage. The
// corpus summary grounds the model; the schema is strict so the response can
// be decoded rather than scraped.
func planningPrompt(question string, summary corpus.Summary) string {
	var b strings.Builder
	b.WriteString("You are a data analysis assistant planning retrieval over customer support conversation data.\n\n")

	b.WriteString("Data Types Available:\n")
	b.WriteString("- CHAT_MESSAGE: Customer and agent chat messages\n")
	b.WriteString("- EMAIL: Email communications with subjects and content\n")
	b.WriteString("- CONVERSATION_NOTE: Agent notes and internal documentation\n")
	b.WriteString("- CONVERSATION_STATUS_CHANGE: Status updates (OPEN/CLOSED)\n")
	b.WriteString("- PHONE_CALL: Phone call records\n")
	b.WriteString("- TOPIC_CHANGE: Topic changes in conversations\n")
	b.WriteString("- SURVEY_RESPONSE: Cancellation survey answers and comments\n\n")

	b.WriteString("Each item has: timestamp, customerId, conversationId, and content (which varies by type).\n\n")

	b.WriteString(summary.String())
	b.WriteString("\n")

	fmt.Fprintf(&b, "Question: %q\n\n", question)

	b.WriteString(`Based on this question, respond with a JSON object with exactly these fields:
1. "search_terms": list of specific terms to search for in the conversation content
2. "content_types": list of content types to focus on (e.g., ["CHAT_MESSAGE", "EMAIL"]), or ["all"]
3. "time_filters": one of "all", "last_24_hours", "last_7_days", "last_30_days"
4. "analysis_focus": what specific aspects to focus on in the analysis
5. "max_items": maximum number of conversation items to retrieve (50-200)

Be specific and comprehensive in your search terms. Think about synonyms, related terms, and different ways the same issue might be expressed.

Respond with valid JSON only.`)

	return b.String()
}

// synthesisSystemPrompt builds the system prompt for the final analysis call.
func synthesisSystemPrompt(question, analysisFocus string, summary corpus.Summary, contextText string) string {
	if analysisFocus == "" {
		analysisFocus = "general analysis"
	}
	var b strings.Builder
	b.WriteString("You are analyzing customer support conversation data. Here's a summary of the data:\n\n")
	b.WriteString(summary.String())
	b.WriteString("\n")
	b.WriteString(contextText)
	fmt.Fprintf(&b, "\nAnalysis Focus: %s\n\n", analysisFocus)
	fmt.Fprintf(&b, "Please analyze the conversation data and answer the question: %q\n\n", question)
	b.WriteString(`Be specific and reference the actual conversation content when possible. Look for patterns, themes, and specific examples in the data.

IMPORTANT: When referencing specific conversations, ALWAYS use the Conversation ID formatted with backticks, like ` + "`conversation-id-here`" + `, so users can locate them.

Format your response as well-structured Markdown with headings and bullet points.`)
	return b.String()
}

// formatContext serializes sanitized retrieved items into the compact
// textual form handed to the LLM. The item cap was already enforced by the
// plan; long fields are truncated per item.
func formatContext(items []Item) string {
	var b strings.Builder
	b.WriteString("Retrieved Conversation Data:\n\n")

	for _, item := range items {
		rec := item.Record
		fmt.Fprintf(&b, "--- Conversation ID: %s (Item ID: %s) ---\n", orUnknown(rec.ConversationID), orUnknown(rec.ID))
		fmt.Fprintf(&b, "Type: %s\n", orUnknown(string(rec.Content.Type)))
		fmt.Fprintf(&b, "Timestamp: %s\n", formatItemTime(rec.Timestamp))
		fmt.Fprintf(&b, "Customer: %s\n", orUnknown(rec.CustomerID))
		if rec.Content.Text != "" {
			fmt.Fprintf(&b, "Content: %s\n", truncate(rec.Content.Text, truncateLimit))
		}
		if rec.Content.Subject != "" {
			fmt.Fprintf(&b, "Subject: %s\n", rec.Content.Subject)
		}
		if rec.Content.Body != "" {
			fmt.Fprintf(&b, "Body: %s\n", truncate(rec.Content.Body, truncateLimit))
		}
		if rec.Content.Status != "" {
			fmt.Fprintf(&b, "Status: %s\n", rec.Content.Status)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// truncate cuts text at a rune boundary at or below max bytes so the result
// is always valid UTF-8.
func truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "... [truncated]"
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func formatItemTime(t time.Time) string {
	if t.IsZero() {
		return "Unknown"
	}
	return t.UTC().Format(time.RFC3339)
}
