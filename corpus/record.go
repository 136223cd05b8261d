// Package corpus holds the immutable conversation snapshot the analysis
// pipeline scans, plus the loaders and watcher that publish new snapshots.
package corpus

import (
	"encoding/json"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

// ContentType identifies the payload variant of a conversation record.
type ContentType string

const (
	ContentTypeChatMessage  ContentType = "CHAT_MESSAGE"
	ContentTypeEmail        ContentType = "EMAIL"
	ContentTypeNote         ContentType = "CONVERSATION_NOTE"
	ContentTypeStatusChange ContentType = "CONVERSATION_STATUS_CHANGE"
	ContentTypePhoneCall    ContentType = "PHONE_CALL"
	ContentTypeTopicChange  ContentType = "TOPIC_CHANGE"
	// ContentTypeSurvey carries a survey response converted into a record
	// so survey answers can be retrieved and analyzed like conversations.
	ContentTypeSurvey ContentType = "SURVEY_RESPONSE"
)

// KnownContentTypes lists the content types the ingestion pipeline produces,
// in the order they are presented to the planner.
var KnownContentTypes = []ContentType{
	ContentTypeChatMessage,
	ContentTypeEmail,
	ContentTypeNote,
	ContentTypeStatusChange,
	ContentTypePhoneCall,
	ContentTypeTopicChange,
	ContentTypeSurvey,
}

// Content is the type-specific payload of a record. Chat messages and notes
// carry Text, emails carry Subject/Body, status changes carry Status.
type Content struct {
	Type        ContentType `json:"type"`
	Text        string      `json:"content,omitempty"`
	Subject     string      `json:"subject,omitempty"`
	Body        string      `json:"body,omitempty"`
	Status      string      `json:"status,omitempty"`
	MessageType string      `json:"messageType,omitempty"`
}

// Record is a single conversation item. Records are immutable once ingested:
// the ingestion collaborator only ever appends new snapshots.
type Record struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	CustomerID     string    `json:"customerId"`
	Timestamp      time.Time `json:"timestamp"`
	Content        Content   `json:"content"`
}

// recordWire mirrors Record with a string timestamp so malformed or missing
// timestamps from upstream exports degrade to the zero time instead of
// failing the whole load.
type recordWire struct {
	ID             string  `json:"id"`
	ConversationID string  `json:"conversationId"`
	CustomerID     string  `json:"customerId"`
	Timestamp      string  `json:"timestamp"`
	Content        Content `json:"content"`
}

// UnmarshalJSON decodes a record, tolerating absent or unparseable
// timestamps the way the upstream exports occasionally produce them.
func (r *Record) UnmarshalJSON(data []byte) error {
	var w recordWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.ID = w.ID
	r.ConversationID = w.ConversationID
	r.CustomerID = w.CustomerID
	r.Content = w.Content
	r.Timestamp = parseTimestamp(w.Timestamp)
	return nil
}

// MarshalJSON encodes the timestamp as RFC3339, or omits it when zero.
func (r Record) MarshalJSON() ([]byte, error) {
	w := recordWire{
		ID:             r.ID,
		ConversationID: r.ConversationID,
		CustomerID:     r.CustomerID,
		Content:        r.Content,
	}
	if !r.Timestamp.IsZero() {
		w.Timestamp = r.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(w)
}

// parseTimestamp accepts the timestamp formats seen in conversation exports.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// htmlConverter normalizes HTML email bodies into plain markdown text so
// substring matching sees prose instead of markup.
var htmlConverter = md.NewConverter("", true, nil)

// SearchableText derives the lowercase text blob term matching runs against.
// Email bodies that look like HTML are converted to markdown first.
func (r Record) SearchableText() string {
	var parts []string
	if r.Content.Text != "" {
		parts = append(parts, r.Content.Text)
	}
	if r.Content.Subject != "" {
		parts = append(parts, r.Content.Subject)
	}
	if r.Content.Body != "" {
		body := r.Content.Body
		if looksLikeHTML(body) {
			if converted, err := htmlConverter.ConvertString(body); err == nil {
				body = converted
			}
		}
		parts = append(parts, body)
	}
	if r.Content.Status != "" {
		parts = append(parts, r.Content.Status)
	}
	return strings.ToLower(strings.Join(parts, " "))
}

func looksLikeHTML(s string) bool {
	trimmed := strings.TrimSpace(s)
	return strings.HasPrefix(trimmed, "<") && strings.Contains(trimmed, ">")
}
