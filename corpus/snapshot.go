package corpus

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Snapshot is an immutable, time-ordered view of the corpus. The searchable
// blob for each record is derived once at build time; readers never mutate
// snapshot state.
type Snapshot struct {
	records  []Record
	blobs    []string
	loadedAt time.Time
}

// BuildSnapshot creates a snapshot from records, ordering them by timestamp
// ascending (stable on record ID for equal timestamps).
func BuildSnapshot(records []Record) *Snapshot {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Timestamp.Equal(sorted[j].Timestamp) {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	blobs := make([]string, len(sorted))
	for i, rec := range sorted {
		blobs[i] = rec.SearchableText()
	}

	return &Snapshot{
		records:  sorted,
		blobs:    blobs,
		loadedAt: time.Now(),
	}
}

// EmptySnapshot returns a snapshot with no records.
func EmptySnapshot() *Snapshot {
	return BuildSnapshot(nil)
}

// Len returns the number of records in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.records)
}

// Record returns the record at index i.
func (s *Snapshot) Record(i int) Record {
	return s.records[i]
}

// Blob returns the pre-derived lowercase searchable text for the record at
// index i.
func (s *Snapshot) Blob(i int) string {
	return s.blobs[i]
}

// LoadedAt reports when this snapshot was built.
func (s *Snapshot) LoadedAt() time.Time {
	return s.loadedAt
}

// Conversation returns all records belonging to a conversation, in time order.
func (s *Snapshot) Conversation(conversationID string) []Record {
	var out []Record
	for _, rec := range s.records {
		if rec.ConversationID == conversationID {
			out = append(out, rec)
		}
	}
	return out
}

// ConversationIDs returns every distinct conversation id in order of first
// appearance, which for an ordered snapshot is chronological.
func (s *Snapshot) ConversationIDs() []string {
	seen := make(map[string]bool)
	var out []string
	for _, rec := range s.records {
		if rec.ConversationID == "" || seen[rec.ConversationID] {
			continue
		}
		seen[rec.ConversationID] = true
		out = append(out, rec.ConversationID)
	}
	return out
}

// Search returns up to limit records whose searchable text contains the
// query (case-insensitive substring match), most recent first.
func (s *Snapshot) Search(query string, limit int) []Record {
	if limit <= 0 {
		limit = 10
	}
	q := strings.ToLower(query)
	var out []Record
	for i := len(s.records) - 1; i >= 0; i-- {
		if strings.Contains(s.blobs[i], q) {
			out = append(out, s.records[i])
			if len(out) >= limit {
				break
			}
		}
	}
	return out
}

// Recent returns records with timestamps inside the trailing window,
// evaluated against now.
func (s *Snapshot) Recent(window time.Duration, now time.Time) []Record {
	cutoff := now.Add(-window)
	var out []Record
	for _, rec := range s.records {
		if !rec.Timestamp.IsZero() && !rec.Timestamp.Before(cutoff) {
			out = append(out, rec)
		}
	}
	return out
}

// Summary holds corpus-wide statistics handed to the query planner and the
// observability surfaces.
type Summary struct {
	TotalItems          int                 `json:"total_items"`
	UniqueCustomers     int                 `json:"unique_customers"`
	UniqueConversations int                 `json:"unique_conversations"`
	DateRange           DateRange           `json:"date_range"`
	ContentTypes        map[ContentType]int `json:"content_types"`
	MessageTypes        map[string]int      `json:"message_types,omitempty"`
}

// DateRange is the inclusive timestamp span of a corpus.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Summary computes corpus statistics for the current snapshot.
func (s *Snapshot) Summary() Summary {
	sum := Summary{
		TotalItems:   len(s.records),
		ContentTypes: make(map[ContentType]int),
	}
	if len(s.records) == 0 {
		return sum
	}

	customers := make(map[string]struct{})
	conversations := make(map[string]struct{})
	messageTypes := make(map[string]int)

	for _, rec := range s.records {
		sum.ContentTypes[rec.Content.Type]++
		if rec.Content.Type == ContentTypeChatMessage {
			mt := rec.Content.MessageType
			if mt == "" {
				mt = "UNKNOWN"
			}
			messageTypes[mt]++
		}
		if rec.CustomerID != "" {
			customers[rec.CustomerID] = struct{}{}
		}
		if rec.ConversationID != "" {
			conversations[rec.ConversationID] = struct{}{}
		}
		if rec.Timestamp.IsZero() {
			continue
		}
		if sum.DateRange.Start.IsZero() || rec.Timestamp.Before(sum.DateRange.Start) {
			sum.DateRange.Start = rec.Timestamp
		}
		if rec.Timestamp.After(sum.DateRange.End) {
			sum.DateRange.End = rec.Timestamp
		}
	}

	sum.UniqueCustomers = len(customers)
	sum.UniqueConversations = len(conversations)
	if len(messageTypes) > 0 {
		sum.MessageTypes = messageTypes
	}
	return sum
}

// String formats the summary for inclusion in planner and synthesis prompts.
func (s Summary) String() string {
	var b strings.Builder
	b.WriteString("Conversation Data Summary:\n")
	fmt.Fprintf(&b, "- Total items: %d\n", s.TotalItems)
	fmt.Fprintf(&b, "- Unique customers: %d\n", s.UniqueCustomers)
	fmt.Fprintf(&b, "- Unique conversations: %d\n", s.UniqueConversations)
	fmt.Fprintf(&b, "- Date range: %s to %s\n", formatRangeTime(s.DateRange.Start), formatRangeTime(s.DateRange.End))

	b.WriteString("\nContent Types:\n")
	types := make([]string, 0, len(s.ContentTypes))
	for ct := range s.ContentTypes {
		types = append(types, string(ct))
	}
	sort.Strings(types)
	for _, ct := range types {
		fmt.Fprintf(&b, "  - %s: %d\n", ct, s.ContentTypes[ContentType(ct)])
	}

	if len(s.MessageTypes) > 0 {
		b.WriteString("\nMessage Types:\n")
		mts := make([]string, 0, len(s.MessageTypes))
		for mt := range s.MessageTypes {
			mts = append(mts, mt)
		}
		sort.Strings(mts)
		for _, mt := range mts {
			fmt.Fprintf(&b, "  - %s: %d\n", mt, s.MessageTypes[mt])
		}
	}
	return b.String()
}

func formatRangeTime(t time.Time) string {
	if t.IsZero() {
		return "Unknown"
	}
	return t.UTC().Format(time.RFC3339)
}
