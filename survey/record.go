package survey

import (
	"strings"

	"github.com/glia-labs/convoscope/corpus"
)

// Record converts a response into a conversation record. Each response
// becomes its own single-item conversation keyed by the response UUID, with
// every answer and comment joined into the searchable text.
func (r Response) Record() corpus.Record {
	return corpus.Record{
		ID:             r.ResponseID,
		ConversationID: r.ResponseID,
		CustomerID:     r.UserID,
		Timestamp:      r.SubmittedAt,
		Content: corpus.Content{
			Type: corpus.ContentTypeSurvey,
			Text: strings.Join(r.FreeText(), "\n"),
		},
	}
}

// Records converts a parsed export into corpus records, skipping responses
// with no free text at all.
func Records(responses []Response) []corpus.Record {
	out := make([]corpus.Record, 0, len(responses))
	for _, resp := range responses {
		rec := resp.Record()
		if rec.Content.Text == "" {
			continue
		}
		out = append(out, rec)
	}
	return out
}
