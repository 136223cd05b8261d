// Package survey parses cancelled-subscription survey exports so survey
// answers can flow through the same sanitize-and-analyze pipeline as
// conversation records.
package survey

import (
	"sort"
	"time"
)

// Answer holds one question's answer and optional free-text comment.
type Answer struct {
	Answer  string `json:"answer,omitempty"`
	Comment string `json:"comment,omitempty"`
}

// Response is a single survey submission.
type Response struct {
	ResponseID   string            `json:"response_uuid"`
	RespondentID string            `json:"respondent_uuid"`
	SubmittedAt  time.Time         `json:"date_time"`
	Email        string            `json:"email,omitempty"`
	FirstName    string            `json:"first_name,omitempty"`
	LastName     string            `json:"last_name,omitempty"`
	UserID       string            `json:"user_id,omitempty"`
	Answers      map[string]Answer `json:"answers"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// FreeText concatenates every answer and comment in question order, for
// term matching. The order is stable so derived records are deterministic.
func (r Response) FreeText() []string {
	questions := make([]string, 0, len(r.Answers))
	for q := range r.Answers {
		questions = append(questions, q)
	}
	sort.Strings(questions)

	var out []string
	for _, q := range questions {
		a := r.Answers[q]
		if a.Answer != "" {
			out = append(out, a.Answer)
		}
		if a.Comment != "" {
			out = append(out, a.Comment)
		}
	}
	return out
}
