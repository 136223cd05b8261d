package sanitize

import (
	"fmt"

	"github.com/glia-labs/convoscope/survey"
)

// Survey returns a sanitized copy of a survey response. Structured identity
// fields take the dedicated identifier path; only answer and comment text
// goes through free-text scanning.
func (s *Sanitizer) Survey(resp survey.Response) (out survey.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sanitize survey response %s: %v", resp.ResponseID, r)
		}
	}()

	out = resp
	out.UserID = s.PseudonymizeID(resp.UserID, "user")

	if s.cfg.Mode != ModeNone {
		if resp.Email != "" {
			if s.cfg.Mode == ModeHash {
				out.Email = fmt.Sprintf("[%s:%s]", CategoryEmail, hashValue(resp.Email, ""))
			} else {
				out.Email = fmt.Sprintf("[REDACTED_%s]", CategoryEmail)
			}
		}
		if resp.FirstName != "" {
			out.FirstName = "[REDACTED_FIRST_NAME]"
		}
		if resp.LastName != "" {
			out.LastName = "[REDACTED_LAST_NAME]"
		}
	}

	if len(resp.Answers) > 0 {
		answers := make(map[string]survey.Answer, len(resp.Answers))
		for key, a := range resp.Answers {
			answers[key] = survey.Answer{
				Answer:  s.Text(a.Answer),
				Comment: s.Text(a.Comment),
			}
		}
		out.Answers = answers
	}

	return out, nil
}
