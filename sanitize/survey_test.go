package sanitize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glia-labs/convoscope/survey"
)

func testResponse() survey.Response {
	return survey.Response{
		ResponseID:  "resp-uuid-1",
		SubmittedAt: time.Date(2025, 4, 2, 9, 30, 0, 0, time.UTC),
		Email:       "jane@example.com",
		FirstName:   "Jane",
		LastName:    "Doe",
		UserID:      "resp-001",
		Answers: map[string]survey.Answer{
			"Q#1": {Answer: "Too expensive"},
			"Q#2": {Answer: "Other", Comment: "Call me at 555-123-4567 to discuss"},
		},
	}
}

func TestSurveyHashMode(t *testing.T) {
	s := newTestSanitizer(t, ModeHash)

	out, err := s.Survey(testResponse())
	require.NoError(t, err)

	assert.Equal(t, "[EMAIL:oconbkopcejlcfie]", out.Email)
	assert.Equal(t, "[REDACTED_FIRST_NAME]", out.FirstName)
	assert.Equal(t, "[REDACTED_LAST_NAME]", out.LastName)
	assert.Equal(t, "USE_gifcbkcapolbjhkn", out.UserID)
	assert.Equal(t, "Too expensive", out.Answers["Q#1"].Answer)
	assert.Equal(t, "Call me at [PHONE:djmeojgoiioodpfi] to discuss", out.Answers["Q#2"].Comment)
}

func TestSurveyRedactMode(t *testing.T) {
	s := newTestSanitizer(t, ModeRedact)

	out, err := s.Survey(testResponse())
	require.NoError(t, err)

	assert.Equal(t, "[REDACTED_EMAIL]", out.Email)
	assert.Equal(t, "Call me at [REDACTED_PHONE] to discuss", out.Answers["Q#2"].Comment)
}

func TestSurveyNoneModeKeepsIdentityFields(t *testing.T) {
	s := newTestSanitizer(t, ModeNone)

	out, err := s.Survey(testResponse())
	require.NoError(t, err)

	assert.Equal(t, "jane@example.com", out.Email)
	assert.Equal(t, "Jane", out.FirstName)
}

func TestSurveyDoesNotMutateInput(t *testing.T) {
	s := newTestSanitizer(t, ModeRedact)

	in := testResponse()
	_, err := s.Survey(in)
	require.NoError(t, err)

	assert.Equal(t, "jane@example.com", in.Email)
	assert.Equal(t, "Call me at 555-123-4567 to discuss", in.Answers["Q#2"].Comment)
}
