package llm

import (
	"encoding/json"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantKey string // if non-empty, check this key exists in parsed JSON
		wantErr bool
	}{
		{
			name:    "plain JSON",
			input:   `{"search_terms": ["refund"]}`,
			wantKey: "search_terms",
		},
		{
			name:    "markdown code block",
			input:   "```json\n{\"search_terms\": [\"refund\"]}\n```",
			wantKey: "search_terms",
		},
		{
			name:    "markdown block with trailing text",
			input:   "```json\n{\"search_terms\": [\"refund\"]}\n```\n\n**Rationale follows here**",
			wantKey: "search_terms",
		},
		{
			name:    "prose before the object",
			input:   "Here is the plan you asked for:\n{\"search_terms\": [\"refund\"]}",
			wantKey: "search_terms",
		},
		{
			name:    "JS comments in values",
			input:   "```json\n{\n  \"search_terms\": [\n    \"refund\",          // direct term\n    \"money back\"  // common rewording\n  ]\n}\n```",
			wantKey: "search_terms",
		},
		{
			name:    "JS comments and trailing commas",
			input:   "```json\n{\n  \"search_terms\": [\n    \"refund\",  // first\n    \"return\",  // second\n  ]\n}\n```",
			wantKey: "search_terms",
		},
		{
			name:    "URL in string not stripped",
			input:   `{"url": "http://example.com/path"}`,
			wantKey: "url",
		},
		{
			name:    "URL in string with comment after",
			input:   "{\"url\": \"http://example.com/path\"} // trailing",
			wantKey: "url",
		},
		{
			name:    "empty input",
			input:   "",
			wantErr: true,
		},
		{
			name:    "no JSON at all",
			input:   "I am unable to produce a plan for that question.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ExtractJSON(tt.input)

			if tt.wantErr {
				if result != "" {
					t.Errorf("expected empty result, got: %s", result)
				}
				return
			}

			if result == "" {
				t.Fatal("expected JSON result, got empty string")
			}

			// Verify it's valid JSON
			var parsed map[string]any
			if err := json.Unmarshal([]byte(result), &parsed); err != nil {
				t.Fatalf("result is not valid JSON: %v\nresult: %s", err, result)
			}

			if tt.wantKey != "" {
				if _, ok := parsed[tt.wantKey]; !ok {
					t.Errorf("expected key %q in parsed JSON, got: %v", tt.wantKey, parsed)
				}
			}
		})
	}
}
