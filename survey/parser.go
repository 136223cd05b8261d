package survey

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"
)

// Column names in Survicate exports.
const (
	colResponseID   = "Response uuid"
	colRespondentID = "Respondent uuid"
	colDateTime     = "Date & Time (UTC)"
)

// metadataColumns are carried through as-is when present.
var metadataColumns = []string{"Device", "Platform", "Page", "braze_id", "sso_id"}

// questionKeyPattern extracts the "Q#<n>" key from a question column header.
var questionKeyPattern = regexp.MustCompile(`Q#\d+`)

// Parser reads Survicate CSV survey exports.
type Parser struct {
	Logger *slog.Logger
}

// ParseFile parses the CSV export at path.
func (p *Parser) ParseFile(path string) ([]Response, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open survey CSV: %w", err)
	}
	defer f.Close()
	return p.Parse(f)
}

// Parse parses a CSV export. Rows missing a response id or timestamp are
// skipped with a warning rather than failing the export.
func (p *Parser) Parse(r io.Reader) ([]Response, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read survey CSV header: %w", err)
	}

	var responses []Response
	rowNum := 1
	for {
		rowNum++
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read survey CSV row %d: %w", rowNum, err)
		}

		fields := rowMap(header, row)
		resp, ok := parseRow(fields)
		if !ok {
			logger.Warn("skipping survey row without response id or timestamp", "row", rowNum)
			continue
		}
		responses = append(responses, resp)
	}

	logger.Info("survey responses parsed", "count", len(responses))
	return responses, nil
}

func rowMap(header, row []string) map[string]string {
	m := make(map[string]string, len(header))
	for i, col := range header {
		if i < len(row) {
			m[col] = strings.TrimSpace(row[i])
		}
	}
	return m
}

func parseRow(fields map[string]string) (Response, bool) {
	resp := Response{
		ResponseID:   fields[colResponseID],
		RespondentID: fields[colRespondentID],
		Email:        fields["email"],
		FirstName:    fields["first_name"],
		LastName:     fields["last_name"],
		UserID:       fields["user_id"],
		Answers:      make(map[string]Answer),
	}
	if resp.ResponseID == "" || fields[colDateTime] == "" {
		return Response{}, false
	}
	resp.SubmittedAt = parseSubmittedAt(fields[colDateTime])

	for _, col := range metadataColumns {
		if v := fields[col]; v != "" {
			if resp.Metadata == nil {
				resp.Metadata = make(map[string]string)
			}
			resp.Metadata[col] = v
		}
	}

	for col, value := range fields {
		key := questionKeyPattern.FindString(col)
		if key == "" || value == "" {
			continue
		}
		ans := resp.Answers[key]
		if isCommentColumn(col) {
			ans.Comment = value
		} else {
			ans.Answer = value
		}
		resp.Answers[key] = ans
	}

	return resp, true
}

func isCommentColumn(col string) bool {
	return strings.Contains(strings.ToLower(col), "comment")
}

func parseSubmittedAt(s string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339, "01/02/2006 15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
