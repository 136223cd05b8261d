package sanitize

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/glia-labs/convoscope/corpus"
)

// Mode selects how detected PII is transformed.
type Mode string

const (
	// ModeHash replaces a match with a deterministic one-way hash wrapped in
	// a category tag, e.g. [EMAIL:3a5b...].
	ModeHash Mode = "hash"
	// ModeRedact replaces a match with a fixed category placeholder,
	// e.g. [REDACTED_EMAIL].
	ModeRedact Mode = "redact"
	// ModeRemove deletes the matched span and collapses doubled whitespace.
	ModeRemove Mode = "remove"
	// ModeNone passes text through untouched. Not recommended outside tests.
	ModeNone Mode = "none"
)

// ParseMode validates a configured mode string. An unrecognized mode is a
// configuration error, never silently defaulted.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeHash, ModeRedact, ModeRemove, ModeNone:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown sanitize mode %q (want hash, redact, remove, or none)", s)
	}
}

// Config is the sanitizer configuration. Every field is explicit: tests and
// callers exercise both branches of each toggle deterministically.
type Config struct {
	Mode                Mode
	PreserveIDs         bool
	EnableNameDetection bool
}

// Sanitizer applies the shared detection table to free text and
// pseudonymizes structured identifiers. Sanitizers are pure over their
// inputs and safe for unlimited concurrent use.
type Sanitizer struct {
	cfg    Config
	table  []Pattern
	logger *slog.Logger
}

// New validates the configuration and builds a sanitizer. Mode "none" is
// accepted but logged as a configuration warning.
func New(cfg Config, logger *slog.Logger) (*Sanitizer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := ParseMode(string(cfg.Mode)); err != nil {
		return nil, err
	}
	if cfg.Mode == ModeNone {
		logger.Warn("PII sanitization disabled (mode=none); raw text will be sent to the LLM service")
	}
	return &Sanitizer{
		cfg:    cfg,
		table:  DetectionTable(cfg.EnableNameDetection),
		logger: logger,
	}, nil
}

// Mode returns the active sanitize mode.
func (s *Sanitizer) Mode() Mode {
	return s.cfg.Mode
}

// Table returns the active detection table, for re-scan verification.
func (s *Sanitizer) Table() []Pattern {
	return s.table
}

// doubleSpace collapses whitespace runs left behind by removed spans.
var doubleSpace = regexp.MustCompile(`[ \t]{2,}`)

// Text sanitizes a free-text field. Identical input and configuration always
// produce byte-identical output.
func (s *Sanitizer) Text(text string) string {
	if text == "" || s.cfg.Mode == ModeNone {
		return text
	}

	result := text
	for _, p := range s.table {
		result = p.Regex.ReplaceAllStringFunc(result, func(match string) string {
			switch s.cfg.Mode {
			case ModeHash:
				return fmt.Sprintf("[%s:%s]", p.Category, hashValue(match, ""))
			case ModeRemove:
				return ""
			default:
				return fmt.Sprintf("[REDACTED_%s]", p.Category)
			}
		})
	}

	if s.cfg.Mode == ModeRemove {
		result = strings.TrimSpace(doubleSpace.ReplaceAllString(result, " "))
	}
	return result
}

// PseudonymizeID replaces a structured identifier with a stable token
// derived from a one-way hash, e.g. CUS_3a5b9c... for idType "customer".
// There is no lookup table: only recomputing the hash from the same raw id
// reproduces the token. Identifier pseudonymization applies regardless of
// the free-text mode unless PreserveIDs is set.
func (s *Sanitizer) PseudonymizeID(id, idType string) string {
	if id == "" || s.cfg.PreserveIDs {
		return id
	}
	prefix := strings.ToUpper(idType)
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	return fmt.Sprintf("%s_%s", prefix, hashValue(id, "pii_salt_"+idType))
}

// Record returns a sanitized copy of a conversation record. The input is
// never mutated. A panicking matcher is reported as an error so one bad item
// cannot abort a whole pipeline run.
func (s *Sanitizer) Record(rec corpus.Record) (out corpus.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sanitize record %s: %v", rec.ID, r)
		}
	}()

	out = rec
	out.CustomerID = s.PseudonymizeID(rec.CustomerID, "customer")
	out.ConversationID = s.PseudonymizeID(rec.ConversationID, "conversation")
	out.Content.Text = s.Text(rec.Content.Text)
	out.Content.Subject = s.Text(rec.Content.Subject)
	out.Content.Body = s.Text(rec.Content.Body)
	return out, nil
}

// hashValue computes a 16-character token from SHA-256 over the value,
// optionally salted. Deterministic by construction. The token is the hex
// digest with digits remapped into g..p: an all-letter token cannot satisfy
// any numeric detection pattern, so emitted tags and pseudonyms re-scan
// clean and re-sanitizing them is a no-op.
func hashValue(value, salt string) string {
	if salt != "" {
		value = value + ":" + salt
	}
	sum := sha256.Sum256([]byte(value))
	token := []byte(hex.EncodeToString(sum[:])[:16])
	for i, c := range token {
		if c >= '0' && c <= '9' {
			token[i] = 'g' + (c - '0')
		}
	}
	return string(token)
}
