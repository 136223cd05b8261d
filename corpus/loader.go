package corpus

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// FileLoader reads conversation records from local export files. Files may be
// a single JSON array or JSONL (one record per line); both formats appear in
// conversation_items exports.
type FileLoader struct {
	// Glob selects the files to load, e.g. "data/**/*.jsonl".
	Glob string

	Logger *slog.Logger
}

// Load reads every file matching the glob and builds a snapshot. Individual
// malformed lines are skipped with a warning; a missing file set is an error.
func (l *FileLoader) Load() (*Snapshot, error) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	paths, err := doublestar.FilepathGlob(l.Glob)
	if err != nil {
		return nil, fmt.Errorf("resolve corpus glob %q: %w", l.Glob, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no corpus files match %q", l.Glob)
	}
	sort.Strings(paths)

	var records []Record
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open corpus file: %w", err)
		}
		recs, err := DecodeRecords(f, logger)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		logger.Info("corpus file loaded", "path", path, "records", len(recs))
		records = append(records, recs...)
	}

	return BuildSnapshot(records), nil
}

// DecodeRecords decodes a JSON array or JSONL stream of records.
func DecodeRecords(r io.Reader, logger *slog.Logger) ([]Record, error) {
	if logger == nil {
		logger = slog.Default()
	}

	br := bufio.NewReader(r)
	first, err := firstNonSpace(br)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if first == '[' {
		var records []Record
		dec := json.NewDecoder(br)
		if err := dec.Decode(&records); err != nil {
			return nil, fmt.Errorf("decode JSON array: %w", err)
		}
		return records, nil
	}

	// JSONL: decode line by line so one bad line doesn't drop the file.
	var records []Record
	scanner := bufio.NewScanner(br)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			logger.Warn("skipping malformed corpus line", "line", line, "error", err)
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan JSONL: %w", err)
	}
	return records, nil
}

// firstNonSpace peeks past leading whitespace without consuming input.
func firstNonSpace(br *bufio.Reader) (byte, error) {
	for n := 1; ; n++ {
		peeked, err := br.Peek(n)
		if err != nil {
			return 0, err
		}
		c := peeked[n-1]
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			return c, nil
		}
	}
}
