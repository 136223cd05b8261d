package corpus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const recordJSON = `{"id": "item-1", "conversationId": "conv-1", "customerId": "cust-1", "timestamp": "2025-05-01T10:00:00Z", "content": {"type": "CHAT_MESSAGE", "content": "hello"}}`

func TestDecodeRecordsJSONL(t *testing.T) {
	input := recordJSON + "\n" +
		`{"id": "item-2", "conversationId": "conv-1", "customerId": "cust-1", "timestamp": "2025-05-01T11:00:00Z", "content": {"type": "CHAT_MESSAGE", "content": "bye"}}` + "\n"

	records, err := DecodeRecords(strings.NewReader(input), nil)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "item-1", records[0].ID)
	assert.Equal(t, "item-2", records[1].ID)
}

func TestDecodeRecordsJSONArray(t *testing.T) {
	input := "[\n" + recordJSON + "\n]"

	records, err := DecodeRecords(strings.NewReader(input), nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "item-1", records[0].ID)
}

func TestDecodeRecordsSkipsMalformedLines(t *testing.T) {
	input := recordJSON + "\n" +
		"this is not json\n" +
		`{"id": "item-3", "content": {"type": "EMAIL", "subject": "s", "body": "b"}}` + "\n"

	records, err := DecodeRecords(strings.NewReader(input), nil)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "item-1", records[0].ID)
	assert.Equal(t, "item-3", records[1].ID)
}

func TestDecodeRecordsEmptyInput(t *testing.T) {
	records, err := DecodeRecords(strings.NewReader(""), nil)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFileLoaderGlob(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "one.jsonl"), []byte(recordJSON+"\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "two.jsonl"), []byte(
		`{"id": "item-2", "timestamp": "2025-05-01T09:00:00Z", "content": {"type": "CHAT_MESSAGE", "content": "earlier"}}`+"\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("not data"), 0644))

	loader := &FileLoader{Glob: filepath.Join(dir, "*.jsonl")}
	snap, err := loader.Load()
	require.NoError(t, err)

	require.Equal(t, 2, snap.Len())
	// Snapshot ordering is by timestamp regardless of file order.
	assert.Equal(t, "item-2", snap.Record(0).ID)
	assert.Equal(t, "item-1", snap.Record(1).ID)
}

func TestFileLoaderNoMatches(t *testing.T) {
	loader := &FileLoader{Glob: filepath.Join(t.TempDir(), "*.jsonl")}
	_, err := loader.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no corpus files match")
}
