package corpus

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// ObjectLoader fetches the corpus export from a NATS JetStream object store.
// The ingestion collaborator publishes the full conversation_items export as
// a single object; each publish is an atomic replacement.
type ObjectLoader struct {
	// URL is the NATS server URL.
	URL string
	// Bucket is the object store bucket name, e.g. "CONVERSATIONS".
	Bucket string
	// Object is the object name, e.g. "conversation_items.jsonl".
	Object string

	Logger *slog.Logger
}

// Load connects, fetches the object, and builds a snapshot.
func (l *ObjectLoader) Load(ctx context.Context) (*Snapshot, error) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(l.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	defer conn.Close()

	js, err := jetstream.New(conn)
	if err != nil {
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	store, err := js.ObjectStore(ctx, l.Bucket)
	if err != nil {
		return nil, fmt.Errorf("open object store %s: %w", l.Bucket, err)
	}

	data, err := store.GetBytes(ctx, l.Object)
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", l.Object, err)
	}

	records, err := DecodeRecords(bytes.NewReader(data), logger)
	if err != nil {
		return nil, fmt.Errorf("decode object %s: %w", l.Object, err)
	}

	logger.Info("corpus loaded from object store",
		"bucket", l.Bucket,
		"object", l.Object,
		"records", len(records))

	return BuildSnapshot(records), nil
}
