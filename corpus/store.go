package corpus

import (
	"log/slog"
	"sync/atomic"
)

// Store publishes the current corpus snapshot to concurrent readers. Loaders
// and the watcher replace the whole snapshot atomically; readers always see
// either the old or the new snapshot, never a partial update.
type Store struct {
	snap   atomic.Pointer[Snapshot]
	logger *slog.Logger
}

// NewStore creates a store holding an empty snapshot.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	st := &Store{logger: logger}
	st.snap.Store(EmptySnapshot())
	return st
}

// Current returns the current snapshot. Never nil.
func (st *Store) Current() *Snapshot {
	return st.snap.Load()
}

// Swap publishes a new snapshot.
func (st *Store) Swap(s *Snapshot) {
	if s == nil {
		return
	}
	old := st.snap.Swap(s)
	st.logger.Info("corpus snapshot swapped",
		"records", s.Len(),
		"previous_records", old.Len())
}

// Available reports whether any conversation data is loaded.
func (st *Store) Available() bool {
	return st.Current().Len() > 0
}
