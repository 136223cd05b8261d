package pipeline

import (
	"sort"
	"strings"

	"github.com/glia-labs/convoscope/corpus"
)

// Retrieve executes a plan against a corpus snapshot. It is a pure function
// over its inputs: an empty corpus or a plan with zero matches is a success
// with an empty result, never an error.
//
// Matching: a record matches a search term when the term (or any of its
// expansions) appears as a substring of the record's pre-derived lowercase
// blob. Per-term counts are attributed before deduplication; the content-type
// and time filters apply afterward as hard AND conditions; surviving matches
// are deduplicated by record id (first-seen term attribution wins), sorted
// by timestamp descending with record id as the deterministic tie-break, and
// truncated to the plan's item cap.
func Retrieve(plan Plan, snap *corpus.Snapshot) Result {
	result := Result{
		PerTermCounts: make(map[string]int),
		PerTypeCounts: make(map[corpus.ContentType]int),
		TotalScanned:  snap.Len(),
	}
	for _, st := range plan.SearchTerms {
		result.PerTermCounts[st.Term] = 0
	}

	// Phase 1: term matching with provenance counts.
	var matches []Item
	for _, st := range plan.SearchTerms {
		needles := append([]string{st.Term}, st.Expansions...)
		for i := 0; i < snap.Len(); i++ {
			blob := snap.Blob(i)
			if !matchesAny(blob, needles) {
				continue
			}
			result.PerTermCounts[st.Term]++
			matches = append(matches, Item{Record: snap.Record(i), MatchedTerm: st.Term})
		}
	}

	// Phase 2: content-type and time filters.
	filtered := matches[:0]
	for _, m := range matches {
		if !plan.MatchesType(m.Record.Content.Type) {
			result.FilteredOut++
			continue
		}
		if plan.Window != nil && !plan.Window.Contains(m.Record.Timestamp) {
			result.FilteredOut++
			continue
		}
		filtered = append(filtered, m)
	}

	// Phase 3: deduplicate by record id, keeping first-seen attribution.
	seen := make(map[string]struct{}, len(filtered))
	unique := make([]Item, 0, len(filtered))
	for _, m := range filtered {
		if _, dup := seen[m.Record.ID]; dup {
			result.DuplicatesRemoved++
			continue
		}
		seen[m.Record.ID] = struct{}{}
		unique = append(unique, m)
	}

	// Phase 4: recency-biased deterministic ordering, then cap.
	sort.SliceStable(unique, func(i, j int) bool {
		ti, tj := unique[i].Record.Timestamp, unique[j].Record.Timestamp
		if ti.Equal(tj) {
			return unique[i].Record.ID < unique[j].Record.ID
		}
		return ti.After(tj)
	})
	if plan.MaxItems > 0 && len(unique) > plan.MaxItems {
		unique = unique[:plan.MaxItems]
	}

	result.Items = unique
	for _, item := range unique {
		result.PerTypeCounts[item.Record.Content.Type]++
	}
	return result
}

func matchesAny(blob string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(blob, n) {
			return true
		}
	}
	return false
}
