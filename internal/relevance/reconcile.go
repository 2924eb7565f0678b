// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package relevance

import (
	"strings"

	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// ReconcileStats describes how a batch of judge entries mapped onto the
// authoritative records.
type ReconcileStats struct {
	// Matched counts entries whose ID named a record in the batch.
	Matched int
	// Unknown counts entries whose ID named no record (hallucinations).
	Unknown int
	// Repeated counts later entries for an already-matched ID.
	Repeated int
	// Kept counts records annotated at or above the threshold.
	Kept int
}

// Reconcile attaches judge verdicts to the records they name and returns
// the records scoring at least threshold, in record order. Entries naming
// an ID outside records are ignored, and only the first entry per ID
// counts. Records are copied; the input slice is not modified.
func Reconcile(records []types.Paper, entries []Entry, threshold int) ([]types.Paper, ReconcileStats) {
	var stats ReconcileStats

	index := make(map[string]int, len(records))
	for i, p := range records {
		if _, dup := index[p.ID]; !dup {
			index[p.ID] = i
		}
	}

	verdicts := make(map[int]*types.Relevance, len(entries))
	for _, e := range entries {
		i, ok := index[normalizeID(e.ID)]
		if !ok {
			stats.Unknown++
			continue
		}
		if _, seen := verdicts[i]; seen {
			stats.Repeated++
			continue
		}
		stats.Matched++
		verdicts[i] = &types.Relevance{Score: CoerceScore(e.Score), Reason: e.Reason}
	}

	var kept []types.Paper
	for i, p := range records {
		v, ok := verdicts[i]
		if !ok || v.Score < threshold {
			continue
		}
		p.Relevance = v
		kept = append(kept, p)
	}
	stats.Kept = len(kept)
	return kept, stats
}

// normalizeID strips whitespace and an "arXiv:" prefix a model may echo.
func normalizeID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) > 6 && strings.EqualFold(id[:6], "arxiv:") {
		id = strings.TrimSpace(id[6:])
	}
	return id
}
