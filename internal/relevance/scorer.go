// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package relevance ranks candidate papers against a free-text interest
// statement with a language-model judge. Papers are sent in ordered
// batches; each batch's reply is reconciled onto the batch by ID, so a
// judge that skips papers, reorders them, or invents IDs cannot attach a
// score to the wrong record.
package relevance

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// DefaultBatchSize keeps a batch of titles and abstracts well inside the
// judge's context window.
const DefaultBatchSize = 16

// Scorer sends batches to a Judge one at a time, in order.
type Scorer struct {
	Judge     Judge
	BatchSize int
	Log       *zap.Logger
}

// BatchError records a judge call that failed. Its papers were excluded.
type BatchError struct {
	// Index is the zero-based batch number.
	Index int
	// Size is the number of papers in the batch.
	Size int
	Err  error
}

func (e BatchError) Error() string {
	return fmt.Sprintf("batch %d (%d papers): %v", e.Index, e.Size, e.Err)
}

func (e BatchError) Unwrap() error { return e.Err }

// Result holds the annotated papers and per-run scoring statistics.
type Result struct {
	// Papers are the records scoring at or above the threshold, in input order.
	Papers []types.Paper

	Batches int
	Failed  []BatchError

	// Unknown counts judge entries naming an ID outside their batch.
	Unknown int
}

// HasFailures reports whether any batch was dropped.
func (r Result) HasFailures() bool {
	return len(r.Failed) > 0
}

// Score ranks records against interest and keeps those scoring at least
// threshold. A failed judge call drops only its own batch; failures are
// returned in Result.Failed and logged once at the end. An empty outcome is
// a *types.NoResultsError. Score stops early only when ctx is done.
func (s *Scorer) Score(ctx context.Context, records []types.Paper, interest string, threshold int) (Result, error) {
	log := s.logger()
	var res Result

	for i, batch := range Batches(records, s.batchSize()) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Batches++

		entries, err := s.Judge.Rank(ctx, NewRequest(interest, batch))
		if err != nil {
			res.Failed = append(res.Failed, BatchError{Index: i, Size: len(batch), Err: err})
			log.Debug("judge batch failed", zap.Int("batch", i), zap.Error(err))
			continue
		}

		kept, stats := Reconcile(batch, entries, threshold)
		res.Papers = append(res.Papers, kept...)
		res.Unknown += stats.Unknown
		if stats.Unknown > 0 {
			log.Debug("ignored judge entries with unknown ids", zap.Int("batch", i), zap.Int("entries", stats.Unknown))
		}
	}

	if res.HasFailures() {
		dropped := 0
		for _, f := range res.Failed {
			dropped += f.Size
		}
		log.Warn("judge batches failed; their papers were excluded",
			zap.Int("failed_batches", len(res.Failed)),
			zap.Int("batches", res.Batches),
			zap.Int("papers_excluded", dropped),
			zap.Error(res.Failed[0].Err))
	}

	if len(res.Papers) == 0 {
		return res, &types.NoResultsError{
			Stage:          "score",
			Detail:         fmt.Sprintf("no paper among %d scored %d or higher", len(records), threshold),
			DroppedBatches: len(res.Failed),
		}
	}
	return res, nil
}

// Batches partitions records into consecutive slices of at most size.
func Batches(records []types.Paper, size int) [][]types.Paper {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][]types.Paper
	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))
		out = append(out, records[start:end])
	}
	return out
}

func (s *Scorer) batchSize() int {
	if s.BatchSize > 0 {
		return s.BatchSize
	}
	return DefaultBatchSize
}

func (s *Scorer) logger() *zap.Logger {
	if s.Log != nil {
		return s.Log
	}
	return zap.NewNop()
}
