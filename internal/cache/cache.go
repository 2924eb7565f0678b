// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache stores fetched listings on disk, one JSONL file per
// (subject, calendar day, window kind). An entry is written once, on the
// first fetch of the day, and read verbatim for the rest of that day. There
// is no eviction; a new day simply produces a new key.
package cache

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// FetchFunc produces the records for a cache miss.
type FetchFunc func(ctx context.Context) ([]types.Paper, error)

// Store is a directory of cached listings.
type Store struct {
	Dir string

	// Now returns the current time; the cache key uses its day in the
	// reference timezone. Defaults to time.Now.
	Now func() time.Time

	Log *zap.Logger
}

// Path returns the file that holds the entry for subject and kind on the
// current day, e.g. data/cs_2024-07-10_pastweek.jsonl.
func (s *Store) Path(subject string, kind types.WindowKind) string {
	name := fmt.Sprintf("%s_%s_%s.jsonl", subject, types.DayString(s.now()), kind)
	return filepath.Join(s.Dir, name)
}

// LoadOrFetch returns today's cached records for subject and kind. On a
// miss it calls fetch, persists the full result, and returns it. Cache I/O
// and fetch errors are returned unchanged in kind; nothing is persisted
// when fetch fails.
func (s *Store) LoadOrFetch(ctx context.Context, subject string, kind types.WindowKind, fetch FetchFunc) ([]types.Paper, error) {
	path := s.Path(subject, kind)
	log := s.logger().With(zap.String("subject", subject), zap.String("kind", string(kind)), zap.String("path", path))

	if papers, err := readEntry(path); err == nil {
		log.Debug("cache hit", zap.Int("papers", len(papers)))
		return papers, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	// Serialize the miss path across processes sharing the directory.
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("locking cache entry %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("locking cache entry %s: not acquired", path)
	}
	defer lock.Unlock()

	return s.fill(ctx, path, fetch, log)
}

// fill is the miss path, run with the entry lock held. Another process may
// have written the entry while the lock was contended; a readable entry is
// returned as is and an unreadable one is reported, never overwritten.
func (s *Store) fill(ctx context.Context, path string, fetch FetchFunc, log *zap.Logger) ([]types.Paper, error) {
	if papers, err := readEntry(path); err == nil {
		log.Debug("cache hit after lock", zap.Int("papers", len(papers)))
		return papers, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	log.Info("cache miss, fetching")
	papers, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	if err := writeEntry(path, papers); err != nil {
		return nil, err
	}
	log.Info("cache entry written", zap.Int("papers", len(papers)))
	return papers, nil
}

// readEntry decodes one JSON object per line. A missing file yields an
// error wrapping fs.ErrNotExist.
func readEntry(path string) ([]types.Paper, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	papers := []types.Paper{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var p types.Paper
		if err := json.Unmarshal(scanner.Bytes(), &p); err != nil {
			return nil, fmt.Errorf("decoding %s line %d: %w", path, line, err)
		}
		papers = append(papers, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return papers, nil
}

// writeEntry writes papers to a temp file in the same directory and renames
// it into place, so readers never observe a partial entry.
func writeEntry(path string, papers []types.Paper) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".cache-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	for _, p := range papers {
		// Annotations belong to a run, not to the listing.
		p.Relevance = nil
		if err := enc.Encode(p); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("encoding paper %s: %w", p.ID, err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Store) logger() *zap.Logger {
	if s.Log != nil {
		return s.Log
	}
	return zap.NewNop()
}
