// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs one digest: resolve the topic, load the listing
// through the cache, build the candidate set, and score it. Every run is
// parameterized by an explicit Options value; nothing is read from
// process-wide state.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/arxiv-digest/internal/cache"
	"github.com/pdiddy/arxiv-digest/internal/papers"
	"github.com/pdiddy/arxiv-digest/internal/relevance"
	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// Options parameterizes a run.
type Options struct {
	// Topic is the subject-area name, e.g. "Computer Science".
	Topic string

	// Categories narrows the set when CategoryFilter is on.
	Categories     []string
	CategoryFilter bool

	// LookbackDays selects the listing and the window; values below 1 are
	// treated as 1.
	LookbackDays int

	// Interest is sent to the judge. When empty, scoring is skipped and the
	// built set is returned unannotated.
	Interest  string
	Threshold int
	BatchSize int

	// Limit truncates the built set before scoring when positive.
	Limit int
}

// OptionsFromConfig maps the loaded configuration onto run options.
func OptionsFromConfig(cfg types.Config) Options {
	return Options{
		Topic:          cfg.Topic,
		Categories:     cfg.Categories,
		CategoryFilter: cfg.CategoryFilter,
		LookbackDays:   cfg.LookbackDays,
		Interest:       cfg.Interest,
		Threshold:      cfg.Threshold,
		BatchSize:      cfg.BatchSize,
		Limit:          cfg.Limit,
	}
}

// Source fetches one listing page; *listing.Fetcher implements it.
type Source interface {
	Fetch(ctx context.Context, subject string, kind types.WindowKind) ([]types.Paper, error)
}

// Runner wires the stages together.
type Runner struct {
	Source Source
	Cache  *cache.Store

	// Judge may be nil when runs never carry an interest.
	Judge relevance.Judge

	// Now supplies the processing time. Defaults to time.Now.
	Now func() time.Time

	Log *zap.Logger
}

// Result is the outcome of a run.
type Result struct {
	Topic papers.Topic
	Kind  types.WindowKind

	// Papers is the final set: annotated and thresholded when Scored,
	// otherwise the built set after Limit.
	Papers []types.Paper

	Build  papers.BuildStats
	Scored bool
	Score  relevance.Result
}

// Run executes the pipeline for opts. Errors keep their taxonomy type
// (*types.InvalidTopicError, *types.FetchError, *types.ParseError,
// *types.InvalidCategoryError, *types.NoResultsError) and can be matched
// with errors.As. The partial Result is returned alongside a scoring error
// so callers can report dropped batches.
func (r *Runner) Run(ctx context.Context, opts Options) (Result, error) {
	log := r.logger()

	topic, err := papers.ResolveTopic(opts.Topic)
	if err != nil {
		return Result{}, err
	}
	days := max(opts.LookbackDays, 1)
	res := Result{Topic: topic, Kind: types.WindowKindFor(days)}
	log = log.With(zap.String("topic", topic.Name), zap.String("subject", topic.Code))

	raw, err := r.Listing(ctx, topic.Code, res.Kind)
	if err != nil {
		return res, err
	}

	var categories []string
	if opts.CategoryFilter {
		categories = opts.Categories
	}
	set, stats, err := papers.Build(raw, papers.BuildOptions{
		Topic:      topic,
		WindowDays: days,
		Categories: categories,
		Today:      r.now(),
	})
	res.Build = stats
	if err != nil {
		return res, err
	}
	log.Info("candidate set built",
		zap.Int("raw", stats.Raw),
		zap.Int("unique", stats.Unique),
		zap.Int("in_window", stats.InWindow),
		zap.Int("in_categories", stats.InCategories))

	if opts.Limit > 0 && len(set) > opts.Limit {
		set = set[:opts.Limit]
	}

	if opts.Interest == "" {
		log.Info("no interest configured, skipping relevance scoring")
		res.Papers = set
		return res, nil
	}
	if r.Judge == nil {
		return res, fmt.Errorf("interest is set but no judge is configured")
	}

	scorer := &relevance.Scorer{Judge: r.Judge, BatchSize: opts.BatchSize, Log: log}
	scored, err := scorer.Score(ctx, set, opts.Interest, opts.Threshold)
	res.Scored = true
	res.Score = scored
	res.Papers = scored.Papers
	if err != nil {
		return res, err
	}
	log.Info("relevance scoring complete",
		zap.Int("candidates", len(set)),
		zap.Int("kept", len(scored.Papers)),
		zap.Int("batches", scored.Batches))
	return res, nil
}

// Listing returns today's records for subject and kind, fetching on a
// cache miss. Without a cache every call fetches.
func (r *Runner) Listing(ctx context.Context, subject string, kind types.WindowKind) ([]types.Paper, error) {
	fetch := func(ctx context.Context) ([]types.Paper, error) {
		return r.Source.Fetch(ctx, subject, kind)
	}
	if r.Cache == nil {
		return fetch(ctx)
	}
	return r.Cache.LoadOrFetch(ctx, subject, kind, fetch)
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) logger() *zap.Logger {
	if r.Log != nil {
		return r.Log
	}
	return zap.NewNop()
}
