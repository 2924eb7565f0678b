// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package papers turns a raw listing into the candidate set for scoring:
// duplicates removed, a look-back window applied, and an optional category
// filter checked against a per-topic whitelist.
package papers

import (
	"fmt"
	"time"

	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// BuildOptions parameterizes Build.
type BuildOptions struct {
	// Topic supplies the category whitelist.
	Topic Topic

	// WindowDays is the look-back window. Values of 1 or less apply no
	// date filter, since the single-day listing already reflects today.
	WindowDays int

	// Categories, when non-empty, keeps only papers listed under at least
	// one of them.
	Categories []string

	// Today is the processing time; the cutoff is its reference-timezone
	// day minus WindowDays.
	Today time.Time
}

// BuildStats counts papers remaining after each step.
type BuildStats struct {
	Raw          int
	Unique       int
	InWindow     int
	InCategories int
}

// Build applies dedup, the time window, and the category filter in that
// order. It never returns an empty set: that case is a
// *types.NoResultsError. Invalid categories fail before any filtering with
// *types.InvalidCategoryError.
func Build(raw []types.Paper, opts BuildOptions) ([]types.Paper, BuildStats, error) {
	stats := BuildStats{Raw: len(raw)}

	if len(opts.Categories) > 0 {
		if err := ValidateCategories(opts.Topic, opts.Categories); err != nil {
			return nil, stats, err
		}
	}

	set := Dedup(raw)
	stats.Unique = len(set)

	if opts.WindowDays > 1 {
		set = FilterWindow(set, Cutoff(opts.Today, opts.WindowDays))
	}
	stats.InWindow = len(set)

	if len(opts.Categories) > 0 {
		set = FilterCategories(set, opts.Categories)
	}
	stats.InCategories = len(set)

	if len(set) == 0 {
		return nil, stats, &types.NoResultsError{
			Stage:  "build",
			Detail: fmt.Sprintf("%d fetched, %d unique, %d in window, %d in categories", stats.Raw, stats.Unique, stats.InWindow, stats.InCategories),
		}
	}
	return set, stats, nil
}

// Dedup keeps the first occurrence of each ID, preserving input order.
func Dedup(raw []types.Paper) []types.Paper {
	seen := make(map[string]bool, len(raw))
	out := make([]types.Paper, 0, len(raw))
	for _, p := range raw {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out
}

// Cutoff returns the first calendar day inside a window of windowDays
// ending at today, in the reference timezone.
func Cutoff(today time.Time, windowDays int) time.Time {
	return types.Day(today).AddDate(0, 0, -windowDays)
}

// FilterWindow keeps papers submitted on or after cutoff. Papers whose
// submission date does not parse cannot be placed in the window and are
// dropped.
func FilterWindow(set []types.Paper, cutoff time.Time) []types.Paper {
	loc := types.ReferenceLocation()
	out := make([]types.Paper, 0, len(set))
	for _, p := range set {
		d, err := p.SubmittedDate(loc)
		if err != nil {
			continue
		}
		if !d.Before(cutoff) {
			out = append(out, p)
		}
	}
	return out
}

// FilterCategories keeps papers whose subjects intersect categories.
// Names are compared case-insensitively.
func FilterCategories(set []types.Paper, categories []string) []types.Paper {
	want := make(map[string]bool, len(categories))
	for _, c := range categories {
		want[normalize(c)] = true
	}

	out := make([]types.Paper, 0, len(set))
	for _, p := range set {
		for _, s := range ParseSubjects(p.Subjects) {
			if want[normalize(s)] {
				out = append(out, p)
				break
			}
		}
	}
	return out
}
