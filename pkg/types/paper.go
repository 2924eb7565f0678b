// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the arxiv-digest pipeline.
// Paper is the unit of work from listing fetch through relevance scoring;
// the error types in errors.go form the pipeline's failure taxonomy.
package types

import (
	"fmt"
	"time"
)

// DateLayout is the ISO calendar-day form used for Paper.Submitted and
// cache file names.
const DateLayout = "2006-01-02"

// WindowKind selects which listing page a fetch targets.
type WindowKind string

const (
	// WindowSingleDay is today's "new" listing.
	WindowSingleDay WindowKind = "new"
	// WindowPastWeek is the bulk "pastweek" listing.
	WindowPastWeek WindowKind = "pastweek"
)

// WindowKindFor returns the listing window needed to cover lookbackDays.
func WindowKindFor(lookbackDays int) WindowKind {
	if lookbackDays <= 1 {
		return WindowSingleDay
	}
	return WindowPastWeek
}

// Valid reports whether k is a known window kind.
func (k WindowKind) Valid() bool {
	return k == WindowSingleDay || k == WindowPastWeek
}

// Paper is a normalized listing record. ID is stable within a subject area
// and day; a given ID always denotes the same paper no matter how often it
// is observed. The JSON field names are the on-disk cache format.
type Paper struct {
	// ID is the archive identifier (e.g. "2407.01234").
	ID string `json:"id" yaml:"id"`

	// MainPage is the canonical abstract page URL.
	MainPage string `json:"main_page" yaml:"main_page"`

	// PDF is the PDF URL derived from MainPage.
	PDF string `json:"pdf" yaml:"pdf"`

	Title   string `json:"title" yaml:"title"`
	Authors string `json:"authors" yaml:"authors"`

	// Subjects is the free-text category list, e.g.
	// "Machine Learning (cs.LG); Artificial Intelligence (cs.AI)".
	Subjects string `json:"subjects" yaml:"subjects"`

	Abstract string `json:"abstract" yaml:"abstract"`

	// Submitted is the submission day in DateLayout form.
	Submitted string `json:"submitted" yaml:"submitted"`

	// Relevance is set only on in-memory copies after scoring; it is never
	// written to the cache.
	Relevance *Relevance `json:"relevance,omitempty" yaml:"relevance,omitempty"`
}

// SubmittedDate parses Submitted in loc.
func (p Paper) SubmittedDate(loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, p.Submitted, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("paper %s: submitted date %q: %w", p.ID, p.Submitted, err)
	}
	return t, nil
}

// Relevance is the judge's annotation for one paper.
type Relevance struct {
	Score  int    `json:"score" yaml:"score"`
	Reason string `json:"reason" yaml:"reason"`
}
