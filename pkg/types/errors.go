// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// FetchError reports a transport failure, or a non-200 response, while
// retrieving a listing or metadata page. It is fatal and never retried.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports a listing document that does not have the expected
// shape. It usually means the upstream page format changed.
type ParseError struct {
	URL    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %s", e.URL, e.Reason)
}

// InvalidTopicError reports a subject area that cannot be resolved to an
// archive code.
type InvalidTopicError struct {
	Topic  string
	Reason string
}

func (e *InvalidTopicError) Error() string {
	return fmt.Sprintf("invalid topic %q: %s", e.Topic, e.Reason)
}

// InvalidCategoryError names every requested category that is not in the
// whitelist of the selected topic.
type InvalidCategoryError struct {
	Topic   string
	Invalid []string
}

func (e *InvalidCategoryError) Error() string {
	quoted := make([]string, len(e.Invalid))
	for i, c := range e.Invalid {
		quoted[i] = fmt.Sprintf("%q", c)
	}
	return fmt.Sprintf("categories [%s] not valid for topic %q", strings.Join(quoted, ", "), e.Topic)
}

// NoResultsError reports that a pipeline stage reduced the candidate set to
// nothing. Stage is "build", "score", or "history".
type NoResultsError struct {
	Stage  string
	Detail string

	// DroppedBatches counts judge batches that failed during scoring.
	DroppedBatches int
}

func (e *NoResultsError) Error() string {
	msg := fmt.Sprintf("no papers left after %s", e.Stage)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.DroppedBatches > 0 {
		msg += fmt.Sprintf(" (%d judge batch(es) failed)", e.DroppedBatches)
	}
	return msg
}
