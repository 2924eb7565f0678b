// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package listing

import (
	"regexp"
	"time"

	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// submittedPattern matches "(submitted 3 Jul 2024)" in a comment line.
var submittedPattern = regexp.MustCompile(`\(submitted\s+(\d{1,2}\s+[A-Za-z]{3}\s+\d{4})\s*\)`)

// submittedDate extracts the submission day from a comment region.
func submittedDate(comment string) (string, bool) {
	m := submittedPattern.FindStringSubmatch(comment)
	if m == nil {
		return "", false
	}
	t, err := time.Parse("2 Jan 2006", collapse(m[1]))
	if err != nil {
		return "", false
	}
	return t.Format(types.DateLayout), true
}
