// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package papers

import (
	"strings"

	"golang.org/x/text/cases"
)

// normalize case-folds a category name and collapses its whitespace.
func normalize(name string) string {
	return cases.Fold().String(strings.Join(strings.Fields(name), " "))
}

// ParseSubjects splits a subjects field such as
// "Machine Learning (cs.LG); Artificial Intelligence (cs.AI)" into its
// category names, dropping the parenthesized codes.
func ParseSubjects(subjects string) []string {
	var names []string
	for _, part := range strings.Split(subjects, ";") {
		if idx := strings.LastIndex(part, " ("); idx >= 0 && strings.HasSuffix(strings.TrimSpace(part), ")") {
			part = part[:idx]
		}
		part = strings.Join(strings.Fields(part), " ")
		if part != "" {
			names = append(names, part)
		}
	}
	return names
}
