// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"time"
	_ "time/tzdata"
)

// referenceZone is the timezone the archive publishes listings in. Calendar
// days for cache keys, default submission dates, and window cutoffs are all
// taken in this zone.
const referenceZone = "America/New_York"

var referenceLocation = loadReference()

func loadReference() *time.Location {
	loc, err := time.LoadLocation(referenceZone)
	if err != nil {
		// tzdata is embedded, so this only happens with a corrupt build.
		return time.UTC
	}
	return loc
}

// ReferenceLocation returns the archive's reference timezone.
func ReferenceLocation() *time.Location {
	return referenceLocation
}

// Day truncates t to midnight of its calendar day in the reference timezone.
func Day(t time.Time) time.Time {
	t = t.In(referenceLocation)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, referenceLocation)
}

// DayString formats the reference-timezone calendar day of t.
func DayString(t time.Time) string {
	return t.In(referenceLocation).Format(DateLayout)
}
