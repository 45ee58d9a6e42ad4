package clock

import (
	"time"
)

const layout = "2006-01-02T15:04:05Z"

func Now() string {
	return time.Now().UTC().Format(layout)
}

// Func returns the current time. Services take one so tests can pin "now"
// for expiry checks.
type Func func() time.Time

func System() time.Time {
	return time.Now().UTC()
}

// Fixed returns a Func that always reports t.
func Fixed(t time.Time) Func {
	return func() time.Time {
		return t
	}
}

// DaysFrom returns the instant the given number of days after t.
func DaysFrom(t time.Time, days int) time.Time {
	return t.Add(time.Duration(days) * 24 * time.Hour)
}
