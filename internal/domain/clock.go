package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock backs Now. Tests replace it with a fake through SetClock.
var clock = clockwork.NewRealClock()

// Now returns the current UTC time from the package clock.
func Now() time.Time {
	return clock.Now().UTC()
}

// SetClock installs c as the time source for default measurement windows,
// ingest createdAt fallbacks and store statistics. A nil c restores the real
// clock.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
