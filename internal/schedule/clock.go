package schedule

import "time"

// Clock supplies the current instant. Injected so past-date checks and
// lifecycle timestamps are testable with fixed times.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
