package providers

import "time"

// Clock is the process-wide "now" source. Every timestamp stamped by the
// data layer flows through it, which keeps tests deterministic.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

func NewClockProvider() Clock {
	return systemClock{}
}
