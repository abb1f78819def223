package tracking

import "time"

// Clock supplies the current time to the engine.
//
// Production code uses SystemClock; tests inject a fixed or manually
// advanced implementation so accumulation arithmetic is deterministic.
type Clock interface {
	Now() time.Time
}

// systemClock reads the wall clock.
type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// SystemClock returns a Clock backed by time.Now (UTC).
func SystemClock() Clock {
	return systemClock{}
}
