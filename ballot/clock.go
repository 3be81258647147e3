package ballot

import "time"

// Clock provides the current time to the ledger. Phase transitions are
// wall-clock driven, so the clock is injected to keep phase-boundary tests
// deterministic.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the default Clock, backed by time.Now.
var SystemClock Clock = systemClock{}
