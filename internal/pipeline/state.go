package pipeline

import "time"

// State is a coordinator step.
type State string

const (
	StateStart     State = "start"
	StateListed    State = "listed"
	StateDetected  State = "detected"
	StateStaged    State = "staged"
	StateNotified  State = "notified"
	StateCommitted State = "committed"
	StateFailed    State = "failed"
	StateSkipped   State = "skipped"
)

// Report summarizes one tick.
type Report struct {
	RunID    string
	State    State
	FailedAt State
	Listed   int
	Events   int
	Staged   int
	Failed   int
	Notified int
	Kind     string
	Files    []string
	Duration time.Duration
	Err      error
}

// Committed reports whether the tick advanced the snapshot.
func (r Report) Committed() bool {
	return r.State == StateCommitted
}
