package events

import "time"

// CommittedValue is the value fixed for a state variable when a time step is
// committed.
type CommittedValue struct {
	Part     string  `json:"part"`
	Variable string  `json:"variable"`
	T        int     `json:"t"`
	Value    float64 `json:"value"`
}

// AdvanceEvent is published after every advance of a dispatch model. Err is
// set when the window could not be solved, in which case nothing was
// committed.
type AdvanceEvent struct {
	RunID       string
	Model       string
	T           int
	Window      []int
	Committed   []int
	Objective   float64
	Variables   int
	Constraints int
	Duration    time.Duration
	Values      []CommittedValue
	Err         error
	Time        time.Time
}

// Failed reports whether the advance failed.
func (e AdvanceEvent) Failed() bool { return e.Err != nil }
