package metrics

import (
	"errors"
	"time"

	"github.com/kilianp07/gridopt/core/events"
	"github.com/kilianp07/gridopt/core/opt"
)

// Status labels of a SolveEvent.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// SolveEvent describes one solved (or failed) window of a dispatch model.
type SolveEvent struct {
	Model       string
	RunID       string
	T           int
	Horizon     int
	Step        int
	Variables   int
	Constraints int
	Objective   float64
	Duration    time.Duration
	Status      string
	Time        time.Time
}

// MetricsSink records solve events for observability purposes.
type MetricsSink interface {
	RecordSolve(ev SolveEvent) error
}

// CommitEvent is a state variable value fixed by a dispatch model.
type CommitEvent struct {
	Model    string
	RunID    string
	T        int
	Part     string
	Variable string
	Value    float64
	Time     time.Time
}

// CommitRecorder records committed values.
type CommitRecorder interface {
	RecordCommit(evs []CommitEvent) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordSolve(SolveEvent) error     { return nil }
func (NopSink) RecordCommit([]CommitEvent) error { return nil }

// StatusOf maps an advance error to a status label.
func StatusOf(err error) string {
	if err == nil {
		return StatusOK
	}
	var se *opt.SolverError
	if errors.As(err, &se) {
		return se.Status.String()
	}
	return StatusError
}

// FromAdvance converts an advance event into the events recorded by sinks.
func FromAdvance(ev events.AdvanceEvent) (SolveEvent, []CommitEvent) {
	solve := SolveEvent{
		Model:       ev.Model,
		RunID:       ev.RunID,
		T:           ev.T,
		Horizon:     len(ev.Window),
		Step:        len(ev.Committed),
		Variables:   ev.Variables,
		Constraints: ev.Constraints,
		Objective:   ev.Objective,
		Duration:    ev.Duration,
		Status:      StatusOf(ev.Err),
		Time:        ev.Time,
	}
	commits := make([]CommitEvent, 0, len(ev.Values))
	for _, v := range ev.Values {
		commits = append(commits, CommitEvent{
			Model:    ev.Model,
			RunID:    ev.RunID,
			T:        v.T,
			Part:     v.Part,
			Variable: v.Variable,
			Value:    v.Value,
			Time:     ev.Time,
		})
	}
	return solve, commits
}
