package dispatch

import (
	"fmt"
	"time"

	"github.com/kilianp07/gridopt/core/parts"
)

// Config defines the rolling horizon settings of a MyopicDispatchModel.
type Config struct {
	// Horizon is the number of time steps optimized per advance.
	Horizon int `json:"horizon"`
	// Step is the number of leading time steps committed per advance.
	Step int `json:"step"`
	// T0 is the first time index.
	T0 int `json:"t0"`
	// Steps is the number of advances performed by a simulation run.
	Steps int `json:"steps"`
	// SolveTimeout bounds one solver call. Zero means no deadline.
	SolveTimeout time.Duration `json:"solve_timeout"`
}

// Validate checks that the horizon covers the committed step.
func (c Config) Validate() error {
	if c.Step < 1 {
		return fmt.Errorf("%w: step must be at least 1, got %d", parts.ErrInsanity, c.Step)
	}
	if c.Horizon < c.Step {
		return fmt.Errorf("%w: horizon %d is shorter than step %d", parts.ErrInsanity, c.Horizon, c.Step)
	}
	if c.SolveTimeout < 0 {
		return fmt.Errorf("%w: negative solve timeout", parts.ErrInsanity)
	}
	return nil
}
