package metrics

// MultiSink fanouts events to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordSolve forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordSolve(ev SolveEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordSolve(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordCommit forwards commits to the sinks implementing CommitRecorder.
func (m *MultiSink) RecordCommit(evs []CommitEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(CommitRecorder); ok {
			if err := rec.RecordCommit(evs); err != nil {
				return err
			}
		}
	}
	return nil
}
