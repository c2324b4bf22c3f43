package metrics

import (
	"context"

	"github.com/kilianp07/gridopt/core/events"
	coremetrics "github.com/kilianp07/gridopt/core/metrics"
	"github.com/kilianp07/gridopt/infra/logger"
	"github.com/kilianp07/gridopt/internal/eventbus"
)

// StartAdvanceCollector subscribes to the event bus and records every advance
// in sink. It stops when the context is canceled or the bus is closed; the
// returned channel is closed once the collector has stopped.
func StartAdvanceCollector(ctx context.Context, bus *eventbus.TypedBus[events.AdvanceEvent], sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	log := logger.New("metrics-collector")
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				solve, commits := coremetrics.FromAdvance(ev)
				if err := sink.RecordSolve(solve); err != nil {
					log.Errorf("record solve: %v", err)
				}
				if r, ok := sink.(coremetrics.CommitRecorder); ok && len(commits) > 0 {
					if err := r.RecordCommit(commits); err != nil {
						log.Errorf("record commit: %v", err)
					}
				}
			}
		}
	}()
	return done
}
