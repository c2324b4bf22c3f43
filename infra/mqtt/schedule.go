package mqtt

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/kilianp07/gridopt/core/events"
	coremetrics "github.com/kilianp07/gridopt/core/metrics"
	"github.com/kilianp07/gridopt/infra/logger"
	"github.com/kilianp07/gridopt/internal/eventbus"
)

// DefaultTopicPrefix is used when no topic prefix is configured.
const DefaultTopicPrefix = "gridopt"

// ScheduleMessage is the payload published for each advance of a dispatch model.
type ScheduleMessage struct {
	RunID     string                  `json:"run_id"`
	Model     string                  `json:"model"`
	T         int                     `json:"t"`
	Committed []int                   `json:"committed"`
	Objective *float64                `json:"objective,omitempty"`
	Status    string                  `json:"status"`
	Error     string                  `json:"error,omitempty"`
	Values    []events.CommittedValue `json:"values,omitempty"`
	Timestamp int64                   `json:"timestamp"`
}

// NewScheduleMessage converts an advance event to its wire form.
func NewScheduleMessage(ev events.AdvanceEvent) ScheduleMessage {
	msg := ScheduleMessage{
		RunID:     ev.RunID,
		Model:     ev.Model,
		T:         ev.T,
		Committed: ev.Committed,
		Status:    coremetrics.StatusOf(ev.Err),
		Values:    ev.Values,
		Timestamp: ev.Time.UnixMilli(),
	}
	if ev.Err != nil {
		msg.Error = ev.Err.Error()
	}
	if !math.IsNaN(ev.Objective) && !math.IsInf(ev.Objective, 0) && ev.Err == nil {
		obj := ev.Objective
		msg.Objective = &obj
	}
	return msg
}

// ScheduleTopic returns the topic of committed schedules of a model.
func ScheduleTopic(prefix, model string) string {
	return topic(prefix, model, "schedule")
}

// StatusTopic returns the topic of failed advances of a model.
func StatusTopic(prefix, model string) string {
	return topic(prefix, model, "status")
}

func topic(prefix, model, kind string) string {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return strings.TrimSuffix(prefix, "/") + "/" + model + "/" + kind
}

// StartSchedulePublisher subscribes to the event bus and publishes every
// committed schedule on ScheduleTopic and every failed advance on
// StatusTopic. The returned channel is closed once the publisher stops.
func StartSchedulePublisher(ctx context.Context, bus *eventbus.TypedBus[events.AdvanceEvent], pub Publisher, prefix string) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || pub == nil {
		close(done)
		return done
	}
	log := logger.New("schedule_publisher")
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
				publishAdvance(ctx, pub, prefix, ev, log)
			}
		}
	}()
	return done
}

func publishAdvance(ctx context.Context, pub Publisher, prefix string, ev events.AdvanceEvent, log logger.Logger) {
	payload, err := json.Marshal(NewScheduleMessage(ev))
	if err != nil {
		log.Errorf("encode schedule: %v", err)
		return
	}
	t := ScheduleTopic(prefix, ev.Model)
	if ev.Failed() {
		t = StatusTopic(prefix, ev.Model)
	}
	pctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := pub.Publish(pctx, t, payload); err != nil {
		log.Errorf("publish schedule t=%d: %v", ev.T, err)
	}
}
