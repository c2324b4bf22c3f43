// Package mqtt defines the messaging contract used to publish committed
// dispatch schedules.
package mqtt

import "context"

// Publisher sends a payload to an MQTT topic.
type Publisher interface {
	// Publish delivers payload on topic, retrying until the broker accepts it,
	// the retry budget is exhausted or ctx is done.
	Publish(ctx context.Context, topic string, payload []byte) error
}
