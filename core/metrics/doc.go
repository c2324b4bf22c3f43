// Package metrics defines interfaces for collecting dispatch metrics. Sinks
// like PromSink and InfluxSink record solve and commit events and can be
// combined with NewMultiSink. The factory helpers return a MultiSink
// automatically when multiple sinks are configured.
package metrics
