// Package events defines the events emitted on the event bus by dispatch
// models.
//
// Available event types:
//   - AdvanceEvent: one rolling-horizon step was solved, or failed
package events
