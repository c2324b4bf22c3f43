// Package dispatch implements the rolling horizon ("myopic") dispatch driver.
//
// A MyopicDispatchModel is a part: models are added to it as children. Each
// Advance builds one problem covering Horizon time steps, hands it to an
// opt.Solver and fixes the state variables of the first Step time steps, so
// the next advance starts from committed values. Advances are logged,
// counted in Prometheus, optionally persisted to a logging.LogStore and
// published as events.AdvanceEvent on an event bus.
package dispatch
