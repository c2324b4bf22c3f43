package logging

import (
	"context"
	"time"
)

// LogRecord captures one advance of a dispatch model.
type LogRecord struct {
	Timestamp   time.Time          `json:"timestamp"`
	RunID       string             `json:"run_id"`
	Model       string             `json:"model"`
	T           int                `json:"t"`
	Window      []int              `json:"window"`
	Committed   []int              `json:"committed"`
	Objective   float64            `json:"objective"`
	Variables   int                `json:"variables"`
	Constraints int                `json:"constraints"`
	DurationMS  float64            `json:"duration_ms"`
	Status      string             `json:"status"`
	Error       string             `json:"error,omitempty"`
	Values      map[string]float64 `json:"values,omitempty"`
}

// Status values of a LogRecord.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// LogQuery defines filters for retrieving records.
type LogQuery struct {
	Start  time.Time
	End    time.Time
	Model  string
	RunID  string
	Status string
}

// LogStore persists LogRecords and supports querying.
type LogStore interface {
	Append(ctx context.Context, rec LogRecord) error
	Query(ctx context.Context, q LogQuery) ([]LogRecord, error)
	Close() error
}

// Match reports whether r satisfies every filter of q.
func (q LogQuery) Match(r LogRecord) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Model != "" && r.Model != q.Model {
		return false
	}
	if q.RunID != "" && r.RunID != q.RunID {
		return false
	}
	if q.Status != "" && r.Status != q.Status {
		return false
	}
	return true
}
