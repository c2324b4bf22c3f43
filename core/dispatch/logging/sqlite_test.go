package logging

import (
	"context"
	"testing"
	"time"
)

func TestSQLiteStore_PersistQuery(t *testing.T) {
	store, err := NewSQLiteStore("file:advance_test.db?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = store.Close() }()
	recs := []LogRecord{
		{Timestamp: time.Now(), Model: "dispatch", RunID: "r1", Status: StatusOK, Values: map[string]float64{"x(0)": 5}},
		{Timestamp: time.Now(), Model: "dispatch", RunID: "r2", Status: StatusFailed, Error: "infeasible"},
	}
	for _, rec := range recs {
		if err := store.Append(context.Background(), rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	out, err := store.Query(context.Background(), LogQuery{RunID: "r1"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 record, got %d", len(out))
	}
	if out[0].Values["x(0)"] != 5 {
		t.Fatalf("unexpected values %v", out[0].Values)
	}
	out, err = store.Query(context.Background(), LogQuery{Model: "dispatch"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 records, got %d", len(out))
	}
}
