package app

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/gridopt/config"
	"github.com/kilianp07/gridopt/core/dispatch"
	"github.com/kilianp07/gridopt/core/dispatch/logging"
	coremetrics "github.com/kilianp07/gridopt/core/metrics"
	"github.com/kilianp07/gridopt/core/opt"
	"github.com/kilianp07/gridopt/core/parts"
	"github.com/kilianp07/gridopt/infra/mqtt"
)

type recordSink struct {
	mu     sync.Mutex
	solves []coremetrics.SolveEvent
}

func (r *recordSink) RecordSolve(ev coremetrics.SolveEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.solves = append(r.solves, ev)
	return nil
}

func islandConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Dispatch: dispatch.Config{Horizon: 2, Step: 1, Steps: 3},
		Logging:  config.LoggingConfig{Backend: "jsonl", Path: filepath.Join(t.TempDir(), "advance.log")},
		Scenario: config.ScenarioConfig{
			Name: "island",
			Producers: []config.ProducerConfig{
				{Name: "plant", Cost: []float64{1}, MaxActivity: 3},
				{Name: "peaker", Cost: []float64{5}},
			},
			Consumers: []config.ConsumerConfig{{Name: "town", Profile: []float64{2, 4}}},
			Storages:  []config.StorageConfig{{Name: "battery", Capacity: 10}},
			Edges: []config.EdgeConfig{
				{From: "plant", To: "battery"},
				{From: "battery", To: "town"},
				{From: "plant", To: "town"},
				{From: "peaker", To: "town"},
			},
		},
	}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

func valueAt(t *testing.T, v *opt.Variable) float64 {
	t.Helper()
	x, err := v.Value()
	require.NoError(t, err, v.Name())
	return x
}

func TestProfileAt(t *testing.T) {
	p := []float64{1, 2, 3}
	assert.Equal(t, 1.0, profileAt(p, 1, 0))
	assert.Equal(t, 3.0, profileAt(p, 1, 5))
	assert.Equal(t, 3.0, profileAt(p, 1, -1))
	assert.Equal(t, 2.0, profileAt(p, 2, 3))
	assert.Equal(t, 3.0, profileAt(p, 2, -1))
	assert.Equal(t, 0.0, profileAt(nil, 1, 4))
}

func TestBuildScenario(t *testing.T) {
	cfg := islandConfig(t)
	cfg.Scenario.Producers = append(cfg.Scenario.Producers, config.ProducerConfig{Name: "solo", Yield: 1, Cost: []float64{1}})
	s, err := BuildScenario(cfg.Scenario, 0)
	require.NoError(t, err)

	assert.Len(t, s.Producers, 3)
	assert.Len(t, s.Network.Edges(), 4)
	assert.Len(t, s.Components(), 5)
	assert.Equal(t, 0.0, valueAt(t, s.Storages[0].Volume(0)))
	assert.Equal(t, 3.0, s.Producers[0].Activity.At(0).UB())

	town, ok := s.Part("town")
	require.True(t, ok)
	set, err := town.Base().Constraints(1)
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len(), "balance and demand")

	root := parts.NewPart("root")
	require.NoError(t, s.Attach(root))
	names := map[string]bool{}
	for _, p := range root.Children() {
		names[p.Name()] = true
	}
	assert.True(t, names["solo"], "unconnected parts hang from the root")
	assert.False(t, names["plant"], "connected parts hang from the network")
	assert.True(t, names["island.grid"])

	cfg.Scenario.Edges = append(cfg.Scenario.Edges, config.EdgeConfig{From: "town", To: "nowhere"})
	_, err = BuildScenario(cfg.Scenario, 0)
	assert.Error(t, err)
}

func TestSimulationRun(t *testing.T) {
	cfg := islandConfig(t)
	pub := mqtt.NewMockPublisher()
	sink := &recordSink{}
	sim, err := New(cfg, WithPublisher(pub), WithMetricsSink(sink))
	require.NoError(t, err)
	defer func() { require.NoError(t, sim.Close()) }()

	schedule, err := sim.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, sim.Model.Committed())
	assert.Equal(t, 3, sim.Model.T())

	s := sim.Scenario
	plant, peaker, town := s.Producers[0], s.Producers[1], s.Consumers[0]
	battery := s.Storages[0]
	for i, want := range []float64{3, 3, 3} {
		assert.InDelta(t, want, valueAt(t, plant.Activity.At(i)), 1e-6, "plant(%d)", i)
		assert.InDelta(t, 0, valueAt(t, peaker.Activity.At(i)), 1e-6, "peaker(%d)", i)
	}
	for i, want := range []float64{2, 4, 2} {
		assert.InDelta(t, want, valueAt(t, town.Activity.At(i)), 1e-6, "town(%d)", i)
	}
	for i, want := range []float64{0, 1, 0, 1} {
		assert.InDelta(t, want, valueAt(t, battery.Volume(i)), 1e-6, "battery(%d)", i)
	}

	found := false
	for _, v := range schedule {
		if v.Variable == "plant.activity(1)" {
			found = true
			assert.Equal(t, 1, v.T)
			assert.InDelta(t, 3, v.Value, 1e-6)
		}
	}
	assert.True(t, found, "schedule holds committed activities")
	for i := 1; i < len(schedule); i++ {
		assert.LessOrEqual(t, schedule[i-1].T, schedule[i].T)
	}

	msgs := pub.Published()
	require.Len(t, msgs, 3)
	for _, m := range msgs {
		assert.Equal(t, "gridopt/island/schedule", m.Topic)
	}

	require.Len(t, sink.solves, 3)
	for _, ev := range sink.solves {
		assert.Equal(t, coremetrics.StatusOK, ev.Status)
		assert.Equal(t, 2, ev.Horizon)
	}

	store, err := logging.NewJSONLStore(cfg.Logging.Path)
	require.NoError(t, err)
	recs, err := store.Query(context.Background(), logging.LogQuery{Model: "island"})
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func TestSimulationInfeasible(t *testing.T) {
	cfg := islandConfig(t)
	cfg.Logging.Backend = "none"
	cfg.Scenario.Producers = cfg.Scenario.Producers[:1]
	cfg.Scenario.Edges = []config.EdgeConfig{{From: "plant", To: "town"}}
	cfg.Scenario.Storages = nil
	cfg.Scenario.Consumers[0].Profile = []float64{5}

	pub := mqtt.NewMockPublisher()
	sim, err := New(cfg, WithPublisher(pub), WithMetricsSink(coremetrics.NopSink{}))
	require.NoError(t, err)
	defer func() { require.NoError(t, sim.Close()) }()

	schedule, err := sim.Run(context.Background())
	require.Error(t, err)
	assert.True(t, opt.IsStatus(err, opt.StatusInfeasible), "got %v", err)
	assert.Empty(t, schedule)
	assert.Empty(t, sim.Model.Committed())

	msgs := pub.Published()
	require.Len(t, msgs, 1)
	assert.Equal(t, "gridopt/island/status", msgs[0].Topic)
}

func TestNewRejectsEmptyScenario(t *testing.T) {
	cfg := &config.Config{}
	cfg.SetDefaults()
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestNewLogStore(t *testing.T) {
	dir := t.TempDir()
	for _, c := range []config.LoggingConfig{
		{Backend: "jsonl", Path: filepath.Join(dir, "a.log")},
		{Backend: "jsonl", Path: filepath.Join(dir, "rot", "b.log"), MaxSizeMB: 1},
		{Backend: "sqlite", Path: filepath.Join(dir, "c.db")},
	} {
		store, err := NewLogStore(c)
		require.NoError(t, err, c.Backend)
		require.NoError(t, store.Append(context.Background(), logging.LogRecord{Model: "m", Status: logging.StatusOK}))
		recs, err := store.Query(context.Background(), logging.LogQuery{})
		require.NoError(t, err)
		assert.Len(t, recs, 1)
		require.NoError(t, store.Close())
	}

	store, err := NewLogStore(config.LoggingConfig{Backend: "none"})
	require.NoError(t, err)
	assert.Nil(t, store)

	_, err = NewLogStore(config.LoggingConfig{Backend: "csv"})
	assert.Error(t, err)
}
