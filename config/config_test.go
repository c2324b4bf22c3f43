package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `dispatch:
  horizon: 6
  step: 2
  steps: 4
  solve_timeout: 30s
solver:
  type: lp
  conf:
    tolerance: 0.001
metrics:
  prometheus_addr: ":2112"
  sinks:
    - type: "nop"
mqtt:
  broker: "tcp://localhost:1883"
  client_id: "gridopt"
  qos: 1
logging:
  backend: sqlite
  path: advances.db
sentry:
  dsn: ""
  environment: test
scenario:
  name: island
  resource: power
  producers:
    - name: plant
      yield: 1
      cost: [3, 1]
      max_activity: 10
  consumers:
    - name: town
      profile: [2, 4]
  storages:
    - name: battery
      capacity: 8
      initial: 2
      max_change: 3
  edges:
    - from: plant
      to: battery
    - from: battery
      to: town
    - from: plant
      to: town
      bidirectional: true
`

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.yaml", sample))
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Dispatch.Horizon)
	assert.Equal(t, 2, cfg.Dispatch.Step)
	assert.Equal(t, 4, cfg.Dispatch.Steps)
	assert.Equal(t, 30*time.Second, cfg.Dispatch.SolveTimeout)
	assert.Equal(t, "lp", cfg.Solver.Type)
	assert.Equal(t, 0.001, cfg.Solver.Conf["tolerance"])
	assert.Equal(t, ":2112", cfg.Metrics.PrometheusAddr)
	require.Len(t, cfg.Metrics.Sinks, 1)
	assert.Equal(t, "nop", cfg.Metrics.Sinks[0].Type)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)
	assert.Equal(t, "gridopt", cfg.MQTT.TopicPrefix)
	assert.Equal(t, "sqlite", cfg.Logging.Backend)
	assert.Equal(t, "test", cfg.Sentry.Environment)
	assert.False(t, cfg.Sentry.Enabled())

	sc := cfg.Scenario
	assert.Equal(t, "island", sc.Name)
	assert.Equal(t, 1, sc.TimeUnit)
	require.Len(t, sc.Producers, 1)
	assert.Equal(t, []float64{3, 1}, sc.Producers[0].Cost)
	require.Len(t, sc.Consumers, 1)
	assert.Equal(t, 1.0, sc.Consumers[0].Yield, "yield defaults to 1")
	require.Len(t, sc.Storages, 1)
	assert.Equal(t, 8.0, sc.Storages[0].Capacity)
	require.Len(t, sc.Edges, 3)
	assert.True(t, sc.Edges[2].Bidirectional)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.json", `{}`))
	require.NoError(t, err)
	assert.Equal(t, 24, cfg.Dispatch.Horizon)
	assert.Equal(t, 1, cfg.Dispatch.Step)
	assert.Equal(t, 1, cfg.Dispatch.Steps)
	assert.Equal(t, "lp", cfg.Solver.Type)
	assert.Equal(t, "jsonl", cfg.Logging.Backend)
	assert.Equal(t, "advance.log", cfg.Logging.Path)
	assert.Equal(t, "power", cfg.Scenario.Resource)
	assert.True(t, cfg.Scenario.Empty())
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("K_DISPATCH__HORIZON", "9")
	t.Setenv("K_MQTT__TOPIC_PREFIX", "site/a")
	t.Setenv("K_SENTRY__DSN", "https://key@sentry.example/1")
	cfg, err := Load(writeConfig(t, "config.yaml", sample))
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Dispatch.Horizon)
	assert.Equal(t, "site/a", cfg.MQTT.TopicPrefix)
	assert.True(t, cfg.Sentry.Enabled())
	assert.Equal(t, "test", cfg.Sentry.Environment, "file values under an overridden section survive")
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(writeConfig(t, "config.toml", ""))
	assert.Error(t, err, "unsupported format")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "config.yaml", "dispatch:\n  horizon: 1\n  step: 2\n"))
	assert.ErrorContains(t, err, "dispatch")

	_, err = Load(writeConfig(t, "config.yaml", "logging:\n  backend: csv\n"))
	assert.ErrorContains(t, err, "logging")
}

func TestScenarioValidate(t *testing.T) {
	valid := func() ScenarioConfig {
		sc := ScenarioConfig{
			Producers: []ProducerConfig{{Name: "p", Cost: []float64{1}}},
			Consumers: []ConsumerConfig{{Name: "c", Profile: []float64{1}}},
			Storages:  []StorageConfig{{Name: "s", Capacity: 4, Initial: 1}},
			Edges:     []EdgeConfig{{From: "p", To: "c"}},
		}
		sc.SetDefaults()
		return sc
	}
	require.NoError(t, valid().Validate())

	cases := map[string]func(*ScenarioConfig){
		"duplicate":       func(sc *ScenarioConfig) { sc.Storages[0].Name = "p" },
		"missing name":    func(sc *ScenarioConfig) { sc.Consumers[0].Name = "" },
		"no cost":         func(sc *ScenarioConfig) { sc.Producers[0].Cost = nil },
		"no profile":      func(sc *ScenarioConfig) { sc.Consumers[0].Profile = nil },
		"negative yield":  func(sc *ScenarioConfig) { sc.Producers[0].Yield = -1 },
		"initial":         func(sc *ScenarioConfig) { sc.Storages[0].Initial = 5 },
		"unknown edge":    func(sc *ScenarioConfig) { sc.Edges[0].To = "x" },
		"loop":            func(sc *ScenarioConfig) { sc.Edges[0].To = "p" },
		"time unit":       func(sc *ScenarioConfig) { sc.TimeUnit = -1 },
		"negative change": func(sc *ScenarioConfig) { sc.Storages[0].MaxChange = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			sc := valid()
			mutate(&sc)
			assert.Error(t, sc.Validate())
		})
	}
}

func TestLoggingValidate(t *testing.T) {
	c := LoggingConfig{Backend: "none"}
	c.SetDefaults()
	assert.Empty(t, c.Path)
	assert.NoError(t, c.Validate())

	assert.Error(t, LoggingConfig{Backend: "jsonl"}.Validate())
	assert.Error(t, LoggingConfig{Backend: "jsonl", Path: "x", MaxBackups: -1}.Validate())
}
