package config

import (
	"fmt"
)

// ScenarioConfig describes the flow network simulated by the simulate command.
type ScenarioConfig struct {
	Name      string           `json:"name"`
	Resource  string           `json:"resource"`
	TimeUnit  int              `json:"time_unit"`
	Producers []ProducerConfig `json:"producers"`
	Consumers []ConsumerConfig `json:"consumers"`
	Storages  []StorageConfig  `json:"storages"`
	Edges     []EdgeConfig     `json:"edges"`
}

// ProducerConfig describes a producer. Yield is the output per unit of
// activity, Cost the price per unit of activity repeated over time.
type ProducerConfig struct {
	Name        string    `json:"name"`
	Yield       float64   `json:"yield"`
	Cost        []float64 `json:"cost"`
	MaxActivity float64   `json:"max_activity"`
}

// ConsumerConfig describes a consumer that must meet Profile, repeated over
// time. Yield is the consumption per unit of activity.
type ConsumerConfig struct {
	Name    string    `json:"name"`
	Yield   float64   `json:"yield"`
	Profile []float64 `json:"profile"`
}

// StorageConfig describes a storage. MaxChange of zero leaves the change
// per step unbounded; Capacity of zero leaves the volume unbounded.
type StorageConfig struct {
	Name      string  `json:"name"`
	Capacity  float64 `json:"capacity"`
	Initial   float64 `json:"initial"`
	MaxChange float64 `json:"max_change"`
}

// EdgeConfig connects two named parts.
type EdgeConfig struct {
	From          string `json:"from"`
	To            string `json:"to"`
	Bidirectional bool   `json:"bidirectional"`
}

// SetDefaults applies sane defaults.
func (c *ScenarioConfig) SetDefaults() {
	if c.Name == "" {
		c.Name = "scenario"
	}
	if c.Resource == "" {
		c.Resource = "power"
	}
	if c.TimeUnit == 0 {
		c.TimeUnit = 1
	}
	for i := range c.Producers {
		if c.Producers[i].Yield == 0 {
			c.Producers[i].Yield = 1
		}
	}
	for i := range c.Consumers {
		if c.Consumers[i].Yield == 0 {
			c.Consumers[i].Yield = 1
		}
	}
}

// Empty reports whether the scenario declares no part.
func (c ScenarioConfig) Empty() bool {
	return len(c.Producers) == 0 && len(c.Consumers) == 0 && len(c.Storages) == 0
}

// Validate checks names, profiles and edges.
//
//nolint:gocyclo
func (c ScenarioConfig) Validate() error {
	if c.TimeUnit < 1 {
		return fmt.Errorf("time_unit must be positive, got %d", c.TimeUnit)
	}
	names := map[string]bool{}
	add := func(name string) error {
		if name == "" {
			return fmt.Errorf("part name is required")
		}
		if names[name] {
			return fmt.Errorf("duplicate part name %s", name)
		}
		names[name] = true
		return nil
	}
	for _, p := range c.Producers {
		if err := add(p.Name); err != nil {
			return err
		}
		if p.Yield <= 0 {
			return fmt.Errorf("producer %s: yield must be positive", p.Name)
		}
		if len(p.Cost) == 0 {
			return fmt.Errorf("producer %s: cost is required", p.Name)
		}
		if p.MaxActivity < 0 {
			return fmt.Errorf("producer %s: negative max_activity", p.Name)
		}
	}
	for _, cons := range c.Consumers {
		if err := add(cons.Name); err != nil {
			return err
		}
		if cons.Yield <= 0 {
			return fmt.Errorf("consumer %s: yield must be positive", cons.Name)
		}
		if len(cons.Profile) == 0 {
			return fmt.Errorf("consumer %s: profile is required", cons.Name)
		}
	}
	for _, s := range c.Storages {
		if err := add(s.Name); err != nil {
			return err
		}
		if s.Capacity < 0 || s.MaxChange < 0 || s.Initial < 0 {
			return fmt.Errorf("storage %s: negative capacity, initial or max_change", s.Name)
		}
		if s.Capacity > 0 && s.Initial > s.Capacity {
			return fmt.Errorf("storage %s: initial %g exceeds capacity %g", s.Name, s.Initial, s.Capacity)
		}
	}
	for _, e := range c.Edges {
		if !names[e.From] || !names[e.To] {
			return fmt.Errorf("edge %s -> %s references an unknown part", e.From, e.To)
		}
		if e.From == e.To {
			return fmt.Errorf("edge %s -> %s is a loop", e.From, e.To)
		}
	}
	return nil
}
