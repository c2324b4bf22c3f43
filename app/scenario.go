package app

import (
	"fmt"
	"math"

	"github.com/kilianp07/gridopt/config"
	"github.com/kilianp07/gridopt/core/opt"
	"github.com/kilianp07/gridopt/core/parts"
)

// Producer outputs yield units of its resource per unit of activity.
type Producer struct {
	*parts.Node
	Activity *opt.VariableCollection[int]
}

// NewProducer returns a producer whose activity costs cfg.Cost per unit,
// the cost profile being repeated over time steps.
func NewProducer(r parts.Resource, cfg config.ProducerConfig) *Producer {
	ub := math.Inf(1)
	if cfg.MaxActivity > 0 {
		ub = cfg.MaxActivity
	}
	p := &Producer{Node: parts.NewNode(cfg.Name)}
	p.Activity = opt.NewVariableCollectionIn[int](p.Namespace(), "activity", opt.WithBounds(0, ub))
	p.SetProduction(r, func(idx ...int) (opt.Expr, error) {
		t, err := timeIndex(idx)
		if err != nil {
			return nil, err
		}
		return opt.Scale(cfg.Yield, p.Activity.At(t)), nil
	})
	p.SetCost(func(idx ...int) (opt.Expr, error) {
		t, err := timeIndex(idx)
		if err != nil {
			return nil, err
		}
		return opt.Scale(profileAt(cfg.Cost, p.TimeUnit(), t), p.Activity.At(t)), nil
	})
	p.SetStateVariables(func(idx ...int) ([]*opt.Variable, error) {
		t, err := timeIndex(idx)
		if err != nil {
			return nil, err
		}
		return []*opt.Variable{p.Activity.At(t)}, nil
	})
	return p
}

// Consumer consumes yield units of its resource per unit of activity and
// must meet a demand profile repeated over time steps.
type Consumer struct {
	*parts.Node
	Activity *opt.VariableCollection[int]
}

// NewConsumer returns a consumer of r.
func NewConsumer(r parts.Resource, cfg config.ConsumerConfig) *Consumer {
	c := &Consumer{Node: parts.NewNode(cfg.Name)}
	c.Activity = opt.NewVariableCollectionIn[int](c.Namespace(), "activity", opt.WithLowerBound(0))
	c.SetConsumption(r, func(idx ...int) (opt.Expr, error) {
		t, err := timeIndex(idx)
		if err != nil {
			return nil, err
		}
		return opt.Scale(cfg.Yield, c.Activity.At(t)), nil
	})
	c.AddConstraintFunc("demand", func(idx ...int) ([]opt.Item, error) {
		t, err := timeIndex(idx)
		if err != nil {
			return nil, err
		}
		demand := opt.Const(profileAt(cfg.Profile, c.TimeUnit(), t))
		return []opt.Item{opt.Eq(opt.Scale(cfg.Yield, c.Activity.At(t)), demand)}, nil
	})
	c.SetStateVariables(func(idx ...int) ([]*opt.Variable, error) {
		t, err := timeIndex(idx)
		if err != nil {
			return nil, err
		}
		return []*opt.Variable{c.Activity.At(t)}, nil
	})
	return c
}

func timeIndex(idx []int) (int, error) {
	if len(idx) == 0 {
		return 0, fmt.Errorf("%w: a time index is required", parts.ErrInsanity)
	}
	return idx[0], nil
}

// profileAt returns the value of a profile repeated every len(values) steps.
func profileAt(values []float64, unit, t int) float64 {
	if len(values) == 0 {
		return 0
	}
	if unit < 1 {
		unit = 1
	}
	step := t / unit
	if t < 0 && t%unit != 0 {
		step--
	}
	n := len(values)
	return values[((step%n)+n)%n]
}

// Scenario is the flow network described by a config.ScenarioConfig.
type Scenario struct {
	Resource  parts.Resource
	Network   *parts.FlowNetwork
	Producers []*Producer
	Consumers []*Consumer
	Storages  []*parts.Storage

	order []string
	parts map[string]parts.Component
}

// BuildScenario creates every part of cfg and connects the edges. Storage
// volumes at t0 are fixed to their initial value.
func BuildScenario(cfg config.ScenarioConfig, t0 int) (*Scenario, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := parts.Resource(cfg.Resource)
	s := &Scenario{
		Resource: r,
		Network:  parts.NewFlowNetwork(cfg.Name+".grid", r),
		parts:    map[string]parts.Component{},
	}
	for _, pc := range cfg.Producers {
		p := NewProducer(r, pc)
		s.Producers = append(s.Producers, p)
		s.add(pc.Name, p)
	}
	for _, cc := range cfg.Consumers {
		c := NewConsumer(r, cc)
		s.Consumers = append(s.Consumers, c)
		s.add(cc.Name, c)
	}
	for _, sc := range cfg.Storages {
		var opts []parts.StorageOption
		if sc.Capacity > 0 {
			opts = append(opts, parts.WithCapacity(sc.Capacity))
		}
		if sc.MaxChange > 0 {
			opts = append(opts, parts.WithMaxChange(sc.MaxChange))
		}
		st := parts.NewStorage(sc.Name, r, opts...)
		st.Volume(t0).SetValue(sc.Initial)
		s.Storages = append(s.Storages, st)
		s.add(sc.Name, st)
	}
	for _, c := range s.parts {
		c.Base().SetTimeUnit(cfg.TimeUnit)
	}
	s.Network.SetTimeUnit(cfg.TimeUnit)
	for _, e := range cfg.Edges {
		if err := s.Network.Connect(s.parts[e.From], s.parts[e.To], e.Bidirectional); err != nil {
			return nil, fmt.Errorf("connect %s -> %s: %w", e.From, e.To, err)
		}
	}
	return s, nil
}

func (s *Scenario) add(name string, c parts.Component) {
	s.order = append(s.order, name)
	s.parts[name] = c
}

// Part returns the part named name.
func (s *Scenario) Part(name string) (parts.Component, bool) {
	c, ok := s.parts[name]
	return c, ok
}

// Components returns the parts in declaration order.
func (s *Scenario) Components() []parts.Component {
	out := make([]parts.Component, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.parts[name])
	}
	return out
}

// Attach adds the network to root, together with the parts no edge reaches.
func (s *Scenario) Attach(root *parts.Part) error {
	if err := root.AddPart(s.Network); err != nil {
		return err
	}
	connected := map[*parts.Node]bool{}
	for _, n := range s.Network.Nodes() {
		connected[n] = true
	}
	for _, c := range s.Components() {
		if connected[c.Base().Node()] {
			continue
		}
		if err := root.AddPart(c); err != nil {
			return err
		}
	}
	return nil
}
