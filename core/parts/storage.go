package parts

import (
	"fmt"
	"math"

	"github.com/kilianp07/gridopt/core/opt"
)

// Storage is a node that accumulates one resource in a volume bounded by
// [0, capacity]. The first index of every call is the time step.
type Storage struct {
	*Node

	resource  Resource
	capacity  float64
	maxChange float64
	volume    *opt.VariableCollection[opt.Tuple]
}

// StorageOption configures a Storage.
type StorageOption func(*Storage)

// WithCapacity bounds the volume. Storage is unbounded by default.
func WithCapacity(c float64) StorageOption { return func(s *Storage) { s.capacity = c } }

// WithMaxChange bounds the net volume change per time step in both directions.
func WithMaxChange(m float64) StorageOption { return func(s *Storage) { s.maxChange = m } }

// NewStorage returns a storage of r. An empty name is replaced by Storage<n>.
func NewStorage(name string, r Resource, opts ...StorageOption) *Storage {
	s := &Storage{
		Node:      newNode("Storage", name),
		resource:  r,
		capacity:  math.Inf(1),
		maxChange: math.NaN(),
	}
	for _, o := range opts {
		o(s)
	}
	s.volume = opt.NewVariableCollectionIn[opt.Tuple](s.Namespace(), "volume", opt.WithBounds(0, s.capacity))
	s.SetAccumulation(r, s.accumulation)
	s.AddConstraintFunc("maxchange", s.maxChangeConstraints)
	s.SetStateVariables(s.stateVariables)
	return s
}

// Resource returns the stored resource.
func (s *Storage) Resource() Resource { return s.resource }

// Capacity returns the upper bound of the volume.
func (s *Storage) Capacity() float64 { return s.capacity }

// Volume returns the volume variable at the start of idx.
func (s *Storage) Volume(idx ...int) *opt.Variable { return s.volume.At(opt.TupleOf(idx...)) }

func (s *Storage) next(idx []int) ([]int, error) {
	if len(idx) == 0 {
		return nil, fmt.Errorf("%w: storage %s needs at least one index, the first being time", ErrInsanity, s)
	}
	next := append([]int(nil), idx...)
	next[0] = s.StepTime(idx[0], 1)
	return next, nil
}

func (s *Storage) accumulation(idx ...int) (opt.Expr, error) {
	next, err := s.next(idx)
	if err != nil {
		return nil, err
	}
	return opt.Sub(s.Volume(next...), s.Volume(idx...)), nil
}

func (s *Storage) maxChangeConstraints(idx ...int) ([]opt.Item, error) {
	if math.IsNaN(s.maxChange) {
		return nil, nil
	}
	acc, err := s.accumulation(idx...)
	if err != nil {
		return nil, err
	}
	m := opt.Const(s.maxChange)
	return []opt.Item{
		opt.NewConstraint(opt.LessEqual(acc, m), "Max net inflow"),
		opt.NewConstraint(opt.LessEqual(opt.Neg(m), acc), "Max net outflow"),
	}, nil
}

func (s *Storage) stateVariables(idx ...int) ([]*opt.Variable, error) {
	next, err := s.next(idx)
	if err != nil {
		return nil, err
	}
	return []*opt.Variable{s.Volume(idx...), s.Volume(next...)}, nil
}
