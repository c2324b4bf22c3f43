// Package solver instantiates opt.Solver backends from configuration.
// Backends register themselves on import, e.g. infra/solver/lpsolver.
package solver

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilianp07/gridopt/core/factory"
	"github.com/kilianp07/gridopt/core/opt"
)

// DefaultType is used when the configuration names no backend.
const DefaultType = "lp"

var registry = factory.NewRegistry[opt.Solver]()

// Register adds a solver factory identified by name.
func Register(name string, f factory.Factory[opt.Solver]) error {
	return registry.Register(name, f)
}

// Types returns the registered backend names.
func Types() []string { return registry.Types() }

// Config selects the solver backend. Fallbacks are tried in order when the
// primary backend fails with a status other than infeasible or unbounded.
type Config struct {
	Type      string                 `json:"type"`
	Conf      map[string]any         `json:"conf"`
	Fallbacks []factory.ModuleConfig `json:"fallbacks"`
}

// New creates the configured solver.
func New(cfg Config) (opt.Solver, error) {
	primary := factory.ModuleConfig{Type: cfg.Type, Conf: cfg.Conf}
	if primary.Type == "" {
		primary.Type = DefaultType
	}
	s, err := registry.Create(primary)
	if err != nil {
		return nil, err
	}
	if len(cfg.Fallbacks) == 0 {
		return s, nil
	}
	chain := Chain{s}
	for _, fc := range cfg.Fallbacks {
		f, err := registry.Create(fc)
		if err != nil {
			return nil, fmt.Errorf("fallback solver: %w", err)
		}
		chain = append(chain, f)
	}
	return chain, nil
}

// Chain tries each solver in order. Infeasible and unbounded results are
// final since another backend would report the same.
type Chain []opt.Solver

// Solve implements opt.Solver.
func (c Chain) Solve(ctx context.Context, p *opt.Problem) (opt.Solution, error) {
	if len(c) == 0 {
		return nil, &opt.SolverError{Status: opt.StatusUnsupported, Msg: "no solver configured"}
	}
	var errs []error
	for _, s := range c {
		sol, err := s.Solve(ctx, p)
		if err == nil {
			return sol, nil
		}
		if opt.IsStatus(err, opt.StatusInfeasible) || opt.IsStatus(err, opt.StatusUnbounded) || ctx.Err() != nil {
			return nil, err
		}
		errs = append(errs, err)
	}
	if len(errs) == 1 {
		return nil, errs[0]
	}
	last := errs[len(errs)-1]
	return nil, &opt.SolverError{Status: statusOf(last), Msg: "all solvers failed", Err: errors.Join(errs...)}
}

func statusOf(err error) opt.Status {
	var se *opt.SolverError
	if errors.As(err, &se) {
		return se.Status
	}
	return opt.StatusUnknown
}
