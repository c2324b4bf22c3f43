package lpsolver

import (
	"github.com/kilianp07/gridopt/core/factory"
	"github.com/kilianp07/gridopt/core/opt"
	"github.com/kilianp07/gridopt/infra/logger"
	"github.com/kilianp07/gridopt/infra/solver"
)

// Config holds the settings accepted by the "lp" solver type.
type Config struct {
	Tolerance            float64 `json:"tolerance"`
	FeasibilityTolerance float64 `json:"feasibility_tolerance"`
	MaxSupportSets       int     `json:"max_support_sets"`
}

// The "lp" solver type solves continuous problems with gonum's simplex.
// Variables with the Integer or Binary domain are rejected with
// opt.StatusUnsupported; configure another backend for mixed integer models.
func init() {
	_ = solver.Register("lp", func(conf map[string]any) (opt.Solver, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		opts := []Option{WithLogger(logger.New("lpsolver"))}
		if c.Tolerance > 0 {
			opts = append(opts, WithTolerance(c.Tolerance))
		}
		opts = append(opts, WithFeasibilityTolerance(c.FeasibilityTolerance), WithMaxSupportSets(c.MaxSupportSets))
		return New(opts...), nil
	})
}
