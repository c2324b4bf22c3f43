package parts

import "github.com/kilianp07/gridopt/core/opt"

const power Resource = "power"

// producer outputs 2 units of power per unit of activity at a cost of 3.
type producer struct {
	*Node
	activity *opt.VariableCollection[int]
}

func newProducer(name string) *producer {
	p := &producer{Node: NewNode(name)}
	p.activity = opt.NewVariableCollectionIn[int](p.Namespace(), "activity", opt.WithLowerBound(0))
	p.SetProduction(power, func(idx ...int) (opt.Expr, error) {
		return opt.Scale(2, p.activity.At(idx[0])), nil
	})
	p.SetCost(func(idx ...int) (opt.Expr, error) {
		return opt.Scale(3, p.activity.At(idx[0])), nil
	})
	p.SetStateVariables(func(idx ...int) ([]*opt.Variable, error) {
		return []*opt.Variable{p.activity.At(idx[0])}, nil
	})
	return p
}

// consumer consumes 0.5 units of power per unit of activity and must match
// its consumption to demand.
type consumer struct {
	*Node
	activity *opt.VariableCollection[int]
	demand   func(t int) float64
}

func newConsumer(name string, demand func(t int) float64) *consumer {
	c := &consumer{Node: NewNode(name), demand: demand}
	c.activity = opt.NewVariableCollectionIn[int](c.Namespace(), "activity", opt.WithLowerBound(0))
	c.SetConsumption(power, func(idx ...int) (opt.Expr, error) {
		return opt.Scale(0.5, c.activity.At(idx[0])), nil
	})
	c.AddConstraintFunc("demand", func(idx ...int) ([]opt.Item, error) {
		cons := opt.Scale(0.5, c.activity.At(idx[0]))
		return []opt.Item{opt.Eq(cons, opt.Const(c.demand(idx[0])))}, nil
	})
	return c
}
