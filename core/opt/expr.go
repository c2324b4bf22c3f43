package opt

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the type of an expression node.
type Kind int

const (
	KindAdd Kind = iota + 1
	KindSub
	KindMul
	KindSum
	KindLess
	KindLessEqual
	KindEq
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindAdd:
		return "Add"
	case KindSub:
		return "Sub"
	case KindMul:
		return "Mul"
	case KindSum:
		return "Sum"
	case KindLess:
		return "Less"
	case KindLessEqual:
		return "LessEqual"
	case KindEq:
		return "Eq"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// IsRelation reports whether k builds a Relation.
func (k Kind) IsRelation() bool {
	return k == KindLess || k == KindLessEqual || k == KindEq
}

// Create is the default evaluator: it rebuilds a node of kind k from already
// evaluated arguments. Numbers are turned back into Const. Apart from the
// flattening of Sum, no simplification is applied.
func (k Kind) Create(args ...any) (any, error) {
	exprs := make([]Expr, len(args))
	for i, a := range args {
		e, err := toExpr(a)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", k, err)
		}
		exprs[i] = e
	}
	switch {
	case k == KindSum:
		return Sum(exprs...), nil
	case k.IsRelation():
		if len(exprs) != 2 {
			return nil, fmt.Errorf("create %s: expected 2 arguments, got %d", k, len(exprs))
		}
		return newRelation(k, exprs[0], exprs[1]), nil
	case k == KindAdd || k == KindSub || k == KindMul:
		if len(exprs) != 2 {
			return nil, fmt.Errorf("create %s: expected 2 arguments, got %d", k, len(exprs))
		}
		return newOperation(k, exprs...), nil
	default:
		return nil, fmt.Errorf("create: unknown kind %s", k)
	}
}

// Replacements maps expressions, by structural key, to the values
// substituted for them during evaluation.
type Replacements map[string]any

// Set substitutes v for every occurrence of e.
func (r Replacements) Set(e Expr, v any) { r[e.Key()] = v }

func (r Replacements) lookup(e Expr) (any, bool) {
	if len(r) == 0 {
		return nil, false
	}
	v, ok := r[e.Key()]
	return v, ok
}

// Evaluator combines the evaluated arguments of a node.
type Evaluator func(args ...any) (any, error)

// Evaluators overrides the default evaluator per kind.
type Evaluators map[Kind]Evaluator

// Expr is an arithmetic expression: a Const, a *Variable or an *Operation.
type Expr interface {
	// Evaluate evaluates the expression recursively. Arguments found in
	// replace, variables or whole sub-expressions, are substituted without
	// descending into them; a variable holding a value keeps it. Each
	// operation is then combined with evaluators[kind] or, by default,
	// rebuilt with Kind.Create.
	Evaluate(replace Replacements, evaluators Evaluators) (any, error)
	// Leaves returns the distinct terminal variables and literals.
	Leaves() []Expr
	// Variables returns the distinct variables among the leaves.
	Variables() []*Variable
	// Value evaluates the expression to a number. It fails with ErrNoValue
	// if any variable lacks a value.
	Value() (float64, error)
	// Key is the structural identity of the expression.
	Key() string
	String() string

	isExpr()
}

// Equal reports whether two expressions are structurally identical.
func Equal(a, b Expr) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Key() == b.Key()
}

// Const is a numeric literal.
type Const float64

func (c Const) Evaluate(Replacements, Evaluators) (any, error) { return float64(c), nil }
func (c Const) Leaves() []Expr                                 { return []Expr{c} }
func (c Const) Variables() []*Variable                         { return nil }
func (c Const) Value() (float64, error)                        { return float64(c), nil }
func (c Const) Key() string                                    { return "c:" + c.String() }
func (c Const) String() string                                 { return strconv.FormatFloat(float64(c), 'g', -1, 64) }
func (Const) isExpr()                                          {}

// Operation is an immutable arithmetic node. Arguments keep the order in
// which they were given.
type Operation struct {
	kind Kind
	args []Expr
	key  string
}

func newOperation(kind Kind, args ...Expr) *Operation {
	keys := make([]string, len(args))
	for i, a := range args {
		keys[i] = a.Key()
	}
	return &Operation{
		kind: kind,
		args: args,
		key:  kind.String() + "(" + strings.Join(keys, ",") + ")",
	}
}

// Kind returns the node kind.
func (o *Operation) Kind() Kind { return o.kind }

// Args returns a copy of the arguments.
func (o *Operation) Args() []Expr {
	out := make([]Expr, len(o.args))
	copy(out, o.args)
	return out
}

func (o *Operation) Evaluate(replace Replacements, evaluators Evaluators) (any, error) {
	vals, err := evaluateArgs(o.args, replace, evaluators)
	if err != nil {
		return nil, err
	}
	return apply(o.kind, vals, evaluators)
}

func (o *Operation) Leaves() []Expr         { return collectLeaves(o.args...) }
func (o *Operation) Variables() []*Variable { return filterVariables(o.Leaves()) }
func (o *Operation) Key() string            { return o.key }
func (*Operation) isExpr()                  {}

func (o *Operation) Value() (float64, error) {
	return concreteValue(o)
}

func (o *Operation) String() string {
	if o.kind == KindSum {
		parts := make([]string, len(o.args))
		for i, a := range o.args {
			parts[i] = a.String()
		}
		return "Sum(" + strings.Join(parts, ", ") + ")"
	}
	op := map[Kind]string{KindAdd: " + ", KindSub: " - ", KindMul: " * "}[o.kind]
	return formatArg(o.args[0], priority(o.kind), false) + op +
		formatArg(o.args[1], priority(o.kind), o.kind == KindSub)
}

// Relation is a binary relation between two expressions. A Relation is not an
// Expr: it cannot be used as an arithmetic operand, only added to a problem or
// evaluated with Holds.
type Relation struct {
	kind     Kind
	lhs, rhs Expr
	key      string
}

func newRelation(kind Kind, lhs, rhs Expr) *Relation {
	return &Relation{
		kind: kind,
		lhs:  lhs,
		rhs:  rhs,
		key:  kind.String() + "(" + lhs.Key() + "," + rhs.Key() + ")",
	}
}

// Kind returns the relation kind.
func (r *Relation) Kind() Kind { return r.kind }

// Lhs returns the left-hand side.
func (r *Relation) Lhs() Expr { return r.lhs }

// Rhs returns the right-hand side.
func (r *Relation) Rhs() Expr { return r.rhs }

// Evaluate works like Expr.Evaluate.
func (r *Relation) Evaluate(replace Replacements, evaluators Evaluators) (any, error) {
	vals, err := evaluateArgs([]Expr{r.lhs, r.rhs}, replace, evaluators)
	if err != nil {
		return nil, err
	}
	return apply(r.kind, vals, evaluators)
}

// Holds evaluates the relation with concrete values.
func (r *Relation) Holds() (bool, error) {
	v, err := r.Evaluate(nil, ConcreteEvaluators)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s evaluates to %v", ErrNoValue, r, v)
	}
	return b, nil
}

func (r *Relation) Leaves() []Expr         { return collectLeaves(r.lhs, r.rhs) }
func (r *Relation) Variables() []*Variable { return filterVariables(r.Leaves()) }
func (r *Relation) Key() string            { return r.key }
func (*Relation) isItem()                  {}

func (r *Relation) String() string {
	op := map[Kind]string{KindLess: " < ", KindLessEqual: " <= ", KindEq: " == "}[r.kind]
	return r.lhs.String() + op + r.rhs.String()
}

// Add returns a + b. Adding a literal zero returns the other operand.
func Add(a, b Expr) Expr {
	if isConst(b, 0) {
		return a
	}
	if isConst(a, 0) {
		return b
	}
	return newOperation(KindAdd, a, b)
}

// Sub returns a - b.
func Sub(a, b Expr) Expr {
	if isConst(b, 0) {
		return a
	}
	if isConst(a, 0) {
		return Neg(b)
	}
	return newOperation(KindSub, a, b)
}

// Mul returns a * b. Multiplying by a literal zero returns 0 and multiplying
// by a literal one returns the other operand.
func Mul(a, b Expr) Expr {
	if isConst(a, 0) || isConst(b, 0) {
		return Const(0)
	}
	if isConst(b, 1) {
		return a
	}
	if isConst(a, 1) {
		return b
	}
	return newOperation(KindMul, a, b)
}

// Neg returns -a.
func Neg(a Expr) Expr {
	if c, ok := a.(Const); ok {
		return -c
	}
	return Mul(Const(-1), a)
}

// Scale returns c * e.
func Scale(c float64, e Expr) Expr { return Mul(Const(c), e) }

// Div returns e / c, expressed as e * (1/c).
func Div(e Expr, c float64) Expr { return Mul(e, Const(1/c)) }

// Sum returns the sum of terms. An empty sum is 0 and a single term is
// returned unchanged.
func Sum(terms ...Expr) Expr {
	switch len(terms) {
	case 0:
		return Const(0)
	case 1:
		return terms[0]
	}
	args := make([]Expr, len(terms))
	copy(args, terms)
	return newOperation(KindSum, args...)
}

// Dot returns the scalar product of coeffs and exprs. Extra elements of the
// longer slice are ignored.
func Dot(coeffs []float64, exprs []Expr) Expr {
	n := min(len(coeffs), len(exprs))
	terms := make([]Expr, n)
	for i := 0; i < n; i++ {
		terms[i] = Mul(Const(coeffs[i]), exprs[i])
	}
	return Sum(terms...)
}

// Less returns the relation a < b.
func Less(a, b Expr) *Relation { return newRelation(KindLess, a, b) }

// Greater returns b < a.
func Greater(a, b Expr) *Relation { return newRelation(KindLess, b, a) }

// LessEqual returns the relation a <= b.
func LessEqual(a, b Expr) *Relation { return newRelation(KindLessEqual, a, b) }

// GreaterEqual returns b <= a.
func GreaterEqual(a, b Expr) *Relation { return newRelation(KindLessEqual, b, a) }

// Eq returns the relation a == b.
func Eq(a, b Expr) *Relation { return newRelation(KindEq, a, b) }

// ConcreteEvaluators evaluate expressions to float64 and relations to bool.
var ConcreteEvaluators = Evaluators{
	KindAdd: numeric(func(x []float64) any { return x[0] + x[1] }),
	KindSub: numeric(func(x []float64) any { return x[0] - x[1] }),
	KindMul: numeric(func(x []float64) any { return x[0] * x[1] }),
	KindSum: numeric(func(x []float64) any {
		var s float64
		for _, v := range x {
			s += v
		}
		return s
	}),
	KindLess:      numeric(func(x []float64) any { return x[0] < x[1] }),
	KindLessEqual: numeric(func(x []float64) any { return x[0] <= x[1] }),
	KindEq:        numeric(func(x []float64) any { return x[0] == x[1] }),
}

func numeric(f func([]float64) any) Evaluator {
	return func(args ...any) (any, error) {
		vals := make([]float64, len(args))
		for i, a := range args {
			v, ok := a.(float64)
			if !ok {
				return nil, fmt.Errorf("%w: %v", ErrNoValue, a)
			}
			vals[i] = v
		}
		return f(vals), nil
	}
}

func concreteValue(e Expr) (float64, error) {
	v, err := e.Evaluate(nil, ConcreteEvaluators)
	if err != nil {
		return 0, fmt.Errorf("cannot get a numeric value of %s: %w", e, err)
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("%w: %s evaluates to %v", ErrNoValue, e, v)
	}
	return f, nil
}

func evaluateArgs(args []Expr, replace Replacements, evaluators Evaluators) ([]any, error) {
	vals := make([]any, len(args))
	for i, a := range args {
		if v, ok := a.(*Variable); !ok || !v.HasValue() {
			if r, ok := replace.lookup(a); ok {
				vals[i] = r
				continue
			}
		}
		v, err := a.Evaluate(replace, evaluators)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

func apply(kind Kind, vals []any, evaluators Evaluators) (any, error) {
	if f, ok := evaluators[kind]; ok {
		return f(vals...)
	}
	return kind.Create(vals...)
}

func toExpr(v any) (Expr, error) {
	switch x := v.(type) {
	case Expr:
		return x, nil
	case float64:
		return Const(x), nil
	case float32:
		return Const(x), nil
	case int:
		return Const(x), nil
	case int64:
		return Const(x), nil
	default:
		return nil, fmt.Errorf("cannot use %v (%T) as an expression", v, v)
	}
}

func isConst(e Expr, v float64) bool {
	c, ok := e.(Const)
	return ok && float64(c) == v
}

func collectLeaves(args ...Expr) []Expr {
	seen := make(map[string]struct{})
	var out []Expr
	for _, a := range args {
		for _, l := range a.Leaves() {
			if _, ok := seen[l.Key()]; ok {
				continue
			}
			seen[l.Key()] = struct{}{}
			out = append(out, l)
		}
	}
	return out
}

func filterVariables(leaves []Expr) []*Variable {
	var out []*Variable
	for _, l := range leaves {
		if v, ok := l.(*Variable); ok {
			out = append(out, v)
		}
	}
	return out
}

func priority(k Kind) int {
	switch k {
	case KindMul:
		return 2
	case KindAdd, KindSub, KindSum:
		return 1
	default:
		return 0
	}
}

func formatArg(e Expr, parent int, strict bool) string {
	op, ok := e.(*Operation)
	if !ok {
		return e.String()
	}
	p := priority(op.kind)
	if p > parent || (p == parent && !strict) {
		return op.String()
	}
	return "(" + op.String() + ")"
}
