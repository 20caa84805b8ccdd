// Package lp holds a small linear-program model (continuous, non-negative
// variables, minimization) and the adapter that solves it with gonum's
// simplex implementation.
package lp

import "fmt"

// Sense is the relation of a constraint's left-hand side to its right-hand side.
type Sense int

const (
	LE Sense = iota // <=
	GE              // >=
	EQ              // ==
)

func (s Sense) String() string {
	switch s {
	case LE:
		return "<="
	case GE:
		return ">="
	case EQ:
		return "=="
	}
	return fmt.Sprintf("Sense(%d)", int(s))
}

// Var is a handle to a decision variable of a Problem.
type Var struct{ id int }

// ID returns the column index of the variable.
func (v Var) ID() int { return v.id }

// Term is a coefficient applied to a variable.
type Term struct {
	Var  Var
	Coef float64
}

// T is shorthand for Term{v, coef}.
func T(v Var, coef float64) Term { return Term{Var: v, Coef: coef} }

// Constraint is a named linear row: sum(Terms) Sense RHS.
type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Problem is a minimization LP over continuous variables bounded below by zero.
type Problem struct {
	Name  string
	names []string
	cost  []float64
	rows  []Constraint
}

func NewProblem(name string) *Problem {
	return &Problem{Name: name}
}

// NewVar adds a continuous variable with lower bound 0.
func (p *Problem) NewVar(name string) Var {
	p.names = append(p.names, name)
	p.cost = append(p.cost, 0)
	return Var{id: len(p.names) - 1}
}

func (p *Problem) NumVars() int        { return len(p.names) }
func (p *Problem) NumConstraints() int { return len(p.rows) }

// VarName returns the name given to v at creation.
func (p *Problem) VarName(v Var) string {
	p.check(v)
	return p.names[v.id]
}

// Constraints returns the rows in insertion order. The slice must not be modified.
func (p *Problem) Constraints() []Constraint { return p.rows }

// Cost returns the objective coefficient of v.
func (p *Problem) Cost(v Var) float64 {
	p.check(v)
	return p.cost[v.id]
}

// SetObjective replaces the objective with the given terms (minimized).
func (p *Problem) SetObjective(terms ...Term) {
	for i := range p.cost {
		p.cost[i] = 0
	}
	for _, t := range terms {
		p.check(t.Var)
		p.cost[t.Var.id] += t.Coef
	}
}

// AddConstraint appends a row. Terms are copied.
func (p *Problem) AddConstraint(name string, terms []Term, sense Sense, rhs float64) {
	for _, t := range terms {
		p.check(t.Var)
	}
	if sense != LE && sense != GE && sense != EQ {
		panic(fmt.Sprintf("lp: constraint %s has unknown sense %d", name, int(sense)))
	}
	cp := make([]Term, len(terms))
	copy(cp, terms)
	p.rows = append(p.rows, Constraint{Name: name, Terms: cp, Sense: sense, RHS: rhs})
}

// ObjectiveValue evaluates the objective at values (indexed by Var.ID).
func (p *Problem) ObjectiveValue(values []float64) float64 {
	var f float64
	for i, c := range p.cost {
		if c != 0 && i < len(values) {
			f += c * values[i]
		}
	}
	return f
}

func (p *Problem) check(v Var) {
	if v.id < 0 || v.id >= len(p.names) {
		panic(fmt.Sprintf("lp: variable %d does not belong to problem %s", v.id, p.Name))
	}
}
