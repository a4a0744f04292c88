package lp

import (
	"fmt"
	"math"

	"github.com/plateplan/backend/internal/domain"
)

// Op is the comparison operator of a linear constraint.
type Op int

const (
	LE Op = iota // Σ terms <= rhs
	GE           // Σ terms >= rhs
	EQ           // Σ terms == rhs
)

// Term is one coefficient of a linear expression, keyed by variable name.
type Term struct {
	Var  string
	Coef float64
}

// Constraint is one linear constraint over named variables.
type Constraint struct {
	Terms []Term
	Op    Op
	RHS   float64
}

// Variable is a continuous decision variable with inclusive bounds.
// Use math.Inf for an unbounded side.
type Variable struct {
	Name string
	Min  float64
	Max  float64
}

// Model is a minimization linear program over named variables. Each solve
// call owns its own Model; models are not safe for concurrent mutation.
type Model struct {
	vars      []Variable
	index     map[string]int
	cons      []Constraint
	objective map[string]float64
}

// NewModel creates an empty minimization model.
func NewModel() *Model {
	return &Model{
		index:     make(map[string]int),
		objective: make(map[string]float64),
	}
}

// AddVariable registers a bounded variable. Names must be unique within the
// model and min must not exceed max.
func (m *Model) AddVariable(name string, min, max float64) error {
	if _, exists := m.index[name]; exists {
		return fmt.Errorf("%w: duplicate variable %q", domain.ErrMalformedModel, name)
	}
	if min > max {
		return fmt.Errorf("%w: variable %q has min %v > max %v", domain.ErrMalformedModel, name, min, max)
	}
	m.index[name] = len(m.vars)
	m.vars = append(m.vars, Variable{Name: name, Min: min, Max: max})
	return nil
}

// HasVariable reports whether a variable with the given name exists.
func (m *Model) HasVariable(name string) bool {
	_, ok := m.index[name]
	return ok
}

// NumVariables returns the number of registered variables.
func (m *Model) NumVariables() int { return len(m.vars) }

// NumConstraints returns the number of registered constraints.
func (m *Model) NumConstraints() int { return len(m.cons) }

// AddConstraint appends a linear constraint.
func (m *Model) AddConstraint(op Op, rhs float64, terms ...Term) {
	m.cons = append(m.cons, Constraint{Terms: terms, Op: op, RHS: rhs})
}

// AddObjectiveCoef accumulates a coefficient onto the minimized objective.
func (m *Model) AddObjectiveCoef(name string, coef float64) {
	m.objective[name] += coef
}

// ObjectiveCoef returns the current objective coefficient of a variable.
func (m *Model) ObjectiveCoef(name string) float64 { return m.objective[name] }

// validate checks that every constraint and objective term references a
// registered variable and that the model is non-empty.
func (m *Model) validate() error {
	if len(m.vars) == 0 {
		return fmt.Errorf("%w: no variables", domain.ErrMalformedModel)
	}
	for _, c := range m.cons {
		for _, t := range c.Terms {
			if _, ok := m.index[t.Var]; !ok {
				return fmt.Errorf("%w: constraint references unknown variable %q", domain.ErrMalformedModel, t.Var)
			}
		}
	}
	for name := range m.objective {
		if _, ok := m.index[name]; !ok {
			return fmt.Errorf("%w: objective references unknown variable %q", domain.ErrMalformedModel, name)
		}
	}
	return nil
}

// matrices flattens the model into dense inequality (G x <= h) and equality
// (A x = b) blocks. Variable bounds become inequality rows; GE rows are
// negated into LE form.
func (m *Model) matrices() (c []float64, gData []float64, h []float64, aData []float64, b []float64) {
	n := len(m.vars)

	c = make([]float64, n)
	for name, coef := range m.objective {
		c[m.index[name]] = coef
	}

	appendIneq := func(row []float64, rhs float64) {
		gData = append(gData, row...)
		h = append(h, rhs)
	}

	for i, v := range m.vars {
		if !math.IsInf(v.Max, 1) {
			row := make([]float64, n)
			row[i] = 1
			appendIneq(row, v.Max)
		}
		if !math.IsInf(v.Min, -1) {
			row := make([]float64, n)
			row[i] = -1
			appendIneq(row, -v.Min)
		}
	}

	for _, con := range m.cons {
		row := make([]float64, n)
		for _, t := range con.Terms {
			row[m.index[t.Var]] += t.Coef
		}
		switch con.Op {
		case LE:
			appendIneq(row, con.RHS)
		case GE:
			neg := make([]float64, n)
			for i := range row {
				neg[i] = -row[i]
			}
			appendIneq(neg, -con.RHS)
		case EQ:
			aData = append(aData, row...)
			b = append(b, con.RHS)
		}
	}

	return c, gData, h, aData, b
}
