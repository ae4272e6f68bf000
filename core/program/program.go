// Package program holds the solver-agnostic representation of a built
// decision problem: variables, linear constraints, and an objective.
package program

import (
	"fmt"

	"github.com/voltmesh/prodsim/core/model"
)

// Sense is the direction of a linear constraint.
type Sense int

const (
	LessEq Sense = iota
	GreaterEq
	Equal
)

func (s Sense) String() string {
	switch s {
	case LessEq:
		return "<="
	case GreaterEq:
		return ">="
	default:
		return "=="
	}
}

// Variable is a single scalar decision variable addressed by
// (key, device, period).
type Variable struct {
	Key    model.VariableKey
	Device string
	Period int
	Lower  float64
	Upper  float64
	// Integral marks binary commitment variables. Solvers without
	// integer support solve the continuous relaxation.
	Integral bool
	// Cost is the variable's objective coefficient.
	Cost float64
}

type varAddr struct {
	key    model.VariableKey
	device string
	period int
}

// Term is one coefficient in a constraint row.
type Term struct {
	Var   int
	Coeff float64
}

// Constraint is a linear row: sum(terms) sense rhs.
type Constraint struct {
	Name  string
	Sense Sense
	RHS   float64
	Terms []Term
}

// LinearProgram is a minimization problem over nonnegative-bounded
// variables.
type LinearProgram struct {
	vars  []Variable
	cons  []Constraint
	index map[varAddr]int
}

// New returns an empty program.
func New() *LinearProgram {
	return &LinearProgram{index: make(map[varAddr]int)}
}

// AddVariable appends a variable and returns its column index.
func (p *LinearProgram) AddVariable(v Variable) int {
	idx := len(p.vars)
	p.vars = append(p.vars, v)
	p.index[varAddr{v.Key, v.Device, v.Period}] = idx
	return idx
}

// AddConstraint appends a constraint row.
func (p *LinearProgram) AddConstraint(c Constraint) {
	p.cons = append(p.cons, c)
}

// Lookup returns the column index for (key, device, period).
func (p *LinearProgram) Lookup(key model.VariableKey, device string, period int) (int, bool) {
	idx, ok := p.index[varAddr{key, device, period}]
	return idx, ok
}

// Variables returns the program's columns in index order.
func (p *LinearProgram) Variables() []Variable { return p.vars }

// Constraints returns the program's rows.
func (p *LinearProgram) Constraints() []Constraint { return p.cons }

// NumVariables returns the column count.
func (p *LinearProgram) NumVariables() int { return len(p.vars) }

// Validate checks bounds consistency.
func (p *LinearProgram) Validate() error {
	for i, v := range p.vars {
		if v.Lower > v.Upper {
			return fmt.Errorf("variable %d (%s/%s t=%d): lower %v exceeds upper %v",
				i, v.Key, v.Device, v.Period, v.Lower, v.Upper)
		}
	}
	for _, c := range p.cons {
		for _, t := range c.Terms {
			if t.Var < 0 || t.Var >= len(p.vars) {
				return fmt.Errorf("constraint %s references unknown column %d", c.Name, t.Var)
			}
		}
	}
	return nil
}
