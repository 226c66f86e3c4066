// Package verify provides an exact CNF oracle used only to cross-check the
// mixing method's relaxed output against ground truth in tests and the CLI
// demo. It is never on the forward/backward path itself; the relaxation
// layer performs no exact SAT solving.
package verify

import (
	"github.com/go-air/gini"
	"github.com/go-air/gini/z"
)

// Clause is a DIMACS-style clause: a list of signed variable indices, one
// per literal, positive for the variable and negative for its negation.
// Variable indices are 1-based, as in DIMACS CNF.
type Clause []int

// Solve runs an exact DPLL/CDCL search over nVars boolean variables subject
// to clauses, returning the satisfying assignment (1-indexed, values[0]
// unused) if one exists. ok is false if the instance is unsatisfiable.
func Solve(nVars int, clauses []Clause) (values []bool, ok bool) {
	g := gini.New()
	for _, c := range clauses {
		for _, lit := range c {
			g.Add(dimacsLit(lit))
		}
		g.Add(z.LitNull)
	}

	if g.Solve() != 1 {
		return nil, false
	}

	values = make([]bool, nVars+1)
	for v := 1; v <= nVars; v++ {
		values[v] = g.Value(z.Var(v).Pos())
	}
	return values, true
}

func dimacsLit(x int) z.Lit {
	if x < 0 {
		return z.Var(-x).Neg()
	}
	return z.Var(x).Pos()
}

// XOR3 returns the standard Tseitin CNF encoding of out = a XOR b, over
// variables 1=a, 2=b, 3=out: the 4-clause form the XOR demo solves exactly
// as the reference answer for each row. The demo's low-rank clause matrix is
// a separate auxiliary-variable encoding, not an embedding of these clauses.
func XOR3() []Clause {
	const a, b, out = 1, 2, 3
	return []Clause{
		{-a, -b, -out},
		{a, b, -out},
		{a, -b, out},
		{-a, b, out},
	}
}
