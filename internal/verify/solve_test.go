package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXOR3IsSatisfiableAndMatchesTruthTable(t *testing.T) {
	cases := []struct {
		a, b, want bool
	}{
		{false, false, false},
		{false, true, true},
		{true, false, true},
		{true, true, false},
	}

	for _, c := range cases {
		clauses := append([]Clause{}, XOR3()...)
		lit := func(v int, val bool) Clause {
			if val {
				return Clause{v}
			}
			return Clause{-v}
		}
		clauses = append(clauses, lit(1, c.a), lit(2, c.b))

		values, ok := Solve(3, clauses)
		require.True(t, ok)
		assert.Equal(t, c.want, values[3])
	}
}

func TestSolveReportsUnsat(t *testing.T) {
	clauses := []Clause{
		{1},
		{-1},
	}
	_, ok := Solve(1, clauses)
	assert.False(t, ok)
}
