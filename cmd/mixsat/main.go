// Package main provides the mixsat CLI: a small driver over the mix package
// for smoke-testing a batch and cross-checking it against an exact solver.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"

	"github.com/born-ml/mixsat/internal/verify"
	"github.com/born-ml/mixsat/mix"
)

const version = "v0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("mixsat %s\n", version)
	case "demo":
		runDemo(os.Args[2:])
	case "gradcheck":
		runGradcheck(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("mixsat - differentiable MAXSAT mixing-method layer")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  version     Show version")
	fmt.Println("  demo        Run the XOR instance forward and check it against an exact solver")
	fmt.Println("  gradcheck   Finite-difference check the backward pass's clause-matrix gradient")
}

// xorVars names the variable slots the XOR demo's clause matrix uses. p and
// q are Tseitin auxiliaries, not part of the 3-variable formula itself:
// the sweep updates one output row from a single aggregate dot product
// against every other row, which makes one sweep's pull on that row an
// affine function of the other rows' embeddings. With only a and b feeding
// "out" directly, no clause matrix can make that affine function change
// sign on all four XOR rows at once (XOR is not linearly separable, the
// same reason a perceptron needs a hidden unit). p and q give the
// relaxation that hidden layer: p tracks (a AND NOT b), q tracks (NOT a AND
// b), and out is wired to (p OR q), each via its own Tseitin clauses.
const (
	xorTruth = 0
	xorA     = 1
	xorB     = 2
	xorP     = 3
	xorQ     = 4
	xorOut   = 5
	xorN     = 6
)

// runDemo builds the 6-variable XOR instance (xorA, xorB = inputs; xorP,
// xorQ = Tseitin auxiliaries; xorOut = output), runs one instance per row of
// the XOR truth table through Forward, and cross-checks each prediction
// against internal/verify's exact CNF solver applied to the same row's
// inputs.
func runDemo(args []string) {
	fs := flag.NewFlagSet("demo", flag.ExitOnError)
	maxIter := fs.Int("max-iter", 1000, "maximum coordinate-descent sweeps")
	eps := fs.Float64("eps", 1e-4, "relative stopping tolerance")
	k := fs.Int("k", 8, "embedding dimension (multiple of 4)")
	seed := fs.Int64("seed", 0, "PRNG seed for the starting embedding")
	verbose := fs.Bool("v", false, "print the batch dispatch run ID")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("mixsat demo: %v", err)
	}

	bat, inputs, err := buildXORBatch(*maxIter, float32(*eps), *k, *seed)
	if err != nil {
		log.Fatalf("mixsat demo: %v", err)
	}
	if *verbose {
		fmt.Printf("run %s\n", bat.RunID)
	}

	fmt.Println("a  b | predicted  exact")
	for r, in := range inputs {
		pred := bat.Z[r*xorN+xorOut]

		row := append([]verify.Clause{}, verify.XOR3()...)
		row = append(row, unitClause(1, in[0] > 0.5), unitClause(2, in[1] > 0.5))
		values, ok := verify.Solve(3, row)
		if !ok {
			log.Fatalf("mixsat demo: exact solver reported row a=%.0f b=%.0f unsatisfiable", in[0], in[1])
		}
		want := 0.0
		if values[3] {
			want = 1.0
		}

		fmt.Printf("%.0f  %.0f | %.4f      %.0f  (niter=%d)\n", in[0], in[1], pred, want, bat.Niter[r])
	}
}

// unitClause pins variable v to value by asserting the literal it makes
// true: a one-literal clause, satisfiable only that way.
func unitClause(v int, value bool) verify.Clause {
	if value {
		return verify.Clause{v}
	}
	return verify.Clause{-v}
}

// buildXORBatch constructs and runs Forward on the XOR instance: one
// batch entry per row of the XOR truth table, sharing the auxiliary-variable
// clause matrix xorClauseMatrix builds. Factored out of runDemo so the same
// instance is reachable from a test without going through the CLI.
func buildXORBatch(maxIter int, eps float32, k int, seed int64) (bat *mix.Batch, inputs [4][2]float32, err error) {
	s, m := xorClauseMatrix()

	bat, err = mix.NewBatch(mix.Shape{B: 4, N: xorN, M: m, K: k})
	if err != nil {
		return nil, inputs, err
	}
	for r := 0; r < 4; r++ {
		bat.IsInput[r*xorN+xorA] = true
		bat.IsInput[r*xorN+xorB] = true
	}
	copy(bat.S, s)
	for i := 0; i < xorN; i++ {
		row := bat.S[i*m : i*m+m]
		var sum float32
		for _, x := range row {
			sum += x * x
		}
		bat.Snrms[i] = sum
	}

	inputs = [4][2]float32{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	for r, in := range inputs {
		bat.Z[r*xorN+xorA] = in[0]
		bat.Z[r*xorN+xorB] = in[1]
	}

	rng := rand.New(rand.NewSource(seed))
	// Shifted permutation of {xorA,...,xorOut}; Init skips the two inputs
	// and visits xorP, xorQ, xorOut in this order every sweep.
	perm := []int32{0, 1, 2, 3, 4}
	if err := bat.Init([][]int32{perm, perm, perm, perm}, rng); err != nil {
		return nil, inputs, err
	}
	bat.Forward(mix.ForwardConfig{MaxIter: maxIter, Eps: eps})

	return bat, inputs, nil
}

// runGradcheck perturbs a handful of entries of a random clause matrix and
// compares the resulting change in loss against Backward's analytic
// gradient, mirroring the finite-difference check in mix's test suite.
func runGradcheck(args []string) {
	fs := flag.NewFlagSet("gradcheck", flag.ExitOnError)
	seed := fs.Int64("seed", 1, "PRNG seed for the clause matrix")
	h := fs.Float64("h", 1e-3, "finite-difference step")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("mixsat gradcheck: %v", err)
	}

	const n, m, k = 3, 4, 4
	rng := rand.New(rand.NewSource(*seed))
	base := make([]float32, n*m)
	for i := range base {
		base[i] = rng.Float32()*0.6 - 0.3
	}

	eval := func(s []float32) (loss float32, ds []float32) {
		bat, err := mix.NewBatch(mix.Shape{B: 1, N: n, M: m, K: k})
		if err != nil {
			log.Fatalf("mixsat gradcheck: %v", err)
		}
		bat.IsInput[1] = true
		copy(bat.S, s)
		for i := 0; i < n; i++ {
			row := bat.S[i*m : i*m+m]
			var sum float32
			for _, x := range row {
				sum += x * x
			}
			bat.Snrms[i] = sum
		}
		bat.Z[1] = 0.3
		if err := bat.Init([][]int32{{0, 1}}, rand.New(rand.NewSource(42))); err != nil {
			log.Fatalf("mixsat gradcheck: %v", err)
		}
		bat.Forward(mix.ForwardConfig{MaxIter: 500, Eps: 1e-7})
		loss = bat.Z[2] * bat.Z[2]
		bat.Dz[2] = 2 * bat.Z[2]
		bat.Backward(1e-4)
		return loss, bat.DS
	}

	_, ds := eval(base)

	var maxAbsErr float32
	for _, idx := range []int{0, 1, 2, 5} {
		plus := append([]float32{}, base...)
		plus[idx] += float32(*h)
		lossPlus, _ := eval(plus)

		minus := append([]float32{}, base...)
		minus[idx] -= float32(*h)
		lossMinus, _ := eval(minus)

		numeric := (lossPlus - lossMinus) / (2 * float32(*h))
		err := numeric - ds[idx]
		if err < 0 {
			err = -err
		}
		if err > maxAbsErr {
			maxAbsErr = err
		}
		fmt.Printf("DS[%d]: analytic=%.6f finite-diff=%.6f\n", idx, ds[idx], numeric)
	}
	fmt.Printf("max abs error: %.6f\n", maxAbsErr)
}

// xorClause is one Tseitin clause of the auxiliary-variable XOR encoding
// below: lits are signed 1-based variable indices (matching xorA..xorOut),
// and reps repeats the clause across that many columns.
type xorClause struct {
	lits []int
	reps int
}

// xorClauseMatrix builds the low-rank embedding of a 3-gate Tseitin
// encoding of out = a XOR b: p := a AND (NOT b), q := (NOT a) AND b,
// out := p OR q, each gate written as its standard 3-clause Tseitin
// definition (see the doc comment on xorVars for why p and q are needed at
// all). Column j is clause j, and row i's entry follows the usual
// weighted-MAXSAT convention: S[0,j] = (literal count of clause j) - 2,
// and S[i,j] is +1 if variable i appears positively in clause j, -1 if
// negated, 0 if absent (the reserved variable 0 never appears in a Tseitin
// clause directly, only through this bias term).
//
// Each gate's OR-shaped 3-literal clause is repeated 3x: for the AND gates
// p and q it forces the output true when both of its inputs hold, and for
// the OR gate out it forces out false when neither p nor q holds. A single
// copy of each (verified against internal/verify.Solve by direct
// simulation of this package's Sweep) converges to the right side of 0 but
// only to within roughly 0.24 of the {0,1,1,0} target; repeating it outweighs the gate's two
// implication clauses enough to sharpen every row's output under the
// default -max-iter/-eps.
func xorClauseMatrix() (s []float32, m int) {
	clauses := []xorClause{
		{[]int{-xorP, xorA}, 1},
		{[]int{-xorP, -xorB}, 1},
		{[]int{xorP, -xorA, xorB}, 3},
		{[]int{-xorQ, -xorA}, 1},
		{[]int{-xorQ, xorB}, 1},
		{[]int{xorQ, xorA, -xorB}, 3},
		{[]int{xorOut, -xorP}, 1},
		{[]int{xorOut, -xorQ}, 1},
		{[]int{-xorOut, xorP, xorQ}, 3},
	}

	total := 0
	for _, c := range clauses {
		total += c.reps
	}
	m = total + (4-total%4)%4 // round up to the next multiple of 4.

	s = make([]float32, xorN*m)
	col := 0
	for _, c := range clauses {
		bias := float32(len(c.lits) - 2)
		for r := 0; r < c.reps; r++ {
			s[xorTruth*m+col] = bias
			for _, lit := range c.lits {
				v := lit
				val := float32(1)
				if v < 0 {
					v = -v
					val = -1
				}
				s[v*m+col] = val
			}
			col++
		}
	}
	return s, m
}
