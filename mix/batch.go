// Copyright 2025 Mixsat Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package mix

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/born-ml/mixsat/internal/mix"
	"github.com/born-ml/mixsat/internal/parallel"
)

// Shape describes the dimensions every instance in a Batch shares.
type Shape struct {
	B int // batch size: number of independent instances run side by side.
	N int // variable count, including the reserved truth variable 0.
	M int // clause rank (columns of S); must be a positive multiple of 4.
	K int // embedding dimension; must be a positive multiple of 4.
}

// Batch owns every dense buffer needed to run the mixing method over B
// instances sharing one clause matrix. S and its row norms are read-only
// across the batch; every other buffer, the input/output role mask
// included, is per-instance.
//
// Callers populate S, Snrms, IsInput and the input entries of Z before
// calling Init, then Init, Forward and Backward in that order. DS
// accumulates the clause-matrix gradient summed across every instance in
// the batch, since all B instances share the same S.
type Batch struct {
	Shape Shape

	S     []float32 // N*M, shared.
	Snrms []float32 // N, shared.

	IsInput []bool // B*N: which variables are fixed inputs, per instance.

	Z     []float32 // B*N: inputs read, outputs written by Forward.
	V     []float32 // B*N*K.
	W     []float32 // B*K*M, invariant Vᵀ S per instance.
	Gnrm  []float32 // B*N.
	Niter []int32   // B, written by Forward.

	index32 []int32 // B*N, zero-sentinel-terminated permutation per instance.

	Dz  []float32 // B*N: upstream gradient in, input gradient out.
	U   []float32 // B*N*K scratch.
	Phi []float32 // B*K*M scratch.

	DS         []float32 // N*M, accumulated across every instance.
	Degenerate []bool    // B, written by Backward.

	// RunID is stamped by the most recent Forward or Backward dispatch so a
	// caller's logs can correlate the two halves of one training step across
	// goroutines. It carries no semantics beyond that.
	RunID uuid.UUID

	cache []float32 // B*K per-instance scratch for Sweep.

	parallelCfg parallel.Config
}

// ForwardConfig controls the forward pass's stopping rule.
type ForwardConfig struct {
	MaxIter int
	Eps     float32
}

// NewBatch allocates a Batch for the given shape, or reports a usage error
// if the shape violates the dense-primitive alignment contract.
func NewBatch(shape Shape) (*Batch, error) {
	if err := mix.ValidateShape(shape.B, shape.N, shape.M, shape.K); err != nil {
		return nil, err
	}

	b, n, m, k := shape.B, shape.N, shape.M, shape.K
	bat := &Batch{
		Shape:   shape,
		S:       make([]float32, n*m),
		Snrms:   make([]float32, n),
		IsInput: make([]bool, b*n),

		Z:     make([]float32, b*n),
		V:     make([]float32, b*n*k),
		W:     make([]float32, b*k*m),
		Gnrm:  make([]float32, b*n),
		Niter: make([]int32, b),

		index32: make([]int32, b*n),

		Dz:  make([]float32, b*n),
		U:   make([]float32, b*n*k),
		Phi: make([]float32, b*k*m),

		DS:         make([]float32, n*m),
		Degenerate: make([]bool, b),

		cache: make([]float32, b*k),

		parallelCfg: parallel.DefaultConfig(),
	}
	return bat, nil
}

// SetParallelConfig overrides the default worker-pool configuration used by
// Forward and Backward.
func (bat *Batch) SetParallelConfig(cfg parallel.Config) {
	bat.parallelCfg = cfg
}

// Init sets the reserved truth row, randomizes every instance's starting
// embedding, and builds each instance's sweep order from perms, one
// permutation of {0,...,N-2} per instance.
//
// rng drives the initial random direction of output variables and the sign
// of component 1 of each input row, which InitRows keeps; it is the
// caller's responsibility to seed it for reproducibility.
func (bat *Batch) Init(perms [][]int32, rng *rand.Rand) error {
	n, k, b := bat.Shape.N, bat.Shape.K, bat.Shape.B
	if len(perms) != b {
		return fmt.Errorf("mix: Init needs %d permutations, got %d", b, len(perms))
	}
	for r, perm := range perms {
		if len(perm) != n-1 {
			return fmt.Errorf("mix: permutation %d has length %d, want %d", r, len(perm), n-1)
		}
	}

	for r := 0; r < b; r++ {
		v := bat.V[r*n*k : r*n*k+n*k]
		v[0] = 1 // truth direction: (1, 0, 0, ...).
		for i := 1; i < n; i++ {
			row := v[i*k : i*k+k]
			for kk := range row {
				row[kk] = rng.Float32()*2 - 1
			}
		}

		isInput := bat.IsInput[r*n : r*n+n]
		z := bat.Z[r*n : r*n+n]
		mix.InitRows(n, k, isInput, z, v)

		index := bat.index32[r*n : r*n+n]
		mix.BuildIndex(n, isInput, perms[r], index)

		w := bat.W[r*k*bat.Shape.M : r*k*bat.Shape.M+k*bat.Shape.M]
		mix.Zero(w, k*bat.Shape.M)
		for i := 0; i < n; i++ {
			vi := v[i*k : i*k+k]
			si := bat.S[i*bat.Shape.M : i*bat.Shape.M+bat.Shape.M]
			for kk := 0; kk < k; kk++ {
				mix.Axpy(w[kk*bat.Shape.M:kk*bat.Shape.M+bat.Shape.M], vi[kk], si, bat.Shape.M)
			}
		}
	}
	return nil
}

// Forward runs the coordinate-descent sweep to (approximate) convergence
// independently for every instance in the batch, dispatched across
// parallel.Launch's dynamic work-stealing pool since each instance's sweep
// count varies with its own convergence.
func (bat *Batch) Forward(cfg ForwardConfig) {
	n, m, k, b := bat.Shape.N, bat.Shape.M, bat.Shape.K, bat.Shape.B
	bat.RunID = parallel.Launch(b, func(r int) {
		p := mix.ForwardParams{
			MaxIter: cfg.MaxIter,
			Eps:     cfg.Eps,
			M:       m,
			K:       k,
			Index:   bat.index32[r*n : r*n+n],
			S:       bat.S,
			Snrms:   bat.Snrms,
			Z:       bat.Z[r*n : r*n+n],
			V:       bat.V[r*n*k : r*n*k+n*k],
			W:       bat.W[r*k*m : r*k*m+k*m],
			Gnrm:    bat.Gnrm[r*n : r*n+n],
			Cache:   bat.cache[r*k : r*k+k],
		}
		bat.Niter[r] = mix.Forward(p)
	}, bat.parallelCfg)
}

// Backward differentiates every instance's forward fixed point and sums
// the resulting clause-matrix gradients into DS, since every instance
// shares the same S. An instance whose gradient is numerically degenerate
// contributes zero to DS and has its slice of Dz zeroed, without affecting
// any other instance.
func (bat *Batch) Backward(proxLam float32) {
	n, m, k, b := bat.Shape.N, bat.Shape.M, bat.Shape.K, bat.Shape.B

	perInstanceDS := make([][]float32, b)

	bat.RunID = parallel.Launch(b, func(r int) {
		ds := make([]float32, n*m)
		p := mix.BackwardParams{
			ProxLam: proxLam,
			M:       m,
			K:       k,
			IsInput: bat.IsInput[r*n : r*n+n],
			Index:   bat.index32[r*n : r*n+n],
			Niter:   bat.Niter[r],
			S:       bat.S,
			Snrms:   bat.Snrms,
			Z:       bat.Z[r*n : r*n+n],
			Dz:      bat.Dz[r*n : r*n+n],
			V:       bat.V[r*n*k : r*n*k+n*k],
			U:       bat.U[r*n*k : r*n*k+n*k],
			W:       bat.W[r*k*m : r*k*m+k*m],
			Phi:     bat.Phi[r*k*m : r*k*m+k*m],
			Gnrm:    bat.Gnrm[r*n : r*n+n],
			DS:      ds,
			Cache:   bat.cache[r*k : r*k+k],
		}
		bat.Degenerate[r] = mix.Backward(p)
		perInstanceDS[r] = ds
	}, bat.parallelCfg)

	mix.Zero(bat.DS, n*m)
	for r := 0; r < b; r++ {
		mix.Axpy(bat.DS, 1, perInstanceDS[r], n*m)
	}
}
