// Copyright 2025 Mixsat Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package mix provides a differentiable, batched MAXSAT relaxation layer
// based on the mixing method: a dense coordinate-descent solver over unit
// vectors on a sphere, with an analytic backward pass for use inside a
// larger gradient-based training loop.
//
// # Overview
//
// Each problem instance is a low-rank clause matrix paired with a set of
// input variable probabilities; the forward pass produces output variable
// probabilities by coordinate descent, and the backward pass differentiates
// that fixed point with respect to both the clause matrix and the inputs.
// This package provides:
//   - Batch: owns every buffer for b instances sharing one n, m, k shape
//   - Init, Forward, Backward: the three batched operations over a Batch
//
// # Basic Usage
//
//	import "github.com/born-ml/mixsat/mix"
//
//	func main() {
//	    batch, err := mix.NewBatch(mix.Shape{B: 4, N: 5, M: 8, K: 8})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    // Caller fills batch.S, batch.IsInput, batch.Z (inputs) and a
//	    // per-instance output permutation before calling Init.
//	    rng := rand.New(rand.NewSource(0))
//	    if err := batch.Init(perms, rng); err != nil {
//	        log.Fatal(err)
//	    }
//	    batch.Forward(mix.ForwardConfig{MaxIter: 1000, Eps: 1e-4})
//
//	    // batch.Z now holds output probabilities; train against them, then
//	    // backpropagate an upstream gradient through batch.Dz.
//	    batch.Backward(1e-4)
//	    // batch.DS now holds the clause-matrix gradient.
//	}
//
// # Shape
//
// Every instance in a Batch shares N (variable count, including the
// reserved variable 0), M (clause rank, a multiple of 4) and K (embedding
// dimension, a multiple of 4). The clause matrix S and its row norms are
// shared read-only across the batch; every other buffer is per-instance.
//
// # Degenerate instances
//
// Forward never fails: an instance with no output variables converges in
// one sweep by construction. Backward treats a non-finite or collapsed
// gradient as a silent no-op: the affected instance's slice of Dz is
// zeroed and it contributes nothing to the shared DS, rather than poisoning the
// rest of the batch or returning a Go error. Construction-time usage
// violations (bad shape) are reported as an error from NewBatch; numerical
// degeneracy during Forward/Backward never is.
package mix
