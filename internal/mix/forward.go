package mix

import "math"

// ForwardParams bundles the inputs to Forward for a single instance.
type ForwardParams struct {
	MaxIter int
	Eps     float32

	M, K int

	Index []int32
	S     []float32
	Snrms []float32

	Z     []float32 // length n, read (inputs) and written (outputs).
	V     []float32 // n*k, read/write.
	W     []float32 // k*m, read/write, invariant W = Vᵀ S.
	Gnrm  []float32 // length n, written.
	Cache []float32 // length k scratch.
}

// Forward repeats Sweep in ModeForward until the per-sweep decrease falls
// below a ratio of the first sweep's decrease, or MaxIter is reached, then
// converts every output variable's unit vector back into a probability. It
// returns niter, the index of the sweep on which the stopping rule fired
// (one less than the number of sweeps run, so a run that stops on its
// second sweep returns 1), which the caller must thread through to Backward
// unchanged.
//
// Forward never reports failure: non-convergence within MaxIter is a silent
// fallthrough, with the returned niter equal to MaxIter.
func Forward(p ForwardParams) int32 {
	var epsPrime float32
	iter := 0
	for ; iter < p.MaxIter; iter++ {
		delta := Sweep(KernelParams{
			Mode:  ModeForward,
			M:     p.M,
			K:     p.K,
			Index: p.Index,
			S:     p.S,
			Snrms: p.Snrms,
			V:     p.V,
			W:     p.W,
			Gnrm:  p.Gnrm,
			Cache: p.Cache,
		})
		if iter == 0 {
			epsPrime = delta * p.Eps
			continue
		}
		// "<=" rather than "<": an instance with no output variables
		// reports delta == 0 == epsPrime on every sweep, and a strict
		// comparison would spin until MaxIter instead of converging on
		// the second sweep. With epsPrime > 0 the two are equivalent up
		// to an exact floating-point tie.
		if delta <= epsPrime {
			break
		}
	}

	niter := int32(iter)

	for ii := 0; ; ii++ {
		o := int(p.Index[ii])
		if o == 0 {
			break
		}
		zi := p.V[o*p.K]
		zi = Saturate((zi+1)/2)*2 - 1
		zi = Saturate(1 - acos32(zi)/float32(math.Pi))
		p.Z[o] = zi
	}

	return niter
}
