package mix

import "math"

// MEPS is the floor below which a forward-pass gnrm is treated as a
// collapsed iterate during backward.
const MEPS = 1e-24

// boundarySin is the floor below which sin(πz) of an input is treated as a
// boundary probability (z at or next to 0 or 1). It must sit above
// float32's |sin(π·1)| ≈ 8.7e-8, which is nonzero only because float32 π is:
// the non-finite check alone catches z == 0 (exact division by zero) but
// not z == 1.
const boundarySin = 1e-6

// BackwardParams bundles the inputs to Backward for a single instance.
type BackwardParams struct {
	ProxLam float32

	M, K int

	IsInput []bool
	Index   []int32
	Niter   int32

	S     []float32 // n*m, shared, read-only.
	Snrms []float32 // length n, shared, read-only.

	Z  []float32 // length n, read-only (populated by Forward).
	Dz []float32 // length n; incoming gradient in, outgoing gradient out.

	V    []float32 // n*k, read-only: the completed forward pass's V.
	U    []float32 // n*k, scratch in, adjoint variable out.
	W    []float32 // k*m, read-only: the completed forward pass's W.
	Phi  []float32 // k*m, scratch in, adjoint dual out.
	Gnrm []float32 // length n, read-only (populated by Forward).

	DS    []float32 // n*m; accumulated into, untouched on degeneracy.
	Cache []float32 // length k scratch.
}

// Backward treats the fixed point of Forward as a linear system and runs
// the adjoint sweep niter times, the same sweep count Forward used, then
// assembles the gradients with respect to the clause matrix (DS) and the
// input probabilities (Dz).
//
// Two numerical-degeneracy conditions zero Dz and return without touching
// DS: a non-finite or near-boundary transformed Dz (sin πz ≈ 0, or
// gnrm < MEPS for a collapsed output), and a non-finite U after the adjoint
// sweeps. Neither is a Go error: the caller gets a no-op gradient for this
// instance and the rest of the batch proceeds untouched.
func Backward(p BackwardParams) (degenerate bool) {
	n := len(p.Z)

	// The 1/(π sin πz) division applies to every variable's dz slot, inputs
	// included: the input-gradient assembly at the end multiplies the slot
	// back by sin(πz)·π, so the incoming direct gradient of an input passes
	// through unchanged rather than picking up a spurious π·sin(πz) factor
	// (an all-input instance must satisfy dz_out == dz_in). The reserved
	// variable 0 has no probability and is skipped.
	invalid := false
	for i := 1; i < n; i++ {
		sinz := sin32(float32(math.Pi) * p.Z[i])
		dzi := p.Dz[i] / (float32(math.Pi) * sinz)
		if isNonFinite(dzi) {
			invalid = true
		}
		if p.IsInput[i] {
			// At z = 0 or 1, sin(πz) collapses and V[i,1]'s sign convention
			// is undefined; float32 π makes sin(π·1) a small nonzero value,
			// so the non-finite check alone only catches z == 0.
			if sinz < boundarySin && sinz > -boundarySin {
				invalid = true
			}
		} else if p.Gnrm[i] < MEPS {
			invalid = true
		}
		p.Dz[i] = dzi
	}
	if invalid {
		Zero(p.Dz, n)
		return true
	}

	// Coordinate descent on the linearized system
	// Po (SᵀS + diag(gnrm) - diag(snrms)) Po U = -dz ⊗ v_truth,
	// regularized by ProxLam on the diagonal, run for exactly as many
	// sweeps as the forward pass took.
	Zero(p.U, n*p.K)
	Zero(p.Phi, p.K*p.M)
	for iter := int32(0); iter < p.Niter; iter++ {
		Sweep(KernelParams{
			Mode:    ModeBackward,
			ProxLam: p.ProxLam,
			M:       p.M,
			K:       p.K,
			Index:   p.Index,
			S:       p.S,
			Snrms:   p.Snrms,
			Dz:      p.Dz,
			V:       p.U,
			Vproj:   p.V,
			W:       p.Phi,
			Gnrm:    p.Gnrm,
			Cache:   p.Cache,
		})
	}

	for i := range p.U {
		if isNonFinite(p.U[i]) {
			invalid = true
			break
		}
	}
	if invalid {
		Zero(p.Dz, n)
		return true
	}

	// dS accumulation: for every variable i, including inputs,
	// dS[i] += U[i] ⊗ W + V[i] ⊗ Phi. Two rank-1 updates per row.
	for i := 0; i < n; i++ {
		dsi := p.DS[i*p.M : i*p.M+p.M]
		ui := p.U[i*p.K : i*p.K+p.K]
		vi := p.V[i*p.K : i*p.K+p.K]
		for kk := 0; kk < p.K; kk++ {
			Axpy(dsi, ui[kk], p.W[kk*p.M:kk*p.M+p.M], p.M)
			Axpy(dsi, vi[kk], p.Phi[kk*p.M:kk*p.M+p.M], p.M)
		}
	}

	// dz for inputs draws on components 0 and 1 of Phi, which carry all of
	// an input's gradient signal: an input row only ever has its first two
	// components populated, as -cos(πz) and ±sin(πz).
	phi0 := p.Phi[0*p.M : 0*p.M+p.M]
	phi1 := p.Phi[1*p.M : 1*p.M+p.M]
	for i := 1; i < n; i++ {
		if !p.IsInput[i] {
			p.Dz[i] = 0
			continue
		}
		si := p.S[i*p.M : i*p.M+p.M]
		val1 := Dot(si, phi0, p.M)
		val2 := Dot(si, phi1, p.M)
		zi := p.Z[i]
		// The val2 term is sign(V[i,1])·cos(πz[i])·π²: a product of two
		// independently signed factors, so cos keeps its own sign for
		// z > 0.5 rather than having V[i,1]'s sign imposed on |cos|.
		sign := copysign32(1, p.V[i*p.K+1])
		pi := float32(math.Pi)
		p.Dz[i] = (p.Dz[i]+val1)*sin32(pi*zi)*pi + val2*sign*cos32(pi*zi)*pi*pi
	}

	return false
}

func isNonFinite(x float32) bool {
	return math.IsNaN(float64(x)) || math.IsInf(float64(x), 0)
}
