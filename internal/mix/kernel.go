package mix

// Mode selects which of the two coordinate-descent variants Sweep runs. The
// two share everything except how the per-output gradient g is turned into
// a new row and whether a decrease is accumulated.
type Mode int

const (
	// ModeForward normalizes -g onto the unit sphere and records the
	// per-output gradient magnitude for later reuse by ModeBackward.
	ModeForward Mode = iota
	// ModeBackward projects g onto the tangent plane of the completed
	// forward pass's vo (read from Vproj) and folds in the incoming
	// gradient dz.
	ModeBackward
)

// KernelParams bundles the buffers read and written by one coordinate-descent
// sweep over the output variables of a single problem instance. Parameter
// names follow the forward naming (V, W, and g in Cache); in ModeBackward
// these hold the dual variables (U, Phi, dg), Vproj supplies the V produced
// by the completed forward pass, and Gnrm holds the forward pass's gnrm.
type KernelParams struct {
	Mode    Mode
	ProxLam float32 // backward-only diagonal regularizer on the linear system.

	M, K int

	Index []int32   // length n, zero-terminated permutation of output indices.
	S     []float32 // n*m, shared clause matrix.
	Snrms []float32 // length n, shared per-row squared norm of S.

	Dz []float32 // length n; backward-only, read.

	V     []float32 // n*k; forward: the row being updated. backward: U.
	Vproj []float32 // n*k; backward-only: V from the completed forward pass.
	W     []float32 // k*m; forward: running Vᵀ S. backward: running Φ = Uᵀ S.
	Gnrm  []float32 // length n; forward: written. backward: read (+ProxLam).

	Cache []float32 // length k scratch for g, caller-owned.
}

// Sweep performs one pass over every output variable named by Index, in
// the order given, stopping at the zero sentinel. Variable 0, the truth
// direction, is never visited. Returns the summed per-output decrease in
// ModeForward, or 0 in ModeBackward.
func Sweep(p KernelParams) float32 {
	var delta float32
	g := p.Cache[:p.K]

	for ii := 0; ; ii++ {
		o := int(p.Index[ii])
		if o == 0 {
			break
		}

		Si := p.S[o*p.M : o*p.M+p.M]
		soo := p.Snrms[o]
		vo := p.V[o*p.K : o*p.K+p.K]

		// g = W Sᵀ_o: k scalar dot products against the columns of W,
		// W stored row-major k×m so row kk is W[kk*m:kk*m+m].
		for kk := 0; kk < p.K; kk++ {
			g[kk] = Dot(Si, p.W[kk*p.M:kk*p.M+p.M], p.M)
		}
		// subtract o's own contribution so g is the projection against every
		// other row.
		Axpy(g, -soo, vo, p.K)

		var gnrmi float32
		switch p.Mode {
		case ModeForward:
			gnrmi = Nrm2(g, p.K)
			Scal(g, -1, p.K)
		case ModeBackward:
			// uo = -Po (g + dℓ/dvo) / (gnrm[o] + lam), with Po = I - vo voᵀ
			// taken at the forward pass's vo and dℓ/dvo touching only
			// component 0 (the truth direction is (1, 0, ..., 0)).
			gnrmi = p.Gnrm[o] + p.ProxLam
			vproj := p.Vproj[o*p.K : o*p.K+p.K]
			c := Dot(vproj, g, p.K) + p.Dz[o]*vproj[0]
			Scal(g, -1, p.K)
			Axpy(g, c, vproj, p.K)
			g[0] -= p.Dz[o]
		}
		Scal(g, 1/gnrmi, p.K)

		// g now holds vo_new; overwrite g with the delta (vo_new - vo_old)
		// and write vo_new into V, in one pass.
		for kk := 0; kk < p.K; kk++ {
			t := g[kk]
			g[kk] -= vo[kk]
			vo[kk] = t
		}
		// rank-1 refresh of the running product: W += delta ⊗ Si, which is
		// what keeps W = Vᵀ S (resp. Φ = Uᵀ S) a live invariant instead of a
		// full O(n·k·m) recomputation per coordinate.
		for kk := 0; kk < p.K; kk++ {
			Axpy(p.W[kk*p.M:kk*p.M+p.M], g[kk], Si, p.M)
		}

		if p.Mode == ModeForward {
			delta += gnrmi * Dot(g, g, p.K)
			p.Gnrm[o] = gnrmi
		}
	}

	return delta
}
