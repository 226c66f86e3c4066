package mix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackwardBoundaryInputZeroesDzWithoutNaN(t *testing.T) {
	// An input at either probability boundary poisons the gradient: sin(πz)
	// collapses and the sign of V[i,1] is no longer meaningful.
	for _, boundary := range []float32{0, 1} {
		const n, m, k = 3, 4, 4
		isInput := []bool{false, true, false}
		z := []float32{0, boundary, 0}
		s := []float32{
			0, 0, 0, 0,
			1, 2, 0, 1,
			0, 1, 1, 2,
		}
		index := []int32{2, 0}

		fp, _ := newTestInstance(n, m, k, isInput, z, s, index)
		niter := Forward(fp)

		bp := BackwardParams{
			M:       m,
			K:       k,
			IsInput: isInput,
			Index:   index,
			Niter:   niter,
			S:       s,
			Snrms:   fp.Snrms,
			Z:       fp.Z,
			Dz:      []float32{0, 1, 1},
			V:       fp.V,
			U:       make([]float32, n*k),
			W:       fp.W,
			Phi:     make([]float32, k*m),
			Gnrm:    fp.Gnrm,
			DS:      make([]float32, n*m),
			Cache:   make([]float32, k),
		}

		degenerate := Backward(bp)

		require.True(t, degenerate, "boundary z=%v", boundary)
		for _, v := range bp.Dz {
			assert.Equal(t, float32(0), v)
			assert.False(t, isNonFinite(v))
		}
	}
}

func TestBackwardGnrmBelowMepsIsDegenerate(t *testing.T) {
	const n, m, k = 2, 4, 4
	isInput := []bool{false, false} // variable 1 is an output whose forward iterate collapsed.
	z := []float32{0, 0.3}

	bp := BackwardParams{
		M:       m,
		K:       k,
		IsInput: isInput,
		Index:   []int32{1, 0},
		Niter:   1,
		S:       make([]float32, n*m),
		Snrms:   make([]float32, n),
		Z:       z,
		Dz:      []float32{0, 1},
		V:       make([]float32, n*k),
		U:       make([]float32, n*k),
		W:       make([]float32, k*m),
		Phi:     make([]float32, k*m),
		Gnrm:    []float32{0, 0}, // below MEPS.
		DS:      make([]float32, n*m),
		Cache:   make([]float32, k),
	}

	degenerate := Backward(bp)

	assert.True(t, degenerate)
	assert.Equal(t, []float32{0, 0}, bp.Dz)
}

func TestBackwardNormalCaseProducesFiniteGradients(t *testing.T) {
	const n, m, k = 3, 4, 4
	isInput := []bool{false, true, false}
	z := []float32{0, 0.3, 0}
	s := []float32{
		0, 0, 0, 0,
		1, 2, 0, 1,
		0, 1, 1, 2,
	}
	index := []int32{2, 0}

	fp, _ := newTestInstance(n, m, k, isInput, z, s, index)
	niter := Forward(fp)

	bp := BackwardParams{
		M:       m,
		K:       k,
		IsInput: isInput,
		Index:   index,
		Niter:   niter,
		S:       s,
		Snrms:   fp.Snrms,
		Z:       fp.Z,
		Dz:      []float32{0, 0, 1},
		V:       fp.V,
		U:       make([]float32, n*k),
		W:       fp.W,
		Phi:     make([]float32, k*m),
		Gnrm:    fp.Gnrm,
		DS:      make([]float32, n*m),
		Cache:   make([]float32, k),
	}

	degenerate := Backward(bp)

	require.False(t, degenerate)
	for _, v := range bp.DS {
		assert.False(t, isNonFinite(v))
	}
	for _, v := range bp.Dz {
		assert.False(t, isNonFinite(v))
	}
	assert.Equal(t, float32(0), bp.Dz[0]) // variable 0 is never an input.
}
