package mix_test

import (
	"math/rand"
	"testing"

	"github.com/born-ml/mixsat/mix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setSnrms(bat *mix.Batch, n, m int) {
	for i := 0; i < n; i++ {
		row := bat.S[i*m : i*m+m]
		var sum float32
		for _, x := range row {
			sum += x * x
		}
		bat.Snrms[i] = sum
	}
}

// buildSingleOutputBatch wires a 3-variable instance (truth, one input, one
// output) sharing clause matrix s, runs it to convergence and returns both
// the batch and its scalar loss z[output]^2, the quantity the gradient
// check below differentiates.
func buildSingleOutputBatch(t *testing.T, s []float32, z1 float32, seed int64) (*mix.Batch, float32) {
	t.Helper()
	const n, m, k, b = 3, 4, 4, 1

	bat, err := mix.NewBatch(mix.Shape{B: b, N: n, M: m, K: k})
	require.NoError(t, err)
	bat.IsInput[1] = true
	copy(bat.S, s)
	setSnrms(bat, n, m)
	bat.Z[1] = z1

	rng := rand.New(rand.NewSource(seed))
	require.NoError(t, bat.Init([][]int32{{0, 1}}, rng))
	bat.Forward(mix.ForwardConfig{MaxIter: 500, Eps: 1e-7})

	loss := bat.Z[2] * bat.Z[2]
	return bat, loss
}

// TestBatchBackwardMatchesFiniteDifferenceDS perturbs a handful of
// clause-matrix entries, reconverges forward from the same starting point,
// and checks the resulting change in loss against the analytic DS entry
// Backward produced at the unperturbed point.
func TestBatchBackwardMatchesFiniteDifferenceDS(t *testing.T) {
	const n, m = 3, 4
	base := make([]float32, n*m)
	rng := rand.New(rand.NewSource(123))
	for i := range base {
		base[i] = rng.Float32()*0.6 - 0.3
	}

	bat, _ := buildSingleOutputBatch(t, base, 0.3, 7)
	bat.Dz[2] = 2 * bat.Z[2]
	bat.Backward(1e-4)
	require.False(t, bat.Degenerate[0])

	const h = float32(1e-3)
	for _, idx := range []int{1, 2, 5, 9} {
		plus := append([]float32{}, base...)
		plus[idx] += h
		_, lossPlus := buildSingleOutputBatch(t, plus, 0.3, 7)

		minus := append([]float32{}, base...)
		minus[idx] -= h
		_, lossMinus := buildSingleOutputBatch(t, minus, 0.3, 7)

		numeric := (lossPlus - lossMinus) / (2 * h)
		assert.InDeltaf(t, numeric, bat.DS[idx], 0.1,
			"DS[%d]: analytic %v vs finite-difference %v", idx, bat.DS[idx], numeric)
	}
}

// TestBatchNoOutputsProducesNoGradient: an instance with no output
// variables converges in one sweep and contributes nothing to DS, and an
// input's outgoing Dz equals whatever Dz it was seeded with (there is no
// downstream sweep to route through).
func TestBatchNoOutputsProducesNoGradient(t *testing.T) {
	const n, m, k, b = 2, 4, 4, 1

	bat, err := mix.NewBatch(mix.Shape{B: b, N: n, M: m, K: k})
	require.NoError(t, err)
	bat.IsInput[1] = true
	for i := range bat.S {
		bat.S[i] = 0.2
	}
	setSnrms(bat, n, m)
	bat.Z[1] = 0.4

	rng := rand.New(rand.NewSource(1))
	require.NoError(t, bat.Init([][]int32{{0}}, rng))
	bat.Forward(mix.ForwardConfig{MaxIter: 100, Eps: 1e-6})

	assert.Equal(t, int32(1), bat.Niter[0])

	bat.Dz[1] = 0.75
	bat.Backward(1e-4)

	assert.False(t, bat.Degenerate[0])
	for _, v := range bat.DS {
		assert.Equal(t, float32(0), v)
	}
	// With no outputs the adjoint never runs, so the input's incoming
	// gradient passes straight through: the 1/(π sin πz) transform and the
	// sin(πz)·π factor in the assembly cancel.
	assert.InDelta(t, 0.75, bat.Dz[1], 1e-6)
}

// TestBatchInstancesAreIndependent: two instances in the same batch with
// different inputs must not influence one another's outputs, even though
// they share S.
func TestBatchInstancesAreIndependent(t *testing.T) {
	const n, m, k, b = 3, 4, 4, 2

	bat, err := mix.NewBatch(mix.Shape{B: b, N: n, M: m, K: k})
	require.NoError(t, err)
	bat.IsInput[0*n+1] = true
	bat.IsInput[1*n+1] = true
	rng := rand.New(rand.NewSource(5))
	for i := range bat.S {
		bat.S[i] = rng.Float32()*0.4 - 0.2
	}
	setSnrms(bat, n, m)

	bat.Z[0*n+1] = 0.2
	bat.Z[1*n+1] = 0.8

	require.NoError(t, bat.Init([][]int32{{0, 1}, {0, 1}}, rand.New(rand.NewSource(5))))
	bat.Forward(mix.ForwardConfig{MaxIter: 200, Eps: 1e-6})

	z0 := bat.Z[0*n+2]

	// Rerun instance 0 alone with the identical seed and input: it must
	// reproduce the same output regardless of what instance 1 was doing.
	solo, err := mix.NewBatch(mix.Shape{B: 1, N: n, M: m, K: k})
	require.NoError(t, err)
	solo.IsInput[1] = true
	copy(solo.S, bat.S)
	setSnrms(solo, n, m)
	solo.Z[1] = 0.2
	require.NoError(t, solo.Init([][]int32{{0, 1}}, rand.New(rand.NewSource(5))))
	solo.Forward(mix.ForwardConfig{MaxIter: 200, Eps: 1e-6})

	assert.InDelta(t, solo.Z[2], z0, 1e-5)
}

// TestBatchForwardIsDeterministic: given identical inputs and the
// identical starting embedding, Forward must reproduce the same output
// and sweep count on every run.
func TestBatchForwardIsDeterministic(t *testing.T) {
	const n, m, k, b = 3, 4, 4, 1
	newRun := func() *mix.Batch {
		bat, err := mix.NewBatch(mix.Shape{B: b, N: n, M: m, K: k})
		require.NoError(t, err)
		bat.IsInput[1] = true
		for i := range bat.S {
			bat.S[i] = 0.3
		}
		setSnrms(bat, n, m)
		bat.Z[1] = 0.6
		require.NoError(t, bat.Init([][]int32{{0, 1}}, rand.New(rand.NewSource(99))))
		bat.Forward(mix.ForwardConfig{MaxIter: 200, Eps: 1e-6})
		return bat
	}

	a := newRun()
	b2 := newRun()

	assert.Equal(t, a.Niter[0], b2.Niter[0])
	assert.Equal(t, a.Z[2], b2.Z[2])
}

// TestBatchInitMaintainsWInvariant: the W = Vᵀ S that Init builds must
// still hold, to within floating-point tolerance, after Init followed by
// up to 10 sweeps of Forward.
func TestBatchInitMaintainsWInvariant(t *testing.T) {
	const n, m, k, b = 3, 4, 4, 1

	bat, err := mix.NewBatch(mix.Shape{B: b, N: n, M: m, K: k})
	require.NoError(t, err)
	bat.IsInput[1] = true
	rng := rand.New(rand.NewSource(11))
	for i := range bat.S {
		bat.S[i] = rng.Float32()
	}
	setSnrms(bat, n, m)
	bat.Z[1] = 0.45

	require.NoError(t, bat.Init([][]int32{{0, 1}}, rand.New(rand.NewSource(3))))
	bat.Forward(mix.ForwardConfig{MaxIter: 10, Eps: 0})

	want := make([]float32, k*m)
	for i := 0; i < n; i++ {
		vi := bat.V[i*k : i*k+k]
		si := bat.S[i*m : i*m+m]
		for kk := 0; kk < k; kk++ {
			for mm := 0; mm < m; mm++ {
				want[kk*m+mm] += vi[kk] * si[mm]
			}
		}
	}

	for i, w := range want {
		assert.InDelta(t, w, bat.W[i], 1e-3)
	}
}
