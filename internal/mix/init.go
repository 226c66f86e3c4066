package mix

import "math"

// InitRows normalizes or writes every variable row of V for one instance.
// n and k are the instance's variable count and embedding dimension;
// isInput and z have length n; v has length n*k.
//
// For an input variable i, row i is zeroed and rewritten as
// (-cos(πz[i]), sign(V[i,1])·sin(πz[i]), 0, ...). The sign of component 1
// is preserved from whatever was already there, which couples this call to
// whatever randomization the caller performed on V before the first Init.
// The input-gradient assembly in Backward multiplies by the same sign, so
// it must stay stable across calls.
//
// For an output variable i, row i is renormalized to unit L2 norm; callers
// are expected to have already written a randomized starting direction.
//
// Row 0 (the truth direction) runs through the output branch too; callers
// keep it at the unit vector (1, 0, 0, ...), so the renormalization leaves
// it unchanged.
func InitRows(n, k int, isInput []bool, z []float32, v []float32) {
	for i := 0; i < n; i++ {
		row := v[i*k : i*k+k]
		if isInput[i] {
			vi1 := row[1]
			Zero(row, k)
			row[0] = -cos32(float32(math.Pi) * z[i])
			row[1] = copysign32(sin32(float32(math.Pi)*z[i]), vi1)
			continue
		}
		s := Dot(row, row, k)
		s = 1 / sqrt32(s)
		Scal(row, s, k)
	}
}

// BuildIndex walks perm (a permutation of {0,...,n-2}), shifts it by +1 to
// skip the reserved variable 0, and appends only the output-variable
// entries into index, zero-padding the remainder. perm has length n-1;
// index has length n.
//
// The trailing zero is load-bearing: Sweep stops as soon as it reads a zero
// entry, which is why variable 0 must never appear among the output
// indices.
func BuildIndex(n int, isInput []bool, perm []int32, index []int32) {
	j := 0
	for i_ := 0; i_ < n-1; i_++ {
		i := int(perm[i_]) + 1
		if !isInput[i] {
			index[j] = int32(i)
			j++
		}
	}
	for ; j < n; j++ {
		index[j] = 0
	}
}
