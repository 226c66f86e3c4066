package mix

import "fmt"

// ValidateShape checks the caller-contract violations a Batch constructor
// can catch up front: non-positive dimensions, and k/m not a multiple of 4
// (the padding discipline the dense primitives' unrolled loops assume).
// Reporting them as a constructor-time error keeps the hot loops free of
// per-call checks.
func ValidateShape(b, n, m, k int) error {
	if b <= 0 {
		return fmt.Errorf("mix: batch size b must be positive, got %d", b)
	}
	if n < 1 {
		return fmt.Errorf("mix: variable count n must include the reserved truth variable (n >= 1), got %d", n)
	}
	if m <= 0 || m%4 != 0 {
		return fmt.Errorf("mix: clause rank m must be a positive multiple of 4, got %d", m)
	}
	if k <= 0 || k%4 != 0 {
		return fmt.Errorf("mix: embedding dimension k must be a positive multiple of 4, got %d", k)
	}
	return nil
}
