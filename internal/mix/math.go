package mix

import "math"

func sqrt32(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}

func sin32(x float32) float32 {
	return float32(math.Sin(float64(x)))
}

func cos32(x float32) float32 {
	return float32(math.Cos(float64(x)))
}

func acos32(x float32) float32 {
	return float32(math.Acos(float64(x)))
}

// copysign32 returns a value with the magnitude of mag and the sign of
// sign.
func copysign32(mag, sign float32) float32 {
	return float32(math.Copysign(float64(mag), float64(sign)))
}
