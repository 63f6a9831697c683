package sampler

import (
	"math"

	"github.com/cwbudde/algo-approx"
)

func pow2Approx(x float32) float32 {
	const ln2 = 0.69314718055994530942
	return approx.FastExp(x * ln2)
}

func isFinite(x float32) bool {
	return !math.IsNaN(float64(x)) && !math.IsInf(float64(x), 0)
}

func clampf(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func zero(buf []float32) {
	for i := range buf {
		buf[i] = 0
	}
}

// panGains maps a balance in [-1,1] to constant-power left/right gains.
func panGains(balance float32) (float32, float32) {
	b := float64(clampf(balance, -1, 1))
	theta := (b + 1) * math.Pi / 4
	return float32(math.Cos(theta)), float32(math.Sin(theta))
}

// balanceGains attenuates the opposite side only, leaving a centered
// channel at unity.
func balanceGains(balance float32) (float32, float32) {
	b := clampf(balance, -1, 1)
	l, r := float32(1), float32(1)
	if b > 0 {
		l = 1 - b
	} else if b < 0 {
		r = 1 + b
	}
	return l, r
}
