// Package analysis measures rendered audio: levels, envelopes, decay and
// spectra, plus a combined distance against a reference render.
package analysis

import "math"

// Mono averages interleaved stereo frames.
func Mono(interleaved []float32) []float64 {
	n := len(interleaved) / 2
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = 0.5 * float64(interleaved[2*i]+interleaved[2*i+1])
	}
	return out
}

// Float64 widens a float32 signal.
func Float64(x []float32) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = float64(v)
	}
	return out
}

// Peak returns the largest absolute sample.
func Peak(x []float64) float64 {
	var p float64
	for _, v := range x {
		if a := math.Abs(v); a > p {
			p = a
		}
	}
	return p
}

// RMS returns the root mean square of x.
func RMS(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

// RMSEnvelope returns the RMS of consecutive frames of the given size,
// advancing by hop.
func RMSEnvelope(x []float64, frame int, hop int) []float64 {
	if frame <= 0 || hop <= 0 || len(x) < frame {
		return nil
	}
	n := 1 + (len(x)-frame)/hop
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		start := i * hop
		out[i] = RMS(x[start : start+frame])
	}
	return out
}

// LinToDB converts a linear amplitude to dB with a -240 dB floor.
func LinToDB(x float64) float64 {
	if x < 1e-12 {
		x = 1e-12
	}
	return 20.0 * math.Log10(x)
}

// DecaySlopeDBPerS fits a line to the envelope in dB from its peak down to
// 60 dB below it. It returns NaN when there is too little decay to fit.
func DecaySlopeDBPerS(env []float64, hopSec float64) float64 {
	if len(env) < 8 || hopSec <= 0 {
		return math.NaN()
	}
	peakIdx := 0
	peak := math.Inf(-1)
	for i, v := range env {
		if db := LinToDB(v); db > peak {
			peak = db
			peakIdx = i
		}
	}
	start := peakIdx + 1
	end := len(env)
	for i := start; i < len(env); i++ {
		if LinToDB(env[i]) < peak-60 {
			end = i
			break
		}
	}
	if end-start < 6 {
		return math.NaN()
	}

	var sx, sy, sxx, sxy float64
	n := float64(end - start)
	for i := start; i < end; i++ {
		x := float64(i-start) * hopSec
		y := LinToDB(env[i])
		sx += x
		sy += y
		sxx += x * x
		sxy += x * y
	}
	den := n*sxx - sx*sx
	if math.Abs(den) < 1e-12 {
		return math.NaN()
	}
	return (n*sxy - sx*sy) / den
}

// TailStart returns the index after which every sample stays below
// threshold, or len(x) if the signal is still above it at the end.
func TailStart(x []float64, threshold float64) int {
	for i := len(x) - 1; i >= 0; i-- {
		if math.Abs(x[i]) >= threshold {
			return i + 1
		}
	}
	return 0
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
