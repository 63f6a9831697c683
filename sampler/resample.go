package sampler

import "math"

const (
	// FracBits is the number of fractional bits of a fixed-point position.
	FracBits = 44
	// FracOne is one frame in fixed-point units.
	FracOne  = uint64(1) << FracBits
	fracMask = FracOne - 1

	// SampleMargin is the number of zero frames padded before and after
	// every sample so the interpolator never reads out of bounds.
	SampleMargin = 8

	// MaxSampleFrames is the longest sample addressable by the integer part
	// of a position.
	MaxSampleFrames = int(^uint64(0)>>FracBits) - 1

	sincHalf      = 4
	sincTaps      = 2*sincHalf + 1
	sincPhaseBits = 8
	sincPhases    = 1 << sincPhaseBits
)

var sincTable = buildSincTable()

// buildSincTable returns a Blackman-windowed sinc kernel for each of the
// fractional phases. Each row is normalized to unity DC gain.
func buildSincTable() [sincPhases][sincTaps]float32 {
	var t [sincPhases][sincTaps]float32
	for p := 0; p < sincPhases; p++ {
		frac := float64(p) / sincPhases
		var row [sincTaps]float64
		sum := 0.0
		for k := 0; k < sincTaps; k++ {
			d := float64(k-sincHalf) - frac
			w := sinc(d) * blackman(d/(sincHalf+1))
			row[k] = w
			sum += w
		}
		for k := range row {
			t[p][k] = float32(row[k] / sum)
		}
	}
	return t
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

// blackman evaluates a symmetric Blackman window over x in [-1,1].
func blackman(x float64) float64 {
	if x <= -1 || x >= 1 {
		return 0
	}
	return 0.42 + 0.5*math.Cos(math.Pi*x) + 0.08*math.Cos(2*math.Pi*x)
}

// interpolate reads padded sample data at frame idx plus a fixed-point
// fraction.
func interpolate(data []float32, idx int, frac uint64) float32 {
	base := idx + SampleMargin - sincHalf
	row := &sincTable[frac>>(FracBits-sincPhaseBits)]
	taps := data[base : base+sincTaps]
	var acc float32
	for k, w := range row {
		acc += taps[k] * w
	}
	return acc
}

// nearest reads the closest whole frame, used when playing at unity rate.
func nearest(data []float32, idx int, frac uint64) float32 {
	if frac >= FracOne/2 {
		idx++
	}
	return data[idx+SampleMargin]
}

// wrapLoop folds pos back into [loopStart, loopEnd) once it reaches
// loopEnd. An empty loop region pins the position at loopStart.
func wrapLoop(pos, loopStart, loopEnd uint64) uint64 {
	if pos < loopEnd {
		return pos
	}
	if loopEnd <= loopStart {
		return loopStart
	}
	return loopStart + (pos-loopStart)%(loopEnd-loopStart)
}

// playbackRate returns the fixed-point per-output-frame increment for a
// sample recorded at sampleRate, transposed by semitones.
func playbackRate(semitones float64, sampleRate, renderRate float64) uint64 {
	ratio := sampleRate / renderRate
	if semitones != 0 {
		ratio *= float64(pow2Approx(float32(semitones / 12)))
	}
	if !(ratio > 0) {
		return 0
	}
	return uint64(ratio*float64(FracOne) + 0.5)
}
