package preset

import (
	"math"

	"github.com/cwbudde/algo-sampler/sampler"
)

// ToneInstrument builds a looped one-second tone at A4 so the tools run
// without a bank on disk.
func ToneInstrument(sampleRate int) *sampler.MultiInstrument {
	const (
		hz   = 440.0
		base = 69
	)
	// 440 whole cycles over one second so the loop is seamless.
	frames := sampleRate
	pcm := make([]float32, frames)
	for i := range pcm {
		ph := 2 * math.Pi * hz * float64(i) / float64(frames)
		pcm[i] = float32(0.5*math.Sin(ph) + 0.15*math.Sin(2*ph) + 0.05*math.Sin(3*ph))
	}
	zone := &sampler.Instrument{
		PitchLow:     0,
		PitchHigh:    127,
		VelocityLow:  0,
		VelocityHigh: 1,
		BasePitch:    base,
		LoopStart:    0,
		LoopEnd:      frames,
		LoopMode:     sampler.LoopUntilRelease,
		DecayRate:    0.2,
		SustainLevel: 0.9,
		ReleaseRate:  4,
		BalanceLow:   -0.3,
		BalanceHigh:  0.3,
		Cutoff:       8000,
		Q:            math.Sqrt2 / 2,
		Sample:       sampler.NewSample(pcm, sampleRate),
	}
	return sampler.NewMultiInstrument("test-tone", zone)
}
