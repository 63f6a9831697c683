package sampler

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-sampler/mixer"
)

const testRate = 44100

func dcSample(frames int, value float32) *Sample {
	buf := make([]float32, frames)
	for i := range buf {
		buf[i] = value
	}
	return NewSample(buf, testRate)
}

// testZone covers [lo,hi] at any velocity with no envelope shaping and a
// 100-sample release at 44.1 kHz.
func testZone(lo, hi float32, sample *Sample) *Instrument {
	return &Instrument{
		PitchLow:     lo,
		PitchHigh:    hi,
		VelocityLow:  0,
		VelocityHigh: 1,
		BasePitch:    60,
		SustainLevel: 1,
		ReleaseRate:  441,
		Sample:       sample,
	}
}

func newTestSampler(t *testing.T, polyphony int) *Sampler {
	t.Helper()
	p := NewDefaultParams()
	p.Polyphony = polyphony
	s, err := NewSampler(p)
	if err != nil {
		t.Fatalf("NewSampler: %v", err)
	}
	return s
}

func renderFrames(t *testing.T, s *Sampler, frames int) ([]float32, []float32) {
	t.Helper()
	l := make([]float32, frames)
	r := make([]float32, frames)
	if err := s.RenderInput(mixer.Planar(l, r)); err != nil {
		t.Fatalf("RenderInput: %v", err)
	}
	return l, r
}

func playingVoices(s *Sampler) int {
	n := 0
	for i := range s.voices[:s.polyphony] {
		if s.voices[i].playing {
			n++
		}
	}
	return n
}

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
