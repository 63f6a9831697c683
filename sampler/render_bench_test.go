package sampler

import (
	"fmt"
	"math"
	"testing"

	"github.com/cwbudde/algo-sampler/mixer"
)

func benchInstrument(filtered bool) *MultiInstrument {
	const frames = testRate
	buf := make([]float32, frames)
	for i := range buf {
		buf[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / testRate))
	}
	zone := testZone(0, 127, NewSample(buf, testRate))
	zone.LoopMode = LoopContinuous
	zone.LoopStart = 0
	zone.LoopEnd = frames
	if filtered {
		zone.Cutoff = 4000
		zone.Q = math.Sqrt2 / 2
	}
	return NewMultiInstrument("bench", zone)
}

func BenchmarkRenderVoices(b *testing.B) {
	for _, filtered := range []bool{false, true} {
		for _, voices := range []int{1, 16, MaxVoices} {
			filtered, voices := filtered, voices
			b.Run(fmt.Sprintf("voices_%d_filter_%v", voices, filtered), func(b *testing.B) {
				benchmarkRender(b, voices, filtered)
			})
		}
	}
}

func benchmarkRender(b *testing.B, voices int, filtered bool) {
	p := NewDefaultParams()
	s, err := NewSampler(p)
	if err != nil {
		b.Fatalf("NewSampler: %v", err)
	}
	mi := benchInstrument(filtered)
	for i := 0; i < voices; i++ {
		// Detuned pitches keep every voice off the unity-rate fast path.
		s.PlayNote(float32(40+i)+0.37, 0.8, mi, i%NumChannels)
	}

	const block = 256
	l := make([]float32, block)
	r := make([]float32, block)
	buf := mixer.Planar(l, r)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := s.RenderInput(buf); err != nil {
			b.Fatalf("RenderInput: %v", err)
		}
	}
}
