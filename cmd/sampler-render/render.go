package main

import (
	"math"
	"sort"

	"github.com/cwbudde/algo-sampler/internal/midifile"
	"github.com/cwbudde/algo-sampler/mixer"
	"github.com/cwbudde/algo-sampler/sampler"
)

// scheduled is an event pinned to an output frame.
type scheduled struct {
	frame int
	ev    midifile.Event
}

type renderOptions struct {
	frames     int
	maxFrames  int
	autoStop   bool
	threshold  float64
	holdBlocks int
	blockSize  int
}

func fromMIDI(events []midifile.Event, sampleRate int) []scheduled {
	out := make([]scheduled, len(events))
	for i, ev := range events {
		out[i] = scheduled{frame: int(ev.Time.Seconds()*float64(sampleRate) + 0.5), ev: ev}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].frame < out[j].frame })
	return out
}

func chord(pitches []float32, velocity float32, ch int, releaseAt int) []scheduled {
	vel := int(math.Round(float64(velocity) * 127))
	var out []scheduled
	for _, p := range pitches {
		out = append(out, scheduled{ev: midifile.Event{Kind: midifile.NoteOn, Channel: ch, Key: int(p), Value: vel}})
	}
	for _, p := range pitches {
		out = append(out, scheduled{frame: max(releaseAt, 0), ev: midifile.Event{Kind: midifile.NoteOff, Channel: ch, Key: int(p)}})
	}
	return out
}

func lastFrame(sched []scheduled) int {
	if len(sched) == 0 {
		return 0
	}
	return sched[len(sched)-1].frame
}

// render runs the engine block by block, splitting blocks at event frames
// so every event lands on its exact frame. Returns interleaved stereo.
func render(s *sampler.Sampler, mi *sampler.MultiInstrument, sched []scheduled, opts renderOptions) []float32 {
	limit := opts.frames
	if opts.autoStop {
		limit = opts.maxFrames
	}
	limit = max(limit, 1)

	samples := make([]float32, 0, 2*opts.blockSize)
	silence := make([]float32, 2*opts.blockSize)
	next := 0
	belowCount := 0
	pos := 0
	for pos < limit {
		for next < len(sched) && sched[next].frame <= pos {
			midifile.Dispatch(s, mi, sched[next].ev)
			next++
		}
		n := min(opts.blockSize, limit-pos)
		if next < len(sched) {
			n = min(n, sched[next].frame-pos)
		}

		start := len(samples)
		samples = append(samples, silence[:2*n]...)
		block := samples[start:]
		_ = s.RenderInput(mixer.Interleaved(block))
		pos += n

		if opts.autoStop && next >= len(sched) {
			if stereoRMS(block) < opts.threshold {
				belowCount++
				if belowCount >= opts.holdBlocks {
					break
				}
			} else {
				belowCount = 0
			}
		}
	}
	return samples
}

func stereoRMS(interleaved []float32) float64 {
	if len(interleaved) == 0 {
		return 0
	}
	var sum float64
	for _, s := range interleaved {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(interleaved)))
}
