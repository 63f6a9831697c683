package main

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-sampler/internal/midifile"
	"github.com/cwbudde/algo-sampler/preset"
	"github.com/cwbudde/algo-sampler/sampler"
)

func TestParsePitches(t *testing.T) {
	got, err := parsePitches("60, 64,67.5")
	if err != nil {
		t.Fatalf("parsePitches: %v", err)
	}
	if len(got) != 3 || got[0] != 60 || got[2] != 67.5 {
		t.Fatalf("unexpected pitches %v", got)
	}
	for _, bad := range []string{"", "x", "128", "-1"} {
		if _, err := parsePitches(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func newRenderSampler(t *testing.T) (*sampler.Sampler, *sampler.MultiInstrument) {
	t.Helper()
	p := sampler.NewDefaultParams()
	p.RenderRate = 48000
	s, err := sampler.NewSampler(p)
	if err != nil {
		t.Fatalf("NewSampler: %v", err)
	}
	return s, preset.ToneInstrument(p.RenderRate)
}

func TestRenderFixedDuration(t *testing.T) {
	s, mi := newRenderSampler(t)
	sched := chord([]float32{69, 73}, 1, 0, 4800)
	out := render(s, mi, sched, renderOptions{frames: 9600, maxFrames: 48000, blockSize: 128})
	if len(out) != 2*9600 {
		t.Fatalf("rendered %d samples, want %d", len(out), 2*9600)
	}
	if stereoRMS(out[:2*4800]) < 1e-3 {
		t.Fatalf("expected audible output while notes are held")
	}
}

func TestRenderAutoStopsAfterRelease(t *testing.T) {
	s, mi := newRenderSampler(t)
	sched := chord([]float32{69}, 1, 0, 2400)
	opts := renderOptions{
		maxFrames:  48000 * 20,
		autoStop:   true,
		threshold:  math.Pow(10, -90.0/20),
		holdBlocks: 4,
		blockSize:  128,
	}
	out := render(s, mi, sched, opts)
	frames := len(out) / 2
	if frames >= opts.maxFrames {
		t.Fatalf("auto-stop never triggered")
	}
	if frames < 2400 {
		t.Fatalf("stopped before the release: %d frames", frames)
	}
}

func TestFromMIDIOrdersByFrame(t *testing.T) {
	events := []midifile.Event{
		{Time: 500_000_000, Kind: midifile.NoteOff, Key: 60},
		{Time: 0, Kind: midifile.NoteOn, Key: 60, Value: 100},
	}
	sched := fromMIDI(events, 48000)
	if sched[0].frame != 0 || sched[1].frame != 24000 {
		t.Fatalf("unexpected frames %d %d", sched[0].frame, sched[1].frame)
	}
	if lastFrame(sched) != 24000 {
		t.Fatalf("lastFrame = %d", lastFrame(sched))
	}
}
