package main

import (
	"testing"
	"time"

	"github.com/cwbudde/algo-sampler/internal/midifile"
)

func TestDemoArpeggioIsBalanced(t *testing.T) {
	events := demoArpeggio()
	on, off := 0, 0
	for i, ev := range events {
		if i > 0 && ev.Time < events[i-1].Time {
			t.Fatalf("events out of order at %d", i)
		}
		switch ev.Kind {
		case midifile.NoteOn:
			on++
		case midifile.NoteOff:
			off++
		}
	}
	if on == 0 || on != off {
		t.Fatalf("unbalanced notes: on=%d off=%d", on, off)
	}
	last := events[len(events)-1]
	if last.Kind != midifile.Control || last.Controller != 64 || last.Value != 0 {
		t.Fatalf("expected the pedal to lift last, got %+v", last)
	}
}

func TestDurationOfFrames(t *testing.T) {
	if got := durationOfFrames(480, 48000); got != 10*time.Millisecond {
		t.Fatalf("durationOfFrames = %v", got)
	}
}
