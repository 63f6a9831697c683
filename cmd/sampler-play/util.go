package main

import (
	"sort"
	"time"

	"github.com/cwbudde/algo-sampler/internal/midifile"
)

func sortEvents(events []midifile.Event) {
	sort.SliceStable(events, func(i, j int) bool { return events[i].Time < events[j].Time })
}

func durationOfFrames(frames, sampleRate int) time.Duration {
	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}
