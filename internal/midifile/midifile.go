// Package midifile turns Standard MIDI Files into a timed list of engine
// events and dispatches them to a sampler.
package midifile

import (
	"sort"
	"time"

	"github.com/cwbudde/algo-sampler/sampler"
	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const defaultBPM = 120.0

// Kind is the type of an Event.
type Kind int

const (
	NoteOn Kind = iota
	NoteOff
	Control
	PitchBend
)

// Event is one channel message at an absolute time.
type Event struct {
	Time       time.Duration
	Kind       Kind
	Channel    int
	Key        int
	Value      int // velocity or controller value, 0..127
	Controller int
	Bend       float32 // [-1,1]
}

// Read loads path and returns its events sorted by time.
func Read(path string) ([]Event, error) {
	s, err := smf.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read midi %s", path)
	}
	return Parse(s)
}

type tempoChange struct {
	tick uint64
	bpm  float64
}

type tickedEvent struct {
	tick  uint64
	order int
	ev    Event
}

// Parse merges all tracks of s and converts ticks to time through the
// tempo map. Only metric time formats are supported.
func Parse(s *smf.SMF) ([]Event, error) {
	mt, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok || mt == 0 {
		return nil, errors.Errorf("unsupported midi time format %v", s.TimeFormat)
	}

	var tempos []tempoChange
	var events []tickedEvent
	for _, tr := range s.Tracks {
		var tick uint64
		for _, e := range tr {
			tick += uint64(e.Delta)
			var bpm float64
			if e.Message.GetMetaTempo(&bpm) {
				tempos = append(tempos, tempoChange{tick: tick, bpm: bpm})
				continue
			}
			if ev, ok := convert(midi.Message(e.Message)); ok {
				events = append(events, tickedEvent{tick: tick, order: len(events), ev: ev})
			}
		}
	}

	sort.SliceStable(tempos, func(i, j int) bool { return tempos[i].tick < tempos[j].tick })
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return events[i].order < events[j].order
	})

	out := make([]Event, len(events))
	ti := 0
	bpm := defaultBPM
	var lastTick uint64
	var elapsed float64
	for i, te := range events {
		for ti < len(tempos) && tempos[ti].tick <= te.tick {
			elapsed += ticksToSeconds(tempos[ti].tick-lastTick, bpm, mt)
			lastTick = tempos[ti].tick
			if tempos[ti].bpm > 0 {
				bpm = tempos[ti].bpm
			}
			ti++
		}
		t := elapsed + ticksToSeconds(te.tick-lastTick, bpm, mt)
		te.ev.Time = time.Duration(t * float64(time.Second))
		out[i] = te.ev
	}
	return out, nil
}

func ticksToSeconds(ticks uint64, bpm float64, mt smf.MetricTicks) float64 {
	return float64(ticks) * 60 / (bpm * float64(mt))
}

func convert(m midi.Message) (Event, bool) {
	var ch, key, vel, cc, val uint8
	var rel int16
	var abs uint16
	switch {
	case m.GetNoteStart(&ch, &key, &vel):
		return Event{Kind: NoteOn, Channel: int(ch), Key: int(key), Value: int(vel)}, true
	case m.GetNoteEnd(&ch, &key):
		return Event{Kind: NoteOff, Channel: int(ch), Key: int(key)}, true
	case m.GetControlChange(&ch, &cc, &val):
		return Event{Kind: Control, Channel: int(ch), Controller: int(cc), Value: int(val)}, true
	case m.GetPitchBend(&ch, &rel, &abs):
		return Event{Kind: PitchBend, Channel: int(ch), Bend: float32(rel) / 8192}, true
	}
	return Event{}, false
}

// Target is the part of the engine control API driven by MIDI.
type Target interface {
	PlayNote(pitch, velocity float32, mi *sampler.MultiInstrument, ch int)
	ReleaseNote(pitch float32, ch int)
	ReleaseAllNotes(ch int)
	StopAllNotes(ch int)
	SetSustain(value float32, ch int)
	SetPitchBend(value float32, ch int)
	SetModulation(value float32, ch int)
	SetExpression(value float32, ch int)
	SetLevel(value float32, ch int)
	SetBalance(value float32, ch int)
	SetReverb(value float32, ch int)
	SetChorus(value float32, ch int)
}

// Dispatch sends ev to t, playing notes on mi.
func Dispatch(t Target, mi *sampler.MultiInstrument, ev Event) {
	v := float32(ev.Value) / 127
	switch ev.Kind {
	case NoteOn:
		t.PlayNote(float32(ev.Key), v, mi, ev.Channel)
	case NoteOff:
		t.ReleaseNote(float32(ev.Key), ev.Channel)
	case PitchBend:
		t.SetPitchBend(ev.Bend, ev.Channel)
	case Control:
		switch ev.Controller {
		case 1:
			t.SetModulation(v, ev.Channel)
		case 7:
			t.SetLevel(v, ev.Channel)
		case 10:
			t.SetBalance(float32(ev.Value-64)/63, ev.Channel)
		case 11:
			t.SetExpression(v, ev.Channel)
		case 64:
			t.SetSustain(v, ev.Channel)
		case 91:
			t.SetReverb(v, ev.Channel)
		case 93:
			t.SetChorus(v, ev.Channel)
		case 120:
			t.StopAllNotes(ev.Channel)
		case 123:
			t.ReleaseAllNotes(ev.Channel)
		}
	}
}
