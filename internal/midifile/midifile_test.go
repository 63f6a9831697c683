package midifile

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/algo-sampler/sampler"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

func writeTestSMF(t *testing.T) string {
	t.Helper()
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(480)

	var tempo smf.Track
	tempo.Add(0, smf.MetaTempo(60))
	tempo.Add(960, smf.MetaTempo(120))
	tempo.Close(0)

	var notes smf.Track
	notes.Add(0, midi.NoteOn(0, 60, 127))
	notes.Add(480, midi.NoteOff(0, 60))
	notes.Add(0, midi.ControlChange(0, 64, 127))
	notes.Add(960, midi.NoteOn(2, 67, 64))
	notes.Close(0)

	if err := s.Add(tempo); err != nil {
		t.Fatalf("add tempo track: %v", err)
	}
	if err := s.Add(notes); err != nil {
		t.Fatalf("add note track: %v", err)
	}
	path := filepath.Join(t.TempDir(), "test.mid")
	if err := s.WriteFile(path); err != nil {
		t.Fatalf("write smf: %v", err)
	}
	return path
}

func TestReadAppliesTempoMap(t *testing.T) {
	events, err := Read(writeTestSMF(t))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}

	want := []struct {
		kind Kind
		at   time.Duration
	}{
		{NoteOn, 0},
		{NoteOff, time.Second},
		{Control, time.Second},
		// 960 ticks at 60 bpm, then 480 ticks at 120 bpm.
		{NoteOn, 2500 * time.Millisecond},
	}
	for i, w := range want {
		ev := events[i]
		if ev.Kind != w.kind {
			t.Fatalf("event %d kind = %d, want %d", i, ev.Kind, w.kind)
		}
		if d := ev.Time - w.at; d > time.Millisecond || d < -time.Millisecond {
			t.Fatalf("event %d at %v, want %v", i, ev.Time, w.at)
		}
	}
	if events[3].Channel != 2 || events[3].Key != 67 || events[3].Value != 64 {
		t.Fatalf("last note mismatch: %+v", events[3])
	}
	if events[2].Controller != 64 || events[2].Value != 127 {
		t.Fatalf("sustain controller mismatch: %+v", events[2])
	}
}

func TestReadMissingFile(t *testing.T) {
	if _, err := Read(filepath.Join(t.TempDir(), "missing.mid")); err == nil {
		t.Fatalf("expected error")
	}
}

type recorder struct {
	calls []string
}

func (r *recorder) add(format string, args ...any) { r.calls = append(r.calls, fmt.Sprintf(format, args...)) }

func (r *recorder) PlayNote(p, v float32, mi *sampler.MultiInstrument, ch int) {
	r.add("play %g %.2f %s %d", p, v, mi.Name, ch)
}
func (r *recorder) ReleaseNote(p float32, ch int)  { r.add("release %g %d", p, ch) }
func (r *recorder) ReleaseAllNotes(ch int)         { r.add("release-all %d", ch) }
func (r *recorder) StopAllNotes(ch int)            { r.add("stop-all %d", ch) }
func (r *recorder) SetSustain(v float32, ch int)   { r.add("sustain %.2f %d", v, ch) }
func (r *recorder) SetPitchBend(v float32, ch int) { r.add("bend %.2f %d", v, ch) }
func (r *recorder) SetModulation(v float32, ch int) {
	r.add("mod %.2f %d", v, ch)
}
func (r *recorder) SetExpression(v float32, ch int) { r.add("expr %.2f %d", v, ch) }
func (r *recorder) SetLevel(v float32, ch int)      { r.add("level %.2f %d", v, ch) }
func (r *recorder) SetBalance(v float32, ch int)    { r.add("balance %.2f %d", v, ch) }
func (r *recorder) SetReverb(v float32, ch int)     { r.add("reverb %.2f %d", v, ch) }
func (r *recorder) SetChorus(v float32, ch int)     { r.add("chorus %.2f %d", v, ch) }

func TestDispatchMapsControllers(t *testing.T) {
	mi := sampler.NewMultiInstrument("keys")
	tests := []struct {
		ev   Event
		want string
	}{
		{Event{Kind: NoteOn, Channel: 1, Key: 60, Value: 127}, "play 60 1.00 keys 1"},
		{Event{Kind: NoteOff, Channel: 1, Key: 60}, "release 60 1"},
		{Event{Kind: PitchBend, Channel: 0, Bend: -0.5}, "bend -0.50 0"},
		{Event{Kind: Control, Controller: 64, Value: 127}, "sustain 1.00 0"},
		{Event{Kind: Control, Controller: 10, Value: 127}, "balance 1.00 0"},
		{Event{Kind: Control, Controller: 10, Value: 1}, "balance -1.00 0"},
		{Event{Kind: Control, Controller: 91, Value: 0}, "reverb 0.00 0"},
		{Event{Kind: Control, Controller: 93, Value: 127, Channel: 4}, "chorus 1.00 4"},
		{Event{Kind: Control, Controller: 123, Channel: 3}, "release-all 3"},
		{Event{Kind: Control, Controller: 120, Channel: 3}, "stop-all 3"},
	}
	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			r := &recorder{}
			Dispatch(r, mi, tc.ev)
			if len(r.calls) != 1 || r.calls[0] != tc.want {
				t.Fatalf("got %v, want %q", r.calls, tc.want)
			}
		})
	}

	r := &recorder{}
	Dispatch(r, mi, Event{Kind: Control, Controller: 2})
	if len(r.calls) != 0 {
		t.Fatalf("unmapped controller dispatched %v", r.calls)
	}
}

func TestSamplerSatisfiesTarget(t *testing.T) {
	var _ Target = (*sampler.Sampler)(nil)
}
