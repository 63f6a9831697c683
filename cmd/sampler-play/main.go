package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/GeoffreyPlitt/debuggo"
	"github.com/cwbudde/algo-sampler/internal/midifile"
	"github.com/cwbudde/algo-sampler/mixer"
	"github.com/cwbudde/algo-sampler/preset"
	"github.com/cwbudde/algo-sampler/sampler"
)

var playDebug = debuggo.Debug("sampler:play")

func main() {
	bankPath := flag.String("bank", "", "Sample bank JSON (empty = built-in test tone)")
	instrument := flag.String("instrument", "", "Instrument name in the bank (default: first)")
	midiPath := flag.String("midi", "", "Standard MIDI File to play (empty = demo arpeggio)")
	bpm := flag.Float64("metronome", 0, "Metronome tempo in BPM (0 = off)")
	backing := flag.String("backing", "", "WAV file mixed under the sampler (optional)")
	referenceHz := flag.Float64("tuning-tone", 0, "Mix a sine reference tone at this frequency (0 = off)")
	bufferFrames := flag.Int("buffer-frames", 512, "Device buffer size in frames")
	gain := flag.Float64("gain", 0.8, "Master gain")
	reverb := flag.Float64("reverb", 0.25, "Reverb send level (0-1)")
	drain := flag.Duration("drain", 5*time.Second, "Maximum time to wait for tails after the last event")
	flag.Parse()

	params := sampler.NewDefaultParams()
	var mi *sampler.MultiInstrument
	if *bankPath != "" {
		bank, err := preset.LoadJSON(*bankPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading bank %q: %v\n", *bankPath, err)
			os.Exit(1)
		}
		params = bank.Params
		if mi, err = bank.Instrument(*instrument); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	} else {
		mi = preset.ToneInstrument(params.RenderRate)
	}
	sr := params.RenderRate

	s, err := sampler.NewSampler(params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating sampler: %v\n", err)
		os.Exit(1)
	}
	for ch := 0; ch < sampler.NumChannels; ch++ {
		s.SetReverb(float32(*reverb), ch)
	}

	mix := mixer.NewMixer(sr, true)
	mix.SetGain(float32(*gain))
	mix.Add(s)
	if *backing != "" {
		clip, err := mixer.LoadClip(*backing, sr, false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading backing track: %v\n", err)
			os.Exit(1)
		}
		clip.SetGain(0.5)
		mix.Add(clip)
		clip.Play()
	}
	var click *mixer.Click
	if *bpm > 0 {
		click = mixer.NewClick(sr, 0.3)
		mix.Add(click)
	}
	if *referenceHz > 0 {
		mix.Add(mixer.NewTone(sr, *referenceHz, 0.05))
	}

	var events []midifile.Event
	if *midiPath != "" {
		if events, err = midifile.Read(*midiPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading MIDI file: %v\n", err)
			os.Exit(1)
		}
	} else {
		events = demoArpeggio()
	}

	dev, err := newDevice(sr, *bufferFrames, mix)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening audio device: %v\n", err)
		os.Exit(1)
	}
	defer dev.Close()

	s.Start()
	dev.Start()
	fmt.Printf("Playing %d events with %q at %d Hz (%d units in mix)...\n", len(events), mi.Name, sr, mix.Units())

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	stopClick := make(chan struct{})
	if click != nil {
		go runMetronome(click, *bpm, stopClick)
	}

	if !play(s, mi, events, interrupt) {
		s.ClearAllVoices()
		close(stopClick)
		fmt.Println("Interrupted")
		return
	}
	close(stopClick)

	s.ReleaseAllNotesGlobal()
	deadline := time.Now().Add(*drain)
	for time.Now().Before(deadline) && anyChannelPlaying(s) {
		time.Sleep(50 * time.Millisecond)
	}
	s.Stop()
	st := s.Stats()
	fmt.Printf("Done: %d frames rendered, %d steals, %d dropped notes, %d dropped commands\n",
		st.Frames, st.Steals, st.DroppedNotes, st.DroppedCommands)
}

// play dispatches events at their wall-clock times. It returns false when
// interrupted.
func play(s *sampler.Sampler, mi *sampler.MultiInstrument, events []midifile.Event, interrupt <-chan os.Signal) bool {
	start := time.Now()
	for _, ev := range events {
		if wait := time.Until(start.Add(ev.Time)); wait > 0 {
			select {
			case <-interrupt:
				return false
			case <-time.After(wait):
			}
		}
		playDebug("t=%v kind=%d ch=%d key=%d", ev.Time, ev.Kind, ev.Channel, ev.Key)
		midifile.Dispatch(s, mi, ev)
	}
	return true
}

func runMetronome(click *mixer.Click, bpm float64, stop <-chan struct{}) {
	t := time.NewTicker(time.Duration(float64(time.Minute) / bpm))
	defer t.Stop()
	beat := 0
	for {
		click.Trigger(beat%4 == 0)
		beat++
		select {
		case <-stop:
			return
		case <-t.C:
		}
	}
}

func anyChannelPlaying(s *sampler.Sampler) bool {
	for ch := 0; ch < sampler.NumChannels; ch++ {
		if s.IsNotePlaying(ch) {
			return true
		}
	}
	return false
}

func demoArpeggio() []midifile.Event {
	pitches := []int{60, 64, 67, 72, 76, 79, 84}
	step := 180 * time.Millisecond
	var out []midifile.Event
	for i, p := range pitches {
		at := time.Duration(i) * step
		out = append(out,
			midifile.Event{Time: at, Kind: midifile.NoteOn, Key: p, Value: 100},
			midifile.Event{Time: at + 4*step, Kind: midifile.NoteOff, Key: p},
		)
	}
	out = append(out, midifile.Event{Time: 0, Kind: midifile.Control, Controller: 64, Value: 127})
	out = append(out, midifile.Event{Time: time.Duration(len(pitches)+6) * step, Kind: midifile.Control, Controller: 64, Value: 0})
	sortEvents(out)
	return out
}
