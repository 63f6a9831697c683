package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-sampler/analysis"
	"github.com/cwbudde/algo-sampler/internal/midifile"
	"github.com/cwbudde/algo-sampler/internal/wavio"
	"github.com/cwbudde/algo-sampler/preset"
	"github.com/cwbudde/algo-sampler/sampler"
)

func main() {
	bankPath := flag.String("bank", "", "Sample bank JSON (empty = built-in test tone)")
	instrument := flag.String("instrument", "", "Instrument name in the bank (default: first)")
	notes := flag.String("notes", "69", "Comma-separated pitches played together, ignored with -midi")
	velocity := flag.Float64("velocity", 0.8, "Note velocity (0-1)")
	channel := flag.Int("channel", 0, "Channel for -notes (0-15)")
	midiPath := flag.String("midi", "", "Standard MIDI File to render instead of -notes")
	duration := flag.Float64("duration", 2.0, "Duration in seconds")
	releaseAfter := flag.Float64("release-after", 1.0, "Release -notes after this many seconds")
	decayDBFS := flag.Float64("decay-dbfs", math.Inf(1), "Auto-stop when stereo block RMS falls below this dBFS after all notes are released (e.g. -90). Disabled by default")
	decayHoldBlocks := flag.Int("decay-hold-blocks", 6, "Consecutive below-threshold blocks required to stop in auto-decay mode")
	maxDuration := flag.Float64("max-duration", 60.0, "Maximum render duration in seconds when using -decay-dbfs or -midi")
	sampleRate := flag.Int("sample-rate", 0, "Render sample rate in Hz (0 = bank setting)")
	reverb := flag.Float64("reverb", 0.2, "Reverb send level (0-1)")
	chorus := flag.Float64("chorus", 0.0, "Chorus send level (0-1)")
	reference := flag.String("reference", "", "Reference WAV to compare the render against (optional)")
	output := flag.String("output", "output.wav", "Output WAV file path")
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
		mi, err = bank.Instrument(*instrument)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	if *sampleRate > 0 {
		params.RenderRate = *sampleRate
	}
	if mi == nil {
		mi = preset.ToneInstrument(params.RenderRate)
	}

	s, err := sampler.NewSampler(params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating sampler: %v\n", err)
		os.Exit(1)
	}

	var sched []scheduled
	if *midiPath != "" {
		events, err := midifile.Read(*midiPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading MIDI file: %v\n", err)
			os.Exit(1)
		}
		sched = fromMIDI(events, params.RenderRate)
		for ch := 0; ch < sampler.NumChannels; ch++ {
			s.SetReverb(float32(*reverb), ch)
			s.SetChorus(float32(*chorus), ch)
		}
		fmt.Printf("Rendering %s (%d events, instrument %q) at %d Hz...\n", *midiPath, len(events), mi.Name, params.RenderRate)
	} else {
		pitches, err := parsePitches(*notes)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		sched = chord(pitches, float32(*velocity), *channel, int(*releaseAfter*float64(params.RenderRate)))
		s.SetReverb(float32(*reverb), *channel)
		s.SetChorus(float32(*chorus), *channel)
		fmt.Printf("Rendering notes %v, velocity %.2f, instrument %q at %d Hz...\n", pitches, *velocity, mi.Name, params.RenderRate)
	}

	opts := renderOptions{
		frames:     int(*duration * float64(params.RenderRate)),
		maxFrames:  int(*maxDuration * float64(params.RenderRate)),
		autoStop:   !math.IsInf(*decayDBFS, 1),
		threshold:  math.Pow(10.0, *decayDBFS/20.0),
		holdBlocks: max(*decayHoldBlocks, 1),
		blockSize:  128,
	}
	if *midiPath != "" && !opts.autoStop {
		// Play the whole file, then let the tails ring for -duration.
		opts.frames = min(lastFrame(sched)+opts.frames, opts.maxFrames)
	}

	samples := render(s, mi, sched, opts)
	totalFrames := len(samples) / 2
	if opts.autoStop {
		fmt.Printf("Auto-stop at %d frames (%.3fs), threshold %.1f dBFS\n", totalFrames, float64(totalFrames)/float64(params.RenderRate), *decayDBFS)
	}

	if err := wavio.WriteStereoInterleaved(*output, samples, params.RenderRate); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing WAV file: %v\n", err)
		os.Exit(1)
	}
	st := s.Stats()
	fmt.Printf("Successfully wrote %s (%d frames, peak %.1f dBFS, %d steals, %d dropped notes)\n",
		*output, totalFrames, analysis.LinToDB(analysis.Peak(analysis.Float64(samples))), st.Steals, st.DroppedNotes)

	if *reference != "" {
		ref, sr, err := wavio.ReadMono(*reference)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading reference: %v\n", err)
			os.Exit(1)
		}
		if sr != params.RenderRate {
			ref, err = wavio.Resample(ref, sr, params.RenderRate)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error resampling reference: %v\n", err)
				os.Exit(1)
			}
		}
		m := analysis.Compare(analysis.Float64(ref), analysis.Mono(samples), params.RenderRate)
		fmt.Printf("Reference: score=%.4f similarity=%.4f time_rmse=%.4f env_rmse=%.2fdB spec_rmse=%.2fdB decay_diff=%.2fdB/s\n",
			m.Score, m.Similarity, m.TimeRMSE, m.EnvelopeRMSEDB, m.SpectralRMSEDB, m.DecayDiffDBPerS)
	}
}

func parsePitches(s string) ([]float32, error) {
	var out []float32
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 32)
		if err != nil || v < 0 || v > 127 {
			return nil, fmt.Errorf("invalid pitch %q (expected 0..127)", part)
		}
		out = append(out, float32(v))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no pitches given")
	}
	return out, nil
}
