package preset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cwbudde/algo-sampler/dsp"
	"github.com/cwbudde/algo-sampler/internal/wavio"
	"github.com/cwbudde/algo-sampler/sampler"
)

func writeTestWav(t *testing.T, path string, frames int, rate int) {
	t.Helper()
	data := make([]float32, frames)
	for i := range data {
		data[i] = 0.25
	}
	if err := wavio.WriteMono(path, data, rate); err != nil {
		t.Fatalf("write wav: %v", err)
	}
}

func writeBank(t *testing.T, dir, content string) string {
	t.Helper()
	p := filepath.Join(dir, "bank.json")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write bank: %v", err)
	}
	return p
}

func TestLoadJSONAppliesSettingsAndZones(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "samples"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeTestWav(t, filepath.Join(dir, "samples", "c4.wav"), 4410, 44100)

	bankPath := writeBank(t, dir, `{
  "polyphony": 16,
  "max_block": 256,
  "reverb": {"room_size": 0.8, "damping": 0.2},
  "chorus": {"mode": "inverted", "rate_hz": 1.5},
  "instruments": {
    "keys": [
      {"sample": "samples/c4.wav", "pitch_low": 0, "pitch_high": 63, "base_pitch": 60,
       "loop_mode": "continuous", "loop_start": 100, "loop_end": 2000, "release_rate": 20},
      {"sample": "samples/c4.wav", "pitch_low": 64, "pitch_high": 127, "base_pitch": 72,
       "velocity_low": 0.5, "cutoff": 4000}
    ]
  }
}`)

	bank, err := LoadJSON(bankPath)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	p := bank.Params
	if p.Polyphony != 16 || p.MaxBlock != 256 {
		t.Fatalf("engine settings mismatch: %+v", p)
	}
	if p.ReverbRoomSize != 0.8 || p.ReverbDamping != 0.2 {
		t.Fatalf("reverb settings mismatch: room=%f damp=%f", p.ReverbRoomSize, p.ReverbDamping)
	}
	if p.ChorusMode != dsp.ChorusInverted || p.ChorusRateHz != 1.5 {
		t.Fatalf("chorus settings mismatch: mode=%d rate=%f", p.ChorusMode, p.ChorusRateHz)
	}

	mi, err := bank.Instrument("keys")
	if err != nil {
		t.Fatalf("Instrument: %v", err)
	}
	if len(mi.Instruments) != 2 {
		t.Fatalf("expected 2 zones, got %d", len(mi.Instruments))
	}
	low, high := mi.Instruments[0], mi.Instruments[1]
	if low.Sample != high.Sample {
		t.Fatalf("zones with the same source should share one sample")
	}
	if low.Sample.Frames() != 4410 || low.Sample.Rate != 44100 {
		t.Fatalf("sample mismatch: frames=%d rate=%d", low.Sample.Frames(), low.Sample.Rate)
	}
	if low.LoopMode != sampler.LoopContinuous || low.LoopStart != 100 || low.LoopEnd != 2000 {
		t.Fatalf("loop mismatch: %v [%d,%d)", low.LoopMode, low.LoopStart, low.LoopEnd)
	}
	if low.ReleaseRate != 20 || low.SustainLevel != 1 {
		t.Fatalf("envelope mismatch: release=%f sustain=%f", low.ReleaseRate, low.SustainLevel)
	}
	if high.VelocityLow != 0.5 || high.VelocityHigh != 1 || high.Cutoff != 4000 {
		t.Fatalf("high zone mismatch: %+v", high)
	}
	if got := mi.Lookup(70, 0.9, nil); len(got) != 1 || got[0] != high {
		t.Fatalf("lookup(70, 0.9) returned %d zones", len(got))
	}
	if got := mi.Lookup(70, 0.2, nil); len(got) != 0 {
		t.Fatalf("velocity below the zone should not match")
	}
}

func TestLoadJSONSliceAndResample(t *testing.T) {
	dir := t.TempDir()
	writeTestWav(t, filepath.Join(dir, "a.wav"), 2000, 22050)
	bankPath := writeBank(t, dir, `{
  "render_rate": 44100,
  "resample_samples": true,
  "instruments": {
    "slice": [
      {"sample": "a.wav", "offset": 500, "length": 1000, "loop_mode": "until_release", "loop_start": 100}
    ]
  }
}`)
	bank, err := LoadJSON(bankPath)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	z := bank.Instruments["slice"].Instruments[0]
	if z.Sample.Rate != 44100 {
		t.Fatalf("sample rate = %d, want 44100", z.Sample.Rate)
	}
	if n := z.Sample.Frames(); n < 1800 || n > 2200 {
		t.Fatalf("resampled length = %d, want ~2000", n)
	}
	if z.LoopStart != 200 || z.LoopEnd != z.Sample.Frames() {
		t.Fatalf("loop should scale with the sample: [%d,%d)", z.LoopStart, z.LoopEnd)
	}
}

func TestLoadJSONRejectsInvalidFields(t *testing.T) {
	dir := t.TempDir()
	writeTestWav(t, filepath.Join(dir, "a.wav"), 100, 44100)

	tests := []struct {
		name string
		json string
		want string
	}{
		{"polyphony", `{"polyphony": 0}`, "polyphony"},
		{"reverb", `{"reverb": {"room_size": 1.5}}`, "reverb.room_size"},
		{"chorus mode", `{"chorus": {"mode": "wide"}}`, "chorus.mode"},
		{"missing sample", `{"instruments": {"x": [{"sample": ""}]}}`, "sample path"},
		{"loop mode", `{"instruments": {"x": [{"sample": "a.wav", "loop_mode": "pingpong"}]}}`, "loop mode"},
		{"length", `{"instruments": {"x": [{"sample": "a.wav", "length": 500}]}}`, "length"},
		{"sustain", `{"instruments": {"x": [{"sample": "a.wav", "sustain_level": 2}]}}`, "sustain_level"},
		{"zone index", `{"instruments": {"x": [{"sample": "a.wav"}, {"sample": "a.wav", "sustain_level": -1}]}}`, "instruments[x][1]: sustain_level"},
		{"missing file", `{"instruments": {"x": [{"sample": "nope.wav"}]}}`, "nope.wav"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadJSON(writeBank(t, dir, tc.json))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestBankInstrumentDefaultsToFirstName(t *testing.T) {
	b := &Bank{Instruments: map[string]*sampler.MultiInstrument{
		"b": sampler.NewMultiInstrument("b"),
		"a": sampler.NewMultiInstrument("a"),
	}}
	mi, err := b.Instrument("")
	if err != nil || mi.Name != "a" {
		t.Fatalf("expected first instrument by name, got %v, %v", mi, err)
	}
	if _, err := b.Instrument("zzz"); err == nil {
		t.Fatalf("expected unknown instrument error")
	}
}

func TestToneInstrumentIsPlayable(t *testing.T) {
	mi := ToneInstrument(48000)
	if len(mi.Instruments) != 1 {
		t.Fatalf("expected one zone")
	}
	z := mi.Instruments[0]
	if !z.Available() || z.Validate() != nil {
		t.Fatalf("tone zone is not playable: %v", z.Validate())
	}
	pcm := z.Sample.PCM()
	if len(pcm) != 48000 || z.LoopEnd != 48000 {
		t.Fatalf("unexpected tone length %d loop end %d", len(pcm), z.LoopEnd)
	}
	if d := pcm[len(pcm)-1] - pcm[0]; d > 0.1 || d < -0.1 {
		t.Fatalf("loop seam jumps by %f", d)
	}
}
