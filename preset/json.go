// Package preset loads sample banks: engine settings plus named
// multi-instruments whose zones reference WAV files.
package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/GeoffreyPlitt/debuggo"
	"github.com/cwbudde/algo-sampler/dsp"
	"github.com/cwbudde/algo-sampler/sampler"
	"github.com/pkg/errors"
)

var presetDebug = debuggo.Debug("sampler:preset")

// File is the JSON schema for sample banks.
type File struct {
	RenderRate      *int                     `json:"render_rate"`
	Polyphony       *int                     `json:"polyphony"`
	MaxBlock        *int                     `json:"max_block"`
	CrossfadeTime   *float64                 `json:"crossfade_time"`
	VibratoRate     *float64                 `json:"vibrato_rate"`
	VibratoDepth    *float64                 `json:"vibrato_depth"`
	Reverb          *ReverbSetting           `json:"reverb"`
	Chorus          *ChorusSetting           `json:"chorus"`
	ResampleSamples bool                     `json:"resample_samples"`
	Instruments     map[string][]ZoneSetting `json:"instruments"`
}

// ReverbSetting is a partial reverb override.
type ReverbSetting struct {
	RoomSize *float64 `json:"room_size"`
	Damping  *float64 `json:"damping"`
	Width    *float64 `json:"width"`
	Level    *float64 `json:"level"`
}

// ChorusSetting is a partial chorus override.
type ChorusSetting struct {
	DelayMs  *float64 `json:"delay_ms"`
	DepthMs  *float64 `json:"depth_ms"`
	RateHz   *float64 `json:"rate_hz"`
	Feedback *float64 `json:"feedback"`
	Level    *float64 `json:"level"`
	Mode     string   `json:"mode"`
}

// ZoneSetting describes one zone. Unset fields take the zone defaults.
type ZoneSetting struct {
	Sample string `json:"sample"`
	Offset int    `json:"offset"`
	Length int    `json:"length"`

	PitchLow     *float32 `json:"pitch_low"`
	PitchHigh    *float32 `json:"pitch_high"`
	VelocityLow  *float32 `json:"velocity_low"`
	VelocityHigh *float32 `json:"velocity_high"`
	BasePitch    *float32 `json:"base_pitch"`

	LoopStart int    `json:"loop_start"`
	LoopEnd   int    `json:"loop_end"`
	LoopMode  string `json:"loop_mode"`

	HoldTime     *float64 `json:"hold_time"`
	DecayRate    *float64 `json:"decay_rate"`
	SustainLevel *float64 `json:"sustain_level"`
	ReleaseRate  *float64 `json:"release_rate"`

	BalanceLow  *float32 `json:"balance_low"`
	BalanceHigh *float32 `json:"balance_high"`

	Cutoff *float64 `json:"cutoff"`
	Q      *float64 `json:"q"`
}

// Bank is a loaded sample bank.
type Bank struct {
	Params      *sampler.Params
	Instruments map[string]*sampler.MultiInstrument
}

// Names returns the instrument names in sorted order.
func (b *Bank) Names() []string {
	names := make([]string, 0, len(b.Instruments))
	for k := range b.Instruments {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Instrument returns the named multi-instrument, or the first one by name
// when name is empty.
func (b *Bank) Instrument(name string) (*sampler.MultiInstrument, error) {
	if name == "" {
		names := b.Names()
		if len(names) == 0 {
			return nil, fmt.Errorf("bank has no instruments")
		}
		name = names[0]
	}
	mi, ok := b.Instruments[name]
	if !ok {
		return nil, fmt.Errorf("unknown instrument %q (have %s)", name, strings.Join(b.Names(), ", "))
	}
	return mi, nil
}

// LoadJSON loads a bank file, applies its settings on top of default params
// and decodes every referenced sample. Relative sample paths are resolved
// against the bank's directory.
func LoadJSON(path string) (*Bank, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read bank %s", path)
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, errors.Wrapf(err, "parse bank %s", path)
	}

	p := sampler.NewDefaultParams()
	if err := ApplyFile(p, &f); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	loader := newSampleLoader(filepath.Dir(path), p.RenderRate, f.ResampleSamples)
	bank := &Bank{Params: p, Instruments: make(map[string]*sampler.MultiInstrument, len(f.Instruments))}
	names := make([]string, 0, len(f.Instruments))
	for name := range f.Instruments {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		mi, err := buildInstrument(name, f.Instruments[name], loader)
		if err != nil {
			return nil, err
		}
		bank.Instruments[name] = mi
	}
	presetDebug("loaded bank %s: %d instruments, %d samples", path, len(bank.Instruments), len(loader.cache))
	return bank, nil
}

// ApplyFile applies the engine settings of a parsed bank onto params.
func ApplyFile(dst *sampler.Params, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination params")
	}
	if f == nil {
		return nil
	}

	if f.RenderRate != nil {
		if *f.RenderRate <= 0 {
			return fmt.Errorf("render_rate must be > 0")
		}
		dst.RenderRate = *f.RenderRate
	}
	if f.Polyphony != nil {
		if *f.Polyphony < 1 || *f.Polyphony > sampler.MaxVoices {
			return fmt.Errorf("polyphony must be in [1,%d]", sampler.MaxVoices)
		}
		dst.Polyphony = *f.Polyphony
	}
	if f.MaxBlock != nil {
		if *f.MaxBlock <= 0 {
			return fmt.Errorf("max_block must be > 0")
		}
		dst.MaxBlock = *f.MaxBlock
	}
	if f.CrossfadeTime != nil {
		if *f.CrossfadeTime <= 0 {
			return fmt.Errorf("crossfade_time must be > 0")
		}
		dst.CrossfadeTime = *f.CrossfadeTime
	}
	if f.VibratoRate != nil {
		if *f.VibratoRate < 0 {
			return fmt.Errorf("vibrato_rate must be >= 0")
		}
		dst.VibratoRate = *f.VibratoRate
	}
	if f.VibratoDepth != nil {
		if *f.VibratoDepth < 0 {
			return fmt.Errorf("vibrato_depth must be >= 0")
		}
		dst.VibratoDepth = *f.VibratoDepth
	}

	if r := f.Reverb; r != nil {
		if err := setUnit(&dst.ReverbRoomSize, r.RoomSize, "reverb.room_size"); err != nil {
			return err
		}
		if err := setUnit(&dst.ReverbDamping, r.Damping, "reverb.damping"); err != nil {
			return err
		}
		if err := setUnit(&dst.ReverbWidth, r.Width, "reverb.width"); err != nil {
			return err
		}
		if r.Level != nil {
			if *r.Level < 0 {
				return fmt.Errorf("reverb.level must be >= 0")
			}
			dst.ReverbLevel = *r.Level
		}
	}

	if c := f.Chorus; c != nil {
		if c.DelayMs != nil {
			if *c.DelayMs <= 0 {
				return fmt.Errorf("chorus.delay_ms must be > 0")
			}
			dst.ChorusDelayMs = *c.DelayMs
		}
		if c.DepthMs != nil {
			if *c.DepthMs < 0 {
				return fmt.Errorf("chorus.depth_ms must be >= 0")
			}
			dst.ChorusDepthMs = *c.DepthMs
		}
		if c.RateHz != nil {
			if *c.RateHz < 0 {
				return fmt.Errorf("chorus.rate_hz must be >= 0")
			}
			dst.ChorusRateHz = *c.RateHz
		}
		if c.Feedback != nil {
			if *c.Feedback < 0 || *c.Feedback >= 1 {
				return fmt.Errorf("chorus.feedback must be in [0,1)")
			}
			dst.ChorusFeedback = *c.Feedback
		}
		if c.Level != nil {
			if *c.Level < 0 {
				return fmt.Errorf("chorus.level must be >= 0")
			}
			dst.ChorusLevel = *c.Level
		}
		if c.Mode != "" {
			mode, err := parseChorusMode(c.Mode)
			if err != nil {
				return err
			}
			dst.ChorusMode = mode
		}
	}
	return nil
}

func setUnit(dst *float64, v *float64, field string) error {
	if v == nil {
		return nil
	}
	if *v < 0 || *v > 1 {
		return fmt.Errorf("%s must be in [0,1]", field)
	}
	*dst = *v
	return nil
}

func parseChorusMode(s string) (dsp.ChorusMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mono":
		return dsp.ChorusMono, nil
	case "stereo":
		return dsp.ChorusStereo, nil
	case "inverted":
		return dsp.ChorusInverted, nil
	}
	return dsp.ChorusStereo, fmt.Errorf("chorus.mode must be mono, stereo or inverted, got %q", s)
}
