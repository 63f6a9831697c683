package sampler

import (
	"fmt"
	"time"

	"github.com/cwbudde/algo-sampler/dsp"
)

const (
	// MaxVoices is the size of the fixed voice pool.
	MaxVoices = 64
	// NumChannels is the number of MIDI-style channels.
	NumChannels = 16
	// AllChannels addresses every channel in the *All* commands.
	AllChannels = -1
)

// Params holds engine construction settings.
type Params struct {
	RenderRate int
	Polyphony  int
	MaxBlock   int

	// CrossfadeTime is the ramp length used when a voice is stolen.
	CrossfadeTime float64

	VibratoRate  float64 // Hz
	VibratoDepth float64 // semitones at full modulation

	ReverbRoomSize float64
	ReverbDamping  float64
	ReverbWidth    float64
	ReverbLevel    float64

	ChorusDelayMs  float64
	ChorusDepthMs  float64
	ChorusRateHz   float64
	ChorusFeedback float64
	ChorusLevel    float64
	ChorusMode     dsp.ChorusMode

	QueryPollInterval time.Duration
	QueryTimeout      time.Duration
}

// NewDefaultParams creates default parameters.
func NewDefaultParams() *Params {
	return &Params{
		RenderRate:        44100,
		Polyphony:         MaxVoices,
		MaxBlock:          1024,
		CrossfadeTime:     0.001,
		VibratoRate:       5.0,
		VibratoDepth:      0.5,
		ReverbRoomSize:    0.5,
		ReverbDamping:     0.5,
		ReverbWidth:       1.0,
		ReverbLevel:       1.0,
		ChorusDelayMs:     12,
		ChorusDepthMs:     3,
		ChorusRateHz:      0.5,
		ChorusFeedback:    0.2,
		ChorusLevel:       1.0,
		ChorusMode:        dsp.ChorusStereo,
		QueryPollInterval: time.Millisecond,
		QueryTimeout:      250 * time.Millisecond,
	}
}

// Validate checks that p can build an engine.
func (p *Params) Validate() error {
	if p == nil {
		return fmt.Errorf("nil params")
	}
	if p.RenderRate < 8000 || p.RenderRate > 384000 {
		return fmt.Errorf("render_rate must be in [8000,384000], got %d", p.RenderRate)
	}
	if p.Polyphony < 1 || p.Polyphony > MaxVoices {
		return fmt.Errorf("polyphony must be in [1,%d], got %d", MaxVoices, p.Polyphony)
	}
	if p.MaxBlock < 16 || p.MaxBlock > 16384 {
		return fmt.Errorf("max_block must be in [16,16384], got %d", p.MaxBlock)
	}
	if p.CrossfadeTime <= 0 || p.CrossfadeTime > 0.1 {
		return fmt.Errorf("crossfade_time must be in (0,0.1], got %g", p.CrossfadeTime)
	}
	if p.VibratoRate < 0 || p.VibratoDepth < 0 {
		return fmt.Errorf("vibrato rate/depth must be >= 0")
	}
	if p.QueryPollInterval <= 0 || p.QueryTimeout < p.QueryPollInterval {
		return fmt.Errorf("query timeout must be >= poll interval > 0")
	}
	switch p.ChorusMode {
	case dsp.ChorusMono, dsp.ChorusStereo, dsp.ChorusInverted:
	default:
		return fmt.Errorf("unknown chorus mode %d", p.ChorusMode)
	}
	return nil
}
