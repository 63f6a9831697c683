package sampler

import "fmt"

// LoopMode selects how a zone treats its loop region.
type LoopMode int

const (
	LoopNone LoopMode = iota
	LoopContinuous
	// LoopUntilRelease loops while the note is held and plays out the rest
	// of the sample after release.
	LoopUntilRelease
)

func (m LoopMode) String() string {
	switch m {
	case LoopNone:
		return "none"
	case LoopContinuous:
		return "continuous"
	case LoopUntilRelease:
		return "until_release"
	}
	return fmt.Sprintf("LoopMode(%d)", int(m))
}

// ParseLoopMode converts a name produced by String back into a LoopMode.
func ParseLoopMode(s string) (LoopMode, error) {
	switch s {
	case "", "none":
		return LoopNone, nil
	case "continuous", "loop":
		return LoopContinuous, nil
	case "until_release", "sustain":
		return LoopUntilRelease, nil
	}
	return LoopNone, fmt.Errorf("unknown loop mode %q", s)
}

// Sample is immutable mono PCM shared by any number of zones. Data carries
// SampleMargin zero frames on both ends.
type Sample struct {
	Data []float32
	Rate int
}

// NewSample copies frames into a padded buffer.
func NewSample(frames []float32, rate int) *Sample {
	data := make([]float32, len(frames)+2*SampleMargin)
	copy(data[SampleMargin:], frames)
	return &Sample{Data: data, Rate: rate}
}

// Frames returns the playable length, excluding the margins.
func (s *Sample) Frames() int {
	if s == nil || len(s.Data) < 2*SampleMargin {
		return 0
	}
	return len(s.Data) - 2*SampleMargin
}

// PCM returns the playable frames without the margins.
func (s *Sample) PCM() []float32 {
	if s.Frames() == 0 {
		return nil
	}
	return s.Data[SampleMargin : len(s.Data)-SampleMargin]
}

// Available reports whether s can be played.
func (s *Sample) Available() bool {
	n := s.Frames()
	return n > 0 && n <= MaxSampleFrames && s.Rate > 0
}

// Instrument is one zone: a sample mapped to a pitch/velocity rectangle
// with its own envelope, balance and filter settings.
type Instrument struct {
	PitchLow, PitchHigh       float32
	VelocityLow, VelocityHigh float32
	BasePitch                 float32

	LoopStart, LoopEnd int // frames
	LoopMode           LoopMode

	HoldTime     float64 // seconds
	DecayRate    float64 // envelope units per second
	SustainLevel float64
	ReleaseRate  float64 // envelope units per second

	BalanceLow, BalanceHigh float32

	Cutoff float64 // Hz, <= 0 disables
	Q      float64

	Sample *Sample
}

// Contains reports whether pitch and velocity fall inside the zone.
func (in *Instrument) Contains(pitch, velocity float32) bool {
	return pitch >= in.PitchLow && pitch <= in.PitchHigh &&
		velocity >= in.VelocityLow && velocity <= in.VelocityHigh
}

// Available reports whether the zone's sample can be played.
func (in *Instrument) Available() bool {
	return in != nil && in.Sample.Available()
}

// balanceAt interpolates the zone balance across its pitch range.
func (in *Instrument) balanceAt(pitch float32) float32 {
	span := in.PitchHigh - in.PitchLow
	t := float32(0.5)
	if span > 0 {
		t = clampf((pitch-in.PitchLow)/span, 0, 1)
	}
	return clampf(in.BalanceLow+(in.BalanceHigh-in.BalanceLow)*t, -1, 1)
}

// Validate checks zone ranges and loop points.
func (in *Instrument) Validate() error {
	if in.PitchHigh < in.PitchLow {
		return fmt.Errorf("pitch range [%g,%g] is inverted", in.PitchLow, in.PitchHigh)
	}
	if in.VelocityLow < 0 || in.VelocityHigh > 1 || in.VelocityHigh < in.VelocityLow {
		return fmt.Errorf("velocity range [%g,%g] must lie in [0,1]", in.VelocityLow, in.VelocityHigh)
	}
	if in.SustainLevel < 0 || in.SustainLevel > 1 {
		return fmt.Errorf("sustain_level must be in [0,1], got %g", in.SustainLevel)
	}
	if in.HoldTime < 0 || in.DecayRate < 0 || in.ReleaseRate < 0 {
		return fmt.Errorf("hold/decay/release must be >= 0")
	}
	if in.BalanceLow < -1 || in.BalanceLow > 1 || in.BalanceHigh < -1 || in.BalanceHigh > 1 {
		return fmt.Errorf("balance must be in [-1,1]")
	}
	switch in.LoopMode {
	case LoopNone, LoopContinuous, LoopUntilRelease:
	default:
		return fmt.Errorf("unknown loop mode %d", in.LoopMode)
	}
	if in.Sample != nil {
		n := in.Sample.Frames()
		if n > MaxSampleFrames {
			return fmt.Errorf("sample has %d frames, max is %d", n, MaxSampleFrames)
		}
		if in.LoopMode != LoopNone && (in.LoopStart < 0 || in.LoopEnd > n || in.LoopStart > in.LoopEnd) {
			return fmt.Errorf("loop [%d,%d) outside sample of %d frames", in.LoopStart, in.LoopEnd, n)
		}
	}
	return nil
}

// MultiInstrument is an ordered list of zones that may overlap; a note
// triggers every matching zone as a layered group.
type MultiInstrument struct {
	Name        string
	Instruments []*Instrument
}

// NewMultiInstrument creates a multi-instrument from zones.
func NewMultiInstrument(name string, zones ...*Instrument) *MultiInstrument {
	return &MultiInstrument{Name: name, Instruments: zones}
}

// Lookup appends every zone containing pitch and velocity to dst.
func (m *MultiInstrument) Lookup(pitch, velocity float32, dst []*Instrument) []*Instrument {
	if m == nil {
		return dst
	}
	for _, in := range m.Instruments {
		if in != nil && in.Contains(pitch, velocity) {
			dst = append(dst, in)
		}
	}
	return dst
}
