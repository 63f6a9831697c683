package sampler

// ChannelState is the controller state of one channel.
type ChannelState struct {
	Sustain         bool
	PitchBend       float32 // [-1,1]
	Modulation      float32 // [0,1]
	Expression      float32
	Level           float32
	Balance         float32 // [-1,1]
	Reverb          float32 // send level
	Chorus          float32 // send level
	PitchBendFactor float32 // semitones at full bend
}

// DefaultChannelState returns the power-on controller state.
func DefaultChannelState() ChannelState {
	return ChannelState{
		Expression:      1,
		Level:           1,
		PitchBendFactor: 2,
	}
}

// apply updates the controller addressed by op.
func (c *ChannelState) apply(op Op, value float32) {
	switch op {
	case OpSetSustain:
		c.Sustain = value >= 0.5
	case OpSetPitchBend:
		c.PitchBend = clampf(value, -1, 1)
	case OpSetModulation:
		c.Modulation = clampf(value, 0, 1)
	case OpSetExpression:
		c.Expression = clampf(value, 0, 1)
	case OpSetLevel:
		c.Level = clampf(value, 0, 4)
	case OpSetBalance:
		c.Balance = clampf(value, -1, 1)
	case OpSetReverb:
		c.Reverb = clampf(value, 0, 1)
	case OpSetChorus:
		c.Chorus = clampf(value, 0, 1)
	case OpSetPitchBendFactor:
		c.PitchBendFactor = clampf(value, 0, 48)
	}
}

// semitoneOffset returns the channel's pitch offset for a vibrato LFO value
// already scaled to semitones.
func (c *ChannelState) semitoneOffset(vibrato float64) float64 {
	return float64(c.PitchBend)*float64(c.PitchBendFactor) + float64(c.Modulation)*vibrato
}

func validChannel(ch int) bool {
	return ch >= 0 && ch < NumChannels
}
