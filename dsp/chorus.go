package dsp

import "math"

// ChorusMode selects how the modulated delay is spread over the two outputs.
type ChorusMode int

const (
	// ChorusMono writes the same wet signal to both outputs.
	ChorusMono ChorusMode = iota
	// ChorusStereo reads a second tap with the LFO shifted by a quarter period.
	ChorusStereo
	// ChorusInverted writes the wet signal to the left and its negation to the right.
	ChorusInverted
)

const maxChorusMs = 60.0

// Chorus is a single modulated-delay chorus fed from a stereo send.
type Chorus struct {
	sampleRate float64
	line       *DelayLine

	delay    float32 // base delay in samples
	depth    float32 // sweep depth in samples
	feedback float32
	level    float32
	mode     ChorusMode

	phase     float64
	phaseStep float64
	fb        float32
}

// NewChorus creates a chorus with a 12 ms base delay swept by 3 ms at 0.5 Hz.
func NewChorus(sampleRate float64) *Chorus {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	c := &Chorus{
		sampleRate: sampleRate,
		line:       NewDelayLine(int(maxChorusMs*sampleRate/1000.0) + 4),
		level:      1.0,
		mode:       ChorusStereo,
	}
	c.SetDelay(12)
	c.SetDepth(3)
	c.SetRate(0.5)
	return c
}

// SetDelay sets the base delay in milliseconds.
func (c *Chorus) SetDelay(ms float64) {
	ms = clamp(ms, 1, maxChorusMs/2)
	c.delay = float32(ms * c.sampleRate / 1000.0)
}

// SetDepth sets the sweep depth in milliseconds.
func (c *Chorus) SetDepth(ms float64) {
	ms = clamp(ms, 0, maxChorusMs/2-1)
	c.depth = float32(ms * c.sampleRate / 1000.0)
}

// SetRate sets the sweep LFO frequency in Hz.
func (c *Chorus) SetRate(hz float64) {
	hz = clamp(hz, 0.01, 10)
	c.phaseStep = 2 * math.Pi * hz / c.sampleRate
}

// SetFeedback sets how much of the wet signal is fed back into the line.
func (c *Chorus) SetFeedback(fb float64) {
	c.feedback = float32(clamp(fb, 0, 0.9))
}

// SetLevel sets the wet output gain.
func (c *Chorus) SetLevel(level float64) {
	c.level = float32(clamp(level, 0, 2))
}

// SetMode selects the output spread.
func (c *Chorus) SetMode(mode ChorusMode) {
	c.mode = mode
}

// Process reads the stereo send in inL/inR and writes the wet signal to
// outL/outR. The input and output slices may alias.
func (c *Chorus) Process(inL, inR, outL, outR []float32) {
	n := len(inL)
	if len(inR) < n {
		n = len(inR)
	}
	if len(outL) < n {
		n = len(outL)
	}
	if len(outR) < n {
		n = len(outR)
	}

	for i := 0; i < n; i++ {
		x := 0.5 * (inL[i] + inR[i])

		sweep := float32(math.Sin(c.phase))
		wetL := c.line.ReadFractional(c.delay + c.depth*sweep)

		var wetR float32
		switch c.mode {
		case ChorusStereo:
			quad := float32(math.Cos(c.phase))
			wetR = c.line.ReadFractional(c.delay + c.depth*quad)
		case ChorusInverted:
			wetR = -wetL
		default:
			wetR = wetL
		}

		c.fb = FlushDenormals(wetL * c.feedback)
		c.line.Write(x + c.fb)

		c.phase += c.phaseStep
		if c.phase >= 2*math.Pi {
			c.phase -= 2 * math.Pi
		}

		outL[i] = wetL * c.level
		outR[i] = wetR * c.level
	}
}

// Reset clears the delay line and rewinds the LFO.
func (c *Chorus) Reset() {
	c.line.Reset()
	c.phase = 0
	c.fb = 0
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
