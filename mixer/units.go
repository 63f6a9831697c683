package mixer

import (
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-sampler/internal/wavio"
)

// Clip plays a preloaded stereo buffer, for raw audio-file playback next to
// the synthesizer.
type Clip struct {
	left  []float32
	right []float32
	loop  bool
	gain  float32

	pos     int
	playing atomic.Bool
	restart atomic.Bool
}

// NewClip wraps left/right frames. The slices are not copied and must not be
// modified afterwards.
func NewClip(left, right []float32, loop bool) *Clip {
	n := len(left)
	if len(right) < n {
		n = len(right)
	}
	return &Clip{left: left[:n], right: right[:n], loop: loop, gain: 1}
}

// LoadClip reads a WAV file and converts it to sampleRate.
func LoadClip(path string, sampleRate int, loop bool) (*Clip, error) {
	left, right, sr, err := wavio.ReadStereo(path)
	if err != nil {
		return nil, err
	}
	if left, err = wavio.Resample(left, sr, sampleRate); err != nil {
		return nil, err
	}
	if right, err = wavio.Resample(right, sr, sampleRate); err != nil {
		return nil, err
	}
	mixerDebug("clip %s loaded: %d frames", path, len(left))
	return NewClip(left, right, loop), nil
}

// SetGain sets the clip gain. Call it before the clip is added to a mixer.
func (c *Clip) SetGain(g float32) { c.gain = g }

// Play starts the clip from the beginning on the next block.
func (c *Clip) Play() {
	c.restart.Store(true)
	c.playing.Store(true)
}

// Stop silences the clip on the next block.
func (c *Clip) Stop() { c.playing.Store(false) }

// Playing reports whether the clip is still producing audio.
func (c *Clip) Playing() bool { return c.playing.Load() }

// Len returns the clip length in frames.
func (c *Clip) Len() int { return len(c.left) }

// RenderInput adds the next block of the clip into buf.
func (c *Clip) RenderInput(buf Buffer) error {
	if c.restart.Swap(false) {
		c.pos = 0
	}
	if !c.playing.Load() || len(c.left) == 0 {
		return nil
	}
	for i := 0; i < buf.Frames; i++ {
		if c.pos >= len(c.left) {
			if !c.loop {
				c.playing.Store(false)
				return nil
			}
			c.pos = 0
		}
		buf.Add(i, c.left[c.pos]*c.gain, c.right[c.pos]*c.gain)
		c.pos++
	}
	return nil
}

const (
	clickMs       = 30.0
	clickHz       = 1000.0
	accentClickHz = 1500.0
)

// Click renders a short decaying sine burst each time it is triggered.
// Deciding when to trigger belongs to the caller's tempo logic.
type Click struct {
	sampleRate float64
	gain       float32
	decay      float32

	pending atomic.Int32 // 0 none, 1 normal, 2 accent
	phase   float64
	step    float64
	env     float32
	left    int
}

// NewClick creates a click generator.
func NewClick(sampleRate int, gain float32) *Click {
	sr := float64(sampleRate)
	if sr <= 0 {
		sr = 44100
	}
	// -60 dB over the click length.
	decay := float32(math.Exp(math.Log(0.001) / (clickMs * sr / 1000.0)))
	return &Click{sampleRate: sr, gain: gain, decay: decay}
}

// Trigger schedules a click at the start of the next block.
func (c *Click) Trigger(accent bool) {
	if accent {
		c.pending.Store(2)
		return
	}
	c.pending.Store(1)
}

// RenderInput adds the click burst, if any, into buf.
func (c *Click) RenderInput(buf Buffer) error {
	if p := c.pending.Swap(0); p != 0 {
		hz := clickHz
		if p == 2 {
			hz = accentClickHz
		}
		c.phase = 0
		c.step = 2 * math.Pi * hz / c.sampleRate
		c.env = 1
		c.left = int(clickMs * c.sampleRate / 1000.0)
	}
	for i := 0; i < buf.Frames && c.left > 0; i++ {
		s := float32(math.Sin(c.phase)) * c.env * c.gain
		buf.Add(i, s, s)
		c.phase += c.step
		c.env *= c.decay
		c.left--
	}
	return nil
}

// Tone is a continuous sine generator, handy for calibration and tests.
type Tone struct {
	step  float64
	phase float64
	gain  atomic.Uint32
}

// NewTone creates a sine tone at hz.
func NewTone(sampleRate int, hz float64, gain float32) *Tone {
	t := &Tone{step: 2 * math.Pi * hz / float64(sampleRate)}
	t.SetGain(gain)
	return t
}

// SetGain changes the tone level; zero mutes it.
func (t *Tone) SetGain(g float32) { t.gain.Store(math.Float32bits(g)) }

// RenderInput adds the tone into buf.
func (t *Tone) RenderInput(buf Buffer) error {
	g := math.Float32frombits(t.gain.Load())
	for i := 0; i < buf.Frames; i++ {
		s := float32(math.Sin(t.phase)) * g
		buf.Add(i, s, s)
		t.phase += t.step
		if t.phase >= 2*math.Pi {
			t.phase -= 2 * math.Pi
		}
	}
	return nil
}
