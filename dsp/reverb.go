package dsp

import (
	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
)

// NumCombs is the number of parallel comb filters in the reverb.
const NumCombs = 8

const (
	reverbInputGain = 0.015
	scaleDamping    = 0.4
	scaleRoom       = 0.28
	offsetRoom      = 0.7
)

// Comb delay lengths in samples at 44.1 kHz.
var combTuning = [NumCombs]int{
	1116, 1188, 1277, 1356, 1422, 1491, 1557, 1617,
}

// Comb is a feedback comb filter with a one-pole damping filter in the loop.
type Comb struct {
	buffer   []float32
	idx      int
	feedback float32
	damp1    float32
	damp2    float32
	store    float32
}

// NewComb creates a comb filter with the given delay in samples.
func NewComb(size int) *Comb {
	if size < 1 {
		size = 1
	}
	return &Comb{
		buffer: make([]float32, size),
		damp2:  1,
	}
}

// SetFeedback sets the loop gain.
func (c *Comb) SetFeedback(fb float32) {
	c.feedback = fb
}

// SetDamping sets the loop low-pass amount in [0,1).
func (c *Comb) SetDamping(d float32) {
	c.damp1 = d
	c.damp2 = 1 - d
}

// Process pushes one sample through the comb and returns the delayed output.
func (c *Comb) Process(input float32) float32 {
	output := c.buffer[c.idx]
	c.store = float32(dspcore.FlushDenormals(float64(output*c.damp2 + c.store*c.damp1)))
	c.buffer[c.idx] = FlushDenormals(input + c.store*c.feedback)
	c.idx++
	if c.idx >= len(c.buffer) {
		c.idx = 0
	}
	return output
}

// Reset clears the comb state.
func (c *Comb) Reset() {
	for i := range c.buffer {
		c.buffer[i] = 0
	}
	c.idx = 0
	c.store = 0
}

// Reverb is a bank of parallel damped combs summed into two stereo taps.
// Even combs feed the first tap and odd combs the second; width crossfeeds them.
type Reverb struct {
	combs [NumCombs]*Comb

	roomSize float64
	damping  float64
	width    float64
	level    float64

	wet1 float32
	wet2 float32
}

// NewReverb creates a reverb with comb lengths scaled to sampleRate.
func NewReverb(sampleRate float64) *Reverb {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	r := &Reverb{
		roomSize: 0.5,
		damping:  0.5,
		width:    1.0,
		level:    1.0,
	}
	scale := sampleRate / 44100.0
	for i := range r.combs {
		r.combs[i] = NewComb(int(float64(combTuning[i]) * scale))
	}
	r.update()
	return r
}

// SetRoomSize sets the room size in [0,1]; larger rooms feed back more.
func (r *Reverb) SetRoomSize(size float64) {
	r.roomSize = clamp(size, 0, 1)
	r.update()
}

// SetDamping sets high-frequency damping in [0,1].
func (r *Reverb) SetDamping(d float64) {
	r.damping = clamp(d, 0, 1)
	r.update()
}

// SetWidth sets the stereo width in [0,1].
func (r *Reverb) SetWidth(w float64) {
	r.width = clamp(w, 0, 1)
	r.update()
}

// SetLevel sets the wet output gain.
func (r *Reverb) SetLevel(level float64) {
	r.level = clamp(level, 0, 4)
	r.update()
}

// RoomSize returns the current room size.
func (r *Reverb) RoomSize() float64 { return r.roomSize }

func (r *Reverb) update() {
	r.wet1 = float32(r.level * (r.width/2 + 0.5))
	r.wet2 = float32(r.level * ((1 - r.width) / 2))

	fb := float32(r.roomSize*scaleRoom + offsetRoom)
	damp := float32(r.damping * scaleDamping)
	for _, c := range r.combs {
		c.SetFeedback(fb)
		c.SetDamping(damp)
	}
}

// Process reads the stereo send in inL/inR and writes the wet signal to
// outL/outR. The input and output slices may alias.
func (r *Reverb) Process(inL, inR, outL, outR []float32) {
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
		x := (inL[i] + inR[i]) * reverbInputGain

		var tapA, tapB float32
		for k := 0; k < NumCombs; k += 2 {
			tapA += r.combs[k].Process(x)
			tapB += r.combs[k+1].Process(x)
		}

		outL[i] = tapA*r.wet1 + tapB*r.wet2
		outR[i] = tapB*r.wet1 + tapA*r.wet2
	}
}

// Reset clears every comb.
func (r *Reverb) Reset() {
	for _, c := range r.combs {
		c.Reset()
	}
}
