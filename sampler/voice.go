package sampler

import "github.com/cwbudde/algo-sampler/dsp"

// peakSmoothing weights the newest block peak in the running max used to
// pick steal candidates.
const peakSmoothing = 0.1

// voiceState is everything needed to render one zone. A Voice holds two:
// the live one and a copy of the evicted one while it crossfades out.
type voiceState struct {
	inst  *Instrument
	multi *MultiInstrument
	data  []float32

	pitch   float32
	channel int

	pos, rate          uint64
	end                uint64
	loopStart, loopEnd uint64
	loopMode           LoopMode

	gate      bool // note held
	sustained bool // released while the sustain pedal was down

	env          float64
	hold         int
	decay        float64
	sustain      float64
	release      float64
	releasing    bool
	releaseLevel float64
	releaseCount int

	velVolume     float32
	balance       float32
	targetBalance float32
	volL, volR    float32

	cutoff, q float64
	filter    dsp.Biquad
	filtered  bool
}

func (s *voiceState) active() bool {
	return s.inst != nil
}

func (s *voiceState) clear() {
	*s = voiceState{}
}

// looping reports whether the loop region applies right now.
func (s *voiceState) looping() bool {
	switch s.loopMode {
	case LoopContinuous:
		return true
	case LoopUntilRelease:
		return s.gate || s.sustained
	}
	return false
}

// stepEnvelope advances the envelope by one frame and reports whether the
// voice is still audible.
func (s *voiceState) stepEnvelope() bool {
	if s.gate || s.sustained {
		if s.hold > 0 {
			s.hold--
			return true
		}
		if s.env > s.sustain {
			s.env -= s.decay
			if s.env < s.sustain {
				s.env = s.sustain
			}
		}
		return true
	}
	if !s.releasing {
		s.releasing = true
		s.releaseLevel = s.env
		s.releaseCount = 0
	}
	s.releaseCount++
	s.env = s.releaseLevel - float64(s.releaseCount)*s.release
	return s.env > 0
}

// render writes n frames of this state into l and r and reports whether it
// is still playing. Frames after the end are zeroed.
func (s *voiceState) render(l, r []float32, n int) bool {
	data := s.data
	if data == nil {
		zero(l[:n])
		zero(r[:n])
		return false
	}
	for i := 0; i < n; i++ {
		if !s.stepEnvelope() {
			zero(l[i:n])
			zero(r[i:n])
			return false
		}
		if s.looping() {
			s.pos = wrapLoop(s.pos, s.loopStart, s.loopEnd)
		}
		if s.pos >= s.end {
			zero(l[i:n])
			zero(r[i:n])
			return false
		}
		idx := int(s.pos >> FracBits)
		frac := s.pos & fracMask
		var x float32
		if s.rate == FracOne {
			x = nearest(data, idx, frac)
		} else {
			x = interpolate(data, idx, frac)
		}
		if s.filtered {
			x = s.filter.Process(x)
		}
		x *= envelopeGain(s.env)
		l[i] = x * s.volL
		r[i] = x * s.volR
		s.pos += s.rate
	}
	return true
}

// updateVolumes moves the balance toward its target by at most step and
// refreshes the precomputed stereo volumes.
func (s *voiceState) updateVolumes(step float32) {
	d := s.targetBalance - s.balance
	if d > step {
		d = step
	} else if d < -step {
		d = -step
	}
	s.balance += d
	gl, gr := panGains(s.balance)
	s.volL = gl * s.velVolume
	s.volR = gr * s.velVolume
}

// Voice is one slot of the fixed pool.
type Voice struct {
	voiceState

	old       voiceState
	oldActive bool
	xfade     float32

	playing  bool
	locked   bool
	group    uint64
	oldGroup uint64 // group of the zone in the crossfade slot
	peak     float32
}

// Playing reports whether the slot is producing sound.
func (v *Voice) Playing() bool { return v.playing }

// NoteOn reports whether the live zone's key is still held.
func (v *Voice) NoteOn() bool { return v.inst != nil && v.gate }

// Channel returns the channel of the live zone.
func (v *Voice) Channel() int { return v.channel }

// Peak returns the smoothed running maximum of the voice output.
func (v *Voice) Peak() float32 { return v.peak }

// evict moves the live zone into the crossfade slot and leaves the live
// slot empty, so the voice keeps playing until the fade completes.
func (v *Voice) evict() {
	if v.inst != nil {
		v.old = v.voiceState
		v.oldActive = true
		v.oldGroup = v.group
		v.xfade = 0
	}
	v.voiceState.clear()
	if !v.oldActive {
		v.playing = false
	}
}

// dropLive discards the live zone, keeping any crossfade already in
// progress. The voice falls back to the fading zone's group.
func (v *Voice) dropLive() {
	v.voiceState.clear()
	v.locked = false
	if v.oldActive {
		v.group = v.oldGroup
		return
	}
	v.group = 0
	v.playing = false
}

// stop silences the voice immediately, crossfade included.
func (v *Voice) stop() {
	v.voiceState.clear()
	v.old.clear()
	v.oldActive = false
	v.xfade = 1
	v.playing = false
	v.locked = false
	v.group = 0
	v.oldGroup = 0
}

// render mixes the live and evicted states into l and r using oldL and
// oldR as scratch, then updates the running peak.
func (v *Voice) render(l, r, oldL, oldR []float32, n int, xfadeStep float32) {
	if v.inst != nil {
		if !v.voiceState.render(l, r, n) {
			v.voiceState.clear()
		}
	} else {
		zero(l[:n])
		zero(r[:n])
	}

	if v.oldActive {
		if v.old.inst != nil {
			if !v.old.render(oldL, oldR, n) {
				v.old.clear()
			}
		} else {
			zero(oldL[:n])
			zero(oldR[:n])
		}
		for i := 0; i < n; i++ {
			f := v.xfade
			if f >= 1 {
				break
			}
			l[i] = f*l[i] + (1-f)*oldL[i]
			r[i] = f*r[i] + (1-f)*oldR[i]
			v.xfade += xfadeStep
		}
		if v.xfade >= 1 {
			v.xfade = 1
			v.old.clear()
			v.oldActive = false
		}
	}

	var blockPeak float32
	for i := 0; i < n; i++ {
		if a := absf(l[i]); a > blockPeak {
			blockPeak = a
		}
		if a := absf(r[i]); a > blockPeak {
			blockPeak = a
		}
	}
	v.peak += peakSmoothing * (blockPeak - v.peak)

	if v.inst == nil && !v.oldActive {
		v.playing = false
	}
}
