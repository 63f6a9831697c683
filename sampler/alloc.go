package sampler

import "math"

// playNote starts one voice per zone of mi that contains pitch and velocity.
// The zones form a group that is either allocated completely or not at all.
func (s *Sampler) playNote(pitch, velocity float32, mi *MultiInstrument, ch int) {
	if mi == nil || !validChannel(ch) || !isFinite(pitch) || !isFinite(velocity) {
		return
	}
	matched := 0
	for _, in := range mi.Instruments {
		if in == nil || !in.Contains(pitch, velocity) || !in.Available() {
			continue
		}
		if matched < len(s.layers) {
			s.layers[matched] = in
		}
		matched++
	}
	if matched == 0 {
		return
	}

	voices := s.voices[:s.polyphony]
	for i := range voices {
		voices[i].locked = false
	}
	s.groupCounter++
	group := s.groupCounter

	allocated := 0
	if matched <= len(voices) {
		for k := 0; k < matched; k++ {
			idx := s.freeVoice()
			if idx < 0 {
				idx = s.stealCandidate(ch)
				if idx < 0 {
					break
				}
				s.evictGroup(voices[idx].group)
				s.stats.steals.Add(1)
			}
			s.startVoice(&voices[idx], s.layers[k], pitch, velocity, mi, ch, group)
			allocated++
		}
	}

	if allocated < matched {
		for i := range voices {
			v := &voices[i]
			if v.group == group && v.inst != nil {
				v.dropLive()
			}
		}
		s.stats.dropped.Add(1)
	}
	for k := range s.layers[:min(matched, len(s.layers))] {
		s.layers[k] = nil
	}
}

func (s *Sampler) freeVoice() int {
	for i := range s.voices[:s.polyphony] {
		if !s.voices[i].playing {
			return i
		}
	}
	return -1
}

// stealCandidate picks the quietest unlocked voice that is either released
// or already on channel ch.
func (s *Sampler) stealCandidate(ch int) int {
	best := -1
	bestPeak := float32(math.MaxFloat32)
	for i := range s.voices[:s.polyphony] {
		v := &s.voices[i]
		if v.locked {
			continue
		}
		if v.NoteOn() && v.channel != ch {
			continue
		}
		if v.peak < bestPeak {
			best = i
			bestPeak = v.peak
		}
	}
	return best
}

// evictGroup crossfades out every live voice of group.
func (s *Sampler) evictGroup(group uint64) {
	for i := range s.voices[:s.polyphony] {
		v := &s.voices[i]
		if v.playing && v.group == group {
			v.evict()
		}
	}
}

func (s *Sampler) startVoice(v *Voice, in *Instrument, pitch, velocity float32, mi *MultiInstrument, ch int, group uint64) {
	rate := s.renderRate
	frames := uint64(in.Sample.Frames())
	_, volume := warpVelocity(velocity)
	bal := in.balanceAt(pitch)

	st := &v.voiceState
	st.clear()
	st.inst = in
	st.multi = mi
	st.data = in.Sample.Data
	st.pitch = pitch
	st.channel = ch
	st.end = frames << FracBits
	st.loopMode = in.LoopMode
	if in.LoopMode != LoopNone {
		ls := uint64(max(in.LoopStart, 0))
		le := uint64(max(in.LoopEnd, 0))
		if le > frames {
			le = frames
		}
		if ls > le {
			ls = le
		}
		st.loopStart = ls << FracBits
		st.loopEnd = le << FracBits
	}
	st.gate = true
	st.env = 1
	st.hold = int(in.HoldTime*rate + 0.5)
	st.decay = in.DecayRate / rate
	st.sustain = min(max(in.SustainLevel, 0), 1)
	st.release = in.ReleaseRate / rate
	st.velVolume = volume
	st.balance = bal
	st.targetBalance = bal
	st.updateVolumes(0)
	st.cutoff = in.Cutoff
	st.q = in.Q
	s.updateFilter(st)
	st.rate = s.voiceRate(st)

	v.playing = true
	v.locked = true
	v.group = group
	// Fresh voices count as loud until their first block is measured.
	v.peak = 1
}
