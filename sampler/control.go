package sampler

import "time"

// apply executes one command on the render thread.
func (s *Sampler) apply(c Command) {
	switch c.Op {
	case OpPlayNote:
		s.playNote(c.A, c.B, c.Multi, c.Channel)
	case OpReleaseNote:
		s.releaseVoices(c.Channel, c.A, true)
	case OpReleaseAllNotes:
		s.releaseVoices(c.Channel, 0, false)
	case OpStopNote:
		s.stopVoices(c.Channel, c.A, true)
	case OpStopAllNotes:
		s.stopVoices(c.Channel, 0, false)
	case OpClearVoices:
		s.clearVoices(c.Channel)
	case OpSetSustain:
		if !validChannel(c.Channel) {
			return
		}
		s.channels[c.Channel].apply(c.Op, c.A)
		if !s.channels[c.Channel].Sustain {
			s.liftSustain(c.Channel)
		}
	case OpSetReverbRoomSize:
		s.reverb.SetRoomSize(float64(c.A))
	case OpSetReverbDamping:
		s.reverb.SetDamping(float64(c.A))
	case OpQueryNotePlaying:
		s.reply(c.Tag, s.notePlaying(c.Channel, 0, false))
	case OpQueryPitchPlaying:
		s.reply(c.Tag, s.notePlaying(c.Channel, c.A, true))
	case OpQueryInUse:
		s.reply(c.Tag, s.inUse(c.Multi))
	default:
		if validChannel(c.Channel) {
			s.channels[c.Channel].apply(c.Op, c.A)
		}
	}
}

func matchChannel(want, ch int) bool {
	return want == AllChannels || want == ch
}

func (s *Sampler) releaseVoices(ch int, pitch float32, byPitch bool) {
	for i := range s.voices[:s.polyphony] {
		v := &s.voices[i]
		if !v.NoteOn() || !matchChannel(ch, v.channel) || (byPitch && v.pitch != pitch) {
			continue
		}
		v.gate = false
		v.sustained = s.channels[v.channel].Sustain
	}
}

func (s *Sampler) liftSustain(ch int) {
	for i := range s.voices[:s.polyphony] {
		v := &s.voices[i]
		if v.inst != nil && v.channel == ch {
			v.sustained = false
		}
		if v.oldActive && v.old.channel == ch {
			v.old.sustained = false
		}
	}
}

func (s *Sampler) stopVoices(ch int, pitch float32, byPitch bool) {
	for i := range s.voices[:s.polyphony] {
		v := &s.voices[i]
		if v.inst == nil || !matchChannel(ch, v.channel) || (byPitch && v.pitch != pitch) {
			continue
		}
		// A stolen zone still fading out belongs to its own note.
		if v.oldActive && v.old.inst != nil &&
			(!matchChannel(ch, v.old.channel) || (byPitch && v.old.pitch != pitch)) {
			v.dropLive()
			continue
		}
		v.stop()
	}
}

// clearVoices kills every voice on ch, fading ones included. Clearing all
// channels also empties the effect tails.
func (s *Sampler) clearVoices(ch int) {
	for i := range s.voices[:s.polyphony] {
		v := &s.voices[i]
		if !v.playing {
			continue
		}
		owner := v.channel
		if v.inst == nil {
			owner = v.old.channel
		}
		if matchChannel(ch, owner) {
			v.stop()
			v.peak = 0
		}
	}
	if ch == AllChannels {
		s.reverb.Reset()
		s.chorus.Reset()
	}
}

func (s *Sampler) notePlaying(ch int, pitch float32, byPitch bool) bool {
	for i := range s.voices[:s.polyphony] {
		v := &s.voices[i]
		if !v.playing {
			continue
		}
		if v.inst != nil && v.channel == ch && (!byPitch || v.pitch == pitch) {
			return true
		}
		if v.oldActive && v.old.inst != nil && v.old.channel == ch && (!byPitch || v.old.pitch == pitch) {
			return true
		}
	}
	return false
}

func (s *Sampler) inUse(mi *MultiInstrument) bool {
	if mi == nil {
		return false
	}
	for i := range s.voices[:s.polyphony] {
		v := &s.voices[i]
		if !v.playing {
			continue
		}
		if (v.inst != nil && v.multi == mi) || (v.oldActive && v.old.inst != nil && v.old.multi == mi) {
			return true
		}
	}
	return false
}

func (s *Sampler) reply(tag uint64, ok bool) {
	var a float32
	if ok {
		a = 1
	}
	if !s.out.Push(Command{Op: OpReply, Tag: tag, A: a}) {
		s.stats.droppedCmds.Add(1)
	}
}

// send enqueues c for the render thread. Producers are serialized so the
// ring keeps a single writer.
func (s *Sampler) send(c Command) bool {
	s.ctlMu.Lock()
	ok := s.in.Push(c)
	s.ctlMu.Unlock()
	if !ok {
		s.stats.droppedCmds.Add(1)
		engineDebug("command queue full, dropped op=%d ch=%d", c.Op, c.Channel)
	}
	return ok
}

func (s *Sampler) setControl(op Op, value float32, ch int) {
	if !validChannel(ch) || !isFinite(value) {
		return
	}
	s.ctlMu.Lock()
	defer s.ctlMu.Unlock()
	s.shadow[ch].apply(op, value)
	if !s.in.Push(Command{Op: op, Channel: ch, A: value}) {
		s.stats.droppedCmds.Add(1)
		engineDebug("command queue full, dropped op=%d ch=%d", op, ch)
	}
}

// PlayNote starts every zone of mi that contains pitch and velocity.
func (s *Sampler) PlayNote(pitch, velocity float32, mi *MultiInstrument, ch int) {
	if mi == nil || !validChannel(ch) {
		return
	}
	s.send(Command{Op: OpPlayNote, Channel: ch, A: pitch, B: velocity, Multi: mi})
}

// ReleaseNote starts the release phase of held voices playing pitch on ch.
func (s *Sampler) ReleaseNote(pitch float32, ch int) {
	if validChannel(ch) {
		s.send(Command{Op: OpReleaseNote, Channel: ch, A: pitch})
	}
}

// StopNote silences voices playing pitch on ch without a release phase.
func (s *Sampler) StopNote(pitch float32, ch int) {
	if validChannel(ch) {
		s.send(Command{Op: OpStopNote, Channel: ch, A: pitch})
	}
}

func (s *Sampler) StopAllNotes(ch int) {
	if validChannel(ch) {
		s.send(Command{Op: OpStopAllNotes, Channel: ch})
	}
}

func (s *Sampler) StopAllNotesGlobal() {
	s.send(Command{Op: OpStopAllNotes, Channel: AllChannels})
}

func (s *Sampler) ReleaseAllNotes(ch int) {
	if validChannel(ch) {
		s.send(Command{Op: OpReleaseAllNotes, Channel: ch})
	}
}

func (s *Sampler) ReleaseAllNotesGlobal() {
	s.send(Command{Op: OpReleaseAllNotes, Channel: AllChannels})
}

// ClearVoices drops every voice on ch, including released and fading ones.
func (s *Sampler) ClearVoices(ch int) {
	if validChannel(ch) {
		s.send(Command{Op: OpClearVoices, Channel: ch})
	}
}

// ClearAllVoices drops every voice and clears the reverb and chorus tails.
func (s *Sampler) ClearAllVoices() {
	s.send(Command{Op: OpClearVoices, Channel: AllChannels})
}

// SetSustain sets the sustain pedal; values >= 0.5 mean down.
func (s *Sampler) SetSustain(value float32, ch int)    { s.setControl(OpSetSustain, value, ch) }
func (s *Sampler) SetPitchBend(value float32, ch int)  { s.setControl(OpSetPitchBend, value, ch) }
func (s *Sampler) SetModulation(value float32, ch int) { s.setControl(OpSetModulation, value, ch) }
func (s *Sampler) SetExpression(value float32, ch int) { s.setControl(OpSetExpression, value, ch) }
func (s *Sampler) SetLevel(value float32, ch int)      { s.setControl(OpSetLevel, value, ch) }
func (s *Sampler) SetBalance(value float32, ch int)    { s.setControl(OpSetBalance, value, ch) }
func (s *Sampler) SetReverb(value float32, ch int)     { s.setControl(OpSetReverb, value, ch) }
func (s *Sampler) SetChorus(value float32, ch int)     { s.setControl(OpSetChorus, value, ch) }

// SetPitchBendFactor sets the bend range in semitones.
func (s *Sampler) SetPitchBendFactor(value float32, ch int) {
	s.setControl(OpSetPitchBendFactor, value, ch)
}

func (s *Sampler) SetReverbRoomSize(value float32) {
	s.send(Command{Op: OpSetReverbRoomSize, A: clampf(value, 0, 1)})
}

func (s *Sampler) SetReverbDamping(value float32) {
	s.send(Command{Op: OpSetReverbDamping, A: clampf(value, 0, 1)})
}

// Channel returns the last controller values sent to ch.
func (s *Sampler) Channel(ch int) ChannelState {
	if !validChannel(ch) {
		return DefaultChannelState()
	}
	s.ctlMu.Lock()
	defer s.ctlMu.Unlock()
	return s.shadow[ch]
}

// Start marks the engine as running. RenderInput also does this.
func (s *Sampler) Start() { s.running.Store(true) }

// Stop marks the engine as stopped; pending queries return false.
func (s *Sampler) Stop() { s.running.Store(false) }

// Running reports whether the render thread is expected to drain commands.
func (s *Sampler) Running() bool { return s.running.Load() }

// IsNotePlaying reports whether any voice is sounding on ch.
func (s *Sampler) IsNotePlaying(ch int) bool {
	if !validChannel(ch) {
		return false
	}
	return s.query(Command{Op: OpQueryNotePlaying, Channel: ch})
}

// IsPitchPlaying reports whether a voice is sounding pitch on ch.
func (s *Sampler) IsPitchPlaying(pitch float32, ch int) bool {
	if !validChannel(ch) {
		return false
	}
	return s.query(Command{Op: OpQueryPitchPlaying, Channel: ch, A: pitch})
}

// IsMultiInstrumentInUse reports whether any voice still references mi.
// Callers must not modify or drop a multi-instrument while this is true.
func (s *Sampler) IsMultiInstrumentInUse(mi *MultiInstrument) bool {
	if mi == nil {
		return false
	}
	return s.query(Command{Op: OpQueryInUse, Multi: mi})
}

// query round-trips c through the render thread and waits for the reply
// with the matching tag. It gives up when the engine stops or the timeout
// passes.
func (s *Sampler) query(c Command) bool {
	s.queryMu.Lock()
	defer s.queryMu.Unlock()

	if !s.running.Load() {
		return false
	}
	s.nextTag++
	c.Tag = s.nextTag
	if !s.send(c) {
		return false
	}

	deadline := time.Now().Add(s.params.QueryTimeout)
	for {
		for {
			r, ok := s.out.Pop()
			if !ok {
				break
			}
			if r.Tag == c.Tag {
				return r.A != 0
			}
		}
		if !s.running.Load() {
			return false
		}
		if time.Now().After(deadline) {
			engineDebug("query op=%d tag=%d timed out", c.Op, c.Tag)
			return false
		}
		time.Sleep(s.params.QueryPollInterval)
	}
}

// Stats returns a snapshot of the engine counters.
func (s *Sampler) Stats() Stats {
	return Stats{
		ActiveVoices:    int(s.stats.activeVoices.Load()),
		Steals:          s.stats.steals.Load(),
		DroppedNotes:    s.stats.dropped.Load(),
		DroppedCommands: s.stats.droppedCmds.Load(),
		Blocks:          s.stats.blocks.Load(),
		Frames:          s.stats.frames.Load(),
	}
}
