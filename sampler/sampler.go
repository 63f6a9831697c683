// Package sampler implements a polyphonic sample-playback engine. Control
// calls are queued to the render thread, which plays layered zones through
// a fixed voice pool and mixes them through per-channel reverb and chorus
// sends.
package sampler

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/GeoffreyPlitt/debuggo"
	"github.com/cwbudde/algo-sampler/dsp"
	"github.com/cwbudde/algo-sampler/mixer"
	"github.com/pkg/errors"
)

var engineDebug = debuggo.Debug("sampler:engine")

const (
	// balanceStep is the per-block limit on voice balance changes.
	balanceStep = 1.0 / 64
	// maxCutoffRatio keeps voice filters below Nyquist.
	maxCutoffRatio = 0.45
)

type stats struct {
	activeVoices atomic.Int64
	steals       atomic.Uint64
	dropped      atomic.Uint64
	droppedCmds  atomic.Uint64
	blocks       atomic.Uint64
	frames       atomic.Uint64
}

// Stats is a snapshot of engine counters.
type Stats struct {
	ActiveVoices    int
	Steals          uint64
	DroppedNotes    uint64
	DroppedCommands uint64
	Blocks          uint64
	Frames          uint64
}

// Sampler is the engine. RenderInput must be called from a single render
// thread; every other method may be called from any goroutine.
type Sampler struct {
	params     Params
	renderRate float64
	polyphony  int
	xfadeStep  float32

	// Render thread state.
	voices       [MaxVoices]Voice
	channels     [NumChannels]ChannelState
	groupCounter uint64
	layers       [MaxVoices]*Instrument
	reverb       *dsp.Reverb
	chorus       *dsp.Chorus
	vibPhase     float64
	vibStep      float64
	vibrato      float64 // semitones for the current block

	chanL, chanR   [NumChannels][]float32
	chanActive     [NumChannels]bool
	voiceL, voiceR []float32
	oldL, oldR     []float32
	revL, revR     []float32
	choL, choR     []float32

	in  commandQueue
	out commandQueue

	// Control side.
	ctlMu   sync.Mutex
	shadow  [NumChannels]ChannelState
	queryMu sync.Mutex
	nextTag uint64
	running atomic.Bool

	stats stats
}

var _ mixer.Unit = (*Sampler)(nil)

// NewSampler creates an engine. A nil params uses NewDefaultParams.
func NewSampler(params *Params) (*Sampler, error) {
	if params == nil {
		params = NewDefaultParams()
	}
	if err := params.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid sampler params")
	}
	s := &Sampler{
		params:     *params,
		renderRate: float64(params.RenderRate),
		polyphony:  params.Polyphony,
		xfadeStep:  float32(1 / (params.CrossfadeTime * float64(params.RenderRate))),
		vibStep:    2 * math.Pi * params.VibratoRate / float64(params.RenderRate),
	}
	for ch := range s.channels {
		s.channels[ch] = DefaultChannelState()
		s.shadow[ch] = DefaultChannelState()
	}

	n := params.MaxBlock
	for ch := 0; ch < NumChannels; ch++ {
		s.chanL[ch] = make([]float32, n)
		s.chanR[ch] = make([]float32, n)
	}
	s.voiceL = make([]float32, n)
	s.voiceR = make([]float32, n)
	s.oldL = make([]float32, n)
	s.oldR = make([]float32, n)
	s.revL = make([]float32, n)
	s.revR = make([]float32, n)
	s.choL = make([]float32, n)
	s.choR = make([]float32, n)

	s.reverb = dsp.NewReverb(s.renderRate)
	s.reverb.SetRoomSize(params.ReverbRoomSize)
	s.reverb.SetDamping(params.ReverbDamping)
	s.reverb.SetWidth(params.ReverbWidth)
	s.reverb.SetLevel(params.ReverbLevel)

	s.chorus = dsp.NewChorus(s.renderRate)
	s.chorus.SetDelay(params.ChorusDelayMs)
	s.chorus.SetDepth(params.ChorusDepthMs)
	s.chorus.SetRate(params.ChorusRateHz)
	s.chorus.SetFeedback(params.ChorusFeedback)
	s.chorus.SetLevel(params.ChorusLevel)
	s.chorus.SetMode(params.ChorusMode)

	engineDebug("new sampler rate=%d polyphony=%d block=%d", params.RenderRate, params.Polyphony, params.MaxBlock)
	return s, nil
}

// Params returns the construction parameters.
func (s *Sampler) Params() Params { return s.params }

// SampleRate returns the render rate in Hz.
func (s *Sampler) SampleRate() int { return s.params.RenderRate }

// RenderInput drains queued commands and adds the next buf.Frames frames of
// output into buf.
func (s *Sampler) RenderInput(buf mixer.Buffer) error {
	if !buf.Valid() {
		return mixer.ErrInvalidBuffer
	}
	s.running.Store(true)
	s.drain()
	for off := 0; off < buf.Frames; off += s.params.MaxBlock {
		end := min(off+s.params.MaxBlock, buf.Frames)
		s.renderBlock(buf.Slice(off, end))
	}
	s.stats.frames.Add(uint64(buf.Frames))
	return nil
}

func (s *Sampler) drain() {
	for {
		c, ok := s.in.Pop()
		if !ok {
			return
		}
		s.apply(c)
	}
}

func (s *Sampler) renderBlock(out mixer.Buffer) {
	n := out.Frames
	s.vibrato = s.params.VibratoDepth * math.Sin(s.vibPhase)
	s.vibPhase = math.Mod(s.vibPhase+s.vibStep*float64(n), 2*math.Pi)

	for ch := range s.chanActive {
		s.chanActive[ch] = false
	}
	zero(s.revL[:n])
	zero(s.revR[:n])
	zero(s.choL[:n])
	zero(s.choR[:n])

	active := 0
	for i := range s.voices[:s.polyphony] {
		v := &s.voices[i]
		if !v.playing {
			continue
		}
		ch := v.channel
		if v.inst == nil {
			ch = v.old.channel
		}
		if v.inst != nil {
			s.prepareState(&v.voiceState)
		}
		if v.oldActive && v.old.inst != nil {
			s.prepareState(&v.old)
		}
		v.render(s.voiceL, s.voiceR, s.oldL, s.oldR, n, s.xfadeStep)

		cl, cr := s.chanL[ch], s.chanR[ch]
		if !s.chanActive[ch] {
			s.chanActive[ch] = true
			copy(cl[:n], s.voiceL[:n])
			copy(cr[:n], s.voiceR[:n])
		} else {
			for j := 0; j < n; j++ {
				cl[j] += s.voiceL[j]
				cr[j] += s.voiceR[j]
			}
		}
		if v.playing {
			active++
		}
	}

	for ch := range s.chanActive {
		if !s.chanActive[ch] {
			continue
		}
		c := &s.channels[ch]
		gain := c.Level * c.Expression
		gl, gr := balanceGains(c.Balance)
		gl *= gain
		gr *= gain
		cl, cr := s.chanL[ch], s.chanR[ch]
		rv, ck := c.Reverb, c.Chorus
		for j := 0; j < n; j++ {
			l := cl[j] * gl
			r := cr[j] * gr
			out.Add(j, l, r)
			if rv > 0 {
				s.revL[j] += l * rv
				s.revR[j] += r * rv
			}
			if ck > 0 {
				s.choL[j] += l * ck
				s.choR[j] += r * ck
			}
		}
	}

	s.reverb.Process(s.revL[:n], s.revR[:n], s.revL[:n], s.revR[:n])
	s.chorus.Process(s.choL[:n], s.choR[:n], s.choL[:n], s.choR[:n])
	for j := 0; j < n; j++ {
		out.Add(j, s.revL[j]+s.choL[j], s.revR[j]+s.choR[j])
	}

	s.stats.activeVoices.Store(int64(active))
	s.stats.blocks.Add(1)
}

// prepareState refreshes the per-block parameters of a playing state.
func (s *Sampler) prepareState(st *voiceState) {
	st.updateVolumes(balanceStep)
	s.updateFilter(st)
	st.rate = s.voiceRate(st)
}

// voiceRate combines the zone transposition with the channel's pitch bend
// and vibrato.
func (s *Sampler) voiceRate(st *voiceState) uint64 {
	semis := float64(st.pitch - st.inst.BasePitch)
	if validChannel(st.channel) {
		semis += s.channels[st.channel].semitoneOffset(s.vibrato)
	}
	return playbackRate(semis, float64(st.inst.Sample.Rate), s.renderRate)
}

// updateFilter sets the low-pass coefficients, clamping the cutoff below
// Nyquist. A zone without a cutoff is left unfiltered.
func (s *Sampler) updateFilter(st *voiceState) {
	if st.cutoff <= 0 {
		st.filtered = false
		return
	}
	cutoff := min(st.cutoff, maxCutoffRatio*s.renderRate)
	st.filter.SetCoefficients(dsp.LowpassCoefficients(cutoff, s.renderRate, st.q))
	st.filtered = true
}
