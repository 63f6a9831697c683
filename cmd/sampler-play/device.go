package main

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/cwbudde/algo-sampler/mixer"
	"github.com/ebitengine/oto/v3"
)

// device pulls float32 stereo frames from a mixer into an oto player.
type device struct {
	ctx    *oto.Context
	player *oto.Player
	mix    *mixer.Mixer
	buf    []float32
	mu     sync.Mutex // setup/close only
}

func newDevice(sampleRate int, bufferFrames int, mix *mixer.Mixer) (*device, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	}
	if bufferFrames > 0 {
		op.BufferSize = durationOfFrames(bufferFrames, sampleRate)
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready

	d := &device{ctx: ctx, mix: mix, buf: make([]float32, 2*4096)}
	d.player = ctx.NewPlayer(d)
	return d, nil
}

// Read implements io.Reader for the oto player. It runs on the audio
// thread.
func (d *device) Read(p []byte) (int, error) {
	frames := len(p) / 8
	if len(d.buf) < 2*frames {
		d.buf = make([]float32, 2*frames)
	}
	buf := d.buf[:2*frames]
	for i := range buf {
		buf[i] = 0
	}
	_ = d.mix.Render(mixer.Interleaved(buf))
	for i, v := range buf {
		binary.LittleEndian.PutUint32(p[4*i:], math.Float32bits(v))
	}
	return 8 * frames, nil
}

func (d *device) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.player.Play()
}

func (d *device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.player == nil {
		return nil
	}
	err := d.player.Close()
	d.player = nil
	return err
}
