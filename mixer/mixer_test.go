package mixer

import (
	"errors"
	"math"
	"testing"
)

type constUnit struct {
	l, r float32
	err  error
}

func (c *constUnit) RenderInput(buf Buffer) error {
	for i := 0; i < buf.Frames; i++ {
		buf.Add(i, c.l, c.r)
	}
	return c.err
}

func TestBufferValid(t *testing.T) {
	tests := []struct {
		name string
		buf  Buffer
		want bool
	}{
		{name: "interleaved", buf: Interleaved(make([]float32, 16)), want: true},
		{name: "planar", buf: Planar(make([]float32, 8), make([]float32, 8)), want: true},
		{name: "empty", buf: Buffer{Stride: 1}, want: true},
		{name: "short right", buf: Buffer{Left: make([]float32, 8), Right: make([]float32, 4), Stride: 1, Frames: 8}, want: false},
		{name: "zero stride", buf: Buffer{Left: make([]float32, 8), Right: make([]float32, 8), Frames: 8}, want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.buf.Valid(); got != tc.want {
				t.Fatalf("Valid: got=%v want=%v", got, tc.want)
			}
		})
	}
}

func TestBufferSliceAddressesInterleavedFrames(t *testing.T) {
	raw := make([]float32, 8)
	b := Interleaved(raw).Slice(1, 3)
	if b.Frames != 2 {
		t.Fatalf("frames: got=%d want=2", b.Frames)
	}
	b.Add(0, 1, 2)
	b.Add(1, 3, 4)
	want := []float32{0, 0, 1, 2, 3, 4, 0, 0}
	for i := range want {
		if raw[i] != want[i] {
			t.Fatalf("raw[%d]: got=%f want=%f", i, raw[i], want[i])
		}
	}
}

func TestMixerSumsUnitsAndAppliesGain(t *testing.T) {
	m := NewMixer(44100, false)
	a := &constUnit{l: 0.25, r: 0.5}
	b := &constUnit{l: 0.25, r: -0.25}
	m.Add(a)
	m.Add(b)
	m.SetGain(2)

	buf := Interleaved(make([]float32, 32))
	if err := m.Render(buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	for i := 0; i < buf.Frames; i++ {
		l, r := buf.Frame(i)
		if l != 1 || r != 0.5 {
			t.Fatalf("frame %d: got=(%f,%f) want=(1,0.5)", i, l, r)
		}
	}

	if !m.Remove(a) {
		t.Fatalf("Remove(a) reported not registered")
	}
	if m.Remove(a) {
		t.Fatalf("second Remove(a) reported registered")
	}
	if m.Units() != 1 {
		t.Fatalf("units: got=%d want=1", m.Units())
	}
}

func TestMixerAddsIntoExistingContent(t *testing.T) {
	tests := []struct {
		name  string
		gain  float32
		wantL float32
		wantR float32
	}{
		{name: "unity", gain: 1, wantL: 1.5, wantR: 0.5},
		{name: "gain leaves caller content alone", gain: 2, wantL: 2, wantR: 1},
		{name: "muted", gain: 0, wantL: 1, wantR: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := NewMixer(44100, false)
			m.Add(&constUnit{l: 0.5, r: 0.5})
			m.SetGain(tc.gain)
			left := []float32{1, 1, 1, 1}
			right := []float32{0, 0, 0, 0}
			if err := m.Render(Planar(left, right)); err != nil {
				t.Fatalf("render: %v", err)
			}
			for i := range left {
				if left[i] != tc.wantL || right[i] != tc.wantR {
					t.Fatalf("frame %d: got=(%f,%f) want=(%f,%f)", i, left[i], right[i], tc.wantL, tc.wantR)
				}
			}
		})
	}
}

func TestMixerBusGrowsForLargeBuffers(t *testing.T) {
	m := NewMixer(44100, false)
	m.Add(&constUnit{l: 0.25, r: 0.25})
	buf := Interleaved(make([]float32, 2*(initialBusFrames+100)))
	if err := m.Render(buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	if l, _ := buf.Frame(buf.Frames - 1); l != 0.25 {
		t.Fatalf("last frame: got=%f want=0.25", l)
	}
}

func TestMixerReturnsFirstErrorAndKeepsRendering(t *testing.T) {
	boom := errors.New("boom")
	m := NewMixer(44100, false)
	m.Add(&constUnit{l: 1, err: boom})
	m.Add(&constUnit{r: 1, err: errors.New("second")})

	buf := Interleaved(make([]float32, 4))
	if err := m.Render(buf); !errors.Is(err, boom) {
		t.Fatalf("error: got=%v want=%v", err, boom)
	}
	if l, r := buf.Frame(1); l != 1 || r != 1 {
		t.Fatalf("frame: got=(%f,%f) want=(1,1)", l, r)
	}
}

func TestMixerRejectsInvalidBuffer(t *testing.T) {
	m := NewMixer(44100, false)
	bad := Buffer{Left: make([]float32, 2), Right: make([]float32, 2), Stride: 2, Frames: 4}
	if err := m.Render(bad); !errors.Is(err, ErrInvalidBuffer) {
		t.Fatalf("error: got=%v want=%v", err, ErrInvalidBuffer)
	}
}

func TestMixerDCBlock(t *testing.T) {
	m := NewMixer(44100, true)
	m.Add(&constUnit{l: 1, r: 1})
	buf := Interleaved(make([]float32, 2*4096))
	for k := 0; k < 20; k++ {
		buf.Clear()
		if err := m.Render(buf); err != nil {
			t.Fatalf("render: %v", err)
		}
	}
	if l, r := buf.Frame(buf.Frames - 1); math.Abs(float64(l)) > 1e-3 || math.Abs(float64(r)) > 1e-3 {
		t.Fatalf("dc not removed: got=(%f,%f)", l, r)
	}
}

func TestClipOneShotAndLoop(t *testing.T) {
	left := []float32{1, 2, 3}
	right := []float32{-1, -2, -3}

	t.Run("one shot", func(t *testing.T) {
		c := NewClip(left, right, false)
		c.Play()
		buf := Planar(make([]float32, 5), make([]float32, 5))
		if err := c.RenderInput(buf); err != nil {
			t.Fatalf("render: %v", err)
		}
		want := []float32{1, 2, 3, 0, 0}
		for i, w := range want {
			if buf.Left[i] != w || buf.Right[i] != -w {
				t.Fatalf("frame %d: got=(%f,%f) want=(%f,%f)", i, buf.Left[i], buf.Right[i], w, -w)
			}
		}
		if c.Playing() {
			t.Fatalf("one-shot clip still playing after its end")
		}
	})

	t.Run("loop", func(t *testing.T) {
		c := NewClip(left, right, true)
		c.SetGain(0.5)
		c.Play()
		buf := Planar(make([]float32, 7), make([]float32, 7))
		if err := c.RenderInput(buf); err != nil {
			t.Fatalf("render: %v", err)
		}
		want := []float32{0.5, 1, 1.5, 0.5, 1, 1.5, 0.5}
		for i, w := range want {
			if buf.Left[i] != w {
				t.Fatalf("frame %d: got=%f want=%f", i, buf.Left[i], w)
			}
		}
		if !c.Playing() {
			t.Fatalf("looping clip stopped")
		}
		c.Stop()
		buf.Clear()
		_ = c.RenderInput(buf)
		if buf.Left[0] != 0 {
			t.Fatalf("stopped clip still rendering")
		}
	})
}

func TestClickTriggerRendersOneBurst(t *testing.T) {
	const sr = 44100
	c := NewClick(sr, 1)
	buf := Planar(make([]float32, 4096), make([]float32, 4096))

	if err := c.RenderInput(buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	for i := 0; i < buf.Frames; i++ {
		if buf.Left[i] != 0 {
			t.Fatalf("click rendered without trigger at %d", i)
		}
	}

	c.Trigger(true)
	_ = c.RenderInput(buf)
	burst := int(clickMs * sr / 1000.0)
	var peak float32
	for i := 0; i < burst; i++ {
		if a := float32(math.Abs(float64(buf.Left[i]))); a > peak {
			peak = a
		}
		if buf.Left[i] != buf.Right[i] {
			t.Fatalf("click not centred at %d", i)
		}
	}
	if peak < 0.5 {
		t.Fatalf("click too quiet: peak=%f", peak)
	}
	for i := burst; i < buf.Frames; i++ {
		if buf.Left[i] != 0 {
			t.Fatalf("click longer than %d frames: nonzero at %d", burst, i)
		}
	}
}

func TestToneGain(t *testing.T) {
	tone := NewTone(44100, 441, 0.5)
	buf := Planar(make([]float32, 200), make([]float32, 200))
	_ = tone.RenderInput(buf)
	var peak float32
	for _, v := range buf.Left {
		if v > peak {
			peak = v
		}
	}
	if math.Abs(float64(peak)-0.5) > 1e-3 {
		t.Fatalf("tone peak: got=%f want=0.5", peak)
	}

	tone.SetGain(0)
	buf.Clear()
	_ = tone.RenderInput(buf)
	for i, v := range buf.Left {
		if v != 0 {
			t.Fatalf("muted tone nonzero at %d", i)
		}
	}
}
