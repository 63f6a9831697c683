package mixer

import (
	"errors"
	"math"
	"sync"
	"sync/atomic"

	"github.com/GeoffreyPlitt/debuggo"
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"

	"github.com/cwbudde/algo-sampler/dsp"
)

var mixerDebug = debuggo.Debug("sampler:mixer")

// ErrInvalidBuffer is returned when a Buffer's slices are too short for its
// frame count and stride.
var ErrInvalidBuffer = errors.New("mixer: invalid buffer")

// Unit is anything that adds audio into a Buffer once per block.
// Implementations must add, never overwrite, and must not block.
type Unit interface {
	RenderInput(buf Buffer) error
}

const (
	dcBlockHz        = 10.0
	initialBusFrames = 4096
)

// Mixer renders an ordered list of units into a private bus, applies the
// master gain and adds the result into the caller's buffer. Unit
// registration is copy-on-write so Render never locks.
type Mixer struct {
	mu    sync.Mutex
	units atomic.Pointer[[]Unit]
	gain  atomic.Uint32

	busL, busR []float32

	dcBlock bool
	dcL     biquad.Section
	dcR     biquad.Section
}

// NewMixer creates an empty mixer. With dcBlock set, a 10 Hz high-pass runs
// on the summed output after the master gain.
func NewMixer(sampleRate int, dcBlock bool) *Mixer {
	m := &Mixer{
		dcBlock: dcBlock,
		busL:    make([]float32, initialBusFrames),
		busR:    make([]float32, initialBusFrames),
	}
	empty := []Unit{}
	m.units.Store(&empty)
	m.SetGain(1)
	if dcBlock {
		c := dsp.HighpassCoefficients(dcBlockHz, float64(sampleRate), math.Sqrt2/2)
		m.dcL = *biquad.NewSection(c)
		m.dcR = *biquad.NewSection(c)
	}
	return m
}

// Add appends u to the render order.
func (m *Mixer) Add(u Unit) {
	if u == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := *m.units.Load()
	next := make([]Unit, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, u)
	m.units.Store(&next)
	mixerDebug("unit added, %d units", len(next))
}

// Remove drops u from the render order. It reports whether u was registered.
func (m *Mixer) Remove(u Unit) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := *m.units.Load()
	next := make([]Unit, 0, len(cur))
	found := false
	for _, x := range cur {
		if x == u && !found {
			found = true
			continue
		}
		next = append(next, x)
	}
	if found {
		m.units.Store(&next)
		mixerDebug("unit removed, %d units", len(next))
	}
	return found
}

// Units returns the number of registered units.
func (m *Mixer) Units() int {
	return len(*m.units.Load())
}

// SetGain sets the master gain applied after all units have rendered.
func (m *Mixer) SetGain(g float32) {
	if g < 0 || math.IsNaN(float64(g)) {
		g = 0
	}
	m.gain.Store(math.Float32bits(g))
}

// Gain returns the master gain.
func (m *Mixer) Gain() float32 {
	return math.Float32frombits(m.gain.Load())
}

// Render calls every unit in order on the bus, applies the master gain and
// adds the bus into buf. A failing unit does not stop the others; the first
// error is returned. The bus only grows when buf exceeds its capacity.
func (m *Mixer) Render(buf Buffer) error {
	if !buf.Valid() {
		return ErrInvalidBuffer
	}
	n := buf.Frames
	if len(m.busL) < n {
		m.busL = make([]float32, n)
		m.busR = make([]float32, n)
	}
	bus := Planar(m.busL[:n], m.busR[:n])
	bus.Clear()

	var first error
	for _, u := range *m.units.Load() {
		if err := u.RenderInput(bus); err != nil && first == nil {
			first = err
		}
	}

	if g := m.Gain(); g != 1 {
		bus.Scale(g)
	}
	if m.dcBlock {
		for i := 0; i < n; i++ {
			bus.Left[i] = float32(m.dcL.ProcessSample(float64(bus.Left[i])))
			bus.Right[i] = float32(m.dcR.ProcessSample(float64(bus.Right[i])))
		}
	}
	for i := 0; i < n; i++ {
		buf.Add(i, bus.Left[i], bus.Right[i])
	}
	return first
}
