package dsp

import (
	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

// Biquad implements a second-order IIR filter (no heap allocations in Process).
// It is a plain value so voices can copy filter state into crossfade slots.
type Biquad struct {
	// Coefficients
	b0, b1, b2 float32
	a1, a2     float32

	// State (previous samples)
	x1, x2 float32 // input history
	y1, y2 float32 // output history
}

// NewBiquad creates a new biquad filter with the given coefficients
func NewBiquad(c biquad.Coefficients) Biquad {
	var b Biquad
	b.SetCoefficients(c)
	return b
}

// SetCoefficients swaps in new coefficients while keeping the filter history.
func (b *Biquad) SetCoefficients(c biquad.Coefficients) {
	b.b0 = float32(c.B0)
	b.b1 = float32(c.B1)
	b.b2 = float32(c.B2)
	b.a1 = float32(c.A1)
	b.a2 = float32(c.A2)
}

// Process processes one sample through the biquad filter
func (b *Biquad) Process(input float32) float32 {
	// Direct Form I implementation
	output := b.b0*input + b.b1*b.x1 + b.b2*b.x2 - b.a1*b.y1 - b.a2*b.y2
	output = FlushDenormals(output)

	b.x2 = b.x1
	b.x1 = input
	b.y2 = b.y1
	b.y1 = output

	return output
}

// ProcessBlock filters buf in place.
func (b *Biquad) ProcessBlock(buf []float32) {
	for i, x := range buf {
		buf[i] = b.Process(x)
	}
}

// Reset clears the filter state
func (b *Biquad) Reset() {
	b.x1, b.x2 = 0, 0
	b.y1, b.y2 = 0, 0
}

// LowpassCoefficients returns RBJ low-pass coefficients normalized by a0.
// A cutoff at or above Nyquist yields a pass-through section.
func LowpassCoefficients(cutoff, sampleRate, q float64) biquad.Coefficients {
	if !inBand(cutoff, sampleRate) {
		return biquad.Coefficients{B0: 1}
	}
	return design.Lowpass(cutoff, q, sampleRate)
}

// HighpassCoefficients returns RBJ high-pass coefficients normalized by a0.
func HighpassCoefficients(cutoff, sampleRate, q float64) biquad.Coefficients {
	if !inBand(cutoff, sampleRate) {
		return biquad.Coefficients{B0: 1}
	}
	return design.Highpass(cutoff, q, sampleRate)
}

func inBand(freq, sampleRate float64) bool {
	return sampleRate > 0 && freq > 0 && freq < 0.5*sampleRate
}

// DelayLine implements a circular buffer for delay
type DelayLine struct {
	buffer   []float32
	writePos int
	size     int
}

// NewDelayLine creates a new delay line with the given size
func NewDelayLine(size int) *DelayLine {
	if size < 2 {
		size = 2
	}
	return &DelayLine{
		buffer: make([]float32, size),
		size:   size,
	}
}

// Len returns the capacity of the delay line in samples.
func (d *DelayLine) Len() int {
	return d.size
}

// Write writes a sample to the delay line
func (d *DelayLine) Write(sample float32) {
	d.buffer[d.writePos] = sample
	d.writePos++
	if d.writePos >= d.size {
		d.writePos = 0
	}
}

// Read reads a sample from the delay line at the given delay (in samples).
// A delay of 1 returns the most recently written sample.
func (d *DelayLine) Read(delay int) float32 {
	if delay < 1 {
		delay = 1
	}
	if delay > d.size {
		delay = d.size
	}
	readPos := d.writePos - delay
	if readPos < 0 {
		readPos += d.size
	}
	return d.buffer[readPos]
}

// ReadFractional reads with fractional delay using linear interpolation
func (d *DelayLine) ReadFractional(delay float32) float32 {
	intDelay := int(delay)
	frac := delay - float32(intDelay)

	sample1 := d.Read(intDelay)
	sample2 := d.Read(intDelay + 1)

	return sample1 + frac*(sample2-sample1)
}

// Reset clears the delay line
func (d *DelayLine) Reset() {
	for i := range d.buffer {
		d.buffer[i] = 0
	}
	d.writePos = 0
}

const denormalThreshold = 1e-30

// FlushDenormals converts denormal numbers to zero to avoid performance issues
func FlushDenormals(x float32) float32 {
	x = float32(dspcore.FlushDenormals(float64(x)))
	if x > -denormalThreshold && x < denormalThreshold {
		return 0
	}
	return x
}
