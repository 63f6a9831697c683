package analysis

import (
	"math"
	"math/cmplx"

	algofft "github.com/cwbudde/algo-fft"
	"github.com/pkg/errors"
)

// Spectrum holds the magnitude of a Hann-windowed real FFT.
type Spectrum struct {
	Magnitudes []float64
	BinHz      float64
}

// MagnitudeSpectrum analyses the first size samples of x (zero padded when
// shorter). size must be a power of two.
func MagnitudeSpectrum(x []float64, sampleRate int, size int) (Spectrum, error) {
	if size < 2 || size&(size-1) != 0 {
		return Spectrum{}, errors.Errorf("fft size %d is not a power of two", size)
	}
	plan, err := algofft.NewPlanReal64(size)
	if err != nil {
		return Spectrum{}, errors.Wrapf(err, "fft plan %d", size)
	}
	buf := make([]float64, size)
	n := min(len(x), size)
	for i := 0; i < n; i++ {
		w := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(size-1))
		buf[i] = x[i] * w
	}
	spec := make([]complex128, size/2+1)
	plan.Forward(spec, buf)

	mags := make([]float64, len(spec))
	for k, c := range spec {
		mags[k] = cmplx.Abs(c)
	}
	return Spectrum{Magnitudes: mags, BinHz: float64(sampleRate) / float64(size)}, nil
}

// Centroid returns the magnitude-weighted mean frequency, ignoring DC.
func (s Spectrum) Centroid() float64 {
	var num, den float64
	for k := 1; k < len(s.Magnitudes); k++ {
		num += float64(k) * s.BinHz * s.Magnitudes[k]
		den += s.Magnitudes[k]
	}
	if den <= 0 {
		return 0
	}
	return num / den
}

// Dominant returns the frequency of the strongest bin, refined by parabolic
// interpolation over its neighbours.
func (s Spectrum) Dominant() float64 {
	best := 1
	for k := 2; k < len(s.Magnitudes)-1; k++ {
		if s.Magnitudes[k] > s.Magnitudes[best] {
			best = k
		}
	}
	if best <= 0 || best >= len(s.Magnitudes)-1 {
		return float64(best) * s.BinHz
	}
	a := LinToDB(s.Magnitudes[best-1])
	b := LinToDB(s.Magnitudes[best])
	c := LinToDB(s.Magnitudes[best+1])
	off := 0.0
	if den := a - 2*b + c; den != 0 {
		off = 0.5 * (a - c) / den
	}
	return (float64(best) + off) * s.BinHz
}

// spectralRMSEDB compares the log spectra of a and b over one frame of up
// to 4096 samples.
func spectralRMSEDB(a, b []float64, sampleRate int) float64 {
	n := min(len(a), len(b))
	if n < 512 {
		return 0
	}
	size := 512
	for size*2 <= n && size < 4096 {
		size *= 2
	}
	sa, err := MagnitudeSpectrum(a, sampleRate, size)
	if err != nil {
		return 0
	}
	sb, err := MagnitudeSpectrum(b, sampleRate, size)
	if err != nil {
		return 0
	}
	bins := size / 2
	var sum float64
	for k := 1; k < bins; k++ {
		d := LinToDB(sa.Magnitudes[k]) - LinToDB(sb.Magnitudes[k])
		sum += d * d
	}
	return math.Sqrt(sum / float64(bins-1))
}
