package preset

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/cwbudde/algo-sampler/internal/wavio"
	"github.com/cwbudde/algo-sampler/sampler"
	"github.com/pkg/errors"
)

// Zone defaults applied when a field is missing.
const (
	defaultBasePitch   = 60
	defaultReleaseRate = 10.0
	defaultQ           = math.Sqrt2 / 2
)

type sampleKey struct {
	path           string
	offset, length int
}

type loadedSample struct {
	sample *sampler.Sample
	// scale converts source frame positions to positions in sample.
	scale float64
}

type sourceFile struct {
	pcm  []float32
	rate int
}

// sampleLoader decodes each WAV once and shares Sample values between
// zones that reference the same path, offset and length.
type sampleLoader struct {
	dir        string
	renderRate int
	resample   bool
	files      map[string]sourceFile
	cache      map[sampleKey]loadedSample
}

func newSampleLoader(dir string, renderRate int, resample bool) *sampleLoader {
	return &sampleLoader{
		dir:        dir,
		renderRate: renderRate,
		resample:   resample,
		files:      make(map[string]sourceFile),
		cache:      make(map[sampleKey]loadedSample),
	}
}

func (l *sampleLoader) resolve(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(l.dir, p))
}

func (l *sampleLoader) load(z ZoneSetting) (loadedSample, error) {
	path := l.resolve(z.Sample)
	if path == "" {
		return loadedSample{}, fmt.Errorf("sample path is required")
	}
	if z.Offset < 0 || z.Length < 0 {
		return loadedSample{}, fmt.Errorf("offset and length must be >= 0")
	}
	key := sampleKey{path: path, offset: z.Offset, length: z.Length}
	if s, ok := l.cache[key]; ok {
		return s, nil
	}

	src, ok := l.files[path]
	if !ok {
		pcm, rate, err := wavio.ReadMono(path)
		if err != nil {
			return loadedSample{}, err
		}
		src = sourceFile{pcm: pcm, rate: rate}
		l.files[path] = src
	}

	if z.Offset > len(src.pcm) {
		return loadedSample{}, fmt.Errorf("offset %d beyond %d frames in %s", z.Offset, len(src.pcm), path)
	}
	seg := src.pcm[z.Offset:]
	if z.Length > 0 {
		if z.Length > len(seg) {
			return loadedSample{}, fmt.Errorf("length %d beyond %d frames in %s", z.Length, len(seg), path)
		}
		seg = seg[:z.Length]
	}

	rate := src.rate
	scale := 1.0
	if l.resample && rate != l.renderRate {
		out, err := wavio.Resample(seg, rate, l.renderRate)
		if err != nil {
			return loadedSample{}, err
		}
		scale = float64(l.renderRate) / float64(rate)
		seg = out
		rate = l.renderRate
	}
	if len(seg) > sampler.MaxSampleFrames {
		return loadedSample{}, fmt.Errorf("%s has %d frames, max is %d", path, len(seg), sampler.MaxSampleFrames)
	}

	s := loadedSample{sample: sampler.NewSample(seg, rate), scale: scale}
	l.cache[key] = s
	return s, nil
}

func buildInstrument(name string, zones []ZoneSetting, l *sampleLoader) (*sampler.MultiInstrument, error) {
	mi := sampler.NewMultiInstrument(name)
	for i, z := range zones {
		in, err := buildZone(z, l)
		if err != nil {
			return nil, errors.Wrapf(err, "instruments[%s][%d]", name, i)
		}
		mi.Instruments = append(mi.Instruments, in)
	}
	return mi, nil
}

func buildZone(z ZoneSetting, l *sampleLoader) (*sampler.Instrument, error) {
	s, err := l.load(z)
	if err != nil {
		return nil, err
	}
	mode, err := sampler.ParseLoopMode(z.LoopMode)
	if err != nil {
		return nil, err
	}

	in := &sampler.Instrument{
		PitchLow:     f32(z.PitchLow, 0),
		PitchHigh:    f32(z.PitchHigh, 127),
		VelocityLow:  f32(z.VelocityLow, 0),
		VelocityHigh: f32(z.VelocityHigh, 1),
		BasePitch:    f32(z.BasePitch, defaultBasePitch),
		LoopMode:     mode,
		HoldTime:     f64(z.HoldTime, 0),
		DecayRate:    f64(z.DecayRate, 0),
		SustainLevel: f64(z.SustainLevel, 1),
		ReleaseRate:  f64(z.ReleaseRate, defaultReleaseRate),
		BalanceLow:   f32(z.BalanceLow, 0),
		BalanceHigh:  f32(z.BalanceHigh, 0),
		Cutoff:       f64(z.Cutoff, 0),
		Q:            f64(z.Q, defaultQ),
		Sample:       s.sample,
	}
	if mode != sampler.LoopNone {
		frames := s.sample.Frames()
		in.LoopStart = min(int(float64(z.LoopStart)*s.scale+0.5), frames)
		in.LoopEnd = frames
		if z.LoopEnd > 0 {
			in.LoopEnd = min(int(float64(z.LoopEnd)*s.scale+0.5), frames)
		}
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return in, nil
}

func f32(v *float32, def float32) float32 {
	if v == nil {
		return def
	}
	return *v
}

func f64(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
