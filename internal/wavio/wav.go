// Package wavio reads and writes the WAV files used for sample banks, clips
// and rendered output.
package wavio

import (
	"os"
	"path/filepath"

	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
	"github.com/pkg/errors"
)

// Read decodes a WAV file into interleaved float32 frames.
func Read(path string) (data []float32, channels int, sampleRate int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, 0, errors.Errorf("invalid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, errors.Wrapf(err, "decode %s", path)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, 0, 0, errors.Errorf("invalid wav buffer: %s", path)
	}
	if buf.Format.SampleRate <= 0 {
		return nil, 0, 0, errors.Errorf("invalid wav sample-rate %d: %s", buf.Format.SampleRate, path)
	}
	return buf.Data, buf.Format.NumChannels, buf.Format.SampleRate, nil
}

// ReadMono decodes a WAV file and averages its channels.
func ReadMono(path string) ([]float32, int, error) {
	data, ch, sr, err := Read(path)
	if err != nil {
		return nil, 0, err
	}
	frames := len(data) / ch
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < ch; c++ {
			sum += data[i*ch+c]
		}
		out[i] = sum / float32(ch)
	}
	return out, sr, nil
}

// ReadStereo decodes a WAV file into left/right channels. Mono files are
// duplicated on both sides.
func ReadStereo(path string) ([]float32, []float32, int, error) {
	data, ch, sr, err := Read(path)
	if err != nil {
		return nil, nil, 0, err
	}
	frames := len(data) / ch
	left := make([]float32, frames)
	right := make([]float32, frames)
	for i := 0; i < frames; i++ {
		left[i] = data[i*ch]
		if ch > 1 {
			right[i] = data[i*ch+1]
		} else {
			right[i] = left[i]
		}
	}
	return left, right, sr, nil
}

// Resample converts in from fromRate to toRate with the best-quality
// polyphase resampler. Equal rates return the input unchanged.
func Resample(in []float32, fromRate int, toRate int) ([]float32, error) {
	if fromRate == toRate || len(in) == 0 {
		return in, nil
	}
	r, err := dspresample.NewForRates(
		float64(fromRate),
		float64(toRate),
		dspresample.WithQuality(dspresample.QualityBest),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "resample %d -> %d", fromRate, toRate)
	}
	in64 := make([]float64, len(in))
	for i, v := range in {
		in64[i] = float64(v)
	}
	out64 := r.Process(in64)
	out := make([]float32, len(out64))
	for i, v := range out64 {
		out[i] = float32(v)
	}
	return out, nil
}

// WriteStereoInterleaved writes interleaved stereo frames as 16-bit PCM.
func WriteStereoInterleaved(path string, samples []float32, sampleRate int) error {
	return write(path, samples, sampleRate, 2)
}

// WriteMono writes mono frames as 16-bit PCM.
func WriteMono(path string, data []float32, sampleRate int) error {
	return write(path, data, sampleRate, 1)
}

func write(path string, data []float32, sampleRate int, numCh int) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, numCh, 1)
	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: numCh,
		},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	if err := enc.Close(); err != nil {
		return errors.Wrapf(err, "close %s", path)
	}
	return nil
}
