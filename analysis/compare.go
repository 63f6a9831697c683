package analysis

import "math"

const (
	envFrame = 256
	envHop   = 128
)

// Metrics contains distance measurements between a reference render and a
// candidate render.
type Metrics struct {
	SampleRate    int `json:"sample_rate"`
	AlignedFrames int `json:"aligned_frames"`

	TimeRMSE        float64 `json:"time_rmse"`
	EnvelopeRMSEDB  float64 `json:"envelope_rmse_db"`
	SpectralRMSEDB  float64 `json:"spectral_rmse_db"`
	RefDecayDBPerS  float64 `json:"ref_decay_db_per_s"`
	CandDecayDBPerS float64 `json:"cand_decay_db_per_s"`
	DecayDiffDBPerS float64 `json:"decay_diff_db_per_s"`

	Score      float64 `json:"score"`
	Similarity float64 `json:"similarity"`
}

// Compare aligns both signals at their first non-silent sample, normalizes
// their RMS and combines time, envelope, spectral and decay distances into
// a score in [0,1] (0 = identical).
func Compare(reference, candidate []float64, sampleRate int) Metrics {
	m := Metrics{SampleRate: sampleRate, Score: 1}
	if sampleRate <= 0 {
		return m
	}
	ref := normalizeRMS(trimLeadingSilence(reference, 1e-6), 0.1)
	cand := normalizeRMS(trimLeadingSilence(candidate, 1e-6), 0.1)
	n := min(len(ref), len(cand), sampleRate*12)
	if n < envFrame {
		return m
	}
	ref, cand = ref[:n], cand[:n]
	m.AlignedFrames = n

	var sum float64
	for i := range ref {
		d := ref[i] - cand[i]
		sum += d * d
	}
	m.TimeRMSE = math.Sqrt(sum / float64(n))

	refEnv := RMSEnvelope(ref, envFrame, envHop)
	candEnv := RMSEnvelope(cand, envFrame, envHop)
	diff := make([]float64, min(len(refEnv), len(candEnv)))
	for i := range diff {
		diff[i] = LinToDB(refEnv[i]) - LinToDB(candEnv[i])
	}
	m.EnvelopeRMSEDB = RMS(diff)
	m.SpectralRMSEDB = spectralRMSEDB(ref, cand, sampleRate)

	hopSec := float64(envHop) / float64(sampleRate)
	m.RefDecayDBPerS = DecaySlopeDBPerS(refEnv, hopSec)
	m.CandDecayDBPerS = DecaySlopeDBPerS(candEnv, hopSec)
	if isFinite(m.RefDecayDBPerS) && isFinite(m.CandDecayDBPerS) {
		m.DecayDiffDBPerS = math.Abs(m.RefDecayDBPerS - m.CandDecayDBPerS)
	}

	m.Score = clamp01(0.30*clamp01(m.TimeRMSE/0.25) +
		0.25*clamp01(m.EnvelopeRMSEDB/30) +
		0.30*clamp01(m.SpectralRMSEDB/30) +
		0.15*clamp01(m.DecayDiffDBPerS/40))
	m.Similarity = clamp01(math.Exp(-4 * m.Score))
	return m
}

func trimLeadingSilence(x []float64, threshold float64) []float64 {
	for i, v := range x {
		if math.Abs(v) > threshold {
			return x[i:]
		}
	}
	return nil
}

func normalizeRMS(x []float64, target float64) []float64 {
	r := RMS(x)
	out := make([]float64, len(x))
	if r <= 1e-12 {
		copy(out, x)
		return out
	}
	g := target / r
	for i, v := range x {
		out[i] = v * g
	}
	return out
}
