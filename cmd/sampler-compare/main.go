package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/cwbudde/algo-sampler/analysis"
	"github.com/cwbudde/algo-sampler/internal/wavio"
)

type report struct {
	analysis.Metrics
	RefCentroidHz  float64 `json:"ref_centroid_hz"`
	CandCentroidHz float64 `json:"cand_centroid_hz"`
	RefDominantHz  float64 `json:"ref_dominant_hz"`
	CandDominantHz float64 `json:"cand_dominant_hz"`
}

func main() {
	referencePath := flag.String("reference", "", "Reference WAV path")
	candidatePath := flag.String("candidate", "", "Candidate WAV path, e.g. the output of sampler-render")
	fftSize := flag.Int("fft-size", 8192, "FFT size for centroid and dominant-frequency estimates")
	jsonOut := flag.Bool("json", false, "Print metrics as JSON")
	flag.Parse()

	if *referencePath == "" || *candidatePath == "" {
		die("both -reference and -candidate are required")
	}

	ref, refSR, err := wavio.ReadMono(*referencePath)
	if err != nil {
		die("failed to read reference: %v", err)
	}
	cand, candSR, err := wavio.ReadMono(*candidatePath)
	if err != nil {
		die("failed to read candidate: %v", err)
	}
	if candSR != refSR {
		if cand, err = wavio.Resample(cand, candSR, refSR); err != nil {
			die("failed to resample candidate: %v", err)
		}
	}

	r, err := compare(analysis.Float64(ref), analysis.Float64(cand), refSR, *fftSize)
	if err != nil {
		die("analysis failed: %v", err)
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			die("json encode failed: %v", err)
		}
		return
	}
	printReport(r)
}

func compare(ref, cand []float64, sampleRate, fftSize int) (report, error) {
	r := report{Metrics: analysis.Compare(ref, cand, sampleRate)}

	refSpec, err := analysis.MagnitudeSpectrum(ref, sampleRate, fftSize)
	if err != nil {
		return r, err
	}
	candSpec, err := analysis.MagnitudeSpectrum(cand, sampleRate, fftSize)
	if err != nil {
		return r, err
	}
	r.RefCentroidHz = refSpec.Centroid()
	r.CandCentroidHz = candSpec.Centroid()
	r.RefDominantHz = refSpec.Dominant()
	r.CandDominantHz = candSpec.Dominant()
	return r, nil
}

func printReport(r report) {
	fmt.Printf("Sample rate:      %d Hz\n", r.SampleRate)
	fmt.Printf("Aligned frames:   %d\n", r.AlignedFrames)
	fmt.Println()
	fmt.Printf("Time RMSE:        %.6f\n", r.TimeRMSE)
	fmt.Printf("Envelope RMSE:    %.1f dB\n", r.EnvelopeRMSEDB)
	fmt.Printf("Spectral RMSE:    %.1f dB\n", r.SpectralRMSEDB)
	fmt.Printf("Decay slopes:     ref=%.1f dB/s  cand=%.1f dB/s  (diff %.1f)\n",
		r.RefDecayDBPerS, r.CandDecayDBPerS, r.DecayDiffDBPerS)
	fmt.Printf("Centroid:         ref=%.1f Hz  cand=%.1f Hz\n", r.RefCentroidHz, r.CandCentroidHz)
	fmt.Printf("Dominant:         ref=%.2f Hz  cand=%.2f Hz\n", r.RefDominantHz, r.CandDominantHz)
	fmt.Println()
	fmt.Printf("Score:            %.4f  (0 best, 1 worst)\n", r.Score)
	fmt.Printf("Similarity:       %.2f%%\n", r.Similarity*100.0)
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
