// Package analysis extracts oscillation content from sampled run series,
// such as the rotor swing that follows a voltage sag.
package analysis

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/stat"
)

var ErrTooShort = errors.New("analysis: series too short for a spectrum")

// Spectrum is the one-sided amplitude spectrum of a uniformly sampled
// series with its mean removed.
type Spectrum struct {
	Freq      []float64
	Amplitude []float64
}

func NewSpectrum(data []float64, dt float64) (Spectrum, error) {
	n := len(data)
	if n < 4 {
		return Spectrum{}, ErrTooShort
	}
	if dt <= 0 || math.IsNaN(dt) {
		return Spectrum{}, errors.New("analysis: sample interval must be positive")
	}

	mean := stat.Mean(data, nil)
	x := make([]float64, n)
	for i, v := range data {
		x[i] = v - mean
	}

	X := fft.FFTReal(x)

	half := n/2 + 1
	s := Spectrum{
		Freq:      make([]float64, half),
		Amplitude: make([]float64, half),
	}
	for k := 0; k < half; k++ {
		s.Freq[k] = float64(k) / (float64(n) * dt)
		amp := cmplx.Abs(X[k]) / float64(n)
		if k != 0 && 2*k != n {
			amp *= 2
		}
		s.Amplitude[k] = amp
	}
	return s, nil
}

// Dominant returns the strongest non-DC component.
func (s Spectrum) Dominant() (freq, amp float64) {
	for k := 1; k < len(s.Amplitude); k++ {
		if s.Amplitude[k] > amp {
			freq, amp = s.Freq[k], s.Amplitude[k]
		}
	}
	return freq, amp
}

// Below returns the part of the spectrum under fmax.
func (s Spectrum) Below(fmax float64) Spectrum {
	k := 0
	for k < len(s.Freq) && s.Freq[k] < fmax {
		k++
	}
	return Spectrum{Freq: s.Freq[:k], Amplitude: s.Amplitude[:k]}
}
