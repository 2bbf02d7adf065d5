package spectral

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-denoise/algorithms/common"
	"github.com/RyanBlaney/sonido-denoise/algorithms/windowing"
	"github.com/RyanBlaney/sonido-denoise/audio"
)

// FactorFunc returns the over-subtraction factor for the frame centred on
// the given sample of the input signal
type FactorFunc func(sample int) float64

// Subtractor removes a stationary noise spectrum from a signal by
// magnitude-domain spectral subtraction with overlap-add resynthesis.
// A Subtractor owns its transform context and is not safe for concurrent use.
type Subtractor struct {
	params FrameParams
	window *windowing.Hann
	fft    *FFT
}

// NewSubtractor builds a transform context for the given framing
func NewSubtractor(params FrameParams) (*Subtractor, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Subtractor{
		params: params,
		window: windowing.NewPeriodicHann(params.FrameLength),
		fft:    NewFFT(params.FFTSize),
	}, nil
}

// Params returns the framing the subtractor was built with
func (s *Subtractor) Params() FrameParams {
	return s.params
}

// Denoise subtracts factor·profile from every frame and keeps at least
// floor·|X| of each bin's magnitude
func (s *Subtractor) Denoise(signal *audio.Signal, profile *NoiseProfile, factor, floor float64) (*audio.Signal, error) {
	if factor < 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return nil, fmt.Errorf("over-subtraction factor must be finite and >= 0, got %v: %w", factor, audio.ErrConfigMismatch)
	}
	return s.DenoiseAdaptive(signal, profile, func(int) float64 { return factor }, floor)
}

// DenoiseAdaptive is Denoise with a factor chosen per frame. factorAt is
// called with the frame's centre sample in input coordinates.
func (s *Subtractor) DenoiseAdaptive(signal *audio.Signal, profile *NoiseProfile, factorAt FactorFunc, floor float64) (*audio.Signal, error) {
	if err := signal.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkProfile(profile); err != nil {
		return nil, err
	}
	if factorAt == nil {
		return nil, fmt.Errorf("factor function is nil: %w", audio.ErrConfigMismatch)
	}
	if floor < 0 || floor > 1 || math.IsNaN(floor) {
		return nil, fmt.Errorf("spectral floor must be in [0, 1], got %v: %w", floor, audio.ErrConfigMismatch)
	}

	n := signal.Len()
	if n == 0 {
		return signal.Clone(), nil
	}

	var out []float64
	if n < s.params.FrameLength {
		out = s.denoiseShort(signal.Samples, profile, factorAt, floor)
	} else {
		out = s.denoiseFrames(signal.Samples, profile, factorAt, floor)
	}

	if !common.AllFinite(out) {
		return nil, fmt.Errorf("spectral subtraction produced non-finite samples: %w", audio.ErrInvalidSignal)
	}

	return signal.WithSamples(out), nil
}

func (s *Subtractor) checkProfile(profile *NoiseProfile) error {
	if profile == nil {
		return fmt.Errorf("noise profile is nil: %w", audio.ErrConfigMismatch)
	}
	if profile.FFTSize != s.params.FFTSize || len(profile.Magnitudes) != s.params.FFTSize {
		return fmt.Errorf("noise profile has %d bins for FFT size %d, engine uses %d: %w",
			len(profile.Magnitudes), profile.FFTSize, s.params.FFTSize, audio.ErrConfigMismatch)
	}
	return nil
}

// denoiseShort handles input shorter than one frame as a single
// rectangular, zero-padded frame. The profile is rescaled to that frame's
// energy, since a profile measured on Hann frames reads lower.
func (s *Subtractor) denoiseShort(samples []float64, profile *NoiseProfile, factorAt FactorFunc, floor float64) []float64 {
	spectrum := s.fft.Forward(samples)
	factor := factorAt(len(samples)/2) * profile.scaleForFrame(len(samples))
	subtract(spectrum, profile.Magnitudes, factor, floor)
	frame := s.fft.InverseReal(spectrum)

	out := make([]float64, len(samples))
	copy(out, frame)
	return out
}

func (s *Subtractor) denoiseFrames(samples []float64, profile *NoiseProfile, factorAt FactorFunc, floor float64) []float64 {
	n := len(samples)
	frameLen := s.params.FrameLength
	hop := s.params.HopLength

	// leading pad gives the first input sample a full set of overlapping
	// frames; the tail is extended until the last frame fits exactly
	pad := frameLen - hop
	numFrames := (pad+n+pad-frameLen+hop-1)/hop + 1
	total := (numFrames-1)*hop + frameLen

	padded := make([]float64, total)
	copy(padded[pad:], samples)

	accum := make([]float64, total)
	windowSum := make([]float64, total)
	coeffs := s.window.Coefficients()
	frameBuffer := make([]float64, frameLen)

	for f := range numFrames {
		start := f * hop
		_ = s.window.ApplyTo(frameBuffer, padded[start:start+frameLen])

		centre := max(0, min(start+frameLen/2-pad, n-1))
		spectrum := s.fft.Forward(frameBuffer)
		subtract(spectrum, profile.Magnitudes, factorAt(centre), floor)
		frame := s.fft.InverseReal(spectrum)

		for i := range frameLen {
			accum[start+i] += frame[i]
			windowSum[start+i] += coeffs[i]
		}
	}

	out := make([]float64, n)
	for i := range out {
		if w := windowSum[pad+i]; w > 1e-12 {
			out[i] = accum[pad+i] / w
		}
	}
	return out
}

// subtract applies max(|X| − factor·N, floor·|X|) to every bin and keeps
// the original phase. noise is symmetric, so the spectrum stays Hermitian.
func subtract(spectrum []complex128, noise []float64, factor, floor float64) {
	factor = math.Max(0, factor)
	for k, x := range spectrum {
		mag := math.Hypot(real(x), imag(x))
		if mag == 0 {
			continue
		}
		target := math.Max(mag-factor*noise[k], floor*mag)
		spectrum[k] = x * complex(target/mag, 0)
	}
}
