package spectral

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-denoise/algorithms/common"
	"github.com/RyanBlaney/sonido-denoise/algorithms/windowing"
	"github.com/RyanBlaney/sonido-denoise/audio"
)

// tonalRejectionBins is the half-width, in bins of an unpadded frame, of the
// median taken across neighbouring bins. A Hann-windowed sinusoid stays above
// white noise for about eight bins, well under half of the 21-bin span.
const tonalRejectionBins = 10

// NoiseProfile is the average magnitude spectrum of a noise-only segment.
// Magnitudes holds one value per FFT bin (the full, conjugate-symmetric
// spectrum), all >= 0.
type NoiseProfile struct {
	Magnitudes []float64 `json:"magnitudes"`
	FFTSize    int       `json:"fft_size"`
	Frames     int       `json:"frames"`

	// WindowEnergy is the sum of squared window coefficients of the frames
	// the profile was measured on. Zero means unknown.
	WindowEnergy float64 `json:"window_energy"`
}

// EstimateNoiseProfile averages the windowed frame magnitudes of noise
func EstimateNoiseProfile(noise *audio.Signal, params FrameParams) (*NoiseProfile, error) {
	if noise == nil || noise.Len() == 0 {
		return nil, fmt.Errorf("noise segment is empty: %w", audio.ErrConfigMismatch)
	}
	return EstimateNoiseProfileFromSegments([]*audio.Signal{noise}, params)
}

// EstimateNoiseProfileFromSegments averages the frame magnitudes of every
// segment as if they were one recording. Segments shorter than a frame are
// skipped when at least one segment fills a whole frame, so windowed and
// rectangular frames are never mixed.
func EstimateNoiseProfileFromSegments(segments []*audio.Signal, params FrameParams) (*NoiseProfile, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	longest := 0
	for _, seg := range segments {
		if seg != nil {
			longest = max(longest, seg.Len())
		}
	}
	if longest == 0 {
		return nil, fmt.Errorf("noise segment is empty: %w", audio.ErrConfigMismatch)
	}

	stft := NewSTFT(params)
	profile := &NoiseProfile{
		Magnitudes: make([]float64, params.FFTSize),
		FFTSize:    params.FFTSize,
	}

	for _, seg := range segments {
		if seg == nil || seg.Len() == 0 {
			continue
		}
		if longest >= params.FrameLength && seg.Len() < params.FrameLength {
			continue
		}

		frames := stft.Magnitudes(seg.Samples)
		for _, mags := range frames {
			for k, m := range mags {
				profile.Magnitudes[k] += m
			}
		}
		profile.Frames += len(frames)
	}

	for k := range profile.Magnitudes {
		profile.Magnitudes[k] /= float64(profile.Frames)
	}

	if longest >= params.FrameLength {
		profile.WindowEnergy = windowEnergy(windowing.NewPeriodicHann(params.FrameLength).Coefficients())
	} else {
		// a single rectangular frame
		profile.WindowEnergy = float64(longest)
	}

	return profile, nil
}

// ProfileFromLeading estimates the profile from the first ms milliseconds of
// signal
func ProfileFromLeading(signal *audio.Signal, ms float64, params FrameParams) (*NoiseProfile, error) {
	if ms <= 0 {
		return nil, fmt.Errorf("noise segment duration must be positive, got %.1f ms: %w", ms, audio.ErrConfigMismatch)
	}
	return EstimateNoiseProfile(signal.Leading(ms), params)
}

// TonalRejectionWidth returns the RejectTonal half-width for params. Zero
// padding widens a sinusoid's main lobe by FFTSize/FrameLength bins.
func TonalRejectionWidth(params FrameParams) int {
	if params.FrameLength <= 0 {
		return tonalRejectionBins
	}
	return (tonalRejectionBins*params.FFTSize + params.FrameLength - 1) / params.FrameLength
}

// RejectTonal returns a copy of the profile with every bin replaced by the
// median of the bins within halfWidth of it. Broadband noise passes almost
// unchanged while a steady sinusoid, which is present in every frame and
// would otherwise be subtracted as noise, is replaced by its surroundings.
func (p *NoiseProfile) RejectTonal(halfWidth int) *NoiseProfile {
	out := &NoiseProfile{
		Magnitudes:   make([]float64, len(p.Magnitudes)),
		FFTSize:      p.FFTSize,
		Frames:       p.Frames,
		WindowEnergy: p.WindowEnergy,
	}

	n := len(p.Magnitudes)
	if n == 0 || halfWidth <= 0 {
		copy(out.Magnitudes, p.Magnitudes)
		return out
	}

	// work on bins 0..n/2 and mirror, keeping the profile symmetric
	half := n / 2
	neighbours := make([]float64, 0, 2*halfWidth+1)
	for k := 0; k <= half; k++ {
		neighbours = neighbours[:0]
		for j := max(0, k-halfWidth); j <= min(half, k+halfWidth); j++ {
			neighbours = append(neighbours, p.Magnitudes[j])
		}
		out.Magnitudes[k] = common.Median(neighbours)
		if k > 0 && k < n-k {
			out.Magnitudes[n-k] = out.Magnitudes[k]
		}
	}

	return out
}

// Bins returns the number of frequency bins
func (p *NoiseProfile) Bins() int {
	return len(p.Magnitudes)
}

// Scaled returns a copy of the profile with every bin multiplied by factor
func (p *NoiseProfile) Scaled(factor float64) *NoiseProfile {
	scaled := &NoiseProfile{
		Magnitudes:   make([]float64, len(p.Magnitudes)),
		FFTSize:      p.FFTSize,
		Frames:       p.Frames,
		WindowEnergy: p.WindowEnergy,
	}
	for k, m := range p.Magnitudes {
		scaled.Magnitudes[k] = m * factor
	}
	return scaled
}

// scaleForFrame returns the factor that maps the profile onto a rectangular
// frame of n samples. Noise magnitude grows with the root of the window energy.
func (p *NoiseProfile) scaleForFrame(n int) float64 {
	if p.WindowEnergy <= 0 || n <= 0 {
		return 1
	}
	return math.Sqrt(float64(n) / p.WindowEnergy)
}

func windowEnergy(coeffs []float64) float64 {
	sum := 0.0
	for _, w := range coeffs {
		sum += w * w
	}
	return sum
}
