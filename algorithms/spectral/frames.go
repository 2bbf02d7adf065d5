package spectral

import (
	"fmt"

	"github.com/RyanBlaney/sonido-denoise/audio"
)

// FrameParams describes the analysis framing shared by the noise profile and
// the subtraction pass. Both must use identical parameters.
type FrameParams struct {
	FrameLength int `json:"frame_length" yaml:"frame_length"`
	HopLength   int `json:"hop_length" yaml:"hop_length"`
	FFTSize     int `json:"fft_size" yaml:"fft_size"`
}

// DefaultFrameParams returns 1024-sample frames at 75% overlap
func DefaultFrameParams() FrameParams {
	return FrameParams{
		FrameLength: 1024,
		HopLength:   256,
		FFTSize:     1024,
	}
}

// Validate checks the framing. Overlap must be at least 50% so that every
// sample is covered by a non-zero window value during overlap-add.
func (p FrameParams) Validate() error {
	if p.FrameLength <= 0 || p.HopLength <= 0 || p.FFTSize <= 0 {
		return fmt.Errorf("frame length, hop and FFT size must be positive (%d/%d/%d): %w",
			p.FrameLength, p.HopLength, p.FFTSize, audio.ErrConfigMismatch)
	}
	if p.HopLength*2 > p.FrameLength {
		return fmt.Errorf("hop %d exceeds half the frame length %d: %w", p.HopLength, p.FrameLength, audio.ErrConfigMismatch)
	}
	if p.FrameLength > p.FFTSize {
		return fmt.Errorf("frame length %d exceeds FFT size %d: %w", p.FrameLength, p.FFTSize, audio.ErrConfigMismatch)
	}
	return nil
}
