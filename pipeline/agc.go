package pipeline

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-denoise/algorithms/common"
	"github.com/RyanBlaney/sonido-denoise/algorithms/temporal"
	"github.com/RyanBlaney/sonido-denoise/audio"
)

// ApplyGainControl rescales signal frame by frame toward cfg.TargetDBFS.
// Per-frame gains are clamped to [MinGainDB, MaxGainDB], never exceed 0 dB
// on frames quieter than SilenceGateDB, are smoothed across frames and
// interpolated linearly between frame centres. The result is then limited
// to PeakCeiling.
func ApplyGainControl(signal *audio.Signal, cfg AGCConfig) (*audio.Signal, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := signal.Validate(); err != nil {
		return nil, err
	}
	if signal.Len() == 0 {
		return signal.Clone(), nil
	}

	frameSize := max(1, signal.MsToSamples(cfg.FrameMs))
	gainsDB := frameGains(signal.Samples, frameSize, cfg)

	out := make([]float64, signal.Len())
	for i, x := range signal.Samples {
		out[i] = x * common.DBToAmplitude(gainAt(i, gainsDB, frameSize, len(out)))
	}

	if peak := common.Peak(out); peak > cfg.PeakCeiling {
		scale := cfg.PeakCeiling / peak
		for i := range out {
			out[i] *= scale
		}
	}

	if !common.AllFinite(out) {
		return nil, fmt.Errorf("gain control produced non-finite samples: %w", audio.ErrInvalidSignal)
	}
	return signal.WithSamples(out), nil
}

// frameGains returns the smoothed gain in dB for each non-overlapping frame
func frameGains(samples []float64, frameSize int, cfg AGCConfig) []float64 {
	rms := temporal.NewEnergy(frameSize, frameSize).ComputeShortTimeEnergy(samples)
	gains := make([]float64, len(rms))

	for i, r := range rms {
		gated := true
		desired := cfg.MaxGainDB
		if r > 0 {
			level := common.AmplitudeToDB(r)
			desired = cfg.TargetDBFS - level
			gated = level < cfg.SilenceGateDB
		}

		desired = common.Clamp(desired, cfg.MinGainDB, cfg.MaxGainDB)
		if gated {
			desired = math.Min(desired, 0)
		}

		if i == 0 {
			gains[i] = desired
		} else {
			gains[i] = cfg.Smoothing*gains[i-1] + (1-cfg.Smoothing)*desired
		}
		if gated {
			gains[i] = math.Min(gains[i], 0)
		}
	}
	return gains
}

// gainAt interpolates the frame gains at sample i. Frame k is centred on
// k·frameSize + frameSize/2.
func gainAt(i int, gainsDB []float64, frameSize, n int) float64 {
	last := len(gainsDB) - 1
	centre := func(k int) int {
		return min(k*frameSize+frameSize/2, n-1)
	}

	if i <= centre(0) {
		return gainsDB[0]
	}
	if i >= centre(last) {
		return gainsDB[last]
	}

	k := (i - frameSize/2) / frameSize
	lo, hi := centre(k), centre(k+1)
	if hi == lo {
		return gainsDB[k+1]
	}
	t := float64(i-lo) / float64(hi-lo)
	return common.Lerp(gainsDB[k], gainsDB[k+1], t)
}
