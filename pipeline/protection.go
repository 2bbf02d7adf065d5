package pipeline

import (
	"github.com/RyanBlaney/sonido-denoise/algorithms/spectral"
	"github.com/RyanBlaney/sonido-denoise/algorithms/temporal"
)

// speechProtectedFactor lowers the over-subtraction factor to
// factor·cfg.SpeechFactorRatio wherever the activity map marks speech
func speechProtectedFactor(activity *temporal.Activity, factor float64, cfg ProtectionConfig) spectral.FactorFunc {
	speechFactor := factor * cfg.SpeechFactorRatio
	return func(sample int) float64 {
		if activity.IsSpeechAt(sample) {
			return speechFactor
		}
		return factor
	}
}
