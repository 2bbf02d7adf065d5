package temporal

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-denoise/algorithms/common"
	"github.com/RyanBlaney/sonido-denoise/audio"
)

// VADConfig holds the voice-activity thresholds
type VADConfig struct {
	FrameMs float64 `json:"frame_ms" yaml:"frame_ms"`
	HopMs   float64 `json:"hop_ms" yaml:"hop_ms"`

	// EnergyThresholdDB is the frame RMS relative to the loudest frame (dB)
	// below which a frame is non-speech
	EnergyThresholdDB float64 `json:"energy_threshold_db" yaml:"energy_threshold_db"`

	// AbsoluteFloorDB is the frame RMS in dBFS below which a frame is
	// non-speech regardless of the loudest frame
	AbsoluteFloorDB float64 `json:"absolute_floor_db" yaml:"absolute_floor_db"`

	// ZCRLow and ZCRHigh bound the normalised zero crossing rate of speech frames
	ZCRLow  float64 `json:"zcr_low" yaml:"zcr_low"`
	ZCRHigh float64 `json:"zcr_high" yaml:"zcr_high"`
}

// DefaultVADConfig returns 20 ms frames with a 10 ms hop
func DefaultVADConfig() VADConfig {
	return VADConfig{
		FrameMs:           20,
		HopMs:             10,
		EnergyThresholdDB: -40,
		AbsoluteFloorDB:   -60,
		ZCRLow:            0.01,
		ZCRHigh:           0.6,
	}
}

// Validate checks that the thresholds describe a usable detector
func (c VADConfig) Validate() error {
	if c.FrameMs <= 0 || c.HopMs <= 0 {
		return fmt.Errorf("voice activity frame/hop must be positive (%.1f/%.1f ms): %w", c.FrameMs, c.HopMs, audio.ErrConfigMismatch)
	}
	if c.HopMs > c.FrameMs {
		return fmt.Errorf("voice activity hop %.1f ms exceeds frame %.1f ms: %w", c.HopMs, c.FrameMs, audio.ErrConfigMismatch)
	}
	if c.ZCRLow < 0 || c.ZCRHigh > 1 || c.ZCRLow > c.ZCRHigh {
		return fmt.Errorf("zero crossing band [%.3f, %.3f] invalid: %w", c.ZCRLow, c.ZCRHigh, audio.ErrConfigMismatch)
	}
	if c.EnergyThresholdDB > 0 {
		return fmt.Errorf("relative energy threshold must be <= 0 dB: %w", audio.ErrConfigMismatch)
	}
	return nil
}

// Activity is the per-frame speech/non-speech decision for one signal
type Activity struct {
	Speech     []bool `json:"speech"`
	FrameSize  int    `json:"frame_size"`
	HopSize    int    `json:"hop_size"`
	SampleRate int    `json:"sample_rate"`
	NumSamples int    `json:"num_samples"`
}

// VoiceActivityDetector classifies frames as speech or non-speech from
// short-term energy and zero crossing rate. It holds only configuration, so
// a single detector is safe for concurrent use.
type VoiceActivityDetector struct {
	config VADConfig
}

// NewVoiceActivityDetector creates a detector, validating its configuration
func NewVoiceActivityDetector(config VADConfig) (*VoiceActivityDetector, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &VoiceActivityDetector{config: config}, nil
}

// Detect computes the activity decision for every frame of signal
func (v *VoiceActivityDetector) Detect(signal *audio.Signal) (*Activity, error) {
	if signal == nil || signal.Len() == 0 {
		return nil, fmt.Errorf("voice activity on empty signal: %w", audio.ErrDegenerateSignal)
	}

	frameSize := max(signal.MsToSamples(v.config.FrameMs), 1)
	hopSize := max(signal.MsToSamples(v.config.HopMs), 1)

	energy := NewEnergy(frameSize, hopSize)
	rms := energy.ComputeShortTimeEnergy(signal.Samples)
	zcr := energy.ComputeZeroCrossingRate(signal.Samples)

	loudest := 0.0
	for _, r := range rms {
		loudest = math.Max(loudest, r)
	}

	speech := make([]bool, len(rms))
	if loudest > 0 {
		relativeFloor := loudest * common.DBToAmplitude(v.config.EnergyThresholdDB)
		absoluteFloor := common.DBToAmplitude(v.config.AbsoluteFloorDB)

		for i := range rms {
			speech[i] = rms[i] > 0 &&
				rms[i] >= relativeFloor &&
				rms[i] >= absoluteFloor &&
				zcr[i] >= v.config.ZCRLow &&
				zcr[i] <= v.config.ZCRHigh
		}
	}

	return &Activity{
		Speech:     speech,
		FrameSize:  frameSize,
		HopSize:    hopSize,
		SampleRate: signal.SampleRate,
		NumSamples: signal.Len(),
	}, nil
}

// NonSpeechFrames counts frames classified as non-speech
func (a *Activity) NonSpeechFrames() int {
	count := 0
	for _, s := range a.Speech {
		if !s {
			count++
		}
	}
	return count
}

// NonSpeechRatio returns the fraction of non-speech frames
func (a *Activity) NonSpeechRatio() float64 {
	if len(a.Speech) == 0 {
		return 0
	}
	return float64(a.NonSpeechFrames()) / float64(len(a.Speech))
}

// LongestNonSpeechRun returns the longest run of consecutive non-speech frames
func (a *Activity) LongestNonSpeechRun() int {
	longest, current := 0, 0
	for _, s := range a.Speech {
		if s {
			current = 0
			continue
		}
		current++
		longest = max(longest, current)
	}
	return longest
}

// LongestNonSpeechSeconds converts the longest non-speech run to seconds
// using the frame hop
func (a *Activity) LongestNonSpeechSeconds() float64 {
	if a.SampleRate <= 0 {
		return 0
	}
	return float64(a.LongestNonSpeechRun()*a.HopSize) / float64(a.SampleRate)
}

// IsSpeechAt reports whether the frame owning sample i is speech. Sample i
// belongs to frame i/hop; samples past the last frame take the last decision.
func (a *Activity) IsSpeechAt(i int) bool {
	if len(a.Speech) == 0 || i < 0 {
		return false
	}
	return a.Speech[min(i/a.HopSize, len(a.Speech)-1)]
}

// Segment is a half-open sample range [Start, End)
type Segment struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of samples in the segment
func (s Segment) Len() int {
	return s.End - s.Start
}

// NonSpeechSegments returns the sample ranges covered by runs of consecutive
// non-speech frames, keeping only ranges of at least minSamples
func (a *Activity) NonSpeechSegments(minSamples int) []Segment {
	var segments []Segment
	runStart := -1

	flush := func(endFrame int) {
		seg := Segment{
			Start: runStart * a.HopSize,
			End:   min((endFrame-1)*a.HopSize+a.FrameSize, a.NumSamples),
		}
		if seg.Len() >= minSamples && seg.Len() > 0 {
			segments = append(segments, seg)
		}
		runStart = -1
	}

	for i, s := range a.Speech {
		switch {
		case !s && runStart < 0:
			runStart = i
		case s && runStart >= 0:
			flush(i)
		}
	}
	if runStart >= 0 {
		flush(len(a.Speech))
	}

	return segments
}
