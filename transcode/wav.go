package transcode

import (
	"errors"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/RyanBlaney/sonido-denoise/algorithms/common"
	"github.com/RyanBlaney/sonido-denoise/audio"
)

// pcmFormat is the WAVE_FORMAT_PCM tag
const pcmFormat = 1

var errUnsupportedWAV = errors.New("not a PCM WAV file")

// ReadWAVFile decodes a PCM WAV file
func ReadWAVFile(filename string) (*audio.Signal, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("could not open file: %w", err)
	}
	defer file.Close()

	return DecodeWAV(file)
}

// DecodeWAV reads integer PCM WAV data and downmixes it to a mono signal
// in [-1, 1)
func DecodeWAV(r io.ReadSeeker) (*audio.Signal, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, errUnsupportedWAV
	}
	if decoder.WavAudioFormat != pcmFormat {
		return nil, fmt.Errorf("wav format tag %d: %w", decoder.WavAudioFormat, errUnsupportedWAV)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("could not read PCM buffer: %w", err)
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count %d: %w", channels, audio.ErrInvalidSignal)
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = int(decoder.BitDepth)
	}
	scale := float64(int64(1) << (bitDepth - 1))
	offset := 0.0
	if bitDepth == 8 {
		// 8-bit WAV is unsigned
		offset = scale
	}

	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := range frames {
		sum := 0.0
		for c := range channels {
			sum += (float64(buf.Data[i*channels+c]) - offset) / scale
		}
		samples[i] = sum / float64(channels)
	}

	return audio.NewSignal(samples, buf.Format.SampleRate)
}

// WriteWAVFile writes signal as mono PCM at the given bit depth
func WriteWAVFile(filename string, signal *audio.Signal, bitDepth int) error {
	outFile, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("output file creation error: %w", err)
	}

	if err := EncodeWAV(outFile, signal, bitDepth); err != nil {
		outFile.Close()
		return err
	}
	return outFile.Close()
}

// EncodeWAV writes signal as mono integer PCM. Samples are clamped to
// [-1, 1] before quantisation.
func EncodeWAV(w io.WriteSeeker, signal *audio.Signal, bitDepth int) error {
	if err := signal.Validate(); err != nil {
		return err
	}
	if bitDepth != 16 && bitDepth != 24 && bitDepth != 32 {
		return fmt.Errorf("unsupported bit depth %d: %w", bitDepth, audio.ErrConfigMismatch)
	}

	maxValue := float64(int64(1)<<(bitDepth-1)) - 1
	data := make([]int, signal.Len())
	for i, v := range signal.Samples {
		data[i] = int(common.Clamp(v, -1, 1) * maxValue)
	}

	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: 1,
			SampleRate:  signal.SampleRate,
		},
		Data:           data,
		SourceBitDepth: bitDepth,
	}

	// Create encoder, get necessary information from Format structure
	encoder := wav.NewEncoder(w, signal.SampleRate, bitDepth, 1, pcmFormat)
	if err := encoder.Write(buf); err != nil {
		return fmt.Errorf("data writing error: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to finalise wav: %w", err)
	}
	return nil
}
