package audio

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"

	"github.com/RyanBlaney/speech-coach/pkg/logging"
)

// DecoderConfig controls how headerless input is interpreted
type DecoderConfig struct {
	PCMSampleRate int `mapstructure:"pcm_sample_rate"`
	PCMChannels   int `mapstructure:"pcm_channels"`
}

// DefaultDecoderConfig matches the 16 kHz mono S16LE stream produced by the recorder
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		PCMSampleRate: 16000,
		PCMChannels:   1,
	}
}

// Decoder turns uploaded recordings into mono PCM
type Decoder struct {
	config *DecoderConfig
	logger logging.Logger
}

// NewDecoder creates a decoder; nil config uses DefaultDecoderConfig
func NewDecoder(config *DecoderConfig, logger logging.Logger) *Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	if config.PCMSampleRate <= 0 {
		config.PCMSampleRate = 16000
	}
	if config.PCMChannels <= 0 {
		config.PCMChannels = 1
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Decoder{
		config: config,
		logger: logger.WithFields(logging.Fields{"component": "audio_decoder"}),
	}
}

// Decode decodes data using the format hint (may be empty)
func (d *Decoder) Decode(data []byte, hint string) (*AudioData, error) {
	if len(data) == 0 {
		return nil, NewDecodeError(ParseFormat(hint), ErrCodeEmptyAudio, "no audio bytes", nil)
	}

	format := DetectFormat(data, hint)

	var (
		audio *AudioData
		err   error
	)
	switch format {
	case FormatWAV:
		audio, err = d.decodeWAV(data)
	case FormatMP3:
		audio, err = d.decodeMP3(data)
	case FormatPCM:
		audio, err = d.decodePCM(data)
	default:
		return nil, NewDecodeError(format, ErrCodeUnsupportedFormat,
			fmt.Sprintf("unsupported audio format %q", string(format)), nil)
	}
	if err != nil {
		return nil, err
	}

	if len(audio.Samples) == 0 {
		return nil, NewDecodeError(format, ErrCodeEmptyAudio, "decoded audio contains no samples", nil)
	}

	audio.Format = format
	audio.Duration = samplesToDuration(len(audio.Samples), audio.SampleRate)

	d.logger.Debug("Decoded audio", logging.Fields{
		"format":      string(format),
		"sample_rate": audio.SampleRate,
		"channels":    audio.Channels,
		"bit_depth":   audio.BitDepth,
		"duration_ms": audio.Duration.Milliseconds(),
	})

	return audio, nil
}

func (d *Decoder) decodeWAV(data []byte) (*AudioData, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, NewDecodeError(FormatWAV, ErrCodeInvalidFormat, "invalid wav header", nil)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, NewDecodeError(FormatWAV, ErrCodeDecoding, "failed to read wav samples", err)
	}

	channels := int(dec.NumChans)
	bitDepth := int(dec.BitDepth)
	if channels <= 0 || bitDepth <= 0 || dec.SampleRate == 0 {
		return nil, NewDecodeError(FormatWAV, ErrCodeInvalidFormat, "wav header missing stream parameters", nil)
	}

	fullScale := float64(int64(1) << (bitDepth - 1))
	offset := 0.0
	if bitDepth == 8 {
		// 8-bit wav is unsigned, centered at 128
		offset = 128
	}

	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			sum += float64(buf.Data[i*channels+ch]) - offset
		}
		samples[i] = sum / float64(channels) / fullScale
	}

	return &AudioData{
		Samples:    samples,
		SampleRate: int(dec.SampleRate),
		Channels:   channels,
		BitDepth:   bitDepth,
	}, nil
}

func (d *Decoder) decodeMP3(data []byte) (*AudioData, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, NewDecodeError(FormatMP3, ErrCodeInvalidFormat, "failed to create mp3 decoder", err)
	}

	pcm, err := io.ReadAll(dec)
	if err != nil && len(pcm) == 0 {
		return nil, NewDecodeError(FormatMP3, ErrCodeDecoding, "failed to read mp3 frames", err)
	}

	// go-mp3 always yields interleaved stereo S16LE
	samples := convertS16ToMono(pcm, 2)

	return &AudioData{
		Samples:    samples,
		SampleRate: dec.SampleRate(),
		Channels:   2,
		BitDepth:   16,
	}, nil
}

func (d *Decoder) decodePCM(data []byte) (*AudioData, error) {
	if len(data)%(2*d.config.PCMChannels) != 0 {
		// drop a trailing partial frame rather than failing
		data = data[:len(data)-len(data)%(2*d.config.PCMChannels)]
	}
	return &AudioData{
		Samples:    convertS16ToMono(data, d.config.PCMChannels),
		SampleRate: d.config.PCMSampleRate,
		Channels:   d.config.PCMChannels,
		BitDepth:   16,
	}, nil
}

// convertS16ToMono converts interleaved 16-bit little-endian PCM to normalized mono
func convertS16ToMono(buffer []byte, channels int) []float64 {
	if channels <= 0 {
		channels = 1
	}
	frameBytes := 2 * channels
	frames := len(buffer) / frameBytes
	samples := make([]float64, frames)

	for i := 0; i < frames; i++ {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			off := i*frameBytes + ch*2
			sample := int16(buffer[off]) | int16(buffer[off+1])<<8
			sum += float64(sample)
		}
		samples[i] = sum / float64(channels) / 32768.0
	}

	return samples
}

func samplesToDuration(count, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(count) / float64(sampleRate) * float64(time.Second))
}
