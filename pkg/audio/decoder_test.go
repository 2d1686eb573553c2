package audio_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/speech-coach/pkg/audio"
	"github.com/RyanBlaney/speech-coach/pkg/audio/audiotest"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		hint string
		want audio.Format
	}{
		{"wav", audio.FormatWAV},
		{".WAV", audio.FormatWAV},
		{"audio/x-wav", audio.FormatWAV},
		{"audio/mpeg", audio.FormatMP3},
		{"raw", audio.FormatPCM},
		{"audio/webm;codecs=opus", audio.Format("webm")},
		{"", audio.FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.hint, func(t *testing.T) {
			assert.Equal(t, tt.want, audio.ParseFormat(tt.hint))
		})
	}
}

func TestDetectFormatPrefersHeader(t *testing.T) {
	data, err := audiotest.WAV(16000, audiotest.Tone(0.2, 0.5))
	require.NoError(t, err)

	assert.Equal(t, audio.FormatWAV, audio.DetectFormat(data, "mp3"))
	assert.Equal(t, audio.FormatWAV, audio.DetectFormat(data, ""))
	assert.Equal(t, audio.FormatMP3, audio.DetectFormat([]byte("ID3\x03\x00"), ""))
	assert.Equal(t, audio.FormatPCM, audio.DetectFormat([]byte{0xFF, 0xF0, 0x00, 0x00}, "pcm"))
}

func TestDecodeWAV(t *testing.T) {
	data, err := audiotest.WAV(16000, audiotest.Tone(1.0, 0.5))
	require.NoError(t, err)

	dec := audio.NewDecoder(nil, nil)
	got, err := dec.Decode(data, "wav")
	require.NoError(t, err)

	assert.Equal(t, audio.FormatWAV, got.Format)
	assert.Equal(t, 16000, got.SampleRate)
	assert.Equal(t, 1, got.Channels)
	assert.Equal(t, 16, got.BitDepth)
	assert.InDelta(t, time.Second.Seconds(), got.Duration.Seconds(), 0.01)
	assert.Equal(t, 32768.0, got.FullScale())

	peak := 0.0
	for _, s := range got.Samples {
		if s > peak {
			peak = s
		}
	}
	assert.InDelta(t, 0.5, peak, 0.01)
}

func TestDecodePCM(t *testing.T) {
	data := audiotest.PCM16(16000, audiotest.Tone(0.5, 0.3))
	// odd trailing byte is dropped
	data = append(data, 0x01)

	got, err := audio.NewDecoder(nil, nil).Decode(data, "pcm")
	require.NoError(t, err)
	assert.Equal(t, 8000, len(got.Samples))
	assert.InDelta(t, 0.5, got.Duration.Seconds(), 0.001)
}

func TestDecodeMP3(t *testing.T) {
	const frames = 20
	wantSeconds := float64(frames*audiotest.MP3FrameSamples) / 44100

	tests := []struct {
		name string
		data []byte
		hint string
	}{
		{"frame sync without hint", audiotest.SilentMP3(frames), ""},
		{"id3 tag without hint", audiotest.ID3(audiotest.SilentMP3(frames)), ""},
		{"mime hint", audiotest.SilentMP3(frames), "audio/mpeg"},
	}

	dec := audio.NewDecoder(nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, audio.FormatMP3, audio.DetectFormat(tt.data, tt.hint))

			got, err := dec.Decode(tt.data, tt.hint)
			require.NoError(t, err)

			assert.Equal(t, audio.FormatMP3, got.Format)
			assert.Equal(t, 44100, got.SampleRate)
			assert.Equal(t, 2, got.Channels)
			assert.Equal(t, 16, got.BitDepth)
			assert.Len(t, got.Samples, frames*audiotest.MP3FrameSamples)
			assert.InDelta(t, wantSeconds, got.Duration.Seconds(), 0.001)
			for _, s := range got.Samples {
				require.Zero(t, s)
			}
		})
	}
}

// corrupt containers may fail at header parsing, frame reading or yield nothing
var corruptCodes = []string{audio.ErrCodeInvalidFormat, audio.ErrCodeDecoding, audio.ErrCodeEmptyAudio}

func TestDecodeErrors(t *testing.T) {
	dec := audio.NewDecoder(nil, nil)

	tests := []struct {
		name      string
		data      []byte
		hint      string
		wantCodes []string
	}{
		{"empty input", nil, "wav", []string{audio.ErrCodeEmptyAudio}},
		{"webm unsupported", []byte{0x1A, 0x45, 0xDF, 0xA3, 0x00}, "", []string{audio.ErrCodeUnsupportedFormat}},
		{"unknown bytes", []byte("hello world"), "", []string{audio.ErrCodeUnsupportedFormat}},
		{"corrupt wav", []byte("RIFF\x00\x00\x00\x00WAVEjunk"), "wav", corruptCodes},
		{"corrupt mp3", []byte("not really an mp3 stream"), "mp3", corruptCodes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := dec.Decode(tt.data, tt.hint)
			require.Error(t, err)
			assert.True(t, audio.IsDecodeError(err))

			var de *audio.DecodeError
			require.True(t, errors.As(err, &de))
			assert.Contains(t, tt.wantCodes, de.Code)
		})
	}
}
