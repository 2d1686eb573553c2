// Package audiotest generates synthetic recordings for tests
package audiotest

import (
	"bytes"
	"fmt"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Segment describes a stretch of synthetic signal.
// Amplitude is a fraction of full scale; zero means silence.
type Segment struct {
	Seconds   float64
	Amplitude float64
	Frequency float64
}

// Tone is a convenience constructor for a 220 Hz segment
func Tone(seconds, amplitude float64) Segment {
	return Segment{Seconds: seconds, Amplitude: amplitude, Frequency: 220}
}

// Silence is a zero-amplitude segment
func Silence(seconds float64) Segment {
	return Segment{Seconds: seconds}
}

// Samples renders segments into normalized mono samples
func Samples(sampleRate int, segments ...Segment) []float64 {
	var out []float64
	for _, seg := range segments {
		n := int(math.Round(seg.Seconds * float64(sampleRate)))
		freq := seg.Frequency
		if freq == 0 {
			freq = 220
		}
		for i := 0; i < n; i++ {
			t := float64(i) / float64(sampleRate)
			out = append(out, seg.Amplitude*math.Sin(2*math.Pi*freq*t))
		}
	}
	return out
}

// PCM16 renders segments as 16-bit little-endian mono bytes
func PCM16(sampleRate int, segments ...Segment) []byte {
	samples := Samples(sampleRate, segments...)
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := int16(math.Max(-32768, math.Min(32767, s*32767)))
		buf[i*2] = byte(v)
		buf[i*2+1] = byte(uint16(v) >> 8)
	}
	return buf
}

// WAV renders segments into an in-memory 16-bit mono wav file
func WAV(sampleRate int, segments ...Segment) ([]byte, error) {
	samples := Samples(sampleRate, segments...)

	tmp, err := os.CreateTemp("", "audiotest-*.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp wav: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	enc := wav.NewEncoder(tmp, sampleRate, 16, 1, 1)
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(math.Max(-32768, math.Min(32767, s*32767)))
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("failed to write wav samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize wav: %w", err)
	}

	return os.ReadFile(tmp.Name())
}

// MP3FrameSamples is the number of samples per channel in an MPEG-1 Layer III frame
const MP3FrameSamples = 1152

// mp3SilentHeader is MPEG-1 Layer III, 128 kbps, 44.1 kHz, stereo, no CRC
var mp3SilentHeader = []byte{0xFF, 0xFB, 0x90, 0x00}

// SilentMP3 builds an MP3 stream of digital silence at 44.1 kHz.
// Zeroed side info and main data decode to zero samples, so no encoder is needed.
func SilentMP3(frames int) []byte {
	// 144 * 128000 / 44100, no padding
	const frameSize = 417
	frame := make([]byte, frameSize)
	copy(frame, mp3SilentHeader)
	return bytes.Repeat(frame, frames)
}

// ID3 prefixes data with an empty ID3v2.3 tag
func ID3(data []byte) []byte {
	tag := []byte{'I', 'D', '3', 0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	return append(tag, data...)
}
