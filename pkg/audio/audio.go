package audio

import (
	"bytes"
	"strings"
	"time"
)

// Format identifies the container/codec of an uploaded recording
type Format string

const (
	FormatWAV     Format = "wav"
	FormatMP3     Format = "mp3"
	FormatPCM     Format = "pcm"
	FormatUnknown Format = "unknown"
)

// AudioData holds a decoded recording as mono PCM.
// Samples are normalized to [-1, 1]; BitDepth records the source resolution so
// callers can recover the native amplitude scale.
type AudioData struct {
	Samples    []float64     `json:"-"`
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"`
	BitDepth   int           `json:"bit_depth"`
	Duration   time.Duration `json:"duration"`
	Format     Format        `json:"format"`
}

// FullScale returns the maximum representable amplitude for the source bit depth
func (a *AudioData) FullScale() float64 {
	depth := a.BitDepth
	if depth <= 0 || depth > 32 {
		depth = 16
	}
	return float64(int64(1) << (depth - 1))
}

// ParseFormat normalizes a user supplied format hint (extension, mime type or name)
func ParseFormat(hint string) Format {
	h := strings.ToLower(strings.TrimSpace(hint))
	h = strings.TrimPrefix(h, ".")
	if i := strings.LastIndex(h, "/"); i >= 0 {
		h = h[i+1:]
	}
	if i := strings.Index(h, ";"); i >= 0 {
		h = h[:i]
	}

	switch h {
	case "wav", "wave", "x-wav", "vnd.wave":
		return FormatWAV
	case "mp3", "mpeg", "mpeg3", "x-mpeg-3":
		return FormatMP3
	case "pcm", "raw", "l16", "s16le":
		return FormatPCM
	case "":
		return FormatUnknown
	default:
		return Format(h)
	}
}

// DetectFormat resolves the format from the hint, falling back to sniffing the header
func DetectFormat(data []byte, hint string) Format {
	if f := ParseFormat(hint); f != FormatUnknown {
		// a container header wins over the hint
		if sniffed := sniffFormat(data, false); sniffed != FormatUnknown {
			return sniffed
		}
		return f
	}
	return sniffFormat(data, true)
}

// sniffFormat inspects magic bytes. Bare MPEG frame sync is only trusted when
// no hint was given, since raw PCM can start with the same bit pattern.
func sniffFormat(data []byte, allowFrameSync bool) Format {
	if len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")) {
		return FormatWAV
	}
	if len(data) >= 3 && bytes.Equal(data[0:3], []byte("ID3")) {
		return FormatMP3
	}
	// MPEG audio frame sync: 11 set bits
	if allowFrameSync && len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0 {
		return FormatMP3
	}
	if len(data) >= 4 && bytes.Equal(data[0:4], []byte{0x1A, 0x45, 0xDF, 0xA3}) {
		return Format("webm")
	}
	if len(data) >= 4 && bytes.Equal(data[0:4], []byte("OggS")) {
		return Format("ogg")
	}
	return FormatUnknown
}
