package features

import (
	"fmt"

	"github.com/RyanBlaney/speech-coach/pkg/audio"
	"github.com/RyanBlaney/speech-coach/pkg/logging"
)

// ExtractorConfig holds the frame energy parameters
type ExtractorConfig struct {
	FrameMs               int     `mapstructure:"frame_ms"`                // Frame width
	SilenceThreshold      float64 `mapstructure:"silence_threshold"`       // Fraction of full scale below which a frame is silent
	MinPauseFrames        int     `mapstructure:"min_pause_frames"`        // Shortest silent run counted as a pause
	TrendThreshold        float64 `mapstructure:"trend_threshold"`         // Relative change for the half split
	SegmentCount          int     `mapstructure:"segment_count"`           // Segments for the third split
	SegmentTrendThreshold float64 `mapstructure:"segment_trend_threshold"` // Relative change for the third split
	MinSegmentMs          int     `mapstructure:"min_segment_ms"`          // Below this segment length the third split reports stable
	RateThresholdFactor   float64 `mapstructure:"rate_threshold_factor"`   // Multiplier on the reference mean for rising edges
	RateWindowFrames      int     `mapstructure:"rate_window_frames"`      // 0 uses the whole-clip mean
}

// DefaultExtractorConfig returns the standard 100 ms frame setup
func DefaultExtractorConfig() *ExtractorConfig {
	return &ExtractorConfig{
		FrameMs:               100,
		SilenceThreshold:      0.02,
		MinPauseFrames:        3,
		TrendThreshold:        0.15,
		SegmentCount:          10,
		SegmentTrendThreshold: 0.40,
		MinSegmentMs:          50,
		RateThresholdFactor:   0.7,
		RateWindowFrames:      0,
	}
}

// Validate checks the extractor parameters
func (c *ExtractorConfig) Validate() error {
	if c.FrameMs < 100 || c.FrameMs > 200 {
		return fmt.Errorf("frame_ms must be between 100 and 200, got %d", c.FrameMs)
	}
	if c.SilenceThreshold <= 0 || c.SilenceThreshold >= 1 {
		return fmt.Errorf("silence_threshold must be in (0, 1)")
	}
	if c.MinPauseFrames < 1 {
		return fmt.Errorf("min_pause_frames must be positive")
	}
	if c.TrendThreshold <= 0 || c.SegmentTrendThreshold <= 0 {
		return fmt.Errorf("trend thresholds must be positive")
	}
	if c.SegmentCount < 3 {
		return fmt.Errorf("segment_count must be at least 3")
	}
	if c.RateWindowFrames < 0 {
		return fmt.Errorf("rate_window_frames cannot be negative")
	}
	return nil
}

// Extractor computes AudioFeatures from decoded audio.
// It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	config *ExtractorConfig
	logger logging.Logger
}

// NewExtractor creates an extractor; nil config uses DefaultExtractorConfig
func NewExtractor(config *ExtractorConfig, logger logging.Logger) *Extractor {
	if config == nil {
		config = DefaultExtractorConfig()
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Extractor{
		config: config,
		logger: logger.WithFields(logging.Fields{"component": "feature_extractor"}),
	}
}

// Extract computes the feature snapshot for one recording
func (e *Extractor) Extract(data *audio.AudioData) (*AudioFeatures, error) {
	if data == nil || len(data.Samples) == 0 || data.SampleRate <= 0 {
		return nil, audio.NewDecodeError(audio.FormatUnknown, audio.ErrCodeEmptyAudio, "no samples to analyze", nil)
	}

	fullScale := data.FullScale()
	silenceThreshold := fullScale * e.config.SilenceThreshold
	frameLen := max(1, data.SampleRate*e.config.FrameMs/1000)
	frameSec := float64(e.config.FrameMs) / 1000.0

	durationSec := float64(len(data.Samples)) / float64(data.SampleRate)
	energies := frameEnergies(data.Samples, frameLen, fullScale)

	silent := make([]bool, len(energies))
	for i, en := range energies {
		silent[i] = en < silenceThreshold
	}

	// Trim leading and trailing silence around the button press
	activeStart, activeEnd := 0, len(energies)-1
	firstVoiced, lastVoiced := -1, -1
	for i, s := range silent {
		if !s {
			if firstVoiced < 0 {
				firstVoiced = i
			}
			lastVoiced = i
		}
	}
	if firstVoiced >= 0 {
		activeStart, activeEnd = firstVoiced, lastVoiced
	}
	activeFlags := silent[activeStart : activeEnd+1]
	activeEnergies := energies[activeStart : activeEnd+1]

	silentFrames := 0
	for _, s := range activeFlags {
		if s {
			silentFrames++
		}
	}
	activeTotal := max(1, len(activeFlags))

	pauses := findPauses(activeFlags, e.config.MinPauseFrames)
	maxPause, sumPause := 0, 0
	for _, p := range pauses {
		sumPause += p
		if p > maxPause {
			maxPause = p
		}
	}
	avgPause := 0.0
	if len(pauses) > 0 {
		avgPause = float64(sumPause) / float64(len(pauses)) * frameSec
	}

	activeSamples := data.Samples[activeStart*frameLen : min(len(data.Samples), (activeEnd+1)*frameLen)]
	minSegmentLen := data.SampleRate * e.config.MinSegmentMs / 1000

	speakingRate := 0.0
	if durationSec > 0 {
		edges := countRisingEdges(activeEnergies, e.config.RateThresholdFactor, e.config.RateWindowFrames)
		speakingRate = float64(edges) / durationSec
	}

	features := &AudioFeatures{
		DurationSec:         durationSec,
		DurationMs:          int64(durationSec * 1000),
		RMSEnergy:           calculateRMSEnergy(data.Samples) * fullScale,
		MaxAmplitude:        calculatePeak(data.Samples) * fullScale,
		SilenceRatio:        clamp01(float64(silentFrames) / float64(activeTotal)),
		PauseCount:          len(pauses),
		MaxPauseDurationSec: float64(maxPause) * frameSec,
		AvgPauseDurationSec: avgPause,
		EnergyTrend:         halfTrend(activeEnergies, e.config.TrendThreshold),
		SegmentEnergyTrend:  segmentTrend(activeSamples, e.config.SegmentCount, minSegmentLen, fullScale, e.config.SegmentTrendThreshold),
		EnergyConsistency:   energyConsistency(activeEnergies),
		SpeakingRate:        speakingRate,
		SampleRate:          data.SampleRate,
		FrameCount:          len(energies),
		ActiveFrames:        len(activeFlags),
	}

	e.logger.Debug("Extracted audio features", logging.Fields(features.Map()))

	return features, nil
}

// findPauses returns the lengths of silent runs of at least minFrames frames
func findPauses(flags []bool, minFrames int) []int {
	var pauses []int
	run := 0
	for _, s := range flags {
		if s {
			run++
			continue
		}
		if run >= minFrames {
			pauses = append(pauses, run)
		}
		run = 0
	}
	if run >= minFrames {
		pauses = append(pauses, run)
	}
	return pauses
}
