package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/RyanBlaney/speech-coach/pkg/audio"
	"github.com/RyanBlaney/speech-coach/pkg/audio/audiotest"
)

const testSampleRate = 16000

type ExtractorTestSuite struct {
	suite.Suite
	extractor *Extractor
}

func (s *ExtractorTestSuite) SetupTest() {
	s.extractor = NewExtractor(nil, nil)
}

func (s *ExtractorTestSuite) extract(segments ...audiotest.Segment) *AudioFeatures {
	data := &audio.AudioData{
		Samples:    audiotest.Samples(testSampleRate, segments...),
		SampleRate: testSampleRate,
		Channels:   1,
		BitDepth:   16,
	}
	f, err := s.extractor.Extract(data)
	s.Require().NoError(err)
	return f
}

func (s *ExtractorTestSuite) TestSteadyTone() {
	f := s.extract(audiotest.Tone(1.0, 0.5))

	s.InDelta(1.0, f.DurationSec, 1e-9)
	s.InDelta(0.5/1.4142*32768, f.RMSEnergy, 50)
	s.Equal(0.0, f.SilenceRatio)
	s.Equal(0, f.PauseCount)
	s.Equal(TrendStable, f.EnergyTrend)
	s.Equal(TrendStable, f.SegmentEnergyTrend)
	s.Greater(f.EnergyConsistency, 0.95)
	s.InDelta(1.0, f.SpeakingRate, 1e-9)
	s.Equal(10, f.FrameCount)
	s.Equal(testSampleRate, f.SampleRate)
}

func (s *ExtractorTestSuite) TestEdgeSilenceIsTrimmed() {
	f := s.extract(audiotest.Silence(0.5), audiotest.Tone(1.0, 0.5), audiotest.Silence(0.5))

	s.InDelta(2.0, f.DurationSec, 1e-9)
	s.Equal(0.0, f.SilenceRatio)
	s.Equal(0, f.PauseCount)
	s.Equal(10, f.ActiveFrames)
	s.Equal(20, f.FrameCount)
}

func (s *ExtractorTestSuite) TestPauseDetection() {
	f := s.extract(audiotest.Tone(0.5, 0.5), audiotest.Silence(0.4), audiotest.Tone(0.5, 0.5))

	s.Equal(1, f.PauseCount)
	s.InDelta(0.4, f.MaxPauseDurationSec, 1e-9)
	s.InDelta(0.4, f.AvgPauseDurationSec, 1e-9)
	s.InDelta(4.0/14.0, f.SilenceRatio, 1e-9)
}

func (s *ExtractorTestSuite) TestShortGapIsNotAPause() {
	f := s.extract(audiotest.Tone(0.5, 0.5), audiotest.Silence(0.2), audiotest.Tone(0.5, 0.5))

	s.Equal(0, f.PauseCount)
	s.Equal(0.0, f.MaxPauseDurationSec)
	s.InDelta(2.0/12.0, f.SilenceRatio, 1e-9)
}

func (s *ExtractorTestSuite) TestEnergyTrends() {
	decreasing := s.extract(audiotest.Tone(1.0, 0.8), audiotest.Tone(1.0, 0.2))
	s.Equal(TrendDecreasing, decreasing.EnergyTrend)
	s.Equal(TrendDecreasing, decreasing.SegmentEnergyTrend)
	s.Less(decreasing.EnergyConsistency, 0.95)

	increasing := s.extract(audiotest.Tone(1.0, 0.2), audiotest.Tone(1.0, 0.8))
	s.Equal(TrendIncreasing, increasing.EnergyTrend)
	s.Equal(TrendIncreasing, increasing.SegmentEnergyTrend)

	// a 20% rise crosses the half threshold but not the segment threshold
	mild := s.extract(audiotest.Tone(1.0, 0.5), audiotest.Tone(1.0, 0.6))
	s.Equal(TrendIncreasing, mild.EnergyTrend)
	s.Equal(TrendStable, mild.SegmentEnergyTrend)
}

func (s *ExtractorTestSuite) TestSpeakingRateCountsBursts() {
	var segments []audiotest.Segment
	for i := 0; i < 4; i++ {
		segments = append(segments, audiotest.Tone(0.2, 0.5), audiotest.Silence(0.3))
	}
	f := s.extract(segments...)

	s.InDelta(2.0, f.DurationSec, 1e-9)
	s.InDelta(2.0, f.SpeakingRate, 1e-9)
	s.Equal(3, f.PauseCount)
}

func (s *ExtractorTestSuite) TestAllSilence() {
	f := s.extract(audiotest.Silence(1.0))

	s.Equal(1.0, f.SilenceRatio)
	s.Equal(1, f.PauseCount)
	s.Equal(0.0, f.SpeakingRate)
	s.Equal(0.0, f.RMSEnergy)
}

func (s *ExtractorTestSuite) TestDeterministic() {
	segments := []audiotest.Segment{audiotest.Tone(0.7, 0.4), audiotest.Silence(0.35), audiotest.Tone(0.9, 0.3)}
	first := s.extract(segments...)
	second := s.extract(segments...)
	s.Equal(first, second)
}

func (s *ExtractorTestSuite) TestEmptyAudio() {
	_, err := s.extractor.Extract(&audio.AudioData{SampleRate: testSampleRate, BitDepth: 16})
	s.Require().Error(err)
	s.True(audio.IsDecodeError(err))
}

func TestExtractorTestSuite(t *testing.T) {
	suite.Run(t, new(ExtractorTestSuite))
}

func TestSilenceThresholdFollowsBitDepth(t *testing.T) {
	// 1% of full scale is silent at any bit depth
	samples := audiotest.Samples(testSampleRate, audiotest.Tone(1.0, 0.01))
	for _, depth := range []int{8, 16, 24} {
		f, err := NewExtractor(nil, nil).Extract(&audio.AudioData{
			Samples:    samples,
			SampleRate: testSampleRate,
			BitDepth:   depth,
		})
		require.NoError(t, err)
		assert.Equal(t, 1.0, f.SilenceRatio, "bit depth %d", depth)
	}
}

func TestDefaultFeatures(t *testing.T) {
	f := DefaultFeatures()
	assert.Equal(t, 0.5, f.SilenceRatio)
	assert.Equal(t, TrendUnknown, f.EnergyTrend)
	assert.Equal(t, 0.5, f.EnergyConsistency)
	assert.Zero(t, f.DurationSec)
	assert.Zero(t, f.RMSEnergy)
	assert.Zero(t, f.PauseCount)
	assert.Zero(t, f.SpeakingRate)
}

func TestExtractorConfigValidate(t *testing.T) {
	cfg := DefaultExtractorConfig()
	require.NoError(t, cfg.Validate())

	cfg.FrameMs = 50
	assert.Error(t, cfg.Validate())

	cfg = DefaultExtractorConfig()
	cfg.SegmentCount = 2
	assert.Error(t, cfg.Validate())
}

func TestRisingEdgesRollingWindow(t *testing.T) {
	energies := []float64{0, 100, 0, 100, 0, 100}
	assert.Equal(t, 3, countRisingEdges(energies, 0.7, 0))
	assert.Equal(t, 3, countRisingEdges(energies, 0.7, 2))
}
