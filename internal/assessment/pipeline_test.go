package assessment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/speech-coach/internal/adaptive"
	"github.com/RyanBlaney/speech-coach/internal/random"
	"github.com/RyanBlaney/speech-coach/internal/scoring"
	"github.com/RyanBlaney/speech-coach/pkg/audio/audiotest"
)

type stubEvaluator struct {
	score *scoring.ExternalScore
	err   error
}

func (s *stubEvaluator) Name() string  { return "stub" }
func (s *stubEvaluator) Enabled() bool { return true }
func (s *stubEvaluator) Evaluate(_ context.Context, _ []byte, _ string) (*scoring.ExternalScore, error) {
	return s.score, s.err
}

func newTestPipeline(t *testing.T, opts ...Option) *Pipeline {
	t.Helper()
	opts = append([]Option{WithRandom(random.Fixed(0))}, opts...)
	return NewPipeline(nil, nil, opts...)
}

func cleanRecording(t *testing.T) []byte {
	t.Helper()
	data, err := audiotest.WAV(16000,
		audiotest.Silence(0.2),
		audiotest.Tone(1.0, 0.3),
		audiotest.Silence(0.1),
		audiotest.Tone(1.2, 0.3),
		audiotest.Silence(0.2),
	)
	require.NoError(t, err)
	return data
}

func TestAssessCleanRecording(t *testing.T) {
	p := newTestPipeline(t)

	result := p.Assess(context.Background(), &Request{
		Audio:          cleanRecording(t),
		Format:         "wav",
		ReferenceText:  "你好世界",
		RecognizedText: "你好世界",
		AttemptCount:   1,
	})

	require.NotNil(t, result)
	assert.NotEmpty(t, result.SessionID)
	assert.Equal(t, scoring.SourceLocal, result.Source)
	assert.GreaterOrEqual(t, result.Score, 5)
	assert.LessOrEqual(t, result.Score, 100)
	assert.NotNil(t, result.Features)
	assert.NotNil(t, result.TextMatch)
	assert.Empty(t, result.Warnings)

	require.NotNil(t, result.Emotion)
	assert.True(t, result.Emotion.Type.Valid())
	assert.Equal(t, result.Emotion.Type.IsNegative(), result.StrategyAdjusted)

	require.NotNil(t, result.Adaptive)
	assert.Equal(t, 1, result.Adaptive.SessionStats.TotalAttempts)
	assert.NotEmpty(t, result.Adaptive.MainFeedback)
	assert.NotEmpty(t, result.FeedbackText)
	assert.Contains(t, result.FeedbackText, result.Adaptive.StrategyMessage)
	assert.NotEmpty(t, result.Suggestions)
}

func TestAssessUndecodableAudioFallsBack(t *testing.T) {
	p := newTestPipeline(t)

	result := p.Assess(context.Background(), &Request{
		Audio:         []byte("definitely not audio"),
		Format:        "wav",
		ReferenceText: "你好",
	})

	require.NotNil(t, result)
	assert.Nil(t, result.Features)
	assert.NotEmpty(t, result.Warnings)
	assert.Equal(t, 60, result.Score)
	assert.True(t, result.Pronunciation.Degraded)
	require.NotNil(t, result.Emotion)
	assert.NotEmpty(t, result.FeedbackText)
}

func TestAssessNilRequest(t *testing.T) {
	p := newTestPipeline(t)

	result := p.Assess(context.Background(), nil)

	require.NotNil(t, result)
	assert.NotEmpty(t, result.SessionID)
	assert.NotEmpty(t, result.Warnings)
	assert.Equal(t, 1, result.Adaptive.SessionStats.TotalAttempts)
}

func TestAssessKeepsSessionState(t *testing.T) {
	p := newTestPipeline(t)
	audio := cleanRecording(t)

	first := p.Assess(context.Background(), &Request{Audio: audio, ReferenceText: "你好"})
	second := p.Assess(context.Background(), &Request{Audio: audio, ReferenceText: "你好", SessionID: first.SessionID})
	other := p.Assess(context.Background(), &Request{Audio: audio, ReferenceText: "你好", SessionID: "other"})

	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, 2, second.Adaptive.SessionStats.TotalAttempts)
	assert.Equal(t, "other", other.SessionID)
	assert.Equal(t, 1, other.Adaptive.SessionStats.TotalAttempts)
	assert.Equal(t, 2, p.Registry().Len())
}

func TestAssessUsesExternalEvaluator(t *testing.T) {
	eval := &stubEvaluator{score: &scoring.ExternalScore{Score: 92, Accuracy: 95, Fluency: 90, Completeness: 100}}
	p := newTestPipeline(t, WithEvaluator(eval))

	result := p.Assess(context.Background(), &Request{
		Audio:          cleanRecording(t),
		ReferenceText:  "你好",
		RecognizedText: "你好",
	})

	assert.Equal(t, scoring.SourceExternal, result.Source)
	assert.Equal(t, 92, result.Score)
	assert.Equal(t, 95, result.Accuracy)
	assert.Equal(t, "stub", result.Pronunciation.Provider)
}

func TestAssessExternalFailureUsesLocal(t *testing.T) {
	eval := &stubEvaluator{err: scoring.NewProviderError("stub", scoring.ErrCodeUnavailable, "down", true, nil)}
	p := newTestPipeline(t, WithEvaluator(eval))

	result := p.Assess(context.Background(), &Request{Audio: cleanRecording(t), ReferenceText: "你好"})

	assert.Equal(t, scoring.SourceLocal, result.Source)
	assert.NotEmpty(t, result.FeedbackText)
}

func TestAssessSharedRegistry(t *testing.T) {
	registry := adaptive.NewRegistry(nil, nil, nil)
	p := newTestPipeline(t, WithRegistry(registry))

	result := p.Assess(context.Background(), &Request{Audio: cleanRecording(t), SessionID: "s1"})

	c, ok := registry.Get("s1")
	require.True(t, ok)
	assert.Equal(t, result.SessionID, c.ID())
	assert.Equal(t, 1, c.Stats().TotalAttempts)
}

func TestAssessMismatchNotice(t *testing.T) {
	p := newTestPipeline(t)

	result := p.Assess(context.Background(), &Request{
		Audio:          cleanRecording(t),
		ReferenceText:  "你好",
		RecognizedText: "你号",
	})

	assert.Contains(t, result.FeedbackText, "你读的是：你号，标准是：你好。")
}
