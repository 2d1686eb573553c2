package emotion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/speech-coach/internal/random"
	"github.com/RyanBlaney/speech-coach/pkg/audio/features"
)

type stubClassifier struct {
	prediction *Prediction
	err        error
	status     ModelStatus
	calls      atomic.Int32
}

func (s *stubClassifier) Classify(context.Context, []byte, string) (*Prediction, error) {
	s.calls.Add(1)
	return s.prediction, s.err
}
func (s *stubClassifier) Status() ModelStatus    { return s.status }
func (s *stubClassifier) Warmup(context.Context) {}

func longFeatures() *features.AudioFeatures {
	f := baseFeatures()
	f.DurationSec = 2.5
	f.RMSEnergy = 600
	return f
}

func TestFuse(t *testing.T) {
	frustratedRule := resultFor(StateFrustrated, 0.6)
	confidentRule := resultFor(StateConfident, 0.9)

	aiWith := func(label string, conf float64) *Result {
		r := resultFor(StateForLabel(label), conf)
		r.AIDetected = true
		r.OriginalLabel = label
		return r
	}

	t.Run("confident model wins outright", func(t *testing.T) {
		merged := Fuse(aiWith("happy", 0.8), frustratedRule)
		assert.Equal(t, TypeHappy, merged.Type)
		assert.True(t, merged.AIDetected)
	})

	t.Run("strong rule beats weak model", func(t *testing.T) {
		merged := Fuse(aiWith("neutral", 0.4), frustratedRule)
		assert.Equal(t, TypeFrustrated, merged.Type)
		assert.Equal(t, "neutral", merged.AISuggestion)
		assert.False(t, merged.AIDetected)
	})

	t.Run("struggling rule overrides middling model", func(t *testing.T) {
		merged := Fuse(aiWith("happy", 0.55), frustratedRule)
		assert.Equal(t, TypeFrustrated, merged.Type)
		assert.Equal(t, "挫败", merged.Label)
		assert.InDelta(t, 0.55, merged.Confidence, 1e-9)
		assert.True(t, merged.AIDetected)
		assert.Equal(t, "happy", merged.OriginalLabel)
	})

	t.Run("positive rule keeps middling model", func(t *testing.T) {
		merged := Fuse(aiWith("disgust", 0.55), confidentRule)
		assert.Equal(t, TypeConfused, merged.Type)
		assert.Equal(t, StateConfused, merged.State)
	})
}

func TestDetectorSkipsModelForShortAudio(t *testing.T) {
	stub := &stubClassifier{status: ModelReady, prediction: &Prediction{Label: "sad", Confidence: 0.95}}
	detector := NewDetector(nil, nil, stub, random.Fixed(0), nil)

	f := baseFeatures()
	f.DurationSec = 1.0
	result := detector.Detect(context.Background(), &DetectInput{Audio: []byte{1}, Features: f, AttemptCount: 1})

	assert.EqualValues(t, 0, stub.calls.Load())
	assert.True(t, result.RuleBased)
	assert.False(t, result.AIDetected)

	cfg := DefaultDetectorConfig()
	cfg.UseForShort = true
	detector = NewDetector(cfg, nil, stub, random.Fixed(0), nil)
	result = detector.Detect(context.Background(), &DetectInput{Audio: []byte{1}, Features: f, AttemptCount: 1})
	assert.EqualValues(t, 1, stub.calls.Load())
	assert.Equal(t, TypeFrustrated, result.Type)
}

func TestDetectorUsesModelForLongAudio(t *testing.T) {
	stub := &stubClassifier{status: ModelReady, prediction: &Prediction{Label: "fear", Confidence: 0.9}}
	detector := NewDetector(nil, nil, stub, random.Fixed(0), nil)

	result := detector.Detect(context.Background(), &DetectInput{Audio: []byte{1}, Features: longFeatures(), AttemptCount: 1})

	assert.Equal(t, TypeConfused, result.Type)
	assert.Equal(t, StateAnxious, result.State)
	assert.True(t, result.AIDetected)
	assert.Equal(t, "fear", result.OriginalLabel)
	assert.Equal(t, "慢一点会更稳。", result.Encouragement)
	assert.NotEmpty(t, result.RuleFeatures)
}

func TestDetectorFallsBackOnClassifierError(t *testing.T) {
	stub := &stubClassifier{status: ModelReady, err: NewClassifierError(ErrCodeTimeout, "request timed out", true, context.DeadlineExceeded)}
	detector := NewDetector(nil, nil, stub, random.Fixed(1), nil)

	result := detector.Detect(context.Background(), &DetectInput{Audio: []byte{1}, Features: longFeatures(), Score: intPtr(90), AttemptCount: 1})

	assert.EqualValues(t, 1, stub.calls.Load())
	assert.Equal(t, TypeHappy, result.Type)
	assert.False(t, result.AIDetected)
	assert.Equal(t, "发音很清晰，继续。", result.Encouragement)
}

func TestDetectorWithoutClassifier(t *testing.T) {
	detector := NewDetector(nil, nil, nil, random.New(3), nil)
	assert.Equal(t, ModelDisabled, detector.ModelStatus())

	result := detector.Detect(context.Background(), nil)
	require.NotNil(t, result)
	assert.True(t, result.Type.Valid())
	assert.Contains(t, ProfileFor(result.State).Encouragements, result.Encouragement)
}

func modelServer(t *testing.T, healthStatus int, health *atomic.Int32) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		health.Add(1)
		assert.Equal(t, "test-model", r.URL.Query().Get("model"))
		w.WriteHeader(healthStatus)
	})
	mux.HandleFunc("/classify", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "wav", r.URL.Query().Get("format"))
		_ = json.NewEncoder(w).Encode([]Prediction{
			{Label: "Sad", Confidence: 0.3},
			{Label: "Happy", Confidence: 0.9},
		})
	})
	return httptest.NewServer(mux)
}

func classifierFor(url string) *HTTPClassifier {
	return NewHTTPClassifier(&ClassifierConfig{
		Enabled:   true,
		URL:       url,
		ModelPath: "test-model",
		Timeout:   2 * time.Second,
	}, nil)
}

func TestHTTPClassifierLoadsOnce(t *testing.T) {
	var health atomic.Int32
	server := modelServer(t, http.StatusOK, &health)
	defer server.Close()

	c := classifierFor(server.URL)
	assert.Equal(t, ModelIdle, c.Status())

	for i := 0; i < 2; i++ {
		prediction, err := c.Classify(context.Background(), []byte{1, 2}, "wav")
		require.NoError(t, err)
		assert.Equal(t, "happy", prediction.Label)
		assert.InDelta(t, 0.9, prediction.Confidence, 1e-9)
	}
	assert.EqualValues(t, 1, health.Load())
	assert.Equal(t, ModelReady, c.Status())
}

func TestHTTPClassifierLoadFailure(t *testing.T) {
	var health atomic.Int32
	server := modelServer(t, http.StatusServiceUnavailable, &health)
	defer server.Close()

	c := classifierFor(server.URL)
	_, err := c.Classify(context.Background(), []byte{1}, "wav")
	var cerr *ClassifierError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, ErrCodeUnavailable, cerr.Code)
	assert.Equal(t, ModelFailed, c.Status())

	// a failed load is retried on the next call
	_, _ = c.Classify(context.Background(), []byte{1}, "wav")
	assert.EqualValues(t, 2, health.Load())
}

func TestHTTPClassifierWarmup(t *testing.T) {
	var health atomic.Int32
	server := modelServer(t, http.StatusOK, &health)
	defer server.Close()

	c := classifierFor(server.URL)
	c.Warmup(context.Background())
	assert.Eventually(t, func() bool { return c.Status() == ModelReady }, time.Second, 10*time.Millisecond)
}

func TestHTTPClassifierDisabled(t *testing.T) {
	c := NewHTTPClassifier(nil, nil)
	assert.Equal(t, ModelDisabled, c.Status())

	_, err := c.Classify(context.Background(), []byte{1}, "")
	var cerr *ClassifierError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, ErrCodeNotConfigured, cerr.Code)
}
