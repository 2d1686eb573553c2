package scoring

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/speech-coach/internal/alignment"
)

type stubEvaluator struct {
	score   *ExternalScore
	err     error
	enabled bool
	calls   atomic.Int32
}

func (s *stubEvaluator) Name() string  { return "stub" }
func (s *stubEvaluator) Enabled() bool { return s.enabled }
func (s *stubEvaluator) Evaluate(_ context.Context, _ []byte, _ string) (*ExternalScore, error) {
	s.calls.Add(1)
	return s.score, s.err
}

func scoreInput(recognized string) *ScoreInput {
	return &ScoreInput{
		Audio:          []byte{1, 2, 3, 4},
		Features:       cleanFeatures(1.0),
		TextMatch:      alignment.NewTextAligner(nil).Align("你好", recognized),
		ReferenceText:  "你好",
		RecognizedText: recognized,
	}
}

func TestScorerExternalIsAuthoritative(t *testing.T) {
	eval := &stubEvaluator{enabled: true, score: &ExternalScore{Score: 77, Accuracy: 65, Fluency: 80, Completeness: 90}}
	scorer := NewScorer(nil, eval, nil)

	result := scorer.Score(context.Background(), scoreInput("你好"))

	assert.Equal(t, SourceExternal, result.Source)
	assert.Equal(t, "stub", result.Provider)
	assert.Equal(t, 77, result.Score)
	assert.Equal(t, 65, result.Accuracy)
	assert.Equal(t, 80, result.Fluency)
	assert.Equal(t, 90, result.Completeness)
	// low provider sub-scores do not become issues
	assert.NotContains(t, codes(result.Issues), "ACCURACY_LOW")
	assert.NotContains(t, codes(result.Issues), "FLUENCY_LOW")
	// local explanation is attached when recognized text is present
	require.NotEmpty(t, result.PositiveFeedback)
	assert.Equal(t, "EXCELLENT", result.PositiveFeedback[0].Code)
	assert.EqualValues(t, 1, eval.calls.Load())
}

func TestScorerExternalWithoutRecognizedText(t *testing.T) {
	eval := &stubEvaluator{enabled: true, score: &ExternalScore{Score: 150, Accuracy: 90, Fluency: -3, Completeness: 88}}
	result := NewScorer(nil, eval, nil).Score(context.Background(), scoreInput(""))

	assert.Equal(t, 100, result.Score)
	assert.Equal(t, 0, result.Fluency)
	assert.Empty(t, result.Issues)
	assert.NotNil(t, result.Issues)
	assert.Empty(t, result.PositiveFeedback)
	assert.Nil(t, result.Metrics)
}

func TestScorerFallsBackOnProviderError(t *testing.T) {
	eval := &stubEvaluator{enabled: true, err: NewProviderError("stub", ErrCodeTimeout, "request timed out", true, context.DeadlineExceeded)}
	result := NewScorer(nil, eval, nil).Score(context.Background(), scoreInput("你好"))

	assert.Equal(t, SourceLocal, result.Source)
	assert.Equal(t, 93, result.Score)
}

func TestScorerSkipsDisabledProvider(t *testing.T) {
	eval := &stubEvaluator{enabled: false, score: &ExternalScore{Score: 10}}
	result := NewScorer(nil, eval, nil).Score(context.Background(), scoreInput("你好"))

	assert.Equal(t, SourceLocal, result.Source)
	assert.EqualValues(t, 0, eval.calls.Load())
}

func TestScorerSkipsProviderWithoutReference(t *testing.T) {
	eval := &stubEvaluator{enabled: true, score: &ExternalScore{Score: 10}}
	in := scoreInput("你好")
	in.ReferenceText = " "
	result := NewScorer(nil, eval, nil).Score(context.Background(), in)

	assert.Equal(t, SourceLocal, result.Source)
	assert.EqualValues(t, 0, eval.calls.Load())
}

func TestScorerNilInput(t *testing.T) {
	result := NewScorer(nil, nil, nil).Score(context.Background(), nil)
	assert.Equal(t, 60, result.Score)
	assert.True(t, result.Degraded)
}

func iseHandler(t *testing.T, status int, code int, payload string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NotEmpty(t, r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("Date"))

		var body iseRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "app", body.Common.AppID)
		assert.Equal(t, "你好", body.Business.Text)
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte{1, 2, 3, 4}), body.Data.Data)

		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(iseResponse{
			Code:    code,
			Message: "ok",
			SID:     "sid-1",
			Data:    base64.StdEncoding.EncodeToString([]byte(payload)),
		})
	}
}

func testClient(url string) *ISEClient {
	cfg := DefaultEvaluatorConfig()
	cfg.URL = url
	cfg.AppID = "app"
	cfg.APIKey = "key"
	cfg.APISecret = "secret"
	cfg.Timeout = 2 * time.Second
	return NewISEClient(cfg, nil)
}

func TestISEClientEvaluate(t *testing.T) {
	server := httptest.NewServer(iseHandler(t, http.StatusOK, 0,
		`{"read_chapter":{"total_score":"88.6","accuracy_score":91,"fluency_score":"84.2","completeness_score":100}}`))
	defer server.Close()

	score, err := testClient(server.URL+"/v2/ise").Evaluate(context.Background(), []byte{1, 2, 3, 4}, "你好")
	require.NoError(t, err)
	assert.Equal(t, &ExternalScore{Score: 88, Accuracy: 91, Fluency: 84, Completeness: 100}, score)
}

func TestISEClientErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		code     int
		payload  string
		wantCode string
	}{
		{"unauthorized", http.StatusUnauthorized, 0, `{}`, ErrCodeAuthFailed},
		{"throttled", http.StatusTooManyRequests, 0, `{}`, ErrCodeRateLimited},
		{"server error", http.StatusBadGateway, 0, `{}`, ErrCodeUnavailable},
		{"provider code", http.StatusOK, 10163, `{}`, ErrCodeUnavailable},
		{"bad payload", http.StatusOK, 0, `not json`, ErrCodeMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(iseHandler(t, tt.status, tt.code, tt.payload))
			defer server.Close()

			_, err := testClient(server.URL).Evaluate(context.Background(), []byte{1, 2, 3, 4}, "你好")
			require.Error(t, err)
			var perr *ProviderError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.wantCode, perr.Code)
		})
	}
}

func TestISEClientTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := testClient(server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Evaluate(ctx, []byte{1}, "你好")
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ErrCodeTimeout, perr.Code)
}

func TestISEClientNotConfigured(t *testing.T) {
	client := NewISEClient(DefaultEvaluatorConfig(), nil)
	assert.False(t, client.Enabled())

	_, err := client.Evaluate(context.Background(), []byte{1}, "你好")
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ErrCodeNotConfigured, perr.Code)
}

func TestISEClientSignature(t *testing.T) {
	client := testClient("https://ise-api.xfyun.cn/v2/ise")
	client.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	auth, date, err := client.sign(http.MethodPost)
	require.NoError(t, err)
	assert.Equal(t, "Tue, 02 Jan 2024 03:04:05 GMT", date)

	decoded, err := base64.StdEncoding.DecodeString(auth)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(decoded), `api_key="key", algorithm="hmac-sha256"`))
	assert.Contains(t, string(decoded), `headers="host date request-line"`)
}
