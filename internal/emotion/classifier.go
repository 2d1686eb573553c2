package emotion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/RyanBlaney/speech-coach/pkg/logging"
)

// ClassifierError is a recoverable failure of the audio emotion model
type ClassifierError struct {
	Provider  string `json:"provider"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	Cause     error  `json:"-"`
}

func (e *ClassifierError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Provider, e.Message)
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *ClassifierError) Unwrap() error {
	return e.Cause
}

// Classifier error codes
const (
	ErrCodeTimeout       = "TIMEOUT"
	ErrCodeMalformed     = "MALFORMED_RESPONSE"
	ErrCodeUnavailable   = "UNAVAILABLE"
	ErrCodeNotConfigured = "NOT_CONFIGURED"
	ErrCodeModelLoading  = "MODEL_LOADING"
)

// NewClassifierError creates a new classifier error
func NewClassifierError(code, message string, retryable bool, cause error) *ClassifierError {
	return &ClassifierError{
		Provider:  "emotion_model",
		Code:      code,
		Message:   message,
		Retryable: retryable,
		Cause:     cause,
	}
}

// ModelStatus is the lifecycle of the lazily loaded model
type ModelStatus string

const (
	ModelDisabled ModelStatus = "disabled"
	ModelIdle     ModelStatus = "idle"
	ModelLoading  ModelStatus = "loading"
	ModelReady    ModelStatus = "ready"
	ModelFailed   ModelStatus = "failed"
)

// Prediction is the top label reported by the model
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"score"`
}

// Classifier is an optional audio emotion model
type Classifier interface {
	Classify(ctx context.Context, audio []byte, format string) (*Prediction, error)
	Status() ModelStatus
	Warmup(ctx context.Context)
}

// ClassifierConfig configures the model server client
type ClassifierConfig struct {
	Enabled   bool          `mapstructure:"ai_enabled"`
	URL       string        `mapstructure:"classifier_url"`
	ModelPath string        `mapstructure:"model_path"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// DefaultClassifierConfig returns a disabled classifier configuration
func DefaultClassifierConfig() *ClassifierConfig {
	return &ClassifierConfig{
		Enabled:   false,
		URL:       "http://127.0.0.1:8090",
		ModelPath: "audeering/wav2vec2-large-robust-12-ft-emotion-msp-dim",
		Timeout:   60 * time.Second,
	}
}

// HTTPClassifier talks to a model server exposing /health and /classify.
// The model is loaded on first use; concurrent callers never trigger a second load.
type HTTPClassifier struct {
	config     *ClassifierConfig
	httpClient *http.Client
	logger     logging.Logger

	mu     sync.Mutex
	status ModelStatus
}

// NewHTTPClassifier creates a new model server client
func NewHTTPClassifier(config *ClassifierConfig, logger logging.Logger) *HTTPClassifier {
	if config == nil {
		config = DefaultClassifierConfig()
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	status := ModelIdle
	if !config.Enabled || config.URL == "" {
		status = ModelDisabled
	}

	return &HTTPClassifier{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger.WithFields(logging.Fields{"component": "emotion_classifier"}),
		status:     status,
	}
}

// Status reports the current model state
func (c *HTTPClassifier) Status() ModelStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Warmup starts loading the model in the background
func (c *HTTPClassifier) Warmup(ctx context.Context) {
	if c.Status() == ModelDisabled {
		return
	}
	c.logger.Info("Emotion model preload started")
	go func() {
		_ = c.ensureLoaded(ctx)
	}()
}

// ensureLoaded claims the loading slot and checks the model server health. A load
// already in flight is reported as MODEL_LOADING rather than waited on.
func (c *HTTPClassifier) ensureLoaded(ctx context.Context) error {
	c.mu.Lock()
	switch c.status {
	case ModelDisabled:
		c.mu.Unlock()
		return NewClassifierError(ErrCodeNotConfigured, "emotion model is disabled", false, nil)
	case ModelReady:
		c.mu.Unlock()
		return nil
	case ModelLoading:
		c.mu.Unlock()
		return NewClassifierError(ErrCodeModelLoading, "emotion model is still loading", true, nil)
	}
	c.status = ModelLoading
	c.mu.Unlock()

	start := time.Now()
	err := c.checkHealth(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.status = ModelFailed
		c.logger.Error(err, "Emotion model failed to load", logging.Fields{"model": c.config.ModelPath})
		return err
	}
	c.status = ModelReady
	c.logger.Info("Emotion model loaded", logging.Fields{
		"model":       c.config.ModelPath,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return nil
}

func (c *HTTPClassifier) checkHealth(ctx context.Context) error {
	endpoint := strings.TrimRight(c.config.URL, "/") + "/health"
	if c.config.ModelPath != "" {
		endpoint += "?model=" + url.QueryEscape(c.config.ModelPath)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return NewClassifierError(ErrCodeUnavailable, "failed to build health request", false, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return NewClassifierError(ErrCodeUnavailable,
			fmt.Sprintf("model server not ready (status %d)", resp.StatusCode), true, nil)
	}
	return nil
}

// Classify returns the highest scoring label
func (c *HTTPClassifier) Classify(ctx context.Context, audio []byte, format string) (*Prediction, error) {
	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	endpoint := strings.TrimRight(c.config.URL, "/") + "/classify"
	if format != "" {
		endpoint += "?format=" + url.QueryEscape(format)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(audio))
	if err != nil {
		return nil, NewClassifierError(ErrCodeUnavailable, "failed to build classify request", false, err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, NewClassifierError(ErrCodeUnavailable,
			fmt.Sprintf("unexpected status %d", resp.StatusCode), resp.StatusCode >= 500, nil)
	}

	var predictions []Prediction
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&predictions); err != nil {
		return nil, NewClassifierError(ErrCodeMalformed, "response is not valid json", false, err)
	}
	if len(predictions) == 0 {
		return nil, NewClassifierError(ErrCodeMalformed, "model returned no labels", false, nil)
	}

	sort.SliceStable(predictions, func(i, j int) bool {
		return predictions[i].Confidence > predictions[j].Confidence
	})
	top := predictions[0]
	top.Label = strings.ToLower(strings.TrimSpace(top.Label))
	return &top, nil
}

func classifyTransportError(err error) *ClassifierError {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewClassifierError(ErrCodeTimeout, "request timed out", true, err)
	}
	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) && timeout.Timeout() {
		return NewClassifierError(ErrCodeTimeout, "request timed out", true, err)
	}
	return NewClassifierError(ErrCodeUnavailable, "request failed", true, err)
}
