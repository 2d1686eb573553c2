package scoring

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/RyanBlaney/speech-coach/pkg/logging"
)

// ExternalScore holds the four numbers reported by an external evaluator
type ExternalScore struct {
	Score        int `json:"score"`
	Accuracy     int `json:"accuracy"`
	Fluency      int `json:"fluency"`
	Completeness int `json:"completeness"`
}

// Evaluator is an external pronunciation evaluation provider
type Evaluator interface {
	Name() string
	Enabled() bool
	Evaluate(ctx context.Context, audio []byte, referenceText string) (*ExternalScore, error)
}

// EvaluatorConfig configures the ISE-style HTTP evaluator
type EvaluatorConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	URL       string        `mapstructure:"url"`
	AppID     string        `mapstructure:"app_id"`
	APIKey    string        `mapstructure:"api_key"`
	APISecret string        `mapstructure:"api_secret"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit int           `mapstructure:"rate_limit"` // Requests per minute
	Category  string        `mapstructure:"category"`
	Language  string        `mapstructure:"language"`
}

// DefaultEvaluatorConfig returns the provider defaults; credentials must be supplied
func DefaultEvaluatorConfig() *EvaluatorConfig {
	return &EvaluatorConfig{
		Enabled:   true,
		URL:       "https://ise-api.xfyun.cn/v2/ise",
		Timeout:   10 * time.Second,
		RateLimit: 60,
		Category:  "read_sentence",
		Language:  "chinese_mandarin",
	}
}

// ISEClient calls an ISE-style speech evaluation endpoint
type ISEClient struct {
	config      *EvaluatorConfig
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      logging.Logger
	now         func() time.Time
}

// NewISEClient creates a new evaluator client
func NewISEClient(config *EvaluatorConfig, logger logging.Logger) *ISEClient {
	if config == nil {
		config = DefaultEvaluatorConfig()
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.RateLimit <= 0 {
		config.RateLimit = 60
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &ISEClient{
		config:      config,
		httpClient:  &http.Client{Timeout: config.Timeout},
		rateLimiter: rate.NewLimiter(rate.Limit(float64(config.RateLimit)/60.0), config.RateLimit),
		logger:      logger.WithFields(logging.Fields{"component": "ise_client"}),
		now:         time.Now,
	}
}

// Name returns the provider name
func (c *ISEClient) Name() string {
	return "ise"
}

// Enabled reports whether the client is switched on and has credentials
func (c *ISEClient) Enabled() bool {
	return c.config.Enabled && c.config.URL != "" &&
		c.config.AppID != "" && c.config.APIKey != "" && c.config.APISecret != ""
}

type iseBusiness struct {
	Category string `json:"category"`
	Rstcd    string `json:"rstcd"`
	Group    string `json:"group"`
	Sub      string `json:"sub"`
	Ent      string `json:"ent"`
	Cmd      string `json:"cmd"`
	Auf      string `json:"auf"`
	Aue      string `json:"aue"`
	Text     string `json:"text"`
	TTPSkip  bool   `json:"ttp_skip"`
	Aus      int    `json:"aus"`
}

type iseRequest struct {
	Common struct {
		AppID string `json:"app_id"`
	} `json:"common"`
	Business iseBusiness `json:"business"`
	Data     struct {
		Status int    `json:"status"`
		Data   string `json:"data"`
	} `json:"data"`
}

type iseResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	SID     string `json:"sid"`
	Data    string `json:"data"`
}

// flexScore accepts scores encoded either as JSON numbers or strings
type flexScore float64

func (f *flexScore) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid score %q: %w", s, err)
	}
	*f = flexScore(v)
	return nil
}

type iseResult struct {
	ReadChapter struct {
		TotalScore        flexScore `json:"total_score"`
		AccuracyScore     flexScore `json:"accuracy_score"`
		FluencyScore      flexScore `json:"fluency_score"`
		CompletenessScore flexScore `json:"completeness_score"`
	} `json:"read_chapter"`
}

// Evaluate sends the recording and reference text to the provider
func (c *ISEClient) Evaluate(ctx context.Context, audio []byte, referenceText string) (*ExternalScore, error) {
	if !c.Enabled() {
		return nil, NewProviderError(c.Name(), ErrCodeNotConfigured, "evaluator credentials are not configured", false, nil)
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, NewProviderError(c.Name(), ErrCodeRateLimited, "request rate exceeded", true, err)
	}

	var body iseRequest
	body.Common.AppID = c.config.AppID
	body.Business = iseBusiness{
		Category: c.config.Category,
		Rstcd:    "utf8",
		Group:    c.config.Language,
		Sub:      "ise",
		Ent:      "cn_vip",
		Cmd:      "ssb",
		Auf:      "audio/L16;rate=16000",
		Aue:      "raw",
		Text:     referenceText,
		TTPSkip:  true,
		Aus:      1,
	}
	body.Data.Status = 2
	body.Data.Data = base64.StdEncoding.EncodeToString(audio)

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, NewProviderError(c.Name(), ErrCodeMalformed, "failed to encode request", false, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, NewProviderError(c.Name(), ErrCodeUnavailable, "failed to build request", false, err)
	}
	authorization, date, err := c.sign(http.MethodPost)
	if err != nil {
		return nil, NewProviderError(c.Name(), ErrCodeAuthFailed, "failed to sign request", false, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", authorization)
	req.Header.Set("Date", date)

	start := c.now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(c.Name(), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, classifyTransportError(c.Name(), err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, NewProviderError(c.Name(), ErrCodeAuthFailed,
			fmt.Sprintf("provider rejected credentials (status %d)", resp.StatusCode), false, nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, NewProviderError(c.Name(), ErrCodeRateLimited, "provider throttled the request", true, nil)
	case resp.StatusCode != http.StatusOK:
		return nil, NewProviderError(c.Name(), ErrCodeUnavailable,
			fmt.Sprintf("unexpected status %d", resp.StatusCode), resp.StatusCode >= 500, nil)
	}

	var envelope iseResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, NewProviderError(c.Name(), ErrCodeMalformed, "response is not valid json", false, err)
	}
	if envelope.Code != 0 {
		return nil, NewProviderError(c.Name(), ErrCodeUnavailable,
			fmt.Sprintf("provider error %d: %s", envelope.Code, envelope.Message), false, nil)
	}
	if envelope.Data == "" {
		return nil, NewProviderError(c.Name(), ErrCodeMalformed, "response carries no data", false, nil)
	}

	decoded, err := base64.StdEncoding.DecodeString(envelope.Data)
	if err != nil {
		return nil, NewProviderError(c.Name(), ErrCodeMalformed, "response data is not base64", false, err)
	}
	var result iseResult
	if err := json.Unmarshal(decoded, &result); err != nil {
		return nil, NewProviderError(c.Name(), ErrCodeMalformed, "response data is not valid json", false, err)
	}

	chapter := result.ReadChapter
	score := &ExternalScore{
		Score:        int(chapter.TotalScore),
		Accuracy:     int(chapter.AccuracyScore),
		Fluency:      int(chapter.FluencyScore),
		Completeness: int(chapter.CompletenessScore),
	}

	c.logger.Debug("External evaluation completed", logging.Fields{
		"sid":         envelope.SID,
		"score":       score.Score,
		"duration_ms": c.now().Sub(start).Milliseconds(),
	})

	return score, nil
}

// sign builds the HMAC-SHA256 authorization header over host, date and request line
func (c *ISEClient) sign(method string) (string, string, error) {
	u, err := url.Parse(c.config.URL)
	if err != nil {
		return "", "", fmt.Errorf("invalid evaluator url: %w", err)
	}

	date := c.now().UTC().Format(http.TimeFormat)
	origin := fmt.Sprintf("host: %s\ndate: %s\n%s %s HTTP/1.1", u.Host, date, method, u.EscapedPath())

	mac := hmac.New(sha256.New, []byte(c.config.APISecret))
	mac.Write([]byte(origin))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	authOrigin := fmt.Sprintf(`api_key="%s", algorithm="hmac-sha256", headers="host date request-line", signature="%s"`,
		c.config.APIKey, signature)

	return base64.StdEncoding.EncodeToString([]byte(authOrigin)), date, nil
}
