package configs

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/RyanBlaney/speech-coach/internal/adaptive"
	"github.com/RyanBlaney/speech-coach/internal/alignment"
	"github.com/RyanBlaney/speech-coach/internal/emotion"
	"github.com/RyanBlaney/speech-coach/internal/scoring"
	"github.com/RyanBlaney/speech-coach/pkg/audio"
	"github.com/RyanBlaney/speech-coach/pkg/audio/features"
)

// Config represents the application configuration
type Config struct {
	// Application settings
	Verbose      bool   `mapstructure:"verbose"`
	LogLevel     string `mapstructure:"log_level"`
	OutputFormat string `mapstructure:"output_format"`

	// Decoding and frame analysis
	Audio AudioConfig `mapstructure:"audio"`

	// Local heuristics and the external evaluator
	Scoring ScoringConfig `mapstructure:"scoring"`

	// Rule engine and the optional classifier
	Emotion EmotionConfig `mapstructure:"emotion"`

	// Learning state policy and session lifetime
	Adaptive AdaptiveConfig `mapstructure:"adaptive"`

	// HTTP API
	Server ServerConfig `mapstructure:"server"`

	Logging LoggingConfig `mapstructure:"logging"`
}

// AudioConfig contains decoder and feature extractor settings
type AudioConfig struct {
	Decoder   audio.DecoderConfig       `mapstructure:",squash"`
	Extractor features.ExtractorConfig `mapstructure:",squash"`
}

// ScoringConfig contains pronunciation scoring settings
type ScoringConfig struct {
	Local     scoring.LocalScorerConfig `mapstructure:",squash"`
	Alignment alignment.AlignerConfig   `mapstructure:"alignment"`
	Evaluator scoring.EvaluatorConfig   `mapstructure:"evaluator"`
}

// EmotionConfig contains emotion inference settings
type EmotionConfig struct {
	Classifier emotion.ClassifierConfig `mapstructure:",squash"`
	Detector   emotion.DetectorConfig   `mapstructure:",squash"`
	Warmup     bool                     `mapstructure:"warmup"` // Start loading the classifier at startup
}

// AdaptiveConfig contains learning state settings
type AdaptiveConfig struct {
	Policy   adaptive.Policy         `mapstructure:",squash"`
	Registry adaptive.RegistryConfig `mapstructure:",squash"`
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	Listen          string        `mapstructure:"listen"`
	RateLimitRPS    float64       `mapstructure:"rate_limit_rps"`   // Per-client sustained requests per second; zero disables
	RateLimitBurst  int           `mapstructure:"rate_limit_burst"` // Per-client burst
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Mode            string        `mapstructure:"mode"` // gin mode: debug, release or test
}

// LoggingConfig contains log output settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

// legacyEnv lists environment names honored next to the SPEECH_COACH_ prefix
var legacyEnv = map[string][]string{
	"emotion.ai_enabled":           {"EMOTION_AI_ENABLED"},
	"emotion.short_audio_sec":      {"EMOTION_AI_SHORT_AUDIO_SEC"},
	"emotion.use_for_short":        {"EMOTION_AI_USE_FOR_SHORT"},
	"emotion.model_path":           {"EMOTION_MODEL_PATH"},
	"scoring.evaluator.app_id":     {"XUNFEI_APPID"},
	"scoring.evaluator.api_key":    {"XUNFEI_API_KEY"},
	"scoring.evaluator.api_secret": {"XUNFEI_API_SECRET"},
}

// EnvPrefix is the prefix of every configuration environment variable
const EnvPrefix = "SPEECH_COACH"

// BindEnvironment enables SPEECH_COACH_* variables and the legacy names
func BindEnvironment(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	for key, names := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_").Replace(key))
		args := append([]string{key, prefixed}, names...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	return nil
}

// LoadConfig loads configuration from the global viper instance
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(viper.GetViper())
}

// LoadConfigFrom fills defaults into v and decodes it
func LoadConfigFrom(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}

	return config, nil
}

// ValidateConfig validates the configuration
func ValidateConfig(config *Config) error {
	if err := config.Audio.Extractor.Validate(); err != nil {
		return fmt.Errorf("audio: %w", err)
	}

	if config.Audio.Decoder.PCMSampleRate <= 0 {
		return fmt.Errorf("audio pcm sample rate must be positive")
	}

	if config.Audio.Decoder.PCMChannels <= 0 {
		return fmt.Errorf("audio pcm channels must be positive")
	}

	local := config.Scoring.Local
	if local.BaseScore < 0 || local.BaseScore > 100 {
		return fmt.Errorf("scoring base score must be between 0 and 100")
	}

	if local.MinSecondsPerChar <= 0 || local.MaxSecondsPerChar < local.MinSecondsPerChar {
		return fmt.Errorf("scoring seconds per character window is invalid")
	}

	evaluator := config.Scoring.Evaluator
	if evaluator.Enabled && evaluator.Timeout <= 0 {
		return fmt.Errorf("scoring evaluator timeout must be positive")
	}

	if config.Emotion.Detector.ShortAudioSec < 0 {
		return fmt.Errorf("emotion short audio threshold cannot be negative")
	}

	if config.Emotion.Classifier.Enabled && config.Emotion.Classifier.URL == "" {
		return fmt.Errorf("emotion classifier url is required when ai is enabled")
	}

	policy := config.Adaptive.Policy
	if policy.NegativeWindow <= 0 {
		return fmt.Errorf("adaptive negative window must be positive")
	}

	if policy.NegativeThreshold <= 0 || policy.NegativeThreshold > policy.NegativeWindow {
		return fmt.Errorf("adaptive negative threshold must be between 1 and the window size")
	}

	if policy.CorrectThreshold < 0 || policy.CorrectThreshold > 100 {
		return fmt.Errorf("adaptive correct threshold must be between 0 and 100")
	}

	if policy.MaxAttempts <= 0 {
		return fmt.Errorf("adaptive max attempts must be positive")
	}

	if config.Server.RateLimitRPS < 0 {
		return fmt.Errorf("server rate limit cannot be negative")
	}

	if config.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server max upload bytes must be positive")
	}

	switch config.Server.Mode {
	case "", "debug", "release", "test":
	default:
		return fmt.Errorf("server mode must be debug, release or test")
	}

	switch config.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging format must be text or json")
	}

	return nil
}
