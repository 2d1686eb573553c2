package configs

import (
	"time"

	"github.com/spf13/viper"

	"github.com/RyanBlaney/speech-coach/internal/adaptive"
	"github.com/RyanBlaney/speech-coach/internal/alignment"
	"github.com/RyanBlaney/speech-coach/internal/emotion"
	"github.com/RyanBlaney/speech-coach/internal/scoring"
	"github.com/RyanBlaney/speech-coach/pkg/audio"
	"github.com/RyanBlaney/speech-coach/pkg/audio/features"
)

type defaultValue struct {
	key   string
	value any
}

// setDefaults sets default configuration values for all components
func setDefaults(v *viper.Viper) {
	def := GetDefaultConfig()

	// Every key needs a default; Unmarshal only sees env values for known keys
	apply := func(values []defaultValue) {
		for _, d := range values {
			v.SetDefault(d.key, d.value)
		}
	}

	// Application defaults
	apply([]defaultValue{
		{"verbose", def.Verbose},
		{"log_level", def.LogLevel},
		{"output_format", def.OutputFormat},
	})

	// Audio defaults
	apply([]defaultValue{
		{"audio.pcm_sample_rate", def.Audio.Decoder.PCMSampleRate},
		{"audio.pcm_channels", def.Audio.Decoder.PCMChannels},
		{"audio.frame_ms", def.Audio.Extractor.FrameMs},
		{"audio.silence_threshold", def.Audio.Extractor.SilenceThreshold},
		{"audio.min_pause_frames", def.Audio.Extractor.MinPauseFrames},
		{"audio.trend_threshold", def.Audio.Extractor.TrendThreshold},
		{"audio.segment_count", def.Audio.Extractor.SegmentCount},
		{"audio.segment_trend_threshold", def.Audio.Extractor.SegmentTrendThreshold},
		{"audio.min_segment_ms", def.Audio.Extractor.MinSegmentMs},
		{"audio.rate_threshold_factor", def.Audio.Extractor.RateThresholdFactor},
		{"audio.rate_window_frames", def.Audio.Extractor.RateWindowFrames},
	})

	// Scoring defaults
	apply([]defaultValue{
		{"scoring.base_score", def.Scoring.Local.BaseScore},
		{"scoring.min_seconds_per_char", def.Scoring.Local.MinSecondsPerChar},
		{"scoring.max_seconds_per_char", def.Scoring.Local.MaxSecondsPerChar},
		{"scoring.default_expected_min", def.Scoring.Local.DefaultExpectedMin},
		{"scoring.default_expected_max", def.Scoring.Local.DefaultExpectedMax},
		{"scoring.default_text_match", def.Scoring.Local.DefaultTextMatch},
		{"scoring.default_consistency", def.Scoring.Local.DefaultConsistency},
		{"scoring.alignment.ignore_punctuation", def.Scoring.Alignment.IgnorePunctuation},
		{"scoring.evaluator.enabled", def.Scoring.Evaluator.Enabled},
		{"scoring.evaluator.url", def.Scoring.Evaluator.URL},
		{"scoring.evaluator.app_id", def.Scoring.Evaluator.AppID},
		{"scoring.evaluator.api_key", def.Scoring.Evaluator.APIKey},
		{"scoring.evaluator.api_secret", def.Scoring.Evaluator.APISecret},
		{"scoring.evaluator.timeout", def.Scoring.Evaluator.Timeout},
		{"scoring.evaluator.rate_limit", def.Scoring.Evaluator.RateLimit},
		{"scoring.evaluator.category", def.Scoring.Evaluator.Category},
		{"scoring.evaluator.language", def.Scoring.Evaluator.Language},
	})

	// Emotion defaults
	apply([]defaultValue{
		{"emotion.ai_enabled", def.Emotion.Classifier.Enabled},
		{"emotion.classifier_url", def.Emotion.Classifier.URL},
		{"emotion.model_path", def.Emotion.Classifier.ModelPath},
		{"emotion.timeout", def.Emotion.Classifier.Timeout},
		{"emotion.short_audio_sec", def.Emotion.Detector.ShortAudioSec},
		{"emotion.use_for_short", def.Emotion.Detector.UseForShort},
		{"emotion.warmup", def.Emotion.Warmup},
	})

	// Adaptive defaults
	apply([]defaultValue{
		{"adaptive.break_after", def.Adaptive.Policy.BreakAfter},
		{"adaptive.max_attempts", def.Adaptive.Policy.MaxAttempts},
		{"adaptive.negative_window", def.Adaptive.Policy.NegativeWindow},
		{"adaptive.negative_threshold", def.Adaptive.Policy.NegativeThreshold},
		{"adaptive.correct_threshold", def.Adaptive.Policy.CorrectThreshold},
		{"adaptive.session_ttl", def.Adaptive.Registry.TTL},
		{"adaptive.janitor_interval", def.Adaptive.Registry.JanitorInterval},
		{"adaptive.seed", def.Adaptive.Registry.Seed},
	})

	// Server defaults
	apply([]defaultValue{
		{"server.listen", def.Server.Listen},
		{"server.rate_limit_rps", def.Server.RateLimitRPS},
		{"server.rate_limit_burst", def.Server.RateLimitBurst},
		{"server.cors_origins", def.Server.CORSOrigins},
		{"server.max_upload_bytes", def.Server.MaxUploadBytes},
		{"server.read_timeout", def.Server.ReadTimeout},
		{"server.write_timeout", def.Server.WriteTimeout},
		{"server.shutdown_timeout", def.Server.ShutdownTimeout},
		{"server.mode", def.Server.Mode},
	})

	// Logging defaults
	apply([]defaultValue{
		{"logging.level", def.Logging.Level},
		{"logging.format", def.Logging.Format},
	})
}

// GetDefaultConfig returns a Config struct with all default values set
func GetDefaultConfig() *Config {
	return &Config{
		Verbose:      false,
		LogLevel:     "info",
		OutputFormat: "table",

		Audio: AudioConfig{
			Decoder:   *audio.DefaultDecoderConfig(),
			Extractor: *features.DefaultExtractorConfig(),
		},

		Scoring: ScoringConfig{
			Local:     *scoring.DefaultLocalScorerConfig(),
			Alignment: *alignment.DefaultAlignerConfig(),
			Evaluator: *scoring.DefaultEvaluatorConfig(),
		},

		Emotion: EmotionConfig{
			Classifier: *emotion.DefaultClassifierConfig(),
			Detector:   *emotion.DefaultDetectorConfig(),
			Warmup:     true,
		},

		Adaptive: AdaptiveConfig{
			Policy:   *adaptive.DefaultPolicy(),
			Registry: *adaptive.DefaultRegistryConfig(),
		},

		Server: GetDefaultServerConfig(),

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// GetDefaultServerConfig returns default HTTP API settings
func GetDefaultServerConfig() ServerConfig {
	return ServerConfig{
		Listen:          ":8080",
		RateLimitRPS:    5,
		RateLimitBurst:  10,
		CORSOrigins:     []string{"*"},
		MaxUploadBytes:  10 << 20,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		Mode:            "release",
	}
}
