package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/RyanBlaney/speech-coach/configs"
	"github.com/RyanBlaney/speech-coach/internal/assessment"
)

// PipelineConfig maps the configuration sections onto the pipeline stages
func PipelineConfig(cfg *configs.Config) *assessment.Config {
	return &assessment.Config{
		Decoder:    &cfg.Audio.Decoder,
		Extractor:  &cfg.Audio.Extractor,
		Aligner:    &cfg.Scoring.Alignment,
		Scorer:     &cfg.Scoring.Local,
		Evaluator:  &cfg.Scoring.Evaluator,
		Classifier: &cfg.Emotion.Classifier,
		Detector:   &cfg.Emotion.Detector,
		Policy:     &cfg.Adaptive.Policy,
		Registry:   &cfg.Adaptive.Registry,
		Seed:       cfg.Adaptive.Registry.Seed,
	}
}

// GenerateExampleConfig writes every setting with its default value
func GenerateExampleConfig(outputFile string) error {
	v := viper.New()
	if _, err := configs.LoadConfigFrom(v); err != nil {
		return fmt.Errorf("failed to build example config: %w", err)
	}

	// Ensure directory exists
	dir := filepath.Dir(outputFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	v.SetConfigType("yaml")
	if err := v.WriteConfigAs(outputFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ValidateConfigFile loads a configuration file over the defaults and validates it
func ValidateConfigFile(configFile string) (*configs.Config, error) {
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file does not exist: %s", configFile)
	}

	v := viper.New()
	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	config, err := configs.LoadConfigFrom(v)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := configs.ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
