package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/RyanBlaney/speech-coach/configs"
	"github.com/RyanBlaney/speech-coach/internal/app"
)

var configGenerate string

// configTestCmd represents the config test command
var configTestCmd = &cobra.Command{
	Use:   "config-test",
	Short: "Test and display all configuration values",
	Long: `Test configuration loading and display all values to verify proper parsing.

This command loads the configuration from files, .env files and environment
variables, validates it and displays every value in a structured format.

Examples:
  # Test with the default config search path
  speech-coach config-test

  # Test with a specific config file
  speech-coach --config /path/to/speech-coach.yaml config-test

  # Write a config file holding every default
  speech-coach config-test --generate ./configs/speech-coach.yaml`,
	RunE: runConfigTest,
}

func init() {
	rootCmd.AddCommand(configTestCmd)

	configTestCmd.Flags().StringVar(&configGenerate, "generate", "",
		"write an example config file with every default to this path")
}

func runConfigTest(cmd *cobra.Command, args []string) error {
	if configGenerate != "" {
		if err := app.GenerateExampleConfig(configGenerate); err != nil {
			return err
		}
		fmt.Printf("%sExample configuration written to %s%s\n", ColorGreen, configGenerate, ColorReset)
		return nil
	}

	fmt.Println("SPEECH COACH CONFIGURATION TEST")
	fmt.Println(strings.Repeat("=", 80))

	config, err := configs.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	printSection("APPLICATION SETTINGS")
	printKeyValue("Verbose", fmt.Sprintf("%t", config.Verbose))
	printKeyValue("Log Level", config.LogLevel)
	printKeyValue("Output Format", config.OutputFormat)

	printSection("AUDIO CONFIGURATION")
	printSubsection("Decoder")
	printKeyValue("  PCM Sample Rate", fmt.Sprintf("%d Hz", config.Audio.Decoder.PCMSampleRate))
	printKeyValue("  PCM Channels", fmt.Sprintf("%d", config.Audio.Decoder.PCMChannels))

	extractor := config.Audio.Extractor
	printSubsection("Features")
	printKeyValue("  Frame Width", fmt.Sprintf("%d ms", extractor.FrameMs))
	printKeyValue("  Silence Threshold", fmt.Sprintf("%.3f", extractor.SilenceThreshold))
	printKeyValue("  Min Pause Frames", fmt.Sprintf("%d", extractor.MinPauseFrames))
	printKeyValue("  Trend Threshold", fmt.Sprintf("%.2f", extractor.TrendThreshold))
	printKeyValue("  Segment Count", fmt.Sprintf("%d", extractor.SegmentCount))
	printKeyValue("  Segment Trend Threshold", fmt.Sprintf("%.2f", extractor.SegmentTrendThreshold))
	printKeyValue("  Min Segment", fmt.Sprintf("%d ms", extractor.MinSegmentMs))
	printKeyValue("  Rate Threshold Factor", fmt.Sprintf("%.2f", extractor.RateThresholdFactor))
	printKeyValue("  Rate Window Frames", fmt.Sprintf("%d", extractor.RateWindowFrames))

	local := config.Scoring.Local
	printSection("SCORING CONFIGURATION")
	printSubsection("Local")
	printKeyValue("  Base Score", fmt.Sprintf("%d", local.BaseScore))
	printKeyValue("  Seconds Per Character", fmt.Sprintf("%.2f - %.2f", local.MinSecondsPerChar, local.MaxSecondsPerChar))
	printKeyValue("  Default Expected Duration", fmt.Sprintf("%.2f - %.2f s", local.DefaultExpectedMin, local.DefaultExpectedMax))
	printKeyValue("  Default Text Match", fmt.Sprintf("%.2f", local.DefaultTextMatch))
	printKeyValue("  Default Consistency", fmt.Sprintf("%.2f", local.DefaultConsistency))
	printKeyValue("  Ignore Punctuation", fmt.Sprintf("%t", config.Scoring.Alignment.IgnorePunctuation))

	evaluator := config.Scoring.Evaluator
	printSubsection("External Evaluator")
	printKeyValue("  Enabled", fmt.Sprintf("%t", evaluator.Enabled))
	printKeyValue("  URL", evaluator.URL)
	printKeyValue("  App ID", evaluator.AppID)
	printKeyValue("  API Key", mask(evaluator.APIKey))
	printKeyValue("  API Secret", mask(evaluator.APISecret))
	printKeyValue("  Timeout", evaluator.Timeout.String())
	printKeyValue("  Rate Limit", fmt.Sprintf("%d / min", evaluator.RateLimit))
	printKeyValue("  Category", evaluator.Category)
	printKeyValue("  Language", evaluator.Language)

	printSection("EMOTION CONFIGURATION")
	printKeyValue("AI Enabled", fmt.Sprintf("%t", config.Emotion.Classifier.Enabled))
	printKeyValue("Classifier URL", config.Emotion.Classifier.URL)
	printKeyValue("Model Path", config.Emotion.Classifier.ModelPath)
	printKeyValue("Timeout", config.Emotion.Classifier.Timeout.String())
	printKeyValue("Short Audio", fmt.Sprintf("%.1f s", config.Emotion.Detector.ShortAudioSec))
	printKeyValue("Use For Short", fmt.Sprintf("%t", config.Emotion.Detector.UseForShort))
	printKeyValue("Warmup", fmt.Sprintf("%t", config.Emotion.Warmup))

	policy := config.Adaptive.Policy
	printSection("ADAPTIVE CONFIGURATION")
	printKeyValue("Break After", policy.BreakAfter.String())
	printKeyValue("Max Attempts", fmt.Sprintf("%d", policy.MaxAttempts))
	printKeyValue("Negative Window", fmt.Sprintf("%d", policy.NegativeWindow))
	printKeyValue("Negative Threshold", fmt.Sprintf("%d", policy.NegativeThreshold))
	printKeyValue("Correct Threshold", fmt.Sprintf("%d", policy.CorrectThreshold))
	printKeyValue("Session TTL", config.Adaptive.Registry.TTL.String())
	printKeyValue("Janitor Interval", config.Adaptive.Registry.JanitorInterval.String())
	printKeyValue("Seed", fmt.Sprintf("%d", config.Adaptive.Registry.Seed))

	server := config.Server
	printSection("SERVER CONFIGURATION")
	printKeyValue("Listen", server.Listen)
	printKeyValue("Mode", server.Mode)
	printKeyValue("Rate Limit", fmt.Sprintf("%.2f rps, burst %d", server.RateLimitRPS, server.RateLimitBurst))
	printKeyValue("CORS Origins", fmt.Sprintf("(%d) %v", len(server.CORSOrigins), server.CORSOrigins))
	printKeyValue("Max Upload", fmt.Sprintf("%d bytes", server.MaxUploadBytes))
	printKeyValue("Read Timeout", server.ReadTimeout.String())
	printKeyValue("Write Timeout", server.WriteTimeout.String())
	printKeyValue("Shutdown Timeout", server.ShutdownTimeout.String())

	printSection("LOGGING CONFIGURATION")
	printKeyValue("Level", config.Logging.Level)
	printKeyValue("Format", config.Logging.Format)

	fmt.Println()
	if err := configs.ValidateConfig(config); err != nil {
		fmt.Println(ColorRed + strings.Repeat("-", 80))
		fmt.Printf("CONFIGURATION INVALID: %v\n", err)
		fmt.Println(strings.Repeat("=", 80) + ColorReset)
		return err
	}

	fmt.Println(ColorGreen + strings.Repeat("-", 80))
	fmt.Println("CONFIGURATION TEST COMPLETED SUCCESSFULLY")
	fmt.Printf("Config file: %s\n", getConfigFilePath())
	fmt.Println(strings.Repeat("=", 80) + ColorReset)

	return nil
}

func printSection(title string) {
	fmt.Printf("\n%s\n", title)
	fmt.Println(strings.Repeat("-", len(title)))
}

func printSubsection(title string) {
	fmt.Printf("\n  %s\n", title)
}

func printKeyValue(key, value string) {
	if value == "" {
		fmt.Printf("%-35s\n", key)
	} else {
		fmt.Printf("%-35s %s\n", key+":", value)
	}
}

// mask hides all but the last four characters of a credential
func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}

func getConfigFilePath() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return "(none, defaults and environment only)"
}
