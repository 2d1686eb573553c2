package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/RyanBlaney/speech-coach/configs"
	"github.com/RyanBlaney/speech-coach/internal/assessment"
	"github.com/RyanBlaney/speech-coach/internal/replay"
	"github.com/RyanBlaney/speech-coach/pkg/logging"
	"github.com/RyanBlaney/speech-coach/pkg/output"
)

// Context holds the application context and configuration
type Context struct {
	// CLI arguments
	OutputFile   string
	OutputFormat string
	Verbose      bool
	Quiet        bool

	// Runtime context
	Logger logging.Logger
	Config *configs.Config
}

// App handles the application lifecycle shared by every subcommand
type App struct {
	ctx      *Context
	config   *configs.Config
	pipeline *assessment.Pipeline
	logger   logging.Logger
}

// NewApp loads configuration, sets up logging and wires the pipeline
func NewApp(ctx *Context, opts ...assessment.Option) (*App, error) {
	config := ctx.Config
	if config == nil {
		var err error
		config, err = configs.LoadConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
	}

	if err := configs.ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	ctx.Config = config

	logger := setupLogging(ctx, config)
	ctx.Logger = logger

	pipeline := assessment.NewPipeline(PipelineConfig(config), logger, opts...)

	logger.Debug("Application initialized", logging.Fields{
		"output_format":      ctx.OutputFormat,
		"evaluator_enabled":  config.Scoring.Evaluator.Enabled,
		"classifier_enabled": config.Emotion.Classifier.Enabled,
		"model_status":       string(pipeline.ModelStatus()),
	})

	return &App{
		ctx:      ctx,
		config:   config,
		pipeline: pipeline,
		logger:   logger,
	}, nil
}

// Pipeline returns the wired assessment pipeline
func (app *App) Pipeline() *assessment.Pipeline {
	return app.pipeline
}

// Config returns the effective configuration
func (app *App) Config() *configs.Config {
	return app.config
}

// Logger returns the application logger
func (app *App) Logger() logging.Logger {
	return app.logger
}

// AssessFile reads a recording from disk and assesses it
func (app *App) AssessFile(ctx context.Context, path string, req assessment.Request) (*assessment.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio file: %w", err)
	}

	if req.Format == "" {
		req.Format = strings.TrimPrefix(filepath.Ext(path), ".")
	}
	req.Audio = data

	app.logger.Debug("Assessing file", logging.Fields{
		"path":       path,
		"bytes":      len(data),
		"format":     req.Format,
		"session_id": req.SessionID,
	})

	return app.pipeline.Assess(ctx, &req), nil
}

// Replay runs a manifest through the pipeline
func (app *App) Replay(ctx context.Context, manifestPath string) (*replay.Report, error) {
	manifest, err := replay.LoadManifest(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}

	orchestrator, err := replay.NewOrchestrator(manifest, app.pipeline, app.config.Adaptive.Policy.CorrectThreshold, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create replay orchestrator: %w", err)
	}

	report, err := orchestrator.Run(ctx)
	if err != nil {
		return report, fmt.Errorf("replay failed: %w", err)
	}
	return report, nil
}

// OutputResults formats data and writes it to the output file or stdout
func (app *App) OutputResults(data any) error {
	formatter := output.NewFormatter(app.ctx.OutputFormat)

	formattedData, err := output.Render(formatter, data, true)
	if err != nil {
		return err
	}

	if app.ctx.OutputFile != "" {
		if err := output.WriteFile(app.ctx.OutputFile, formattedData); err != nil {
			return err
		}
		app.logger.Debug("Results written to file", logging.Fields{
			"output_file": app.ctx.OutputFile,
			"size_bytes":  len(formattedData),
		})
		return nil
	}

	_, err = os.Stdout.Write(formattedData)
	return err
}

// Timestamped wraps results with the time they were produced
func Timestamped(key string, data any) map[string]any {
	return map[string]any{
		key:         data,
		"timestamp": time.Now().UTC(),
	}
}

// setupLogging configures the process-wide logger from flags and configuration
func setupLogging(ctx *Context, config *configs.Config) logging.Logger {
	levelName := config.LogLevel
	if levelName == "" {
		levelName = config.Logging.Level
	}

	level, err := logging.ParseLevel(levelName)
	switch {
	case ctx.Verbose || config.Verbose:
		level = logging.DebugLevel
	case ctx.Quiet:
		level = logging.ErrorLevel
	}

	logging.SetLevel(level)
	logging.SetFormat(config.Logging.Format)

	logger := logging.NewDefaultLogger()
	if err != nil {
		logger.Warn("Unknown log level, using info", logging.Fields{"log_level": levelName})
	}
	return logger
}
