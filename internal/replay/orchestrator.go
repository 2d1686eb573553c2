package replay

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/RyanBlaney/speech-coach/internal/adaptive"
	"github.com/RyanBlaney/speech-coach/internal/assessment"
	"github.com/RyanBlaney/speech-coach/pkg/logging"
)

// AttemptReport condenses one assessed attempt
type AttemptReport struct {
	Index            int      `json:"index" yaml:"index"`
	Audio            string   `json:"audio" yaml:"audio"`
	ReferenceText    string   `json:"reference_text" yaml:"reference_text"`
	AttemptCount     int      `json:"attempt_count" yaml:"attempt_count"`
	Score            int      `json:"score" yaml:"score"`
	Source           string   `json:"source" yaml:"source"`
	Degraded         bool     `json:"degraded" yaml:"degraded"`
	Emotion          string   `json:"emotion" yaml:"emotion"`
	LearningState    string   `json:"learning_state" yaml:"learning_state"`
	MatchedRule      string   `json:"matched_rule" yaml:"matched_rule"`
	StrategyAdjusted bool     `json:"strategy_adjusted" yaml:"strategy_adjusted"`
	IssueCodes       []string `json:"issue_codes" yaml:"issue_codes"`
	FeedbackText     string   `json:"feedback_text" yaml:"feedback_text"`
	ProcessingMs     float64  `json:"processing_ms" yaml:"processing_ms"`
	Error            string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// SessionReport holds the ordered attempts and the final summary of a session
type SessionReport struct {
	SessionID string            `json:"session_id" yaml:"session_id"`
	Attempts  []AttemptReport   `json:"attempts" yaml:"attempts"`
	Summary   *adaptive.Summary `json:"summary" yaml:"summary"`
}

// Report is the outcome of a replay run
type Report struct {
	Description   string           `json:"description,omitempty" yaml:"description,omitempty"`
	Sessions      []*SessionReport `json:"sessions" yaml:"sessions"`
	Metrics       *Metrics         `json:"metrics" yaml:"metrics"`
	StartTime     time.Time        `json:"start_time" yaml:"start_time"`
	EndTime       time.Time        `json:"end_time" yaml:"end_time"`
	TotalDuration time.Duration    `json:"total_duration_ns" yaml:"total_duration"`
	Cancelled     bool             `json:"cancelled" yaml:"cancelled"`
}

// Orchestrator replays a manifest through the assessment pipeline.
// Sessions run concurrently; attempts inside a session run in order.
type Orchestrator struct {
	manifest         *Manifest
	pipeline         *assessment.Pipeline
	metrics          *MetricsCalculator
	correctThreshold int
	logger           logging.Logger
	readFile         func(string) ([]byte, error)
}

// NewOrchestrator creates a replay orchestrator
func NewOrchestrator(manifest *Manifest, pipeline *assessment.Pipeline, correctThreshold int, logger logging.Logger) (*Orchestrator, error) {
	if manifest == nil {
		return nil, fmt.Errorf("manifest is required")
	}
	if pipeline == nil {
		return nil, fmt.Errorf("pipeline is required")
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	if correctThreshold <= 0 {
		correctThreshold = adaptive.DefaultPolicy().CorrectThreshold
	}

	logger = logger.WithFields(logging.Fields{"component": "replay"})
	return &Orchestrator{
		manifest:         manifest,
		pipeline:         pipeline,
		metrics:          NewMetricsCalculator(logger),
		correctThreshold: correctThreshold,
		logger:           logger,
		readFile:         os.ReadFile,
	}, nil
}

// Run replays every session and aggregates the outcome. Cancellation stops
// remaining attempts; finished attempts are still reported.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	startTime := time.Now()

	if o.manifest.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.manifest.Timeout)
		defer cancel()
	}

	o.logger.Info("Starting replay", logging.Fields{
		"sessions":    len(o.manifest.Sessions),
		"attempts":    o.manifest.AttemptTotal(),
		"concurrency": o.manifest.Concurrency,
	})

	reports := make([]*SessionReport, len(o.manifest.Sessions))

	g, gctx := errgroup.WithContext(ctx)
	if o.manifest.Concurrency > 0 {
		g.SetLimit(o.manifest.Concurrency)
	}

	for i, session := range o.manifest.Sessions {
		i, session := i, session
		g.Go(func() error {
			reports[i] = o.replaySession(gctx, session)
			return nil
		})
	}
	_ = g.Wait()

	endTime := time.Now()
	report := &Report{
		Description:   o.manifest.Description,
		Sessions:      reports,
		Metrics:       o.metrics.Calculate(reports, o.correctThreshold),
		StartTime:     startTime,
		EndTime:       endTime,
		TotalDuration: endTime.Sub(startTime),
		Cancelled:     ctx.Err() != nil,
	}

	sort.SliceStable(report.Sessions, func(a, b int) bool {
		return report.Sessions[a].SessionID < report.Sessions[b].SessionID
	})

	o.logger.Info("Replay completed", logging.Fields{
		"total_duration_s": report.TotalDuration.Seconds(),
		"attempts":         report.Metrics.TotalAttempts,
		"mean_score":       report.Metrics.Score.Mean,
		"cancelled":        report.Cancelled,
	})

	if report.Cancelled && report.Metrics.TotalAttempts == 0 {
		return report, fmt.Errorf("replay cancelled before any attempt: %w", ctx.Err())
	}
	return report, nil
}

// replaySession runs attempts in order against one adaptive session
func (o *Orchestrator) replaySession(ctx context.Context, session SessionSpec) *SessionReport {
	report := &SessionReport{
		SessionID: session.ID,
		Attempts:  make([]AttemptReport, 0, len(session.Attempts)),
	}
	logger := o.logger.WithFields(logging.Fields{"session_id": session.ID})

	for i, item := range session.Attempts {
		if ctx.Err() != nil {
			logger.Warn("Replay cancelled, skipping remaining attempts", logging.Fields{
				"remaining": len(session.Attempts) - i,
			})
			break
		}
		report.Attempts = append(report.Attempts, o.replayAttempt(ctx, session.ID, i, item, logger))
	}

	if c, ok := o.pipeline.Registry().Get(session.ID); ok {
		report.Summary = c.Summary()
	}
	return report
}

func (o *Orchestrator) replayAttempt(ctx context.Context, sessionID string, index int, item AttemptSpec, logger logging.Logger) AttemptReport {
	path := o.manifest.AudioPath(item)

	var readErr error
	data, err := o.readFile(path)
	if err != nil {
		readErr = err
		logger.Warn("Failed to read attempt audio", logging.Fields{"path": path, "error": err.Error()})
	}

	result := o.pipeline.Assess(ctx, &assessment.Request{
		Audio:          data,
		Format:         item.Format,
		ReferenceText:  item.ReferenceText,
		RecognizedText: item.RecognizedText,
		AttemptCount:   item.AttemptCount,
		SessionID:      sessionID,
	})

	attempt := AttemptReport{
		Index:            index + 1,
		Audio:            item.Audio,
		ReferenceText:    item.ReferenceText,
		AttemptCount:     item.AttemptCount,
		Score:            result.Score,
		Source:           string(result.Source),
		Emotion:          string(result.Emotion.Type),
		LearningState:    string(result.Adaptive.LearningState),
		MatchedRule:      result.Adaptive.MatchedRule,
		StrategyAdjusted: result.StrategyAdjusted,
		IssueCodes:       make([]string, 0, len(result.Issues)),
		FeedbackText:     result.FeedbackText,
		ProcessingMs:     float64(result.ProcessingTime.Microseconds()) / 1000,
	}
	if result.Pronunciation != nil {
		attempt.Degraded = result.Pronunciation.Degraded
	}
	for _, issue := range result.Issues {
		attempt.IssueCodes = append(attempt.IssueCodes, issue.Code)
	}

	switch {
	case readErr != nil:
		attempt.Error = readErr.Error()
	case len(result.Warnings) > 0:
		attempt.Error = result.Warnings[0]
	}

	return attempt
}
