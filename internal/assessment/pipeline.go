package assessment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/RyanBlaney/speech-coach/internal/adaptive"
	"github.com/RyanBlaney/speech-coach/internal/alignment"
	"github.com/RyanBlaney/speech-coach/internal/emotion"
	"github.com/RyanBlaney/speech-coach/internal/feedback"
	"github.com/RyanBlaney/speech-coach/internal/random"
	"github.com/RyanBlaney/speech-coach/internal/scoring"
	"github.com/RyanBlaney/speech-coach/pkg/audio"
	"github.com/RyanBlaney/speech-coach/pkg/audio/features"
	"github.com/RyanBlaney/speech-coach/pkg/logging"
)

// Config groups the settings of every pipeline stage. Nil sections use defaults.
type Config struct {
	Decoder    *audio.DecoderConfig
	Extractor  *features.ExtractorConfig
	Aligner    *alignment.AlignerConfig
	Scorer     *scoring.LocalScorerConfig
	Evaluator  *scoring.EvaluatorConfig // nil or disabled skips the external evaluator
	Classifier *emotion.ClassifierConfig
	Detector   *emotion.DetectorConfig
	Policy     *adaptive.Policy
	Registry   *adaptive.RegistryConfig
	Seed       int64 // Message picker seed; zero seeds from the clock
}

// Request is one recorded attempt
type Request struct {
	Audio          []byte `json:"-"`
	Format         string `json:"format,omitempty"` // Hint: extension or mime type
	ReferenceText  string `json:"reference_text"`
	RecognizedText string `json:"recognized_text"`
	AttemptCount   int    `json:"attempt_count"`
	SessionID      string `json:"session_id,omitempty"`
}

// AdaptiveResult joins the controller decision and the composed UI hints
type AdaptiveResult struct {
	LearningState adaptive.LearningState `json:"learning_state" yaml:"learning_state"`
	MatchedRule   string                 `json:"matched_rule" yaml:"matched_rule"`
	Strategy      adaptive.Strategy      `json:"strategy" yaml:"strategy"`
	SessionStats  adaptive.StatsView     `json:"session_stats" yaml:"session_stats"`
	feedback.Adaptive `yaml:",inline"`
}

// Result is the full assessment of one attempt
type Result struct {
	SessionID        string                  `json:"session_id" yaml:"session_id"`
	Score            int                     `json:"score" yaml:"score"`
	Accuracy         int                     `json:"accuracy" yaml:"accuracy"`
	Fluency          int                     `json:"fluency" yaml:"fluency"`
	Completeness     int                     `json:"completeness" yaml:"completeness"`
	Source           scoring.Source          `json:"source" yaml:"source"`
	Emotion          *emotion.Result         `json:"emotion" yaml:"emotion"`
	Issues           []scoring.Issue         `json:"issues" yaml:"issues"`
	Suggestions      []string                `json:"suggestions" yaml:"suggestions"`
	Adaptive         *AdaptiveResult         `json:"adaptive" yaml:"adaptive"`
	FeedbackText     string                  `json:"feedback_text" yaml:"feedback_text"`
	StrategyAdjusted bool                    `json:"strategy_adjusted" yaml:"strategy_adjusted"`
	RecognizedText   string                  `json:"recognized_text" yaml:"recognized_text"`
	Pronunciation    *scoring.ScoreResult    `json:"pronunciation_details" yaml:"pronunciation_details"`
	Features         *features.AudioFeatures `json:"audio_features,omitempty" yaml:"audio_features,omitempty"`
	TextMatch        *alignment.TextMatch    `json:"text_match,omitempty" yaml:"text_match,omitempty"`
	Warnings         []string                `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	ProcessingTime   time.Duration           `json:"processing_time_ns" yaml:"processing_time"`
}

// Pipeline runs decode, features, alignment, scoring, emotion, adaptation and
// feedback for one attempt
type Pipeline struct {
	decoder   *audio.Decoder
	extractor *features.Extractor
	aligner   *alignment.TextAligner
	scorer    *scoring.Scorer
	detector  *emotion.Detector
	registry  *adaptive.Registry
	composer  *feedback.Composer
	logger    logging.Logger

	evaluator  scoring.Evaluator
	classifier emotion.Classifier
	rng        random.Source
}

// Option overrides a collaborator
type Option func(*Pipeline)

// WithEvaluator sets the external pronunciation evaluator
func WithEvaluator(e scoring.Evaluator) Option {
	return func(p *Pipeline) { p.evaluator = e }
}

// WithClassifier sets the external emotion classifier
func WithClassifier(c emotion.Classifier) Option {
	return func(p *Pipeline) { p.classifier = c }
}

// WithRegistry shares a session registry
func WithRegistry(r *adaptive.Registry) Option {
	return func(p *Pipeline) { p.registry = r }
}

// WithRandom sets the message picker of the emotion and feedback stages
func WithRandom(src random.Source) Option {
	return func(p *Pipeline) { p.rng = src }
}

// NewPipeline wires every stage
func NewPipeline(cfg *Config, logger logging.Logger, opts ...Option) *Pipeline {
	if cfg == nil {
		cfg = &Config{}
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}

	if p.rng == nil {
		p.rng = random.New(cfg.Seed)
	}
	if p.evaluator == nil && cfg.Evaluator != nil && cfg.Evaluator.Enabled {
		p.evaluator = scoring.NewISEClient(cfg.Evaluator, logger)
	}
	if p.classifier == nil && cfg.Classifier != nil && cfg.Classifier.Enabled {
		p.classifier = emotion.NewHTTPClassifier(cfg.Classifier, logger)
	}
	if p.registry == nil {
		p.registry = adaptive.NewRegistry(cfg.Registry, cfg.Policy, logger)
	}

	p.decoder = audio.NewDecoder(cfg.Decoder, logger)
	p.extractor = features.NewExtractor(cfg.Extractor, logger)
	p.aligner = alignment.NewTextAligner(cfg.Aligner)
	p.scorer = scoring.NewScorer(scoring.NewLocalScorer(cfg.Scorer, logger), p.evaluator, logger)
	p.detector = emotion.NewDetector(cfg.Detector, emotion.NewEngine(nil, logger), p.classifier, p.rng, logger)
	p.composer = feedback.NewComposer(p.rng)
	p.logger = logger.WithFields(logging.Fields{"component": "assessment_pipeline"})

	return p
}

// Registry returns the session registry
func (p *Pipeline) Registry() *adaptive.Registry {
	return p.registry
}

// ModelStatus reports the emotion classifier lifecycle
func (p *Pipeline) ModelStatus() emotion.ModelStatus {
	return p.detector.ModelStatus()
}

// Warmup starts loading optional models in the background
func (p *Pipeline) Warmup(ctx context.Context) {
	if p.classifier != nil {
		p.classifier.Warmup(ctx)
	}
}

// Assess never fails: decode errors substitute default features and provider
// errors fall back to the local paths.
func (p *Pipeline) Assess(ctx context.Context, req *Request) (result *Result) {
	start := time.Now()
	if req == nil {
		req = &Request{}
	}
	if req.AttemptCount < 1 {
		req.AttemptCount = 1
	}

	controller := p.registry.GetOrCreate(req.SessionID)
	logger := p.logger.WithFields(logging.Fields{"session_id": controller.ID()})

	defer func() {
		if r := recover(); r != nil {
			logger.Error(fmt.Errorf("panic: %v", r), "Assessment stage panicked, returning fallback result")
			result = p.fallback(controller, req, start)
		}
	}()

	var warnings []string

	feats, err := p.analyze(req)
	if err != nil {
		warnings = append(warnings, err.Error())
		fields := logging.Fields{"error": err.Error(), "bytes": len(req.Audio)}
		var decodeErr *audio.DecodeError
		if errors.As(err, &decodeErr) {
			fields["code"] = decodeErr.Code
		}
		logger.Warn("Audio could not be analyzed, using default features", fields)
	}

	match := p.aligner.Align(req.ReferenceText, req.RecognizedText)

	score := p.scorer.Score(ctx, &scoring.ScoreInput{
		Audio:          req.Audio,
		Features:       feats,
		TextMatch:      match,
		ReferenceText:  req.ReferenceText,
		RecognizedText: req.RecognizedText,
	})

	emotionFeatures := feats
	if emotionFeatures == nil {
		emotionFeatures = features.DefaultFeatures()
	}
	var scoreHint *int
	if !score.Degraded {
		scoreHint = &score.Score
	}
	emo := p.detector.Detect(ctx, &emotion.DetectInput{
		Audio:        req.Audio,
		Format:       req.Format,
		Features:     emotionFeatures,
		Score:        scoreHint,
		AttemptCount: req.AttemptCount,
	})

	decision := controller.Evaluate(adaptive.Attempt{
		Score:        score.Score,
		Emotion:      emo.Type,
		AttemptCount: req.AttemptCount,
	})

	problems := score.Problems()
	ui := p.composer.Compose(decision, problems)
	text := p.composer.Text(score.Score, score.Issues, emo, req.RecognizedText, req.ReferenceText)

	result = &Result{
		SessionID:    controller.ID(),
		Score:        score.Score,
		Accuracy:     score.Accuracy,
		Fluency:      score.Fluency,
		Completeness: score.Completeness,
		Source:       score.Source,
		Emotion:      emo,
		Issues:       score.Issues,
		Suggestions:  scoring.ImprovementSuggestions(score.Issues),
		Adaptive: &AdaptiveResult{
			LearningState: decision.LearningState,
			MatchedRule:   decision.MatchedRule,
			Strategy:      decision.Strategy,
			SessionStats:  decision.SessionStats,
			Adaptive:      *ui,
		},
		FeedbackText:     feedback.Final(ui.StrategyMessage, text),
		StrategyAdjusted: emo.Type.IsNegative(),
		RecognizedText:   req.RecognizedText,
		Pronunciation:    score,
		Features:         feats,
		TextMatch:        match,
		Warnings:         warnings,
		ProcessingTime:   time.Since(start),
	}

	logger.Info("Assessment completed", logging.Fields{
		"score":          result.Score,
		"source":         string(result.Source),
		"emotion":        string(emo.Type),
		"learning_state": string(decision.LearningState),
		"issues":         len(problems),
		"duration_ms":    result.ProcessingTime.Milliseconds(),
	})

	return result
}

// analyze decodes and extracts features; a nil result means the audio is unusable
func (p *Pipeline) analyze(req *Request) (*features.AudioFeatures, error) {
	if len(req.Audio) == 0 {
		return nil, audio.NewDecodeError(audio.FormatUnknown, audio.ErrCodeEmptyAudio, "no audio supplied", nil)
	}
	data, err := p.decoder.Decode(req.Audio, strings.TrimSpace(req.Format))
	if err != nil {
		return nil, err
	}
	return p.extractor.Extract(data)
}

// fallback is returned when a stage panics
func (p *Pipeline) fallback(controller *adaptive.Controller, req *Request, start time.Time) *Result {
	score := scoring.DefaultScoreResult()
	emo := emotion.DefaultResult()
	strategy := adaptive.StrategyFor(adaptive.StateNormal)
	message := controller.Message(adaptive.StateNormal)

	return &Result{
		SessionID:    controller.ID(),
		Score:        score.Score,
		Accuracy:     score.Accuracy,
		Fluency:      score.Fluency,
		Completeness: score.Completeness,
		Source:       score.Source,
		Emotion:      emo,
		Issues:       score.Issues,
		Suggestions:  []string{scoring.DefaultSuggestion},
		Adaptive: &AdaptiveResult{
			LearningState: adaptive.StateNormal,
			Strategy:      strategy,
			Adaptive: feedback.Adaptive{
				StrategyMessage: message,
				Suggestions:     []string{},
				DemoSpeed:       strategy.DemoSpeed,
			},
		},
		FeedbackText:   feedback.Final(message, emo.Tip),
		RecognizedText: req.RecognizedText,
		Pronunciation:  score,
		Warnings:       []string{"assessment degraded to defaults"},
		ProcessingTime: time.Since(start),
	}
}
