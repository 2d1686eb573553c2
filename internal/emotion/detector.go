package emotion

import (
	"context"
	"errors"

	"github.com/RyanBlaney/speech-coach/internal/random"
	"github.com/RyanBlaney/speech-coach/pkg/audio/features"
	"github.com/RyanBlaney/speech-coach/pkg/logging"
)

// DetectorConfig controls when the classifier is consulted
type DetectorConfig struct {
	ShortAudioSec float64 `mapstructure:"short_audio_sec"` // Recordings at or below this length stay rule-only
	UseForShort   bool    `mapstructure:"use_for_short"`
}

// DefaultDetectorConfig returns the standard gate
func DefaultDetectorConfig() *DetectorConfig {
	return &DetectorConfig{
		ShortAudioSec: 1.8,
		UseForShort:   false,
	}
}

// DetectInput carries one attempt into the detector
type DetectInput struct {
	Audio        []byte
	Format       string
	Features     *features.AudioFeatures // nil when the audio could not be decoded
	Score        *int
	AttemptCount int
}

// Detector runs the rule engine and, when allowed, fuses the classifier output
type Detector struct {
	config     *DetectorConfig
	engine     *Engine
	classifier Classifier
	rng        random.Source
	logger     logging.Logger
}

// NewDetector creates a detector; classifier may be nil
func NewDetector(config *DetectorConfig, engine *Engine, classifier Classifier, rng random.Source, logger logging.Logger) *Detector {
	if config == nil {
		config = DefaultDetectorConfig()
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	if engine == nil {
		engine = NewEngine(nil, logger)
	}
	if rng == nil {
		rng = random.New(0)
	}
	return &Detector{
		config:     config,
		engine:     engine,
		classifier: classifier,
		rng:        rng,
		logger:     logger.WithFields(logging.Fields{"component": "emotion_detector"}),
	}
}

// ModelStatus reports the classifier lifecycle
func (d *Detector) ModelStatus() ModelStatus {
	if d.classifier == nil {
		return ModelDisabled
	}
	return d.classifier.Status()
}

// Detect never fails. Classifier errors degrade to the rule result.
func (d *Detector) Detect(ctx context.Context, in *DetectInput) *Result {
	if in == nil {
		in = &DetectInput{}
	}
	feats := in.Features
	if feats == nil {
		feats = features.DefaultFeatures()
	}

	rule := d.engine.Infer(Observation{
		Features:     feats,
		Score:        in.Score,
		AttemptCount: in.AttemptCount,
	})

	result := rule
	if d.shouldTryModel(feats.DurationSec) && len(in.Audio) > 0 {
		if ai := d.classify(ctx, in); ai != nil {
			result = Fuse(ai, rule)
		}
	}

	result.Encouragement = Encouragement(result.State, d.rng)
	return result
}

// shouldTryModel skips the model for short clips unless configured otherwise
func (d *Detector) shouldTryModel(durationSec float64) bool {
	if d.classifier == nil || d.classifier.Status() == ModelDisabled {
		return false
	}
	short := durationSec > 0 && durationSec <= d.config.ShortAudioSec
	return !short || d.config.UseForShort
}

func (d *Detector) classify(ctx context.Context, in *DetectInput) *Result {
	prediction, err := d.classifier.Classify(ctx, in.Audio, in.Format)
	if err != nil {
		fields := logging.Fields{"error": err.Error()}
		var cerr *ClassifierError
		if errors.As(err, &cerr) {
			fields["code"] = cerr.Code
			if cerr.Code == ErrCodeModelLoading {
				d.logger.Debug("Emotion model not ready, using rules", fields)
				return nil
			}
		}
		d.logger.Warn("Emotion classifier failed, using rules", fields)
		return nil
	}

	result := resultFor(StateForLabel(prediction.Label), clamp01(prediction.Confidence))
	result.AIDetected = true
	result.OriginalLabel = prediction.Label
	return result
}

// Fuse combines the classifier and rule results
func Fuse(ai, rule *Result) *Result {
	if ai.Confidence >= 0.7 {
		merged := *ai
		merged.RuleFeatures = rule.RuleFeatures
		merged.Indicators = rule.Indicators
		return &merged
	}

	if rule.Confidence >= 0.6 && ai.Confidence < 0.5 {
		merged := *rule
		merged.AISuggestion = ai.OriginalLabel
		return &merged
	}

	merged := *ai
	merged.RuleFeatures = rule.RuleFeatures
	merged.Indicators = rule.Indicators
	if rule.Type.IsNegative() && rule.Confidence > 0.5 {
		merged.Type = rule.Type
		merged.Label = rule.Label
		merged.Tip = rule.Tip
		merged.State = rule.State
	}
	return &merged
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
