package emotion

import (
	"math"

	"github.com/RyanBlaney/speech-coach/internal/random"
	"github.com/RyanBlaney/speech-coach/pkg/audio/features"
	"github.com/RyanBlaney/speech-coach/pkg/logging"
)

// Result is the emotion reported for one attempt
type Result struct {
	Type          Type           `json:"type"`
	Label         string         `json:"label"`
	Tip           string         `json:"tip"`
	Confidence    float64        `json:"confidence"`
	State         State          `json:"state"`
	Indicators    Votes          `json:"indicators,omitempty"`
	AIDetected    bool           `json:"ai_detected"`
	RuleBased     bool           `json:"rule_based"`
	Encouragement string         `json:"encouragement,omitempty"`
	OriginalLabel string         `json:"original_label,omitempty"` // Raw classifier label
	AISuggestion  string         `json:"ai_suggestion,omitempty"`  // Classifier label kept when the rule result won
	RuleFeatures  map[string]any `json:"rule_features,omitempty"`
	FiredRules    []string       `json:"fired_rules,omitempty"`
}

func resultFor(state State, confidence float64) *Result {
	p := ProfileFor(state)
	return &Result{
		Type:       p.Type,
		Label:      p.Label,
		Tip:        p.Tip,
		Confidence: confidence,
		State:      p.State,
	}
}

// DefaultResult is the neutral fallback
func DefaultResult() *Result {
	return resultFor(StateNeutral, 0.5)
}

// Engine infers an emotion from audio features with the vote table
type Engine struct {
	rules  []Rule
	logger logging.Logger
}

// NewEngine creates a rule engine; nil rules use DefaultRules
func NewEngine(rules []Rule, logger logging.Logger) *Engine {
	if rules == nil {
		rules = DefaultRules
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Engine{
		rules:  rules,
		logger: logger.WithFields(logging.Fields{"component": "emotion_engine"}),
	}
}

// Infer runs the vote table. Fewer than two votes for the winner is treated as
// no signal and yields neutral at 0.5.
func (e *Engine) Infer(obs Observation) *Result {
	if obs.Features == nil {
		obs.Features = features.DefaultFeatures()
	}

	votes, fired := Tally(e.rules, obs)
	state, strength := Winner(votes)
	confidence := math.Min(1.0, float64(strength)/10.0)
	if strength < 2 {
		state, confidence = StateNeutral, 0.5
	}

	result := resultFor(state, confidence)
	result.Indicators = votes
	result.RuleBased = true
	result.FiredRules = fired
	result.RuleFeatures = map[string]any{
		"duration_sec":  obs.Features.DurationSec,
		"silence_ratio": obs.Features.SilenceRatio,
		"speaking_rate": obs.Features.SpeakingRate,
		"energy_trend":  string(obs.Features.EnergyTrend),
	}

	e.logger.Debug("Rule emotion inferred", logging.Fields{
		"state":      string(state),
		"votes":      strength,
		"confidence": confidence,
		"rules":      len(fired),
	})

	return result
}

// Encouragement picks one line from the pool of an internal state
func Encouragement(state State, src random.Source) string {
	return random.Pick(src, ProfileFor(state).Encouragements)
}

var breakEncouragements = []string{
	"先休息一下也可以。",
	"我们可以先跳过，稍后再回来看。",
	"你已经很努力了，慢慢来。",
}

// AdaptiveEncouragement widens the pool with break suggestions for a learner
// who keeps struggling
func AdaptiveEncouragement(t Type, attemptCount int, src random.Source) string {
	pool := append([]string{}, ProfileFor(StateForType(t)).Encouragements...)
	if attemptCount >= 3 && t.IsNegative() {
		pool = append(pool, breakEncouragements...)
	}
	if len(pool) == 0 {
		return "继续加油。"
	}
	return random.Pick(src, pool)
}
