package adaptive

import (
	"time"

	"github.com/RyanBlaney/speech-coach/internal/emotion"
)

// Policy holds the thresholds the state rules compare against
type Policy struct {
	BreakAfter        time.Duration `mapstructure:"break_after"`        // Session age that triggers a break
	MaxAttempts       int           `mapstructure:"max_attempts"`       // Attempts above this trigger a break
	NegativeWindow    int           `mapstructure:"negative_window"`    // Recent emotions inspected
	NegativeThreshold int           `mapstructure:"negative_threshold"` // Negative emotions within the window that trigger a break
	CorrectThreshold  int           `mapstructure:"correct_threshold"`  // Scores at or above count as correct
}

// DefaultPolicy returns the standard thresholds
func DefaultPolicy() *Policy {
	return &Policy{
		BreakAfter:        15 * time.Minute,
		MaxAttempts:       20,
		NegativeWindow:    5,
		NegativeThreshold: 4,
		CorrectThreshold:  70,
	}
}

// Attempt is one observed (score, emotion, attempt count) triple
type Attempt struct {
	Score        int          `json:"score"`
	Emotion      emotion.Type `json:"emotion"`
	AttemptCount int          `json:"attempt_count"` // Attempts on the current item, starting at 1
}

// ruleContext is what a state rule sees: stats already include the attempt
type ruleContext struct {
	stats   *SessionStats
	attempt Attempt
	policy  *Policy
	now     time.Time
}

// StateRule resolves a learning state when it matches
type StateRule struct {
	Name    string
	Resolve func(rc ruleContext) (LearningState, bool)
}

func always(state LearningState) func(ruleContext) (LearningState, bool) {
	return func(ruleContext) (LearningState, bool) { return state, true }
}

func when(pred func(rc ruleContext) bool, state LearningState) func(ruleContext) (LearningState, bool) {
	return func(rc ruleContext) (LearningState, bool) {
		if pred(rc) {
			return state, true
		}
		return "", false
	}
}

// stateRules are evaluated in order; the first match wins
var stateRules = []StateRule{
	{Name: "session_too_long", Resolve: when(func(rc ruleContext) bool {
		return rc.now.Sub(rc.stats.StartTime) > rc.policy.BreakAfter
	}, StateNeedsBreak)},
	{Name: "too_many_attempts", Resolve: when(func(rc ruleContext) bool {
		return rc.stats.TotalAttempts > rc.policy.MaxAttempts
	}, StateNeedsBreak)},
	{Name: "recent_negative_emotions", Resolve: when(func(rc ruleContext) bool {
		return recentNegative(rc.stats.EmotionHistory, rc.policy.NegativeWindow) >= rc.policy.NegativeThreshold
	}, StateNeedsBreak)},
	{Name: "consecutive_incorrect", Resolve: when(func(rc ruleContext) bool {
		return rc.stats.ConsecutiveIncorrect >= 3
	}, StateFrustrated)},
	{Name: "stuck_on_item", Resolve: when(func(rc ruleContext) bool {
		return rc.attempt.AttemptCount >= 3 && rc.attempt.Score < 60
	}, StateFrustrated)},
	{Name: "frustrated_emotion", Resolve: when(func(rc ruleContext) bool {
		return rc.attempt.Emotion == emotion.TypeFrustrated
	}, StateFrustrated)},
	{Name: "confused_emotion", Resolve: func(rc ruleContext) (LearningState, bool) {
		if rc.attempt.Emotion != emotion.TypeConfused {
			return "", false
		}
		if rc.attempt.Score < 60 {
			return StateStruggling, true
		}
		return StateNormal, true
	}},
	{Name: "high_score_positive", Resolve: func(rc ruleContext) (LearningState, bool) {
		e := rc.attempt.Emotion
		if rc.attempt.Score < 90 || (e != emotion.TypeHappy && e != emotion.TypeNeutral) {
			return "", false
		}
		if rc.stats.ConsecutiveCorrect >= 3 {
			return StateExcellent, true
		}
		return StateGood, true
	}},
	{Name: "score_good", Resolve: when(func(rc ruleContext) bool { return rc.attempt.Score >= 80 }, StateGood)},
	{Name: "score_normal", Resolve: when(func(rc ruleContext) bool { return rc.attempt.Score >= 60 }, StateNormal)},
	{Name: "fallback", Resolve: always(StateStruggling)},
}

// recentNegative counts confused or frustrated entries among the last window
// emotions; fewer than window entries never count
func recentNegative(history []emotion.Type, window int) int {
	if window <= 0 || len(history) < window {
		return 0
	}
	count := 0
	for _, e := range history[len(history)-window:] {
		if e.IsNegative() {
			count++
		}
	}
	return count
}

// resolveState runs the ordered rules and reports which one matched
func resolveState(rc ruleContext) (LearningState, string) {
	for _, rule := range stateRules {
		if state, ok := rule.Resolve(rc); ok {
			return state, rule.Name
		}
	}
	return StateNormal, ""
}
