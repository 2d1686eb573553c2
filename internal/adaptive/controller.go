package adaptive

import (
	"sync"
	"time"

	"github.com/RyanBlaney/speech-coach/internal/emotion"
	"github.com/RyanBlaney/speech-coach/internal/random"
	"github.com/RyanBlaney/speech-coach/pkg/logging"
)

// SessionStats accumulates one learner's session. ConsecutiveCorrect and
// ConsecutiveIncorrect are never both nonzero.
type SessionStats struct {
	StartTime            time.Time       `json:"start_time" yaml:"start_time"`
	LastActivity         time.Time       `json:"last_activity" yaml:"last_activity"`
	TotalAttempts        int             `json:"total_attempts" yaml:"total_attempts"`
	CorrectCount         int             `json:"correct_count" yaml:"correct_count"`
	IncorrectCount       int             `json:"incorrect_count" yaml:"incorrect_count"`
	ConsecutiveCorrect   int             `json:"consecutive_correct" yaml:"consecutive_correct"`
	ConsecutiveIncorrect int             `json:"consecutive_incorrect" yaml:"consecutive_incorrect"`
	EmotionHistory       []emotion.Type  `json:"emotion_history" yaml:"emotion_history"`
	ScoreHistory         []int           `json:"score_history" yaml:"score_history"`
	DifficultyLevel      DifficultyLevel `json:"difficulty_level" yaml:"difficulty_level"`
}

func newSessionStats(now time.Time) *SessionStats {
	return &SessionStats{
		StartTime:       now,
		LastActivity:    now,
		EmotionHistory:  []emotion.Type{},
		ScoreHistory:    []int{},
		DifficultyLevel: DifficultyNormal,
	}
}

func (s *SessionStats) record(a Attempt, correctThreshold int, now time.Time) {
	s.TotalAttempts++
	s.LastActivity = now
	s.ScoreHistory = append(s.ScoreHistory, a.Score)
	s.EmotionHistory = append(s.EmotionHistory, a.Emotion)

	if a.Score >= correctThreshold {
		s.CorrectCount++
		s.ConsecutiveCorrect++
		s.ConsecutiveIncorrect = 0
	} else {
		s.IncorrectCount++
		s.ConsecutiveIncorrect++
		s.ConsecutiveCorrect = 0
	}
}

func (s *SessionStats) clone() *SessionStats {
	c := *s
	c.EmotionHistory = append([]emotion.Type{}, s.EmotionHistory...)
	c.ScoreHistory = append([]int{}, s.ScoreHistory...)
	return &c
}

// StatsView is the compact counter set reported with every decision
type StatsView struct {
	TotalAttempts        int             `json:"total_attempts" yaml:"total_attempts"`
	CorrectCount         int             `json:"correct_count" yaml:"correct_count"`
	IncorrectCount       int             `json:"incorrect_count" yaml:"incorrect_count"`
	ConsecutiveCorrect   int             `json:"consecutive_correct" yaml:"consecutive_correct"`
	ConsecutiveIncorrect int             `json:"consecutive_incorrect" yaml:"consecutive_incorrect"`
	DifficultyLevel      DifficultyLevel `json:"difficulty_level" yaml:"difficulty_level"`
}

// Decision is the controller output for one attempt
type Decision struct {
	SessionID     string        `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	LearningState LearningState `json:"learning_state" yaml:"learning_state"`
	MatchedRule   string        `json:"matched_rule" yaml:"matched_rule"`
	Strategy      Strategy      `json:"strategy" yaml:"strategy"`
	Message       string        `json:"message" yaml:"message"` // Drawn from the strategy pool
	SessionStats  StatsView     `json:"session_stats" yaml:"session_stats"`
}

// Controller is the per-session adaptive state machine. It is safe for
// concurrent use, but each learner session needs its own instance.
type Controller struct {
	id     string
	policy *Policy
	clock  func() time.Time
	rng    random.Source
	logger logging.Logger

	mu    sync.Mutex
	stats *SessionStats
}

// ControllerOption customizes a controller
type ControllerOption func(*Controller)

// WithClock replaces time.Now
func WithClock(clock func() time.Time) ControllerOption {
	return func(c *Controller) { c.clock = clock }
}

// WithRandom replaces the message picker
func WithRandom(src random.Source) ControllerOption {
	return func(c *Controller) { c.rng = src }
}

// NewController creates a controller with fresh stats
func NewController(id string, policy *Policy, logger logging.Logger, opts ...ControllerOption) *Controller {
	if policy == nil {
		policy = DefaultPolicy()
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	c := &Controller{
		id:     id,
		policy: policy,
		clock:  time.Now,
		logger: logger.WithFields(logging.Fields{"component": "adaptive_controller", "session_id": id}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rng == nil {
		c.rng = random.New(0)
	}
	c.stats = newSessionStats(c.clock())
	return c
}

// ID returns the session identifier
func (c *Controller) ID() string {
	return c.id
}

// Evaluate records the attempt and returns the resulting decision. It mutates
// the session exactly once per call; calling it twice for one attempt double counts.
func (c *Controller) Evaluate(a Attempt) *Decision {
	if !a.Emotion.Valid() {
		a.Emotion = emotion.TypeNeutral
	}
	if a.AttemptCount < 1 {
		a.AttemptCount = 1
	}

	c.mu.Lock()
	now := c.clock()
	c.stats.record(a, c.policy.CorrectThreshold, now)
	state, rule := resolveState(ruleContext{stats: c.stats, attempt: a, policy: c.policy, now: now})
	strategy := StrategyFor(state)
	c.stats.DifficultyLevel = c.stats.DifficultyLevel.Shift(strategy.DifficultyAdjust)
	view := c.viewLocked()
	c.mu.Unlock()

	decision := &Decision{
		SessionID:     c.id,
		LearningState: state,
		MatchedRule:   rule,
		Strategy:      strategy,
		Message:       random.Pick(c.rng, strategy.Messages),
		SessionStats:  view,
	}

	c.logger.Info("Learning state evaluated", logging.Fields{
		"state":   string(state),
		"rule":    rule,
		"score":   a.Score,
		"emotion": string(a.Emotion),
		"attempt": a.AttemptCount,
		"total":   view.TotalAttempts,
	})

	return decision
}

func (c *Controller) viewLocked() StatsView {
	return StatsView{
		TotalAttempts:        c.stats.TotalAttempts,
		CorrectCount:         c.stats.CorrectCount,
		IncorrectCount:       c.stats.IncorrectCount,
		ConsecutiveCorrect:   c.stats.ConsecutiveCorrect,
		ConsecutiveIncorrect: c.stats.ConsecutiveIncorrect,
		DifficultyLevel:      c.stats.DifficultyLevel,
	}
}

// Stats returns a copy of the session stats
func (c *Controller) Stats() *SessionStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats.clone()
}

// LastActivity returns the time of the last recorded attempt or reset
func (c *Controller) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats.LastActivity
}

// Reset starts a fresh session under the same id
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = newSessionStats(c.clock())
	c.logger.Info("Session reset")
}

// Message draws a line from the pool of a state
func (c *Controller) Message(state LearningState) string {
	return random.Pick(c.rng, StrategyFor(state).Messages)
}

// Direction is the difficulty change implied by a learning state
type Direction string

const (
	DirectionEasier Direction = "easier"
	DirectionHarder Direction = "harder"
	DirectionNone   Direction = "none"
)

// DifficultyDirection maps a learning state to a difficulty change without
// touching any session
func DifficultyDirection(state LearningState) (bool, Direction) {
	switch adjust := StrategyFor(state).DifficultyAdjust; {
	case adjust < 0:
		return true, DirectionEasier
	case adjust > 0:
		return true, DirectionHarder
	default:
		return false, DirectionNone
	}
}

// EncouragementForEmotion picks a strategy line suited to an emotion and optional score
func EncouragementForEmotion(t emotion.Type, score *int, src random.Source) string {
	state := StateNormal
	switch {
	case t == emotion.TypeFrustrated:
		state = StateFrustrated
	case t == emotion.TypeConfused:
		state = StateStruggling
	case t == emotion.TypeHappy && score != nil && *score >= 85:
		state = StateExcellent
	case score != nil && *score >= 70:
		state = StateGood
	}
	return random.Pick(src, StrategyFor(state).Messages)
}
