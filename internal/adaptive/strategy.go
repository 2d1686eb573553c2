package adaptive

// LearningState is the controller's classification of the current session
type LearningState string

const (
	StateExcellent  LearningState = "excellent"
	StateGood       LearningState = "good"
	StateNormal     LearningState = "normal"
	StateStruggling LearningState = "struggling"
	StateFrustrated LearningState = "frustrated"
	StateNeedsBreak LearningState = "needs_break"
)

// PraiseLevel selects the praise template pool
type PraiseLevel string

const (
	PraiseHigh        PraiseLevel = "high"
	PraiseMedium      PraiseLevel = "medium"
	PraiseLow         PraiseLevel = "low"
	PraiseEncouraging PraiseLevel = "encouraging"
	PraiseComforting  PraiseLevel = "comforting"
	PraiseCaring      PraiseLevel = "caring"
)

// Strategy is the static pacing and UI configuration bound to a learning state
type Strategy struct {
	DemoCount        int         `json:"demo_count" yaml:"demo_count"`
	DemoSpeed        float64     `json:"demo_speed" yaml:"demo_speed"`
	WaitBeforeRecord float64     `json:"wait_before_record_sec" yaml:"wait_before_record_sec"`
	AutoNext         bool        `json:"auto_next" yaml:"auto_next"`
	NextDelay        float64     `json:"next_delay_sec" yaml:"next_delay_sec"`
	DifficultyAdjust int         `json:"difficulty_adjust" yaml:"difficulty_adjust"` // -1, 0 or +1
	PraiseLevel      PraiseLevel `json:"praise_level" yaml:"praise_level"`
	ShowProgress     bool        `json:"show_progress" yaml:"show_progress"`
	OfferRetry       bool        `json:"offer_retry,omitempty" yaml:"offer_retry,omitempty"`
	OfferDemo        bool        `json:"offer_demo,omitempty" yaml:"offer_demo,omitempty"`
	OfferSkip        bool        `json:"offer_skip,omitempty" yaml:"offer_skip,omitempty"`
	OfferBreak       bool        `json:"offer_break,omitempty" yaml:"offer_break,omitempty"`
	OfferEasier      bool        `json:"offer_easier,omitempty" yaml:"offer_easier,omitempty"`
	SuggestBreak     bool        `json:"suggest_break,omitempty" yaml:"suggest_break,omitempty"`
	BreakDurationMin int         `json:"break_duration_min,omitempty" yaml:"break_duration_min,omitempty"`
	Messages         []string    `json:"messages" yaml:"messages"`
}

var strategies = map[LearningState]Strategy{
	StateExcellent: {
		DemoCount: 1, DemoSpeed: 1.0, WaitBeforeRecord: 1, AutoNext: true, NextDelay: 2.0,
		DifficultyAdjust: 1, PraiseLevel: PraiseHigh, ShowProgress: true,
		Messages: []string{
			"太棒了！你学得真快！",
			"完美！继续挑战下一个！",
			"你真是学习小天才！",
			"老师都要为你鼓掌了！",
		},
	},
	StateGood: {
		DemoCount: 1, DemoSpeed: 1.0, WaitBeforeRecord: 1.5, AutoNext: true, NextDelay: 2.5,
		PraiseLevel: PraiseMedium, ShowProgress: true,
		Messages: []string{
			"不错哦！继续加油！",
			"读得很好，再来下一个！",
			"你进步很大！",
			"保持这个状态！",
		},
	},
	StateNormal: {
		DemoCount: 1, DemoSpeed: 1.0, WaitBeforeRecord: 2, NextDelay: 3.0,
		PraiseLevel: PraiseLow, ShowProgress: true,
		Messages: []string{
			"继续加油！",
			"保持专注！",
			"再来一次会更好！",
		},
	},
	StateStruggling: {
		DemoCount: 2, DemoSpeed: 0.85, WaitBeforeRecord: 3, NextDelay: 4.0,
		PraiseLevel: PraiseEncouraging, OfferRetry: true, OfferDemo: true,
		Messages: []string{
			"没关系，我们再来一次！",
			"慢慢来，不着急～",
			"先听我读，然后跟着读！",
			"这个词有点难，我们多练几次！",
		},
	},
	StateFrustrated: {
		DemoCount: 2, DemoSpeed: 0.75, WaitBeforeRecord: 4, NextDelay: 5.0,
		DifficultyAdjust: -1, PraiseLevel: PraiseComforting,
		OfferRetry: true, OfferSkip: true, OfferBreak: true, OfferEasier: true,
		Messages: []string{
			"别着急，学习本来就需要时间！",
			"你已经很努力了！休息一下？",
			"我们换一个试试？",
			"没关系没关系，慢慢来～",
			"深呼吸，我们再试一次！",
		},
	},
	StateNeedsBreak: {
		DemoCount: 0, DemoSpeed: 0.8, WaitBeforeRecord: 5, NextDelay: 0,
		DifficultyAdjust: -1, PraiseLevel: PraiseCaring,
		SuggestBreak: true, BreakDurationMin: 5,
		Messages: []string{
			"你学了好久了，休息一下吧！",
			"喝点水，活动活动再继续！",
			"今天的学习很棒，可以先休息一下！",
			"学习也要劳逸结合哦～",
		},
	},
}

// StrategyFor returns a copy of the strategy of a state; unknown states use normal
func StrategyFor(state LearningState) Strategy {
	s, ok := strategies[state]
	if !ok {
		s = strategies[StateNormal]
	}
	s.Messages = append([]string(nil), s.Messages...)
	return s
}

// DifficultyLevel is the current practice difficulty of a session
type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyNormal DifficultyLevel = "normal"
	DifficultyHard   DifficultyLevel = "hard"
)

var difficultyOrder = []DifficultyLevel{DifficultyEasy, DifficultyNormal, DifficultyHard}

// Order returns 1 for easy, 2 for normal and 3 for hard; unknown levels count as normal
func (d DifficultyLevel) Order() int {
	for i, level := range difficultyOrder {
		if level == d {
			return i + 1
		}
	}
	return 2
}

// Shift moves the level by delta steps, saturating at easy and hard
func (d DifficultyLevel) Shift(delta int) DifficultyLevel {
	idx := d.Order() - 1 + delta
	if idx < 0 {
		idx = 0
	}
	if idx >= len(difficultyOrder) {
		idx = len(difficultyOrder) - 1
	}
	return difficultyOrder[idx]
}
