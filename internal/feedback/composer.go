package feedback

import (
	"fmt"
	"strings"

	"github.com/RyanBlaney/speech-coach/internal/adaptive"
	"github.com/RyanBlaney/speech-coach/internal/alignment"
	"github.com/RyanBlaney/speech-coach/internal/emotion"
	"github.com/RyanBlaney/speech-coach/internal/random"
	"github.com/RyanBlaney/speech-coach/internal/scoring"
)

var praiseTemplates = map[adaptive.PraiseLevel][]string{
	adaptive.PraiseHigh: {
		"🌟 太棒了！发音非常标准！",
		"🎉 完美！你是学习小明星！",
		"✨ 哇！读得太好了！",
		"🏆 超级棒！老师都要表扬你！",
	},
	adaptive.PraiseMedium: {
		"👍 不错！继续加油！",
		"😊 读得很好哦！",
		"🌈 进步很大！",
		"💪 你做到了！",
	},
	adaptive.PraiseLow: {
		"继续保持！",
		"可以的！",
		"再接再厉！",
	},
	adaptive.PraiseEncouraging: {
		"💝 没关系，慢慢来！",
		"🌻 你已经很努力了！",
		"🌸 再试一次，你可以的！",
		"💫 相信自己！",
	},
	adaptive.PraiseComforting: {
		"🤗 别着急，学习需要时间",
		"💖 休息一下再试试？",
		"🌺 换一个词也没关系哦",
		"🍀 你做得比你想象的好！",
	},
	adaptive.PraiseCaring: {
		"☕ 休息一下吧！",
		"🌙 今天学得够多了！",
		"🎈 明天继续加油！",
		"💕 你今天很棒！",
	},
}

// SuggestionKind names a canned suggestion
type SuggestionKind string

const (
	SuggestRetry       SuggestionKind = "retry"
	SuggestListenAgain SuggestionKind = "listen_again"
	SuggestSlowDown    SuggestionKind = "slow_down"
	SuggestLouder      SuggestionKind = "louder"
	SuggestSkip        SuggestionKind = "skip"
	SuggestBreak       SuggestionKind = "break"
)

var suggestionTemplates = map[SuggestionKind]string{
	SuggestRetry:       "再试一次，你一定可以！",
	SuggestListenAgain: "先听我读一遍，然后跟着读！",
	SuggestSlowDown:    "慢一点，每个字都读清楚！",
	SuggestLouder:      "大声一点，让老师听清楚！",
	SuggestSkip:        "我们先跳过，一会儿再回来！",
	SuggestBreak:       "休息一下，喝点水吧！",
}

// Suggestion returns a canned suggestion text
func Suggestion(kind SuggestionKind) string {
	return suggestionTemplates[kind]
}

// Praise picks a line for a praise level; unknown levels use the low pool
func Praise(level adaptive.PraiseLevel, src random.Source) string {
	pool, ok := praiseTemplates[level]
	if !ok {
		pool = praiseTemplates[adaptive.PraiseLow]
	}
	return random.Pick(src, pool)
}

// Adaptive is the UI-facing part of the response for one attempt
type Adaptive struct {
	MainFeedback    string   `json:"main_feedback" yaml:"main_feedback"`
	StrategyMessage string   `json:"strategy_message" yaml:"strategy_message"`
	Suggestions     []string `json:"suggestions" yaml:"suggestions"`
	ShowRetryButton bool     `json:"show_retry_button" yaml:"show_retry_button"`
	ShowSkipButton  bool     `json:"show_skip_button" yaml:"show_skip_button"`
	ShowBreakButton bool     `json:"show_break_button" yaml:"show_break_button"`
	AutoDemo        bool     `json:"auto_demo" yaml:"auto_demo"`
	DemoSpeed       float64  `json:"demo_speed" yaml:"demo_speed"`
}

// Composer assembles feedback text from score, emotion and strategy
type Composer struct {
	aligner *alignment.TextAligner
	rng     random.Source
}

// NewComposer creates a composer
func NewComposer(rng random.Source) *Composer {
	if rng == nil {
		rng = random.New(0)
	}
	return &Composer{
		aligner: alignment.NewTextAligner(nil),
		rng:     rng,
	}
}

// Compose builds praise, suggestions and button flags for a decision
func (c *Composer) Compose(decision *adaptive.Decision, issues []scoring.Issue) *Adaptive {
	strategy := decision.Strategy

	var suggestions []string
	for _, issue := range firstN(issues, 2) {
		text := issue.Suggestion
		if text == "" {
			text = issue.Message
		}
		if text = strings.TrimSpace(text); text != "" {
			suggestions = append(suggestions, text)
		}
	}
	if strategy.OfferRetry {
		suggestions = append(suggestions, Suggestion(SuggestRetry))
	}
	if strategy.OfferDemo {
		suggestions = append(suggestions, Suggestion(SuggestListenAgain))
	}
	if suggestions == nil {
		suggestions = []string{}
	}

	message := decision.Message
	if message == "" {
		message = random.Pick(c.rng, strategy.Messages)
	}

	return &Adaptive{
		MainFeedback:    Praise(strategy.PraiseLevel, c.rng),
		StrategyMessage: message,
		Suggestions:     suggestions,
		ShowRetryButton: strategy.OfferRetry,
		ShowSkipButton:  strategy.OfferSkip,
		ShowBreakButton: strategy.OfferBreak,
		AutoDemo:        strategy.DemoCount > 1,
		DemoSpeed:       strategy.DemoSpeed,
	}
}

// Text builds the score-tier feedback sentence
func (c *Composer) Text(score int, issues []scoring.Issue, emo *emotion.Result, recognized, reference string) string {
	var prefix string
	switch {
	case score >= 85:
		prefix = "发音节奏很自然，保持现在的状态。"
	case score >= 70:
		prefix = "整体不错，再注意以下细节："
	case emo != nil && emo.Type == emotion.TypeFrustrated:
		prefix = "没关系，我们一起修正这些小问题："
	default:
		prefix = "试着根据提示调整："
	}

	var messages []string
	for _, issue := range issues {
		if !issue.IsPositive() && issue.Message != "" {
			messages = append(messages, issue.Message)
		}
	}
	details := strings.Join(messages, " ")
	if details == "" && emo != nil {
		details = emo.Tip
	}

	if strings.TrimSpace(recognized) != "" && strings.TrimSpace(reference) != "" &&
		!c.aligner.SameText(recognized, reference) {
		details = fmt.Sprintf("你读的是：%s，标准是：%s。%s", recognized, reference, details)
	}

	return strings.TrimSpace(prefix + " " + details)
}

// Final prefixes the feedback sentence with the strategy message
func Final(strategyMessage, text string) string {
	if strategyMessage == "" {
		return text
	}
	return strategyMessage + " " + text
}

func firstN(issues []scoring.Issue, n int) []scoring.Issue {
	if len(issues) > n {
		return issues[:n]
	}
	return issues
}
