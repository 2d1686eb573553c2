package scoring

import "sort"

// Severity orders issues for display
type Severity string

const (
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityPositive Severity = "positive"
)

// Rank returns the display order of a severity; unknown severities sort with low
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	case SeverityPositive:
		return 3
	default:
		return 2
	}
}

// IssueKind identifies an entry in the issue catalog
type IssueKind string

const (
	IssueTooShort         IssueKind = "too_short"
	IssueSlightlyShort    IssueKind = "slightly_short"
	IssueTooLong          IssueKind = "too_long"
	IssueTooQuiet         IssueKind = "too_quiet"
	IssueSlightlyQuiet    IssueKind = "slightly_quiet"
	IssueTooManyPauses    IssueKind = "too_many_pauses"
	IssueSomePauses       IssueKind = "some_pauses"
	IssueLongPause        IssueKind = "long_pause"
	IssueTooFast          IssueKind = "speaking_too_fast"
	IssueTooSlow          IssueKind = "speaking_too_slow"
	IssueEnergyDecreasing IssueKind = "energy_decreasing"
	IssueEnergyUnstable   IssueKind = "energy_unstable"
	IssueTextMismatchHigh IssueKind = "text_mismatch_high"
	IssueTextMismatchLow  IssueKind = "text_mismatch_low"
	IssueAccuracyLow      IssueKind = "accuracy_low"
	IssueFluencyLow       IssueKind = "fluency_low"
	IssueGoodRhythm       IssueKind = "good_rhythm"
	IssueExcellent        IssueKind = "excellent"
)

// Issue is one explanation attached to a score. Issues are values and never mutated.
type Issue struct {
	Code       string   `json:"code" yaml:"code"`
	Message    string   `json:"message" yaml:"message"`
	Suggestion string   `json:"suggestion" yaml:"suggestion"`
	Severity   Severity `json:"severity" yaml:"severity"`
}

// IsPositive reports whether the issue is praise rather than a problem
func (i Issue) IsPositive() bool {
	return i.Severity == SeverityPositive
}

var issueCatalog = map[IssueKind]Issue{
	IssueTooShort: {
		Code: "DURATION_SHORT", Severity: SeverityHigh,
		Message: "录音太短，至少保持1秒", Suggestion: "慢慢读，不要着急",
	},
	IssueSlightlyShort: {
		Code: "DURATION_SLIGHTLY_SHORT", Severity: SeverityMedium,
		Message: "录音略短，建议放慢速度", Suggestion: "可以再放慢一点节奏",
	},
	IssueTooLong: {
		Code: "DURATION_LONG", Severity: SeverityLow,
		Message: "语速稍慢，尝试更流畅地朗读", Suggestion: "试着连贯一些",
	},
	IssueTooQuiet: {
		Code: "VOLUME_LOW", Severity: SeverityHigh,
		Message: "声音太轻，靠近麦克风再试", Suggestion: "大声一点，让老师听清楚",
	},
	IssueSlightlyQuiet: {
		Code: "VOLUME_SLIGHTLY_LOW", Severity: SeverityMedium,
		Message: "声音有些轻，保持张口和音量", Suggestion: "再大声一点点就更好了",
	},
	IssueTooManyPauses: {
		Code: "PAUSES_MANY", Severity: SeverityHigh,
		Message: "停顿太多，尽量一口气读完", Suggestion: "深呼吸后，一口气读完",
	},
	IssueSomePauses: {
		Code: "PAUSES_SOME", Severity: SeverityMedium,
		Message: "录音有较多空白，保持节奏", Suggestion: "减少中间的停顿",
	},
	IssueLongPause: {
		Code: "PAUSE_LONG", Severity: SeverityMedium,
		Message: "中间有较长停顿", Suggestion: "尝试保持连贯",
	},
	IssueTooFast: {
		Code: "SPEED_FAST", Severity: SeverityMedium,
		Message: "语速过快，放慢一些更清晰", Suggestion: "慢一点，每个字都读清楚",
	},
	IssueTooSlow: {
		Code: "SPEED_SLOW", Severity: SeverityLow,
		Message: "语速偏慢，可以稍微快一点", Suggestion: "节奏可以再快一点",
	},
	IssueEnergyDecreasing: {
		Code: "ENERGY_FADE", Severity: SeverityMedium,
		Message: "声音越说越小，保持音量稳定", Suggestion: "从头到尾保持一样大声",
	},
	IssueEnergyUnstable: {
		Code: "ENERGY_UNSTABLE", Severity: SeverityLow,
		Message: "音量不稳定，尝试保持均匀", Suggestion: "用稳定的力度读出来",
	},
	IssueTextMismatchHigh: {
		Code: "TEXT_MISMATCH", Severity: SeverityHigh,
		Message: "识别文本与标准文本差异较大", Suggestion: "请重新朗读，注意每个字",
	},
	IssueTextMismatchLow: {
		Code: "TEXT_SLIGHTLY_OFF", Severity: SeverityLow,
		Message: "识别文本基本正确，但可以更准确", Suggestion: "再仔细读一遍",
	},
	IssueAccuracyLow: {
		Code: "ACCURACY_LOW", Severity: SeverityHigh,
		Message: "发音准确度需要提高", Suggestion: "注意每个字的发音",
	},
	IssueFluencyLow: {
		Code: "FLUENCY_LOW", Severity: SeverityMedium,
		Message: "流畅度可以更好", Suggestion: "减少停顿，更连贯地读",
	},
	IssueGoodRhythm: {
		Code: "RHYTHM_GOOD", Severity: SeverityPositive,
		Message: "节奏自然，继续保持！",
	},
	IssueExcellent: {
		Code: "EXCELLENT", Severity: SeverityPositive,
		Message: "发音非常标准，太棒了！",
	},
}

// NewIssue looks up a catalog entry; unknown kinds become a low severity UNKNOWN issue
func NewIssue(kind IssueKind) Issue {
	if issue, ok := issueCatalog[kind]; ok {
		return issue
	}
	return Issue{
		Code:     "UNKNOWN",
		Message:  string(kind),
		Severity: SeverityLow,
	}
}

// SortIssues returns a copy ordered high, medium, low, positive; ties keep insertion order
func SortIssues(issues []Issue) []Issue {
	sorted := make([]Issue, len(issues))
	copy(sorted, issues)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Severity.Rank() < sorted[j].Severity.Rank()
	})
	return sorted
}

// DefaultSuggestion is returned when no issue carries a suggestion
const DefaultSuggestion = "继续保持练习！"

// ImprovementSuggestions returns the suggestions of the three most severe issues
func ImprovementSuggestions(issues []Issue) []string {
	sorted := SortIssues(issues)
	if len(sorted) > 3 {
		sorted = sorted[:3]
	}

	var suggestions []string
	for _, issue := range sorted {
		if issue.Suggestion != "" {
			suggestions = append(suggestions, issue.Suggestion)
		}
	}
	if len(suggestions) == 0 {
		suggestions = append(suggestions, DefaultSuggestion)
	}
	return suggestions
}
