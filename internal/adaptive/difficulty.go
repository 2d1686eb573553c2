package adaptive

import (
	"sort"
	"unicode/utf8"

	"github.com/RyanBlaney/speech-coach/internal/random"
)

// Word is a practice item
type Word struct {
	ID   string `json:"id,omitempty" yaml:"id,omitempty"`
	Text string `json:"text" yaml:"text"`
}

func (w Word) length() int {
	return utf8.RuneCountInString(w.Text)
}

// AdjustDifficulty reorders practice words for a learning state: shorter words
// first when the strategy eases off, longer first when it pushes harder
func AdjustDifficulty(words []Word, state LearningState) ([]Word, string) {
	adjust := StrategyFor(state).DifficultyAdjust
	if adjust == 0 {
		return words, "保持当前难度"
	}

	sorted := append([]Word(nil), words...)
	if adjust < 0 {
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].length() < sorted[j].length() })
		return sorted, "已调整为更简单的词汇"
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].length() > sorted[j].length() })
	return sorted, "已调整为更有挑战的词汇"
}

// SuggestAlternativeWord picks a shorter word than current, else any other word
func SuggestAlternativeWord(current Word, all []Word, src random.Source) (Word, bool) {
	var easier, different []Word
	for _, w := range all {
		if w.Text == current.Text {
			continue
		}
		different = append(different, w)
		if w.length() < current.length() {
			easier = append(easier, w)
		}
	}

	switch {
	case len(easier) > 0:
		return random.Pick(src, easier), true
	case len(different) > 0:
		return random.Pick(src, different), true
	default:
		return Word{}, false
	}
}
