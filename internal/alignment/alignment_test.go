package alignment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEditDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"你好", "你好", 0},
		{"你好吗", "你好", 1},
		{"苹果", "平果", 1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"->"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, EditDistance([]rune(tt.a), []rune(tt.b)))
			assert.Equal(t, tt.want, EditDistance([]rune(tt.b), []rune(tt.a)))
		})
	}
}

func TestAlignAbsent(t *testing.T) {
	ta := NewTextAligner(nil)

	assert.Nil(t, ta.Align("你好", ""))
	assert.Nil(t, ta.Align("你好", "   "))
	assert.Nil(t, ta.Align("", "你好"))
	assert.Nil(t, ta.Align(" \t", "你好"))
}

func TestAlignExactMatch(t *testing.T) {
	m := NewTextAligner(nil).Align("你好", "你好")
	require.NotNil(t, m)
	assert.Equal(t, 1.0, m.CharOverlapRatio)
	assert.Equal(t, 1.0, m.SequenceSimilarity)
	assert.Equal(t, 1.0, m.CombinedMatch)
}

func TestAlignPartialMatch(t *testing.T) {
	// same characters, different order
	m := NewTextAligner(nil).Align("上海", "海上")
	require.NotNil(t, m)
	assert.Equal(t, 1.0, m.CharOverlapRatio)
	assert.Equal(t, 0.0, m.SequenceSimilarity)
	assert.Equal(t, 0.5, m.CombinedMatch)

	// one substitution in four characters
	m = NewTextAligner(nil).Align("我爱北京", "我爱南京")
	require.NotNil(t, m)
	assert.InDelta(t, 0.75, m.CharOverlapRatio, 1e-9)
	assert.InDelta(t, 0.75, m.SequenceSimilarity, 1e-9)
	assert.InDelta(t, 0.75, m.CombinedMatch, 1e-9)
}

func TestAlignIgnoresSpacingAndWidth(t *testing.T) {
	ta := NewTextAligner(nil)

	m := ta.Align("Hello World", "hello  world")
	require.NotNil(t, m)
	assert.Equal(t, 1.0, m.CombinedMatch)

	// full-width latin folds to ASCII under NFKC
	m = ta.Align("ＡＢＣ", "abc")
	require.NotNil(t, m)
	assert.Equal(t, 1.0, m.CombinedMatch)
}

func TestAlignPunctuation(t *testing.T) {
	keep := NewTextAligner(nil).Align("你好！", "你好")
	require.NotNil(t, keep)
	assert.Less(t, keep.CombinedMatch, 1.0)

	strip := NewTextAligner(&AlignerConfig{IgnorePunctuation: true}).Align("你好！", "你好")
	require.NotNil(t, strip)
	assert.Equal(t, 1.0, strip.CombinedMatch)

	// reference made only of punctuation cleans to empty and scores zero
	empty := NewTextAligner(&AlignerConfig{IgnorePunctuation: true}).Align("！！", "你好")
	require.NotNil(t, empty)
	assert.Equal(t, 0.0, empty.CombinedMatch)
}

func TestSameText(t *testing.T) {
	ta := NewTextAligner(nil)
	assert.True(t, ta.SameText("你 好", "你好"))
	assert.False(t, ta.SameText("你好", "您好"))
}
