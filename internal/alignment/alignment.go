package alignment

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// AlignerConfig controls text cleaning before comparison
type AlignerConfig struct {
	IgnorePunctuation bool `mapstructure:"ignore_punctuation"` // Drop punctuation and symbols before comparing
}

// DefaultAlignerConfig keeps punctuation, matching a nil config
func DefaultAlignerConfig() *AlignerConfig {
	return &AlignerConfig{}
}

// TextAligner compares recognized text against a reference string
type TextAligner struct {
	config *AlignerConfig
}

// NewTextAligner creates a new aligner; nil config keeps punctuation
func NewTextAligner(config *AlignerConfig) *TextAligner {
	if config == nil {
		config = &AlignerConfig{}
	}
	return &TextAligner{
		config: config,
	}
}

// TextMatch contains the similarity between reference and recognized text
type TextMatch struct {
	CharOverlapRatio   float64 `json:"char_overlap_ratio"`  // |set(recognized) ∩ set(reference)| / |set(reference)|
	SequenceSimilarity float64 `json:"sequence_similarity"` // 1 - edit distance / longer length
	CombinedMatch      float64 `json:"combined_match"`      // Mean of the two
	Reference          string  `json:"reference"`           // Cleaned reference
	Recognized         string  `json:"recognized"`          // Cleaned recognized text
}

// Align returns nil when either text is empty after trimming whitespace
func (ta *TextAligner) Align(reference, recognized string) *TextMatch {
	if strings.TrimSpace(reference) == "" || strings.TrimSpace(recognized) == "" {
		return nil
	}

	ref := []rune(ta.Clean(reference))
	rec := []rune(ta.Clean(recognized))

	match := &TextMatch{
		Reference:  string(ref),
		Recognized: string(rec),
	}
	if len(ref) == 0 || len(rec) == 0 {
		return match
	}

	match.CharOverlapRatio = charOverlap(ref, rec)
	match.SequenceSimilarity = sequenceSimilarity(ref, rec)
	match.CombinedMatch = (match.CharOverlapRatio + match.SequenceSimilarity) / 2
	return match
}

// Clean applies NFKC normalization and case folding and removes whitespace
// (and punctuation when configured)
func (ta *TextAligner) Clean(s string) string {
	s = norm.NFKC.String(s)
	// a Caser is stateful, so one per call
	s = cases.Fold().String(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		if ta.config.IgnorePunctuation && (unicode.IsPunct(r) || unicode.IsSymbol(r)) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SameText reports whether both texts are identical after cleaning
func (ta *TextAligner) SameText(a, b string) bool {
	return ta.Clean(a) == ta.Clean(b)
}

func charOverlap(ref, rec []rune) float64 {
	refSet := make(map[rune]struct{}, len(ref))
	for _, r := range ref {
		refSet[r] = struct{}{}
	}
	if len(refSet) == 0 {
		return 0
	}

	shared := make(map[rune]struct{})
	for _, r := range rec {
		if _, ok := refSet[r]; ok {
			shared[r] = struct{}{}
		}
	}
	return float64(len(shared)) / float64(len(refSet))
}

func sequenceSimilarity(ref, rec []rune) float64 {
	longest := max(len(ref), len(rec))
	if longest == 0 {
		return 0
	}
	return 1 - float64(EditDistance(ref, rec))/float64(longest)
}

// EditDistance is the unit-cost Levenshtein distance between two rune sequences
func EditDistance(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	if len(b) == 0 {
		return len(a)
	}

	previous := make([]int, len(b)+1)
	current := make([]int, len(b)+1)
	for j := range previous {
		previous[j] = j
	}

	for i, ca := range a {
		current[0] = i + 1
		for j, cb := range b {
			cost := 1
			if ca == cb {
				cost = 0
			}
			current[j+1] = min(
				previous[j+1]+1, // deletion
				current[j]+1,    // insertion
				previous[j]+cost,
			)
		}
		previous, current = current, previous
	}

	return previous[len(b)]
}
