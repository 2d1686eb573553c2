package scoring

// Source identifies which path produced the four headline numbers
type Source string

const (
	SourceExternal Source = "external"
	SourceLocal    Source = "local"
)

// RateStatus compares the recording length to the window expected for the reference
type RateStatus string

const (
	RateFast    RateStatus = "fast"
	RateNormal  RateStatus = "normal"
	RateSlow    RateStatus = "slow"
	RateUnknown RateStatus = "unknown" // No reference text to derive a window from
)

// Metrics are the intermediate values the local path derived
type Metrics struct {
	ExpectedDurationMin float64    `json:"expected_duration_min"`
	ExpectedDurationMax float64    `json:"expected_duration_max"`
	CharsPerSecond      float64    `json:"chars_per_second"`
	SpeakingRateStatus  RateStatus `json:"speaking_rate_status"`
	TextMatchRatio      *float64   `json:"text_match_ratio,omitempty"`
	TextSequenceMatch   *float64   `json:"text_sequence_match,omitempty"`
	TextCombinedMatch   *float64   `json:"text_combined_match,omitempty"`
}

// ScoreResult is the scorer output
type ScoreResult struct {
	Score            int      `json:"score"`        // [5, 100]
	Accuracy         int      `json:"accuracy"`     // [30, 100] on the local path
	Fluency          int      `json:"fluency"`      // [30, 100] on the local path
	Completeness     int      `json:"completeness"` // 50, 70 or 90 on the local path
	Issues           []Issue  `json:"issues"`       // Ordered by severity, positive entries last
	PositiveFeedback []Issue  `json:"positive_feedback"`
	Source           Source   `json:"source"`
	Degraded         bool     `json:"degraded"` // Audio could not be analyzed and fixed defaults were returned
	Provider         string   `json:"provider,omitempty"`
	Metrics          *Metrics `json:"metrics,omitempty"`
}

// Problems returns the non-positive issues
func (r *ScoreResult) Problems() []Issue {
	var out []Issue
	for _, issue := range r.Issues {
		if !issue.IsPositive() {
			out = append(out, issue)
		}
	}
	return out
}

// DefaultScoreResult is returned when no audio features are available
func DefaultScoreResult() *ScoreResult {
	return &ScoreResult{
		Score:        60,
		Accuracy:     55,
		Fluency:      60,
		Completeness: 58,
		Issues:       []Issue{},
		Source:       SourceLocal,
		Degraded:     true,
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
