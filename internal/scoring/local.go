package scoring

import (
	"unicode"

	"github.com/RyanBlaney/speech-coach/internal/alignment"
	"github.com/RyanBlaney/speech-coach/pkg/audio/features"
	"github.com/RyanBlaney/speech-coach/pkg/logging"
)

// LocalScorerConfig holds the tunables of the heuristic path
type LocalScorerConfig struct {
	BaseScore           int     `mapstructure:"base_score"`
	MinSecondsPerChar   float64 `mapstructure:"min_seconds_per_char"`
	MaxSecondsPerChar   float64 `mapstructure:"max_seconds_per_char"`
	DefaultExpectedMin  float64 `mapstructure:"default_expected_min"` // Window used when there is no reference text
	DefaultExpectedMax  float64 `mapstructure:"default_expected_max"`
	DefaultTextMatch    float64 `mapstructure:"default_text_match"` // Accuracy baseline without a text match
	DefaultConsistency  float64 `mapstructure:"default_consistency"`
}

// DefaultLocalScorerConfig returns the standard tuning
func DefaultLocalScorerConfig() *LocalScorerConfig {
	return &LocalScorerConfig{
		BaseScore:          85,
		MinSecondsPerChar:  0.25,
		MaxSecondsPerChar:  0.8,
		DefaultExpectedMin: 0.5,
		DefaultExpectedMax: 1.6,
		DefaultTextMatch:   0.7,
		DefaultConsistency: 0.5,
	}
}

// LocalInput is everything the heuristic path looks at
type LocalInput struct {
	Features      *features.AudioFeatures // nil when the audio could not be decoded
	TextMatch     *alignment.TextMatch    // nil when either text is missing
	ReferenceText string
}

// LocalScorer scores a recording from frame energy features and text alignment.
// It is a pure function of its input and safe for concurrent use.
type LocalScorer struct {
	config *LocalScorerConfig
	logger logging.Logger
}

// NewLocalScorer creates a new local scorer
func NewLocalScorer(config *LocalScorerConfig, logger logging.Logger) *LocalScorer {
	if config == nil {
		config = DefaultLocalScorerConfig()
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &LocalScorer{
		config: config,
		logger: logger.WithFields(logging.Fields{"component": "local_scorer"}),
	}
}

// scoreSheet accumulates adjustments and issues in check order
type scoreSheet struct {
	score  int
	issues []Issue
}

func (s *scoreSheet) penalize(points int, kind IssueKind) {
	s.score -= points
	s.issues = append(s.issues, NewIssue(kind))
}

// Score runs the heuristic path
func (ls *LocalScorer) Score(in *LocalInput) *ScoreResult {
	if in == nil || in.Features == nil {
		return DefaultScoreResult()
	}

	f := in.Features
	metrics := ls.expectations(f, in.ReferenceText)
	if in.TextMatch != nil {
		ratio, seq, combined := in.TextMatch.CharOverlapRatio, in.TextMatch.SequenceSimilarity, in.TextMatch.CombinedMatch
		metrics.TextMatchRatio = &ratio
		metrics.TextSequenceMatch = &seq
		metrics.TextCombinedMatch = &combined
	}

	sheet := &scoreSheet{score: ls.config.BaseScore}

	// duration
	switch {
	case f.DurationSec < 0.5:
		sheet.penalize(35, IssueTooShort)
	case f.DurationSec < 0.8:
		sheet.penalize(15, IssueSlightlyShort)
	case f.DurationSec > 5:
		sheet.penalize(5, IssueTooLong)
	}

	// volume
	switch {
	case f.RMSEnergy < 150:
		sheet.penalize(20, IssueTooQuiet)
	case f.RMSEnergy < 250:
		sheet.penalize(8, IssueSlightlyQuiet)
	}

	// pauses
	switch {
	case f.SilenceRatio > 0.6:
		sheet.penalize(12, IssueTooManyPauses)
	case f.SilenceRatio > 0.4:
		sheet.penalize(6, IssueSomePauses)
	}
	if f.MaxPauseDurationSec > 1.5 {
		sheet.penalize(5, IssueLongPause)
	}

	// pace against the reference length
	switch metrics.SpeakingRateStatus {
	case RateFast:
		sheet.penalize(10, IssueTooFast)
	case RateSlow:
		sheet.penalize(5, IssueTooSlow)
	}

	// energy
	if f.SegmentEnergyTrend == features.TrendDecreasing {
		sheet.penalize(8, IssueEnergyDecreasing)
	}
	if f.EnergyConsistency < 0.25 {
		sheet.penalize(3, IssueEnergyUnstable)
	}

	// text match
	if m := in.TextMatch; m != nil {
		switch {
		case m.CombinedMatch < 0.5:
			sheet.penalize(25, IssueTextMismatchHigh)
		case m.CombinedMatch < 0.8:
			sheet.penalize(10, IssueTextMismatchLow)
		case m.CombinedMatch >= 0.95:
			sheet.score += 5
		}
		if m.CombinedMatch >= 0.98 &&
			f.DurationSec >= metrics.ExpectedDurationMin && f.DurationSec <= metrics.ExpectedDurationMax {
			sheet.score += 3
		}
	}

	var positive []Issue
	switch {
	case sheet.score >= 90 && len(sheet.issues) == 0:
		positive = append(positive, NewIssue(IssueExcellent))
	case sheet.score >= 80 && len(sheet.issues) <= 1:
		positive = append(positive, NewIssue(IssueGoodRhythm))
	}

	result := &ScoreResult{
		Score:            clampInt(sheet.score, 5, 100),
		Accuracy:         ls.accuracy(f, in.TextMatch),
		Fluency:          ls.fluency(f, metrics.SpeakingRateStatus),
		Completeness:     ls.completeness(f, metrics),
		Issues:           SortIssues(append(sheet.issues, positive...)),
		PositiveFeedback: positive,
		Source:           SourceLocal,
		Metrics:          metrics,
	}
	if result.PositiveFeedback == nil {
		result.PositiveFeedback = []Issue{}
	}

	ls.logger.Debug("Local score computed", logging.Fields{
		"score":        result.Score,
		"accuracy":     result.Accuracy,
		"fluency":      result.Fluency,
		"completeness": result.Completeness,
		"issues":       len(result.Issues),
		"rate_status":  string(metrics.SpeakingRateStatus),
	})

	return result
}

// expectations derives the expected duration window from the reference length
func (ls *LocalScorer) expectations(f *features.AudioFeatures, reference string) *Metrics {
	chars := 0
	for _, r := range reference {
		if !unicode.IsSpace(r) {
			chars++
		}
	}

	if chars == 0 {
		return &Metrics{
			ExpectedDurationMin: ls.config.DefaultExpectedMin,
			ExpectedDurationMax: ls.config.DefaultExpectedMax,
			SpeakingRateStatus:  RateUnknown,
		}
	}

	m := &Metrics{
		ExpectedDurationMin: float64(chars) * ls.config.MinSecondsPerChar,
		ExpectedDurationMax: float64(chars) * ls.config.MaxSecondsPerChar,
	}
	if f.DurationSec > 0 {
		m.CharsPerSecond = float64(chars) / f.DurationSec
	}

	switch {
	case f.DurationSec < m.ExpectedDurationMin:
		m.SpeakingRateStatus = RateFast
	case f.DurationSec > m.ExpectedDurationMax:
		m.SpeakingRateStatus = RateSlow
	default:
		m.SpeakingRateStatus = RateNormal
	}
	return m
}

func (ls *LocalScorer) accuracy(f *features.AudioFeatures, match *alignment.TextMatch) int {
	textMatch := ls.config.DefaultTextMatch
	if match != nil {
		textMatch = match.CombinedMatch
	}
	consistency := f.EnergyConsistency
	if f.EnergyTrend == features.TrendUnknown {
		consistency = ls.config.DefaultConsistency
	}

	base := int(70 + textMatch*30)
	base = int(float64(base) * (0.9 + consistency*0.1))
	return clampInt(base, 30, 100)
}

func (ls *LocalScorer) fluency(f *features.AudioFeatures, status RateStatus) int {
	base := 85
	base -= int(f.SilenceRatio * 18)
	base -= min(10, f.PauseCount*2)
	if status == RateNormal {
		base += 5
	}
	return clampInt(base, 30, 100)
}

func (ls *LocalScorer) completeness(f *features.AudioFeatures, m *Metrics) int {
	switch {
	case f.DurationSec < m.ExpectedDurationMin*0.5:
		return 50
	case f.DurationSec < m.ExpectedDurationMin:
		return 70
	default:
		return 90
	}
}
