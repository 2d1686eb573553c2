package replay

import (
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/RyanBlaney/speech-coach/internal/adaptive"
	"github.com/RyanBlaney/speech-coach/internal/scoring"
	"github.com/RyanBlaney/speech-coach/pkg/logging"
)

// MetricsCalculator aggregates replay outcomes
type MetricsCalculator struct {
	logger logging.Logger
}

// NewMetricsCalculator creates a new metrics calculator
func NewMetricsCalculator(logger logging.Logger) *MetricsCalculator {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &MetricsCalculator{
		logger: logger,
	}
}

// Stats represents statistical measures of a series
type Stats struct {
	Mean   float64 `json:"mean" yaml:"mean"`
	Median float64 `json:"median" yaml:"median"`
	P95    float64 `json:"p95" yaml:"p95"`
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
	StdDev float64 `json:"std_dev" yaml:"std_dev"`
	Count  int     `json:"count" yaml:"count"`
}

// Metrics is the aggregate view over every replayed attempt
type Metrics struct {
	TotalAttempts     int            `json:"total_attempts" yaml:"total_attempts"`
	Score             *Stats         `json:"score" yaml:"score"`
	ProcessingMs      *Stats         `json:"processing_ms" yaml:"processing_ms"`
	CorrectRate       float64        `json:"correct_rate" yaml:"correct_rate"`           // Fraction of attempts at or above the correct threshold
	ExternalRate      float64        `json:"external_rate" yaml:"external_rate"`         // Fraction scored by the external evaluator
	DegradedRate      float64        `json:"degraded_rate" yaml:"degraded_rate"`         // Fraction with undecodable audio
	LearningStates    map[string]int `json:"learning_states" yaml:"learning_states"`     // Count per learning state
	Emotions          map[string]int `json:"emotions" yaml:"emotions"`                   // Count per emotion type
	IssueFrequency    map[string]int `json:"issue_frequency" yaml:"issue_frequency"`     // Count per issue code
	ErrorCategories   map[string]int `json:"error_categories" yaml:"error_categories"`   // Count per input error category
	StrategyAdjusted  int            `json:"strategy_adjusted" yaml:"strategy_adjusted"` // Attempts with a negative emotion
	SessionsNeedBreak int            `json:"sessions_need_break" yaml:"sessions_need_break"`
}

// Calculate aggregates the attempt outcomes of every session
func (mc *MetricsCalculator) Calculate(sessions []*SessionReport, correctThreshold int) *Metrics {
	metrics := &Metrics{
		LearningStates:  make(map[string]int),
		Emotions:        make(map[string]int),
		IssueFrequency:  make(map[string]int),
		ErrorCategories: make(map[string]int),
	}

	var scores, durations []float64
	correct, external, degraded := 0, 0, 0

	for _, session := range sessions {
		needBreak := false
		for _, a := range session.Attempts {
			metrics.TotalAttempts++
			scores = append(scores, float64(a.Score))
			durations = append(durations, a.ProcessingMs)

			if a.Score >= correctThreshold {
				correct++
			}
			if a.Source == string(scoring.SourceExternal) {
				external++
			}
			if a.Degraded {
				degraded++
			}
			if a.StrategyAdjusted {
				metrics.StrategyAdjusted++
			}
			if a.LearningState == string(adaptive.StateNeedsBreak) {
				needBreak = true
			}

			metrics.LearningStates[a.LearningState]++
			metrics.Emotions[a.Emotion]++
			for _, code := range a.IssueCodes {
				metrics.IssueFrequency[code]++
			}
			if a.Error != "" {
				metrics.ErrorCategories[categorizeError(a.Error)]++
			}
		}
		if needBreak {
			metrics.SessionsNeedBreak++
		}
	}

	metrics.Score = mc.calculateStats(scores)
	metrics.ProcessingMs = mc.calculateStats(durations)

	if metrics.TotalAttempts > 0 {
		n := float64(metrics.TotalAttempts)
		metrics.CorrectRate = float64(correct) / n
		metrics.ExternalRate = float64(external) / n
		metrics.DegradedRate = float64(degraded) / n
	}

	mc.logger.Debug("Replay metrics calculated", logging.Fields{
		"attempts":     metrics.TotalAttempts,
		"mean_score":   metrics.Score.Mean,
		"correct_rate": metrics.CorrectRate,
	})

	return metrics
}

// calculateStats calculates statistical measures for a dataset
func (mc *MetricsCalculator) calculateStats(data []float64) *Stats {
	if len(data) == 0 {
		return &Stats{Count: 0}
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	mean, std := stat.PopMeanStdDev(sorted, nil)

	stats := &Stats{
		Count:  len(sorted),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Mean:   mean,
		StdDev: std,
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P95:    stat.Quantile(0.95, stat.Empirical, sorted, nil),
	}

	return sanitizeStats(stats)
}

// sanitizeStats removes infinite and NaN values
func sanitizeStats(stats *Stats) *Stats {
	for _, v := range []*float64{&stats.Mean, &stats.Median, &stats.P95, &stats.Min, &stats.Max, &stats.StdDev} {
		if math.IsInf(*v, 0) || math.IsNaN(*v) {
			*v = 0
		}
	}
	return stats
}

// categorizeError buckets input errors by their message
func categorizeError(msg string) string {
	switch {
	case containsAny(msg, "no such file", "does not exist", "permission denied"):
		return "file"
	case containsAny(msg, "EMPTY_AUDIO"):
		return "empty"
	case containsAny(msg, "UNSUPPORTED_FORMAT", "INVALID_FORMAT"):
		return "format"
	case containsAny(msg, "DECODING_FAILED", "decode"):
		return "decode"
	default:
		return "other"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
