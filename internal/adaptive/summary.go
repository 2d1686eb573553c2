package adaptive

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Performance is the overall tier of a session
type Performance string

const (
	PerformanceExcellent     Performance = "excellent"
	PerformanceGood          Performance = "good"
	PerformanceNeedsPractice Performance = "needs_practice"
)

var summaryMessages = map[Performance]string{
	PerformanceExcellent:     "太棒了！今天学得非常好！",
	PerformanceGood:          "不错！继续努力会更好！",
	PerformanceNeedsPractice: "多练习就会进步的！加油！",
}

// Summary describes a session so far
type Summary struct {
	SessionID          string          `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	TotalAttempts      int             `json:"total_attempts" yaml:"total_attempts"`
	CorrectCount       int             `json:"correct_count" yaml:"correct_count"`
	Accuracy           float64         `json:"accuracy" yaml:"accuracy"`           // Percent, one decimal
	AverageScore       float64         `json:"average_score" yaml:"average_score"` // One decimal
	DurationMinutes    int             `json:"duration_minutes" yaml:"duration_minutes"`
	DifficultyLevel    DifficultyLevel `json:"difficulty_level" yaml:"difficulty_level"`
	OverallPerformance Performance     `json:"overall_performance" yaml:"overall_performance"`
	SummaryMessage     string          `json:"summary_message" yaml:"summary_message"`
}

// Summary derives accuracy, average score and the overall tier
func (c *Controller) Summary() *Summary {
	c.mu.Lock()
	stats := c.stats.clone()
	now := c.clock()
	c.mu.Unlock()

	summary := summarize(stats, now.Sub(stats.StartTime).Minutes())
	summary.SessionID = c.id
	return summary
}

func summarize(stats *SessionStats, elapsedMinutes float64) *Summary {
	accuracy := 0.0
	if stats.TotalAttempts > 0 {
		accuracy = float64(stats.CorrectCount) / float64(stats.TotalAttempts) * 100
	}

	avg := 0.0
	if len(stats.ScoreHistory) > 0 {
		scores := make([]float64, len(stats.ScoreHistory))
		for i, s := range stats.ScoreHistory {
			scores[i] = float64(s)
		}
		avg = stat.Mean(scores, nil)
	}

	var overall Performance
	switch {
	case accuracy >= 80 && avg >= 85:
		overall = PerformanceExcellent
	case accuracy >= 60 && avg >= 70:
		overall = PerformanceGood
	default:
		overall = PerformanceNeedsPractice
	}

	return &Summary{
		TotalAttempts:      stats.TotalAttempts,
		CorrectCount:       stats.CorrectCount,
		Accuracy:           round1(accuracy),
		AverageScore:       round1(avg),
		DurationMinutes:    int(math.Max(0, elapsedMinutes)),
		DifficultyLevel:    stats.DifficultyLevel,
		OverallPerformance: overall,
		SummaryMessage:     summaryMessages[overall],
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
