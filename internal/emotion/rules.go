package emotion

import (
	"github.com/RyanBlaney/speech-coach/pkg/audio/features"
)

// Observation is what the vote rules look at
type Observation struct {
	Features     *features.AudioFeatures
	Score        *int // nil when no score is known yet
	AttemptCount int
}

// Votes maps internal states to vote weights
type Votes map[State]int

// Rule casts its votes when the predicate holds
type Rule struct {
	Name    string
	Applies func(obs Observation) bool
	Votes   Votes
}

func duration(o Observation) float64 { return o.Features.DurationSec }
func rms(o Observation) float64      { return o.Features.RMSEnergy }
func rate(o Observation) float64     { return o.Features.SpeakingRate }

func scoreIn(lo, hi int) func(Observation) bool {
	return func(o Observation) bool {
		return o.Score != nil && *o.Score >= lo && *o.Score < hi
	}
}

// DefaultRules is the vote table used by the engine. Rules within one group
// (duration, volume, consistency, rate, score, attempts) are mutually exclusive.
var DefaultRules = []Rule{
	{
		Name:    "duration_steady",
		Applies: func(o Observation) bool { return duration(o) >= 1.0 && duration(o) <= 3.5 },
		Votes:   Votes{StateConfident: 2, StateNeutral: 1},
	},
	{
		Name:    "duration_very_short",
		Applies: func(o Observation) bool { return duration(o) < 0.6 },
		Votes:   Votes{StateHesitant: 2, StateAnxious: 1},
	},
	{
		Name:    "duration_very_long",
		Applies: func(o Observation) bool { return duration(o) > 5.0 },
		Votes:   Votes{StateConfused: 2},
	},
	{
		Name:    "volume_high",
		Applies: func(o Observation) bool { return rms(o) > 500 },
		Votes:   Votes{StateConfident: 2},
	},
	{
		Name:    "volume_low",
		Applies: func(o Observation) bool { return rms(o) < 150 },
		Votes:   Votes{StateHesitant: 2, StateFrustrated: 1},
	},
	{
		Name:    "volume_moderate",
		Applies: func(o Observation) bool { return rms(o) >= 150 && rms(o) <= 500 },
		Votes:   Votes{StateNeutral: 1},
	},
	{
		Name:    "silence_high",
		Applies: func(o Observation) bool { return o.Features.SilenceRatio > 0.5 },
		Votes:   Votes{StateConfused: 2, StateHesitant: 1},
	},
	{
		Name:    "pauses_many",
		Applies: func(o Observation) bool { return o.Features.PauseCount > 3 },
		Votes:   Votes{StateHesitant: 1, StateAnxious: 1},
	},
	{
		Name:    "pause_long",
		Applies: func(o Observation) bool { return o.Features.MaxPauseDurationSec > 1.0 },
		Votes:   Votes{StateConfused: 1},
	},
	{
		Name:    "energy_decreasing",
		Applies: func(o Observation) bool { return o.Features.EnergyTrend == features.TrendDecreasing },
		Votes:   Votes{StateFrustrated: 1, StateHesitant: 1},
	},
	{
		Name:    "energy_increasing",
		Applies: func(o Observation) bool { return o.Features.EnergyTrend == features.TrendIncreasing },
		Votes:   Votes{StateAnxious: 1},
	},
	{
		Name:    "consistency_high",
		Applies: func(o Observation) bool { return o.Features.EnergyConsistency > 0.7 },
		Votes:   Votes{StateConfident: 1},
	},
	{
		Name:    "consistency_low",
		Applies: func(o Observation) bool { return o.Features.EnergyConsistency < 0.4 },
		Votes:   Votes{StateConfused: 1},
	},
	{
		Name:    "rate_very_fast",
		Applies: func(o Observation) bool { return rate(o) > 6 },
		Votes:   Votes{StateAnxious: 2},
	},
	{
		Name:    "rate_very_slow",
		Applies: func(o Observation) bool { return rate(o) < 1 },
		Votes:   Votes{StateHesitant: 1},
	},
	{
		Name:    "rate_moderate",
		Applies: func(o Observation) bool { return rate(o) >= 2 && rate(o) <= 5 },
		Votes:   Votes{StateConfident: 1, StateNeutral: 1},
	},
	{
		Name:    "score_excellent",
		Applies: func(o Observation) bool { return o.Score != nil && *o.Score >= 85 },
		Votes:   Votes{StateConfident: 3},
	},
	{
		Name:    "score_good",
		Applies: scoreIn(70, 85),
		Votes:   Votes{StateNeutral: 2},
	},
	{
		Name:    "score_fair",
		Applies: scoreIn(50, 70),
		Votes:   Votes{StateHesitant: 1, StateConfused: 1},
	},
	{
		Name:    "score_poor",
		Applies: func(o Observation) bool { return o.Score != nil && *o.Score < 50 },
		Votes:   Votes{StateFrustrated: 2, StateConfused: 1},
	},
	{
		Name:    "attempts_many",
		Applies: func(o Observation) bool { return o.AttemptCount >= 3 },
		Votes:   Votes{StateFrustrated: 2},
	},
	{
		Name:    "attempt_second",
		Applies: func(o Observation) bool { return o.AttemptCount == 2 },
		Votes:   Votes{StateHesitant: 1},
	},
}

// Tally runs every rule and sums the votes; all six states are present in the result
func Tally(rules []Rule, obs Observation) (Votes, []string) {
	votes := make(Votes, len(States))
	for _, s := range States {
		votes[s] = 0
	}

	var fired []string
	for _, rule := range rules {
		if !rule.Applies(obs) {
			continue
		}
		fired = append(fired, rule.Name)
		for state, weight := range rule.Votes {
			votes[state] += weight
		}
	}
	return votes, fired
}

// Winner picks the state with the most votes; ties go to the earlier state in States
func Winner(votes Votes) (State, int) {
	best, strength := StateNeutral, -1
	for _, s := range States {
		if votes[s] > strength {
			best, strength = s, votes[s]
		}
	}
	return best, strength
}
