package emotion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/speech-coach/internal/random"
	"github.com/RyanBlaney/speech-coach/pkg/audio/features"
)

func intPtr(v int) *int { return &v }

func baseFeatures() *features.AudioFeatures {
	return &features.AudioFeatures{
		DurationSec:       0.8,
		RMSEnergy:         200,
		SilenceRatio:      0.2,
		EnergyTrend:       features.TrendStable,
		EnergyConsistency: 0.5,
		SpeakingRate:      1.5,
	}
}

func TestEngineInfer(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(f *features.AudioFeatures)
		score     *int
		attempts  int
		wantState State
		wantType  Type
		wantConf  float64
	}{
		{
			name: "confident reader",
			mutate: func(f *features.AudioFeatures) {
				f.DurationSec, f.RMSEnergy, f.EnergyConsistency, f.SpeakingRate = 2.0, 600, 0.8, 3
			},
			score: intPtr(90), attempts: 1,
			wantState: StateConfident, wantType: TypeHappy, wantConf: 0.9,
		},
		{
			name:      "low signal falls back to neutral",
			mutate:    func(f *features.AudioFeatures) {},
			attempts:  1,
			wantState: StateNeutral, wantType: TypeNeutral, wantConf: 0.5,
		},
		{
			name: "struggling after repeated attempts",
			mutate: func(f *features.AudioFeatures) {
				f.DurationSec, f.RMSEnergy, f.EnergyTrend = 2.0, 100, features.TrendDecreasing
			},
			score: intPtr(30), attempts: 4,
			wantState: StateFrustrated, wantType: TypeFrustrated, wantConf: 0.6,
		},
		{
			name:      "tie goes to the earlier state",
			mutate:    func(f *features.AudioFeatures) { f.DurationSec, f.RMSEnergy = 1.5, 300 },
			attempts:  1,
			wantState: StateConfident, wantType: TypeHappy, wantConf: 0.2,
		},
		{
			name: "fast speech reads as anxious",
			mutate: func(f *features.AudioFeatures) {
				f.DurationSec, f.SpeakingRate, f.EnergyTrend, f.PauseCount = 0.5, 7, features.TrendIncreasing, 4
			},
			attempts:  1,
			wantState: StateAnxious, wantType: TypeConfused, wantConf: 0.5,
		},
	}

	engine := NewEngine(nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := baseFeatures()
			tt.mutate(f)
			result := engine.Infer(Observation{Features: f, Score: tt.score, AttemptCount: tt.attempts})

			assert.Equal(t, tt.wantState, result.State)
			assert.Equal(t, tt.wantType, result.Type)
			assert.InDelta(t, tt.wantConf, result.Confidence, 1e-9)
			assert.True(t, result.RuleBased)
			assert.False(t, result.AIDetected)
			assert.Len(t, result.Indicators, 6)
		})
	}
}

func TestEngineWithoutFeatures(t *testing.T) {
	result := NewEngine(nil, nil).Infer(Observation{AttemptCount: 1})

	assert.Equal(t, StateHesitant, result.State)
	assert.Equal(t, TypeConfused, result.Type)
	assert.Equal(t, "犹豫", result.Label)
}

func TestEveryStateMapsToAnExternalType(t *testing.T) {
	for _, s := range States {
		p := ProfileFor(s)
		assert.True(t, p.Type.Valid(), "state %s", s)
		assert.Len(t, p.Encouragements, 3)
		assert.NotEmpty(t, p.Label)
		assert.NotEmpty(t, p.Tip)
	}
	assert.Equal(t, StateNeutral, ProfileFor("bored").State)
}

func TestRulesAreIndependentlyTestable(t *testing.T) {
	byName := map[string]Rule{}
	for _, r := range DefaultRules {
		byName[r.Name] = r
	}

	f := baseFeatures()
	f.SilenceRatio = 0.6
	require.Contains(t, byName, "silence_high")
	assert.True(t, byName["silence_high"].Applies(Observation{Features: f}))
	assert.False(t, byName["score_good"].Applies(Observation{Features: f}))
	assert.True(t, byName["score_good"].Applies(Observation{Features: f, Score: intPtr(70)}))
	assert.False(t, byName["score_good"].Applies(Observation{Features: f, Score: intPtr(85)}))
}

func TestWinnerOrder(t *testing.T) {
	state, votes := Winner(Votes{StateAnxious: 3, StateHesitant: 3})
	assert.Equal(t, StateHesitant, state)
	assert.Equal(t, 3, votes)
}

func TestAdaptiveEncouragement(t *testing.T) {
	// index 4 exists only once the break lines are added
	assert.Equal(t, "我们可以先跳过，稍后再回来看。", AdaptiveEncouragement(TypeFrustrated, 3, random.Fixed(4)))
	assert.Equal(t, "你已经做得不错了。", AdaptiveEncouragement(TypeFrustrated, 1, random.Fixed(4)))
	assert.Equal(t, "你读得很稳。", AdaptiveEncouragement(TypeHappy, 5, random.Fixed(0)))

	src := random.New(7)
	pool := ProfileFor(StateConfused).Encouragements
	for i := 0; i < 10; i++ {
		line := AdaptiveEncouragement(TypeConfused, 1, src)
		assert.Contains(t, pool, line)
	}
}
