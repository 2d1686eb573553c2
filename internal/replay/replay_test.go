package replay

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/speech-coach/internal/assessment"
	"github.com/RyanBlaney/speech-coach/internal/random"
	"github.com/RyanBlaney/speech-coach/pkg/audio/audiotest"
)

const manifestYAML = `
version: "1"
description: two learners
concurrency: 2
sessions:
  - id: alice
    attempts:
      - audio: clip.wav
        reference_text: 你好
        recognized_text: 你好
      - audio: clip.wav
        reference_text: 你好
      - audio: missing.wav
        reference_text: 谢谢
  - attempts:
      - audio: clip.wav
        reference_text: 再见
        attempt_count: 3
`

func writeFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	clip, err := audiotest.WAV(16000, audiotest.Silence(0.2), audiotest.Tone(1.5, 0.3), audiotest.Silence(0.2))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "clip.wav"), clip, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.yaml"), []byte(manifestYAML), 0644))
	return dir
}

func TestLoadManifest(t *testing.T) {
	dir := writeFixtures(t)

	m, err := LoadManifest(filepath.Join(dir, "manifest.yaml"))
	require.NoError(t, err)

	require.Len(t, m.Sessions, 2)
	assert.Equal(t, "alice", m.Sessions[0].ID)
	assert.Equal(t, "session-2", m.Sessions[1].ID)
	assert.Equal(t, 2, m.Concurrency)
	assert.Equal(t, 4, m.AttemptTotal())

	attempts := m.Sessions[0].Attempts
	assert.Equal(t, 1, attempts[0].AttemptCount)
	assert.Equal(t, 2, attempts[1].AttemptCount)
	assert.Equal(t, 1, attempts[2].AttemptCount)
	assert.Equal(t, 3, m.Sessions[1].Attempts[0].AttemptCount)

	assert.Equal(t, filepath.Join(dir, "clip.wav"), m.AudioPath(attempts[0]))
	assert.Equal(t, "/abs/x.wav", m.AudioPath(AttemptSpec{Audio: "/abs/x.wav"}))
}

func TestLoadManifestJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"sessions":[{"id":"s","attempts":[{"audio":"a.wav","reference_text":"好"}]}]}`), 0644))

	m, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "s", m.Sessions[0].ID)
}

func TestManifestValidation(t *testing.T) {
	tests := []struct {
		name   string
		yaml   string
		errMsg string
	}{
		{"no sessions", `version: "1"`, "no sessions"},
		{"duplicate id", "sessions:\n  - id: a\n    attempts: [{audio: x.wav}]\n  - id: a\n    attempts: [{audio: y.wav}]\n", "duplicate session"},
		{"no attempts", "sessions:\n  - id: a\n", "no attempts"},
		{"no audio", "sessions:\n  - id: a\n    attempts: [{reference_text: hi}]\n", "no audio path"},
		{"negative concurrency", "concurrency: -1\nsessions:\n  - id: a\n    attempts: [{audio: x.wav}]\n", "concurrency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.yaml), "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadManifestMissingFile(t *testing.T) {
	_, err := LoadManifest(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestOrchestratorRun(t *testing.T) {
	dir := writeFixtures(t)
	m, err := LoadManifest(filepath.Join(dir, "manifest.yaml"))
	require.NoError(t, err)

	pipeline := assessment.NewPipeline(nil, nil, assessment.WithRandom(random.Fixed(0)))
	o, err := NewOrchestrator(m, pipeline, 70, nil)
	require.NoError(t, err)

	report, err := o.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Sessions, 2)
	assert.False(t, report.Cancelled)
	assert.Equal(t, "two learners", report.Description)

	alice := report.Sessions[0]
	assert.Equal(t, "alice", alice.SessionID)
	require.Len(t, alice.Attempts, 3)
	for i, a := range alice.Attempts {
		assert.Equal(t, i+1, a.Index)
	}
	assert.Empty(t, alice.Attempts[0].Error)
	assert.Contains(t, alice.Attempts[2].Error, "no such file")
	assert.True(t, alice.Attempts[2].Degraded)
	require.NotNil(t, alice.Summary)
	assert.Equal(t, 3, alice.Summary.TotalAttempts)

	assert.Equal(t, 4, report.Metrics.TotalAttempts)
	assert.Equal(t, 4, report.Metrics.Score.Count)
	assert.Equal(t, 1, report.Metrics.ErrorCategories["file"])
	assert.InDelta(t, 0.25, report.Metrics.DegradedRate, 1e-9)
	assert.Equal(t, 2, pipeline.Registry().Len())
}

func TestOrchestratorCancelled(t *testing.T) {
	dir := writeFixtures(t)
	m, err := LoadManifest(filepath.Join(dir, "manifest.yaml"))
	require.NoError(t, err)

	o, err := NewOrchestrator(m, assessment.NewPipeline(nil, nil), 70, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := o.Run(ctx)
	require.Error(t, err)
	assert.True(t, report.Cancelled)
	assert.Zero(t, report.Metrics.TotalAttempts)
}

func TestNewOrchestratorRequiresInputs(t *testing.T) {
	_, err := NewOrchestrator(nil, assessment.NewPipeline(nil, nil), 70, nil)
	assert.Error(t, err)

	_, err = NewOrchestrator(&Manifest{}, nil, 70, nil)
	assert.Error(t, err)
}

func TestCalculateStats(t *testing.T) {
	mc := NewMetricsCalculator(nil)

	stats := mc.calculateStats([]float64{60, 70, 80, 90})
	assert.Equal(t, 4, stats.Count)
	assert.InDelta(t, 75, stats.Mean, 1e-9)
	assert.InDelta(t, 11.180, stats.StdDev, 1e-3)
	assert.Equal(t, 60.0, stats.Min)
	assert.Equal(t, 90.0, stats.Max)
	assert.Equal(t, 70.0, stats.Median)
	assert.Equal(t, 90.0, stats.P95)

	assert.Equal(t, 0, mc.calculateStats(nil).Count)
}

func TestCategorizeError(t *testing.T) {
	assert.Equal(t, "file", categorizeError("open x.wav: no such file or directory"))
	assert.Equal(t, "empty", categorizeError("unknown EMPTY_AUDIO: no audio supplied"))
	assert.Equal(t, "format", categorizeError("webm UNSUPPORTED_FORMAT: nope"))
	assert.Equal(t, "decode", categorizeError("wav DECODING_FAILED: bad header"))
	assert.Equal(t, "other", categorizeError("boom"))
}
