package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/speech-coach/configs"
	"github.com/RyanBlaney/speech-coach/internal/assessment"
	"github.com/RyanBlaney/speech-coach/pkg/audio/audiotest"
)

func testConfig() *configs.Config {
	cfg := configs.GetDefaultConfig()
	cfg.Scoring.Evaluator.Enabled = false
	return cfg
}

func TestPipelineConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Adaptive.Registry.Seed = 42

	pc := PipelineConfig(cfg)

	assert.Same(t, &cfg.Audio.Extractor, pc.Extractor)
	assert.Same(t, &cfg.Scoring.Evaluator, pc.Evaluator)
	assert.Same(t, &cfg.Adaptive.Policy, pc.Policy)
	assert.Equal(t, int64(42), pc.Seed)
}

func TestNewAppRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Adaptive.Policy.NegativeWindow = 0

	_, err := NewApp(&Context{Config: cfg})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative window")
}

func TestAssessFileAndOutput(t *testing.T) {
	dir := t.TempDir()
	clip, err := audiotest.WAV(16000, audiotest.Silence(0.2), audiotest.Tone(1.5, 0.3), audiotest.Silence(0.2))
	require.NoError(t, err)
	audioPath := filepath.Join(dir, "clip.wav")
	require.NoError(t, os.WriteFile(audioPath, clip, 0644))

	outPath := filepath.Join(dir, "out", "result.json")
	a, err := NewApp(&Context{Config: testConfig(), OutputFormat: "json", OutputFile: outPath})
	require.NoError(t, err)

	result, err := a.AssessFile(context.Background(), audioPath, assessment.Request{ReferenceText: "你好", SessionID: "cli"})
	require.NoError(t, err)
	assert.Equal(t, "cli", result.SessionID)
	assert.NotNil(t, result.Features)

	require.NoError(t, a.OutputResults(Timestamped("assessment", result)))
	written, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(written), `"feedback_text"`)
	assert.Contains(t, string(written), `"timestamp"`)
}

func TestAssessFileMissing(t *testing.T) {
	a, err := NewApp(&Context{Config: testConfig()})
	require.NoError(t, err)

	_, err = a.AssessFile(context.Background(), filepath.Join(t.TempDir(), "none.wav"), assessment.Request{})
	require.Error(t, err)
}

func TestGenerateAndValidateConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "speech-coach.yaml")

	require.NoError(t, GenerateExampleConfig(path))

	cfg, err := ValidateConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Audio.Extractor.FrameMs)
	assert.Equal(t, ":8080", cfg.Server.Listen)
}

func TestValidateConfigFileRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("audio:\n  frame_ms: 10\n"), 0644))

	_, err := ValidateConfigFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "frame_ms")
}
