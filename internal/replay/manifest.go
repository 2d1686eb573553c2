package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Manifest lists recorded practice sessions to run through the pipeline
type Manifest struct {
	Version     string        `yaml:"version" json:"version"`
	Description string        `yaml:"description,omitempty" json:"description,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`           // Whole replay deadline; zero means none
	Concurrency int           `yaml:"concurrency,omitempty" json:"concurrency,omitempty"`   // Sessions replayed at once; zero means all
	Sessions    []SessionSpec `yaml:"sessions" json:"sessions"`

	baseDir string
}

// SessionSpec is one learner session, replayed in order
type SessionSpec struct {
	ID       string        `yaml:"id" json:"id"`
	Attempts []AttemptSpec `yaml:"attempts" json:"attempts"`
}

// AttemptSpec is one recorded attempt
type AttemptSpec struct {
	Audio          string `yaml:"audio" json:"audio"` // Path relative to the manifest
	Format         string `yaml:"format,omitempty" json:"format,omitempty"`
	ReferenceText  string `yaml:"reference_text" json:"reference_text"`
	RecognizedText string `yaml:"recognized_text,omitempty" json:"recognized_text,omitempty"`
	AttemptCount   int    `yaml:"attempt_count,omitempty" json:"attempt_count,omitempty"` // Defaults to the position among attempts with the same reference
}

// LoadManifest reads a yaml or json manifest
func LoadManifest(filePath string) (*Manifest, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("manifest file does not exist: %s", filePath)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest *Manifest
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".json":
		manifest, err = parseJSON(data)
	case ".yaml", ".yml":
		manifest, err = parseYAML(data)
	default:
		// Try YAML first, then JSON
		if manifest, err = parseYAML(data); err != nil {
			manifest, err = parseJSON(data)
		}
	}
	if err != nil {
		return nil, err
	}

	manifest.baseDir = filepath.Dir(filePath)
	manifest.applyDefaults()

	if err := manifest.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return manifest, nil
}

// ParseManifest decodes yaml manifest content; audio paths resolve against baseDir
func ParseManifest(data []byte, baseDir string) (*Manifest, error) {
	manifest, err := parseYAML(data)
	if err != nil {
		return nil, err
	}
	manifest.baseDir = baseDir
	manifest.applyDefaults()
	if err := manifest.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return manifest, nil
}

func parseYAML(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse YAML manifest: %w", err)
	}
	return &m, nil
}

func parseJSON(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse JSON manifest: %w", err)
	}
	return &m, nil
}

// applyDefaults names anonymous sessions and numbers repeated attempts
func (m *Manifest) applyDefaults() {
	for i := range m.Sessions {
		s := &m.Sessions[i]
		if s.ID == "" {
			s.ID = fmt.Sprintf("session-%d", i+1)
		}

		seen := make(map[string]int)
		for j := range s.Attempts {
			a := &s.Attempts[j]
			seen[a.ReferenceText]++
			if a.AttemptCount <= 0 {
				a.AttemptCount = seen[a.ReferenceText]
			}
		}
	}
}

// Validate checks the manifest is replayable
func (m *Manifest) Validate() error {
	if len(m.Sessions) == 0 {
		return fmt.Errorf("no sessions defined")
	}
	if m.Concurrency < 0 {
		return fmt.Errorf("concurrency cannot be negative")
	}

	ids := make(map[string]bool)
	for _, s := range m.Sessions {
		if ids[s.ID] {
			return fmt.Errorf("duplicate session id %q", s.ID)
		}
		ids[s.ID] = true

		if len(s.Attempts) == 0 {
			return fmt.Errorf("session %q has no attempts", s.ID)
		}
		for i, a := range s.Attempts {
			if strings.TrimSpace(a.Audio) == "" {
				return fmt.Errorf("session %q attempt %d has no audio path", s.ID, i+1)
			}
		}
	}
	return nil
}

// AudioPath resolves an attempt's audio file
func (m *Manifest) AudioPath(a AttemptSpec) string {
	if filepath.IsAbs(a.Audio) || m.baseDir == "" {
		return a.Audio
	}
	return filepath.Join(m.baseDir, a.Audio)
}

// AttemptTotal counts attempts across sessions
func (m *Manifest) AttemptTotal() int {
	total := 0
	for _, s := range m.Sessions {
		total += len(s.Attempts)
	}
	return total
}
