package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// PipelineSettings are the operator-tunable defaults applied to new pipeline runs.
type PipelineSettings struct {
	Model           string         `json:"model"                      yaml:"model"`
	Temperature     float64        `json:"temperature"                yaml:"temperature"`
	Tone            string         `json:"tone,omitempty"             yaml:"tone,omitempty"`
	TargetWordCount int            `json:"target_word_count"          yaml:"target_word_count"`
	RequireApproval []string       `json:"require_approval,omitempty" yaml:"require_approval,omitempty"`
	MaxRetries      int            `json:"max_retries"                yaml:"max_retries"`
	Extra           map[string]any `json:"extra,omitempty"            yaml:"extra,omitempty"`
}

// DefaultPipelineSettings returns the settings used before any version is saved.
func DefaultPipelineSettings() PipelineSettings {
	return PipelineSettings{
		Model:           "default",
		Temperature:     0.7,
		Tone:            "professional",
		TargetWordCount: 1200,
		RequireApproval: []string{"marketing_brief", "article_generation"},
		MaxRetries:      2,
	}
}

// Validate validates the PipelineSettings fields.
func (s *PipelineSettings) Validate() error {
	if strings.TrimSpace(s.Model) == "" {
		return errors.New("model is required")
	}
	if s.Temperature < 0 || s.Temperature > 2 {
		return errors.New("temperature must be between 0 and 2")
	}
	if s.TargetWordCount < 0 {
		return errors.New("target word count must be >= 0")
	}
	if s.MaxRetries < 0 || s.MaxRetries > 10 {
		return errors.New("max retries must be between 0 and 10")
	}
	seen := make(map[string]struct{}, len(s.RequireApproval))
	for _, step := range s.RequireApproval {
		if strings.TrimSpace(step) == "" {
			return errors.New("require_approval must not contain empty step names")
		}
		if _, dup := seen[step]; dup {
			return fmt.Errorf("require_approval lists %q twice", step)
		}
		seen[step] = struct{}{}
	}
	return nil
}

// SettingsVersion is one entry of the settings history. Versions start at 1
// and increase by one per save.
type SettingsVersion struct {
	Version   int              `json:"version"    yaml:"version"`
	Settings  PipelineSettings `json:"settings"   yaml:"settings"`
	Comment   string           `json:"comment"    yaml:"comment,omitempty"`
	Author    string           `json:"author"     yaml:"author,omitempty"`
	CreatedAt time.Time        `json:"created_at" yaml:"created_at"`
}
