// Package devseed fills an empty development database with a short settings
// history so the dashboard has something to show and restore.
package devseed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/target/mmk-content-dashboard/internal/domain/model"
)

// SettingsStore is the part of the settings service the seeder needs.
type SettingsStore interface {
	Current(ctx context.Context) (*model.SettingsVersion, error)
	Save(ctx context.Context, settings model.PipelineSettings, comment, author string) (*model.SettingsVersion, error)
}

// Author is recorded on every seeded version.
const Author = "devseed"

type settingsSeed struct {
	comment string
	apply   func(*model.PipelineSettings)
}

// defaultSettingsSeeds are applied in order, each on top of the previous one.
func defaultSettingsSeeds() []settingsSeed {
	return []settingsSeed{
		{comment: "initial defaults", apply: func(*model.PipelineSettings) {}},
		{comment: "shorter drafts for local runs", apply: func(s *model.PipelineSettings) {
			s.TargetWordCount = 600
			s.MaxRetries = 1
		}},
		{comment: "review every generated step", apply: func(s *model.PipelineSettings) {
			s.Tone = "conversational"
			s.RequireApproval = []string{
				"seo_keywords",
				"marketing_brief",
				"article_generation",
				"seo_optimization",
			}
			s.Extra = map[string]any{"seeded": true}
		}},
	}
}

// Run seeds settings history unless a version already exists. It returns the
// number of versions it saved.
func Run(ctx context.Context, store SettingsStore, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}

	current, err := store.Current(ctx)
	if err != nil {
		return 0, fmt.Errorf("load current settings: %w", err)
	}
	if current.Version > 0 {
		logger.InfoContext(ctx, "settings history already present; skipping seed", "version", current.Version)
		return 0, nil
	}

	settings := model.DefaultPipelineSettings()
	seeded := 0
	for _, seed := range defaultSettingsSeeds() {
		seed.apply(&settings)
		v, err := store.Save(ctx, settings, seed.comment, Author)
		if err != nil {
			return seeded, fmt.Errorf("seed %q: %w", seed.comment, err)
		}
		seeded++
		logger.InfoContext(ctx, "seeded settings version", "version", v.Version, "comment", seed.comment)
	}
	return seeded, nil
}
