package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jinzhu/copier"
	"github.com/target/mmk-content-dashboard/internal/core"
	"github.com/target/mmk-content-dashboard/internal/domain/model"
	apperrors "github.com/target/mmk-content-dashboard/internal/errors"
	"gopkg.in/yaml.v3"
)

const (
	defaultHistoryLimit = 50
	maxImportBytes      = 1 << 20
)

// SettingsServiceOptions groups dependencies for SettingsService.
type SettingsServiceOptions struct {
	Repo   core.SettingsRepository
	Config SettingsServiceConfig
}

// SettingsServiceConfig tunes settings history.
type SettingsServiceConfig struct {
	// HistoryLimit is the number of versions kept after each save.
	HistoryLimit int
	Logger       *slog.Logger
}

// SettingsService manages the versioned pipeline settings.
type SettingsService struct {
	repo   core.SettingsRepository
	limit  int
	logger *slog.Logger
}

// NewSettingsService constructs a new SettingsService.
func NewSettingsService(opts SettingsServiceOptions) *SettingsService {
	if opts.Repo == nil {
		panic("SettingsRepository is required")
	}
	limit := opts.Config.HistoryLimit
	if limit < 1 {
		limit = defaultHistoryLimit
	}
	logger := opts.Config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsService{repo: opts.Repo, limit: limit, logger: logger.With("component", "settings_service")}
}

// Current returns the newest saved version, or the defaults as version 0 when
// nothing has been saved.
func (s *SettingsService) Current(ctx context.Context) (*model.SettingsVersion, error) {
	v, err := s.repo.Latest(ctx)
	if err == nil {
		return v, nil
	}
	if apperrors.IsNotFound(err) {
		return &model.SettingsVersion{Settings: model.DefaultPipelineSettings()}, nil
	}
	return nil, fmt.Errorf("load current settings: %w", err)
}

// Save validates settings and appends them as the next version.
func (s *SettingsService) Save(ctx context.Context, settings model.PipelineSettings, comment, author string) (*model.SettingsVersion, error) {
	if err := settings.Validate(); err != nil {
		return nil, apperrors.ValidationField("settings", err.Error())
	}

	var snapshot model.PipelineSettings
	if err := copier.CopyWithOption(&snapshot, &settings, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("copy settings: %w", err)
	}

	entry := &model.SettingsVersion{Settings: snapshot, Comment: comment, Author: author}
	saved, err := s.repo.Append(ctx, entry)
	if apperrors.IsConflict(err) {
		// A concurrent save took the version; the next attempt re-reads the head.
		saved, err = s.repo.Append(ctx, entry)
	}
	if err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}

	removed, err := s.repo.Prune(ctx, s.limit)
	if err != nil {
		s.logger.WarnContext(ctx, "pruning settings history failed", "error", err)
	} else if removed > 0 {
		s.logger.DebugContext(ctx, "pruned settings history", "removed", removed, "keep", s.limit)
	}

	s.logger.InfoContext(ctx, "settings saved", "version", saved.Version, "author", author)
	return saved, nil
}

// History returns up to limit versions, newest first.
func (s *SettingsService) History(ctx context.Context, limit int) ([]*model.SettingsVersion, error) {
	if limit <= 0 || limit > s.limit {
		limit = s.limit
	}
	out, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list settings history: %w", err)
	}
	return out, nil
}

// Get returns one stored version.
func (s *SettingsService) Get(ctx context.Context, version int) (*model.SettingsVersion, error) {
	return s.repo.Get(ctx, version)
}

// Restore saves an old version's settings as the new head.
func (s *SettingsService) Restore(ctx context.Context, version int, author string) (*model.SettingsVersion, error) {
	old, err := s.repo.Get(ctx, version)
	if err != nil {
		return nil, err
	}
	return s.Save(ctx, old.Settings, fmt.Sprintf("restore of version %d", version), author)
}

// Export renders the current settings as YAML.
func (s *SettingsService) Export(ctx context.Context) ([]byte, error) {
	current, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(current); err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	return buf.Bytes(), nil
}

// Import reads a YAML document produced by Export and saves its settings as a
// new version. Unknown fields are rejected.
func (s *SettingsService) Import(ctx context.Context, r io.Reader, author string) (*model.SettingsVersion, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxImportBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read settings document: %w", err)
	}
	if len(data) > maxImportBytes {
		return nil, apperrors.TooLarge("settings document is too large")
	}

	var doc model.SettingsVersion
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperrors.Validation("settings document is empty")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "settings document is not valid YAML")
	}

	comment := doc.Comment
	if doc.Version > 0 {
		comment = fmt.Sprintf("import of version %d", doc.Version)
		if doc.Comment != "" {
			comment += ": " + doc.Comment
		}
	}
	return s.Save(ctx, doc.Settings, comment, author)
}
