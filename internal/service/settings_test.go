package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/mmk-content-dashboard/internal/domain/model"
	apperrors "github.com/target/mmk-content-dashboard/internal/errors"
	"github.com/target/mmk-content-dashboard/internal/mocks"
	"go.uber.org/mock/gomock"
)

func newSettingsService(t *testing.T, limit int) (*SettingsService, *mocks.MockSettingsRepository) {
	t.Helper()
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockSettingsRepository(ctrl)
	return NewSettingsService(SettingsServiceOptions{Repo: repo, Config: SettingsServiceConfig{HistoryLimit: limit}}), repo
}

func echoAppend(version int) func(context.Context, *model.SettingsVersion) (*model.SettingsVersion, error) {
	return func(_ context.Context, v *model.SettingsVersion) (*model.SettingsVersion, error) {
		out := *v
		out.Version = version
		out.CreatedAt = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		return &out, nil
	}
}

func TestNewSettingsService_RequiresRepo(t *testing.T) {
	assert.Panics(t, func() { NewSettingsService(SettingsServiceOptions{}) })
}

func TestSettingsService_CurrentDefaults(t *testing.T) {
	svc, repo := newSettingsService(t, 5)
	repo.EXPECT().Latest(gomock.Any()).Return(nil, apperrors.NotFound("no settings have been saved"))

	current, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, current.Version)
	assert.Equal(t, model.DefaultPipelineSettings(), current.Settings)
}

func TestSettingsService_CurrentError(t *testing.T) {
	svc, repo := newSettingsService(t, 5)
	repo.EXPECT().Latest(gomock.Any()).Return(nil, errors.New("connection reset"))

	_, err := svc.Current(context.Background())
	require.Error(t, err)
}

func TestSettingsService_SaveDeepCopies(t *testing.T) {
	svc, repo := newSettingsService(t, 5)
	settings := model.DefaultPipelineSettings()
	settings.Extra = map[string]any{"brand": "acme"}

	var appended *model.SettingsVersion
	repo.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, v *model.SettingsVersion) (*model.SettingsVersion, error) {
			appended = v
			return echoAppend(3)(ctx, v)
		})
	repo.EXPECT().Prune(gomock.Any(), 5).Return(int64(0), nil)

	saved, err := svc.Save(context.Background(), settings, "tone tweak", "sam")
	require.NoError(t, err)
	assert.Equal(t, 3, saved.Version)
	assert.Equal(t, "tone tweak", saved.Comment)
	assert.Equal(t, "sam", saved.Author)

	settings.RequireApproval[0] = "mutated"
	settings.Extra["brand"] = "mutated"
	assert.Equal(t, "marketing_brief", appended.Settings.RequireApproval[0])
	assert.Equal(t, "acme", appended.Settings.Extra["brand"])
	assert.Zero(t, appended.Version)
}

func TestSettingsService_SaveRejectsInvalid(t *testing.T) {
	svc, _ := newSettingsService(t, 5)
	bad := model.DefaultPipelineSettings()
	bad.Temperature = 3

	_, err := svc.Save(context.Background(), bad, "", "sam")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "settings", apperrors.GetField(err))
}

func TestSettingsService_SaveRetriesConflictOnce(t *testing.T) {
	svc, repo := newSettingsService(t, 5)
	gomock.InOrder(
		repo.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil, apperrors.Conflict("settings version 2 already exists")),
		repo.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(echoAppend(3)),
		repo.EXPECT().Prune(gomock.Any(), 5).Return(int64(1), nil),
	)

	saved, err := svc.Save(context.Background(), model.DefaultPipelineSettings(), "", "sam")
	require.NoError(t, err)
	assert.Equal(t, 3, saved.Version)
}

func TestSettingsService_SaveIgnoresPruneFailure(t *testing.T) {
	svc, repo := newSettingsService(t, 5)
	repo.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(echoAppend(1))
	repo.EXPECT().Prune(gomock.Any(), 5).Return(int64(0), errors.New("lock timeout"))

	saved, err := svc.Save(context.Background(), model.DefaultPipelineSettings(), "", "sam")
	require.NoError(t, err)
	assert.Equal(t, 1, saved.Version)
}

func TestSettingsService_History(t *testing.T) {
	svc, repo := newSettingsService(t, 5)
	repo.EXPECT().List(gomock.Any(), 5).Return([]*model.SettingsVersion{{Version: 2}, {Version: 1}}, nil).Times(2)
	repo.EXPECT().List(gomock.Any(), 3).Return([]*model.SettingsVersion{{Version: 2}}, nil)

	for _, limit := range []int{0, 99} {
		out, err := svc.History(context.Background(), limit)
		require.NoError(t, err)
		assert.Len(t, out, 2)
	}
	out, err := svc.History(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestSettingsService_Restore(t *testing.T) {
	svc, repo := newSettingsService(t, 5)
	old := model.DefaultPipelineSettings()
	old.Tone = "playful"

	repo.EXPECT().Get(gomock.Any(), 2).Return(&model.SettingsVersion{Version: 2, Settings: old}, nil)
	repo.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(echoAppend(6))
	repo.EXPECT().Prune(gomock.Any(), 5).Return(int64(1), nil)

	saved, err := svc.Restore(context.Background(), 2, "ops")
	require.NoError(t, err)
	assert.Equal(t, 6, saved.Version)
	assert.Equal(t, "playful", saved.Settings.Tone)
	assert.Equal(t, "restore of version 2", saved.Comment)
	assert.Equal(t, "ops", saved.Author)
}

func TestSettingsService_RestoreMissing(t *testing.T) {
	svc, repo := newSettingsService(t, 5)
	repo.EXPECT().Get(gomock.Any(), 9).Return(nil, apperrors.NotFoundf("settings version %d not found", 9))

	_, err := svc.Restore(context.Background(), 9, "ops")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSettingsService_ExportImport(t *testing.T) {
	svc, repo := newSettingsService(t, 5)
	stored := model.DefaultPipelineSettings()
	stored.Tone = "bold"
	repo.EXPECT().Latest(gomock.Any()).Return(&model.SettingsVersion{
		Version:   7,
		Settings:  stored,
		Comment:   "launch",
		Author:    "sam",
		CreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}, nil)

	doc, err := svc.Export(context.Background())
	require.NoError(t, err)
	assert.Contains(t, string(doc), "version: 7")
	assert.Contains(t, string(doc), "tone: bold")

	repo.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(echoAppend(8))
	repo.EXPECT().Prune(gomock.Any(), 5).Return(int64(0), nil)

	imported, err := svc.Import(context.Background(), strings.NewReader(string(doc)), "ops")
	require.NoError(t, err)
	assert.Equal(t, 8, imported.Version)
	assert.Equal(t, "bold", imported.Settings.Tone)
	assert.Equal(t, stored.Model, imported.Settings.Model)
	assert.Equal(t, stored.RequireApproval, imported.Settings.RequireApproval)
	assert.Equal(t, "import of version 7: launch", imported.Comment)
	assert.Equal(t, "ops", imported.Author)
}

func TestSettingsService_ImportRejects(t *testing.T) {
	tests := map[string]string{
		"empty":         "",
		"unknown field": "settings:\n  model: x\n  colour: red\n",
		"not yaml":      "settings: [unclosed",
		"invalid value": "settings:\n  model: x\n  temperature: 9\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			svc, _ := newSettingsService(t, 5)
			_, err := svc.Import(context.Background(), strings.NewReader(doc), "ops")
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err), err)
		})
	}
}
