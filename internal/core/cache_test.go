package core

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/mmk-content-dashboard/internal/domain/jsonv"
	"github.com/target/mmk-content-dashboard/internal/mocks"
	"go.uber.org/mock/gomock"
)

func stepIndex(t *testing.T, s string) *jsonv.Object {
	t.Helper()
	v, err := jsonv.Decode([]byte(s))
	require.NoError(t, err)
	obj, ok := jsonv.AsObject(v)
	require.True(t, ok)
	return obj
}

func TestStepCacheService_Store(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		index   string
		setup   func(*mocks.MockCacheRepository)
		wantErr bool
	}{
		{
			name:  "stores entries then key list",
			index: `{"J1_step_0.json":{"x":1},"J1_step_1.json":null}`,
			setup: func(cache *mocks.MockCacheRepository) {
				gomock.InOrder(
					cache.EXPECT().Set(gomock.Any(), "stepcache:J1_step_0.json", []byte(`{"x":1}`), 30*time.Minute).Return(nil),
					cache.EXPECT().Set(gomock.Any(), "stepcache:J1_step_1.json", []byte(`null`), 30*time.Minute).Return(nil),
					cache.EXPECT().
						Set(gomock.Any(), "stepcache:index:J1", []byte(`["J1_step_0.json","J1_step_1.json"]`), 30*time.Minute).
						Return(nil),
				)
			},
		},
		{
			name:  "empty index still records empty key list",
			index: `{}`,
			setup: func(cache *mocks.MockCacheRepository) {
				cache.EXPECT().Set(gomock.Any(), "stepcache:index:J1", []byte(`[]`), 30*time.Minute).Return(nil)
			},
		},
		{
			name:  "cache set error",
			index: `{"J1_step_0.json":"x"}`,
			setup: func(cache *mocks.MockCacheRepository) {
				cache.EXPECT().Set(gomock.Any(), "stepcache:J1_step_0.json", gomock.Any(), gomock.Any()).
					Return(errors.New("redis error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			cache := mocks.NewMockCacheRepository(ctrl)
			tt.setup(cache)

			svc := NewStepCacheService(cache, DefaultStepCacheConfig())
			err := svc.Store(context.Background(), "J1", stepIndex(t, tt.index))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStepCacheService_StoreSkipsEmptyJob(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockCacheRepository(ctrl)

	svc := NewStepCacheService(cache, StepCacheConfig{})
	require.NoError(t, svc.Store(context.Background(), "", jsonv.NewObject()))
	require.NoError(t, svc.Store(context.Background(), "J1", nil))
}

func TestStepCacheService_Get(t *testing.T) {
	t.Parallel()

	t.Run("hit keeps key order", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		cache := mocks.NewMockCacheRepository(ctrl)
		cache.EXPECT().Get(gomock.Any(), "stepcache:J1_step_2.json").Return([]byte(`{"b":1,"a":2}`), nil)

		v, ok, err := NewStepCacheService(cache, DefaultStepCacheConfig()).Get(context.Background(), "J1", 2)
		require.NoError(t, err)
		require.True(t, ok)
		out, err := json.Marshal(v)
		require.NoError(t, err)
		assert.Equal(t, `{"b":1,"a":2}`, string(out))
	})

	t.Run("cached null is a hit", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		cache := mocks.NewMockCacheRepository(ctrl)
		cache.EXPECT().Get(gomock.Any(), "stepcache:J1_step_0.json").Return([]byte(`null`), nil)

		v, ok, err := NewStepCacheService(cache, DefaultStepCacheConfig()).Get(context.Background(), "J1", 0)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Nil(t, v)
	})

	t.Run("miss", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		cache := mocks.NewMockCacheRepository(ctrl)
		cache.EXPECT().Get(gomock.Any(), "stepcache:J1_step_0.json").Return(nil, nil)

		_, ok, err := NewStepCacheService(cache, DefaultStepCacheConfig()).Get(context.Background(), "J1", 0)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("corrupt entry", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		cache := mocks.NewMockCacheRepository(ctrl)
		cache.EXPECT().Get(gomock.Any(), "stepcache:J1_step_0.json").Return([]byte(`{"x":`), nil)

		_, ok, err := NewStepCacheService(cache, DefaultStepCacheConfig()).Get(context.Background(), "J1", 0)
		require.Error(t, err)
		assert.False(t, ok)
	})
}

func TestStepCacheService_Invalidate(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	cache := mocks.NewMockCacheRepository(ctrl)
	gomock.InOrder(
		cache.EXPECT().Get(gomock.Any(), "stepcache:index:J1").Return([]byte(`["J1_step_0.json","J1_step_3.json"]`), nil),
		cache.EXPECT().Delete(gomock.Any(), "stepcache:J1_step_0.json").Return(true, nil),
		cache.EXPECT().Delete(gomock.Any(), "stepcache:J1_step_3.json").Return(false, nil),
		cache.EXPECT().Delete(gomock.Any(), "stepcache:index:J1").Return(true, nil),
	)

	require.NoError(t, NewStepCacheService(cache, DefaultStepCacheConfig()).Invalidate(context.Background(), "J1"))
}

func TestStepCacheService_InvalidateNothingCached(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	cache := mocks.NewMockCacheRepository(ctrl)
	cache.EXPECT().Get(gomock.Any(), "stepcache:index:J9").Return(nil, nil)
	cache.EXPECT().Delete(gomock.Any(), "stepcache:index:J9").Return(false, nil)

	require.NoError(t, NewStepCacheService(cache, DefaultStepCacheConfig()).Invalidate(context.Background(), "J9"))
}

func TestStepCacheService_KeysError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	cache := mocks.NewMockCacheRepository(ctrl)
	cache.EXPECT().Get(gomock.Any(), "stepcache:index:J1").Return(nil, errors.New("redis down"))

	keys, err := NewStepCacheService(cache, DefaultStepCacheConfig()).Keys(context.Background(), "J1")
	assert.Error(t, err)
	assert.Nil(t, keys)
}
