// Package core defines the ports the dashboard services depend on and the
// cache-backed services shared between the HTTP API and the admin CLI.
package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/target/mmk-content-dashboard/internal/domain/jsonv"
	"github.com/target/mmk-content-dashboard/internal/domain/result"
)

// CacheRepository defines the interface for caching operations.
// The core defines the port and the data layer provides implementations.
type CacheRepository interface {
	// Set stores a value in the cache with the given key and TTL.
	// If TTL is 0, the key will not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get retrieves a value from the cache by key.
	// Returns nil if the key doesn't exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes a key from the cache.
	// Returns true if the key was deleted, false if it didn't exist.
	Delete(ctx context.Context, key string) (bool, error)

	// Exists checks if a key exists in the cache.
	Exists(ctx context.Context, key string) (bool, error)

	// SetTTL updates the TTL for an existing key.
	// Returns true if the key exists and TTL was updated.
	SetTTL(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// SetIfNotExists atomically sets a key only if it doesn't already exist.
	// Returns true if the key was set, false if it already existed.
	SetIfNotExists(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Health checks the health of the cache connection.
	Health(ctx context.Context) error
}

const (
	stepKeyPrefix   = "stepcache:"
	stepIndexPrefix = "stepcache:index:"
)

// StepCacheService stores indexed step outputs so step views can be served
// without re-fetching the job result. Entries are keyed by result.CacheKey.
// Concurrent stores for the same job are last-write-wins.
type StepCacheService struct {
	cache CacheRepository
	ttl   time.Duration
}

// StepCacheConfig holds configuration for step output caching.
type StepCacheConfig struct {
	TTL time.Duration `json:"ttl"`
}

// DefaultStepCacheConfig returns a StepCacheConfig with sensible defaults.
func DefaultStepCacheConfig() StepCacheConfig {
	return StepCacheConfig{TTL: 30 * time.Minute}
}

// NewStepCacheService creates a new StepCacheService.
func NewStepCacheService(cache CacheRepository, cfg StepCacheConfig) *StepCacheService {
	if cfg.TTL <= 0 {
		cfg = DefaultStepCacheConfig()
	}
	return &StepCacheService{cache: cache, ttl: cfg.TTL}
}

// Store writes every entry of index and records its keys under jobID,
// replacing whatever key list was stored before.
func (s *StepCacheService) Store(ctx context.Context, jobID string, index *jsonv.Object) error {
	if jobID == "" || index == nil {
		return nil
	}

	keys := index.Keys()
	for _, key := range keys {
		v, _ := index.Get(key)
		payload, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode step output %s: %w", key, err)
		}
		if err := s.cache.Set(ctx, stepKeyPrefix+key, payload, s.ttl); err != nil {
			return fmt.Errorf("cache step output %s: %w", key, err)
		}
	}

	if keys == nil {
		keys = []string{}
	}
	listing, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("encode step index: %w", err)
	}
	return s.cache.Set(ctx, stepIndexPrefix+jobID, listing, s.ttl)
}

// Get returns the cached output of a job's step. ok is false on a cache miss.
// A cached JSON null is returned as (nil, true).
func (s *StepCacheService) Get(ctx context.Context, jobID string, stepNumber int) (any, bool, error) {
	payload, err := s.cache.Get(ctx, stepKeyPrefix+result.CacheKey(jobID, stepNumber))
	if err != nil {
		return nil, false, err
	}
	if payload == nil {
		return nil, false, nil
	}
	v, err := jsonv.Decode(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode cached step output: %w", err)
	}
	return v, true, nil
}

// Keys lists the cache keys recorded for jobID. A job with nothing cached yields nil.
func (s *StepCacheService) Keys(ctx context.Context, jobID string) ([]string, error) {
	payload, err := s.cache.Get(ctx, stepIndexPrefix+jobID)
	if err != nil || payload == nil {
		return nil, err
	}
	var keys []string
	if err := json.Unmarshal(payload, &keys); err != nil {
		return nil, fmt.Errorf("decode step index: %w", err)
	}
	return keys, nil
}

// Invalidate removes every cached step output of jobID and its key list.
func (s *StepCacheService) Invalidate(ctx context.Context, jobID string) error {
	if jobID == "" {
		return nil
	}
	keys, err := s.Keys(ctx, jobID)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if _, err := s.cache.Delete(ctx, stepKeyPrefix+key); err != nil {
			return fmt.Errorf("invalidate step output %s: %w", key, err)
		}
	}
	_, err = s.cache.Delete(ctx, stepIndexPrefix+jobID)
	return err
}
