package service

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-routine-api/pkg/errors"
)

type memoryCacheRepo struct {
	mu        sync.Mutex
	items     map[string][]byte
	deleted   []string
	failMatch string
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: map[string][]byte{}}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = payload
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, pattern)
	if pattern == m.failMatch {
		return errors.New("redis unavailable")
	}
	for key := range m.items {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.items, key)
		}
	}
	return nil
}

func (m *memoryCacheRepo) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[key]
	return ok
}

func (m *memoryCacheRepo) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.items))
	for key := range m.items {
		out = append(out, key)
	}
	return out
}

func TestCacheServiceReadThrough(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, NewMetricsService(), time.Minute, nil, true)
	ctx := context.Background()

	loads := 0
	load := func() ([]string, error) {
		loads++
		return []string{"r1", "r2"}, nil
	}

	first, err := readThrough(ctx, cache, routineKey("class", "class-1"), load)
	require.NoError(t, err)
	second, err := readThrough(ctx, cache, routineKey("class", "class-1"), load)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, loads)
	assert.True(t, repo.has("routines:class:class-1"))
}

func TestCacheServiceInvalidateAllPatterns(t *testing.T) {
	repo := newMemoryCacheRepo()
	repo.failMatch = timeSlotCachePattern
	cache := NewCacheService(repo, nil, time.Minute, nil, true)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, routineKey("id", "r1"), map[string]string{"id": "r1"}, 0))
	require.NoError(t, cache.Set(ctx, substitutionKey("routine", "r1"), []string{}, 0))

	err := cache.Invalidate(ctx, routineCachePattern, timeSlotCachePattern, substitutionCachePattern)
	assert.Error(t, err)
	assert.Equal(t, []string{routineCachePattern, timeSlotCachePattern, substitutionCachePattern}, repo.deleted)
	assert.False(t, repo.has("routines:id:r1"))
	assert.False(t, repo.has("substitutes:routine:r1"))
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, time.Minute, nil, false)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "routines:id:r1", "value", 0))
	assert.False(t, repo.has("routines:id:r1"))

	var dest string
	hit, err := cache.Get(ctx, "routines:id:r1", &dest)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, cache.Invalidate(ctx, routineCachePattern))
	assert.Empty(t, repo.deleted)
}
