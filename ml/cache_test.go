package ml

import (
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"tripcost/monitoring"
)

func testArtifact(t *testing.T) *ModelArtifact {
	t.Helper()
	artifact, err := NewModelArtifact(&LinearRegression{Intercept: 80, Coefficients: []float64{0.1, 45, 1, 5.2}}, FeatureNames())
	require.NoError(t, err)
	return artifact
}

func TestModelCacheLoadsOnceUnderConcurrency(t *testing.T) {
	artifact := testArtifact(t)
	var loads atomic.Int32
	release := make(chan struct{})
	cache := NewModelCache("model.json",
		WithMetrics(monitoring.NewMetrics(prometheus.NewRegistry())),
		WithLoader(func(string) (*ModelArtifact, error) {
			loads.Add(1)
			<-release
			return artifact, nil
		}),
	)

	const callers = 32
	results := make([]*ModelArtifact, callers)
	var g errgroup.Group
	for i := 0; i < callers; i++ {
		g.Go(func() error {
			m, err := cache.Get()
			results[i] = m
			return err
		})
	}

	require.Eventually(t, func() bool { return cache.State() == StateLoading }, time.Second, time.Millisecond)
	close(release)
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), loads.Load())
	for _, m := range results {
		assert.Same(t, artifact, m)
	}
	assert.Equal(t, StateLoaded, cache.State())
	assert.True(t, cache.Ready())
}

func TestModelCacheRetriesAfterFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cost_model.json")
	cache := NewModelCache(path)

	for i := 0; i < 3; i++ {
		_, err := cache.Get()
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, StateUnloaded, cache.State())
		assert.False(t, cache.Ready())
	}

	require.NoError(t, SaveArtifact(path, &LinearRegression{Intercept: 1, Coefficients: []float64{1, 1, 1, 1}}, FeatureNames()))
	first, err := cache.Get()
	require.NoError(t, err)
	assert.Equal(t, StateLoaded, cache.State())

	// A broken artifact on disk no longer matters once loaded.
	writeFile(t, path, `{"model":`)
	second, err := cache.Get()
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestModelCacheMalformedKeepsUnloaded(t *testing.T) {
	var loads atomic.Int32
	cache := NewModelCache("model.json", WithLoader(func(string) (*ModelArtifact, error) {
		loads.Add(1)
		return nil, ErrMalformedArtifact
	}))

	_, err := cache.Get()
	assert.True(t, errors.Is(err, ErrMalformedArtifact))
	_, err = cache.Get()
	assert.True(t, errors.Is(err, ErrMalformedArtifact))
	assert.Equal(t, int32(2), loads.Load())

	m, ok := cache.Model()
	assert.Nil(t, m)
	assert.False(t, ok)
}

func TestModelCacheNilArtifactIsMalformed(t *testing.T) {
	cache := NewModelCache("model.json", WithLoader(func(string) (*ModelArtifact, error) {
		return nil, nil
	}))
	_, err := cache.Get()
	assert.ErrorIs(t, err, ErrMalformedArtifact)
	assert.Equal(t, StateUnloaded, cache.State())
}

func TestModelCacheReadersAfterLoadDoNotBlock(t *testing.T) {
	artifact := testArtifact(t)
	cache := NewModelCache("model.json", WithLoader(func(string) (*ModelArtifact, error) {
		return artifact, nil
	}))
	_, err := cache.Get()
	require.NoError(t, err)

	// Holding the load lock must not stall readers of a loaded cache.
	cache.mu.Lock()
	defer cache.mu.Unlock()

	var wg sync.WaitGroup
	done := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		m, err := cache.Get()
		assert.NoError(t, err)
		assert.Same(t, artifact, m)
	}()
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Get blocked on a loaded cache")
	}
}
