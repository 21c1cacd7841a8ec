package ml

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"tripcost/monitoring"
)

// CacheState is the load state of a ModelCache.
type CacheState int32

const (
	StateUnloaded CacheState = iota
	StateLoading
	StateLoaded
)

func (s CacheState) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// LoaderFunc reads an artifact from durable storage.
type LoaderFunc func(path string) (*ModelArtifact, error)

// ModelCache loads the model artifact at most once and then serves it to
// every caller. A failed load leaves the cache unloaded so the next call retries.
// Once loaded the artifact is never replaced.
type ModelCache struct {
	path    string
	load    LoaderFunc
	logger  *zap.Logger
	metrics *monitoring.Metrics

	mu    sync.Mutex // held only for the load transition
	model atomic.Pointer[ModelArtifact]
	state atomic.Int32
}

type CacheOption func(*ModelCache)

func WithLoader(load LoaderFunc) CacheOption {
	return func(c *ModelCache) {
		c.load = load
	}
}

func WithLogger(logger *zap.Logger) CacheOption {
	return func(c *ModelCache) {
		c.logger = logger
	}
}

func WithMetrics(metrics *monitoring.Metrics) CacheOption {
	return func(c *ModelCache) {
		c.metrics = metrics
	}
}

func NewModelCache(path string, opts ...CacheOption) *ModelCache {
	c := &ModelCache{
		path:   path,
		load:   LoadArtifact,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *ModelCache) Path() string {
	return c.path
}

// Get returns the cached artifact, loading it on first use.
func (c *ModelCache) Get() (*ModelArtifact, error) {
	if m := c.model.Load(); m != nil {
		return m, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have finished the load while we waited.
	if m := c.model.Load(); m != nil {
		return m, nil
	}

	c.state.Store(int32(StateLoading))
	m, err := c.load(c.path)
	if err == nil && m == nil {
		err = fmt.Errorf("%w: loader returned no artifact", ErrMalformedArtifact)
	}
	c.metrics.RecordModelLoad(err)
	if err != nil {
		c.state.Store(int32(StateUnloaded))
		c.logger.Warn("model load failed", zap.String("path", c.path), zap.Error(err))
		return nil, err
	}

	c.model.Store(m)
	c.state.Store(int32(StateLoaded))
	c.logger.Info("model loaded",
		zap.String("path", c.path),
		zap.Strings("features", m.FeatureNames()),
	)
	return m, nil
}

// Model returns the artifact without triggering a load.
func (c *ModelCache) Model() (*ModelArtifact, bool) {
	m := c.model.Load()
	return m, m != nil
}

func (c *ModelCache) Ready() bool {
	return c.model.Load() != nil
}

func (c *ModelCache) State() CacheState {
	return CacheState(c.state.Load())
}
