package ml

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ArtifactWatcher warms a ModelCache as soon as the artifact file shows up,
// so the first request after training does not pay for the load. It stops once
// the cache is loaded.
type ArtifactWatcher struct {
	cache   *ModelCache
	logger  *zap.Logger
	watcher *fsnotify.Watcher
	target  string
}

func NewArtifactWatcher(cache *ModelCache, logger *zap.Logger) (*ArtifactWatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	target := filepath.Clean(cache.Path())
	// Watch the directory: the file may not exist yet.
	if err := w.Add(filepath.Dir(target)); err != nil {
		w.Close()
		return nil, err
	}
	return &ArtifactWatcher{
		cache:   cache,
		logger:  logger,
		watcher: w,
		target:  target,
	}, nil
}

// Run blocks until the cache is loaded or ctx is done.
func (aw *ArtifactWatcher) Run(ctx context.Context) {
	defer aw.watcher.Close()

	if aw.cache.Ready() {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-aw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != aw.target {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if _, err := aw.cache.Get(); err != nil {
				// Writers may still be flushing; the next event retries.
				aw.logger.Debug("artifact not loadable yet", zap.Error(err))
				continue
			}
			aw.logger.Info("model warmed from artifact watcher", zap.String("path", aw.target))
			return
		case err, ok := <-aw.watcher.Errors:
			if !ok {
				return
			}
			aw.logger.Warn("artifact watcher error", zap.Error(err))
		}
	}
}
