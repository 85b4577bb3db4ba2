package suite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
)

// DefaultDebounce is how long Watch waits after the last write before it
// reloads.
const DefaultDebounce = 500 * time.Millisecond

// Watch reloads the suite at p whenever it changes and hands the result, or
// the load error, to fn. fn is never called concurrently with itself.
// Watch blocks until ctx is cancelled.
func Watch(ctx context.Context, p string, debounce time.Duration, logger *zap.Logger, fn func(*Suite, error), opts ...Option) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	expanded, err := homedir.Expand(p)
	if err != nil {
		return fmt.Errorf("expand path %q: %w", p, err)
	}
	expanded, err = filepath.Abs(expanded)
	if err != nil {
		return fmt.Errorf("resolve path %q: %w", p, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace files on save, so watch the directory.
	if err := watcher.Add(filepath.Dir(expanded)); err != nil {
		return fmt.Errorf("failed to watch %q: %w", expanded, err)
	}
	log := logger.Named("suite_watch").With(zap.String("path", expanded))
	log.Info("Watching suite for changes.")

	var (
		mu      sync.Mutex
		pending *time.Timer
		running sync.Mutex
		wg      sync.WaitGroup
	)
	reload := func() {
		defer wg.Done()
		if ctx.Err() != nil {
			return
		}
		running.Lock()
		defer running.Unlock()
		s, err := LoadFile(expanded, opts...)
		if err != nil {
			log.Warn("Suite reload failed.", zap.Error(err))
		} else {
			log.Info("Suite reloaded.", zap.Int("scenarios", len(s.Scenarios)))
		}
		fn(s, err)
	}
	stop := func() {
		mu.Lock()
		if pending != nil && pending.Stop() {
			wg.Done()
		}
		mu.Unlock()
		wg.Wait()
	}

	for {
		select {
		case <-ctx.Done():
			stop()
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				stop()
				return nil
			}
			if filepath.Clean(event.Name) != expanded {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			mu.Lock()
			if pending != nil && pending.Stop() {
				wg.Done()
			}
			wg.Add(1)
			pending = time.AfterFunc(debounce, reload)
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				stop()
				return nil
			}
			log.Warn("File watcher error.", zap.Error(err))
		}
	}
}
