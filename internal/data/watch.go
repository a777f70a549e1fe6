package data

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 250 * time.Millisecond

// Watch reloads the table at path into store whenever the file changes,
// until ctx is cancelled. A table that fails to parse is logged and the
// previous one stays in place. onReload, if set, runs on the watcher
// goroutine after each successful swap.
func Watch(ctx context.Context, path string, store *SettingsStore, log *zap.Logger,
	onReload func(prev, next *AbilityTable)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create settings watcher: %w", err)
	}
	defer w.Close()

	dir, file := filepath.Dir(path), filepath.Base(path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	log.Info("watching ability settings", zap.String("path", path))

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	reload := func() {
		next, err := LoadAbilityTable(path)
		if err != nil {
			log.Warn("ability settings reload failed", zap.String("path", path), zap.Error(err))
			return
		}
		prev := store.Swap(next)
		log.Info("ability settings reloaded", zap.String("path", path), zap.Int("abilities", next.Count()))
		if onReload != nil {
			onReload(prev, next)
		}
	}
	schedule := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(reloadDebounce, reload)
	}
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return fmt.Errorf("settings watcher closed")
			}
			if filepath.Base(ev.Name) != file {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				schedule()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return fmt.Errorf("settings watcher closed")
			}
			log.Warn("settings watch error", zap.Error(err))
		}
	}
}
