package file

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/complyqa/internal/logger"
)

// PromptWatcher reloads a PromptStore when its files change on disk.
type PromptWatcher struct {
	store   *PromptStore
	watcher *fsnotify.Watcher

	// onReload is called after each reload. Used by tests.
	onReload func(path string)
}

// NewPromptWatcher watches the store's prompt directory, creating it if needed.
func NewPromptWatcher(store *PromptStore) (*PromptWatcher, error) {
	// Materialise the directory and default files before watching.
	store.initOnce.Do(store.initialise)
	if store.initErr != nil {
		return nil, store.initErr
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create prompt watcher: %w", err)
	}
	if err := w.Add(store.Dir()); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", store.Dir(), err)
	}

	return &PromptWatcher{store: store, watcher: w}, nil
}

// Run handles file events until ctx is cancelled, then closes the watcher.
func (w *PromptWatcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
				!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if !w.store.IsPromptFile(ev.Name) {
				continue
			}
			w.store.Reload()
			logger.Info("Reloaded prompts after change to %s", ev.Name)
			if w.onReload != nil {
				w.onReload(ev.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Prompt watcher error: %v", err)
		}
	}
}
