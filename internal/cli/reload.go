/*
 * Copyright (c) 2024 yakumioto <yaku.mioto@gmail.com>
 * All rights reserved.
 */

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// Reloader calls onChange after the watched files stop changing.
type Reloader struct {
	watcher  *fsnotify.Watcher
	onChange func()
	logger   *slog.Logger
	debounce time.Duration
}

// NewReloader watches the given paths. Paths that do not exist are skipped.
func NewReloader(paths []string, onChange func(), logger *slog.Logger) (*Reloader, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	watched := 0
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			logger.Warn("not watching rule document", slog.String("path", p), slog.Any("error", err))
			continue
		}
		if err := watcher.Add(p); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("failed to watch %q: %w", p, err)
		}
		watched++
	}
	if watched == 0 {
		watcher.Close()
		return nil, fmt.Errorf("no rule documents to watch")
	}

	return &Reloader{
		watcher:  watcher,
		onChange: onChange,
		logger:   logger,
		debounce: defaultDebounce,
	}, nil
}

// Run blocks until ctx is cancelled. onChange runs on the calling goroutine.
func (r *Reloader) Run(ctx context.Context) error {
	defer r.watcher.Close()

	var debounce *time.Timer
	fire := make(chan struct{}, 1)
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-fire:
			r.onChange()

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				r.logger.Debug("rule document changed", slog.String("path", event.Name))
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(r.debounce, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Error("file watcher error", slog.Any("error", err))
		}
	}
}
