package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settle is how long a file must stay quiet before it is reloaded, so a
// truncate followed by a write produces one update.
const settle = 50 * time.Millisecond

// Update is one reload of a watched file. Err is set when the new content
// did not load; the previous settings stay in force.
type Update struct {
	File File
	Err  error
}

// Watch reloads path whenever it is written, created or renamed into place
// and sends the result on the returned channel. The directory is watched
// rather than the file so editors that replace the file keep working. The
// channel is closed when ctx is done.
func Watch(ctx context.Context, path string) (<-chan Update, error) {
	if _, err := formatOf(path); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", filepath.Dir(abs), err)
	}

	updates := make(chan Update, 1)
	go func() {
		defer close(updates)
		defer watcher.Close()
		var pending <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				pending = time.After(settle)
			case <-pending:
				pending = nil
				f, err := Load(abs)
				select {
				case updates <- Update{File: f, Err: err}:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				Logger().Warn("config: watch error", "path", abs, "err", err)
			}
		}
	}()
	return updates, nil
}
