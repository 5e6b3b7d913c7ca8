// Package capture watches for frames written by the simulator and loads
// them into memory.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultPollInterval = 50 * time.Millisecond

var ErrClosed = errors.New("capture: watcher closed")

// Watcher reports the presence of a single capture file. Filesystem events
// wake it early; the poll interval covers filesystems where events are not
// delivered.
type Watcher struct {
	// Logger receives fsnotify errors; nil uses the standard logger.
	Logger *log.Logger

	path     string
	interval time.Duration
	watcher  *fsnotify.Watcher
}

func NewWatcher(dir, name string, interval time.Duration) (*Watcher, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create captures directory: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	return &Watcher{
		path:     filepath.Clean(filepath.Join(dir, name)),
		interval: interval,
		watcher:  fw,
	}, nil
}

func (w *Watcher) Path() string {
	return w.path
}

// Present reports whether a regular file sits at the capture path.
func (w *Watcher) Present() bool {
	info, err := os.Stat(w.path)
	return err == nil && info.Mode().IsRegular()
}

// Next blocks until the capture file changes, the poll interval elapses, or
// ctx is done.
func (w *Watcher) Next(ctx context.Context) error {
	timer := time.NewTimer(w.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-timer.C:
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return ErrClosed
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				return nil
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return ErrClosed
			}
			w.logger().Printf("Watcher error: %v", err)
		}
	}
}

func (w *Watcher) logger() *log.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return log.Default()
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}
