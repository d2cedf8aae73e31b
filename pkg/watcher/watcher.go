// Package watcher triggers rebuilds when the build input or the
// configuration file changes on disk.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ritzau/distgraph/pkg/logging"
)

// ChangeType represents the type of file change detected
type ChangeType int

const (
	ChangeTypeInput ChangeType = iota
	ChangeTypeConfig
)

func (t ChangeType) String() string {
	switch t {
	case ChangeTypeInput:
		return "input"
	case ChangeTypeConfig:
		return "config"
	}
	return fmt.Sprintf("ChangeType(%d)", int(t))
}

// ChangeEvent represents a batch of file system changes
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

// batchDelay groups the burst of events a single save produces.
const batchDelay = 100 * time.Millisecond

// FileWatcher watches individual files. Their directories are watched
// rather than the files so that editors replacing a file by rename are
// still seen.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	files   map[string]ChangeType // cleaned absolute path -> type
	events  chan ChangeEvent
}

// NewFileWatcher creates a watcher for an input file and, if configPath is
// not empty, a configuration file.
func NewFileWatcher(inputPath, configPath string) (*FileWatcher, error) {
	files := make(map[string]ChangeType)
	for path, typ := range map[string]ChangeType{inputPath: ChangeTypeInput, configPath: ChangeTypeConfig} {
		if path == "" {
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", path, err)
		}
		files[abs] = typ
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("watcher: no files to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	return &FileWatcher{
		watcher: watcher,
		files:   files,
		events:  make(chan ChangeEvent, 100),
	}, nil
}

// Start begins watching. Events are delivered until ctx is cancelled.
func (fw *FileWatcher) Start(ctx context.Context) error {
	dirs := make(map[string]struct{})
	for path := range fw.files {
		dirs[filepath.Dir(path)] = struct{}{}
	}
	for dir := range dirs {
		if err := fw.watcher.Add(dir); err != nil {
			_ = fw.watcher.Close()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	logging.Info("started watching files", "count", len(fw.files), "dirs", len(dirs))

	go fw.processEvents(ctx)
	return nil
}

// processEvents batches raw events per change type.
func (fw *FileWatcher) processEvents(ctx context.Context) {
	defer close(fw.events)
	defer fw.watcher.Close()

	pending := make(map[ChangeType][]string)
	flushTimer := time.NewTimer(batchDelay)
	flushTimer.Stop()

	flush := func() {
		for _, typ := range []ChangeType{ChangeTypeConfig, ChangeTypeInput} {
			if paths := pending[typ]; len(paths) > 0 {
				select {
				case fw.events <- ChangeEvent{Type: typ, Paths: paths, Timestamp: time.Now()}:
				case <-ctx.Done():
				}
			}
		}
		pending = make(map[ChangeType][]string)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			typ, watched := fw.files[filepath.Clean(event.Name)]
			if !watched {
				continue
			}
			logging.Trace("file event", "path", event.Name, "op", event.Op.String())
			pending[typ] = appendUnique(pending[typ], event.Name)
			flushTimer.Reset(batchDelay)

		case <-flushTimer.C:
			flush()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

func appendUnique(paths []string, p string) []string {
	for _, q := range paths {
		if q == p {
			return paths
		}
	}
	return append(paths, p)
}

// Events returns the channel of change events. It is closed when the
// watcher stops.
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}
