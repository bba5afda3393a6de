package devserver

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/livefir/hits"
	"go.uber.org/zap"
)

// Watcher detects component source changes by polling modification times.
type Watcher struct {
	root string
	seen map[string]time.Time
}

// NewWatcher watches every component below root.
func NewWatcher(root string) *Watcher {
	return &Watcher{root: root}
}

// Poll rescans the tree and returns the sorted paths of components that were
// added, modified or removed since the previous call. The first call only
// records a baseline.
func (w *Watcher) Poll() ([]string, error) {
	current, err := scan(w.root)
	if err != nil {
		return nil, err
	}
	if w.seen == nil {
		w.seen = current
		return nil, nil
	}

	var changed []string
	for path, mod := range current {
		if prev, ok := w.seen[path]; !ok || !prev.Equal(mod) {
			changed = append(changed, path)
		}
	}
	for path := range w.seen {
		if _, ok := current[path]; !ok {
			changed = append(changed, path)
		}
	}
	sort.Strings(changed)
	w.seen = current
	return changed, nil
}

// Run polls every interval until ctx is cancelled, calling onChange with
// each non-empty change set. Scan errors are logged and polling goes on.
func (w *Watcher) Run(ctx context.Context, interval time.Duration, log *zap.Logger, onChange func([]string)) {
	if _, err := w.Poll(); err != nil {
		log.Warn("initial scan failed", zap.Error(err))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			changed, err := w.Poll()
			if err != nil {
				log.Warn("scan failed", zap.Error(err))
				continue
			}
			if len(changed) > 0 {
				onChange(changed)
			}
		}
	}
}

// Components lists the component names below root, sorted. A name is the
// slash-separated path relative to root without the extension.
func Components(root string) ([]string, error) {
	files, err := scan(root)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(files))
	for path := range files {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil, err
		}
		names = append(names, filepath.ToSlash(strings.TrimSuffix(rel, hits.Extension)))
	}
	sort.Strings(names)
	return names, nil
}

// scan maps every component file below root to its modification time.
// Hidden directories are skipped.
func scan(root string) (map[string]time.Time, error) {
	files := make(map[string]time.Time)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != hits.Extension {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files[path] = info.ModTime()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	return files, nil
}
