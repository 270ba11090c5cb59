// Package watcher decides when a loaded ledger is stale. The Watcher takes
// a cheap mtime snapshot of the loaded files and their parent directories;
// an outer reloader polls Check before serving and re-runs the loader on a
// change. Watching the directories as well catches files that appear or
// disappear, such as a new include.
package watcher

import (
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Watcher compares the current state of a file set against a snapshot.
type Watcher struct {
	paths  []string
	mtimes map[string]time.Time
}

// New snapshots the given files and their parent directories.
func New(files []string) *Watcher {
	w := &Watcher{}
	w.Update(files)
	return w
}

// Update replaces the watched file set and takes a fresh snapshot.
func (w *Watcher) Update(files []string) {
	seen := make(map[string]bool)
	var paths []string
	for _, f := range files {
		for _, p := range []string{f, filepath.Dir(f)} {
			if !seen[p] {
				seen[p] = true
				paths = append(paths, p)
			}
		}
	}
	sort.Strings(paths)
	w.paths = paths
	w.mtimes = snapshot(paths)
}

// Check reports whether anything changed since the last snapshot, and
// advances the snapshot so the next call compares against the new state.
// A path that can no longer be stat'ed counts as changed.
func (w *Watcher) Check() bool {
	current := snapshot(w.paths)
	changed := false
	for _, p := range w.paths {
		if !current[p].Equal(w.mtimes[p]) {
			changed = true
			break
		}
	}
	w.mtimes = current
	return changed
}

// Paths returns the watched paths, files and directories combined.
func (w *Watcher) Paths() []string { return w.paths }

func snapshot(paths []string) map[string]time.Time {
	mtimes := make(map[string]time.Time, len(paths))
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil {
			mtimes[p] = info.ModTime()
		}
	}
	return mtimes
}
