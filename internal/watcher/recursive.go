package watcher

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

func (watcher *Watcher) addRecursiveWatches(root string) ([]string, error) {
	if watcher == nil || !watcher.recursive {
		return nil, nil
	}
	paths, err := collectRecursiveDirs(root)
	if err != nil {
		return nil, err
	}

	added := make([]string, 0, len(paths))
	for _, path := range paths {
		if err := watcher.addWatch(path); err != nil {
			for _, undo := range added {
				watcher.removeWatchTree(undo)
			}
			return nil, err
		}
		added = append(added, path)
	}

	return added, nil
}

// collectRecursiveDirs lists directories below root, skipping unreadable ones.
func collectRecursiveDirs(root string) ([]string, error) {
	dirs := []string{}
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !entry.IsDir() {
			return nil
		}
		if path == root {
			return nil
		}
		dirs = append(dirs, path)
		return nil
	})
	return dirs, err
}

// watchCreatedDir extends the watch set to a directory that appeared under the
// root, together with anything already inside it.
func (watcher *Watcher) watchCreatedDir(path string) {
	if !watcher.recursive {
		return
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	err = watcher.addWatch(path)
	if err == nil {
		_, err = watcher.addRecursiveWatches(path)
	}
	if err == nil || errors.Is(err, ErrClosed) {
		return
	}
	if errors.Is(err, ErrMaxWatchesExceeded) {
		watcher.deliver(Notification{Err: fmt.Errorf("watch %s: %w", path, err)})
		return
	}
	watcher.logWarn("watch created directory failed", map[string]string{
		"path":  path,
		"error": err.Error(),
	})
}
