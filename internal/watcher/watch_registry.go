package watcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Watch starts watching root and delivers every notification to callback.
// A Watcher serves a single root.
func (watcher *Watcher) Watch(root string, callback func(Notification)) error {
	if watcher == nil {
		return errors.New("watcher is nil")
	}
	if root == "" {
		return errors.New("path is required")
	}
	if callback == nil {
		return errors.New("callback is required")
	}

	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	root = filepath.Clean(root)

	watcher.mutex.Lock()
	if watcher.closed {
		watcher.mutex.Unlock()
		return ErrClosed
	}
	if watcher.callback != nil {
		watcher.mutex.Unlock()
		return fmt.Errorf("already watching %s", watcher.root)
	}
	watcher.root = root
	watcher.callback = callback
	watcher.mutex.Unlock()

	if err := watcher.addWatch(root); err != nil {
		watcher.reset()
		return err
	}
	if info.IsDir() {
		if _, err := watcher.addRecursiveWatches(root); err != nil {
			watcher.removeWatchTree(root)
			watcher.reset()
			return err
		}
	}
	return nil
}

// Root returns the watched root, empty before Watch succeeds.
func (watcher *Watcher) Root() string {
	if watcher == nil {
		return ""
	}
	watcher.mutex.Lock()
	defer watcher.mutex.Unlock()
	return watcher.root
}

func (watcher *Watcher) reset() {
	watcher.mutex.Lock()
	watcher.root = ""
	watcher.callback = nil
	watcher.mutex.Unlock()
}

func (watcher *Watcher) addWatch(path string) error {
	watcher.mutex.Lock()
	if watcher.closed {
		watcher.mutex.Unlock()
		return ErrClosed
	}
	if _, ok := watcher.watches[path]; ok {
		watcher.mutex.Unlock()
		return nil
	}
	if len(watcher.watches) >= watcher.maxWatches {
		watcher.mutex.Unlock()
		return ErrMaxWatchesExceeded
	}
	watcher.watches[path] = struct{}{}
	activeCount := len(watcher.watches)
	backend := watcher.watcher
	watcher.mutex.Unlock()

	if backend == nil {
		watcher.dropWatch(path)
		return nil
	}
	if err := backend.Add(path); err != nil {
		watcher.dropWatch(path)
		watcher.logWarn("watch add failed", map[string]string{
			"path":  path,
			"error": err.Error(),
		})
		return err
	}
	watcher.registry.SetActiveWatches(activeCount)
	watcher.logDebug("watch added", path, activeCount)
	return nil
}

// removeWatchTree drops the watch on path and on every watched descendant.
func (watcher *Watcher) removeWatchTree(path string) {
	path = filepath.Clean(path)

	watcher.mutex.Lock()
	paths := make([]string, 0)
	for candidate := range watcher.watches {
		if isWithinPath(path, candidate) {
			paths = append(paths, candidate)
			delete(watcher.watches, candidate)
		}
	}
	activeCount := len(watcher.watches)
	backend := watcher.watcher
	watcher.mutex.Unlock()

	if len(paths) == 0 {
		return
	}
	sort.Strings(paths)
	watcher.registry.SetActiveWatches(activeCount)
	for _, candidate := range paths {
		if backend != nil {
			// The backend drops watches on deleted directories by itself.
			if err := backend.Remove(candidate); err != nil {
				watcher.logDebug("watch already released", candidate, activeCount)
				continue
			}
		}
		watcher.logDebug("watch removed", candidate, activeCount)
	}
}

func (watcher *Watcher) dropWatch(path string) {
	watcher.mutex.Lock()
	delete(watcher.watches, path)
	watcher.mutex.Unlock()
}

func (watcher *Watcher) watchedPaths() []string {
	watcher.mutex.Lock()
	defer watcher.mutex.Unlock()
	paths := make([]string, 0, len(watcher.watches))
	for path := range watcher.watches {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

func isWithinPath(parent, child string) bool {
	parentPath := filepath.Clean(parent)
	childPath := filepath.Clean(child)
	rel, err := filepath.Rel(parentPath, childPath)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return false
	}
	return true
}
