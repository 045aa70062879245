package watcher

import (
	"os"
	"time"
)

func (watcher *Watcher) cleanupLoop() {
	ticker := time.NewTicker(watcher.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			watcher.cleanup()
		case <-watcher.done:
			return
		}
	}
}

// cleanup drops watches on directories that no longer exist. They linger when
// the backend overflowed and the removal was never reported.
func (watcher *Watcher) cleanup() {
	if watcher == nil {
		return
	}
	watcher.mutex.Lock()
	if watcher.closed {
		watcher.mutex.Unlock()
		return
	}
	watcher.mutex.Unlock()

	for _, path := range watcher.watchedPaths() {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			watcher.removeWatchTree(path)
		}
	}
}
