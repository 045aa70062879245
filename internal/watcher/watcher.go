package watcher

import (
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"fswatch/internal/logging"

	"github.com/fsnotify/fsnotify"
)

const (
	defaultMaxWatches      = 8192
	defaultCleanupInterval = time.Minute
	maxRestartAttempts     = 3
	restartBaseDelay       = 200 * time.Millisecond
)

var (
	ErrMaxWatchesExceeded = errors.New("max watches exceeded")
	ErrClosed             = errors.New("watcher is closed")
)

// New creates a non-recursive Watcher with default options.
func New() (*Watcher, error) {
	return NewWithOptions(Options{})
}

// NewWithOptions creates a Watcher with custom options.
func NewWithOptions(options Options) (*Watcher, error) {
	backend, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := options.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	maxWatches := options.MaxWatches
	if maxWatches <= 0 {
		maxWatches = defaultMaxWatches
	}

	cleanupInterval := options.CleanupInterval
	if cleanupInterval <= 0 {
		cleanupInterval = defaultCleanupInterval
	}

	instance := &Watcher{
		watcher:         backend,
		watches:         make(map[string]struct{}),
		events:          make(chan fsnotify.Event, 16),
		errors:          make(chan error, 4),
		notices:         make(chan Notification, 4),
		done:            make(chan struct{}),
		logger:          logger,
		registry:        options.Metrics,
		recursive:       options.Recursive,
		maxWatches:      maxWatches,
		cleanupInterval: cleanupInterval,
	}

	instance.startForwarder(backend)
	go instance.run()
	go instance.cleanupLoop()
	return instance, nil
}

// Close shuts down the watcher and stops delivery.
func (watcher *Watcher) Close() error {
	if watcher == nil {
		return nil
	}

	watcher.mutex.Lock()
	if watcher.closed {
		watcher.mutex.Unlock()
		return nil
	}
	watcher.closed = true
	backend := watcher.watcher
	watcher.mutex.Unlock()

	watcher.restartMutex.Lock()
	if watcher.restartTimer != nil {
		watcher.restartTimer.Stop()
		watcher.restartTimer = nil
	}
	watcher.restartMutex.Unlock()

	close(watcher.done)
	if backend == nil {
		return nil
	}
	return backend.Close()
}

func (watcher *Watcher) run() {
	for {
		select {
		case event := <-watcher.events:
			watcher.handleEvent(event)
		case err := <-watcher.errors:
			watcher.handleError(err)
		case notice := <-watcher.notices:
			watcher.deliver(notice)
		case <-watcher.done:
			return
		}
	}
}

func (watcher *Watcher) startForwarder(source *fsnotify.Watcher) {
	if source == nil {
		return
	}

	go func() {
		for {
			select {
			case event, ok := <-source.Events:
				if !ok {
					return
				}
				select {
				case watcher.events <- event:
				case <-watcher.done:
					return
				}
			case err, ok := <-source.Errors:
				if !ok {
					return
				}
				select {
				case watcher.errors <- err:
				case <-watcher.done:
					return
				}
			case <-watcher.done:
				return
			}
		}
	}()
}

func (watcher *Watcher) handleEvent(event fsnotify.Event) {
	if event.Name == "" {
		return
	}
	for _, op := range translateOps(event.Op) {
		switch op {
		case OpCreate:
			watcher.watchCreatedDir(event.Name)
		case OpRemove, OpRenameFrom:
			watcher.removeWatchTree(event.Name)
		}
		watcher.deliver(Notification{Op: op, Paths: []string{event.Name}})
	}
}

// translateOps maps each fsnotify op bit to a Notification op, in a fixed
// order. fsnotify reports the destination of a rename as a separate Create.
func translateOps(op fsnotify.Op) []Op {
	ops := make([]Op, 0, 1)
	if op.Has(fsnotify.Create) {
		ops = append(ops, OpCreate)
	}
	if op.Has(fsnotify.Write) {
		ops = append(ops, OpModify)
	}
	if op.Has(fsnotify.Remove) {
		ops = append(ops, OpRemove)
	}
	if op.Has(fsnotify.Rename) {
		ops = append(ops, OpRenameFrom)
	}
	if op.Has(fsnotify.Chmod) {
		ops = append(ops, OpMetadata)
	}
	if len(ops) == 0 {
		ops = append(ops, OpOther)
	}
	return ops
}

func (watcher *Watcher) deliver(notification Notification) {
	watcher.mutex.Lock()
	callback := watcher.callback
	closed := watcher.closed
	watcher.mutex.Unlock()
	if closed || callback == nil {
		return
	}
	atomic.AddUint64(&watcher.notificationsDelivered, 1)
	callback(notification)
}

// notify queues a synthesized notification for the delivery goroutine.
func (watcher *Watcher) notify(notification Notification) {
	select {
	case watcher.notices <- notification:
	case <-watcher.done:
	}
}

func (watcher *Watcher) backend() *fsnotify.Watcher {
	watcher.mutex.Lock()
	defer watcher.mutex.Unlock()
	return watcher.watcher
}

func (watcher *Watcher) logWarn(message string, fields map[string]string) {
	if watcher == nil || watcher.logger == nil {
		return
	}
	watcher.logger.Warn(message, withWatcherFields(fields))
}

func (watcher *Watcher) logDebug(message, path string, activeCount int) {
	if watcher == nil || watcher.logger == nil {
		return
	}
	fields := map[string]string{
		"path":           path,
		"active_watches": strconv.Itoa(activeCount),
	}
	watcher.logger.Debug(message, withWatcherFields(fields))
}

func withWatcherFields(fields map[string]string) map[string]string {
	merged := make(map[string]string, len(fields)+1)
	merged["component"] = "watcher"
	for key, value := range fields {
		merged[key] = value
	}
	return merged
}

// Metrics reports current watcher stats.
func (watcher *Watcher) Metrics() Metrics {
	if watcher == nil {
		return Metrics{}
	}
	watcher.mutex.Lock()
	active := len(watcher.watches)
	watcher.mutex.Unlock()
	watcher.restartMutex.Lock()
	restartAttempts := watcher.restartAttempts
	watcher.restartMutex.Unlock()
	return Metrics{
		ActiveWatches:          active,
		NotificationsDelivered: atomic.LoadUint64(&watcher.notificationsDelivered),
		Errors:                 atomic.LoadUint64(&watcher.errorCount),
		RestartAttempts:        restartAttempts,
	}
}
