// Package handler turns raw watcher notifications into Created, Modified and
// Removed messages by diffing against a metadata store.
//
// The baseline scan and live notifications share one Handler; a single mutex
// serializes them so the store only ever sees one caller.
package handler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"fswatch/internal/event"
	"fswatch/internal/filter"
	"fswatch/internal/logging"
	"fswatch/internal/metadata"
	"fswatch/internal/metrics"
	"fswatch/internal/watcher"
)

// Sender accepts outgoing messages without blocking.
type Sender interface {
	Send(message event.Message)
}

type Options struct {
	Filter  *filter.Filter
	Store   *metadata.Store
	Sender  Sender
	Logger  *logging.Logger
	Metrics *metrics.Registry
}

type Handler struct {
	mutex    sync.Mutex
	filter   *filter.Filter
	store    *metadata.Store
	sender   Sender
	logger   *logging.Logger
	registry *metrics.Registry
}

func New(options Options) (*Handler, error) {
	if options.Sender == nil {
		return nil, errors.New("sender is required")
	}
	pathFilter := options.Filter
	if pathFilter == nil {
		pathFilter = filter.Default()
	}
	store := options.Store
	if store == nil {
		store = metadata.NewStore()
	}
	logger := options.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		filter:   pathFilter,
		store:    store,
		sender:   options.Sender,
		logger:   logger,
		registry: options.Metrics,
	}, nil
}

// Init records every entry under root that passes the filter and reports it as
// Created. Entries failing the filter are not descended into. Any read or stat
// failure aborts the scan.
func (handler *Handler) Init(root string, recursive bool) error {
	handler.mutex.Lock()
	defer handler.mutex.Unlock()

	root = filepath.Clean(root)
	err := handler.scanDir(root, recursive)
	handler.registry.SetStoreEntries(handler.store.Len())
	if err != nil {
		return err
	}
	handler.logger.Info("baseline scan complete", map[string]string{
		"root":    root,
		"entries": fmt.Sprint(handler.store.Len()),
	})
	return nil
}

func (handler *Handler) scanDir(dir string, recursive bool) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scan %s: %w", dir, err)
	}
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if !handler.filter.Match(path) {
			continue
		}
		meta, err := handler.store.Add(path)
		if err != nil {
			return fmt.Errorf("scan %s: %w", path, err)
		}
		handler.emit(event.NewFileEvent(event.KindCreated, path, &meta))
		// Symlinked directories are reported but not followed.
		if recursive && entry.IsDir() {
			if err := handler.scanDir(path, recursive); err != nil {
				return err
			}
		}
	}
	return nil
}

// Len reports how many paths are tracked.
func (handler *Handler) Len() int {
	if handler == nil {
		return 0
	}
	handler.mutex.Lock()
	defer handler.mutex.Unlock()
	return handler.store.Len()
}

// Handle routes one notification. Failures are reported as Error messages.
func (handler *Handler) Handle(notification watcher.Notification) {
	handler.mutex.Lock()
	defer handler.mutex.Unlock()

	if notification.Err != nil {
		handler.registry.IncNotification("error")
		handler.logger.Warn("watcher reported error", map[string]string{
			"error": notification.Err.Error(),
		})
		handler.emit(event.NewErrorMessage(notification.Err))
		return
	}

	handler.registry.IncNotification(notification.Op.String())
	switch notification.Op {
	case watcher.OpCreate, watcher.OpRenameTo:
		handler.createEntry(notification.Paths)
	case watcher.OpModify:
		handler.modifyEntry(notification.Paths)
	case watcher.OpRenameFrom, watcher.OpRemove:
		handler.removeEntry(notification.Paths)
	default:
		return
	}
	handler.registry.SetStoreEntries(handler.store.Len())
}

func (handler *Handler) createEntry(paths []string) {
	for _, path := range paths {
		if !handler.filter.Match(path) {
			continue
		}
		meta, err := handler.store.Add(path)
		if err != nil {
			handler.reportError(path, err)
			continue
		}
		handler.emit(event.NewFileEvent(event.KindCreated, path, &meta))
	}
}

// modifyEntry reports Modified only when the modification time moved forward.
// Paths never seen before compare against the epoch.
func (handler *Handler) modifyEntry(paths []string) {
	for _, path := range paths {
		if !handler.filter.Match(path) {
			continue
		}
		previous := metadata.Epoch
		if stored, ok := handler.store.Get(path); ok {
			previous = stored.Modified
		}
		meta, err := handler.store.Add(path)
		if err != nil {
			handler.reportError(path, err)
			continue
		}
		if !meta.Modified.After(previous) {
			handler.logger.Debug("modification suppressed", map[string]string{
				"path": path,
			})
			continue
		}
		handler.emit(event.NewFileEvent(event.KindModified, path, &meta))
	}
}

func (handler *Handler) removeEntry(paths []string) {
	for _, path := range paths {
		if !handler.filter.Match(path) {
			continue
		}
		handler.removeTree(path)
	}
}

// removeTree reports tracked descendants before path itself. Descendants were
// filtered when first recorded, so the filter is not consulted again.
func (handler *Handler) removeTree(path string) {
	for _, child := range handler.store.ChildPaths(path) {
		if _, ok := handler.store.Get(child); !ok {
			continue
		}
		handler.removeTree(child)
	}
	meta, ok := handler.store.Remove(path)
	if !ok {
		handler.emit(event.NewFileEvent(event.KindRemoved, path, nil))
		return
	}
	handler.emit(event.NewFileEvent(event.KindRemoved, path, &meta))
}

func (handler *Handler) reportError(path string, err error) {
	handler.logger.Warn("stat failed", map[string]string{
		"path":  path,
		"error": err.Error(),
	})
	handler.emit(event.NewErrorMessage(err))
}

func (handler *Handler) emit(message event.Message) {
	handler.registry.IncMessage(message.Type())
	handler.sender.Send(message)
}
