// Package app wires the watch pipeline: watcher, handler, queue and output.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fswatch/internal/config"
	"fswatch/internal/event"
	"fswatch/internal/filter"
	"fswatch/internal/handler"
	"fswatch/internal/logging"
	"fswatch/internal/metrics"
	"fswatch/internal/output"
	"fswatch/internal/watcher"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const metricsShutdownTimeout = 2 * time.Second

const (
	StageFilter  = "filter"
	StageWatch   = "watch"
	StageScan    = "scan"
	StageMetrics = "metrics"
)

// BuildError reports which startup stage failed.
type BuildError struct {
	Stage string
	Err   error
}

func (e BuildError) Error() string {
	if e.Err == nil {
		return e.Stage
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e BuildError) Unwrap() error {
	return e.Err
}

// Status describes a pipeline that finished its baseline scan.
type Status struct {
	WatchID     string
	Root        string
	Entries     int
	MetricsAddr string
}

type Options struct {
	Config  config.Config
	Stdout  io.Writer
	Stderr  io.Writer
	Logger  *logging.Logger
	Metrics *metrics.Registry
	// Ready is called once the baseline scan has been written to the queue.
	Ready func(Status)
}

// Run starts watching and blocks until ctx is done. Startup failures are
// returned as BuildError; afterwards failures only reach the error stream.
func Run(ctx context.Context, options Options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := options.Config
	watchID := uuid.NewString()
	logger := options.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.With(map[string]string{"watch_id": watchID})

	pathFilter, err := filter.New(cfg.FilterMode, cfg.Patterns)
	if err != nil {
		return BuildError{Stage: StageFilter, Err: err}
	}

	registry := options.Metrics
	if registry == nil {
		registry = metrics.New()
	}

	queue := event.NewQueue[event.Message](context.Background(), event.QueueOptions{Registry: registry})
	writer := output.NewWriter(options.Stdout, options.Stderr, logger)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		_ = writer.Run(context.Background(), queue.Messages())
	}()
	flush := func() {
		queue.Close()
		<-drained
	}

	eventHandler, err := handler.New(handler.Options{
		Filter:  pathFilter,
		Sender:  queue,
		Logger:  logger,
		Metrics: registry,
	})
	if err != nil {
		flush()
		return err
	}

	fsWatcher, err := watcher.NewWithOptions(watcher.Options{
		Logger:     logger,
		Metrics:    registry,
		Recursive:  cfg.Recursive,
		MaxWatches: cfg.MaxWatches,
	})
	if err != nil {
		flush()
		return BuildError{Stage: StageWatch, Err: err}
	}
	// Notifications that arrive during the scan wait on the handler lock.
	if err := fsWatcher.Watch(cfg.Path, eventHandler.Handle); err != nil {
		_ = fsWatcher.Close()
		flush()
		return BuildError{Stage: StageWatch, Err: fmt.Errorf("watch %s: %w", cfg.Path, err)}
	}
	if err := eventHandler.Init(cfg.Path, cfg.Recursive); err != nil {
		_ = fsWatcher.Close()
		flush()
		return BuildError{Stage: StageScan, Err: err}
	}

	group, groupCtx := errgroup.WithContext(ctx)
	metricsAddr := ""
	if cfg.MetricsAddr != "" {
		listener, err := net.Listen("tcp", cfg.MetricsAddr)
		if err != nil {
			_ = fsWatcher.Close()
			flush()
			return BuildError{Stage: StageMetrics, Err: err}
		}
		metricsAddr = listener.Addr().String()
		server := newMetricsServer(registry)
		group.Go(func() error {
			if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		group.Go(func() error {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	status := Status{
		WatchID:     watchID,
		Root:        fsWatcher.Root(),
		Entries:     eventHandler.Len(),
		MetricsAddr: metricsAddr,
	}
	logger.Info("watching", map[string]string{
		"root":      status.Root,
		"recursive": strconv.FormatBool(cfg.Recursive),
		"filter":    string(pathFilter.Mode()),
		"patterns":  strings.Join(pathFilter.Patterns(), ","),
		"entries":   strconv.Itoa(status.Entries),
	})
	if options.Ready != nil {
		options.Ready(status)
	}

	group.Go(func() error {
		<-groupCtx.Done()
		return nil
	})
	err = group.Wait()

	_ = fsWatcher.Close()
	flush()
	logger.Info("stopped", map[string]string{
		"notifications": strconv.FormatUint(fsWatcher.Metrics().NotificationsDelivered, 10),
		"sent":          strconv.FormatInt(queue.Sent(), 10),
		"dropped":       strconv.FormatInt(queue.Dropped(), 10),
	})
	return err
}

func newMetricsServer(registry *metrics.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", registry.Handler())
	return &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
