// Package metrics exposes Prometheus counters and gauges for the watch pipeline.
package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns a private Prometheus registry. All methods are safe on a nil
// receiver so components can run without metrics.
type Registry struct {
	registry        *prometheus.Registry
	messages        *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	watcherErrors   prometheus.Counter
	watcherRestarts prometheus.Counter
	queueDropped    prometheus.Counter
	storeEntries    prometheus.Gauge
	activeWatches   prometheus.Gauge
}

// New builds a registry with the pipeline metrics plus Go runtime and process
// collectors.
func New() *Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Registry{
		registry: registry,
		messages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fswatch_messages_total",
				Help: "Messages emitted to the output stream by kind",
			},
			[]string{"kind"},
		),
		notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fswatch_notifications_total",
				Help: "Raw watcher notifications handled by operation",
			},
			[]string{"op"},
		),
		watcherErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fswatch_watcher_errors_total",
				Help: "Errors reported by the filesystem watcher",
			},
		),
		watcherRestarts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fswatch_watcher_restarts_total",
				Help: "Watcher backend restart attempts",
			},
		),
		queueDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fswatch_queue_dropped_total",
				Help: "Messages dropped because the queue was closed",
			},
		),
		storeEntries: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "fswatch_store_entries",
				Help: "Paths currently tracked in the metadata store",
			},
		),
		activeWatches: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "fswatch_active_watches",
				Help: "Directories currently registered with the OS watcher",
			},
		),
	}
}

func (r *Registry) IncMessage(kind string) {
	if r == nil {
		return
	}
	r.messages.WithLabelValues(labelOrUnknown(kind)).Inc()
}

func (r *Registry) IncNotification(op string) {
	if r == nil {
		return
	}
	r.notifications.WithLabelValues(labelOrUnknown(op)).Inc()
}

func (r *Registry) IncWatcherError() {
	if r == nil {
		return
	}
	r.watcherErrors.Inc()
}

func (r *Registry) IncWatcherRestart() {
	if r == nil {
		return
	}
	r.watcherRestarts.Inc()
}

func (r *Registry) IncQueueDropped() {
	if r == nil {
		return
	}
	r.queueDropped.Inc()
}

func (r *Registry) SetStoreEntries(count int) {
	if r == nil {
		return
	}
	r.storeEntries.Set(float64(count))
}

func (r *Registry) SetActiveWatches(count int) {
	if r == nil {
		return
	}
	r.activeWatches.Set(float64(count))
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func labelOrUnknown(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}
