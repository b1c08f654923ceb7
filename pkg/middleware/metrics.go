package middleware

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vango-dev/loom/pkg/queue"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "loom").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for task duration and wait time.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "loom",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// metrics holds the collectors registered on one registry.
type metrics struct {
	tasksTotal   *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec
	taskWait     *prometheus.HistogramVec
	taskPanics   *prometheus.CounterVec
	queueDepth   *prometheus.GaugeVec
}

// metricsKey identifies one set of metric names on one registry.
type metricsKey struct {
	registry  prometheus.Registerer
	namespace string
	subsystem string
	labels    string
}

func keyFor(config MetricsConfig) metricsKey {
	pairs := make([]string, 0, len(config.ConstLabels))
	for k, v := range config.ConstLabels {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return metricsKey{
		registry:  config.Registry,
		namespace: config.Namespace,
		subsystem: config.Subsystem,
		labels:    strings.Join(pairs, ","),
	}
}

// Collectors are shared per registry and metric naming so that every queue
// instrumented the same way reports into the same vectors.
var (
	registryMetricsMu sync.Mutex
	registryMetrics   = make(map[metricsKey]*metrics)
)

func metricsFor(config MetricsConfig) *metrics {
	registryMetricsMu.Lock()
	defer registryMetricsMu.Unlock()

	key := keyFor(config)
	if m, ok := registryMetrics[key]; ok {
		return m
	}
	m := initMetrics(config)
	registryMetrics[key] = m
	return m
}

func initMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)

	return &metrics{
		tasksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "tasks_total",
			Help:        "Total number of queue tasks executed",
			ConstLabels: config.ConstLabels,
		}, []string{"queue", "mode", "status"}),

		taskDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "task_duration_seconds",
			Help:        "Task execution time in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"queue"}),

		taskWait: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "task_wait_seconds",
			Help:        "Time between submission and start of execution in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"queue"}),

		taskPanics: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "task_panics_total",
			Help:        "Total number of tasks that panicked",
			ConstLabels: config.ConstLabels,
		}, []string{"queue"}),

		queueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "queue_depth",
			Help:        "Pending tasks observed when the last task started",
			ConstLabels: config.ConstLabels,
		}, []string{"queue"}),
	}
}

// Prometheus creates middleware that collects Prometheus metrics for queue
// tasks.
//
// Metrics collected:
//   - loom_tasks_total: Counter of tasks by queue, mode and status
//   - loom_task_duration_seconds: Histogram of task execution time
//   - loom_task_wait_seconds: Histogram of time spent queued
//   - loom_task_panics_total: Counter of panicking tasks
//   - loom_queue_depth: Gauge of pending tasks at task start
func Prometheus(opts ...MetricsOption) queue.Middleware {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	m := metricsFor(config)

	return func(t queue.Task, next func() error) error {
		start := time.Now()
		if !t.Enqueued.IsZero() {
			m.taskWait.WithLabelValues(t.Queue).Observe(start.Sub(t.Enqueued).Seconds())
		}
		m.queueDepth.WithLabelValues(t.Queue).Set(float64(t.Depth))

		err := next()

		m.taskDuration.WithLabelValues(t.Queue).Observe(time.Since(start).Seconds())
		status := "success"
		if err != nil {
			status = "error"
			var pe *queue.PanicError
			if errors.As(err, &pe) {
				status = "panic"
				m.taskPanics.WithLabelValues(t.Queue).Inc()
			}
		}
		m.tasksTotal.WithLabelValues(t.Queue, string(t.Mode), status).Inc()

		return err
	}
}
