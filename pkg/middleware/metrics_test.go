package middleware

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/vango-dev/loom/pkg/queue"
)

func metricCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	if m.Counter == nil {
		t.Fatal("expected counter metric to have Counter field")
	}
	return m.GetCounter().GetValue()
}

func metricHistogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	metric, ok := o.(prometheus.Metric)
	if !ok {
		t.Fatalf("observer %T does not implement prometheus.Metric", o)
	}
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	if m.Histogram == nil {
		t.Fatal("expected histogram metric to have Histogram field")
	}
	return m.GetHistogram().GetSampleCount()
}

func TestPrometheusRecordsTasks(t *testing.T) {
	reg := prometheus.NewRegistry()
	q := queue.NewWorker(
		queue.WithName("metrics"),
		queue.WithMiddleware(Prometheus(WithRegistry(reg))),
		queue.WithPanicHandler(func(queue.Task, *queue.PanicError) {}),
	)
	defer q.Close()

	q.Invoke(func() {})
	q.Post(func() {})
	q.Post(func() { panic("x") })
	q.Wait()

	config := defaultMetricsConfig()
	config.Registry = reg
	m := metricsFor(config)
	tests := []struct {
		mode, status string
		want         float64
	}{
		{"call", "success", 1},
		{"post", "success", 1},
		{"post", "panic", 1},
		{"async", "success", 0},
	}
	for _, tt := range tests {
		got := metricCounterValue(t, m.tasksTotal.WithLabelValues("metrics", tt.mode, tt.status))
		if got != tt.want {
			t.Errorf("tasks_total{%s,%s} = %v, want %v", tt.mode, tt.status, got, tt.want)
		}
	}
	if got := metricCounterValue(t, m.taskPanics.WithLabelValues("metrics")); got != 1 {
		t.Errorf("task_panics_total = %v, want 1", got)
	}
	if got := metricHistogramCount(t, m.taskDuration.WithLabelValues("metrics")); got != 3 {
		t.Errorf("task_duration_seconds count = %d, want 3", got)
	}
	if got := metricHistogramCount(t, m.taskWait.WithLabelValues("metrics")); got != 3 {
		t.Errorf("task_wait_seconds count = %d, want 3", got)
	}
}

func TestPrometheusSharesCollectorsPerRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()

	// A second registration on the same registry must not panic with a
	// duplicate collector error.
	a := queue.NewDirect(queue.WithName("a"), queue.WithMiddleware(Prometheus(WithRegistry(reg))))
	b := queue.NewDirect(queue.WithName("b"), queue.WithMiddleware(Prometheus(WithRegistry(reg))))
	a.Post(func() {})
	b.Post(func() {})

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	var found bool
	for _, f := range families {
		if f.GetName() != "loom_tasks_total" {
			continue
		}
		found = true
		if n := len(f.GetMetric()); n != 2 {
			t.Errorf("loom_tasks_total has %d series, want 2", n)
		}
	}
	if !found {
		t.Error("loom_tasks_total not registered")
	}
}

func TestPrometheusNamespacesOnOneRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()

	a := queue.NewDirect(queue.WithName("q"), queue.WithMiddleware(Prometheus(WithNamespace("a"), WithRegistry(reg))))
	b := queue.NewDirect(queue.WithName("q"), queue.WithMiddleware(Prometheus(WithNamespace("b"), WithRegistry(reg))))
	a.Post(func() {})
	b.Post(func() {})
	b.Post(func() {})

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	want := map[string]float64{"a_tasks_total": 1, "b_tasks_total": 2}
	for _, f := range families {
		v, ok := want[f.GetName()]
		if !ok {
			continue
		}
		delete(want, f.GetName())
		if got := f.GetMetric()[0].GetCounter().GetValue(); got != v {
			t.Errorf("%s = %v, want %v", f.GetName(), got, v)
		}
	}
	for name := range want {
		t.Errorf("%s not registered", name)
	}
}

func TestMetricsKeyIgnoresLabelOrder(t *testing.T) {
	reg := prometheus.NewRegistry()
	x := MetricsConfig{Registry: reg, Namespace: "n", ConstLabels: prometheus.Labels{"a": "1", "b": "2"}}
	y := MetricsConfig{Registry: reg, Namespace: "n", ConstLabels: prometheus.Labels{"b": "2", "a": "1"}}
	if keyFor(x) != keyFor(y) {
		t.Error("equal label sets produced different keys")
	}
	y.Subsystem = "ui"
	if keyFor(x) == keyFor(y) {
		t.Error("different subsystems produced the same key")
	}
}

func TestMetricsConfig(t *testing.T) {
	config := defaultMetricsConfig()
	if config.Namespace != "loom" {
		t.Errorf("default Namespace = %q, want loom", config.Namespace)
	}
	if config.Registry != prometheus.DefaultRegisterer {
		t.Error("default Registry should be prometheus.DefaultRegisterer")
	}

	reg := prometheus.NewRegistry()
	opts := []MetricsOption{
		WithNamespace("app"),
		WithSubsystem("ui"),
		WithConstLabels(prometheus.Labels{"env": "test"}),
		WithBuckets([]float64{0.1, 1}),
		WithRegistry(reg),
	}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Namespace != "app" || config.Subsystem != "ui" {
		t.Errorf("Namespace/Subsystem = %q/%q", config.Namespace, config.Subsystem)
	}
	if config.ConstLabels["env"] != "test" {
		t.Errorf("ConstLabels = %v", config.ConstLabels)
	}
	if len(config.Buckets) != 2 {
		t.Errorf("Buckets = %v", config.Buckets)
	}
	if config.Registry != reg {
		t.Error("Registry not applied")
	}
}
