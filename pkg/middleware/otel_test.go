package middleware

import (
	"context"
	"sync"
	"testing"

	"github.com/vango-dev/loom/pkg/queue"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/embedded"
	"go.opentelemetry.io/otel/trace/noop"
)

type recordedSpan struct {
	noop.Span

	mu     sync.Mutex
	name   string
	attrs  map[attribute.Key]attribute.Value
	status codes.Code
	errs   int
	ended  bool
}

func (s *recordedSpan) SetAttributes(kv ...attribute.KeyValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range kv {
		s.attrs[a.Key] = a.Value
	}
}

func (s *recordedSpan) SetStatus(code codes.Code, _ string) {
	s.mu.Lock()
	s.status = code
	s.mu.Unlock()
}

func (s *recordedSpan) RecordError(error, ...trace.EventOption) {
	s.mu.Lock()
	s.errs++
	s.mu.Unlock()
}

func (s *recordedSpan) End(...trace.SpanEndOption) {
	s.mu.Lock()
	s.ended = true
	s.mu.Unlock()
}

type recordingProvider struct {
	embedded.TracerProvider

	mu    sync.Mutex
	names []string
	spans []*recordedSpan
}

func (p *recordingProvider) Tracer(name string, _ ...trace.TracerOption) trace.Tracer {
	p.mu.Lock()
	p.names = append(p.names, name)
	p.mu.Unlock()
	return &recordingTracer{p: p}
}

func (p *recordingProvider) recorded() []*recordedSpan {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*recordedSpan(nil), p.spans...)
}

type recordingTracer struct {
	embedded.Tracer
	p *recordingProvider
}

func (t *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	s := &recordedSpan{name: name, attrs: make(map[attribute.Key]attribute.Value)}
	for _, a := range cfg.Attributes() {
		s.attrs[a.Key] = a.Value
	}
	t.p.mu.Lock()
	t.p.spans = append(t.p.spans, s)
	t.p.mu.Unlock()
	return trace.ContextWithSpan(ctx, s), s
}

func TestOpenTelemetrySpanPerTask(t *testing.T) {
	tp := &recordingProvider{}
	q := queue.NewWorker(
		queue.WithName("traced"),
		queue.WithMiddleware(OpenTelemetry(
			WithTracerProvider(tp),
			WithTracerName("loom-test"),
			WithAttributeExtractor(func(queue.Task) []attribute.KeyValue {
				return []attribute.KeyValue{attribute.String("test.attr", "ok")}
			}),
		)),
	)
	defer q.Close()

	q.Invoke(func() {})
	q.Wait()

	spans := tp.recorded()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	s := spans[0]
	if s.name != "loom.call" {
		t.Errorf("span name = %q, want loom.call", s.name)
	}
	if got := s.attrs["loom.queue"].AsString(); got != "traced" {
		t.Errorf("loom.queue = %q, want traced", got)
	}
	if got := s.attrs["loom.queue_kind"].AsString(); got != "worker" {
		t.Errorf("loom.queue_kind = %q, want worker", got)
	}
	if got := s.attrs["test.attr"].AsString(); got != "ok" {
		t.Errorf("test.attr = %q, want ok", got)
	}
	if s.status != codes.Ok || !s.ended {
		t.Errorf("status = %v ended = %v", s.status, s.ended)
	}
	if len(tp.names) != 1 || tp.names[0] != "loom-test" {
		t.Errorf("tracer names = %v", tp.names)
	}
}

func TestOpenTelemetryMarksPanics(t *testing.T) {
	tp := &recordingProvider{}
	q := queue.NewWorker(
		queue.WithMiddleware(OpenTelemetry(WithTracerProvider(tp))),
		queue.WithPanicHandler(func(queue.Task, *queue.PanicError) {}),
	)
	defer q.Close()

	q.Post(func() { panic("traced") })
	q.Wait()

	spans := tp.recorded()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	s := spans[0]
	if s.status != codes.Error {
		t.Errorf("status = %v, want Error", s.status)
	}
	if s.errs != 1 {
		t.Errorf("recorded errors = %d, want 1", s.errs)
	}
	if !s.attrs["loom.panicked"].AsBool() {
		t.Error("loom.panicked should be true")
	}
}

func TestOpenTelemetryFilter(t *testing.T) {
	tp := &recordingProvider{}
	q := queue.NewDirect(queue.WithMiddleware(OpenTelemetry(
		WithTracerProvider(tp),
		WithTaskFilter(func(t queue.Task) bool { return t.Mode != queue.ModePost }),
	)))

	ran := false
	q.Post(func() { ran = true })
	if !ran {
		t.Fatal("filtered task did not run")
	}
	if n := len(tp.recorded()); n != 0 {
		t.Errorf("recorded %d spans for filtered task, want 0", n)
	}
}

func TestOTelConfigDefaults(t *testing.T) {
	config := defaultOTelConfig()
	if config.TracerName != defaultTracerName {
		t.Errorf("TracerName = %q, want %q", config.TracerName, defaultTracerName)
	}
	if config.Filter != nil || config.TracerProvider != nil {
		t.Error("Filter and TracerProvider should default to nil")
	}
}
