package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vango-dev/loom/pkg/queue"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name for loom queues.
const defaultTracerName = "loom"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "loom").
	TracerName string

	// TracerProvider overrides the global tracer provider.
	TracerProvider trace.TracerProvider

	// Filter determines which tasks to trace.
	// If nil, all tasks are traced.
	Filter func(t queue.Task) bool

	// AttributeExtractor adds custom attributes for each traced task.
	AttributeExtractor func(t queue.Task) []attribute.KeyValue
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithTaskFilter sets a filter function for tasks.
func WithTaskFilter(filter func(t queue.Task) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(t queue.Task) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

func defaultOTelConfig() OTelConfig {
	return OTelConfig{
		TracerName: defaultTracerName,
	}
}

// OpenTelemetry creates middleware that traces every queue task.
//
// Each span is named "loom.<mode>" and records the queue name, queue kind,
// pending depth and the time the task spent queued. A panicking task marks
// its span as an error.
func OpenTelemetry(opts ...OTelOption) queue.Middleware {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}

	provider := config.TracerProvider
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	tracer := provider.Tracer(config.TracerName)

	return func(t queue.Task, next func() error) error {
		if config.Filter != nil && !config.Filter(t) {
			return next()
		}

		start := time.Now()
		attrs := []attribute.KeyValue{
			attribute.String("loom.queue", t.Queue),
			attribute.String("loom.queue_kind", string(t.Kind)),
			attribute.String("loom.mode", string(t.Mode)),
			attribute.Int("loom.depth", t.Depth),
		}
		if !t.Enqueued.IsZero() {
			attrs = append(attrs, attribute.Int64("loom.wait_us", start.Sub(t.Enqueued).Microseconds()))
		}
		if config.AttributeExtractor != nil {
			attrs = append(attrs, config.AttributeExtractor(t)...)
		}

		_, span := tracer.Start(
			context.Background(),
			fmt.Sprintf("loom.%s", t.Mode),
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(attrs...),
			trace.WithTimestamp(start),
		)
		defer span.End()

		err := next()

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			var pe *queue.PanicError
			if errors.As(err, &pe) {
				span.SetAttributes(attribute.Bool("loom.panicked", true))
			}
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}
