package queue

import (
	"log/slog"
	"time"
)

// DefaultIdleWorkers is the idle cache limit of a pool queue.
const DefaultIdleWorkers = 1

// DefaultLoopInterval is used by WithLoop when no interval is given.
const DefaultLoopInterval = time.Millisecond

// Option configures a Queue.
type Option func(*options)

type options struct {
	name         string
	logger       *slog.Logger
	middleware   []Middleware
	panicHandler PanicHandler
	idleWorkers  int
	loop         func()
	loopInterval time.Duration
}

func defaultOptions(kind Kind) options {
	return options{
		name:        string(kind),
		idleWorkers: DefaultIdleWorkers,
	}
}

// WithName sets the queue name used in logs, metrics and stats.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMiddleware appends task middleware. The first middleware is outermost.
func WithMiddleware(mw ...Middleware) Option {
	return func(o *options) {
		o.middleware = append(o.middleware, mw...)
	}
}

// WithPanicHandler sets the handler for panics in fire-and-forget tasks.
func WithPanicHandler(h PanicHandler) Option {
	return func(o *options) {
		o.panicHandler = h
	}
}

// WithIdleWorkers sets how many idle workers a pool keeps for reuse.
// Zero disables the cache; every task then gets a fresh goroutine.
func WithIdleWorkers(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.idleWorkers = n
		}
	}
}

// WithLoop runs fn on the owning goroutine once per interval, in addition
// to draining the inbox. It applies to worker queues and to Run.
func WithLoop(fn func(), interval time.Duration) Option {
	return func(o *options) {
		o.loop = fn
		if interval <= 0 {
			interval = DefaultLoopInterval
		}
		o.loopInterval = interval
	}
}
