package queue

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/petermattis/goid"
)

// Kind identifies the scheduling strategy behind a Queue.
type Kind string

const (
	KindWorker Kind = "worker"
	KindCaller Kind = "caller"
	KindDirect Kind = "direct"
	KindPool   Kind = "pool"
)

// Mode identifies how a task was submitted.
type Mode string

const (
	ModeCall  Mode = "call"
	ModeAsync Mode = "async"
	ModePost  Mode = "post"
)

// Launch selects whether Invoke waits for the task.
type Launch uint8

const (
	// LaunchDeferred waits for completion. This is the default.
	LaunchDeferred Launch = iota
	// LaunchAsync enqueues and returns immediately.
	LaunchAsync
)

// Task describes one unit of work to middleware.
type Task struct {
	Queue    string
	Kind     Kind
	Mode     Mode
	Enqueued time.Time
	// Depth is the number of pending tasks when this one started.
	Depth int
}

// Middleware wraps task execution. next returns a *PanicError if the task
// panicked. Middleware must call next exactly once.
type Middleware func(t Task, next func() error) error

// PanicHandler is called for panics that no caller is waiting to observe.
type PanicHandler func(t Task, err *PanicError)

// Stats is a point-in-time snapshot of a queue.
type Stats struct {
	Name        string `json:"name"`
	Kind        Kind   `json:"kind"`
	Pending     int    `json:"pending"`
	Processed   uint64 `json:"processed"`
	Panicked    uint64 `json:"panicked"`
	IdleWorkers int    `json:"idleWorkers,omitempty"`
	LiveWorkers int    `json:"liveWorkers,omitempty"`
	Closed      bool   `json:"closed"`
}

// executor is the scheduling strategy behind a Queue.
type executor interface {
	enqueue(t *task) error
	// processIfCurrent drains and reports true when the calling goroutine
	// may run work for this queue inline.
	processIfCurrent() bool
	drain()
	pending() int
	wait(ctx context.Context) error
	close()
	stats(s *Stats)
}

type task struct {
	fn       func()
	mode     Mode
	enqueued time.Time
	// fail receives a recovered panic when a caller observes the result.
	fail func(err error)
}

// Queue is a handle over one execution context.
type Queue struct {
	name       string
	kind       Kind
	logger     *slog.Logger
	middleware []Middleware
	onPanic    PanicHandler
	loop       func()
	interval   time.Duration
	exec       executor

	owner     atomic.Int64
	active    goroutineSet
	closed    atomic.Bool
	processed atomic.Uint64
	panicked  atomic.Uint64
}

func newQueue(kind Kind, opts []Option) (*Queue, options) {
	o := defaultOptions(kind)
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		name:       o.name,
		kind:       kind,
		logger:     logger.With("queue", o.name),
		middleware: o.middleware,
		onPanic:    o.panicHandler,
		loop:       o.loop,
		interval:   o.loopInterval,
	}
	if q.onPanic == nil {
		q.onPanic = q.logPanic
	}
	return q, o
}

// NewWorker creates a queue served by a dedicated goroutine.
func NewWorker(opts ...Option) *Queue {
	q, _ := newQueue(KindWorker, opts)
	b := newInbox(q)
	q.exec = b
	b.started.Add(1)
	go b.serve()
	b.started.Wait()
	q.logger.Debug("worker started")
	return q
}

// NewCaller creates a queue owned by the calling goroutine. Its tasks run
// only when that goroutine calls ProcessQueue, Wait or Run.
func NewCaller(opts ...Option) *Queue {
	q, _ := newQueue(KindCaller, opts)
	q.exec = newInbox(q)
	q.owner.Store(goid.Get())
	return q
}

// NewDirect creates a queue that runs every task inline on the submitter.
func NewDirect(opts ...Option) *Queue {
	q, _ := newQueue(KindDirect, opts)
	q.exec = &direct{q: q}
	return q
}

// NewPool creates a queue that runs each task on a pooled worker goroutine.
// Tasks may run concurrently and in any order.
func NewPool(opts ...Option) *Queue {
	q, o := newQueue(KindPool, opts)
	q.exec = newPool(q, o.idleWorkers)
	return q
}

// Name returns the queue name.
func (q *Queue) Name() string { return q.name }

// Kind returns the scheduling strategy.
func (q *Queue) Kind() Kind { return q.kind }

// Logger returns the queue's logger.
func (q *Queue) Logger() *slog.Logger { return q.logger }

// IsCurrent reports whether the calling goroutine owns the queue or is
// executing one of its tasks.
func (q *Queue) IsCurrent() bool {
	id := goid.Get()
	return q.owner.Load() == id || q.active.has(id)
}

// Call runs fn on q and returns its result. A caller already running on q
// executes fn inline after draining earlier tasks.
func Call[T any](q *Queue, fn func() T) T {
	if q.exec.processIfCurrent() {
		return fn()
	}
	return submit(q, ModeCall, fn).Get()
}

// Async submits fn to q without the inline fast path.
func Async[T any](q *Queue, fn func() T) *Future[T] {
	return submit(q, ModeAsync, fn)
}

func submit[T any](q *Queue, mode Mode, fn func() T) *Future[T] {
	f := newFuture[T]()
	t := &task{
		mode: mode,
		fn:   func() { f.resolve(fn(), nil) },
		fail: f.fail,
	}
	if err := q.submit(t); err != nil {
		f.fail(err)
	}
	return f
}

// Invoke runs fn on q. By default it waits like Call; with LaunchAsync it
// enqueues and returns.
func (q *Queue) Invoke(fn func(), launch ...Launch) {
	if len(launch) > 0 && launch[0] == LaunchAsync {
		q.Post(fn)
		return
	}
	Call(q, func() struct{} {
		fn()
		return struct{}{}
	})
}

// Post enqueues fn and returns immediately. Tasks posted after Close are
// dropped with a warning.
func (q *Queue) Post(fn func()) {
	if err := q.submit(&task{fn: fn, mode: ModePost}); err != nil {
		q.logger.Warn("post discarded", "error", err)
	}
}

func (q *Queue) submit(t *task) error {
	if q.closed.Load() {
		return ErrQueueClosed
	}
	t.enqueued = time.Now()
	return q.exec.enqueue(t)
}

// ProcessQueue runs queued tasks on the calling goroutine until the inbox
// is empty. Worker queues only drain when called from their own goroutine.
// Pool queues wait for in-flight tasks instead.
func (q *Queue) ProcessQueue() {
	q.exec.drain()
}

// Empty reports whether no task is queued or executing.
func (q *Queue) Empty() bool {
	return q.exec.pending() == 0
}

// Wait blocks until Empty. A caller running on q pumps the inbox instead.
func (q *Queue) Wait() {
	if err := q.WaitContext(context.Background()); err != nil {
		q.logger.Warn("wait aborted", "error", err)
	}
}

// WaitContext is Wait bounded by ctx.
func (q *Queue) WaitContext(ctx context.Context) error {
	if q.exec.processIfCurrent() {
		return nil
	}
	return q.exec.wait(ctx)
}

// Run adopts the calling goroutine as the owner of a caller queue and pumps
// it until ctx is done or the queue is closed.
func (q *Queue) Run(ctx context.Context) error {
	b, ok := q.exec.(*inbox)
	if !ok || q.kind != KindCaller {
		return ErrNotPumped
	}
	q.owner.Store(goid.Get())
	return b.pump(ctx)
}

// Close stops accepting work. Worker and pool queues finish what is already
// queued before their goroutines exit; Close waits for that unless it is
// called from one of those goroutines.
func (q *Queue) Close() error {
	if q.closed.Swap(true) {
		return nil
	}
	q.exec.close()
	q.logger.Debug("queue closed", "processed", q.processed.Load())
	return nil
}

// Stats returns a snapshot of the queue.
func (q *Queue) Stats() Stats {
	s := Stats{
		Name:      q.name,
		Kind:      q.kind,
		Pending:   q.exec.pending(),
		Processed: q.processed.Load(),
		Panicked:  q.panicked.Load(),
		Closed:    q.closed.Load(),
	}
	q.exec.stats(&s)
	return s
}

// run executes t on the calling goroutine through the middleware chain.
func (q *Queue) run(t *task) {
	id := goid.Get()
	q.active.add(id)
	defer q.active.remove(id)

	info := Task{
		Queue:    q.name,
		Kind:     q.kind,
		Mode:     t.mode,
		Enqueued: t.enqueued,
		Depth:    q.exec.pending(),
	}
	next := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = &PanicError{Queue: q.name, Value: r, Stack: debug.Stack()}
			}
		}()
		t.fn()
		return nil
	}
	for i := len(q.middleware) - 1; i >= 0; i-- {
		mw, inner := q.middleware[i], next
		next = func() error { return mw(info, inner) }
	}

	err := next()
	q.processed.Add(1)

	var pe *PanicError
	if !errors.As(err, &pe) {
		return
	}
	q.panicked.Add(1)
	if t.fail != nil {
		t.fail(pe)
		return
	}
	q.reportPanic(info, pe)
}

func (q *Queue) reportPanic(info Task, pe *PanicError) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("panic handler panicked", "panic", r)
		}
	}()
	q.onPanic(info, pe)
}

func (q *Queue) logPanic(info Task, pe *PanicError) {
	q.logger.Error("task panicked",
		"code", "E003",
		"mode", info.Mode,
		"panic", pe.Value,
		"stack", string(pe.Stack),
	)
}

func (q *Queue) runLoop() {
	defer func() {
		if r := recover(); r != nil {
			q.panicked.Add(1)
			q.logger.Error("loop function panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	q.loop()
}

// goroutineSet counts the goroutines currently executing tasks of a queue.
// Counts allow the same goroutine to nest inline drains.
type goroutineSet struct {
	mu  sync.Mutex
	ids map[int64]int
}

func (s *goroutineSet) add(id int64) {
	s.mu.Lock()
	if s.ids == nil {
		s.ids = make(map[int64]int)
	}
	s.ids[id]++
	s.mu.Unlock()
}

func (s *goroutineSet) remove(id int64) {
	s.mu.Lock()
	if s.ids[id] <= 1 {
		delete(s.ids, id)
	} else {
		s.ids[id]--
	}
	s.mu.Unlock()
}

func (s *goroutineSet) has(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ids[id] > 0
}
