package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/vango-dev/loom/internal/monitor"
	"github.com/vango-dev/loom/pkg/binder"
	"github.com/vango-dev/loom/pkg/cell"
	"github.com/vango-dev/loom/pkg/event"
	"github.com/vango-dev/loom/pkg/queue"
)

func monitorCmd(g *globals) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Run a sample workload and serve live queue stats",
		Long: `Run a synthetic workload and serve its queue statistics.

A ticking worker queue updates a reactive cell. Change
notifications are dispatched on the events queue and fan out
to a pool through a subscription binder.

Endpoints:
  /healthz  liveness
  /stats    queue stats as JSON
  /metrics  Prometheus metrics
  /ws       live stats over websocket

Examples:
  loom monitor
  loom monitor --addr=:9464`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				g.cfg.Monitor.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runMonitor(ctx, g)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from config)")

	return cmd
}

// workload is the synthetic cell, event and binder graph served by monitor.
type workload struct {
	ui, events, pool *queue.Queue
	counter          *cell.Cell[int]
	ticks            *event.Event[time.Time]
	subs             *binder.Binder
}

func newWorkload(g *globals, mws []queue.Middleware) *workload {
	common := func(name string) []queue.Option {
		return []queue.Option{
			queue.WithName(name),
			queue.WithLogger(g.logger),
			queue.WithMiddleware(mws...),
		}
	}

	w := &workload{}
	w.events = queue.NewWorker(common("events")...)
	w.pool = queue.NewPool(append(common("pool"), queue.WithIdleWorkers(g.cfg.IdleWorkers()))...)
	queue.SetEvents(w.events)

	w.counter = cell.New(0, cell.WithName[int]("counter"))
	w.ticks = event.New[time.Time](event.WithName("tick"))
	w.subs = binder.New(nil)

	binder.On(w.subs, w.ticks).BindFunc(func(time.Time) {
		w.counter.Update(func(n int) int { return n + 1 })
	})
	binder.On(w.subs, w.counter.OnChanged).BindFunc(func(c event.Change[int]) {
		w.pool.Post(func() {
			// Simulated work proportional to the value.
			time.Sleep(time.Duration(c.New%5) * time.Millisecond)
		})
	})
	binder.On(w.subs, w.counter.OnChange).Bind(func(v int) event.Result {
		if v < 0 {
			return event.Handled
		}
		return event.Skip
	})

	w.ui = queue.NewWorker(append(common("ui"),
		queue.WithLoop(func() { w.ticks.Invoke(time.Now()) }, g.cfg.LoopInterval()),
	)...)
	return w
}

func (w *workload) queues() []*queue.Queue {
	return []*queue.Queue{w.ui, w.events, w.pool}
}

// close stops the tick source first so nothing posts into closed queues.
func (w *workload) close() {
	w.ui.Close()
	w.subs.Close()
	w.events.Close()
	w.pool.Close()
	queue.ResetDefaults()
}

func runMonitor(ctx context.Context, g *globals) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	w := newWorkload(g, g.instruments(reg))
	defer w.close()

	srv := monitor.New(monitor.Options{
		Addr:     g.cfg.Monitor.Addr,
		Interval: g.cfg.MonitorInterval(),
		Gatherer: reg,
		Logger:   g.logger,
	}, w.queues()...)

	printBanner()
	fmt.Println("  monitor")
	fmt.Println()
	info("Serving http://%s (stats every %s)", g.cfg.Monitor.Addr, g.cfg.MonitorInterval())
	info("Press Ctrl+C to stop")

	if err := srv.Start(ctx); err != nil {
		return err
	}
	success("Stopped after %d counter updates", w.counter.Get())
	return nil
}
