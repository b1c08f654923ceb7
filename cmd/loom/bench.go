package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/vango-dev/loom/internal/errors"
	"github.com/vango-dev/loom/pkg/event"
	"github.com/vango-dev/loom/pkg/queue"
)

type benchOptions struct {
	Kinds      []string
	Tasks      int
	Producers  int
	JSONOut    string
	Middleware []queue.Middleware
}

type benchResult struct {
	Kind       queue.Kind `json:"kind"`
	Op         string     `json:"op"`
	Tasks      int        `json:"tasks"`
	Producers  int        `json:"producers"`
	Executed   int64      `json:"executed"`
	DurationMS float64    `json:"duration_ms"`
	OpsPerSec  float64    `json:"ops_per_sec"`
	// Latency is only sampled for synchronous calls.
	P50US float64 `json:"p50_us,omitempty"`
	P99US float64 `json:"p99_us,omitempty"`
}

var benchOps = []string{"post", "call", "event"}

func benchCmd(g *globals) *cobra.Command {
	var (
		kinds      string
		tasks      int
		producers  int
		jsonOut    string
		instrument bool
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure queue and event throughput",
		Long: `Measure Post, Call and event dispatch throughput.

Each operation runs against a fresh queue of every selected kind
with several producer goroutines submitting concurrently.

Examples:
  loom bench
  loom bench --kinds=worker,pool --tasks=500000
  loom bench --json=-`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := benchOptions{
				Kinds:     strings.Split(kinds, ","),
				Tasks:     g.cfg.Bench.Tasks,
				Producers: g.cfg.Bench.Producers,
				JSONOut:   jsonOut,
			}
			if tasks > 0 {
				opts.Tasks = tasks
			}
			if producers > 0 {
				opts.Producers = producers
			}
			if instrument {
				opts.Middleware = g.instruments(prometheus.NewRegistry())
			}

			results, err := runBench(opts, g.cfg.IdleWorkers())
			if err != nil {
				return err
			}

			if opts.JSONOut != "" {
				return writeBenchJSON(opts.JSONOut, results)
			}
			printBanner()
			writeBenchSummary(os.Stdout, opts, results)
			return nil
		},
	}

	cmd.Flags().StringVar(&kinds, "kinds", "worker,pool,direct", "Comma-separated queue kinds to measure")
	cmd.Flags().IntVarP(&tasks, "tasks", "n", 0, "Tasks per measurement (default from config)")
	cmd.Flags().IntVarP(&producers, "producers", "p", 0, "Concurrent producers (default from config)")
	cmd.Flags().StringVar(&jsonOut, "json", "", "Write results as JSON to a file, or - for stdout")
	cmd.Flags().BoolVar(&instrument, "instrument", false, "Attach the configured metrics and tracing middleware")

	return cmd
}

func newBenchQueue(kind string, idleWorkers int, mws []queue.Middleware) (*queue.Queue, error) {
	opts := []queue.Option{
		queue.WithName("bench-" + kind),
		queue.WithMiddleware(mws...),
	}
	switch queue.Kind(kind) {
	case queue.KindWorker:
		return queue.NewWorker(opts...), nil
	case queue.KindPool:
		return queue.NewPool(append(opts, queue.WithIdleWorkers(idleWorkers))...), nil
	case queue.KindDirect:
		return queue.NewDirect(opts...), nil
	}
	return nil, errors.New("E061").
		WithDetail(fmt.Sprintf("%q cannot be benchmarked", kind)).
		WithSuggestion("Use worker, pool or direct")
}

func runBench(opts benchOptions, idleWorkers int) ([]benchResult, error) {
	var results []benchResult
	for _, kind := range opts.Kinds {
		kind = strings.TrimSpace(kind)
		for _, op := range benchOps {
			q, err := newBenchQueue(kind, idleWorkers, opts.Middleware)
			if err != nil {
				return nil, err
			}
			results = append(results, measure(q, op, opts.Tasks, opts.Producers))
			q.Close()
		}
	}
	return results, nil
}

// measure submits tasks spread over producers and waits for q to go idle.
func measure(q *queue.Queue, op string, tasks, producers int) benchResult {
	var executed atomic.Int64
	work := func() { executed.Add(1) }

	var submit func(i int) time.Duration
	switch op {
	case "post":
		submit = func(int) time.Duration {
			q.Post(work)
			return 0
		}
	case "call":
		submit = func(i int) time.Duration {
			start := time.Now()
			queue.Call(q, func() int {
				work()
				return i
			})
			return time.Since(start)
		}
	case "event":
		e := event.New[int](event.WithQueue(q), event.WithName("bench"))
		e.BindFunc(func(int) { work() })
		submit = func(i int) time.Duration {
			e.Invoke(i)
			return 0
		}
	}

	per := tasks / producers
	if per < 1 {
		per = 1
	}
	latencies := make([][]time.Duration, producers)

	var wg sync.WaitGroup
	start := time.Now()
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			samples := make([]time.Duration, 0, per)
			for i := 0; i < per; i++ {
				if d := submit(i); d > 0 {
					samples = append(samples, d)
				}
			}
			latencies[p] = samples
		}(p)
	}
	wg.Wait()
	q.Wait()
	elapsed := time.Since(start)

	var all []time.Duration
	for _, s := range latencies {
		all = append(all, s...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })

	total := per * producers
	return benchResult{
		Kind:       q.Kind(),
		Op:         op,
		Tasks:      total,
		Producers:  producers,
		Executed:   executed.Load(),
		DurationMS: float64(elapsed) / float64(time.Millisecond),
		OpsPerSec:  float64(total) / elapsed.Seconds(),
		P50US:      us(percentile(all, 0.50)),
		P99US:      us(percentile(all, 0.99)),
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := int(math.Ceil(float64(len(sorted))*p)) - 1
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}

func us(d time.Duration) float64 {
	return float64(d) / float64(time.Microsecond)
}

func writeBenchSummary(w io.Writer, opts benchOptions, results []benchResult) {
	fmt.Fprintln(w, "=== Loom Queue Benchmark ===")
	fmt.Fprintf(w, "Tasks: %d  Producers: %d\n", opts.Tasks, opts.Producers)
	if len(opts.Middleware) > 0 {
		fmt.Fprintf(w, "Middleware: %d attached\n", len(opts.Middleware))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%-8s %-6s %12s %14s %10s %10s\n", "kind", "op", "duration", "ops/s", "p50", "p99")
	for _, r := range results {
		p50, p99 := "-", "-"
		if r.P99US > 0 {
			p50 = fmt.Sprintf("%.1fus", r.P50US)
			p99 = fmt.Sprintf("%.1fus", r.P99US)
		}
		fmt.Fprintf(w, "%-8s %-6s %10.2fms %14.0f %10s %10s\n",
			r.Kind, r.Op, r.DurationMS, r.OpsPerSec, p50, p99)
		if r.Executed != int64(r.Tasks) {
			fmt.Fprintf(w, "  warning: %d of %d tasks executed\n", r.Executed, r.Tasks)
		}
	}
}

func writeBenchJSON(path string, results []benchResult) error {
	var out io.Writer
	if path == "-" {
		out = os.Stdout
	} else {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
