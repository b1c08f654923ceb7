// Package monitor serves live statistics for a set of queues.
//
// Routes:
//
//	GET /healthz  liveness check
//	GET /stats    JSON array of queue.Stats
//	GET /metrics  Prometheus exposition for the configured gatherer
//	GET /ws       websocket pushing a StatsMessage every interval
//
// # Usage
//
//	srv := monitor.New(monitor.Options{Addr: ":9464"}, q1, q2)
//	go srv.Start(ctx)
//	defer srv.Close()
package monitor
