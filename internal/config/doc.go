// Package config provides configuration parsing for the loom CLI.
//
// The configuration is stored in loom.toml, or loom.json when no TOML file
// exists. This package handles loading, saving, and validating it. Fields
// left out of the file keep their defaults. An explicit idle_workers = 0
// is kept and disables the pool's idle cache.
//
// # Configuration File Structure
//
//	[log]
//	level = "info"
//	format = "text"
//
//	[queue]
//	idle_workers = 1
//	loop_interval = "16ms"
//
//	[metrics]
//	enabled = true
//	namespace = "loom"
//
//	[tracing]
//	enabled = false
//	tracer_name = "loom"
//
//	[monitor]
//	addr = "localhost:9464"
//	interval = "1s"
//
//	[bench]
//	tasks = 100000
//	producers = 4
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	logger := cfg.Logger(os.Stderr)
package config
