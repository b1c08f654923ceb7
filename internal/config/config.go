package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/vango-dev/loom/internal/errors"
	"github.com/vango-dev/loom/pkg/queue"
)

const (
	// ConfigFileName is the name of the TOML configuration file.
	ConfigFileName = "loom.toml"

	// JSONConfigFileName is the JSON alternative, used when no TOML file exists.
	JSONConfigFileName = "loom.json"

	// DefaultMonitorAddr is the default monitor listen address.
	DefaultMonitorAddr = "localhost:9464"

	// DefaultNamespace is the default metrics namespace.
	DefaultNamespace = "loom"
)

// Config represents the complete loom configuration.
type Config struct {
	Log     LogConfig     `toml:"log" json:"log"`
	Queue   QueueConfig   `toml:"queue" json:"queue"`
	Metrics MetricsConfig `toml:"metrics" json:"metrics"`
	Tracing TracingConfig `toml:"tracing" json:"tracing"`
	Monitor MonitorConfig `toml:"monitor" json:"monitor"`
	Bench   BenchConfig   `toml:"bench" json:"bench"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// LogConfig configures the slog handler built by Logger.
type LogConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `toml:"level" json:"level"`

	// Format is text or json.
	Format string `toml:"format" json:"format"`
}

// QueueConfig configures queues created by the CLI.
type QueueConfig struct {
	// IdleWorkers is the number of idle pool goroutines kept for reuse.
	// Unset selects the default of one. Zero disables the cache.
	IdleWorkers *int `toml:"idle_workers,omitempty" json:"idleWorkers,omitempty"`

	// LoopInterval is the tick of a worker loop function (e.g. "16ms").
	LoopInterval string `toml:"loop_interval" json:"loopInterval"`
}

// MetricsConfig configures the Prometheus queue middleware.
type MetricsConfig struct {
	Enabled   bool   `toml:"enabled" json:"enabled"`
	Namespace string `toml:"namespace" json:"namespace"`
}

// TracingConfig configures the OpenTelemetry queue middleware.
type TracingConfig struct {
	Enabled    bool   `toml:"enabled" json:"enabled"`
	TracerName string `toml:"tracer_name" json:"tracerName"`
}

// MonitorConfig configures the monitor HTTP server.
type MonitorConfig struct {
	// Addr is the listen address.
	Addr string `toml:"addr" json:"addr"`

	// Interval is how often stats are pushed to websocket clients.
	Interval string `toml:"interval" json:"interval"`
}

// BenchConfig configures the bench command.
type BenchConfig struct {
	// Tasks is the number of tasks submitted per measurement.
	Tasks int `toml:"tasks" json:"tasks"`

	// Producers is the number of goroutines submitting concurrently.
	Producers int `toml:"producers" json:"producers"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Queue: QueueConfig{
			IdleWorkers:  intPtr(queue.DefaultIdleWorkers),
			LoopInterval: "16ms",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: DefaultNamespace,
		},
		Tracing: TracingConfig{
			TracerName: "loom",
		},
		Monitor: MonitorConfig{
			Addr:     DefaultMonitorAddr,
			Interval: "1s",
		},
		Bench: BenchConfig{
			Tasks:     100000,
			Producers: 4,
		},
	}
}

// Load reads configuration from the specified directory.
// It prefers loom.toml and falls back to loom.json.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(path); err != nil {
		if alt := filepath.Join(dir, JSONConfigFileName); fileExists(alt) {
			path = alt
		}
	}
	return LoadFile(path)
}

// LoadFile reads configuration from the specified file path. The format is
// chosen by extension.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E020").
				WithDetail("No " + filepath.Base(path) + " found in " + filepath.Dir(path)).
				WithSuggestion("Run 'loom config init' to write a default " + ConfigFileName)
		}
		return nil, errors.New("E021").Wrap(err)
	}

	cfg := New()
	if err := decode(path, data, cfg); err != nil {
		return nil, errors.New("E021").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			Wrap(err)
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	if isJSON(path) {
		return json.Unmarshal(data, cfg)
	}
	return toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(cfg)
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	var data []byte
	var err error
	if isJSON(path) {
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	} else {
		data, err = toml.Marshal(c)
	}
	if err != nil {
		return errors.New("E021").Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E021").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	d := New()

	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	if c.Queue.IdleWorkers == nil {
		c.Queue.IdleWorkers = d.Queue.IdleWorkers
	}
	if c.Queue.LoopInterval == "" {
		c.Queue.LoopInterval = d.Queue.LoopInterval
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = d.Metrics.Namespace
	}
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = d.Tracing.TracerName
	}
	if c.Monitor.Addr == "" {
		c.Monitor.Addr = d.Monitor.Addr
	}
	if c.Monitor.Interval == "" {
		c.Monitor.Interval = d.Monitor.Interval
	}
	if c.Bench.Tasks == 0 {
		c.Bench.Tasks = d.Bench.Tasks
	}
	if c.Bench.Producers == 0 {
		c.Bench.Producers = d.Bench.Producers
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, ok := parseLevel(c.Log.Level); !ok {
		return invalid("log.level must be one of debug, info, warn, error (got %q)", c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return invalid("log.format must be text or json (got %q)", c.Log.Format)
	}
	if c.IdleWorkers() < 0 {
		return invalid("queue.idle_workers must not be negative")
	}
	if d, err := time.ParseDuration(c.Queue.LoopInterval); err != nil || d <= 0 {
		return invalid("queue.loop_interval must be a positive duration (got %q)", c.Queue.LoopInterval)
	}
	if d, err := time.ParseDuration(c.Monitor.Interval); err != nil || d <= 0 {
		return invalid("monitor.interval must be a positive duration (got %q)", c.Monitor.Interval)
	}
	if c.Bench.Tasks < 1 || c.Bench.Producers < 1 {
		return invalid("bench.tasks and bench.producers must be at least 1")
	}
	return nil
}

func invalid(format string, args ...any) error {
	return errors.New("E022").WithDetail(fmt.Sprintf(format, args...))
}

// IdleWorkers returns queue.idle_workers, or the pool default when unset.
func (c *Config) IdleWorkers() int {
	if c.Queue.IdleWorkers == nil {
		return queue.DefaultIdleWorkers
	}
	return *c.Queue.IdleWorkers
}

func intPtr(n int) *int { return &n }

// LoopInterval returns queue.loop_interval as a duration.
func (c *Config) LoopInterval() time.Duration {
	d, _ := time.ParseDuration(c.Queue.LoopInterval)
	return d
}

// MonitorInterval returns monitor.interval as a duration.
func (c *Config) MonitorInterval() time.Duration {
	d, _ := time.ParseDuration(c.Monitor.Interval)
	return d
}

// Logger builds a slog.Logger writing to w according to the log section.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.Log.Level)
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	return fileExists(filepath.Join(dir, ConfigFileName)) ||
		fileExists(filepath.Join(dir, JSONConfigFileName))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// FindProjectRoot walks up directories to find the nearest directory
// holding a loom configuration file.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E020").
				WithDetail("No " + ConfigFileName + " found in " + startDir + " or any parent directory").
				WithSuggestion("Run 'loom config init' to write a default " + ConfigFileName)
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory
// or its nearest parent holding one. Without any file it returns defaults.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return New(), nil
	}

	return Load(root)
}
