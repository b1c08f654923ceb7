package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/vango-dev/loom/internal/config"
	"github.com/vango-dev/loom/internal/errors"
	"github.com/vango-dev/loom/pkg/middleware"
	"github.com/vango-dev/loom/pkg/queue"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╦  ┌─┐┌─┐┌┬┐
  ║  │ ││ ││││
  ╩═╝└─┘└─┘┴ ┴
`

// globals holds the persistent flags and the configuration they resolve to.
type globals struct {
	configPath  string
	logLevel    string
	errorFormat string
	noColor     bool

	cfg    *config.Config
	logger *slog.Logger
}

func main() {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:   "loom",
		Short: "Queues, events and reactive cells for Go",
		Long: `Loom marshals work onto owner goroutines.

It provides thread queues with synchronous and asynchronous
submission, typed multicast events, reactive data cells and
subscription binders. This tool benchmarks and monitors them:

  • bench    measure Post, Call and event throughput
  • monitor  serve live queue stats, metrics and a websocket feed
  • config   write a default loom.toml
  • errors   explain loom error codes`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.load()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Path to loom.toml or loom.json (default: nearest in working directory)")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error (default from config)")
	rootCmd.PersistentFlags().StringVar(&g.errorFormat, "error-format", "text", "Error output: text, compact, json")
	rootCmd.PersistentFlags().BoolVar(&g.noColor, "no-color", false, "Disable colored output")

	cobra.OnInitialize(func() {
		if g.noColor {
			errors.DisableColors()
		}
	})

	rootCmd.AddCommand(
		benchCmd(g),
		monitorCmd(g),
		configCmd(),
		errorsCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		style, _ := g.errorStyle()
		errors.FprintStyle(os.Stderr, err, style, "E062")
		os.Exit(1)
	}
}

// errorStyle resolves --error-format. Unknown names fall back to text.
func (g *globals) errorStyle() (errors.Style, error) {
	if g.errorFormat == "" {
		return errors.StyleText, nil
	}
	style, ok := errors.ParseStyle(g.errorFormat)
	if !ok {
		return style, errors.New("E064").WithDetail(fmt.Sprintf("%q is not one of text, compact or json.", g.errorFormat))
	}
	return style, nil
}

// load resolves the configuration and installs the default logger.
func (g *globals) load() error {
	if _, err := g.errorStyle(); err != nil {
		return err
	}

	var (
		cfg *config.Config
		err error
	)
	if g.configPath != "" {
		cfg, err = config.LoadFile(g.configPath)
	} else {
		cfg, err = config.LoadFromWorkingDir()
	}
	if err != nil {
		return err
	}

	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	g.cfg = cfg
	g.logger = cfg.Logger(os.Stderr)
	slog.SetDefault(g.logger)
	return nil
}

// instruments returns the queue middleware enabled by the configuration.
func (g *globals) instruments(reg prometheus.Registerer) []queue.Middleware {
	var mws []queue.Middleware
	if g.cfg.Metrics.Enabled {
		mws = append(mws, middleware.Prometheus(
			middleware.WithNamespace(g.cfg.Metrics.Namespace),
			middleware.WithRegistry(reg),
		))
	}
	if g.cfg.Tracing.Enabled {
		mws = append(mws, middleware.OpenTelemetry(
			middleware.WithTracerName(g.cfg.Tracing.TracerName),
		))
	}
	return mws
}

// printBanner prints the loom ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}
