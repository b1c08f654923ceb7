package main

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vango-dev/loom/pkg/queue"
)

// reportedModules are the dependencies whose versions change queue
// behaviour or the exported telemetry.
var reportedModules = []string{
	"github.com/petermattis/goid",
	"github.com/prometheus/client_golang",
	"go.opentelemetry.io/otel",
}

func versionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the loom version, the queue kinds it supports and the runtime it was built with.`,
		// Version needs no configuration.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			if short {
				fmt.Println(version)
				return
			}
			printBanner()
			info, _ := debug.ReadBuildInfo()
			writeVersion(os.Stdout, info)
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only version number")

	return cmd
}

// writeVersion writes the build report. info may be nil when the binary
// carries no module data.
func writeVersion(w io.Writer, info *debug.BuildInfo) {
	kinds := []string{
		string(queue.KindWorker),
		string(queue.KindCaller),
		string(queue.KindDirect),
		string(queue.KindPool),
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Version:     %s (%s, %s)\n", version, commit, date)
	fmt.Fprintf(w, "  Go:          %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(w, "  GOMAXPROCS:  %d\n", runtime.GOMAXPROCS(0))
	fmt.Fprintf(w, "  Queue kinds: %s\n", strings.Join(kinds, ", "))
	fmt.Fprintf(w, "  Idle pool:   %d worker(s) by default\n", queue.DefaultIdleWorkers)

	deps := moduleVersions(info)
	fmt.Fprintln(w, "  Modules:")
	for _, path := range reportedModules {
		fmt.Fprintf(w, "    %-38s %s\n", path, deps[path])
	}
	fmt.Fprintln(w)
}

// moduleVersions maps each reported module to its linked version.
func moduleVersions(info *debug.BuildInfo) map[string]string {
	out := make(map[string]string, len(reportedModules))
	for _, path := range reportedModules {
		out[path] = "(unknown)"
	}
	if info == nil {
		return out
	}
	for _, dep := range info.Deps {
		if _, ok := out[dep.Path]; !ok {
			continue
		}
		v := dep.Version
		if dep.Replace != nil {
			v = dep.Replace.Version
		}
		out[dep.Path] = v
	}
	return out
}
