package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
	DocURL     string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Usage Errors (E001-E019)
	// ============================================

	"E001": {
		Category: CategoryUsage,
		Message:  "Cell has no storage",
		Detail:   "The cell was created without local storage and no getter or invoker is installed, so there is nowhere to read or write its value.",
		DocURL:   "https://loom.dev/docs/errors/E001",
	},
	"E002": {
		Category: CategoryRuntime,
		Message:  "Queue closed",
		Detail:   "Work was submitted to a queue after it was closed. Its goroutines have exited and the task will never run.",
		DocURL:   "https://loom.dev/docs/errors/E002",
	},
	"E003": {
		Category: CategoryRuntime,
		Message:  "Task panicked",
		Detail:   "A task panicked while running on its queue. The queue recovered and kept running.",
		DocURL:   "https://loom.dev/docs/errors/E003",
	},

	// ============================================
	// Config Errors (E020-E039)
	// ============================================

	"E020": {
		Category: CategoryConfig,
		Message:  "Config not found",
		Detail:   "No loom.toml or loom.json was found in the directory.",
		DocURL:   "https://loom.dev/docs/errors/E020",
	},
	"E021": {
		Category: CategoryConfig,
		Message:  "Config parse failed",
		Detail:   "The configuration file could not be parsed.",
		DocURL:   "https://loom.dev/docs/errors/E021",
	},
	"E022": {
		Category: CategoryConfig,
		Message:  "Invalid config",
		Detail:   "The configuration contains a value outside its allowed range.",
		DocURL:   "https://loom.dev/docs/errors/E022",
	},

	// ============================================
	// Monitor Errors (E040-E059)
	// ============================================

	"E040": {
		Category: CategoryMonitor,
		Message:  "Monitor listen failed",
		Detail:   "The monitor server could not bind its address.",
		DocURL:   "https://loom.dev/docs/errors/E040",
	},

	// ============================================
	// CLI Errors (E060-E079)
	// ============================================

	"E060": {
		Category: CategoryCLI,
		Message:  "Config already exists",
		Detail:   "Refusing to overwrite an existing configuration file.",
		DocURL:   "https://loom.dev/docs/errors/E060",
	},
	"E061": {
		Category: CategoryCLI,
		Message:  "Unknown queue kind",
		Detail:   "Queue kinds are worker, pool, direct and caller.",
		DocURL:   "https://loom.dev/docs/errors/E061",
	},
	"E062": {
		Category: CategoryCLI,
		Message:  "Command failed",
		Detail:   "The command stopped with an error that carries no code of its own.",
		DocURL:   "https://loom.dev/docs/errors/E062",
	},
	"E063": {
		Category: CategoryCLI,
		Message:  "Unknown error code",
		Detail:   "The code is not in the loom error registry.",
		DocURL:   "https://loom.dev/docs/errors/E063",
	},
	"E064": {
		Category:   CategoryCLI,
		Message:    "Unknown error format",
		Detail:     "The --error-format flag accepts text, compact or json.",
		Suggestion: "Use --error-format json for machine-readable errors.",
		DocURL:     "https://loom.dev/docs/errors/E064",
	},
}

// GetAllCodes returns all registered error codes in ascending order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
