// Package errors provides coded, actionable errors for loom.
//
// Each error has a code (e.g., "E001") registered with a category, a short
// message, a longer explanation and a documentation link. Callers add
// context with WithDetail and WithSuggestion and wrap the underlying cause:
//
//	err := errors.New("E021").
//	    WithDetail("loom.toml line 4: expected '='").
//	    Wrap(parseErr)
//
//	fmt.Print(err.Format())
//	// ERROR E021: Config parse failed
//	//
//	//   loom.toml line 4: expected '='
//	//
//	//   Learn more: https://loom.dev/docs/errors/E021
//
// # Error Categories
//
//   - usage: a programming mistake, such as reading a cell with no storage
//   - runtime: a failure while running tasks
//   - config: configuration files that are missing, malformed or invalid
//   - monitor: the monitoring server
//   - cli: command-line usage
package errors
