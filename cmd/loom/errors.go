package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vango-dev/loom/internal/errors"
)

func errorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "errors [code]",
		Short: "Explain loom error codes",
		Long: `List every loom error code, or explain one of them.

Examples:
  loom errors
  loom errors E040`,
		Args: cobra.MaximumNArgs(1),
		// Error lookups need no configuration.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				listErrors(os.Stdout)
				return nil
			}
			return explainError(os.Stdout, args[0])
		},
	}
}

// listErrors writes one line per registered code.
func listErrors(w io.Writer) {
	for _, code := range errors.GetAllCodes() {
		tmpl, _ := errors.GetTemplate(code)
		fmt.Fprintf(w, "  %s  %-8s %s\n", code, tmpl.Category, tmpl.Message)
	}
}

// explainError writes the full text of one code.
func explainError(w io.Writer, code string) error {
	code = strings.ToUpper(code)
	if _, ok := errors.GetTemplate(code); !ok {
		return errors.New("E063").WithDetail(fmt.Sprintf("%s is not in the loom error registry. Run `loom errors` to list them.", code))
	}
	fmt.Fprint(w, errors.New(code).Format())
	return nil
}
