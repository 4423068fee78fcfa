package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hbimpianti/hbdesk/internal/render"
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// exitError returns an error that will cause the CLI to exit with the given code
func exitError(code int, err error) error {
	return &ExitError{Code: code, Err: err}
}

// ExitCode returns the exit code for err: 0 for nil, the code carried by an
// ExitError, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

// addOutputFlags registers the shared --json/--ndjson/--yaml/--tsv/--porcelain
// flags on cmd.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("json", false, "Output as JSON")
	cmd.Flags().Bool("ndjson", false, "Output as newline-delimited JSON")
	cmd.Flags().Bool("yaml", false, "Output as YAML")
	cmd.Flags().Bool("tsv", false, "Output as tab-separated values")
	cmd.Flags().Bool("porcelain", false, "Stable machine-readable output")
}

// outputOptions resolves the render options from the output flags, falling
// back to the configured default format.
func outputOptions(cmd *cobra.Command, fallback string) (render.Options, error) {
	opts := render.Options{}
	chosen := 0
	for _, name := range []string{"json", "ndjson", "yaml", "tsv"} {
		if on, _ := cmd.Flags().GetBool(name); on {
			opts.Format = render.Format(name)
			chosen++
		}
	}
	if chosen > 1 {
		return opts, exitError(2, fmt.Errorf("only one of --json, --ndjson, --yaml, --tsv may be given"))
	}
	opts.Porcelain, _ = cmd.Flags().GetBool("porcelain")
	if chosen == 0 {
		format, err := render.ParseFormat(fallback)
		if err != nil {
			return opts, exitError(2, err)
		}
		opts.Format = format
	}
	return opts, nil
}

func isJSON(cmd *cobra.Command) bool {
	on, _ := cmd.Flags().GetBool("json")
	return on
}
