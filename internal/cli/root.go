// Package cli holds the cobra commands of the attendance-kiosk binary.
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-qr-attendance/pkg/config"
)

// Exit codes returned by the binary.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // roster unreadable, upload failed, server crashed
	ExitCommandError = 2 // bad flags or configuration
)

// ExitError carries the process exit code of a failed command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

func exitErr(code int, err error) error {
	if err == nil {
		return nil
	}
	return &ExitError{Code: code, Err: err}
}

// ExitCode maps an Execute error onto a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var e *ExitError
	if errors.As(err, &e) {
		return e.Code
	}
	return ExitFailure
}

// RootOptions holds global flags.
type RootOptions struct {
	Format string
	// LoadConfig is swapped in tests.
	LoadConfig func() (*config.Config, error)
}

var validFormats = []string{"text", "json"}

// NewRootCommand builds the attendance-kiosk command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{LoadConfig: config.Load})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attendance-kiosk",
		Short: "QR classroom attendance kiosk",
		Long: `Records student presence from scanned QR badges, appends each scan to the
attendance sheet and produces the absence list (roster minus present students).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range validFormats {
				if f == opts.Format {
					return nil
				}
			}
			return exitErr(ExitCommandError, fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats))
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewReconcileCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))
	cmd.AddCommand(NewHashPasswordCommand(opts))
	return cmd
}
