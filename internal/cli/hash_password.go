package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-qr-attendance/internal/service"
)

// NewHashPasswordCommand prints the bcrypt hash for OPERATOR_PASSWORD_HASH.
// The passphrase is read from the first line of stdin.
func NewHashPasswordCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Hash an operator passphrase read from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return exitErr(ExitFailure, err)
			}
			passphrase := strings.TrimRight(line, "\r\n")
			if passphrase == "" {
				return exitErr(ExitCommandError, fmt.Errorf("empty passphrase"))
			}
			hash, err := service.HashPassphrase(passphrase)
			if err != nil {
				return exitErr(ExitFailure, err)
			}
			return printResult(cmd.OutOrStdout(), rootOpts.Format, map[string]string{"hash": hash}, func(w io.Writer) {
				fprintf(w, "%s\n", hash)
			})
		},
	}
}
