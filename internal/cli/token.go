package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-qr-attendance/internal/models"
	"github.com/noah-isme/sma-qr-attendance/internal/service"
)

type tokenOutput struct {
	AccessToken string    `json:"access_token"`
	Role        string    `json:"role"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// NewTokenCommand mints an operator or scanner JWT without the passphrase,
// for provisioning external scanners.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	var subject, role string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an API token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := models.OperatorRole(strings.ToUpper(strings.TrimSpace(role)))
			if r != models.RoleOperator && r != models.RoleScanner {
				return exitErr(ExitCommandError, fmt.Errorf("invalid role %q: must be %s or %s", role, models.RoleOperator, models.RoleScanner))
			}
			cfg, err := rootOpts.LoadConfig()
			if err != nil {
				return exitErr(ExitCommandError, fmt.Errorf("load config: %w", err))
			}
			auth := service.NewAuthService(nil, zap.NewNop(), service.AuthConfig{
				Secret: cfg.JWT.Secret,
				Expiry: cfg.JWT.Expiration,
			})
			token, expires, err := auth.Mint(subject, r)
			if err != nil {
				return exitErr(ExitFailure, err)
			}
			out := tokenOutput{AccessToken: token, Role: string(r), ExpiresAt: expires}
			return printResult(cmd.OutOrStdout(), rootOpts.Format, out, func(w io.Writer) {
				fprintf(w, "%s\n", token)
			})
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "operator", "token subject")
	cmd.Flags().StringVar(&role, "role", string(models.RoleOperator), "OPERATOR or SCANNER")
	return cmd
}
