package cli

import (
	"fmt"
	"time"

	"github.com/ppiankov/veritas/internal/api"
	"github.com/spf13/cobra"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

// tokenCmd represents the token command
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage moderator credentials",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a signed token for the vote and status endpoints",
	Long: `Issue signs an HS256 token with auth.jwt_secret (or JWT_SECRET).
Send it in the x-auth-token header or as "Authorization: Bearer <token>".

Example:
  veritas token issue --subject moderator-1
  veritas token issue --subject ci --ttl 1h`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if tokenTTL > 0 {
			cfg.Auth.TokenTTL = tokenTTL
		}

		token, err := api.IssueToken(cfg.Auth, tokenSubject)
		if err != nil {
			return fmt.Errorf("issue token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenIssueCmd)

	tokenIssueCmd.Flags().StringVar(&tokenSubject, "subject", "moderator", "token subject")
	tokenIssueCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (default: auth.token_ttl)")
}
