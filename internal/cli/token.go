package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"habittracker/internal/auth"
)

// TokenOptions holds flags for the token command.
type TokenOptions struct {
	*RootOptions
	TTL time.Duration
}

// NewTokenCommand issues a bearer token. Accounts live elsewhere; this is
// for operators and local development.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Print a signed bearer token for a user id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || userID <= 0 {
				return fmt.Errorf("invalid user id %q", args[0])
			}

			cfg, _, err := opts.load()
			if err != nil {
				return err
			}

			ttl := opts.TTL
			if ttl == 0 {
				ttl = cfg.JWT.TTL
			}
			token, err := auth.GenerateToken(userID, cfg.JWT.Secret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().DurationVar(&opts.TTL, "ttl", 0, "token lifetime (defaults to jwt.ttl)")
	return cmd
}
