package main

import (
	"fmt"
	"strings"
	"time"

	"lendledger/internal/adapter/middleware"
	"lendledger/internal/domain/identity"

	"github.com/spf13/cobra"
)

// tokenCmd mints a bearer token signed with JWT_SECRET for local testing.
func tokenCmd() *cobra.Command {
	var (
		email string
		roles []string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token [user-id]",
		Short: "Issue a bearer token for a user (development only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			id := identity.Identity{ID: args[0], Email: identity.NormalizeEmail(email)}
			for _, r := range roles {
				id.Roles = append(id.Roles, identity.Role(strings.ToLower(strings.TrimSpace(r))))
			}
			tok, err := middleware.IssueToken([]byte(cfg.JWTSecret), id, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringSliceVar(&roles, "roles", []string{"borrower"}, "roles: borrower, lender, admin")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
