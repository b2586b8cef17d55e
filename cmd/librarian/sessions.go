package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/library-catalog-api/internal/repository"
	"github.com/noah-isme/library-catalog-api/internal/service"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Session maintenance",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Delete expired sessions",
		RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
			sessions := service.NewSessionService(repository.NewSessionRepository(e.db), e.log, nil, service.SessionConfig{
				Secret: e.cfg.Session.Secret,
				TTL:    e.cfg.Session.TTL,
				Issuer: e.cfg.Session.Issuer,
			})
			n, err := sessions.PurgeExpired(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d expired sessions\n", n)
			return nil
		}),
	})
	return cmd
}
