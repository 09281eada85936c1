package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	pgrepo "github.com/shamar-morrison/show-seek-sub001/internal/repo/postgres"
)

func newMigrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := pgrepo.Migrate(cmd.Context(), opts.cfg.Postgres.DSN); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
