package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	cleanupjob "github.com/shamar-morrison/show-seek-sub001/internal/jobs/cleanup"
	pgrepo "github.com/shamar-morrison/show-seek-sub001/internal/repo/postgres"
)

func newCleanupCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete premium status history past its retention",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			pool, err := pgrepo.NewPool(ctx, pgrepo.PoolConfig{
				DSN:      opts.cfg.Postgres.DSN,
				MaxConns: 1,
			})
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pool.Close()

			job := cleanupjob.New(pgrepo.NewPremiumRepo(pool), opts.cfg.Cleanup.HistoryRetention, opts.log.Named("cleanup"))
			if err := job.Run(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "history cleanup finished")
			return nil
		},
	}
}
