package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shamar-morrison/show-seek-sub001/internal/app/apiapp"
	"github.com/shamar-morrison/show-seek-sub001/internal/infra/metrics"
	s3infra "github.com/shamar-morrison/show-seek-sub001/internal/infra/s3"
	repairjob "github.com/shamar-morrison/show-seek-sub001/internal/jobs/repair"
	pgrepo "github.com/shamar-morrison/show-seek-sub001/internal/repo/postgres"
)

func newRepairCmd(opts *options) *cobra.Command {
	var skipReport bool

	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Re-resolve every stored user once and fix drifted premium state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := opts.cfg

			subscribers, err := newSubscriberClient(cfg)
			if err != nil {
				return err
			}

			pool, err := pgrepo.NewPool(ctx, pgrepo.PoolConfig{
				DSN:             cfg.Postgres.DSN,
				MaxConns:        int32(cfg.Postgres.MaxConns),
				MaxConnLifetime: cfg.Postgres.MaxConnLifetime,
			})
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pool.Close()

			deps := repairjob.Dependencies{
				Premium:     pgrepo.NewPremiumRepo(pool),
				Subscribers: subscribers,
				Recorder:    metrics.Recorder{},
				Logger:      opts.log.Named("repair"),
			}
			if !skipReport {
				bucket, err := s3infra.OpenBucket(s3infra.Config{
					Endpoint:  cfg.S3.Endpoint,
					AccessKey: cfg.S3.AccessKey,
					SecretKey: cfg.S3.SecretKey,
					UseSSL:    cfg.S3.UseSSL,
				}, cfg.Repair.ReportBucket)
				if err != nil {
					opts.log.Warn("s3 init failed, report will not be uploaded", zap.Error(err))
				} else {
					deps.Reports = bucket
				}
			}

			report, err := repairjob.New(deps, apiapp.RepairConfig(cfg)).RunOnce(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().BoolVar(&skipReport, "no-report", false, "do not upload the run report to object storage")
	return cmd
}
