package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shamar-morrison/show-seek-sub001/internal/domain/enums"
	"github.com/shamar-morrison/show-seek-sub001/internal/domain/model"
	"github.com/shamar-morrison/show-seek-sub001/internal/infra/billing"
	"github.com/shamar-morrison/show-seek-sub001/internal/infra/httpclient"
	"github.com/shamar-morrison/show-seek-sub001/internal/infra/metrics"
	"github.com/shamar-morrison/show-seek-sub001/internal/infra/revenuecat"
	"github.com/shamar-morrison/show-seek-sub001/internal/infra/validationclient"
	restoresvc "github.com/shamar-morrison/show-seek-sub001/internal/services/restore"
)

type restoreOutput struct {
	Restored bool   `json:"restored"`
	Code     string `json:"code,omitempty"`
}

func newRestoreCmd(opts *options) *cobra.Command {
	var (
		historyFile   string
		platform      string
		restoreError  string
		appUserID     string
		validationURL string
		token         string
	)

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Replay a legacy-aware restore against a validation endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.cfg
			if validationURL == "" {
				validationURL = cfg.ValidationClient.URL
			}
			if token == "" {
				token = cfg.ValidationClient.Token
			}
			if strings.TrimSpace(validationURL) == "" {
				return errors.New("--validation-url or validation_client.url is required")
			}

			var history []model.PurchaseRecord
			if historyFile != "" {
				if err := readJSONFile(historyFile, &history); err != nil {
					return err
				}
			}

			var fetcher revenuecat.SubscriberFetcher
			if client, err := newSubscriberClient(cfg); err == nil {
				fetcher = client
			}

			service := restoresvc.NewService(restoresvc.Dependencies{
				Validator: validationclient.New(validationURL, token, httpclient.New(cfg.ValidationClient.Timeout, "premiumctl/1.0")),
				Catalog:   cfg.Catalog(),
				Logger:    opts.log.Named("restore"),
				Outcomes:  metrics.Recorder{},
			})
			restored, err := service.RestoreLegacyAware(cmd.Context(), restoresvc.Request{
				Platform: enums.ParsePlatform(platform),
				Customer: revenuecat.NewRestorer(fetcher, appUserID, restoreError),
				Billing:  billing.NewSession(nil, history),
			})
			if errors.Is(err, restoresvc.ErrLegacyRestorePending) {
				return printJSON(cmd.OutOrStdout(), restoreOutput{Code: restoresvc.CodeLegacyRestorePending})
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), restoreOutput{Restored: restored})
		},
	}

	cmd.Flags().StringVar(&historyFile, "history", "", "JSON file with the device purchase history")
	cmd.Flags().StringVar(&platform, "platform", string(enums.PlatformAndroid), "device platform")
	cmd.Flags().StringVar(&restoreError, "restore-error", "", "restore failure message reported by the device")
	cmd.Flags().StringVar(&appUserID, "app-user-id", "", "subscription platform app user id")
	cmd.Flags().StringVar(&validationURL, "validation-url", "", "purchase validation endpoint")
	cmd.Flags().StringVar(&token, "token", "", "bearer token for the validation endpoint")
	return cmd
}
