package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shamar-morrison/show-seek-sub001/internal/config"
	"github.com/shamar-morrison/show-seek-sub001/internal/domain/model"
	"github.com/shamar-morrison/show-seek-sub001/internal/domain/rules"
	"github.com/shamar-morrison/show-seek-sub001/internal/infra/httpclient"
	"github.com/shamar-morrison/show-seek-sub001/internal/infra/revenuecat"
)

func newResolveCmd(opts *options) *cobra.Command {
	var (
		uid          string
		snapshotFile string
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Print the resolved premium state of one user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var snapshot model.SubscriberSnapshot
			switch {
			case snapshotFile != "":
				if err := readJSONFile(snapshotFile, &snapshot); err != nil {
					return err
				}
			case strings.TrimSpace(uid) != "":
				client, err := newSubscriberClient(opts.cfg)
				if err != nil {
					return err
				}
				snapshot, err = client.GetSubscriber(cmd.Context(), uid)
				if err != nil {
					return fmt.Errorf("fetch subscriber: %w", err)
				}
			default:
				return errors.New("either --user or --snapshot is required")
			}

			state := rules.NewResolver(opts.cfg.Catalog()).Resolve(snapshot, time.Now().UnixMilli())
			return printJSON(cmd.OutOrStdout(), state)
		},
	}

	cmd.Flags().StringVar(&uid, "user", "", "app user id to fetch from the subscription platform")
	cmd.Flags().StringVar(&snapshotFile, "snapshot", "", "resolve a subscriber JSON file instead of fetching")
	return cmd
}

func newSubscriberClient(cfg config.Config) (*revenuecat.Client, error) {
	if strings.TrimSpace(cfg.RevenueCat.APIKey) == "" {
		return nil, revenuecat.ErrNotConfigured
	}
	return revenuecat.NewClient(revenuecat.Config{
		BaseURL: cfg.RevenueCat.BaseURL,
		APIKey:  cfg.RevenueCat.APIKey,
	}, httpclient.New(cfg.RevenueCat.Timeout, "premiumctl/1.0")), nil
}

func readJSONFile(path string, target any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
