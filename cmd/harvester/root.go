package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/samvad-feed-harvester/internal/config"
	"github.com/samvad-hq/samvad-feed-harvester/pkg/providers"
)

type rootOptions struct {
	cfgFile string
}

func newRootCmd(version string) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "harvester",
		Short: "Periodic RSS harvester for news providers",
		Long: `harvester fetches the configured providers' RSS sections, normalizes every
item into an article record and appends one batch per section to the output.

Example usage:
  harvester run                     # one pass over every enabled provider
  harvester run --only BBC,NPR      # restrict the pass to some providers
  harvester run --interval 30m      # keep harvesting every 30 minutes
  harvester providers               # list the provider catalog`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default is ./harvester.yaml)")

	cmd.AddCommand(newRunCmd(opts))
	cmd.AddCommand(newProvidersCmd(opts))
	return cmd
}

// loadCatalog returns the catalog file from config, or the built-in one.
func loadCatalog(cfg *config.Config) (*providers.Catalog, error) {
	if cfg.Providers.File == "" {
		return providers.DefaultCatalog()
	}
	cat, err := providers.LoadCatalog(cfg.Providers.File)
	if err != nil {
		return nil, fmt.Errorf("load provider catalog: %w", err)
	}
	return cat, nil
}
