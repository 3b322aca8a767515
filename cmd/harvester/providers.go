package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/samvad-feed-harvester/internal/config"
	"github.com/samvad-hq/samvad-feed-harvester/pkg/providers"
)

type providerRow struct {
	ID       string   `json:"id"`
	Enabled  bool     `json:"enabled"`
	Location string   `json:"item_location"`
	Delay    string   `json:"delay"`
	Sections []string `json:"sections"`
}

func newProvidersCmd(root *rootOptions) *cobra.Command {
	var (
		jsonOutput bool
		urls       bool
	)

	cmd := &cobra.Command{
		Use:     "providers",
		Aliases: []string{"ls"},
		Short:   "List the provider catalog",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(root.cfgFile)
			if err != nil {
				return err
			}
			cat, err := loadCatalog(cfg)
			if err != nil {
				return err
			}

			rows := make([]providerRow, 0, len(cat.All()))
			for _, p := range cat.All() {
				rows = append(rows, rowFor(p, urls))
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PROVIDER\tENABLED\tLOCATION\tDELAY\tSECTIONS")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%t\t%s\t%s\t%d\n", r.ID, r.Enabled, r.Location, r.Delay, len(r.Sections))
				if urls {
					for _, s := range r.Sections {
						fmt.Fprintf(tw, "\t\t\t\t%s\n", s)
					}
				}
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().BoolVar(&urls, "urls", false, "show section feed URLs")
	return cmd
}

func rowFor(p providers.Provider, urls bool) providerRow {
	row := providerRow{
		ID:      p.ID,
		Enabled: p.EnabledValue(),
		Delay:   fmt.Sprintf("%.1f-%.1fs", p.Delay.Min, p.Delay.Max),
	}
	for _, src := range p.Sources() {
		if row.Location == "" && src.Profile != nil {
			row.Location = string(src.Profile.Location())
		}
		if urls {
			row.Sections = append(row.Sections, src.URL)
		} else {
			row.Sections = append(row.Sections, src.Section)
		}
	}
	return row
}
