package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"vynel/internal/manager"
	"vynel/internal/registry"
	"vynel/pkg/types"
)

func newModelsCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List known models",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.Build(a.cfg.Models, a.cfg.ModelsDir)
			if err != nil {
				a.log.Warn().Err(err).Str("dir", a.cfg.ModelsDir).Msg("models dir not scanned")
			}
			def := a.cfg.DefaultModel
			if def == "" && len(reg) > 0 {
				def = reg[0].ID
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(types.ModelsResponse{Models: reg, Default: def})
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tREMOTE\tPATH")
			for _, m := range reg {
				id := m.ID
				if id == def {
					id += " *"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", id, m.Name, dash(m.Remote), dash(m.Path))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func newProbeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Report which backends this host can run",
		RunE: func(cmd *cobra.Command, args []string) error {
			rep := manager.SanityCheck(manager.LocalHost(), a.cfg.Backends.CPU.LlamaBin, a.cfg.Backends.Remote.Endpoint)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		},
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
