package main

import (
	"github.com/spf13/cobra"
	"github.com/tamirms/arithshard/internal/report"
)

func newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print the initial model as prob(c) = (lo, hi) lines",
		Args:  exactArgs(0, "no arguments"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			model, err := newModel(activeCfg)
			if err != nil {
				return err
			}
			return report.WriteDump(cmd.OutOrStdout(), probabilities(model))
		},
	}
}
