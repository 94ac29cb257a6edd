package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	sherrors "github.com/tamirms/arithshard/errors"
	"github.com/tamirms/arithshard/internal/store"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit int
		run   int64
		top   int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs, or the largest shards of one run",
		Args:  exactArgs(0, "no arguments"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			dbPath := activeCfg.Output.DB
			if dbPath == "" {
				return fmt.Errorf("%w: history needs --db", sherrors.ErrMalformedInput)
			}
			cmd.SilenceUsage = true

			st, err := store.Open(dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			if run > 0 {
				shards, err := st.LargestShards(ctx, run, top)
				if err != nil {
					return err
				}
				fmt.Fprintln(tw, "SIZE\tKEY\tFIRST")
				for _, sh := range shards {
					fmt.Fprintf(tw, "%d\t%.19g\t%s\n", sh.Size, sh.Key, sh.First)
				}
				return tw.Flush()
			}

			runs, err := st.ListRuns(ctx, limit)
			if err != nil {
				return err
			}
			fmt.Fprintln(tw, "ID\tSTARTED\tINPUT\tPREC\tEPSILON\tMODE\tLINES\tREJECTED\tSHARDS\tMAX")
			for _, r := range runs {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%g\t%s\t%d\t%d\t%d\t%d\n",
					r.ID, r.StartedAt.Local().Format(time.DateTime), r.Input, r.Precision, r.Epsilon,
					r.Mode, r.Lines, r.Rejected, r.Shards, r.MaxShard)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Runs to list (0 for all)")
	cmd.Flags().Int64Var(&run, "run", 0, "Show the largest shards of this run ID")
	cmd.Flags().IntVar(&top, "top", 10, "Shards to show with --run")

	return cmd
}
