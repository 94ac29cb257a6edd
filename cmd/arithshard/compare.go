package main

import (
	"context"
	"iter"

	"github.com/spf13/cobra"
	"github.com/tamirms/arithshard"
	"github.com/tamirms/arithshard/internal/baseline"
	"github.com/tamirms/arithshard/internal/report"
)

func newCompareCmd() *cobra.Command {
	var buckets uint32

	cmd := &cobra.Command{
		Use:   "compare <file>",
		Short: "Compare arithmetic shards with conventional hashes over the same names",
		Args:  exactArgs(1, "<file>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			rows, err := compareFile(ctx, args[0], buckets)
			if err != nil {
				return err
			}
			return report.WriteComparison(cmd.OutOrStdout(), rows)
		},
	}

	cmd.Flags().Uint32Var(&buckets, "buckets", 0, "Range-reduce baseline hashes to this many buckets (0 = exact hash values)")

	return cmd
}

// compareFile shards path with the configured encoder, then hashes the
// accepted names with every baseline.
func compareFile(ctx context.Context, path string, buckets uint32) ([]report.Comparison, error) {
	model, err := newModel(activeCfg)
	if err != nil {
		return nil, err
	}
	opts, err := pipelineOptions(activeCfg, model)
	if err != nil {
		return nil, err
	}
	p, err := arithshard.NewPipeline[float64](opts...)
	if err != nil {
		return nil, err
	}
	res, err := p.RunFile(ctx, path)
	if err != nil {
		return nil, err
	}

	names := accepted(res.Index)
	rows := []report.Comparison{arithRow(res.Index, buckets)}
	for _, h := range baseline.Hashers() {
		st := baseline.Distribution(h.Hash, names, buckets)
		rows = append(rows, report.Comparison{
			Name:     h.Name,
			Strings:  st.Strings,
			Shards:   st.Shards,
			MaxShard: st.Max,
		})
	}
	if buckets > 0 {
		st := baseline.JumpDistribution(xxh3Hash(), names, int(buckets))
		rows = append(rows, report.Comparison{
			Name:     "jump-xxh3",
			Strings:  st.Strings,
			Shards:   st.Shards,
			MaxShard: st.Max,
		})
	}
	return rows, nil
}

func xxh3Hash() baseline.Func {
	h, _ := baseline.Lookup("xxh3")
	return h.Hash
}

// arithRow reports the exact-key shards, or with buckets > 0 the same keys
// range-reduced onto buckets so the row is comparable with the baselines.
func arithRow(idx *arithshard.ShardIndex[float64], buckets uint32) report.Comparison {
	row := report.Comparison{Name: "arith", Strings: idx.Len()}
	if buckets == 0 {
		row.Shards = idx.ShardCount()
		row.MaxShard = idx.MaxShardSize()
		return row
	}
	counts := make([]int, buckets)
	for key, names := range idx.All() {
		b := arithshard.Bucket(key, buckets)
		if counts[b] == 0 {
			row.Shards++
		}
		counts[b] += len(names)
		row.MaxShard = max(row.MaxShard, counts[b])
	}
	return row
}

func accepted(idx *arithshard.ShardIndex[float64]) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, names := range idx.All() {
			for _, s := range names {
				if !yield(s) {
					return
				}
			}
		}
	}
}
