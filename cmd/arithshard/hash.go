package main

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"github.com/tamirms/arithshard"
	"github.com/tamirms/arithshard/internal/config"
	"github.com/tamirms/arithshard/internal/report"
	"github.com/tamirms/arithshard/internal/store"
)

type hashFlags struct {
	dump bool
	list bool
	top  int
}

func newHashCmd() *cobra.Command {
	var flags hashFlags

	cmd := &cobra.Command{
		Use:   "hash <file>",
		Short: "Hash every line of a file and report shard statistics",
		Args:  exactArgs(1, "<file>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			cfg := activeCfg
			if cfg.Encoder.Precision == 32 {
				return runHash[float32](cmd.Context(), cmd.OutOrStdout(), cfg, args[0], flags)
			}
			return runHash[float64](cmd.Context(), cmd.OutOrStdout(), cfg, args[0], flags)
		},
	}

	cmd.Flags().BoolVar(&flags.dump, "dump", false, "Print the initial model before hashing")
	cmd.Flags().BoolVar(&flags.list, "list", false, "List every shard and its names")
	cmd.Flags().IntVar(&flags.top, "top", 20, "Largest shards to record with --db")

	return cmd
}

func runHash[F arithshard.Float](ctx context.Context, out io.Writer, cfg config.Config, path string, flags hashFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	model, err := newModel(cfg)
	if err != nil {
		return err
	}
	if flags.dump {
		if err := report.WriteDump(out, probabilities(model)); err != nil {
			return err
		}
	}

	opts, err := pipelineOptions(cfg, model)
	if err != nil {
		return err
	}
	p, err := arithshard.NewPipeline[F](opts...)
	if err != nil {
		return err
	}

	started := time.Now()
	res, err := p.RunFile(ctx, path)
	if err != nil {
		return err
	}

	stats := res.Index.Stats()
	summary := report.Summary{
		Input:      path,
		Precision:  cfg.Encoder.Precision,
		Epsilon:    cfg.Encoder.Epsilon,
		Mode:       cfg.Encoder.Mode,
		Policy:     cfg.Encoder.Policy,
		Lines:      res.Lines,
		Rejected:   res.Rejected,
		Shards:     stats.Shards,
		MaxShard:   stats.MaxShard,
		MeanShard:  stats.MeanShard,
		Singletons: stats.Singletons,
		ElapsedMS:  res.Elapsed.Milliseconds(),
	}

	if flags.list {
		if err := report.WriteShards(out, widen(res.Index.All())); err != nil {
			return err
		}
	}
	if err := report.Write(out, cfg.Output.Format, summary); err != nil {
		return err
	}

	if cfg.Output.Snapshot != "" {
		meta := arithshard.SnapshotMeta{
			Epsilon:      cfg.Encoder.Epsilon,
			AlphabetSize: model.Alphabet().Size(),
		}
		if err := arithshard.WriteSnapshot(cfg.Output.Snapshot, res.Index, meta); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
		slog.Info("snapshot written", slog.String("path", cfg.Output.Snapshot))
	}
	if cfg.Output.DB != "" {
		if err := recordRun(ctx, cfg.Output.DB, summary, started, largestShards(res.Index, flags.top)); err != nil {
			return fmt.Errorf("record run: %w", err)
		}
	}
	return nil
}

func recordRun(ctx context.Context, dbPath string, s report.Summary, started time.Time, shards []store.Shard) error {
	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	id, err := st.InsertRun(ctx, store.Run{
		StartedAt:  started,
		Input:      s.Input,
		Precision:  s.Precision,
		Epsilon:    s.Epsilon,
		Mode:       s.Mode,
		Policy:     s.Policy,
		Lines:      s.Lines,
		Rejected:   s.Rejected,
		Shards:     s.Shards,
		MaxShard:   s.MaxShard,
		DurationMs: s.ElapsedMS,
	}, shards)
	if err != nil {
		return err
	}
	slog.Debug("run recorded", slog.Int64("id", id), slog.String("db", dbPath))
	return nil
}

// largestShards returns the n biggest shards, largest first, ties by key.
func largestShards[F arithshard.Float](idx *arithshard.ShardIndex[F], n int) []store.Shard {
	if n <= 0 {
		return nil
	}
	var all []store.Shard
	for key, names := range idx.All() {
		all = append(all, store.Shard{Key: float64(key), Size: len(names), First: names[0]})
	}
	slices.SortStableFunc(all, func(a, b store.Shard) int {
		return b.Size - a.Size
	})
	return all[:min(n, len(all))]
}

// widen converts shard keys to float64 for reporting.
func widen[F arithshard.Float](shards iter.Seq2[F, []string]) iter.Seq2[float64, []string] {
	return func(yield func(float64, []string) bool) {
		for k, names := range shards {
			if !yield(float64(k), names) {
				return
			}
		}
	}
}

func probabilities(m *arithshard.Model) []report.Probability {
	dump := m.Dump()
	out := make([]report.Probability, len(dump))
	for i, p := range dump {
		out[i] = report.Probability{Symbol: p.Symbol, Low: p.Low, High: p.High}
	}
	return out
}
