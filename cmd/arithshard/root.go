package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/tamirms/arithshard"
	sherrors "github.com/tamirms/arithshard/errors"
	"github.com/tamirms/arithshard/internal/config"
)

var (
	cfgFile   string
	activeCfg config.Config
)

func NewRootCmd() *cobra.Command {
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:           "arithshard",
		Short:         "Shard names by their arithmetic-coding keys",
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(config.LoadOptions{
				Cmd:        cmd,
				ConfigFile: cfgFile,
				Defaults:   defaults,
			})
			if err != nil {
				return err
			}
			activeCfg = loaded
			setupLogger(cmd.ErrOrStderr(), loaded.LogLevel)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Optional config file (yaml|toml|json)")
	config.RegisterFlags(cmd.PersistentFlags(), defaults)

	cmd.AddCommand(newHashCmd())
	cmd.AddCommand(newGenerateCmd())
	cmd.AddCommand(newDumpCmd())
	cmd.AddCommand(newCompareCmd())
	cmd.AddCommand(newInspectCmd())
	cmd.AddCommand(newHistoryCmd())

	return cmd
}

// setupLogger configures the process-wide slog default logger.
func setupLogger(w io.Writer, levelStr string) {
	lvl, err := config.ParseLogLevel(levelStr)
	if err != nil {
		lvl = slog.LevelInfo
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(h))
}

// exactArgs is cobra.ExactArgs reporting ErrMalformedInput.
func exactArgs(n int, names string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) != n {
			return fmt.Errorf("%w: expected %s, got %d argument(s)", sherrors.ErrMalformedInput, names, len(args))
		}
		return nil
	}
}

// newModel builds the initial model the configuration describes.
func newModel(cfg config.Config) (*arithshard.Model, error) {
	alphabet := arithshard.DefaultAlphabet()
	if cfg.Encoder.Alphabet != "" {
		var err error
		alphabet, err = arithshard.NewAlphabet(cfg.Encoder.Alphabet)
		if err != nil {
			return nil, err
		}
	}
	policy, err := arithshard.ParseInitialPolicy(cfg.Encoder.Policy)
	if err != nil {
		return nil, err
	}
	return arithshard.NewModel(alphabet, policy)
}

// pipelineOptions translates the configuration into library options.
func pipelineOptions(cfg config.Config, model *arithshard.Model) ([]arithshard.Option, error) {
	mode, err := arithshard.ParseMode(cfg.Encoder.Mode)
	if err != nil {
		return nil, err
	}
	return []arithshard.Option{
		arithshard.WithModel(model),
		arithshard.WithEpsilon(cfg.Encoder.Epsilon),
		arithshard.WithMode(mode),
		arithshard.WithWorkers(cfg.Run.Workers),
		arithshard.WithBatchSize(cfg.Run.BatchSize),
		arithshard.WithCacheSize(cfg.Run.CacheSize),
		arithshard.WithLogger(slog.Default()),
	}, nil
}
