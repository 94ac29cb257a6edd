package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	sherrors "github.com/tamirms/arithshard/errors"
	"github.com/tamirms/arithshard/internal/corpus"
)

func newGenerateCmd() *cobra.Command {
	var (
		seed   uint64
		output string
	)

	cmd := &cobra.Command{
		Use:   "generate <prefixes> <names-per-prefix>",
		Short: "Write a synthetic name list sharing random prefixes",
		Args:  exactArgs(2, "<prefixes> <names-per-prefix>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefixes, err := positiveInt(args[0])
			if err != nil {
				return err
			}
			names, err := positiveInt(args[1])
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			if seed == 0 {
				seed = uint64(time.Now().UnixNano())
			}
			gen := corpus.New(seed, corpus.WithSymbols(activeCfg.Encoder.Alphabet))

			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				bw := bufio.NewWriter(f)
				if err := gen.Generate(bw, prefixes, names); err != nil {
					return err
				}
				if err := bw.Flush(); err != nil {
					return err
				}
				return f.Close()
			}
			return gen.Generate(w, prefixes, names)
		},
	}

	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed (0 picks one from the clock)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")

	return cmd
}

func positiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q is not a positive integer", sherrors.ErrMalformedInput, s)
	}
	return n, nil
}
