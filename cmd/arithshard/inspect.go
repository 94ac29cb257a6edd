package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/tamirms/arithshard"
	sherrors "github.com/tamirms/arithshard/errors"
	"github.com/tamirms/arithshard/internal/report"
)

func newInspectCmd() *cobra.Command {
	var (
		verify bool
		list   bool
		key    string
	)

	cmd := &cobra.Command{
		Use:   "inspect <snapshot>",
		Short: "Show a snapshot's statistics, verify it, or look up a key",
		Args:  exactArgs(1, "<snapshot>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			var lookup *float64
			if key != "" {
				k, err := strconv.ParseFloat(key, 64)
				if err != nil {
					return fmt.Errorf("%w: key %q: %w", sherrors.ErrMalformedInput, key, err)
				}
				lookup = &k
			}
			cmd.SilenceUsage = true

			snap, err := arithshard.OpenSnapshot(args[0])
			if err != nil {
				return err
			}
			defer snap.Close()

			return inspectSnapshot(cmd.OutOrStdout(), snap, verify, list, lookup)
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "Check the snapshot checksums")
	cmd.Flags().BoolVar(&list, "list", false, "List every shard and its names")
	cmd.Flags().StringVar(&key, "key", "", "Print the names stored under this key")

	return cmd
}

func inspectSnapshot(w io.Writer, snap *arithshard.Snapshot, verify, list bool, key *float64) error {
	st := snap.Stats()
	fmt.Fprintf(w, "total shards: %d\n", st.NumShards)
	fmt.Fprintf(w, "max shard: %d\n", st.MaxShardSize)
	fmt.Fprintf(w, "strings: %d\n", st.NumStrings)
	fmt.Fprintf(w, "precision: %d\n", st.KeyWidth*8)
	fmt.Fprintf(w, "epsilon: %g\n", st.Epsilon)
	fmt.Fprintf(w, "alphabet size: %d\n", st.AlphabetSize)
	fmt.Fprintf(w, "file size: %d\n", st.FileSize)

	if verify {
		if err := snap.Verify(); err != nil {
			return err
		}
		fmt.Fprintln(w, "checksums: ok")
	}

	if key != nil {
		names, err := snap.Lookup(*key)
		if errors.Is(err, sherrors.ErrShardNotFound) {
			fmt.Fprintf(w, "0 names in: %.19g\n", *key)
		} else if err != nil {
			return err
		} else {
			if err := report.WriteShards(w, func(yield func(float64, []string) bool) {
				yield(*key, names)
			}); err != nil {
				return err
			}
		}
	}

	if list {
		var readErr error
		shards := func(yield func(float64, []string) bool) {
			for i := range snap.ShardCount() {
				k, names, err := snap.ShardAt(i)
				if err != nil {
					readErr = err
					return
				}
				if !yield(k, names) {
					return
				}
			}
		}
		if err := report.WriteShards(w, shards); err != nil {
			return err
		}
		return readErr
	}
	return nil
}
