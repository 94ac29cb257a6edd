// Package report renders run summaries, shard listings and model dumps.
package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"iter"

	"github.com/BurntSushi/toml"
)

// Summary is the outcome of one hashing run.
type Summary struct {
	Input      string  `json:"input" toml:"input"`
	Precision  int     `json:"precision" toml:"precision"`
	Epsilon    float64 `json:"epsilon" toml:"epsilon"`
	Mode       string  `json:"mode" toml:"mode"`
	Policy     string  `json:"policy" toml:"policy"`
	Lines      int     `json:"lines" toml:"lines"`
	Rejected   int     `json:"rejected" toml:"rejected"`
	Shards     int     `json:"total_shards" toml:"total_shards"`
	MaxShard   int     `json:"max_shard" toml:"max_shard"`
	MeanShard  float64 `json:"mean_shard" toml:"mean_shard"`
	Singletons int     `json:"singletons" toml:"singletons"`
	ElapsedMS  int64   `json:"elapsed_ms" toml:"elapsed_ms"`
}

// Comparison pairs the arithmetic run with a conventional hash over the
// same input.
type Comparison struct {
	Name     string `json:"name" toml:"name"`
	Strings  int    `json:"strings" toml:"strings"`
	Shards   int    `json:"shards" toml:"shards"`
	MaxShard int    `json:"max_shard" toml:"max_shard"`
}

// Probability is one row of a model dump.
type Probability struct {
	Symbol byte
	Low    float64
	High   float64
}

// Write renders s in format: "text", "json" or "toml".
func Write(w io.Writer, format string, s Summary) error {
	switch format {
	case "", "text":
		return WriteText(w, s)
	case "json":
		return WriteJSON(w, s)
	case "toml":
		return WriteTOML(w, s)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// WriteText prints the two-line summary.
func WriteText(w io.Writer, s Summary) error {
	_, err := fmt.Fprintf(w, "total shards: %d\nmax shard: %d\n", s.Shards, s.MaxShard)
	return err
}

// WriteJSON prints s as an indented JSON object.
func WriteJSON(w io.Writer, s Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// WriteTOML prints s as a TOML document.
func WriteTOML(w io.Writer, s Summary) error {
	return toml.NewEncoder(w).Encode(s)
}

// WriteShards lists every shard as "<n> names in: <key>" followed by its
// names, one per line. Keys are printed to 19 significant digits.
func WriteShards(w io.Writer, shards iter.Seq2[float64, []string]) error {
	bw := bufio.NewWriter(w)
	for key, names := range shards {
		fmt.Fprintf(bw, "%d names in: %.19g\n", len(names), key)
		for _, name := range names {
			bw.WriteString(name)
			bw.WriteByte('\n')
		}
	}
	return bw.Flush()
}

// WriteDump prints one "prob(c) = (lo, hi)" line per symbol with six
// significant digits.
func WriteDump(w io.Writer, probs []Probability) error {
	bw := bufio.NewWriter(w)
	for _, p := range probs {
		fmt.Fprintf(bw, "prob(%c) = (%.6g, %.6g)\n", p.Symbol, p.Low, p.High)
	}
	return bw.Flush()
}

// WriteComparison prints one aligned row per hasher.
func WriteComparison(w io.Writer, rows []Comparison) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%-12s %10s %10s %10s\n", "hash", "strings", "shards", "max shard")
	for _, r := range rows {
		fmt.Fprintf(bw, "%-12s %10d %10d %10d\n", r.Name, r.Strings, r.Shards, r.MaxShard)
	}
	return bw.Flush()
}
