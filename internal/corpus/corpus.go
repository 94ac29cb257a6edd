// Package corpus generates synthetic name lists for exercising the encoder.
//
// Names are built from a pool of random length-10 prefixes: each name is a
// prefix cut to 2..10 bytes followed by a random suffix whose length follows
// a log-normal distribution. Many names therefore share short prefixes, which
// is the case the shard index is meant to group.
package corpus

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"strings"
)

const (
	// PrefixLength is the length of every pooled prefix.
	PrefixLength = 10

	// MinPrefixCut is the shortest prefix a name keeps.
	MinPrefixCut = 2

	// SuffixMu and SuffixSigma parameterise the normal distribution whose
	// exponent gives the suffix length.
	SuffixMu    = 3.0
	SuffixSigma = 1.0

	// MaxSuffixLength bounds the log-normal tail.
	MaxSuffixLength = 4096

	defaultSymbols = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
)

// ErrInvalidCount is returned when a prefix or name count is not positive.
var ErrInvalidCount = errors.New("corpus: counts must be positive")

// Generator produces names deterministically from its seed.
// A Generator is not safe for concurrent use.
type Generator struct {
	rng     *rand.Rand
	symbols string
}

// Option configures a Generator.
type Option func(*Generator)

// WithSymbols restricts generated bytes to symbols. An empty string keeps the
// default A-Z, a-z set.
func WithSymbols(symbols string) Option {
	return func(g *Generator) {
		if symbols != "" {
			g.symbols = symbols
		}
	}
}

// New returns a generator seeded with seed.
func New(seed uint64, opts ...Option) *Generator {
	g := &Generator{
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		symbols: defaultSymbols,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Symbols returns the byte set names are drawn from.
func (g *Generator) Symbols() string {
	return g.symbols
}

// Prefixes returns n random prefixes of PrefixLength bytes.
func (g *Generator) Prefixes(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = g.randomString(PrefixLength)
	}
	return out
}

// Name builds one name from prefix.
func (g *Generator) Name(prefix string) string {
	cut := min(MinPrefixCut+g.rng.IntN(PrefixLength-MinPrefixCut+1), len(prefix))
	return prefix[:cut] + g.randomString(g.suffixLength())
}

// Generate writes prefixes*namesPerPrefix names to w, one per line. Each name
// picks its prefix uniformly from the pool, so pool members are not used
// equally often.
func (g *Generator) Generate(w io.Writer, prefixes, namesPerPrefix int) error {
	if prefixes <= 0 || namesPerPrefix <= 0 {
		return fmt.Errorf("%w: prefixes=%d names=%d", ErrInvalidCount, prefixes, namesPerPrefix)
	}
	pool := g.Prefixes(prefixes)

	bw := bufio.NewWriter(w)
	total := prefixes * namesPerPrefix
	for range total {
		if _, err := bw.WriteString(g.Name(pool[g.rng.IntN(prefixes)])); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// suffixLength draws floor(exp(N(SuffixMu, SuffixSigma))), capped.
func (g *Generator) suffixLength() int {
	v := math.Exp(SuffixMu + SuffixSigma*g.rng.NormFloat64())
	return int(min(math.Floor(v), MaxSuffixLength))
}

func (g *Generator) randomString(n int) string {
	var b strings.Builder
	b.Grow(n)
	for range n {
		b.WriteByte(g.symbols[g.rng.IntN(len(g.symbols))])
	}
	return b.String()
}
