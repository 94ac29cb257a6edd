package arithshard

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"testing"
)

// Named seeds for deterministic reproduction.
const (
	testSeed1 = 0x1234567890ABCDEF
	testSeed2 = 0xFEDCBA9876543210
)

func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewPCG(testSeed1^s1, testSeed2^s2))
}

// randomName returns a string of length in [minLen, maxLen] over symbols.
func randomName(rng *rand.Rand, symbols string, minLen, maxLen int) string {
	n := minLen + rng.IntN(maxLen-minLen+1)
	var b strings.Builder
	b.Grow(n)
	for range n {
		b.WriteByte(symbols[rng.IntN(len(symbols))])
	}
	return b.String()
}

// randomNames returns n names over the default alphabet. Roughly one name
// in badEvery (if positive) carries a digit and will be rejected.
func randomNames(rng *rand.Rand, n, badEvery int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = randomName(rng, DefaultSymbols, 0, 12)
		if badEvery > 0 && rng.IntN(badEvery) == 0 {
			names[i] += "7"
		}
	}
	return names
}

func mustModel(t testing.TB, symbols string, policy InitialPolicy) *Model {
	t.Helper()
	a, err := NewAlphabet(symbols)
	if err != nil {
		t.Fatalf("NewAlphabet(%q): %v", symbols, err)
	}
	m, err := NewModel(a, policy)
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	return m
}

// buildIndex hashes names with a frozen default model and groups them.
func buildIndex[F Float](t testing.TB, names []string, eps F) *ShardIndex[F] {
	t.Helper()
	m, err := NewModel(nil, PolicyUniform)
	if err != nil {
		t.Fatal(err)
	}
	idx := NewShardIndex[F]()
	for _, s := range names {
		k, err := Encode(s, m, eps)
		if err != nil {
			continue
		}
		idx.Insert(k, s)
	}
	return idx
}

// writeTestSnapshot writes idx to a temp file and returns its path.
func writeTestSnapshot[F Float](t testing.TB, idx *ShardIndex[F], eps float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.acsh")
	if err := WriteSnapshot(path, idx, SnapshotMeta{Epsilon: eps, AlphabetSize: 52}); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	return path
}

// indexesEqual reports whether a and b hold the same shards in the same
// order with identical contents.
func indexesEqual[F Float](a, b *ShardIndex[F]) bool {
	if a.ShardCount() != b.ShardCount() || a.Len() != b.Len() {
		return false
	}
	for k, list := range a.All() {
		other := b.Shard(k)
		if len(other) != len(list) {
			return false
		}
		for i := range list {
			if list[i] != other[i] {
				return false
			}
		}
	}
	return true
}
