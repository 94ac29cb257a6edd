// Package baseline provides conventional 64-bit string hashes to compare
// against the prefix-preserving arithmetic keys.
//
// A uniform hash spreads names evenly over buckets regardless of shared
// prefixes, so its shard statistics show what the arithmetic encoder gives up
// (or gains) by keeping similar names together.
package baseline

import (
	"hash/fnv"
	"iter"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-farm"
	"github.com/spaolacci/murmur3"
	intbits "github.com/tamirms/arithshard/internal/bits"
	"github.com/zeebo/xxh3"
)

// Func hashes a string to 64 bits.
type Func func(s string) uint64

// Hasher is a named Func.
type Hasher struct {
	Name string
	Hash Func
}

// Hashers returns the available baselines in a fixed order.
func Hashers() []Hasher {
	return []Hasher{
		{Name: "xxh3", Hash: xxh3.HashString},
		{Name: "xxhash64", Hash: xxhash.Sum64String},
		{Name: "murmur3", Hash: murmur3Sum64},
		{Name: "farm", Hash: farmFingerprint64},
		{Name: "fnv1a", Hash: fnv1a64},
	}
}

// Lookup returns the baseline with the given name.
func Lookup(name string) (Hasher, bool) {
	for _, h := range Hashers() {
		if h.Name == name {
			return h, true
		}
	}
	return Hasher{}, false
}

func murmur3Sum64(s string) uint64 {
	return murmur3.Sum64([]byte(s))
}

func farmFingerprint64(s string) uint64 {
	return farm.Fingerprint64([]byte(s))
}

func fnv1a64(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// Stats summarises how strings fell into buckets.
type Stats struct {
	Name    string
	Strings int
	Shards  int // non-empty buckets
	Max     int // largest bucket
}

// Distribution hashes every string into one of buckets buckets with
// multiply-high range reduction. buckets == 0 means one bucket per distinct
// hash value, which is the direct analogue of exact-key sharding.
func Distribution(hash Func, lines iter.Seq[string], buckets uint32) Stats {
	var st Stats
	if buckets == 0 {
		counts := make(map[uint64]int)
		for s := range lines {
			h := hash(s)
			counts[h]++
			st.Strings++
			st.Max = max(st.Max, counts[h])
		}
		st.Shards = len(counts)
		return st
	}

	counts := make([]int, buckets)
	for s := range lines {
		b := intbits.FastRange32(hash(s), buckets)
		if counts[b] == 0 {
			st.Shards++
		}
		counts[b]++
		st.Strings++
		st.Max = max(st.Max, counts[b])
	}
	return st
}

// JumpDistribution is Distribution with jump consistent hashing in place of
// range reduction. buckets must be positive.
func JumpDistribution(hash Func, lines iter.Seq[string], buckets int) Stats {
	var st Stats
	counts := make([]int, buckets)
	for s := range lines {
		b := JumpBucket(hash(s), buckets)
		if counts[b] == 0 {
			st.Shards++
		}
		counts[b]++
		st.Strings++
		st.Max = max(st.Max, counts[b])
	}
	return st
}

// JumpBucket maps a 64-bit hash to a bucket in [0, numBuckets) with jump
// consistent hashing. Growing numBuckets moves only about 1/numBuckets of
// the keys.
func JumpBucket(key uint64, numBuckets int) int {
	if numBuckets <= 0 {
		panic("numBuckets must be > 0")
	}
	var b, j int64 = -1, 0
	for j < int64(numBuckets) {
		b = j
		key = key*2862933555777941757 + 1
		j = int64(float64(b+1) * (float64(1<<31) / float64((key>>33)+1)))
	}
	return int(b)
}
