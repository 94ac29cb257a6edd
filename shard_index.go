package arithshard

import (
	"iter"
	"slices"

	intbits "github.com/tamirms/arithshard/internal/bits"
)

// ShardIndex groups strings by the scalar key they encoded to.
//
// Keys are compared with exact floating-point equality: two strings share a
// shard only when their encodings ended on bit-identical intervals. There is
// no approximate or distance-based clustering.
//
// Within a shard, strings keep their insertion order. Iteration is in
// ascending key order. A ShardIndex is not safe for concurrent mutation.
type ShardIndex[F Float] struct {
	shards  map[F][]string
	keys    []F
	sorted  bool
	strings int
	maxSize int
}

// ShardStats summarises the distribution of strings over shards.
type ShardStats struct {
	Shards     int
	Strings    int
	MaxShard   int
	MeanShard  float64
	Singletons int
}

// NewShardIndex returns an empty index.
func NewShardIndex[F Float]() *ShardIndex[F] {
	return &ShardIndex[F]{
		shards: make(map[F][]string),
		sorted: true,
	}
}

// Insert appends s to the shard for key, creating the shard if needed.
// Inserting the same pair twice stores s twice.
func (x *ShardIndex[F]) Insert(key F, s string) {
	list, ok := x.shards[key]
	if !ok {
		x.keys = append(x.keys, key)
		if n := len(x.keys); n > 1 && x.keys[n-2] > key {
			x.sorted = false
		}
	}
	list = append(list, s)
	x.shards[key] = list
	x.strings++
	if len(list) > x.maxSize {
		x.maxSize = len(list)
	}
}

// ShardCount returns the number of distinct keys.
func (x *ShardIndex[F]) ShardCount() int {
	return len(x.shards)
}

// MaxShardSize returns the length of the largest shard, or 0 when empty.
func (x *ShardIndex[F]) MaxShardSize() int {
	return x.maxSize
}

// Len returns the total number of strings across all shards.
func (x *ShardIndex[F]) Len() int {
	return x.strings
}

// Shard returns the strings stored under key. The slice must not be modified.
func (x *ShardIndex[F]) Shard(key F) []string {
	return x.shards[key]
}

// Keys returns the distinct keys in ascending order.
func (x *ShardIndex[F]) Keys() []F {
	x.sortKeys()
	return slices.Clone(x.keys)
}

// All yields every shard in ascending key order.
func (x *ShardIndex[F]) All() iter.Seq2[F, []string] {
	x.sortKeys()
	return func(yield func(F, []string) bool) {
		for _, k := range x.keys {
			if !yield(k, x.shards[k]) {
				return
			}
		}
	}
}

// Stats computes summary statistics over all shards.
func (x *ShardIndex[F]) Stats() ShardStats {
	st := ShardStats{
		Shards:   len(x.shards),
		Strings:  x.strings,
		MaxShard: x.maxSize,
	}
	for _, list := range x.shards {
		if len(list) == 1 {
			st.Singletons++
		}
	}
	if st.Shards > 0 {
		st.MeanShard = float64(st.Strings) / float64(st.Shards)
	}
	return st
}

func (x *ShardIndex[F]) sortKeys() {
	if x.sorted {
		return
	}
	slices.Sort(x.keys)
	x.sorted = true
}

// Bucket maps a key in [0, 1] onto one of n buckets. The mapping is monotone,
// so neighbouring keys land in the same or adjacent buckets.
func Bucket[F Float](key F, n uint32) uint32 {
	return intbits.UnitRange32(float64(key), n)
}
