// Package arithshard maps strings to scalar keys with arithmetic coding and
// groups strings that share a key into shards.
//
// A Model holds cumulative symbol frequencies over an Alphabet. Encoding a
// string narrows [0, 1) symbol by symbol to the sub-interval the model
// assigns each symbol, and stops once the interval is no wider than epsilon.
// The midpoint of the final interval is the key. Strings with a long common
// prefix therefore collide on purpose, and a larger epsilon makes shards
// coarser.
//
// # Basic Usage
//
// Hashing single strings:
//
//	h, err := arithshard.NewHasher[float64](arithshard.WithEpsilon(1e-5))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	key, err := h.Hash("Alice")
//
// Sharding a file:
//
//	p, err := arithshard.NewPipeline[float64](arithshard.WithWorkers(8))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := p.RunFile(ctx, "names.txt")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("total shards: %d\nmax shard: %d\n",
//	    res.Index.ShardCount(), res.Index.MaxShardSize())
//
// Persisting and querying shards:
//
//	err = arithshard.WriteSnapshot("names.acsh", res.Index, arithshard.SnapshotMeta{Epsilon: 1e-5})
//	snap, err := arithshard.OpenSnapshot("names.acsh")
//	names, err := snap.Lookup(key)
//
// # Package Structure
//
//   - Symbols and frequencies: alphabet.go, model.go
//   - Encoding: encode.go (Encode, EncodeInterval), hasher.go (Hasher, Mode)
//   - Configuration: options.go (Option, With* functions)
//   - Grouping: shard_index.go (ShardIndex)
//   - Streaming: input.go, pipeline.go, pipeline_parallel.go
//   - Persistence: snapshot_format.go, snapshot_writer.go, snapshot.go
//   - Platform: sys_linux.go, sys_darwin.go, sys_other.go
package arithshard
