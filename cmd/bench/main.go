// Bench measures arithshard encode throughput, memory use, snapshot size and
// lookup latency on a synthetic name corpus, next to conventional hashes.
//
// Usage:
//
//	go run ./cmd/bench -prefixes 100000 -names 100 -workers 8
//
// Flags:
//
//	-prefixes   Number of shared prefixes in the corpus (default: 100,000)
//	-names      Names generated per prefix (default: 100)
//	-epsilon    Interval width at which encoding stops (default: 1e-5)
//	-precision  Float width, 32 or 64 (default: 64)
//	-workers    Number of parallel encode workers (default: 1)
//	-seed       Corpus seed (default: 1)
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	mrand "math/rand/v2"
	"os"
	"path/filepath"
	"runtime"
	"runtime/metrics"
	"runtime/pprof"
	"slices"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/tamirms/arithshard"
	"github.com/tamirms/arithshard/internal/baseline"
	"github.com/tamirms/arithshard/internal/corpus"
)

// getMaxRSS returns the maximum resident set size in bytes.
// Uses getrusage(RUSAGE_SELF) which tracks peak RSS since process start.
func getMaxRSS() uint64 {
	var rusage syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &rusage); err != nil {
		return 0
	}
	// On macOS, MaxRss is in bytes. On Linux, it's in kilobytes.
	maxRSS := uint64(rusage.Maxrss)
	if runtime.GOOS == "linux" {
		maxRSS *= 1024
	}
	return maxRSS
}

// peakSampler tracks peak heap and RSS every 10ms.
// Uses runtime/metrics instead of ReadMemStats to avoid stop-the-world pauses.
type peakSampler struct {
	heap atomic.Uint64
	rss  atomic.Uint64
	done chan struct{}
}

func startSampler(heap, rss uint64) *peakSampler {
	s := &peakSampler{done: make(chan struct{})}
	s.heap.Store(heap)
	s.rss.Store(rss)
	go func() {
		samples := []metrics.Sample{{Name: "/memory/classes/heap/objects:bytes"}}
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				metrics.Read(samples)
				storeMax(&s.heap, samples[0].Value.Uint64())
				storeMax(&s.rss, getMaxRSS())
			}
		}
	}()
	return s
}

func storeMax(v *atomic.Uint64, n uint64) {
	for {
		old := v.Load()
		if n <= old || v.CompareAndSwap(old, n) {
			return
		}
	}
}

func (s *peakSampler) stop() (heap, rss uint64) {
	close(s.done)
	var final runtime.MemStats
	runtime.ReadMemStats(&final)
	storeMax(&s.heap, final.Alloc)
	storeMax(&s.rss, getMaxRSS())
	return s.heap.Load(), s.rss.Load()
}

type result struct {
	lines, rejected, shards, maxShard int
	encode                            time.Duration
}

func run[F arithshard.Float](ctx context.Context, data []byte, opts []arithshard.Option) (result, *arithshard.ShardIndex[F], error) {
	p, err := arithshard.NewPipeline[F](opts...)
	if err != nil {
		return result{}, nil, err
	}
	res, err := p.Run(ctx, bytes.NewReader(data))
	if err != nil {
		return result{}, nil, err
	}
	return result{
		lines:    res.Lines,
		rejected: res.Rejected,
		shards:   res.Index.ShardCount(),
		maxShard: res.Index.MaxShardSize(),
		encode:   res.Elapsed,
	}, res.Index, nil
}

func main() {
	prefixesFlag := flag.Int("prefixes", 100_000, "number of shared prefixes")
	namesFlag := flag.Int("names", 100, "names per prefix")
	epsilonFlag := flag.Float64("epsilon", arithshard.DefaultEpsilon, "interval width at which encoding stops")
	precisionFlag := flag.Int("precision", 64, "float width: 32 or 64")
	workersFlag := flag.Int("workers", 1, "number of parallel encode workers")
	seedFlag := flag.Uint64("seed", 1, "corpus seed")
	cpuprofile := flag.String("cpuprofile", "", "write cpu profile to file (encode phase only)")
	memprofile := flag.String("memprofile", "", "write memory profile to file (encode phase only)")
	flag.Parse()

	fmt.Println("Generating names...")
	var corpusBuf bytes.Buffer
	gen := corpus.New(*seedFlag)
	if err := gen.Generate(&corpusBuf, *prefixesFlag, *namesFlag); err != nil {
		fmt.Printf("Generate failed: %v\n", err)
		return
	}
	data := corpusBuf.Bytes()

	tmpDir, err := os.MkdirTemp("", "bench-")
	if err != nil {
		fmt.Printf("Failed to create temp dir: %v\n", err)
		return
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()
	snapPath := filepath.Join(tmpDir, "bench.acsh")

	runtime.GC()
	time.Sleep(50 * time.Millisecond)
	var base runtime.MemStats
	runtime.ReadMemStats(&base)
	baseRSS := getMaxRSS()
	sampler := startSampler(base.Alloc, baseRSS)

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			fmt.Printf("could not create CPU profile: %v\n", err)
			return
		}
		defer func() { _ = f.Close() }()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Printf("could not start CPU profile: %v\n", err)
			return
		}
	}

	fmt.Println("Encoding...")
	opts := []arithshard.Option{
		arithshard.WithEpsilon(*epsilonFlag),
		arithshard.WithWorkers(*workersFlag),
	}
	ctx := context.Background()
	var (
		res       result
		writeSnap func() error
		keys      []float64
	)
	meta := arithshard.SnapshotMeta{Epsilon: *epsilonFlag, AlphabetSize: len(gen.Symbols())}
	switch *precisionFlag {
	case 32:
		var idx *arithshard.ShardIndex[float32]
		res, idx, err = run[float32](ctx, data, opts)
		if err == nil {
			writeSnap = func() error { return arithshard.WriteSnapshot(snapPath, idx, meta) }
			for _, k := range idx.Keys() {
				keys = append(keys, float64(k))
			}
		}
	case 64:
		var idx *arithshard.ShardIndex[float64]
		res, idx, err = run[float64](ctx, data, opts)
		if err == nil {
			writeSnap = func() error { return arithshard.WriteSnapshot(snapPath, idx, meta) }
			keys = idx.Keys()
		}
	default:
		fmt.Printf("Unknown precision: %d (use 32 or 64)\n", *precisionFlag)
		return
	}

	if *cpuprofile != "" {
		pprof.StopCPUProfile()
	}
	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			fmt.Printf("could not create memory profile: %v\n", err)
		} else {
			runtime.GC()
			if err := pprof.WriteHeapProfile(f); err != nil {
				fmt.Printf("could not write memory profile: %v\n", err)
			}
			_ = f.Close()
		}
	}
	peakHeap, peakRSS := sampler.stop()
	if err != nil {
		fmt.Printf("Encode failed: %v\n", err)
		return
	}

	fmt.Println("Writing snapshot...")
	writeStart := time.Now()
	if err := writeSnap(); err != nil {
		fmt.Printf("WriteSnapshot failed: %v\n", err)
		return
	}
	writeDuration := time.Since(writeStart)
	info, _ := os.Stat(snapPath)

	snap, err := arithshard.OpenSnapshot(snapPath)
	if err != nil {
		fmt.Printf("OpenSnapshot failed: %v\n", err)
		return
	}
	defer func() { _ = snap.Close() }()

	if len(keys) == 0 {
		fmt.Println("No names were accepted; nothing to look up")
		return
	}

	fmt.Println("Benchmarking lookups...")
	numLookups := 100_000
	order := make([]float64, numLookups)
	for i := range order {
		order[i] = keys[mrand.IntN(len(keys))]
	}
	lookupStart := time.Now()
	for _, k := range order {
		_, _ = snap.Lookup(k) // Benchmark: measuring throughput, not correctness
	}
	lookupDuration := time.Since(lookupStart)

	fmt.Println("Hashing with baselines...")
	lines, _ := arithshard.ScanLines(bytes.NewReader(data))
	var names []string
	for name, err := range lines {
		if err == nil {
			names = append(names, name)
		}
	}
	type baselineRow struct {
		name     string
		duration time.Duration
		stats    baseline.Stats
	}
	var rows []baselineRow
	for _, h := range baseline.Hashers() {
		start := time.Now()
		st := baseline.Distribution(h.Hash, slices.Values(names), uint32(max(res.shards, 1)))
		rows = append(rows, baselineRow{h.Name, time.Since(start), st})
	}

	throughput := float64(res.lines) / res.encode.Seconds() / 1_000_000
	bytesPerString := float64(info.Size()) / float64(max(res.lines-res.rejected, 1))

	fmt.Printf("\n")
	fmt.Printf("╔═════════════════════╦════════════════╗\n")
	fmt.Printf("║ Precision: %-9d║ Workers: %-6d║\n", *precisionFlag, *workersFlag)
	fmt.Printf("╠═════════════════════╬════════════════╣\n")
	fmt.Printf("║ Lines               ║ %14d ║\n", res.lines)
	fmt.Printf("║ Rejected            ║ %14d ║\n", res.rejected)
	fmt.Printf("║ Total shards        ║ %14d ║\n", res.shards)
	fmt.Printf("║ Max shard           ║ %14d ║\n", res.maxShard)
	fmt.Printf("║ Encode time         ║ %10.2f sec ║\n", res.encode.Seconds())
	fmt.Printf("║ Encode throughput   ║ %8.2f M/sec ║\n", throughput)
	fmt.Printf("║ Snapshot write      ║ %10.2f sec ║\n", writeDuration.Seconds())
	fmt.Printf("║ Snapshot size       ║ %7.2f B/name ║\n", bytesPerString)
	fmt.Printf("║ Lookup latency      ║ %10.2f μs  ║\n", float64(lookupDuration.Nanoseconds())/float64(numLookups)/1000)
	fmt.Printf("║ Peak heap memory    ║ %10.1f MB  ║\n", float64(peakHeap-base.Alloc)/1_000_000)
	fmt.Printf("║ Peak RSS memory     ║ %10.1f MB  ║\n", float64(peakRSS-baseRSS)/1_000_000)
	fmt.Printf("╠═════════════════════╬════════════════╣\n")
	for _, r := range rows {
		fmt.Printf("║ %-9s max shard ║ %14d ║\n", r.name, r.stats.Max)
		fmt.Printf("║ %-9s time      ║ %10.2f sec ║\n", r.name, r.duration.Seconds())
	}
	fmt.Printf("╚═════════════════════╩════════════════╝\n")
}
