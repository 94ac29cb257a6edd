package arithshard

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/edsrzf/mmap-go"
	sherrors "github.com/tamirms/arithshard/errors"
	"github.com/tamirms/arithshard/internal/encoding"
)

// Snapshot is a read-only, memory-mapped shard index written by WriteSnapshot.
//
// Thread Safety:
// - Lookup, ShardAt and the other read methods are safe for concurrent use
// - Close must only be called after all reads have completed
type Snapshot struct {
	mmap mmap.MMap
	data []byte

	header *header
	table  []tableEntry

	stringsOffset uint64
	footerOffset  uint64

	closed atomic.Bool
}

// SnapshotStats describes a snapshot file.
type SnapshotStats struct {
	NumShards    uint64
	NumStrings   uint64
	MaxShardSize uint64
	KeyWidth     int
	Epsilon      float64
	AlphabetSize int
	FileSize     int64
}

// OpenSnapshot opens a snapshot file, memory-maps it and closes the file
// descriptor.
func OpenSnapshot(path string) (*Snapshot, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot file: %w", err)
	}
	defer file.Close()
	return OpenSnapshotFile(file)
}

// OpenSnapshotFile memory-maps f. The caller is responsible for closing f,
// which may happen as soon as OpenSnapshotFile returns.
func OpenSnapshotFile(f *os.File) (*Snapshot, error) {
	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat snapshot file: %w", err)
	}
	if stat.Size() < int64(minSnapshotSize) {
		return nil, sherrors.ErrTruncatedFile
	}

	mm, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("mmap snapshot file: %w", err)
	}

	snap := &Snapshot{
		mmap: mm,
		data: []byte(mm),
	}
	if err := snap.initFromData(); err != nil {
		return nil, errors.Join(err, snap.Close())
	}
	return snap, nil
}

// OpenSnapshotBytes reads a snapshot from memory. Close is a no-op.
// data must not be modified while the Snapshot is in use.
func OpenSnapshotBytes(data []byte) (*Snapshot, error) {
	if len(data) < minSnapshotSize {
		return nil, sherrors.ErrTruncatedFile
	}
	snap := &Snapshot{data: data}
	if err := snap.initFromData(); err != nil {
		return nil, err
	}
	return snap, nil
}

// initFromData parses the header and shard table. The footer is left to
// Verify.
func (s *Snapshot) initFromData() error {
	fileSize := uint64(len(s.data))

	hdr, err := decodeHeader(s.data[:headerSize])
	if err != nil {
		return err
	}
	s.header = hdr

	// NumStrings is bounded by MaxUint40, so the table size cannot overflow.
	tableEnd := uint64(headerSize) + hdr.tableSize()
	if tableEnd > fileSize-footerSize {
		return sherrors.ErrTruncatedFile
	}
	s.stringsOffset = tableEnd
	s.footerOffset = fileSize - footerSize
	regionSize := s.footerOffset - s.stringsOffset

	n := hdr.NumShards
	s.table = make([]tableEntry, n+1)
	for i := range s.table {
		off := uint64(headerSize) + uint64(i)*tableEntrySize
		s.table[i] = decodeTableEntry(s.data[off : off+tableEntrySize])
	}

	for i := uint64(0); i < n; i++ {
		cur, next := s.table[i], s.table[i+1]
		if math.IsNaN(cur.Key) || (i+1 < n && cur.Key >= next.Key) {
			return sherrors.ErrCorruptedSnapshot
		}
		if next.StringsBefore <= cur.StringsBefore || next.DataOffset <= cur.DataOffset {
			return sherrors.ErrCorruptedSnapshot
		}
	}
	sentinel := s.table[n]
	if !math.IsInf(sentinel.Key, 1) ||
		sentinel.StringsBefore != hdr.NumStrings ||
		sentinel.DataOffset != regionSize ||
		s.table[0].StringsBefore != 0 || s.table[0].DataOffset != 0 {
		return sherrors.ErrCorruptedSnapshot
	}
	return nil
}

// Close releases the mapping.
func (s *Snapshot) Close() error {
	if s.closed.Swap(true) {
		return nil // Already closed
	}
	if s.mmap != nil {
		return s.mmap.Unmap()
	}
	return nil
}

// Lookup returns the strings stored under key, matched exactly.
// Returns sherrors.ErrShardNotFound when no shard has that key.
func (s *Snapshot) Lookup(key float64) ([]string, error) {
	if s.closed.Load() {
		return nil, sherrors.ErrSnapshotClosed
	}
	n := int(s.header.NumShards)
	i := sort.Search(n, func(i int) bool { return s.table[i].Key >= key })
	if i == n || s.table[i].Key != key {
		return nil, sherrors.ErrShardNotFound
	}
	return s.readShard(i)
}

// ShardAt returns the key and strings of the i-th shard in key order.
func (s *Snapshot) ShardAt(i int) (float64, []string, error) {
	if s.closed.Load() {
		return 0, nil, sherrors.ErrSnapshotClosed
	}
	if i < 0 || uint64(i) >= s.header.NumShards {
		return 0, nil, fmt.Errorf("%w: shard %d of %d", sherrors.ErrIndexOutOfRange, i, s.header.NumShards)
	}
	list, err := s.readShard(i)
	if err != nil {
		return 0, nil, err
	}
	return s.table[i].Key, list, nil
}

func (s *Snapshot) readShard(i int) ([]string, error) {
	cur, next := s.table[i], s.table[i+1]
	count := next.StringsBefore - cur.StringsBefore
	buf := s.data[s.stringsOffset+cur.DataOffset : s.stringsOffset+next.DataOffset]

	list := make([]string, 0, count)
	for len(buf) > 0 {
		str, n, err := encoding.ReadString(buf)
		if err != nil {
			return nil, fmt.Errorf("%w: shard %d: %w", sherrors.ErrCorruptedSnapshot, i, err)
		}
		list = append(list, str)
		buf = buf[n:]
	}
	if uint64(len(list)) != count {
		return nil, fmt.Errorf("%w: shard %d has %d strings, table says %d",
			sherrors.ErrCorruptedSnapshot, i, len(list), count)
	}
	return list, nil
}

// Index decodes the whole snapshot back into a ShardIndex.
func (s *Snapshot) Index() (*ShardIndex[float64], error) {
	idx := NewShardIndex[float64]()
	for i := range int(s.header.NumShards) {
		key, list, err := s.ShardAt(i)
		if err != nil {
			return nil, err
		}
		for _, str := range list {
			idx.Insert(key, str)
		}
	}
	return idx, nil
}

// ShardCount returns the number of shards.
func (s *Snapshot) ShardCount() int {
	return int(s.header.NumShards)
}

// NumStrings returns the total number of strings.
func (s *Snapshot) NumStrings() uint64 {
	return s.header.NumStrings
}

// MaxShardSize returns the length of the largest shard.
func (s *Snapshot) MaxShardSize() int {
	return int(s.header.MaxShardSize)
}

// Epsilon returns the truncation width the keys were encoded with.
func (s *Snapshot) Epsilon() float64 {
	return s.header.Epsilon
}

// KeyWidth returns the byte width of the float type the keys were computed
// in: 4 or 8.
func (s *Snapshot) KeyWidth() int {
	return int(s.header.KeyWidth)
}

// AlphabetSize returns the alphabet size of the model that produced the keys.
func (s *Snapshot) AlphabetSize() int {
	return int(s.header.AlphabetSize)
}

// Stats returns the snapshot's header values and file size.
func (s *Snapshot) Stats() *SnapshotStats {
	return &SnapshotStats{
		NumShards:    s.header.NumShards,
		NumStrings:   s.header.NumStrings,
		MaxShardSize: s.header.MaxShardSize,
		KeyWidth:     int(s.header.KeyWidth),
		Epsilon:      s.header.Epsilon,
		AlphabetSize: int(s.header.AlphabetSize),
		FileSize:     int64(len(s.data)),
	}
}

// Verify checks the shard table and string region against the footer
// checksums. The footer is decoded here rather than at open time.
func (s *Snapshot) Verify() error {
	if s.closed.Load() {
		return sherrors.ErrSnapshotClosed
	}

	ft, err := decodeFooter(s.data[s.footerOffset:])
	if err != nil {
		return err
	}
	if xxhash.Sum64(s.data[headerSize:s.stringsOffset]) != ft.TableHash {
		return sherrors.ErrChecksumFailed
	}
	if xxhash.Sum64(s.data[s.stringsOffset:s.footerOffset]) != ft.StringsHash {
		return sherrors.ErrChecksumFailed
	}
	return nil
}
