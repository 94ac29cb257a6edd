package arithshard

import (
	"errors"
	"fmt"
	"math"
	"os"
	"unsafe"

	"github.com/cespare/xxhash/v2"
	"github.com/edsrzf/mmap-go"
	sherrors "github.com/tamirms/arithshard/errors"
	"github.com/tamirms/arithshard/internal/encoding"
)

// SnapshotMeta records how the keys in a snapshot were produced.
type SnapshotMeta struct {
	Epsilon      float64
	AlphabetSize int
}

// snapshotWriter lays a ShardIndex out into a memory-mapped file.
// File layout: [Header 64B][Shard Table (N+1)×18B][String Region][Footer 32B]
type snapshotWriter struct {
	file *os.File
	mmap mmap.MMap
	data []byte

	tableOffset   uint64
	stringsOffset uint64
	footerOffset  uint64
	size          uint64

	header header
}

// WriteSnapshot persists idx to path. Shards are stored in ascending key
// order; float32 keys are widened to float64 without loss.
func WriteSnapshot[F Float](path string, idx *ShardIndex[F], meta SnapshotMeta) error {
	if meta.Epsilon < 0 || math.IsNaN(meta.Epsilon) {
		return sherrors.ErrInvalidEpsilon
	}
	if meta.AlphabetSize < 0 || meta.AlphabetSize > math.MaxUint16 {
		return fmt.Errorf("alphabet size %d out of range", meta.AlphabetSize)
	}
	if uint64(idx.Len()) > encoding.MaxUint40 {
		return fmt.Errorf("%d strings exceed snapshot limit", idx.Len())
	}

	var stringsSize uint64
	for _, list := range idx.All() {
		for _, s := range list {
			stringsSize += uint64(encoding.StringSize(s))
		}
	}
	if stringsSize > encoding.MaxUint40 {
		return fmt.Errorf("string region of %d bytes exceeds snapshot limit", stringsSize)
	}

	var zero F
	hdr := header{
		Magic:        snapshotMagic,
		Version:      snapshotVersion,
		NumShards:    uint64(idx.ShardCount()),
		NumStrings:   uint64(idx.Len()),
		KeyWidth:     uint8(unsafe.Sizeof(zero)),
		Epsilon:      meta.Epsilon,
		AlphabetSize: uint16(meta.AlphabetSize),
		MaxShardSize: uint64(idx.MaxShardSize()),
	}

	sw, err := newSnapshotWriter(path, hdr, stringsSize)
	if err != nil {
		return err
	}
	if err := writeShards(sw, idx); err != nil {
		return errors.Join(err, sw.close())
	}
	return sw.finalize()
}

func newSnapshotWriter(path string, hdr header, stringsSize uint64) (*snapshotWriter, error) {
	tableOffset := uint64(headerSize)
	stringsOffset := tableOffset + hdr.tableSize()
	footerOffset := stringsOffset + stringsSize
	size := footerOffset + footerSize

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot file: %w", err)
	}

	// Pre-allocate disk blocks to prevent SIGBUS on disk full
	if err := reserveFile(file, int64(size)); err != nil {
		primaryErr := fmt.Errorf("failed to allocate disk space: %w", err)
		return nil, errors.Join(primaryErr, file.Close())
	}

	mm, err := mmap.MapRegion(file, int(size), mmap.RDWR, 0, 0)
	if err != nil {
		primaryErr := fmt.Errorf("failed to mmap file: %w", err)
		return nil, errors.Join(primaryErr, file.Close())
	}

	sw := &snapshotWriter{
		file:          file,
		mmap:          mm,
		data:          []byte(mm),
		tableOffset:   tableOffset,
		stringsOffset: stringsOffset,
		footerOffset:  footerOffset,
		size:          size,
		header:        hdr,
	}
	// Advice only; the writes below fault pages in regardless.
	_ = populateForWrite(sw.data[pageFloor(stringsOffset):footerOffset])
	return sw, nil
}

// pageFloor rounds off down to a page boundary. madvise rejects a region
// whose start is not page aligned.
func pageFloor(off uint64) uint64 {
	page := uint64(os.Getpagesize())
	return off &^ (page - 1)
}

// writeShards fills the shard table and the string region in key order.
func writeShards[F Float](sw *snapshotWriter, idx *ShardIndex[F]) error {
	stringsHasher := xxhash.New()
	var stringsBefore, dataOffset uint64
	entry := sw.tableOffset

	for key, list := range idx.All() {
		encodeTableEntryTo(tableEntry{
			Key:           float64(key),
			StringsBefore: stringsBefore,
			DataOffset:    dataOffset,
		}, sw.data[entry:])
		entry += tableEntrySize

		start := sw.stringsOffset + dataOffset
		pos := start
		for _, s := range list {
			if pos+uint64(encoding.StringSize(s)) > sw.footerOffset {
				return fmt.Errorf("writeShards: write exceeds string region boundary")
			}
			pos += uint64(encoding.PutString(sw.data[pos:], s))
		}
		if _, err := stringsHasher.Write(sw.data[start:pos]); err != nil {
			panic("hash.Hash.Write returned unexpected error: " + err.Error())
		}
		dataOffset = pos - sw.stringsOffset
		stringsBefore += uint64(len(list))
	}

	if entry != sw.stringsOffset-tableEntrySize || sw.stringsOffset+dataOffset != sw.footerOffset {
		return fmt.Errorf("writeShards: index changed while writing")
	}

	// Sentinel closes the last shard.
	encodeTableEntryTo(tableEntry{
		Key:           math.Inf(1),
		StringsBefore: stringsBefore,
		DataOffset:    dataOffset,
	}, sw.data[entry:])

	ftr := footer{
		TableHash:   xxhash.Sum64(sw.data[sw.tableOffset:sw.stringsOffset]),
		StringsHash: stringsHasher.Sum64(),
	}
	ftr.encodeTo(sw.data[sw.footerOffset:])
	sw.header.encodeTo(sw.data[0:headerSize])
	return nil
}

// finalize flushes the mapping and closes the file.
// On error, delegates to close() for idempotent cleanup.
func (sw *snapshotWriter) finalize() error {
	// Flush dirty pages to file (ensures writes visible before unmap)
	if err := sw.mmap.Flush(); err != nil {
		primaryErr := fmt.Errorf("mmap flush failed: %w", err)
		return errors.Join(primaryErr, sw.close())
	}

	unmapErr := sw.mmap.Unmap()
	sw.mmap = nil
	if unmapErr != nil {
		primaryErr := fmt.Errorf("mmap unmap failed: %w", unmapErr)
		return errors.Join(primaryErr, sw.close())
	}

	closeErr := sw.file.Close()
	sw.file = nil
	return closeErr
}

// close closes the writer without finalizing (for error cleanup).
// Idempotent: safe to call multiple times.
func (sw *snapshotWriter) close() error {
	var unmapErr error
	if sw.mmap != nil {
		unmapErr = sw.mmap.Unmap()
		sw.mmap = nil
	}
	var closeErr error
	if sw.file != nil {
		closeErr = sw.file.Close()
		sw.file = nil
	}
	return errors.Join(unmapErr, closeErr)
}
