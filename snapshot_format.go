package arithshard

import (
	"encoding/binary"
	"math"

	sherrors "github.com/tamirms/arithshard/errors"
	"github.com/tamirms/arithshard/internal/encoding"
)

const (
	// snapshotMagic is "ACSH" in little-endian.
	snapshotMagic = uint32(0x48534341)

	// snapshotVersion is the current format version.
	snapshotVersion = uint16(0x0001)

	// headerSize is the exact size of the serialized header.
	headerSize = 64

	// footerSize is the exact size of the serialized footer.
	footerSize = 32

	// tableEntrySize is the size of one shard table entry.
	// Format: [Key: float64][StringsBefore: uint40][DataOffset: uint40]
	tableEntrySize = 18

	// minSnapshotSize is an empty snapshot: header, sentinel entry, footer.
	minSnapshotSize = headerSize + tableEntrySize + footerSize
)

// header is the 64-byte snapshot header.
//
// Layout:
//
//	Offset  Size  Field         Type
//	0       4     Magic         0x48534341 ("ACSH")
//	4       2     Version       0x0001
//	6       8     NumShards     uint64_le
//	14      8     NumStrings    uint64_le
//	22      1     KeyWidth      uint8 (4 or 8 bytes)
//	23      8     Epsilon       float64_le
//	31      2     AlphabetSize  uint16_le
//	33      8     MaxShardSize  uint64_le
//	41      23    Reserved      [23]byte (zero)
type header struct {
	Magic        uint32
	Version      uint16
	NumShards    uint64
	NumStrings   uint64
	KeyWidth     uint8
	Epsilon      float64
	AlphabetSize uint16
	MaxShardSize uint64
	Reserved     [23]byte
}

// encodeTo serializes the header to an existing buffer.
func (h *header) encodeTo(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint16(buf[4:6], h.Version)
	binary.LittleEndian.PutUint64(buf[6:14], h.NumShards)
	binary.LittleEndian.PutUint64(buf[14:22], h.NumStrings)
	buf[22] = h.KeyWidth
	encoding.PutFloat64(buf[23:31], h.Epsilon)
	binary.LittleEndian.PutUint16(buf[31:33], h.AlphabetSize)
	binary.LittleEndian.PutUint64(buf[33:41], h.MaxShardSize)
	copy(buf[41:64], h.Reserved[:])
}

// decodeHeader parses a 64-byte header.
func decodeHeader(buf []byte) (*header, error) {
	if len(buf) < headerSize {
		return nil, sherrors.ErrTruncatedFile
	}

	h := &header{
		Magic:        binary.LittleEndian.Uint32(buf[0:4]),
		Version:      binary.LittleEndian.Uint16(buf[4:6]),
		NumShards:    binary.LittleEndian.Uint64(buf[6:14]),
		NumStrings:   binary.LittleEndian.Uint64(buf[14:22]),
		KeyWidth:     buf[22],
		Epsilon:      encoding.Float64(buf[23:31]),
		AlphabetSize: binary.LittleEndian.Uint16(buf[31:33]),
		MaxShardSize: binary.LittleEndian.Uint64(buf[33:41]),
	}
	copy(h.Reserved[:], buf[41:64])

	if h.Magic != snapshotMagic {
		return nil, sherrors.ErrInvalidMagic
	}
	if h.Version != snapshotVersion {
		return nil, sherrors.ErrInvalidVersion
	}
	if h.KeyWidth != 4 && h.KeyWidth != 8 {
		return nil, sherrors.ErrCorruptedSnapshot
	}
	if h.Epsilon < 0 || math.IsNaN(h.Epsilon) {
		return nil, sherrors.ErrCorruptedSnapshot
	}
	if h.NumShards > h.NumStrings || h.MaxShardSize > h.NumStrings {
		return nil, sherrors.ErrCorruptedSnapshot
	}
	if h.NumStrings > encoding.MaxUint40 {
		return nil, sherrors.ErrCorruptedSnapshot
	}

	return h, nil
}

// tableSize returns the size of the shard table including the sentinel.
func (h *header) tableSize() uint64 {
	return (h.NumShards + 1) * tableEntrySize
}

// footer is the 32-byte snapshot footer.
//
// Layout:
//
//	Offset  Size  Field        Type
//	0       8     TableHash    uint64_le (xxHash64 of the shard table)
//	8       8     StringsHash  uint64_le (xxHash64 of the string region)
//	16      16    Reserved     [16]byte (zero)
type footer struct {
	TableHash   uint64
	StringsHash uint64
	Reserved    [16]byte
}

// encodeTo serializes the footer into an existing buffer.
func (f *footer) encodeTo(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], f.TableHash)
	binary.LittleEndian.PutUint64(buf[8:16], f.StringsHash)
	copy(buf[16:32], f.Reserved[:])
}

// decodeFooter parses a 32-byte footer.
func decodeFooter(buf []byte) (*footer, error) {
	if len(buf) < footerSize {
		return nil, sherrors.ErrTruncatedFile
	}

	f := &footer{
		TableHash:   binary.LittleEndian.Uint64(buf[0:8]),
		StringsHash: binary.LittleEndian.Uint64(buf[8:16]),
	}
	copy(f.Reserved[:], buf[16:32])

	return f, nil
}

// tableEntry is one row of the shard table.
//
// Wire format (18 bytes packed, little-endian):
//
//	Offset  Size  Field          Type
//	0       8     Key            float64_le
//	8       5     StringsBefore  uint40_le (strings in earlier shards)
//	13      5     DataOffset     uint40_le (relative to the string region)
//
// A final sentinel entry with Key = +Inf closes the table, so the strings of
// shard i are bounded by entries i and i+1.
type tableEntry struct {
	Key           float64
	StringsBefore uint64
	DataOffset    uint64
}

func encodeTableEntryTo(e tableEntry, buf []byte) {
	encoding.PutFloat64(buf[0:8], e.Key)
	encoding.PutUint40(buf[8:13], e.StringsBefore)
	encoding.PutUint40(buf[13:18], e.DataOffset)
}

func decodeTableEntry(buf []byte) tableEntry {
	return tableEntry{
		Key:           encoding.Float64(buf[0:8]),
		StringsBefore: encoding.Uint40(buf[8:13]),
		DataOffset:    encoding.Uint40(buf[13:18]),
	}
}
