// Package encoding provides the record codecs used by shard snapshots.
//
// Shard strings are stored as a uvarint length followed by the raw bytes.
// Offsets and counts in the shard table are packed little-endian uint40s.
package encoding

import (
	"encoding/binary"
	"errors"
	"math"
)

// MaxUint40 is the largest value PutUint40 can represent.
const MaxUint40 = 1<<40 - 1

// ErrShortBuffer is returned when a record runs past the end of its buffer.
var ErrShortBuffer = errors.New("encoding: record exceeds buffer")

// PutUint40 writes the low 40 bits of v to buf[0:5] in little-endian order.
func PutUint40(buf []byte, v uint64) {
	_ = buf[4]
	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v >> 16)
	buf[3] = byte(v >> 24)
	buf[4] = byte(v >> 32)
}

// Uint40 reads a little-endian uint40 from buf[0:5].
func Uint40(buf []byte) uint64 {
	_ = buf[4]
	return uint64(buf[0]) | uint64(buf[1])<<8 | uint64(buf[2])<<16 |
		uint64(buf[3])<<24 | uint64(buf[4])<<32
}

// PutFloat64 writes the IEEE-754 bits of f to buf[0:8].
func PutFloat64(buf []byte, f float64) {
	binary.LittleEndian.PutUint64(buf, math.Float64bits(f))
}

// Float64 reads an IEEE-754 float64 from buf[0:8].
func Float64(buf []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(buf))
}

// StringSize returns the encoded size of s.
func StringSize(s string) int {
	var tmp [binary.MaxVarintLen64]byte
	return binary.PutUvarint(tmp[:], uint64(len(s))) + len(s)
}

// PutString writes s to dst and returns the number of bytes written.
// dst must have at least StringSize(s) bytes.
func PutString(dst []byte, s string) int {
	n := binary.PutUvarint(dst, uint64(len(s)))
	n += copy(dst[n:], s)
	return n
}

// AppendString appends the encoded form of s to dst.
func AppendString(dst []byte, s string) []byte {
	dst = binary.AppendUvarint(dst, uint64(len(s)))
	return append(dst, s...)
}

// ReadString decodes one string record from the start of buf and returns it
// along with the number of bytes consumed.
func ReadString(buf []byte) (string, int, error) {
	l, n := binary.Uvarint(buf)
	if n <= 0 {
		return "", 0, ErrShortBuffer
	}
	if l > uint64(len(buf)-n) {
		return "", 0, ErrShortBuffer
	}
	end := n + int(l)
	return string(buf[n:end]), end, nil
}
