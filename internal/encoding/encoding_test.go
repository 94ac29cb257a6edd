package encoding

import (
	"encoding/binary"
	"errors"
	"hash/fnv"
	"math"
	"math/rand/v2"
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

func TestUint40Boundaries(t *testing.T) {
	buf := make([]byte, 5)
	for _, v := range []uint64{0, 1, 0xFF, 0x1_0000_0000, MaxUint40} {
		PutUint40(buf, v)
		if got := Uint40(buf); got != v {
			t.Errorf("Uint40 after PutUint40(%d) = %d", v, got)
		}
	}

	// Bits above 40 are dropped.
	PutUint40(buf, MaxUint40+1)
	if got := Uint40(buf); got != 0 {
		t.Errorf("PutUint40(2^40) wrote %d, want 0", got)
	}
}

func TestFloat64PreservesBits(t *testing.T) {
	buf := make([]byte, 8)
	for _, f := range []float64{0, 0.5, math.Nextafter(1, 0), math.SmallestNonzeroFloat64, 0.1} {
		PutFloat64(buf, f)
		if got := Float64(buf); math.Float64bits(got) != math.Float64bits(f) {
			t.Errorf("Float64 after PutFloat64(%v) = %v", f, got)
		}
	}
}

// TestStringRecordsConcatenate writes a run of random records back to back and
// reads them out again, which is how a shard's strings are laid out.
func TestStringRecordsConcatenate(t *testing.T) {
	rng := newTestRNG(t)
	want := make([]string, 200)
	var buf []byte
	for i := range want {
		n := rng.IntN(300)
		want[i] = strings.Repeat(string(rune('a'+rng.IntN(26))), n)
		before := len(buf)
		buf = AppendString(buf, want[i])
		if got := len(buf) - before; got != StringSize(want[i]) {
			t.Fatalf("record %d: appended %d bytes, StringSize says %d", i, got, StringSize(want[i]))
		}
	}

	off := 0
	for i := range want {
		s, n, err := ReadString(buf[off:])
		if err != nil {
			t.Fatalf("record %d: ReadString: %v", i, err)
		}
		if s != want[i] {
			t.Fatalf("record %d: got %q, want %q", i, s, want[i])
		}
		off += n
	}
	if off != len(buf) {
		t.Errorf("consumed %d bytes, buffer has %d", off, len(buf))
	}
}

func TestPutStringMatchesAppend(t *testing.T) {
	s := "ZyXwv"
	dst := make([]byte, StringSize(s))
	if n := PutString(dst, s); n != len(dst) {
		t.Fatalf("PutString wrote %d bytes, want %d", n, len(dst))
	}
	if got := AppendString(nil, s); string(got) != string(dst) {
		t.Errorf("PutString = %x, AppendString = %x", dst, got)
	}
}

func TestReadStringTruncated(t *testing.T) {
	full := AppendString(nil, "abcdef")
	for cut := 0; cut < len(full); cut++ {
		if _, _, err := ReadString(full[:cut]); !errors.Is(err, ErrShortBuffer) {
			t.Errorf("ReadString(len %d) err = %v, want ErrShortBuffer", cut, err)
		}
	}
}
