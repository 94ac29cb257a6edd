package arithshard

import (
	"errors"
	"math"
	"testing"

	sherrors "github.com/tamirms/arithshard/errors"
)

func TestEncodeTwoSymbolScenario(t *testing.T) {
	m := mustModel(t, "AB", PolicyUniform)
	m.Freeze()
	const eps = 1e-6

	enc := func(s string) float64 {
		t.Helper()
		k, err := Encode[float64](s, m, eps)
		if err != nil {
			t.Fatalf("Encode(%q): %v", s, err)
		}
		return k
	}

	a, b := enc("A"), enc("B")
	if !(a < 0.5) {
		t.Errorf("Encode(A) = %v, want < 0.5", a)
	}
	if !(b > 0.5) {
		t.Errorf("Encode(B) = %v, want > 0.5", b)
	}
	aa, ab := enc("AA"), enc("AB")
	if !(aa < ab) {
		t.Errorf("Encode(AA) = %v not below Encode(AB) = %v", aa, ab)
	}
	for _, k := range []float64{aa, ab} {
		if k < 0 || k >= 0.5 {
			t.Errorf("key %v outside [0, 0.5)", k)
		}
	}
	if a != 0.25 || aa != 0.125 || ab != 0.375 {
		t.Errorf("midpoints = %v %v %v, want 0.25 0.125 0.375", a, aa, ab)
	}
}

func TestEncodeTruncationCollision(t *testing.T) {
	m, _ := NewModel(nil, PolicyUniform)
	m.Freeze()

	// Width after one symbol is 1/52, already below 0.5.
	ax, err := Encode[float64]("AX", m, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	ay, err := Encode[float64]("AY", m, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if ax != ay {
		t.Errorf("Encode(AX) = %v, Encode(AY) = %v, want equal", ax, ay)
	}

	iv, _ := EncodeInterval[float64]("AXYZ", m, 0.5)
	if iv.Consumed != 1 {
		t.Errorf("Consumed = %d, want 1", iv.Consumed)
	}
}

func TestEncodeSharedPrefixCollides(t *testing.T) {
	rng := newTestRNG(t)
	m, _ := NewModel(nil, PolicyUniform)
	m.Freeze()
	// Two uniform symbols narrow to 1/2704, below eps.
	const eps = 1e-3

	for range 200 {
		prefix := randomName(rng, DefaultSymbols, 2, 2)
		s1 := prefix + randomName(rng, DefaultSymbols, 0, 10)
		s2 := prefix + randomName(rng, DefaultSymbols, 0, 10)
		k1, err1 := Encode[float64](s1, m, eps)
		k2, err2 := Encode[float64](s2, m, eps)
		if err1 != nil || err2 != nil {
			t.Fatalf("encode: %v %v", err1, err2)
		}
		if k1 != k2 {
			t.Fatalf("%q -> %v, %q -> %v, want equal", s1, k1, s2, k2)
		}
	}
}

func TestEncodeKeysInUnitInterval(t *testing.T) {
	rng := newTestRNG(t)
	for _, policy := range []InitialPolicy{PolicyUniform, PolicyTriangular} {
		m, _ := NewModel(nil, policy)
		m.Freeze()
		for _, name := range randomNames(rng, 2000, 0) {
			iv64, err := EncodeInterval[float64](name, m, 1e-9)
			if err != nil {
				t.Fatalf("EncodeInterval(%q): %v", name, err)
			}
			if !(0 <= iv64.Low && iv64.Low <= iv64.High && iv64.High <= 1) {
				t.Fatalf("%q: interval [%v, %v)", name, iv64.Low, iv64.High)
			}
			k := iv64.Midpoint()
			if k < 0 || k > 1 {
				t.Fatalf("%q: key %v outside [0, 1]", name, k)
			}

			iv32, err := EncodeInterval[float32](name, m, 1e-5)
			if err != nil {
				t.Fatalf("EncodeInterval[float32](%q): %v", name, err)
			}
			if !(0 <= iv32.Low && iv32.Low <= iv32.High && iv32.High <= 1) {
				t.Fatalf("%q: float32 interval [%v, %v)", name, iv32.Low, iv32.High)
			}
		}
	}
}

func TestEncodeFirstStepStrictlyInside(t *testing.T) {
	m, _ := NewModel(nil, PolicyTriangular)
	for _, p := range m.Dump() {
		if !(0 <= p.Low && p.Low < p.High && p.High <= 1) {
			t.Errorf("%q: [%v, %v)", p.Symbol, p.Low, p.High)
		}
	}
}

func TestEncodeNarrowsMonotonically(t *testing.T) {
	rng := newTestRNG(t)
	m, _ := NewModel(nil, PolicyTriangular)
	m.Freeze()

	for range 100 {
		s := randomName(rng, DefaultSymbols, 1, 8)
		prev := Interval[float64]{Low: 0, High: 1}
		for k := 1; k <= len(s); k++ {
			iv, err := EncodeInterval[float64](s[:k], m, 0)
			if err != nil {
				t.Fatal(err)
			}
			if iv.Low < prev.Low || iv.High > prev.High {
				t.Fatalf("%q[:%d] = [%v, %v) escapes [%v, %v)", s, k, iv.Low, iv.High, prev.Low, prev.High)
			}
			if iv.Width() > prev.Width() {
				t.Fatalf("%q[:%d] widened", s, k)
			}
			prev = iv
		}
	}
}

func TestEncodeDeterministic(t *testing.T) {
	rng := newTestRNG(t)
	names := randomNames(rng, 500, 0)
	m1, _ := NewModel(nil, PolicyTriangular)
	m2, _ := NewModel(nil, PolicyTriangular)
	for _, s := range names {
		k1, _ := Encode[float64](s, m1, 1e-7)
		k2, _ := Encode[float64](s, m2, 1e-7)
		if math.Float64bits(k1) != math.Float64bits(k2) {
			t.Fatalf("%q: %v != %v", s, k1, k2)
		}
		f1, _ := Encode[float32](s, m1, 1e-4)
		f2, _ := Encode[float32](s, m1, 1e-4)
		if f1 != f2 {
			t.Fatalf("%q: float32 %v != %v", s, f1, f2)
		}
	}
}

func TestEncodeEmptyString(t *testing.T) {
	m, _ := NewModel(nil, PolicyUniform)
	iv, err := EncodeInterval[float64]("", m, 1e-5)
	if err != nil {
		t.Fatal(err)
	}
	if iv.Consumed != 0 || iv.Midpoint() != 0.5 {
		t.Errorf("empty string: %+v", iv)
	}
}

func TestEncodeInvalidEpsilon(t *testing.T) {
	m, _ := NewModel(nil, PolicyUniform)
	for _, eps := range []float64{-1, -1e-12, math.NaN()} {
		if _, err := Encode("Alice", m, eps); !errors.Is(err, sherrors.ErrInvalidEpsilon) {
			t.Errorf("Encode(eps=%v) = %v, want ErrInvalidEpsilon", eps, err)
		}
	}
	if _, err := Encode[float64]("Alice", m, 0); err != nil {
		t.Errorf("Encode(eps=0) = %v", err)
	}
}

func TestEncodeUnsupportedSymbol(t *testing.T) {
	m, _ := NewModel(nil, PolicyUniform)
	for _, s := range []string{"1", "Bob1", "Al ice", "Zoë"} {
		if _, err := Encode[float64](s, m, 1e-5); !errors.Is(err, sherrors.ErrUnsupportedSymbol) {
			t.Errorf("Encode(%q) = %v, want ErrUnsupportedSymbol", s, err)
		}
	}
}

func TestEncodeUnsupportedAfterTruncation(t *testing.T) {
	m, _ := NewModel(nil, PolicyUniform)
	// Encoding would stop after 'A', but the digit must still be rejected.
	if _, err := Encode[float64]("AAAA9", m, 0.5); !errors.Is(err, sherrors.ErrUnsupportedSymbol) {
		t.Errorf("Encode(AAAA9) = %v, want ErrUnsupportedSymbol", err)
	}
}

func TestEncodeOrderFollowsAlphabet(t *testing.T) {
	m, _ := NewModel(nil, PolicyUniform)
	prev := -1.0
	for i := 0; i < len(DefaultSymbols); i++ {
		k, err := Encode[float64](DefaultSymbols[i:i+1], m, 1e-9)
		if err != nil {
			t.Fatal(err)
		}
		if k <= prev {
			t.Fatalf("%q -> %v not above %v", DefaultSymbols[i], k, prev)
		}
		prev = k
	}
}

func TestEncodeFloat32Saturates(t *testing.T) {
	m, _ := NewModel(nil, PolicyUniform)
	// With eps 0 only float32 rounding ends the narrowing, so long strings
	// sharing a prefix still collide.
	s1 := "zzzzzzzzzzzzzzzzzzzzA"
	s2 := "zzzzzzzzzzzzzzzzzzzzB"
	k1, _ := Encode[float32](s1, m, 0)
	k2, _ := Encode[float32](s2, m, 0)
	if k1 != k2 {
		t.Errorf("float32 keys differ: %v %v", k1, k2)
	}
	k3, _ := Encode[float64]("Ab", m, 0)
	k4, _ := Encode[float64]("Ac", m, 0)
	if k3 == k4 {
		t.Error("float64 keys for Ab and Ac are equal")
	}
}

func BenchmarkEncode(b *testing.B) {
	m, _ := NewModel(nil, PolicyTriangular)
	m.Freeze()
	names := randomNames(newTestRNG(b), 1024, 0)

	b.Run("float64", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; b.Loop(); i++ {
			_, _ = Encode[float64](names[i%len(names)], m, 1e-9)
		}
	})
	b.Run("float32", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; b.Loop(); i++ {
			_, _ = Encode[float32](names[i%len(names)], m, 1e-5)
		}
	})
}
