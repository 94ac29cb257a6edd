package arithshard

import (
	"errors"
	"testing"

	sherrors "github.com/tamirms/arithshard/errors"
)

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeFrozen, "FROZEN": ModeFrozen, "seeded": ModeSeeded, " adaptive ": ModeAdaptive} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseMode("learning"); !errors.Is(err, sherrors.ErrInvalidMode) {
		t.Errorf("ParseMode(learning) = %v", err)
	}
	for _, m := range []Mode{ModeFrozen, ModeSeeded, ModeAdaptive} {
		if back, _ := ParseMode(m.String()); back != m {
			t.Errorf("ParseMode(%v.String()) = %v", m, back)
		}
	}
}

func TestHasherFrozen(t *testing.T) {
	h, err := NewHasher[float64](WithEpsilon(1e-9))
	if err != nil {
		t.Fatal(err)
	}
	if !h.Model().Frozen() {
		t.Fatal("frozen hasher has a mutable model")
	}
	k1, err := h.Hash("Alice")
	if err != nil {
		t.Fatal(err)
	}
	k2, _ := h.Hash("Alice")
	if k1 != k2 {
		t.Errorf("repeated Hash differs: %v %v", k1, k2)
	}
	want, _ := Encode[float64]("Alice", h.Model(), 1e-9)
	if k1 != want {
		t.Errorf("Hash = %v, Encode = %v", k1, want)
	}
	if err := h.Observe("Alice"); !errors.Is(err, sherrors.ErrModelFrozen) {
		t.Errorf("Observe on frozen hasher = %v", err)
	}
}

func TestHasherCacheMatchesEncode(t *testing.T) {
	rng := newTestRNG(t)
	cached, err := NewHasher[float32](WithCacheSize(64), WithInitialPolicy(PolicyTriangular))
	if err != nil {
		t.Fatal(err)
	}
	plain, _ := NewHasher[float32](WithInitialPolicy(PolicyTriangular))
	names := randomNames(rng, 100, 0)
	for range 3 {
		for _, s := range names {
			a, _ := cached.Hash(s)
			b, _ := plain.Hash(s)
			if a != b {
				t.Fatalf("%q: cached %v, plain %v", s, a, b)
			}
		}
	}
}

func TestHasherRejectsUnsupported(t *testing.T) {
	h, _ := NewHasher[float64](WithCacheSize(8))
	if _, err := h.Hash("R2D2"); !errors.Is(err, sherrors.ErrUnsupportedSymbol) {
		t.Errorf("Hash(R2D2) = %v", err)
	}
}

func TestHasherSeededObserveThenFreeze(t *testing.T) {
	h, err := NewHasher[float64](WithMode(ModeSeeded))
	if err != nil {
		t.Fatal(err)
	}
	if h.Model().Frozen() {
		t.Fatal("seeded hasher frozen before Freeze")
	}
	if err := h.Observe("Aaaa"); err != nil {
		t.Fatal(err)
	}
	if n, _ := h.Model().Count('a'); n != 4 {
		t.Errorf("Count(a) = %d, want 4", n)
	}
	h.Freeze()
	if err := h.Observe("A"); !errors.Is(err, sherrors.ErrModelFrozen) {
		t.Errorf("Observe after Freeze = %v", err)
	}
}

func TestHasherObserveIsAtomic(t *testing.T) {
	h, _ := NewHasher[float64](WithMode(ModeSeeded))
	before := h.Model().Total()
	if err := h.Observe("Abc9"); !errors.Is(err, sherrors.ErrUnsupportedSymbol) {
		t.Fatalf("Observe(Abc9) = %v", err)
	}
	if h.Model().Total() != before {
		t.Error("rejected string changed the model")
	}
}

func TestHasherAdaptive(t *testing.T) {
	h, err := NewHasher[float64](WithMode(ModeAdaptive), WithEpsilon(0))
	if err != nil {
		t.Fatal(err)
	}
	total := h.Model().Total()

	k1, err := h.Hash("Ab")
	if err != nil {
		t.Fatal(err)
	}
	if got := h.Model().Total(); got != total+2 {
		t.Errorf("Total() = %d, want %d", got, total+2)
	}
	k2, _ := h.Hash("Ab")
	if k1 == k2 {
		t.Error("adaptive keys did not change as the model learned")
	}

	// Observation happens before encoding, so the key reflects the string
	// itself.
	ref, _ := NewModel(nil, PolicyUniform)
	_ = ref.ObserveString("Ab")
	want, _ := Encode[float64]("Ab", ref, 0)
	if k1 != want {
		t.Errorf("first adaptive key = %v, want %v", k1, want)
	}

	before := h.Model().Total()
	if _, err := h.Hash("Ab1"); !errors.Is(err, sherrors.ErrUnsupportedSymbol) {
		t.Errorf("Hash(Ab1) = %v", err)
	}
	if h.Model().Total() != before {
		t.Error("rejected string was observed")
	}
}

func TestNewHasherOptionErrors(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want error
	}{
		{"negative epsilon", []Option{WithEpsilon(-1)}, sherrors.ErrInvalidEpsilon},
		{"bad mode", []Option{WithMode(Mode(7))}, sherrors.ErrInvalidMode},
		{"adaptive parallel", []Option{WithMode(ModeAdaptive), WithWorkers(4)}, sherrors.ErrAdaptiveParallel},
		{"bad policy", []Option{WithInitialPolicy(InitialPolicy(9))}, sherrors.ErrInvalidPolicy},
		{"short weights", []Option{WithWeights([]uint64{1, 2})}, sherrors.ErrWeightCount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewHasher[float64](tt.opts...); !errors.Is(err, tt.want) {
				t.Errorf("NewHasher = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestHasherWithModel(t *testing.T) {
	m := mustModel(t, "AB", PolicyUniform)
	h, err := NewHasher[float64](WithModel(m), WithEpsilon(1e-6))
	if err != nil {
		t.Fatal(err)
	}
	if h.Model() == m || !h.Model().Frozen() {
		t.Error("hasher shares the caller's model or left its copy mutable")
	}
	if m.Frozen() {
		t.Error("WithModel froze the caller's model")
	}
	if k, _ := h.Hash("A"); k != 0.25 {
		t.Errorf("Hash(A) = %v, want 0.25", k)
	}
	if h.Epsilon() != 1e-6 || h.Mode() != ModeFrozen {
		t.Errorf("Epsilon=%v Mode=%v", h.Epsilon(), h.Mode())
	}
}
