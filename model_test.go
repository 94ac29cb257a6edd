package arithshard

import (
	"errors"
	"slices"
	"sync"
	"testing"

	sherrors "github.com/tamirms/arithshard/errors"
)

func checkTable(t *testing.T, m *Model) {
	t.Helper()
	cum := m.Cumulative()
	if cum[0] != 0 {
		t.Fatalf("cum[0] = %d", cum[0])
	}
	for i := 1; i < len(cum); i++ {
		if cum[i] <= cum[i-1] {
			t.Fatalf("cum[%d]=%d not above cum[%d]=%d", i, cum[i], i-1, cum[i-1])
		}
	}
	if cum[len(cum)-1] != m.Total() {
		t.Fatalf("final entry %d != total %d", cum[len(cum)-1], m.Total())
	}
}

func TestNewModelUniform(t *testing.T) {
	m, err := NewModel(nil, PolicyUniform)
	if err != nil {
		t.Fatal(err)
	}
	if m.Total() != 52 {
		t.Errorf("Total() = %d, want 52", m.Total())
	}
	for _, c := range []byte("AZaz") {
		if n, _ := m.Count(c); n != 1 {
			t.Errorf("Count(%q) = %d, want 1", c, n)
		}
	}
	checkTable(t, m)
}

func TestNewModelTriangular(t *testing.T) {
	m := mustModel(t, "ABC", PolicyTriangular)
	if got, want := m.Cumulative(), []uint64{0, 1, 3, 6}; !slices.Equal(got, want) {
		t.Errorf("Cumulative() = %v, want %v", got, want)
	}
	lo, hi, err := m.ProbabilityInterval('C')
	if err != nil || lo != 0.5 || hi != 1 {
		t.Errorf("ProbabilityInterval(C) = %v, %v, %v", lo, hi, err)
	}
}

func TestNewModelWeights(t *testing.T) {
	a, _ := NewAlphabet("AB")
	m, err := NewModelWeights(a, []uint64{3, 1})
	if err != nil {
		t.Fatal(err)
	}
	lo, hi, _ := m.ProbabilityInterval('A')
	if lo != 0 || hi != 0.75 {
		t.Errorf("A = [%v, %v), want [0, 0.75)", lo, hi)
	}
	if _, err := NewModelWeights(a, []uint64{1, 0}); !errors.Is(err, sherrors.ErrZeroFrequency) {
		t.Errorf("zero weight: %v", err)
	}
	if _, err := NewModelWeights(a, []uint64{1}); !errors.Is(err, sherrors.ErrWeightCount) {
		t.Errorf("short weights: %v", err)
	}
	if _, err := NewModel(a, InitialPolicy(9)); !errors.Is(err, sherrors.ErrInvalidPolicy) {
		t.Errorf("bad policy: %v", err)
	}
}

func TestParseInitialPolicy(t *testing.T) {
	for in, want := range map[string]InitialPolicy{"": PolicyUniform, "Uniform": PolicyUniform, "triangular": PolicyTriangular} {
		got, err := ParseInitialPolicy(in)
		if err != nil || got != want {
			t.Errorf("ParseInitialPolicy(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseInitialPolicy("zipf"); !errors.Is(err, sherrors.ErrInvalidPolicy) {
		t.Errorf("ParseInitialPolicy(zipf) = %v", err)
	}
}

func TestObserveUpdatesOwnAndLaterEntries(t *testing.T) {
	m := mustModel(t, "ABCD", PolicyUniform)
	if err := m.Observe('B'); err != nil {
		t.Fatal(err)
	}
	if got, want := m.Cumulative(), []uint64{0, 1, 3, 4, 5}; !slices.Equal(got, want) {
		t.Errorf("after Observe(B): %v, want %v", got, want)
	}
	if n, _ := m.Count('B'); n != 2 {
		t.Errorf("Count(B) = %d, want 2", n)
	}
	if n, _ := m.Count('A'); n != 1 {
		t.Errorf("Count(A) = %d, want 1", n)
	}
}

func TestObserveInvariants(t *testing.T) {
	rng := newTestRNG(t)
	m, _ := NewModel(nil, PolicyUniform)
	total := m.Total()
	for range 5000 {
		c := DefaultSymbols[rng.IntN(len(DefaultSymbols))]
		if err := m.Observe(c); err != nil {
			t.Fatal(err)
		}
		total++
	}
	if m.Total() != total {
		t.Errorf("Total() = %d, want %d", m.Total(), total)
	}
	checkTable(t, m)
	for i := 0; i < len(DefaultSymbols); i++ {
		lo, hi, err := m.ProbabilityInterval(DefaultSymbols[i])
		if err != nil || !(0 <= lo && lo < hi && hi <= 1) {
			t.Fatalf("ProbabilityInterval(%q) = %v, %v, %v", DefaultSymbols[i], lo, hi, err)
		}
	}
}

func TestObserveUnsupported(t *testing.T) {
	m, _ := NewModel(nil, PolicyUniform)
	before := m.Cumulative()
	if err := m.Observe('1'); !errors.Is(err, sherrors.ErrUnsupportedSymbol) {
		t.Errorf("Observe('1') = %v", err)
	}
	if !slices.Equal(before, m.Cumulative()) {
		t.Error("failed Observe changed the table")
	}
}

func TestProbabilityIntervalsTile(t *testing.T) {
	m := mustModel(t, "ABCDE", PolicyTriangular)
	prev := 0.0
	for _, p := range m.Dump() {
		if p.Low != prev {
			t.Errorf("%q starts at %v, previous ended at %v", p.Symbol, p.Low, prev)
		}
		prev = p.High
	}
	if prev != 1 {
		t.Errorf("last interval ends at %v", prev)
	}
}

func TestFreeze(t *testing.T) {
	m, _ := NewModel(nil, PolicyUniform)
	m.Freeze()
	m.Freeze()
	if !m.Frozen() {
		t.Fatal("Frozen() = false")
	}
	if err := m.Observe('A'); !errors.Is(err, sherrors.ErrModelFrozen) {
		t.Errorf("Observe on frozen model = %v", err)
	}

	c := m.Clone()
	if c.Frozen() {
		t.Error("Clone is frozen")
	}
	if err := c.Observe('A'); err != nil {
		t.Errorf("Observe on clone: %v", err)
	}
	if m.Total() == c.Total() {
		t.Error("clone shares the table with the original")
	}
}

func TestFrozenModelConcurrentReads(t *testing.T) {
	m, _ := NewModel(nil, PolicyTriangular)
	m.Freeze()
	want, _ := Encode[float64]("Concurrent", m, 1e-12)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 1000 {
				got, err := Encode[float64]("Concurrent", m, 1e-12)
				if err != nil || got != want {
					errs <- errors.New("concurrent encode disagreed")
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}
