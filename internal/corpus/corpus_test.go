package corpus

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestGenerateLineCount(t *testing.T) {
	var buf bytes.Buffer
	if err := New(1).Generate(&buf, 7, 13); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 7*13 {
		t.Fatalf("got %d lines, want %d", len(lines), 7*13)
	}
}

func TestGenerateAlphabetOnly(t *testing.T) {
	for _, symbols := range []string{"", "AB", "xyz"} {
		g := New(42, WithSymbols(symbols))
		var buf bytes.Buffer
		if err := g.Generate(&buf, 20, 50); err != nil {
			t.Fatalf("Generate(%q): %v", symbols, err)
		}
		allowed := g.Symbols()
		for i, line := range strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n") {
			for j := 0; j < len(line); j++ {
				if strings.IndexByte(allowed, line[j]) < 0 {
					t.Fatalf("symbols %q: line %d has byte %q at %d", symbols, i, line[j], j)
				}
			}
		}
	}
}

func TestNamePrefixLength(t *testing.T) {
	g := New(7)
	pool := g.Prefixes(50)
	for _, p := range pool {
		if len(p) != PrefixLength {
			t.Fatalf("prefix %q has length %d", p, len(p))
		}
	}
	seen := make(map[int]bool)
	for i := range 5000 {
		p := pool[i%len(pool)]
		name := g.Name(p)
		cut := 0
		for cut < len(p) && cut < len(name) && name[cut] == p[cut] {
			cut++
		}
		if cut < MinPrefixCut {
			t.Fatalf("name %q shares only %d bytes with prefix %q", name, cut, p)
		}
		if len(name) < MinPrefixCut || len(name) > PrefixLength+MaxSuffixLength {
			t.Fatalf("name %q has length %d", name, len(name))
		}
		seen[min(cut, PrefixLength)] = true
	}
	if !seen[MinPrefixCut] && !seen[MinPrefixCut+1] {
		t.Error("short prefix cuts never observed")
	}
}

func TestGenerateDeterministic(t *testing.T) {
	var a, b, c bytes.Buffer
	if err := New(99).Generate(&a, 5, 20); err != nil {
		t.Fatal(err)
	}
	if err := New(99).Generate(&b, 5, 20); err != nil {
		t.Fatal(err)
	}
	if err := New(100).Generate(&c, 5, 20); err != nil {
		t.Fatal(err)
	}
	if a.String() != b.String() {
		t.Error("same seed produced different output")
	}
	if a.String() == c.String() {
		t.Error("different seeds produced identical output")
	}
}

func TestGenerateInvalidCounts(t *testing.T) {
	var buf bytes.Buffer
	for _, tc := range [][2]int{{0, 1}, {1, 0}, {-1, 5}} {
		if err := New(1).Generate(&buf, tc[0], tc[1]); !errors.Is(err, ErrInvalidCount) {
			t.Errorf("Generate(%d, %d) = %v, want ErrInvalidCount", tc[0], tc[1], err)
		}
	}
	if buf.Len() != 0 {
		t.Errorf("invalid counts wrote %d bytes", buf.Len())
	}
}

func TestSuffixLengthDistribution(t *testing.T) {
	g := New(3)
	const n = 20000
	sum := 0
	for range n {
		l := g.suffixLength()
		if l < 0 || l > MaxSuffixLength {
			t.Fatalf("suffix length %d out of range", l)
		}
		sum += l
	}
	// E[floor(lognormal(3,1))] is about exp(3.5)-0.5, roughly 32.6.
	mean := float64(sum) / n
	if mean < 28 || mean > 37 {
		t.Errorf("mean suffix length %.2f, want about 32.6", mean)
	}
}
