package arithshard

import (
	"fmt"

	sherrors "github.com/tamirms/arithshard/errors"
)

// DefaultSymbols is the 52-symbol alphabet: uppercase ASCII letters followed
// by lowercase ASCII letters.
const DefaultSymbols = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// noIndex marks bytes that are not part of an alphabet.
const noIndex = -1

// Alphabet is a fixed, ordered set of byte symbols with a dense index space.
// Index and Symbol are inverse bijections over [0, Size()).
//
// An Alphabet is immutable after construction and safe for concurrent use.
type Alphabet struct {
	symbols string
	index   [256]int16
}

var defaultAlphabet = mustAlphabet(DefaultSymbols)

// DefaultAlphabet returns the shared A-Z, a-z alphabet.
func DefaultAlphabet() *Alphabet {
	return defaultAlphabet
}

// NewAlphabet builds an alphabet from symbols, in the given order.
// Each byte must appear at most once.
func NewAlphabet(symbols string) (*Alphabet, error) {
	if len(symbols) == 0 {
		return nil, sherrors.ErrEmptyAlphabet
	}
	a := &Alphabet{symbols: symbols}
	for i := range a.index {
		a.index[i] = noIndex
	}
	for i := 0; i < len(symbols); i++ {
		c := symbols[i]
		if a.index[c] != noIndex {
			return nil, fmt.Errorf("%w: %q", sherrors.ErrDuplicateSymbol, c)
		}
		a.index[c] = int16(i)
	}
	return a, nil
}

func mustAlphabet(symbols string) *Alphabet {
	a, err := NewAlphabet(symbols)
	if err != nil {
		panic(err)
	}
	return a
}

// Size returns the number of symbols.
func (a *Alphabet) Size() int {
	return len(a.symbols)
}

// Index returns the dense index of c.
func (a *Alphabet) Index(c byte) (int, error) {
	i := a.index[c]
	if i == noIndex {
		return 0, fmt.Errorf("%w: %q", sherrors.ErrUnsupportedSymbol, c)
	}
	return int(i), nil
}

// Symbol returns the symbol stored at index i.
func (a *Alphabet) Symbol(i int) (byte, error) {
	if i < 0 || i >= len(a.symbols) {
		return 0, fmt.Errorf("%w: %d not in [0, %d)", sherrors.ErrIndexOutOfRange, i, len(a.symbols))
	}
	return a.symbols[i], nil
}

// Contains reports whether c belongs to the alphabet.
func (a *Alphabet) Contains(c byte) bool {
	return a.index[c] != noIndex
}

// Validate returns ErrUnsupportedSymbol for the first byte of s outside the
// alphabet, or nil when every byte is supported.
func (a *Alphabet) Validate(s string) error {
	for i := 0; i < len(s); i++ {
		if a.index[s[i]] == noIndex {
			return fmt.Errorf("%w: %q at offset %d", sherrors.ErrUnsupportedSymbol, s[i], i)
		}
	}
	return nil
}

// String returns the symbols in index order.
func (a *Alphabet) String() string {
	return a.symbols
}
