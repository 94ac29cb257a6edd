package arithshard

import (
	"fmt"
	"strings"
	"sync/atomic"

	sherrors "github.com/tamirms/arithshard/errors"
)

// InitialPolicy selects the starting distribution of a Model.
type InitialPolicy uint8

const (
	// PolicyUniform gives every symbol weight 1.
	PolicyUniform InitialPolicy = 0

	// PolicyTriangular gives the symbol at index i weight i+1, so later
	// symbols start out more probable.
	PolicyTriangular InitialPolicy = 1
)

// String returns the policy name.
func (p InitialPolicy) String() string {
	switch p {
	case PolicyUniform:
		return "uniform"
	case PolicyTriangular:
		return "triangular"
	default:
		return "unknown"
	}
}

// ParseInitialPolicy converts a case-insensitive policy name.
func ParseInitialPolicy(s string) (InitialPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "uniform":
		return PolicyUniform, nil
	case "triangular":
		return PolicyTriangular, nil
	default:
		return 0, fmt.Errorf("%w: %q (want uniform|triangular)", sherrors.ErrInvalidPolicy, s)
	}
}

func (p InitialPolicy) weights(n int) ([]uint64, error) {
	w := make([]uint64, n)
	switch p {
	case PolicyUniform:
		for i := range w {
			w[i] = 1
		}
	case PolicyTriangular:
		for i := range w {
			w[i] = uint64(i) + 1
		}
	default:
		return nil, fmt.Errorf("%w: %d", sherrors.ErrInvalidPolicy, p)
	}
	return w, nil
}

// SymbolProbability is one row of a model dump.
type SymbolProbability struct {
	Symbol byte
	Low    float64
	High   float64
}

// Model is a cumulative-frequency table over an Alphabet.
//
// cum has Size()+1 entries: cum[0] is 0, cum[i+1] is the number of
// observations of symbols 0..i, and cum[Size()] equals the running total.
// Every symbol's count cum[i+1]-cum[i] is at least 1.
//
// Thread Safety:
//   - Observe and ObserveString must not run concurrently with anything else
//   - After Freeze, ProbabilityInterval, Dump and the other readers are safe
//     for concurrent use
type Model struct {
	alphabet *Alphabet
	cum      []uint64
	frozen   atomic.Bool
}

// NewModel creates a model whose initial counts follow policy.
func NewModel(a *Alphabet, policy InitialPolicy) (*Model, error) {
	if a == nil {
		a = DefaultAlphabet()
	}
	w, err := policy.weights(a.Size())
	if err != nil {
		return nil, err
	}
	return NewModelWeights(a, w)
}

// NewModelWeights creates a model from explicit per-symbol weights in
// alphabet order, e.g. letter counts taken from a sample corpus.
func NewModelWeights(a *Alphabet, weights []uint64) (*Model, error) {
	if a == nil {
		a = DefaultAlphabet()
	}
	if len(weights) != a.Size() {
		return nil, fmt.Errorf("%w: got %d, alphabet has %d", sherrors.ErrWeightCount, len(weights), a.Size())
	}
	m := &Model{
		alphabet: a,
		cum:      make([]uint64, len(weights)+1),
	}
	for i, w := range weights {
		if w == 0 {
			sym, _ := a.Symbol(i)
			return nil, fmt.Errorf("%w: %q", sherrors.ErrZeroFrequency, sym)
		}
		m.cum[i+1] = m.cum[i] + w
	}
	return m, nil
}

// Alphabet returns the model's alphabet.
func (m *Model) Alphabet() *Alphabet {
	return m.alphabet
}

// Total returns the sum of all symbol counts.
func (m *Model) Total() uint64 {
	return m.cum[len(m.cum)-1]
}

// Count returns the current count of c.
func (m *Model) Count(c byte) (uint64, error) {
	i, err := m.alphabet.Index(c)
	if err != nil {
		return 0, err
	}
	return m.cum[i+1] - m.cum[i], nil
}

// Cumulative returns a copy of the cumulative table, including the leading
// zero and the trailing total.
func (m *Model) Cumulative() []uint64 {
	return append([]uint64(nil), m.cum...)
}

// Observe records one occurrence of c. The symbol's own cumulative entry and
// every entry after it grow by one; entries before it are unchanged.
func (m *Model) Observe(c byte) error {
	if m.frozen.Load() {
		return sherrors.ErrModelFrozen
	}
	i, err := m.alphabet.Index(c)
	if err != nil {
		return err
	}
	for j := i + 1; j < len(m.cum); j++ {
		m.cum[j]++
	}
	return nil
}

// ObserveString observes each byte of s in order. It is not atomic: bytes
// before an unsupported one stay observed. Validate s first when that matters.
func (m *Model) ObserveString(s string) error {
	for i := 0; i < len(s); i++ {
		if err := m.Observe(s[i]); err != nil {
			return err
		}
	}
	return nil
}

// ProbabilityInterval returns the [lo, hi) slice of [0, 1) owned by c.
// Because every count is non-zero, 0 <= lo < hi <= 1.
func (m *Model) ProbabilityInterval(c byte) (lo, hi float64, err error) {
	i, err := m.alphabet.Index(c)
	if err != nil {
		return 0, 0, err
	}
	total := float64(m.Total())
	return float64(m.cum[i]) / total, float64(m.cum[i+1]) / total, nil
}

// Validate reports whether every byte of s is in the model's alphabet.
func (m *Model) Validate(s string) error {
	return m.alphabet.Validate(s)
}

// Dump lists every symbol's probability interval in alphabet order.
func (m *Model) Dump() []SymbolProbability {
	total := float64(m.Total())
	out := make([]SymbolProbability, m.alphabet.Size())
	for i := range out {
		out[i] = SymbolProbability{
			Symbol: m.alphabet.symbols[i],
			Low:    float64(m.cum[i]) / total,
			High:   float64(m.cum[i+1]) / total,
		}
	}
	return out
}

// Freeze makes the model read-only. Later Observe calls fail with
// ErrModelFrozen. Freeze is idempotent.
func (m *Model) Freeze() {
	m.frozen.Store(true)
}

// Frozen reports whether Freeze has been called.
func (m *Model) Frozen() bool {
	return m.frozen.Load()
}

// Clone returns an unfrozen deep copy sharing the same alphabet.
func (m *Model) Clone() *Model {
	return &Model{
		alphabet: m.alphabet,
		cum:      m.Cumulative(),
	}
}
