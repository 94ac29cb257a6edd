package arithshard

import (
	"log/slog"
	"math"

	sherrors "github.com/tamirms/arithshard/errors"
)

const (
	// DefaultEpsilon is the interval width at which encoding stops.
	DefaultEpsilon = 1e-5

	defaultBatchSize = 1024
)

// Option is a functional option for configuring a Hasher or Pipeline.
type Option func(*config)

type config struct {
	alphabet  *Alphabet
	policy    InitialPolicy
	weights   []uint64
	model     *Model
	epsilon   float64
	mode      Mode
	workers   int
	batchSize int
	cacheSize int
	logger    *slog.Logger
	onReject  func(Rejection)
}

func defaultConfig() *config {
	return &config{
		alphabet:  DefaultAlphabet(),
		policy:    PolicyUniform,
		epsilon:   DefaultEpsilon,
		mode:      ModeFrozen,
		workers:   0, // Single-threaded; use WithWorkers(n) to parallelize
		batchSize: defaultBatchSize,
	}
}

func newConfig(opts []Option) (*config, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.batchSize <= 0 {
		cfg.batchSize = defaultBatchSize
	}
	if cfg.epsilon < 0 || math.IsNaN(cfg.epsilon) || math.IsInf(cfg.epsilon, 0) {
		return nil, sherrors.ErrInvalidEpsilon
	}
	if cfg.mode > ModeAdaptive {
		return nil, sherrors.ErrInvalidMode
	}
	if cfg.mode == ModeAdaptive && cfg.workers > 1 {
		return nil, sherrors.ErrAdaptiveParallel
	}
	return cfg, nil
}

// newModel builds the model described by cfg.
func (c *config) newModel() (*Model, error) {
	switch {
	case c.model != nil:
		return c.model.Clone(), nil
	case c.weights != nil:
		return NewModelWeights(c.alphabet, c.weights)
	default:
		return NewModel(c.alphabet, c.policy)
	}
}

// WithAlphabet sets the symbol set. Default is DefaultAlphabet().
func WithAlphabet(a *Alphabet) Option {
	return func(c *config) {
		c.alphabet = a
	}
}

// WithInitialPolicy sets the starting distribution of the model.
func WithInitialPolicy(p InitialPolicy) Option {
	return func(c *config) {
		c.policy = p
	}
}

// WithWeights sets explicit initial weights in alphabet order.
// Overrides WithInitialPolicy. The slice is copied.
func WithWeights(w []uint64) Option {
	return func(c *config) {
		c.weights = append([]uint64(nil), w...)
	}
}

// WithModel starts every Hasher or Run from a copy of m, so m itself is
// never observed into or frozen and a Pipeline stays reusable.
// Overrides WithAlphabet, WithInitialPolicy and WithWeights.
func WithModel(m *Model) Option {
	return func(c *config) {
		c.model = m
		c.alphabet = m.Alphabet()
	}
}

// WithEpsilon sets the interval width below which encoding stops.
func WithEpsilon(eps float64) Option {
	return func(c *config) {
		c.epsilon = eps
	}
}

// WithMode sets how the model evolves while strings are hashed.
func WithMode(m Mode) Option {
	return func(c *config) {
		c.mode = m
	}
}

// WithWorkers sets the number of parallel encode workers.
// Not compatible with ModeAdaptive.
func WithWorkers(n int) Option {
	return func(c *config) {
		c.workers = n
	}
}

// WithBatchSize sets how many lines are handed to a worker at a time.
func WithBatchSize(n int) Option {
	return func(c *config) {
		c.batchSize = n
	}
}

// WithCacheSize enables an LRU cache of n string-to-key results. The cache is
// consulted only while the model is frozen.
func WithCacheSize(n int) Option {
	return func(c *config) {
		c.cacheSize = n
	}
}

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithRejectHandler is called, in input order, for every line that fails to
// encode. Default logs a warning.
func WithRejectHandler(fn func(Rejection)) Option {
	return func(c *config) {
		c.onReject = fn
	}
}
