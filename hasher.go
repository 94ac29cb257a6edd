package arithshard

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	sherrors "github.com/tamirms/arithshard/errors"
)

// Mode controls how the model evolves while strings are hashed.
type Mode uint8

const (
	// ModeFrozen hashes against the initial model, which never changes.
	ModeFrozen Mode = 0

	// ModeSeeded observes the whole input first, then freezes the model and
	// hashes against the learned distribution.
	ModeSeeded Mode = 1

	// ModeAdaptive observes each string right before hashing it. Keys depend
	// on everything hashed earlier, so input order matters.
	ModeAdaptive Mode = 2
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeFrozen:
		return "frozen"
	case ModeSeeded:
		return "seeded"
	case ModeAdaptive:
		return "adaptive"
	default:
		return "unknown"
	}
}

// ParseMode converts a case-insensitive mode name.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "frozen":
		return ModeFrozen, nil
	case "seeded":
		return ModeSeeded, nil
	case "adaptive":
		return ModeAdaptive, nil
	default:
		return 0, fmt.Errorf("%w: %q (want frozen|seeded|adaptive)", sherrors.ErrInvalidMode, s)
	}
}

// Hasher binds a model, an epsilon and a mode into a string -> key function.
//
// Usage:
//
//	h, err := arithshard.NewHasher[float64](arithshard.WithEpsilon(1e-9))
//	if err != nil { return err }
//	key, err := h.Hash("Alice")
//
// In ModeFrozen, and in ModeSeeded after Freeze, Hash is safe for concurrent
// use. In ModeAdaptive, Hash mutates the model and must be called from one
// goroutine.
type Hasher[F Float] struct {
	model   *Model
	epsilon F
	mode    Mode
	cache   *lru.Cache[string, F]
}

// NewHasher creates a hasher. In ModeFrozen the model is frozen immediately.
func NewHasher[F Float](opts ...Option) (*Hasher[F], error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	return newHasher[F](cfg)
}

func newHasher[F Float](cfg *config) (*Hasher[F], error) {
	model, err := cfg.newModel()
	if err != nil {
		return nil, err
	}
	h := &Hasher[F]{
		model:   model,
		epsilon: F(cfg.epsilon),
		mode:    cfg.mode,
	}
	if cfg.cacheSize > 0 && cfg.mode != ModeAdaptive {
		h.cache, err = lru.New[string, F](cfg.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("create cache: %w", err)
		}
	}
	if cfg.mode == ModeFrozen {
		model.Freeze()
	}
	return h, nil
}

// Model returns the underlying model.
func (h *Hasher[F]) Model() *Model {
	return h.model
}

// Epsilon returns the truncation width in the hasher's precision.
func (h *Hasher[F]) Epsilon() F {
	return h.epsilon
}

// Mode returns the hasher's mode.
func (h *Hasher[F]) Mode() Mode {
	return h.mode
}

// Observe adds every symbol of s to the model. Unlike Model.ObserveString it
// validates s first, so a rejected string leaves the model untouched.
func (h *Hasher[F]) Observe(s string) error {
	if err := h.model.Validate(s); err != nil {
		return err
	}
	return h.model.ObserveString(s)
}

// Freeze stops further model updates and enables the cache.
func (h *Hasher[F]) Freeze() {
	h.model.Freeze()
}

// Hash returns the key for s.
func (h *Hasher[F]) Hash(s string) (F, error) {
	if h.mode == ModeAdaptive {
		if err := h.Observe(s); err != nil {
			return 0, err
		}
		return Encode(s, h.model, h.epsilon)
	}

	useCache := h.cache != nil && h.model.Frozen()
	if useCache {
		if k, ok := h.cache.Get(s); ok {
			return k, nil
		}
	}
	k, err := Encode(s, h.model, h.epsilon)
	if err != nil {
		return 0, err
	}
	if useCache {
		h.cache.Add(s, k)
	}
	return k, nil
}
