// Package errors defines all exported error sentinels for the arithshard library.
//
// Both the top-level arithshard package and the internal packages import from
// here, so errors.Is checks work across package boundaries.
package errors

import "errors"

// Symbol and model errors
var (
	ErrUnsupportedSymbol = errors.New("arithshard: symbol is not in the alphabet")
	ErrIndexOutOfRange   = errors.New("arithshard: alphabet index out of range")
	ErrEmptyAlphabet     = errors.New("arithshard: alphabet has no symbols")
	ErrDuplicateSymbol   = errors.New("arithshard: alphabet symbol appears more than once")
	ErrZeroFrequency     = errors.New("arithshard: every symbol needs a non-zero initial weight")
	ErrWeightCount       = errors.New("arithshard: weight count does not match alphabet size")
	ErrModelFrozen       = errors.New("arithshard: model is frozen")
)

// Configuration errors
var (
	ErrInvalidEpsilon   = errors.New("arithshard: epsilon must be a non-negative number")
	ErrInvalidPolicy    = errors.New("arithshard: unknown initial model policy")
	ErrInvalidMode      = errors.New("arithshard: unknown model mode")
	ErrInvalidPrecision = errors.New("arithshard: precision must be 32 or 64")
	ErrAdaptiveParallel = errors.New("arithshard: adaptive mode cannot run with more than one worker")
)

// Input errors
var (
	ErrMalformedInput = errors.New("arithshard: missing or unreadable input")
	ErrLineTooLong    = errors.New("arithshard: input line exceeds maximum length")
)

// Snapshot errors
var (
	ErrInvalidMagic      = errors.New("arithshard: invalid snapshot magic number")
	ErrInvalidVersion    = errors.New("arithshard: unsupported snapshot version")
	ErrTruncatedFile     = errors.New("arithshard: snapshot file is truncated")
	ErrCorruptedSnapshot = errors.New("arithshard: snapshot data is corrupted")
	ErrChecksumFailed    = errors.New("arithshard: snapshot checksum verification failed")
	ErrSnapshotClosed    = errors.New("arithshard: snapshot is closed")
	ErrShardNotFound     = errors.New("arithshard: no shard for key")
)
