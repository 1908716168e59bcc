package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Misconfiguration errors: hard failures, abort the run
	ErrMisconfigured    = errors.New("misconfigured")
	ErrUnknownMethod    = fmt.Errorf("%w: unknown bootstrap method", ErrMisconfigured)
	ErrHypothesisSet    = fmt.Errorf("%w: mismatched hypothesis set", ErrMisconfigured)
	ErrDuplicateID      = fmt.Errorf("%w: duplicate hypothesis id", ErrMisconfigured)
	ErrSeriesMisaligned = fmt.Errorf("%w: series not aligned to shared time axis", ErrMisconfigured)

	// Determinism errors: hard failures, never substitute a default
	ErrDeterminismViolation = errors.New("determinism contract violation")
	ErrMissingSeed          = fmt.Errorf("%w: subsampling requires an explicit seed or rng", ErrDeterminismViolation)
	ErrHashMismatch         = errors.New("hash mismatch")

	// Soft-degrade conditions: callers get a reason code, never a panic
	ErrInsufficientData = errors.New("insufficient data")
	ErrNonFiniteInput   = errors.New("non-finite input")
)

// ReasonCode classifies why a statistical result degraded instead of
// computing. A non-empty code always accompanies a NaN/skip outcome so the
// renderer can distinguish "no evidence" from a real value of zero.
type ReasonCode string

const (
	ReasonNone             ReasonCode = ""
	ReasonInsufficientData ReasonCode = "insufficient_data"
	ReasonNonFiniteInput   ReasonCode = "non_finite_input"
	ReasonZeroVariance     ReasonCode = "zero_variance"
	ReasonCacheMiss        ReasonCode = "cache_miss"
	ReasonCachedMaxOnly    ReasonCode = "cached_max_only"
)

// Error constructors with context
func NewMisconfiguredError(what string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrMisconfigured, what, reason)
}

func NewHypothesisSetError(expected, got int) error {
	return fmt.Errorf("%w: expected %d hypotheses, got %d", ErrHypothesisSet, expected, got)
}

// Error checking helpers
func IsMisconfigured(err error) bool {
	return errors.Is(err, ErrMisconfigured)
}

func IsDeterminismViolation(err error) bool {
	return errors.Is(err, ErrDeterminismViolation)
}

func IsInsufficientData(err error) bool {
	return errors.Is(err, ErrInsufficientData)
}
