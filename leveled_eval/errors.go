package leveled

import (
	"errors"
	"fmt"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
)

// Sentinels matched with errors.Is against the typed errors below.
var (
	ErrSetup          = errors.New("invalid scheme setup")
	ErrDepthExhausted = errors.New("multiplicative depth exhausted")
	ErrAlignment      = errors.New("alignment invariant violated")
)

// SetupError reports a ring/modulus-chain configuration that cannot run the
// configured schedule. It is raised before any data is encrypted.
type SetupError struct {
	Reason string
	Err    error
}

func (e *SetupError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("setup: %s: %v", e.Reason, e.Err)
	}
	return "setup: " + e.Reason
}

func (e *SetupError) Unwrap() error { return e.Err }

func (e *SetupError) Is(target error) bool { return target == ErrSetup }

// DepthExhaustedError is returned when an operation would need a level below
// zero, or when an input sits too low for the remaining computation. The only
// recovery is an external refresh of the operands.
type DepthExhaustedError struct {
	Op       string
	Level    int
	Required int
}

func (e *DepthExhaustedError) Error() string {
	return fmt.Sprintf("%s: depth exhausted: operand at level %d, need level %d", e.Op, e.Level, e.Required)
}

func (e *DepthExhaustedError) Is(target error) bool { return target == ErrDepthExhausted }

// AlignmentInvariantError means two operands reached a combine with different
// levels or scales, or a tracked level disagrees with its payload.
// Proceeding would give a wrong result, so it is never recovered.
type AlignmentInvariantError struct {
	Op         string
	LeftLevel  int
	RightLevel int
	LeftScale  float64
	RightScale float64
	Detail     string
}

func (e *AlignmentInvariantError) Error() string {
	msg := fmt.Sprintf("%s: alignment invariant violated: levels (%d, %d), scales (%g, %g)",
		e.Op, e.LeftLevel, e.RightLevel, e.LeftScale, e.RightScale)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *AlignmentInvariantError) Is(target error) bool { return target == ErrAlignment }

func misaligned(op string, a, b Tagged, detail string) error {
	return &AlignmentInvariantError{
		Op:         op,
		LeftLevel:  a.level,
		RightLevel: b.level,
		LeftScale:  a.scale.Float64(),
		RightScale: b.scale.Float64(),
		Detail:     detail,
	}
}

func sameScale(a, b rlwe.Scale) bool {
	return a.Cmp(b) == 0
}
