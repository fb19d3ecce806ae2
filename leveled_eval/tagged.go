package leveled

import "github.com/tuneinsight/lattigo/v6/core/rlwe"

// Tagged is a ciphertext together with the level and scale the planner
// tracks for it. Values are immutable: every planner operation returns a new
// Tagged and never writes to the ciphertext of its inputs.
type Tagged struct {
	ct    *rlwe.Ciphertext
	level int
	scale rlwe.Scale
}

func (t Tagged) Level() int { return t.level }

func (t Tagged) Scale() rlwe.Scale { return t.scale }

// Ciphertext returns the underlying payload. Callers must treat it as
// read-only.
func (t Tagged) Ciphertext() *rlwe.Ciphertext { return t.ct }

// IsZero reports whether t was never produced by an operation.
func (t Tagged) IsZero() bool { return t.ct == nil }
