package leveled

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/schemes/ckks"
)

func (he *HEContext) Add(a, b *rlwe.Ciphertext) (*rlwe.Ciphertext, error) {
	out, err := he.evaluator.AddNew(a, b)
	if err != nil {
		return nil, fmt.Errorf("add: %w", err)
	}
	return out, nil
}

func (he *HEContext) AddPlain(a *rlwe.Ciphertext, pt *rlwe.Plaintext) (*rlwe.Ciphertext, error) {
	out, err := he.evaluator.AddNew(a, pt)
	if err != nil {
		return nil, fmt.Errorf("add plaintext: %w", err)
	}
	return out, nil
}

func (he *HEContext) Sub(a, b *rlwe.Ciphertext) (*rlwe.Ciphertext, error) {
	out, err := he.evaluator.SubNew(a, b)
	if err != nil {
		return nil, fmt.Errorf("sub: %w", err)
	}
	return out, nil
}

// Negate multiplies by the integer -1, which leaves both level and scale
// unchanged.
func (he *HEContext) Negate(a *rlwe.Ciphertext) (*rlwe.Ciphertext, error) {
	out, err := he.evaluator.MulNew(a, -1)
	if err != nil {
		return nil, fmt.Errorf("negate: %w", err)
	}
	return out, nil
}

// Mul is the raw tensor product; the result has degree 2 until relinearized.
func (he *HEContext) Mul(a, b *rlwe.Ciphertext) (*rlwe.Ciphertext, error) {
	out := ckks.NewCiphertext(he.params, a.Degree()+b.Degree(), min(a.Level(), b.Level()))
	if err := he.evaluator.Mul(a, b, out); err != nil {
		return nil, fmt.Errorf("mul: %w", err)
	}
	return out, nil
}

func (he *HEContext) MulPlain(a *rlwe.Ciphertext, pt *rlwe.Plaintext) (*rlwe.Ciphertext, error) {
	out := ckks.NewCiphertext(he.params, a.Degree(), min(a.Level(), pt.Level()))
	if err := he.evaluator.Mul(a, pt, out); err != nil {
		return nil, fmt.Errorf("mul plaintext: %w", err)
	}
	return out, nil
}

func (he *HEContext) Square(a *rlwe.Ciphertext) (*rlwe.Ciphertext, error) {
	out := ckks.NewCiphertext(he.params, 2*a.Degree(), a.Level())
	if err := he.evaluator.Mul(a, a, out); err != nil {
		return nil, fmt.Errorf("square: %w", err)
	}
	return out, nil
}

func (he *HEContext) Relinearize(a *rlwe.Ciphertext) (*rlwe.Ciphertext, error) {
	out, err := he.evaluator.RelinearizeNew(a)
	if err != nil {
		return nil, fmt.Errorf("relinearize: %w", err)
	}
	return out, nil
}

// Rescale divides by the last prime of the current level and drops one level.
// The returned scale is the raw quotient.
func (he *HEContext) Rescale(a *rlwe.Ciphertext) (*rlwe.Ciphertext, error) {
	if a.Level() == 0 {
		return nil, fmt.Errorf("rescale: ciphertext already at level 0")
	}
	out := ckks.NewCiphertext(he.params, a.Degree(), a.Level()-1)
	if err := he.evaluator.Rescale(a, out); err != nil {
		return nil, fmt.Errorf("rescale: %w", err)
	}
	return out, nil
}

func (he *HEContext) SwitchToLevel(a *rlwe.Ciphertext, level int) (*rlwe.Ciphertext, error) {
	if level < 0 || level > a.Level() {
		return nil, fmt.Errorf("switch to level: cannot move level %d to %d", a.Level(), level)
	}
	return he.evaluator.DropLevelNew(a, a.Level()-level), nil
}

func (he *HEContext) Rotate(a *rlwe.Ciphertext, k int) (*rlwe.Ciphertext, error) {
	out, err := he.evaluator.RotateNew(a, k)
	if err != nil {
		return nil, fmt.Errorf("rotate by %d: %w", k, err)
	}
	return out, nil
}
