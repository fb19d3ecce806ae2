package lr

import (
	"fmt"

	leveled "github.com/halilibrahimkanpak/he_logreg/leveled_eval"
)

// PartialDerivative computes (y - s)·x for one sample. x and y are switched
// down to the level of s, the result lands one level below s.
func PartialDerivative(p *leveled.Planner, s, x, y leveled.Tagged) (leveled.Tagged, error) {
	x, err := p.SwitchTo(x, s.Level())
	if err != nil {
		return leveled.Tagged{}, fmt.Errorf("derivative: %w", err)
	}
	y, err = p.SwitchTo(y, s.Level())
	if err != nil {
		return leveled.Tagged{}, fmt.Errorf("derivative: %w", err)
	}

	negS, err := p.Negate(s)
	if err != nil {
		return leveled.Tagged{}, err
	}
	diff, err := p.Add(negS, y)
	if err != nil {
		return leveled.Tagged{}, err
	}
	return p.Mul(diff, x)
}

// Reduction selects how per-sample derivatives are summed. Homomorphic
// addition is exact, so every reduction gives the same ciphertext sum.
type Reduction int

const (
	Sequential Reduction = iota
	PairwiseTree
)

func (r Reduction) String() string {
	switch r {
	case Sequential:
		return "sequential"
	case PairwiseTree:
		return "tree"
	default:
		return fmt.Sprintf("Reduction(%d)", int(r))
	}
}

func ParseReduction(s string) (Reduction, error) {
	switch s {
	case "", "sequential":
		return Sequential, nil
	case "tree", "pairwise":
		return PairwiseTree, nil
	}
	return 0, fmt.Errorf("unknown reduction %q", s)
}

// Accumulate sums ds. All inputs are expected to share level and scale; the
// planner reports any that do not.
func Accumulate(p *leveled.Planner, ds []leveled.Tagged, r Reduction) (leveled.Tagged, error) {
	if len(ds) == 0 {
		return leveled.Tagged{}, fmt.Errorf("accumulate: no derivatives")
	}
	switch r {
	case Sequential:
		sum := ds[0]
		for _, d := range ds[1:] {
			var err error
			if sum, err = p.Add(sum, d); err != nil {
				return leveled.Tagged{}, fmt.Errorf("accumulate: %w", err)
			}
		}
		return sum, nil

	case PairwiseTree:
		layer := append([]leveled.Tagged(nil), ds...)
		for len(layer) > 1 {
			next := make([]leveled.Tagged, 0, (len(layer)+1)/2)
			for i := 0; i+1 < len(layer); i += 2 {
				sum, err := p.Add(layer[i], layer[i+1])
				if err != nil {
					return leveled.Tagged{}, fmt.Errorf("accumulate: %w", err)
				}
				next = append(next, sum)
			}
			if len(layer)%2 == 1 {
				next = append(next, layer[len(layer)-1])
			}
			layer = next
		}
		return layer[0], nil
	}
	return leveled.Tagged{}, fmt.Errorf("accumulate: unknown reduction %v", r)
}
