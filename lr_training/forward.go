package lr

import (
	"fmt"

	leveled "github.com/halilibrahimkanpak/he_logreg/leveled_eval"
)

// EncryptedDataset is a dataset encrypted once at the start of a run:
// one periodic Vector ciphertext per record and one Scalar per label.
type EncryptedDataset struct {
	Samples []leveled.Tagged
	Labels  []leveled.Tagged
	Dim     int
}

// EncryptDataset encrypts every record of ds.
func EncryptDataset(p *leveled.Planner, ds *Dataset, workers int) (*EncryptedDataset, error) {
	m, n := ds.Dims()
	if period := leveled.Period(n); period > p.Slots() {
		return nil, fmt.Errorf("feature dimension %d too large for slot capacity %d", n, p.Slots())
	}

	enc := &EncryptedDataset{
		Samples: make([]leveled.Tagged, m),
		Labels:  make([]leveled.Tagged, m),
		Dim:     n,
	}
	err := parallelFor(p, workers, m, func(w *leveled.Planner, i int) error {
		var err error
		if enc.Samples[i], err = w.Encrypt(leveled.Vector(ds.Features[i])); err != nil {
			return fmt.Errorf("encryption error for record %d: %w", i, err)
		}
		if enc.Labels[i], err = w.Encrypt(leveled.Scalar(ds.Labels[i])); err != nil {
			return fmt.Errorf("encryption error for label %d: %w", i, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return enc, nil
}

// Batch returns the encrypted records at idx.
func (e *EncryptedDataset) Batch(idx []int) (samples, labels []leveled.Tagged) {
	samples = make([]leveled.Tagged, len(idx))
	labels = make([]leveled.Tagged, len(idx))
	for k, i := range idx {
		samples[k] = e.Samples[i]
		labels[k] = e.Labels[i]
	}
	return samples, labels
}

// EncryptProducts encrypts the cleartext linear products w·x_i, each
// replicated in every slot.
func EncryptProducts(p *leveled.Planner, products []float64, workers int) ([]leveled.Tagged, error) {
	out := make([]leveled.Tagged, len(products))
	err := parallelFor(p, workers, len(products), func(w *leveled.Planner, i int) error {
		var err error
		out[i], err = w.Encrypt(leveled.Scalar(products[i]))
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// HomomorphicProducts computes w·x_i inside the scheme: a slot-wise product
// followed by a rotate-and-add over the feature period, which leaves the dot
// product in every slot. The results are refreshed back to the top level so
// the sigmoid has its full depth.
func HomomorphicProducts(p *leveled.Planner, samples []leveled.Tagged, weights leveled.Tagged, dim, workers int) ([]leveled.Tagged, error) {
	period := leveled.Period(dim)
	out := make([]leveled.Tagged, len(samples))
	err := parallelFor(p, workers, len(samples), func(w *leveled.Planner, i int) error {
		prod, err := w.Mul(samples[i], weights)
		if err != nil {
			return fmt.Errorf("forward %d: %w", i, err)
		}
		dot, err := w.InnerSum(prod, period)
		if err != nil {
			return fmt.Errorf("forward %d: %w", i, err)
		}
		if out[i], err = w.Refresh(dot); err != nil {
			return fmt.Errorf("forward %d: %w", i, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RotationsFor lists the rotation keys HomomorphicProducts needs for
// vectors of dimension dim.
func RotationsFor(dim int) []int {
	var rots []int
	for k := 1; k < leveled.Period(dim); k <<= 1 {
		rots = append(rots, k)
	}
	return rots
}
