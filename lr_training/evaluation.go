package lr

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	leveled "github.com/halilibrahimkanpak/he_logreg/leveled_eval"
)

// EncryptedAccuracy classifies every record of ds with the encrypted
// polynomial sigmoid: the products w·x_i are encrypted, passed through
// EvalSigmoid and decrypted for rounding.
func EncryptedAccuracy(p *leveled.Planner, ds *Dataset, w []float64, workers int) (float64, error) {
	products := Products(ds.Matrix(), w)
	encProducts, err := EncryptProducts(p, products, workers)
	if err != nil {
		return 0, err
	}

	predictions := make([]float64, len(products))
	err = parallelFor(p, workers, len(products), func(wp *leveled.Planner, i int) error {
		s, err := EvalSigmoid(wp, encProducts[i], DefaultSigmoid)
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		vals, err := wp.Decrypt(s)
		if err != nil {
			return err
		}
		predictions[i] = vals[0]
		return nil
	})
	if err != nil {
		return 0, err
	}

	correct := 0
	for i, pred := range predictions {
		if math.Round(pred) == ds.Labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(predictions)), nil
}

// PrecisionStats summarizes the absolute error between encrypted results and
// their cleartext reference.
type PrecisionStats struct {
	Mean   float64
	StdDev float64
	Max    float64
}

func (s PrecisionStats) String() string {
	return fmt.Sprintf("mean %.3g, stddev %.3g, max %.3g", s.Mean, s.StdDev, s.Max)
}

// Precision compares got against want element-wise.
func Precision(got, want []float64) (PrecisionStats, error) {
	if len(got) != len(want) || len(got) == 0 {
		return PrecisionStats{}, fmt.Errorf("precision: cannot compare %d values with %d", len(got), len(want))
	}
	diffs := make(stats.Float64Data, len(got))
	for i := range got {
		diffs[i] = math.Abs(got[i] - want[i])
	}

	var ps PrecisionStats
	var err error
	if ps.Mean, err = stats.Mean(diffs); err != nil {
		return PrecisionStats{}, err
	}
	if ps.StdDev, err = stats.StandardDeviation(diffs); err != nil {
		return PrecisionStats{}, err
	}
	if ps.Max, err = stats.Max(diffs); err != nil {
		return PrecisionStats{}, err
	}
	return ps, nil
}
