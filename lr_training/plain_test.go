package lr

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestPlainStep(t *testing.T) {
	X := mat.NewDense(2, 3, []float64{1, 0, 1, 1, 0, 3})
	y := []float64{1, 0}

	got := PlainStep(X, y, []float64{0, 0, 0}, 0.1, Sigmoid)
	require.InDeltaSlice(t, []float64{0, 0, -0.05}, got, 1e-12)

	// a constant activation gives lr/m·Xᵀ(y - c)
	half := func(float64) float64 { return 0.5 }
	got = PlainStep(X, []float64{1, 1}, []float64{1, 2, 3}, 1, half)
	require.InDeltaSlice(t, []float64{1.5, 2, 4}, got, 1e-12)
}

func TestAccuracyAndCost(t *testing.T) {
	ds := &Dataset{
		Features: [][]float64{{1, 2}, {1, -2}, {1, 0.5}},
		Labels:   []float64{1, 0, 0},
	}
	w := []float64{0, 1}
	require.InDelta(t, 2.0/3.0, Accuracy(ds, w), 1e-12)

	want := -(math.Log(Sigmoid(2)) + math.Log(1-Sigmoid(-2)) + math.Log(1-Sigmoid(0.5))) / 3
	require.InDelta(t, want, Cost(ds, w), 1e-12)

	require.InDeltaSlice(t, []float64{2, -2, 0.5}, Products(ds.Matrix(), w), 1e-12)
}

func TestPrecision(t *testing.T) {
	ps, err := Precision([]float64{1, 2, 3}, []float64{1.1, 2, 2.9})
	require.NoError(t, err)
	require.InDelta(t, 0.2/3, ps.Mean, 1e-12)
	require.InDelta(t, 0.1, ps.Max, 1e-12)
	require.Greater(t, ps.StdDev, 0.0)

	_, err = Precision([]float64{1}, []float64{1, 2})
	require.Error(t, err)
}
