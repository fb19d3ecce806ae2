package lr

import (
	"testing"

	"github.com/stretchr/testify/require"

	leveled "github.com/halilibrahimkanpak/he_logreg/leveled_eval"
)

func TestSigmoidPolynomialAccuracy(t *testing.T) {
	p := newTestPlanner(t)

	// x in [-5, 5] with step 0.1, one value per slot
	xs := make([]float64, 101)
	want := make([]float64, len(xs))
	for i := range xs {
		xs[i] = -5 + 0.1*float64(i)
		want[i] = 0.5 + 0.25*xs[i] - 0.021*xs[i]*xs[i]*xs[i] + 0.002*xs[i]*xs[i]*xs[i]*xs[i]*xs[i]
	}
	x := encryptOrFail(t, p, leveled.Packed(xs))

	s, err := EvalSigmoid(p, x, DefaultSigmoid)
	require.NoError(t, err)
	require.Equal(t, p.MaxLevel()-SigmoidDepth, s.Level())
	require.Zero(t, s.Scale().Cmp(p.TargetScale()), "sigmoid scale %v differs from target", s.Scale().Float64())

	got := decryptOrFail(t, p, s)
	require.InDeltaSlice(t, want, got[:len(xs)], 1e-2)

	for i, x := range xs {
		require.InDelta(t, want[i], DefaultSigmoid.Eval(x), 1e-12)
	}
}

func TestSigmoidCloseToLogistic(t *testing.T) {
	for x := -2.0; x <= 2.0; x += 0.25 {
		require.InDelta(t, Sigmoid(x), DefaultSigmoid.Eval(x), 0.02, "x=%v", x)
	}
}

func TestSigmoidDepthExhaustion(t *testing.T) {
	p := newTestPlanner(t)

	x := encryptOrFail(t, p, leveled.Scalar(0.5))
	low, err := p.SwitchTo(x, 2)
	require.NoError(t, err)

	_, err = EvalSigmoid(p, low, DefaultSigmoid)
	require.ErrorIs(t, err, leveled.ErrDepthExhausted)

	// exactly three levels is enough and ends at level 0
	three, err := p.SwitchTo(x, 3)
	require.NoError(t, err)
	s, err := EvalSigmoid(p, three, DefaultSigmoid)
	require.NoError(t, err)
	require.Equal(t, 0, s.Level())
	require.InDelta(t, DefaultSigmoid.Eval(0.5), decryptOrFail(t, p, s)[0], 1e-3)
}

func TestSigmoidPositiveCubicCoefficient(t *testing.T) {
	p := newTestPlanner(t)
	coeffs := SigmoidCoefficients{C0: 0.1, C1: -0.5, C3: 0.3, C5: -0.01}

	xs := []float64{-2, -1, 0, 1.5, 2}
	s, err := EvalSigmoid(p, encryptOrFail(t, p, leveled.Packed(xs)), coeffs)
	require.NoError(t, err)

	got := decryptOrFail(t, p, s)
	for i, x := range xs {
		require.InDelta(t, coeffs.Eval(x), got[i], 1e-3)
	}
}
