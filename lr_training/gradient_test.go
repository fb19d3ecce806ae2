package lr

import (
	"testing"

	"github.com/stretchr/testify/require"

	leveled "github.com/halilibrahimkanpak/he_logreg/leveled_eval"
)

func TestPartialDerivativeLevels(t *testing.T) {
	p := newTestPlanner(t)

	x := encryptOrFail(t, p, leveled.Vector{1, 0, 3})
	y := encryptOrFail(t, p, leveled.Scalar(1))
	z := encryptOrFail(t, p, leveled.Scalar(0.4))

	s, err := EvalSigmoid(p, z, DefaultSigmoid)
	require.NoError(t, err)
	d, err := PartialDerivative(p, s, x, y)
	require.NoError(t, err)
	require.Equal(t, s.Level()-1, d.Level())
	require.Equal(t, p.MaxLevel(), x.Level(), "inputs are never modified")

	diff := 1 - DefaultSigmoid.Eval(0.4)
	checkCloseEnough(t, decryptOrFail(t, p, d)[:4], []float64{diff, 0, 3 * diff, 0}, 1e-4)
}

func TestAccumulationOrderIndependence(t *testing.T) {
	p := newTestPlanner(t)

	features := [][]float64{{1, 0.5, -1}, {1, -0.2, 0.7}, {1, 1.5, 0.3}, {1, -0.9, -0.4}}
	labels := []float64{1, 0, 1, 0}
	products := []float64{0.3, -0.6, 1.2, -1.1}

	ds := make([]leveled.Tagged, len(features))
	want := make([]float64, 3)
	for i := range features {
		s, err := EvalSigmoid(p, encryptOrFail(t, p, leveled.Scalar(products[i])), DefaultSigmoid)
		require.NoError(t, err)
		ds[i], err = PartialDerivative(p, s,
			encryptOrFail(t, p, leveled.Vector(features[i])),
			encryptOrFail(t, p, leveled.Scalar(labels[i])))
		require.NoError(t, err)

		for j := range want {
			want[j] += (labels[i] - DefaultSigmoid.Eval(products[i])) * features[i][j]
		}
	}

	seq, err := Accumulate(p, ds, Sequential)
	require.NoError(t, err)
	tree, err := Accumulate(p, ds, PairwiseTree)
	require.NoError(t, err)
	require.Equal(t, seq.Level(), tree.Level())

	seqVals := decryptOrFail(t, p, seq)
	treeVals := decryptOrFail(t, p, tree)
	require.InDeltaSlice(t, seqVals[:8], treeVals[:8], 1e-9)
	checkCloseEnough(t, seqVals[:3], want, 1e-4)

	// odd-sized trees carry the last element up
	odd, err := Accumulate(p, ds[:3], PairwiseTree)
	require.NoError(t, err)
	oddSeq, err := Accumulate(p, ds[:3], Sequential)
	require.NoError(t, err)
	require.InDeltaSlice(t, decryptOrFail(t, p, oddSeq)[:4], decryptOrFail(t, p, odd)[:4], 1e-9)

	_, err = Accumulate(p, nil, Sequential)
	require.Error(t, err)
}

func TestParseReduction(t *testing.T) {
	for in, want := range map[string]Reduction{"": Sequential, "sequential": Sequential, "tree": PairwiseTree} {
		got, err := ParseReduction(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := ParseReduction("random")
	require.Error(t, err)
	require.Equal(t, "tree", PairwiseTree.String())
}
