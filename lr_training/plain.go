package lr

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Activation maps a linear product to a probability.
type Activation func(float64) float64

// PlainStep is the cleartext reference of one gradient-descent step:
// w + (lr/m)·Xᵀ(y - act(Xw)).
func PlainStep(X *mat.Dense, y, w []float64, lr float64, act Activation) []float64 {
	m, n := X.Dims()

	z := mat.NewVecDense(m, nil)
	z.MulVec(X, mat.NewVecDense(n, w))

	diff := mat.NewVecDense(m, nil)
	for i := 0; i < m; i++ {
		diff.SetVec(i, y[i]-act(z.AtVec(i)))
	}

	grad := mat.NewVecDense(n, nil)
	grad.MulVec(X.T(), diff)

	out := mat.NewVecDense(n, nil)
	out.AddScaledVec(mat.NewVecDense(n, w), lr/float64(m), grad)
	return mat.Col(nil, 0, out)
}

// Products returns Xw.
func Products(X *mat.Dense, w []float64) []float64 {
	m, n := X.Dims()
	z := mat.NewVecDense(m, nil)
	z.MulVec(X, mat.NewVecDense(n, w))
	return mat.Col(nil, 0, z)
}

// Accuracy is the share of records whose rounded prediction equals the label.
func Accuracy(ds *Dataset, w []float64) float64 {
	z := Products(ds.Matrix(), w)
	correct := 0
	for i, zi := range z {
		if math.Round(Sigmoid(zi)) == ds.Labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(z))
}

// Cost is the mean cross-entropy of the exact sigmoid model.
func Cost(ds *Dataset, w []float64) float64 {
	const eps = 1e-12
	z := Products(ds.Matrix(), w)
	var total float64
	for i, zi := range z {
		h := math.Min(math.Max(Sigmoid(zi), eps), 1-eps)
		y := ds.Labels[i]
		total -= y*math.Log(h) + (1-y)*math.Log(1-h)
	}
	return total / float64(len(z))
}
