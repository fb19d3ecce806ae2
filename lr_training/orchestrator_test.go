package lr

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	leveled "github.com/halilibrahimkanpak/he_logreg/leveled_eval"
)

// stepFixture encrypts a batch and its cleartext products for weights w.
func stepFixture(t *testing.T, p *leveled.Planner, features [][]float64, labels, w []float64, lr float64) StepInput {
	t.Helper()
	n := len(w)
	X := mat.NewDense(len(features), n, nil)
	for i, row := range features {
		X.SetRow(i, row)
	}
	products := Products(X, w)

	in := StepInput{
		Weights:      encryptOrFail(t, p, leveled.Vector(w)),
		LearningRate: encryptOrFail(t, p, leveled.Scalar(lr)),
	}
	for i := range features {
		in.Products = append(in.Products, encryptOrFail(t, p, leveled.Scalar(products[i])))
		in.Samples = append(in.Samples, encryptOrFail(t, p, leveled.Vector(features[i])))
		in.Labels = append(in.Labels, encryptOrFail(t, p, leveled.Scalar(labels[i])))
	}
	return in
}

func TestSingleIterationEquivalence(t *testing.T) {
	p := newTestPlanner(t)
	orch, err := NewOrchestrator(p, 2, Sequential)
	require.NoError(t, err)

	features := [][]float64{{1, 0, 1}, {1, 0, 3}}
	labels := []float64{1, 0}
	w := []float64{0, 0, 0}

	out, err := orch.Step(stepFixture(t, p, features, labels, w, 0.1))
	require.NoError(t, err)
	require.Equal(t, PhaseDone, orch.Phase())
	require.Equal(t, 0, out.Level(), "a five-level chain ends at the bottom")

	got := leveled.FirstPeriod(decryptOrFail(t, p, out), 3)
	// w' = w + (0.1/2)·Σ(y - σ(0))·x = [0, 0, -0.05]
	checkCloseEnough(t, got, []float64{0, 0, -0.05}, 1e-4)

	X := mat.NewDense(2, 3, []float64{1, 0, 1, 1, 0, 3})
	checkCloseEnough(t, got, PlainStep(X, labels, w, 0.1, Sigmoid), 1e-4)
}

func TestStepMatchesPlainReference(t *testing.T) {
	p := newTestPlanner(t)
	orch, err := NewOrchestrator(p, 3, PairwiseTree)
	require.NoError(t, err)

	features := [][]float64{{1, 0.5, 1}, {1, -0.4, 3}, {1, 1.2, -0.5}, {1, 0.1, 0.2}, {1, -1, -1}}
	labels := []float64{1, 0, 1, 1, 0}
	w := []float64{0.1, 0.2, -0.3}

	out, err := orch.Step(stepFixture(t, p, features, labels, w, 0.5))
	require.NoError(t, err)
	got := leveled.FirstPeriod(decryptOrFail(t, p, out), 3)

	X := mat.NewDense(len(features), 3, nil)
	for i, row := range features {
		X.SetRow(i, row)
	}
	checkCloseEnough(t, got, PlainStep(X, labels, w, 0.5, DefaultSigmoid.Eval), 1e-4)
	checkCloseEnough(t, got, PlainStep(X, labels, w, 0.5, Sigmoid), 5e-3)
}

func TestOrchestratorPhases(t *testing.T) {
	p := newTestPlanner(t)
	orch, err := NewOrchestrator(p, 1, Sequential)
	require.NoError(t, err)
	require.Equal(t, PhaseIdle, orch.Phase())

	var seen []Phase
	orch.OnPhase(func(ph Phase) { seen = append(seen, ph) })

	in := stepFixture(t, p, [][]float64{{1, 2}}, []float64{1}, []float64{0.5, -0.5}, 0.1)
	_, err = orch.Step(in)
	require.NoError(t, err)
	require.Equal(t, []Phase{PhaseForwardPass, PhaseSigmoidEval, PhaseDerivativeEval,
		PhaseAccumulate, PhaseScaleAndApply, PhaseDone}, seen)

	// a second call on fresh inputs runs the same sequence again
	seen = nil
	_, err = orch.Step(stepFixture(t, p, [][]float64{{1, 2}}, []float64{1}, []float64{0.5, -0.5}, 0.1))
	require.NoError(t, err)
	require.Len(t, seen, 6)
	require.Equal(t, "ScaleAndApply", PhaseScaleAndApply.String())
}

func TestStepRequiresFreshWeights(t *testing.T) {
	p := newTestPlanner(t)
	orch, err := NewOrchestrator(p, 1, Sequential)
	require.NoError(t, err)

	in := stepFixture(t, p, [][]float64{{1, 0, 1}, {1, 0, 3}}, []float64{1, 0}, []float64{0, 0, 0}, 0.1)
	updated, err := orch.Step(in)
	require.NoError(t, err)

	// chaining without a refresh has no depth left
	in.Weights = updated
	_, err = orch.Step(in)
	require.ErrorIs(t, err, leveled.ErrDepthExhausted)
	require.Equal(t, PhaseForwardPass, orch.Phase())

	refreshed, err := p.Refresh(updated)
	require.NoError(t, err)
	in.Weights = refreshed
	_, err = orch.Step(in)
	require.NoError(t, err)
}

func TestStepRejectsMismatchedBatch(t *testing.T) {
	p := newTestPlanner(t)
	orch, err := NewOrchestrator(p, 1, Sequential)
	require.NoError(t, err)

	in := stepFixture(t, p, [][]float64{{1, 0}, {0, 1}}, []float64{1, 0}, []float64{0, 0}, 0.1)
	in.Labels = in.Labels[:1]
	_, err = orch.Step(in)
	require.Error(t, err)
}

func TestShortChainFailsAtSetup(t *testing.T) {
	cfg := leveled.TestConfig()
	cfg.LogQ = []int{60, 40, 40, 40, 40} // four levels, the step needs five
	he, err := leveled.NewHEContext(cfg)
	require.NoError(t, err)

	_, err = NewOrchestrator(leveled.NewPlanner(he), 1, Sequential)
	require.ErrorIs(t, err, leveled.ErrSetup)

	require.Equal(t, 5, TrainingSchedule().Depth())
}

func TestStepKeepsLevelsMonotoneAndScalesExact(t *testing.T) {
	var (
		mu     sync.Mutex
		events []leveled.Event
	)
	he, err := leveled.NewHEContext(leveled.TestConfig())
	require.NoError(t, err)
	p := leveled.NewPlanner(he, leveled.WithObserver(func(ev leveled.Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev)
	}))
	orch, err := NewOrchestrator(p, 2, PairwiseTree)
	require.NoError(t, err)

	in := stepFixture(t, p, [][]float64{{1, 0.5, 1}, {1, -0.4, 3}, {1, 1.2, -0.5}}, []float64{1, 0, 1}, []float64{0.1, 0.2, -0.3}, 0.5)
	mu.Lock()
	events = nil
	mu.Unlock()

	out, err := orch.Step(in)
	require.NoError(t, err)
	require.Equal(t, 0, out.Level())

	target := p.TargetScale()
	rescales := 0
	for _, ev := range events {
		if len(ev.Inputs) == 0 {
			continue
		}
		lowest := math.MaxInt
		for _, snap := range ev.Inputs {
			lowest = min(lowest, snap.Level)
		}
		if ev.Rescale {
			rescales++
			require.Equal(t, lowest-1, ev.Output.Level, "%s must drop exactly one level", ev.Op)
			require.Zero(t, ev.Output.Scale.Cmp(target), "%s not reset to the target scale", ev.Op)
			gap := math.Abs(ev.RawScale.Float64()/target.Float64() - 1)
			require.Less(t, gap, 1e-3, "%s rescaled to %g", ev.Op, ev.RawScale.Float64())
		} else {
			require.LessOrEqual(t, ev.Output.Level, lowest, "%s raised a level", ev.Op)
			require.Zero(t, ev.RawScale.Cmp(ev.Output.Scale), "%s payload scale differs from its tag", ev.Op)
		}
		if ev.Op == "add" || ev.Op == "sub" {
			require.Equal(t, ev.Inputs[0].Level, ev.Inputs[1].Level)
			require.Zero(t, ev.Inputs[0].Scale.Cmp(ev.Inputs[1].Scale), "%s operand scales differ", ev.Op)
		}
	}
	// scaled_lr, per sample 7 in the sigmoid and 1 in the derivative, adjustment
	require.Equal(t, 1+3*(7+1)+1, rescales)
}
