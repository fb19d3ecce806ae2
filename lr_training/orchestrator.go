package lr

import (
	"fmt"

	leveled "github.com/halilibrahimkanpak/he_logreg/leveled_eval"
)

// Phase of a single gradient-descent step.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseForwardPass
	PhaseSigmoidEval
	PhaseDerivativeEval
	PhaseAccumulate
	PhaseScaleAndApply
	PhaseDone
)

var phaseNames = [...]string{"Idle", "ForwardPass", "SigmoidEval", "DerivativeEval", "Accumulate", "ScaleAndApply", "Done"}

func (ph Phase) String() string {
	if ph < 0 || int(ph) >= len(phaseNames) {
		return fmt.Sprintf("Phase(%d)", int(ph))
	}
	return phaseNames[ph]
}

// TrainingSchedule gives, for every named value of one step, how many levels
// below a fresh ciphertext it sits.
func TrainingSchedule() leveled.Schedule {
	return leveled.NewSchedule(
		leveled.Step{Name: "scaled_lr", Depth: 1},
		leveled.Step{Name: "sigmoid", Depth: SigmoidDepth},
		leveled.Step{Name: "derivative", Depth: SigmoidDepth + 1},
		leveled.Step{Name: "accumulate", Depth: SigmoidDepth + 1},
		leveled.Step{Name: "adjustment", Depth: SigmoidDepth + 2},
		leveled.Step{Name: "update", Depth: SigmoidDepth + 2},
	)
}

// StepInput is everything one step consumes. Products holds the encrypted
// w·x_i; every value must be fresh (at the top level).
type StepInput struct {
	Products     []leveled.Tagged
	Samples      []leveled.Tagged
	Labels       []leveled.Tagged
	Weights      leveled.Tagged
	LearningRate leveled.Tagged
}

// Orchestrator runs one encrypted gradient-descent step per call. The
// returned weights sit at the bottom of the schedule; the caller refreshes
// them before the next call.
type Orchestrator struct {
	planner   *leveled.Planner
	schedule  leveled.Schedule
	coeffs    SigmoidCoefficients
	workers   int
	reduction Reduction
	phase     Phase
	onPhase   func(Phase)
}

// NewOrchestrator validates the training schedule against the planner's
// chain and fails with a SetupError when it does not fit.
func NewOrchestrator(p *leveled.Planner, workers int, r Reduction) (*Orchestrator, error) {
	schedule := TrainingSchedule()
	if err := schedule.Validate(p.MaxLevel()); err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{
		planner:   p,
		schedule:  schedule,
		coeffs:    DefaultSigmoid,
		workers:   workers,
		reduction: r,
	}, nil
}

// OnPhase registers a callback invoked on every phase transition.
func (o *Orchestrator) OnPhase(fn func(Phase)) { o.onPhase = fn }

func (o *Orchestrator) Phase() Phase { return o.phase }

func (o *Orchestrator) advance(next Phase) error {
	if next != o.phase+1 {
		return fmt.Errorf("orchestrator: illegal transition %v -> %v", o.phase, next)
	}
	o.phase = next
	if o.onPhase != nil {
		o.onPhase(next)
	}
	return nil
}

func (o *Orchestrator) check(name string, t leveled.Tagged) error {
	return o.schedule.Check(name, t, o.planner.MaxLevel())
}

// Step computes weights + (lr/m)·Σ (y_i - sigmoid(w·x_i))·x_i.
func (o *Orchestrator) Step(in StepInput) (leveled.Tagged, error) {
	o.phase = PhaseIdle
	p := o.planner
	top := p.MaxLevel()

	m := len(in.Samples)
	if m == 0 || len(in.Products) != m || len(in.Labels) != m {
		return leveled.Tagged{}, fmt.Errorf("orchestrator: mismatched batch (%d products, %d samples, %d labels)",
			len(in.Products), m, len(in.Labels))
	}

	if err := o.advance(PhaseForwardPass); err != nil {
		return leveled.Tagged{}, err
	}
	fresh := append([]leveled.Tagged{in.Weights, in.LearningRate}, in.Products...)
	fresh = append(fresh, in.Samples...)
	fresh = append(fresh, in.Labels...)
	for _, t := range fresh {
		if t.Level() != top {
			return leveled.Tagged{}, &leveled.DepthExhaustedError{Op: "step input (refresh required)", Level: t.Level(), Required: top}
		}
	}

	scaledLR, err := p.MulConst(in.LearningRate, 1/float64(m))
	if err != nil {
		return leveled.Tagged{}, fmt.Errorf("scaling learning rate: %w", err)
	}
	if err = o.check("scaled_lr", scaledLR); err != nil {
		return leveled.Tagged{}, err
	}

	if err = o.advance(PhaseSigmoidEval); err != nil {
		return leveled.Tagged{}, err
	}
	sig := make([]leveled.Tagged, m)
	err = parallelFor(p, o.workers, m, func(w *leveled.Planner, i int) error {
		s, err := EvalSigmoid(w, in.Products[i], o.coeffs)
		if err != nil {
			return fmt.Errorf("sample %d: %w", i, err)
		}
		sig[i] = s
		return o.check("sigmoid", s)
	})
	if err != nil {
		return leveled.Tagged{}, err
	}

	if err = o.advance(PhaseDerivativeEval); err != nil {
		return leveled.Tagged{}, err
	}
	ds := make([]leveled.Tagged, m)
	err = parallelFor(p, o.workers, m, func(w *leveled.Planner, i int) error {
		d, err := PartialDerivative(w, sig[i], in.Samples[i], in.Labels[i])
		if err != nil {
			return fmt.Errorf("sample %d: %w", i, err)
		}
		ds[i] = d
		return o.check("derivative", d)
	})
	if err != nil {
		return leveled.Tagged{}, err
	}

	if err = o.advance(PhaseAccumulate); err != nil {
		return leveled.Tagged{}, err
	}
	sum, err := Accumulate(p, ds, o.reduction)
	if err != nil {
		return leveled.Tagged{}, err
	}
	if err = o.check("accumulate", sum); err != nil {
		return leveled.Tagged{}, err
	}

	if err = o.advance(PhaseScaleAndApply); err != nil {
		return leveled.Tagged{}, err
	}
	adjustment, err := p.Mul(sum, scaledLR)
	if err != nil {
		return leveled.Tagged{}, fmt.Errorf("scaling gradient: %w", err)
	}
	if err = o.check("adjustment", adjustment); err != nil {
		return leveled.Tagged{}, err
	}
	updated, err := p.Add(in.Weights, adjustment)
	if err != nil {
		return leveled.Tagged{}, fmt.Errorf("applying update: %w", err)
	}
	if err = o.check("update", updated); err != nil {
		return leveled.Tagged{}, err
	}

	if err = o.advance(PhaseDone); err != nil {
		return leveled.Tagged{}, err
	}
	return updated, nil
}
