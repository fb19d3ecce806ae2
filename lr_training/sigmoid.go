package lr

import (
	"fmt"
	"math"

	leveled "github.com/halilibrahimkanpak/he_logreg/leveled_eval"
)

// SigmoidCoefficients define c0 + c1·x + c3·x³ + c5·x⁵.
type SigmoidCoefficients struct {
	C0, C1, C3, C5 float64
}

// DefaultSigmoid approximates the logistic function on roughly [-5, 5].
var DefaultSigmoid = SigmoidCoefficients{C0: 0.5, C1: 0.25, C3: -0.021, C5: 0.002}

// SigmoidDepth is the number of levels the evaluation consumes.
const SigmoidDepth = 3

// Levels below the sigmoid input at which each intermediate lands.
var sigmoidSchedule = leveled.NewSchedule(
	leveled.Step{Name: "x2", Depth: 1},
	leveled.Step{Name: "x4", Depth: 2},
	leveled.Step{Name: "cx5", Depth: 1},
	leveled.Step{Name: "x5c5", Depth: 3},
	leveled.Step{Name: "cx3", Depth: 1},
	leveled.Step{Name: "x3c3", Depth: 2},
	leveled.Step{Name: "cx1", Depth: 1},
	leveled.Step{Name: "sigmoid", Depth: SigmoidDepth},
)

// Eval is the plaintext polynomial.
func (c SigmoidCoefficients) Eval(x float64) float64 {
	x2 := x * x
	return c.C0 + x*(c.C1+x2*(c.C3+x2*c.C5))
}

// Sigmoid is the exact logistic function.
func Sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// EvalSigmoid evaluates the polynomial on x with three rescales:
// x², x⁴ by repeated squaring, c5·x⁵ as x⁴·(c5·x) and c3·x³ as x²·(c3·x).
// The result is three levels below x.
func EvalSigmoid(p *leveled.Planner, x leveled.Tagged, c SigmoidCoefficients) (leveled.Tagged, error) {
	top := x.Level()
	if top < SigmoidDepth {
		return leveled.Tagged{}, &leveled.DepthExhaustedError{Op: "sigmoid", Level: top, Required: SigmoidDepth}
	}

	check := func(name string, t leveled.Tagged, opErr error) error {
		if opErr != nil {
			return fmt.Errorf("sigmoid %s: %w", name, opErr)
		}
		if err := sigmoidSchedule.Check(name, t, top); err != nil {
			return fmt.Errorf("sigmoid: %w", err)
		}
		return nil
	}

	x2, err := p.Square(x)
	if err = check("x2", x2, err); err != nil {
		return leveled.Tagged{}, err
	}
	x4, err := p.Square(x2)
	if err = check("x4", x4, err); err != nil {
		return leveled.Tagged{}, err
	}

	cx5, err := p.MulConst(x, c.C5)
	if err = check("cx5", cx5, err); err != nil {
		return leveled.Tagged{}, err
	}
	x5c5, err := p.Mul(x4, cx5)
	if err = check("x5c5", x5c5, err); err != nil {
		return leveled.Tagged{}, err
	}

	// the cubic term is built with the sign of c3 flipped and subtracted
	cx3, err := p.MulConst(x, -c.C3)
	if err = check("cx3", cx3, err); err != nil {
		return leveled.Tagged{}, err
	}
	x3c3, err := p.Mul(x2, cx3)
	if err = check("x3c3", x3c3, err); err != nil {
		return leveled.Tagged{}, err
	}

	cx1, err := p.MulConst(x, c.C1)
	if err = check("cx1", cx1, err); err != nil {
		return leveled.Tagged{}, err
	}
	if cx1, err = p.SwitchTo(cx1, top-SigmoidDepth); err != nil {
		return leveled.Tagged{}, err
	}

	res, err := p.AddConst(cx1, c.C0)
	if err != nil {
		return leveled.Tagged{}, err
	}
	if res, err = p.Sub(res, x3c3); err != nil {
		return leveled.Tagged{}, err
	}
	res, err = p.Add(res, x5c5)
	if err = check("sigmoid", res, err); err != nil {
		return leveled.Tagged{}, err
	}
	return res, nil
}
