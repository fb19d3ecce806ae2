package leveled

import (
	"fmt"
	"math"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
)

// Snapshot is the level and scale of one operand at the moment of an event.
type Snapshot struct {
	Level int
	Scale rlwe.Scale
}

// Event describes one planner operation. For additive combines the inputs
// are recorded after alignment, i.e. exactly as handed to the primitive.
// RawScale is the scale the primitive left on the payload, before a rescale
// resets it to the target.
type Event struct {
	Op       string
	Inputs   []Snapshot
	Output   Snapshot
	RawScale rlwe.Scale
	Rescale  bool
}

// scaleTolerance bounds the relative gap between a rescaled ciphertext's
// raw scale and the target it is reset to.
const scaleTolerance = 1e-3

// Option configures a Planner.
type Option func(*Planner)

// WithObserver registers fn to receive every Event. Forked planners share
// the observer, so fn must be safe for concurrent use when workers run.
func WithObserver(fn func(Event)) Option {
	return func(p *Planner) { p.observe = fn }
}

// Planner tracks level and scale for every value it produces and inserts the
// level switches and scale resets needed before each combine. It never raises
// a level.
type Planner struct {
	he      Capability
	target  rlwe.Scale
	observe func(Event)
}

func NewPlanner(he Capability, opts ...Option) *Planner {
	p := &Planner{he: he, target: he.DefaultScale()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Fork returns a planner over a forked capability, for use on another
// goroutine.
func (p *Planner) Fork() *Planner {
	return &Planner{he: p.he.Fork(), target: p.target, observe: p.observe}
}

func (p *Planner) MaxLevel() int { return p.he.MaxLevel() }

func (p *Planner) Slots() int { return p.he.Slots() }

func (p *Planner) TargetScale() rlwe.Scale { return p.target }

// Encrypt produces a fresh value at the top of the chain.
func (p *Planner) Encrypt(v Payload) (Tagged, error) {
	return p.EncryptAt(v, p.he.MaxLevel(), p.target)
}

// EncryptAt encrypts v directly at level with the given scale.
func (p *Planner) EncryptAt(v Payload, level int, scale rlwe.Scale) (Tagged, error) {
	if level < 0 {
		return Tagged{}, &DepthExhaustedError{Op: "encrypt", Level: level, Required: 0}
	}
	pt, err := p.he.Encode(v, level, scale)
	if err != nil {
		return Tagged{}, err
	}
	ct, err := p.he.Encrypt(pt)
	if err != nil {
		return Tagged{}, err
	}
	return p.tag("encrypt", ct, level, scale)
}

// Decrypt returns every slot of t.
func (p *Planner) Decrypt(t Tagged) ([]float64, error) {
	if err := unset("decrypt", t); err != nil {
		return nil, err
	}
	pt, err := p.he.Decrypt(t.ct)
	if err != nil {
		return nil, err
	}
	return p.he.Decode(pt)
}

// Refresh decrypts t and re-encrypts the decoded slots at the top of the
// chain. It needs the secret key and stands in for bootstrapping.
func (p *Planner) Refresh(t Tagged) (Tagged, error) {
	values, err := p.Decrypt(t)
	if err != nil {
		return Tagged{}, fmt.Errorf("refresh: %w", err)
	}
	return p.Encrypt(Packed(values))
}

// SwitchTo lowers t to level. Asking for a higher level is an alignment
// error, a negative one is depth exhaustion.
func (p *Planner) SwitchTo(t Tagged, level int) (Tagged, error) {
	if err := unset("switch", t); err != nil {
		return Tagged{}, err
	}
	switch {
	case level < 0:
		return Tagged{}, &DepthExhaustedError{Op: "switch", Level: t.level, Required: t.level - level}
	case level > t.level:
		return Tagged{}, &AlignmentInvariantError{
			Op: "switch", LeftLevel: t.level, RightLevel: level,
			LeftScale: t.scale.Float64(), RightScale: t.scale.Float64(),
			Detail: "refusing to raise a level",
		}
	case level == t.level:
		return t, nil
	}
	ct, err := p.he.SwitchToLevel(t.ct, level)
	if err != nil {
		return Tagged{}, err
	}
	return p.tag("switch", ct, level, t.scale, t)
}

// Align brings a and b to the lower of their levels. Scales are not
// rewritten here: values built by the planner already share the target
// scale, anything else is reported.
func (p *Planner) Align(a, b Tagged) (Tagged, Tagged, error) {
	err := unset("align", a, b)
	if err != nil {
		return Tagged{}, Tagged{}, err
	}
	if a.level > b.level {
		if a, err = p.SwitchTo(a, b.level); err != nil {
			return Tagged{}, Tagged{}, err
		}
	} else if b.level > a.level {
		if b, err = p.SwitchTo(b, a.level); err != nil {
			return Tagged{}, Tagged{}, err
		}
	}
	if !sameScale(a.scale, b.scale) {
		return Tagged{}, Tagged{}, misaligned("align", a, b, "scales differ")
	}
	return a, b, nil
}

func (p *Planner) Add(a, b Tagged) (Tagged, error) {
	return p.combine("add", a, b, p.he.Add)
}

func (p *Planner) Sub(a, b Tagged) (Tagged, error) {
	return p.combine("sub", a, b, p.he.Sub)
}

func (p *Planner) combine(op string, a, b Tagged, fn func(a, b *rlwe.Ciphertext) (*rlwe.Ciphertext, error)) (Tagged, error) {
	a, b, err := p.Align(a, b)
	if err != nil {
		return Tagged{}, fmt.Errorf("%s: %w", op, err)
	}
	if err = checkPayload(op, a, b); err != nil {
		return Tagged{}, err
	}
	ct, err := fn(a.ct, b.ct)
	if err != nil {
		return Tagged{}, err
	}
	return p.tag(op, ct, a.level, a.scale, a, b)
}

func (p *Planner) Negate(a Tagged) (Tagged, error) {
	if err := unset("negate", a); err != nil {
		return Tagged{}, err
	}
	ct, err := p.he.Negate(a.ct)
	if err != nil {
		return Tagged{}, err
	}
	return p.tag("negate", ct, a.level, a.scale, a)
}

// Mul multiplies two ciphertexts, relinearizes and rescales. The result sits
// one level below the lower operand, at the target scale.
func (p *Planner) Mul(a, b Tagged) (Tagged, error) {
	if err := unset("mul", a, b); err != nil {
		return Tagged{}, err
	}
	if lvl := min(a.level, b.level); lvl < 1 {
		return Tagged{}, &DepthExhaustedError{Op: "mul", Level: lvl, Required: 1}
	}
	a, b, err := p.Align(a, b)
	if err != nil {
		return Tagged{}, fmt.Errorf("mul: %w", err)
	}
	if err = p.checkTarget("mul", a, b); err != nil {
		return Tagged{}, err
	}
	ct, err := p.he.Mul(a.ct, b.ct)
	if err != nil {
		return Tagged{}, err
	}
	return p.relinRescale("mul", ct, a, b)
}

// Square is Mul(a, a) using the squaring primitive.
func (p *Planner) Square(a Tagged) (Tagged, error) {
	if err := unset("square", a); err != nil {
		return Tagged{}, err
	}
	if a.level < 1 {
		return Tagged{}, &DepthExhaustedError{Op: "square", Level: a.level, Required: 1}
	}
	if err := p.checkTarget("square", a, a); err != nil {
		return Tagged{}, err
	}
	ct, err := p.he.Square(a.ct)
	if err != nil {
		return Tagged{}, err
	}
	return p.relinRescale("square", ct, a)
}

// MulConst multiplies by a constant encoded at a's level. The constant takes
// the scale of the prime the following rescale divides by, so the result
// comes back at a's scale without drift.
func (p *Planner) MulConst(a Tagged, c float64) (Tagged, error) {
	if err := unset("mul_const", a); err != nil {
		return Tagged{}, err
	}
	if a.level < 1 {
		return Tagged{}, &DepthExhaustedError{Op: "mul_const", Level: a.level, Required: 1}
	}
	if err := p.checkTarget("mul_const", a, a); err != nil {
		return Tagged{}, err
	}
	pt, err := p.he.Encode(Scalar(c), a.level, p.he.ModulusScale(a.level))
	if err != nil {
		return Tagged{}, err
	}
	ct, err := p.he.MulPlain(a.ct, pt)
	if err != nil {
		return Tagged{}, err
	}
	return p.rescale("mul_const", ct, a)
}

// AddConst adds a constant encoded at a's level and scale.
func (p *Planner) AddConst(a Tagged, c float64) (Tagged, error) {
	if err := unset("add_const", a); err != nil {
		return Tagged{}, err
	}
	pt, err := p.he.Encode(Scalar(c), a.level, a.scale)
	if err != nil {
		return Tagged{}, err
	}
	ct, err := p.he.AddPlain(a.ct, pt)
	if err != nil {
		return Tagged{}, err
	}
	return p.tag("add_const", ct, a.level, a.scale, a)
}

// Rotate cyclically shifts the slots of a by k.
func (p *Planner) Rotate(a Tagged, k int) (Tagged, error) {
	if err := unset("rotate", a); err != nil {
		return Tagged{}, err
	}
	ct, err := p.he.Rotate(a.ct, k)
	if err != nil {
		return Tagged{}, err
	}
	return p.tag("rotate", ct, a.level, a.scale, a)
}

// InnerSum replicates, in every slot, the sum of each block of period
// consecutive slots. Needs rotation keys for the powers of two below period.
func (p *Planner) InnerSum(a Tagged, period int) (Tagged, error) {
	acc := a
	for k := 1; k < period; k <<= 1 {
		rot, err := p.Rotate(acc, k)
		if err != nil {
			return Tagged{}, err
		}
		if acc, err = p.Add(acc, rot); err != nil {
			return Tagged{}, err
		}
	}
	return acc, nil
}

func (p *Planner) relinRescale(op string, ct *rlwe.Ciphertext, inputs ...Tagged) (Tagged, error) {
	ct, err := p.he.Relinearize(ct)
	if err != nil {
		return Tagged{}, err
	}
	return p.rescale(op, ct, inputs...)
}

// rescale drops one level and overwrites the raw quotient scale with the
// target. A quotient far from the target means the dropped prime does not
// match the scale, and the reset would change the encrypted value.
func (p *Planner) rescale(op string, ct *rlwe.Ciphertext, inputs ...Tagged) (Tagged, error) {
	level := ct.Level() - 1
	ct, err := p.he.Rescale(ct)
	if err != nil {
		return Tagged{}, err
	}
	raw := ct.Scale
	if gap := math.Abs(raw.Float64()/p.target.Float64() - 1); gap > scaleTolerance {
		return Tagged{}, &AlignmentInvariantError{
			Op: op, LeftLevel: level, RightLevel: level,
			LeftScale: raw.Float64(), RightScale: p.target.Float64(),
			Detail: "rescaled scale does not match the target, modulus chain and scale disagree",
		}
	}
	ct.Scale = p.target
	out, err := p.tagged(op, ct, level, p.target)
	if err != nil {
		return Tagged{}, err
	}
	p.emit(op, out, raw, true, inputs...)
	return out, nil
}

// unset rejects operands that were never produced by the planner.
func unset(op string, ts ...Tagged) error {
	for _, t := range ts {
		if t.IsZero() {
			return &AlignmentInvariantError{Op: op, LeftLevel: t.level, RightLevel: t.level, Detail: "uninitialized operand"}
		}
	}
	return nil
}

func (p *Planner) checkTarget(op string, a, b Tagged) error {
	if !sameScale(a.scale, p.target) || !sameScale(b.scale, p.target) {
		return misaligned(op, a, b, "multiplication operands must carry the target scale")
	}
	return nil
}

// checkPayload verifies the tracked metadata against the ciphertexts right
// before an additive primitive runs.
func checkPayload(op string, a, b Tagged) error {
	if a.level != b.level || !sameScale(a.scale, b.scale) {
		return misaligned(op, a, b, "")
	}
	if a.ct.Level() != a.level || b.ct.Level() != b.level {
		return misaligned(op, a, b, fmt.Sprintf("payload levels (%d, %d) disagree with tracked levels", a.ct.Level(), b.ct.Level()))
	}
	if !sameScale(a.ct.Scale, a.scale) || !sameScale(b.ct.Scale, b.scale) {
		return misaligned(op, a, b, "payload scales disagree with tracked scales")
	}
	return nil
}

func (p *Planner) tag(op string, ct *rlwe.Ciphertext, level int, scale rlwe.Scale, inputs ...Tagged) (Tagged, error) {
	out, err := p.tagged(op, ct, level, scale)
	if err != nil {
		return Tagged{}, err
	}
	p.emit(op, out, ct.Scale, false, inputs...)
	return out, nil
}

func (p *Planner) tagged(op string, ct *rlwe.Ciphertext, level int, scale rlwe.Scale) (Tagged, error) {
	if ct.Level() != level {
		return Tagged{}, &AlignmentInvariantError{
			Op: op, LeftLevel: ct.Level(), RightLevel: level,
			LeftScale: ct.Scale.Float64(), RightScale: scale.Float64(),
			Detail: "payload level disagrees with schedule",
		}
	}
	return Tagged{ct: ct, level: level, scale: scale}, nil
}

func (p *Planner) emit(op string, out Tagged, raw rlwe.Scale, rescaled bool, inputs ...Tagged) {
	if p.observe == nil {
		return
	}
	ev := Event{
		Op:       op,
		Output:   Snapshot{Level: out.level, Scale: out.scale},
		RawScale: raw,
		Rescale:  rescaled,
	}
	for _, in := range inputs {
		ev.Inputs = append(ev.Inputs, Snapshot{Level: in.level, Scale: in.scale})
	}
	p.observe(ev)
}
