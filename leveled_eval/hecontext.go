package leveled

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/schemes/ckks"
)

// Capability is the set of raw HE primitives the planner drives. Every
// method returns a new ciphertext and leaves its inputs untouched. None of
// the methods check levels or scales; that is the planner's job.
//
// A Capability is not safe for concurrent use; Fork returns an instance
// sharing the key material that can run on another goroutine.
type Capability interface {
	MaxLevel() int
	Slots() int
	DefaultScale() rlwe.Scale
	// ModulusScale is the scale of the prime dropped by a rescale at level.
	ModulusScale(level int) rlwe.Scale

	Encode(p Payload, level int, scale rlwe.Scale) (*rlwe.Plaintext, error)
	Decode(pt *rlwe.Plaintext) ([]float64, error)
	Encrypt(pt *rlwe.Plaintext) (*rlwe.Ciphertext, error)
	Decrypt(ct *rlwe.Ciphertext) (*rlwe.Plaintext, error)

	Add(a, b *rlwe.Ciphertext) (*rlwe.Ciphertext, error)
	AddPlain(a *rlwe.Ciphertext, pt *rlwe.Plaintext) (*rlwe.Ciphertext, error)
	Sub(a, b *rlwe.Ciphertext) (*rlwe.Ciphertext, error)
	Negate(a *rlwe.Ciphertext) (*rlwe.Ciphertext, error)
	Mul(a, b *rlwe.Ciphertext) (*rlwe.Ciphertext, error)
	MulPlain(a *rlwe.Ciphertext, pt *rlwe.Plaintext) (*rlwe.Ciphertext, error)
	Square(a *rlwe.Ciphertext) (*rlwe.Ciphertext, error)
	Relinearize(a *rlwe.Ciphertext) (*rlwe.Ciphertext, error)
	Rescale(a *rlwe.Ciphertext) (*rlwe.Ciphertext, error)
	SwitchToLevel(a *rlwe.Ciphertext, level int) (*rlwe.Ciphertext, error)
	Rotate(a *rlwe.Ciphertext, k int) (*rlwe.Ciphertext, error)

	Fork() Capability
}

// HEContext holds all the necessary objects for homomorphic encryption
type HEContext struct {
	params    ckks.Parameters
	encoder   *ckks.Encoder
	encryptor *rlwe.Encryptor
	decryptor *rlwe.Decryptor
	evaluator *ckks.Evaluator
	sk        *rlwe.SecretKey
	pk        *rlwe.PublicKey
	rlk       *rlwe.RelinearizationKey
	rtks      []*rlwe.GaloisKey // Rotation keys
	buffers   *slotPool
}

// NewHEContext builds the CKKS parameters described by cfg and generates the
// secret, public, relinearization and rotation keys.
func NewHEContext(cfg Config) (*HEContext, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	params, err := ckks.NewParametersFromLiteral(ckks.ParametersLiteral{
		LogN:            cfg.LogN,
		LogQ:            cfg.LogQ,
		LogP:            cfg.LogP,
		LogDefaultScale: cfg.LogDefaultScale,
	})
	if err != nil {
		return nil, &SetupError{Reason: "creating CKKS parameters", Err: err}
	}

	kgen := rlwe.NewKeyGenerator(params)
	sk := kgen.GenSecretKeyNew()
	pk := kgen.GenPublicKeyNew(sk)
	rlk := kgen.GenRelinearizationKeyNew(sk)

	var rotKeys []*rlwe.GaloisKey
	for _, rot := range cfg.Rotations {
		rotKeys = append(rotKeys, kgen.GenGaloisKeyNew(params.GaloisElement(rot), sk))
	}

	evk := rlwe.NewMemEvaluationKeySet(rlk, rotKeys...)

	return &HEContext{
		params:    params,
		encoder:   ckks.NewEncoder(params),
		encryptor: rlwe.NewEncryptor(params, pk),
		decryptor: rlwe.NewDecryptor(params, sk),
		evaluator: ckks.NewEvaluator(params, evk),
		sk:        sk,
		pk:        pk,
		rlk:       rlk,
		rtks:      rotKeys,
		buffers:   newSlotPool(params.MaxSlots()),
	}, nil
}

func (he *HEContext) MaxLevel() int { return he.params.MaxLevel() }

func (he *HEContext) Slots() int { return he.params.MaxSlots() }

func (he *HEContext) DefaultScale() rlwe.Scale { return he.params.DefaultScale() }

func (he *HEContext) ModulusScale(level int) rlwe.Scale {
	return rlwe.NewScale(he.params.Q()[level])
}

// Fork returns a context sharing keys and parameters but with its own
// evaluator, encoder and encryption buffers.
func (he *HEContext) Fork() Capability {
	return &HEContext{
		params:    he.params,
		encoder:   he.encoder.ShallowCopy(),
		encryptor: he.encryptor.ShallowCopy(),
		decryptor: he.decryptor.ShallowCopy(),
		evaluator: he.evaluator.ShallowCopy(),
		sk:        he.sk,
		pk:        he.pk,
		rlk:       he.rlk,
		rtks:      he.rtks,
		buffers:   he.buffers,
	}
}

func (he *HEContext) Encode(p Payload, level int, scale rlwe.Scale) (*rlwe.Plaintext, error) {
	if level < 0 || level > he.params.MaxLevel() {
		return nil, fmt.Errorf("encode: level %d outside [0, %d]", level, he.params.MaxLevel())
	}
	buf := he.buffers.get()
	defer he.buffers.put(buf)
	p.fill(buf)

	pt := ckks.NewPlaintext(he.params, level)
	pt.Scale = scale
	if err := he.encoder.Encode(buf, pt); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return pt, nil
}

func (he *HEContext) Decode(pt *rlwe.Plaintext) ([]float64, error) {
	values := make([]float64, he.params.MaxSlots())
	if err := he.encoder.Decode(pt, values); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return values, nil
}

func (he *HEContext) Encrypt(pt *rlwe.Plaintext) (*rlwe.Ciphertext, error) {
	ct, err := he.encryptor.EncryptNew(pt)
	if err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}
	return ct, nil
}

func (he *HEContext) Decrypt(ct *rlwe.Ciphertext) (*rlwe.Plaintext, error) {
	return he.decryptor.DecryptNew(ct), nil
}
