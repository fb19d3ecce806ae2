package leveled

import "fmt"

// Config describes the CKKS ring and modulus chain. LogQ lists the
// ciphertext moduli (level i uses LogQ[0..i]), LogP the key-switching moduli.
type Config struct {
	LogN            int   `toml:"log_n"`
	LogQ            []int `toml:"log_q"`
	LogP            []int `toml:"log_p"`
	LogDefaultScale int   `toml:"log_default_scale"`
	Rotations       []int `toml:"rotations"`
}

// DefaultConfig is a 7-modulus chain {60,40,40,40,40,40 | 60}: five rescales
// deep at a 2^40 scale over a 2^14 ring.
func DefaultConfig() Config {
	return Config{
		LogN:            14,
		LogQ:            []int{60, 40, 40, 40, 40, 40},
		LogP:            []int{60},
		LogDefaultScale: 40,
	}
}

// TestConfig keeps the default chain on a smaller ring so tests run fast.
func TestConfig() Config {
	cfg := DefaultConfig()
	cfg.LogN = 12
	return cfg
}

// MaxLevel is the level of a fresh ciphertext under this chain.
func (c Config) MaxLevel() int {
	return len(c.LogQ) - 1
}

// Validate rejects ring/chain combinations before any key is generated.
func (c Config) Validate() error {
	if c.LogN < 10 || c.LogN > 17 {
		return &SetupError{Reason: fmt.Sprintf("ring degree 2^%d outside [2^10, 2^17]", c.LogN)}
	}
	if len(c.LogQ) < 2 {
		return &SetupError{Reason: fmt.Sprintf("modulus chain has %d ciphertext moduli, need at least 2", len(c.LogQ))}
	}
	if len(c.LogP) == 0 {
		return &SetupError{Reason: "no key-switching modulus, relinearization impossible"}
	}
	if c.LogDefaultScale <= 0 || c.LogDefaultScale >= c.LogQ[0] {
		return &SetupError{Reason: fmt.Sprintf("scale 2^%d does not fit under the base modulus 2^%d", c.LogDefaultScale, c.LogQ[0])}
	}
	// every rescale divides by one of these primes and the planner resets
	// the result to the default scale, so they must match it
	for i, logQi := range c.LogQ[1:] {
		if logQi != c.LogDefaultScale {
			return &SetupError{Reason: fmt.Sprintf("modulus %d has %d bits, rescaling needs it to match the %d-bit scale", i+1, logQi, c.LogDefaultScale)}
		}
	}
	slots := 1 << (c.LogN - 1)
	for _, k := range c.Rotations {
		if k <= 0 || k >= slots {
			return &SetupError{Reason: fmt.Sprintf("rotation %d outside (0, %d)", k, slots)}
		}
	}
	return nil
}
